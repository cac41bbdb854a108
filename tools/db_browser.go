package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	prt "github.com/abcfe/abcfe-vault/protocol"
	"github.com/abcfe/abcfe-vault/storage"
)

// Lists what a vault database holds. Values stay sealed and are never printed.
func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run tools/db_browser.go <db_path> [command]")
		fmt.Println("Commands:")
		fmt.Println("  meta       - Show vault records")
		fmt.Println("  optionals  - List optional secrets")
		fmt.Println("  all        - List every key with its value size")
		return
	}

	dbPath := os.Args[1]
	command := "meta"
	if len(os.Args) > 2 {
		command = os.Args[2]
	}

	db, err := storage.OpenReadOnly(dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	stats, err := db.Dump()
	if err != nil {
		log.Fatalf("Failed to read database: %v", err)
	}

	fmt.Printf("Database opened: %s\n\n", dbPath)

	switch command {
	case "meta":
		showMeta(stats)
	case "optionals":
		listPrefix(stats, prt.PrefixOptional)
	case "all":
		listPrefix(stats, "")
	default:
		fmt.Printf("Unknown command: %s\n", command)
	}
}

func showMeta(stats []storage.Stats) {
	fmt.Println("=== VAULT ===")

	found := map[string]int{}
	for _, s := range stats {
		found[s.Key] = s.Size
	}
	for _, key := range []string{prt.KeyScatter, prt.KeySalt} {
		if size, ok := found[key]; ok {
			fmt.Printf("%-16s %d bytes\n", key, size)
		} else {
			fmt.Printf("%-16s not found\n", key)
		}
	}

	optionals := 0
	for _, s := range stats {
		if strings.HasPrefix(s.Key, prt.PrefixOptional) {
			optionals++
		}
	}
	fmt.Printf("%-16s %d\n", "optionals", optionals)
	fmt.Println()
}

func listPrefix(stats []storage.Stats, prefix string) {
	fmt.Println("=== KEYS ===")

	total := 0
	for _, s := range stats {
		if !strings.HasPrefix(s.Key, prefix) {
			continue
		}
		fmt.Printf("%-40s %6d bytes\n", s.Key, s.Size)
		total++
	}
	fmt.Printf("\nTotal: %d\n", total)
}
