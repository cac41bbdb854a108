package main

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/atomic"
	"golang.org/x/time/rate"
)

var (
	baseURL     string
	password    string
	requests    int
	concurrency int
	rps         float64
	chain       string
	verbose     bool
)

type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

type Stats struct {
	Total     atomic.Int64
	Success   atomic.Int64
	Failed    atomic.Int64
	Locked    atomic.Int64
	StartTime time.Time
	EndTime   time.Time
}

// Concurrent signing load against a running vault. It adds one keypair and
// removes it when done.
func main() {
	flag.StringVar(&baseURL, "url", "http://127.0.0.1:50005/api/v1", "Base API URL")
	flag.StringVar(&password, "password", "", "Vault password (required)")
	flag.IntVar(&requests, "requests", 500, "Number of sign requests")
	flag.IntVar(&concurrency, "concurrency", 8, "Number of concurrent signers")
	flag.Float64Var(&rps, "rps", 0, "Request rate limit, 0 for unlimited")
	flag.StringVar(&chain, "chain", "eth", "Blockchain to sign for")
	flag.BoolVar(&verbose, "verbose", false, "Verbose output")
	flag.Parse()

	if password == "" {
		fmt.Println("--password is required")
		return
	}

	fmt.Println("╔══════════════════════════════════════════════╗")
	fmt.Println("║         ABCFe Vault Load Test Tool           ║")
	fmt.Println("╚══════════════════════════════════════════════╝")
	fmt.Printf("\nConfiguration:\n")
	fmt.Printf("  Requests:    %d\n", requests)
	fmt.Printf("  Concurrency: %d\n", concurrency)
	fmt.Printf("  Rate:        %.0f/s\n", rps)
	fmt.Printf("  Chain:       %s\n", chain)
	fmt.Printf("  API URL:     %s\n\n", baseURL)

	fmt.Println("[1/3] Unlocking and creating a keypair...")
	if _, err := call("POST", "/unlock", map[string]interface{}{"password": password}); err != nil {
		panic(fmt.Sprintf("Failed to unlock: %v", err))
	}
	data, err := call("POST", "/keypairs", map[string]interface{}{"name": "load-test", "blockchains": []string{chain}})
	if err != nil {
		panic(fmt.Sprintf("Failed to create keypair: %v", err))
	}
	var kp struct {
		ID         string `json:"id"`
		PublicKeys []struct {
			Key string `json:"key"`
		} `json:"publicKeys"`
	}
	if err := json.Unmarshal(data, &kp); err != nil || len(kp.PublicKeys) == 0 {
		panic(fmt.Sprintf("Unexpected keypair response: %s", string(data)))
	}
	fmt.Printf("  ✓ Keypair %s (%s)\n", kp.ID, kp.PublicKeys[0].Key)

	fmt.Printf("\n[2/3] Sending %d sign requests...\n", requests)
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	limiter := rate.NewLimiter(limit, concurrency)

	stats := &Stats{StartTime: time.Now()}
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for i := range jobs {
				if err := limiter.Wait(context.Background()); err != nil {
					return
				}
				stats.Total.Inc()
				err := signOnce(kp.PublicKeys[0].Key, i)
				switch {
				case err == nil:
					stats.Success.Inc()
				case err == errLocked:
					stats.Locked.Inc()
					stats.Failed.Inc()
				default:
					stats.Failed.Inc()
				}
				if verbose && err != nil {
					fmt.Printf("  [Worker %d] ✗ request %d: %v\n", workerID, i, err)
				}
			}
		}(w)
	}
	for i := 0; i < requests; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	stats.EndTime = time.Now()

	fmt.Println("\n[3/3] Cleaning up...")
	if _, err := call("DELETE", "/keypairs/"+kp.ID, nil); err != nil {
		fmt.Printf("  ✗ Failed to delete keypair: %v\n", err)
	}

	printStats(stats)
}

var errLocked = fmt.Errorf("vault locked")

func signOnce(publicKey string, i int) error {
	payload := make([]byte, 32)
	rand.Read(payload)

	_, err := call("POST", "/sign", map[string]interface{}{
		"network":   map[string]string{"blockchain": chain},
		"publicKey": publicKey,
		"payload":   hex.EncodeToString(payload),
		"isHash":    i%2 == 0,
	})
	return err
}

func call(method, path string, body interface{}) (json.RawMessage, error) {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req, err := http.NewRequest(method, baseURL+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)

	if resp.StatusCode == http.StatusLocked {
		return nil, errLocked
	}
	var r apiResponse
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(raw))
	}
	if !r.Success {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, r.Error)
	}
	return r.Data, nil
}

func printStats(stats *Stats) {
	duration := stats.EndTime.Sub(stats.StartTime)
	total := stats.Total.Load()
	success := stats.Success.Load()
	perSec := float64(success) / duration.Seconds()

	fmt.Println("\n╔══════════════════════════════════════════════╗")
	fmt.Println("║                 RESULTS                      ║")
	fmt.Println("╚══════════════════════════════════════════════╝")
	fmt.Printf("  Total Requests:       %d\n", total)
	fmt.Printf("  Successful:           %d\n", success)
	fmt.Printf("  Failed:               %d (locked: %d)\n", stats.Failed.Load(), stats.Locked.Load())
	fmt.Printf("  Duration:             %v\n", duration.Round(time.Millisecond))
	fmt.Printf("  Signatures/s:         %.2f\n", perSec)
	if total > 0 {
		fmt.Printf("  Success Rate:         %.1f%%\n", float64(success)/float64(total)*100)
	}
}
