package main

import (
	"fmt"
	"os"

	"github.com/abcfe/abcfe-vault/config"
	"github.com/abcfe/abcfe-vault/internal/dashboard"
	"github.com/spf13/cobra"
)

var (
	Version   = "1.0.0"
	BuildTime = "unknown"

	configFile string
	host       string
	port       int
	logPath    string
	refresh    int
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "abcfe-vault-dashboard",
		Short: "ABCFe vault monitor",
		Long: `ABCFe vault monitor - terminal view of a running vault

Shows the lock state, public keychain, live vault events and the vault log.
Host, port and log path default to the vault config file.

Examples:
  abcfe-vault-dashboard
  abcfe-vault-dashboard --port 50005
  abcfe-vault-dashboard -c ./config/config.toml`,
		Run: func(cmd *cobra.Command, args []string) {
			runDashboard()
		},
	}

	rootCmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to vault config file")
	rootCmd.Flags().StringVar(&host, "host", "", "Vault API host")
	rootCmd.Flags().IntVar(&port, "port", 0, "Vault API port")
	rootCmd.Flags().StringVar(&logPath, "log-path", "", "Vault log path prefix")
	rootCmd.Flags().IntVar(&refresh, "refresh", 1, "Refresh interval (seconds)")

	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("ABCFe Vault Dashboard v%s (built: %s)\n", Version, BuildTime)
		},
	}
}

func runDashboard() {
	cfg := dashboard.Config{
		Host:       "127.0.0.1",
		Port:       50005,
		RefreshSec: refresh,
	}

	// flags win over the config file
	if vc, err := config.NewConfig(configFile); err == nil {
		cfg.Host = vc.Server.Host
		cfg.Port = vc.Server.RestPort
		cfg.LogPath = vc.LogInfo.Path
	} else if configFile != "" {
		fmt.Println("Error: failed to load config:", err)
		os.Exit(1)
	}
	if host != "" {
		cfg.Host = host
	}
	if port != 0 {
		cfg.Port = port
	}
	if logPath != "" {
		cfg.LogPath = logPath
	}

	if err := dashboard.Run(cfg); err != nil {
		fmt.Printf("Dashboard error: %v\n", err)
		os.Exit(1)
	}
}
