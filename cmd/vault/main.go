package main

import (
	"fmt"
	"os"

	"github.com/abcfe/abcfe-vault/api/rest"
	"github.com/abcfe/abcfe-vault/app"
	"github.com/abcfe/abcfe-vault/common/logger"
	"github.com/spf13/cobra"
)

// Version info (Injected from Makefile)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

var configFile string

func main() {
	var rootCmd = &cobra.Command{
		Use:   "abcfe-vault",
		Short: "ABCFe local key vault",
		Long: `ABCFe vault keeps multi-chain private keys encrypted on this machine and
signs for local applications through a loopback REST API.`,
		Run: func(cmd *cobra.Command, args []string) {
			runVault(false)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(daemonCmd())
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(changePasswordCmd())
	rootCmd.AddCommand(keysCmd())
	rootCmd.AddCommand(signCmd())
	rootCmd.AddCommand(optionalCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Println("Failed to execute command:", err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	var unlock bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the vault API in the foreground",
		Run: func(cmd *cobra.Command, args []string) {
			runVault(unlock)
		},
	}
	cmd.Flags().BoolVarP(&unlock, "unlock", "u", false, "Ask for the password and unlock on start")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("abcfe-vault %s (%s %s, built: %s)\n", Version, rest.ServiceName, rest.Version, BuildTime)
		},
	}
}

func runVault(unlock bool) {
	application, err := app.New(configFile)
	if err != nil {
		fmt.Println("Failed to initialize application:", err)
		os.Exit(1)
	}

	if unlock {
		if err := unlockWithPrompt(application.Vault); err != nil {
			fmt.Println("Failed to unlock vault:", err)
			application.Terminate()
			os.Exit(1)
		}
	}

	application.SigHandler()
	logger.Info("Vault start.")

	if err := application.StartAll(); err != nil {
		logger.Error("Failed to start services:", err)
		fmt.Println("Failed to start services:", err)
		application.Terminate()
		os.Exit(1)
	}
	fmt.Printf("Vault API listening on %s (state: %s)\n", application.RestAddr(), application.Vault.State())

	application.Wait()
	if os.Getenv(daemonEnv) == "1" {
		removePidFile(pidFile)
	}
	logger.Info("Vault terminated.")
}
