package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

const daemonEnv = "ABCFE_VAULT_DAEMON_CHILD"

// PID file management - Use user home directory
func getPidFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./abcfe-vault.pid"
	}
	return filepath.Join(homeDir, ".abcfe-vault", "abcfe-vault.pid")
}

var pidFile = getPidFilePath()

func daemonCmd() *cobra.Command {
	var cmd = &cobra.Command{
		Use:   "daemon",
		Short: "Run the vault in the background",
		Long: `Commands for running the vault API as a background process.
A daemon has no terminal, so set Security.PromptMode to "accept" or "deny"
or export requests cannot be confirmed.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "start",
		Short: "Start the vault as daemon",
		Run: func(cmd *cobra.Command, args []string) {
			runDaemon(pidFile)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "stop",
		Short: "Stop the vault daemon",
		Run: func(cmd *cobra.Command, args []string) {
			stopDaemon(pidFile)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		Run: func(cmd *cobra.Command, args []string) {
			showStatus(pidFile)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "restart",
		Short: "Restart the vault daemon",
		Run: func(cmd *cobra.Command, args []string) {
			restartDaemon(pidFile)
		},
	})

	return cmd
}

func runDaemon(pidFilePath string) {
	if os.Getenv(daemonEnv) == "1" {
		runVault(false)
		return
	}

	if isRunning(pidFilePath) {
		fmt.Println("Vault is already running")
		return
	}

	executable, err := os.Executable()
	if err != nil {
		fmt.Printf("Failed to get executable path: %v\n", err)
		os.Exit(1)
	}

	args := []string{"daemon", "start"}
	if configFile != "" {
		args = append(args, "--config", configFile)
	}
	cmd := exec.Command(executable, args...)
	cmd.Env = append(os.Environ(), daemonEnv+"=1")
	cmd.Stdout = nil
	cmd.Stderr = nil
	cmd.Stdin = nil
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}

	if err := cmd.Start(); err != nil {
		fmt.Printf("Failed to start daemon: %v\n", err)
		os.Exit(1)
	}

	if err := writePidFile(pidFilePath, cmd.Process.Pid); err != nil {
		fmt.Printf("Failed to write PID file: %v\n", err)
		cmd.Process.Kill()
		os.Exit(1)
	}

	fmt.Printf("Vault started as daemon with PID %d\n", cmd.Process.Pid)
}

func stopDaemon(pidFilePath string) {
	pid, err := readPidFile(pidFilePath)
	if err != nil {
		fmt.Println("Vault is not running or PID file not found")
		return
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		fmt.Println("Process not found")
		removePidFile(pidFilePath)
		return
	}

	// SIGTERM locks the vault before exit
	if err := process.Signal(syscall.SIGTERM); err != nil {
		fmt.Printf("Failed to stop process: %v\n", err)
		return
	}

	fmt.Printf("Stopping vault (PID: %d)...\n", pid)
	removePidFile(pidFilePath)
}

func restartDaemon(pidFilePath string) {
	fmt.Println("Restarting vault...")
	stopDaemon(pidFilePath)

	deadline := time.Now().Add(5 * time.Second)
	for isRunning(pidFilePath) && time.Now().Before(deadline) {
		time.Sleep(100 * time.Millisecond)
	}
	runDaemon(pidFilePath)
}

func showStatus(pidFilePath string) {
	fmt.Printf("PID file path: %s\n", pidFilePath)

	if isRunning(pidFilePath) {
		pid, _ := readPidFile(pidFilePath)
		fmt.Printf("Vault is running (PID: %d)\n", pid)
		return
	}

	fmt.Println("Vault is not running")
	if _, err := os.Stat(pidFilePath); err == nil {
		fmt.Println("PID file exists but process is not running - cleaning up")
		removePidFile(pidFilePath)
	}
}

func isRunning(pidFilePath string) bool {
	pid, err := readPidFile(pidFilePath)
	if err != nil {
		return false
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	// Check if process is actually alive (Unix/Linux)
	return process.Signal(syscall.Signal(0)) == nil
}

func readPidFile(pidFilePath string) (int, error) {
	data, err := os.ReadFile(pidFilePath)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(string(data))
}

func writePidFile(pidFilePath string, pid int) error {
	if err := os.MkdirAll(filepath.Dir(pidFilePath), 0700); err != nil {
		return err
	}
	return os.WriteFile(pidFilePath, []byte(strconv.Itoa(pid)), 0600)
}

func removePidFile(pidFilePath string) {
	os.Remove(pidFilePath)
}
