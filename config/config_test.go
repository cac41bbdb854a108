package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/abcfe/abcfe-vault/common/utils"
	"github.com/stretchr/testify/require"
)

func TestNewConfig(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.toml")
	err := os.WriteFile(file, []byte(`
[Common]
Level = "alpha"
ServiceName = "vault-test"

[LogInfo]
Path = "~/logs/vault"
MaxAgeHour = 1
RotateHour = 1

[DB]
Path = "/tmp/vault-db"

[Server]
RestPort = 6000

[Security]
UnlockPerMinute = 10
AutoLockMinutes = 3
`), 0600)
	require.NoError(t, err)

	cfg, err := NewConfig(file)
	require.NoError(t, err)

	require.Equal(t, "vault-test", cfg.Common.ServiceName)
	require.Equal(t, filepath.Join(utils.HomeDir(), "logs/vault"), cfg.LogInfo.Path)
	require.Equal(t, "/tmp/vault-db", cfg.DB.Path)
	require.Equal(t, 6000, cfg.Server.RestPort)

	// Defaults filled in by sanitize
	require.Equal(t, "127.0.0.1", cfg.Server.Host)
	require.Equal(t, 10, cfg.Security.UnlockPerMinute)
	require.Equal(t, 3, cfg.Security.UnlockBurst)
	require.Equal(t, 3, cfg.Security.AutoLockMinutes)
	require.Equal(t, "terminal", cfg.Security.PromptMode)
}

func TestNewConfigMissingFile(t *testing.T) {
	_, err := NewConfig(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
}

func TestBundledConfig(t *testing.T) {
	cfg, err := NewConfig("config.toml")
	require.NoError(t, err)
	require.Equal(t, "abcfe-vault", cfg.Common.ServiceName)
	require.Equal(t, 50005, cfg.Server.RestPort)
}
