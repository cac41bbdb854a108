package app

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	conf "github.com/abcfe/abcfe-vault/config"
	"github.com/abcfe/abcfe-vault/storage"
	"github.com/abcfe/abcfe-vault/vault"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T, autoLockMinutes int) *App {
	t.Helper()
	db, err := storage.OpenMem()
	require.NoError(t, err)

	cfg := &conf.Config{}
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.RestPort = 0
	cfg.Security.UnlockPerMinute = 10
	cfg.Security.UnlockBurst = 5
	cfg.Security.AutoLockMinutes = autoLockMinutes
	cfg.Security.PromptMode = "deny"

	p, err := NewWithDB(cfg, db)
	require.NoError(t, err)
	t.Cleanup(p.Terminate)
	return p
}

func TestNewWithDBRejectsPromptMode(t *testing.T) {
	db, err := storage.OpenMem()
	require.NoError(t, err)
	defer db.Close()

	cfg := &conf.Config{}
	cfg.Security.PromptMode = "maybe"
	_, err = NewWithDB(cfg, db)
	require.Error(t, err)
}

func TestAutoLock(t *testing.T) {
	p := newTestApp(t, 1)
	ctx := context.Background()

	_, err := p.Vault.Unlock(ctx, "pw", true, "")
	require.NoError(t, err)
	p.Touch()

	now := time.Now()
	require.False(t, p.lockIfIdle(now.Add(30*time.Second)))
	require.True(t, p.Vault.IsUnlocked())

	require.True(t, p.lockIfIdle(now.Add(2*time.Minute)))
	require.Equal(t, vault.StateLocked, p.Vault.State())

	// already locked
	require.False(t, p.lockIfIdle(now.Add(time.Hour)))
}

func TestAutoLockDisabled(t *testing.T) {
	p := newTestApp(t, 0)

	_, err := p.Vault.Unlock(context.Background(), "pw", true, "")
	require.NoError(t, err)

	require.False(t, p.lockIfIdle(time.Now().Add(24*time.Hour)))
	require.True(t, p.Vault.IsUnlocked())
}

func TestStartAllAndTerminate(t *testing.T) {
	p := newTestApp(t, 5)
	require.NoError(t, p.StartAll())

	_, err := p.Vault.Unlock(context.Background(), "pw", true, "")
	require.NoError(t, err)

	before := p.lastActivity.Load()
	time.Sleep(5 * time.Millisecond)

	resp, err := http.Get("http://" + p.RestAddr() + "/api/v1/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// status polling is not activity
	require.Equal(t, before, p.lastActivity.Load())

	var env struct {
		Success bool `json:"success"`
		Data    struct {
			State string `json:"state"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	require.True(t, env.Success)
	require.Equal(t, "unlocked", env.Data.State)

	kc, err := http.Get("http://" + p.RestAddr() + "/api/v1/keychain")
	require.NoError(t, err)
	kc.Body.Close()
	require.Equal(t, http.StatusOK, kc.StatusCode)
	require.Greater(t, p.lastActivity.Load(), before)

	done := make(chan struct{})
	go func() {
		p.Wait()
		close(done)
	}()
	p.Terminate()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Wait did not return after Terminate")
	}
	require.False(t, p.Vault.IsUnlocked())

	// second call is a no-op
	p.Terminate()
}
