package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/abcfe/abcfe-vault/api"
	"github.com/abcfe/abcfe-vault/api/rest"
	"github.com/abcfe/abcfe-vault/common/logger"
	conf "github.com/abcfe/abcfe-vault/config"
	"github.com/abcfe/abcfe-vault/plugins"
	"github.com/abcfe/abcfe-vault/prompt"
	"github.com/abcfe/abcfe-vault/storage"
	"github.com/abcfe/abcfe-vault/vault"
	"github.com/abcfe/abcfe-vault/wallet"
	"github.com/awnumar/memguard"
	"go.uber.org/atomic"
)

// idle check period upper bound
const maxIdleCheck = 30 * time.Second

type App struct {
	stop     chan struct{}
	stopOnce sync.Once

	Conf    conf.Config
	DB      *storage.DB
	Vault   *vault.Vault
	Wallet  *wallet.Wallet
	Plugins *plugins.Registry
	Hub     *api.WSHub

	restServer *rest.Server

	autoLock     time.Duration // 0 disables
	lastActivity *atomic.Int64 // unix nano
}

func New(configPath string) (*App, error) {
	cfg, err := conf.NewConfig(configPath)
	if err != nil {
		fmt.Println("Failed to initialized application: ", err)
		return nil, err
	}

	if err := logger.InitLogger(cfg); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		return nil, err
	}

	db, err := storage.InitDB(cfg)
	if err != nil {
		logger.Error("Failed to load db: ", err)
		return nil, err
	}

	p, err := NewWithDB(cfg, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return p, nil
}

// NewWithDB wires the vault stack on an already opened store
func NewWithDB(cfg *conf.Config, db *storage.DB) (*App, error) {
	prompter, err := prompt.FromMode(cfg.Security.PromptMode)
	if err != nil {
		logger.Error("Invalid prompt mode: ", err)
		return nil, err
	}

	hub := api.NewWSHub()
	v := vault.New(db, vault.WithNotifier(hub.Notify))
	if err := v.Init(context.Background()); err != nil {
		logger.Error("Failed to initialize vault: ", err)
		return nil, err
	}
	hub.SetStateProvider(v.State)
	logger.Info("vault loaded, state: ", v.State())

	registry := plugins.Default()

	app := &App{
		stop:         make(chan struct{}),
		Conf:         *cfg,
		DB:           db,
		Vault:        v,
		Plugins:      registry,
		Hub:          hub,
		Wallet:       wallet.NewWallet(v, registry, prompter),
		autoLock:     time.Duration(cfg.Security.AutoLockMinutes) * time.Minute,
		lastActivity: atomic.NewInt64(time.Now().UnixNano()),
	}

	app.restServer = rest.NewServer(&app.Conf, app.Vault, app.Wallet, app.DB, app.Hub, app.Touch)
	return app, nil
}

func (p *App) NewRest() error {
	if err := p.restServer.Start(); err != nil {
		return fmt.Errorf("failed to start REST API server: %w", err)
	}
	return nil
}

// StartAll starts the REST API and the auto-lock watcher
func (p *App) StartAll() error {
	if err := p.NewRest(); err != nil {
		return err
	}

	if p.autoLock > 0 {
		go p.watchIdle()
		logger.Info("Auto-lock after ", p.autoLock, " of inactivity")
	}

	logger.Info("All services started successfully")
	return nil
}

// RestAddr is the address the REST API listens on
func (p *App) RestAddr() string {
	return p.restServer.Addr()
}

// Touch records user activity and postpones the auto-lock
func (p *App) Touch() {
	p.lastActivity.Store(time.Now().UnixNano())
}

func (p *App) watchIdle() {
	period := p.autoLock / 2
	if period > maxIdleCheck {
		period = maxIdleCheck
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-p.stop:
			return
		case now := <-ticker.C:
			p.lockIfIdle(now)
		}
	}
}

// lockIfIdle locks the vault when the last activity is older than the
// auto-lock window. It reports whether it locked.
func (p *App) lockIfIdle(now time.Time) bool {
	if p.autoLock <= 0 || !p.Vault.IsUnlocked() {
		return false
	}
	idle := now.Sub(time.Unix(0, p.lastActivity.Load()))
	if idle < p.autoLock {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p.Vault.Lock(ctx)
	logger.Info("Vault auto-locked after ", idle.Truncate(time.Second), " idle")
	return true
}

// Cleanup locks the vault and releases every resource
func (p *App) Cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if p.Vault != nil {
		p.Vault.Lock(ctx)
	}

	if p.restServer != nil {
		if err := p.restServer.Stop(ctx); err != nil {
			logger.Error("Error stopping REST API server:", err)
		}
	}

	if p.DB != nil {
		if err := p.DB.Close(); err != nil {
			logger.Error("Error closing DB connection:", err)
		}
	}

	memguard.Purge()
	logger.Info("All resources cleaned up")
	logger.Sync()
}

func (p *App) Wait() {
	<-p.stop
}

func (p *App) Terminate() {
	p.stopOnce.Do(func() {
		p.Cleanup()
		close(p.stop)
	})
}

func (p *App) SigHandler() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("Arrived terminate signal: ", sig)
		p.Terminate()
	}()
}
