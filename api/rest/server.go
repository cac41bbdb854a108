package rest

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/abcfe/abcfe-vault/api"
	"github.com/abcfe/abcfe-vault/common/logger"
	"github.com/abcfe/abcfe-vault/config"
	"github.com/abcfe/abcfe-vault/vault"
	"github.com/abcfe/abcfe-vault/wallet"
	"golang.org/x/time/rate"
)

// Server is the local control API
type Server struct {
	host       string
	addr       string
	httpServer *http.Server
	listener   net.Listener
	vault      *vault.Vault
	wallet     *wallet.Wallet
	optionals  OptionalStore
	wsHub      *api.WSHub
	limiter    *rate.Limiter
	onActivity func()
}

func NewServer(cfg *config.Config, v *vault.Vault, wal *wallet.Wallet, optionals OptionalStore, hub *api.WSHub, onActivity func()) *Server {
	return &Server{
		host:       cfg.Server.Host,
		addr:       net.JoinHostPort(cfg.Server.Host, fmt.Sprint(cfg.Server.RestPort)),
		vault:      v,
		wallet:     wal,
		optionals:  optionals,
		wsHub:      hub,
		limiter:    NewUnlockLimiter(cfg.Security.UnlockPerMinute, cfg.Security.UnlockBurst),
		onActivity: onActivity,
	}
}

// Handler returns the router, for tests and embedding
func (s *Server) Handler() http.Handler {
	return setupRouter(s.host, s.vault, s.wallet, s.optionals, s.wsHub, s.limiter, s.onActivity)
}

// Start binds the listener and serves in the background
func (s *Server) Start() error {
	go s.wsHub.Run()

	if !isLoopback(s.addr) {
		logger.Warn("REST API is bound to a non-loopback address: ", s.addr)
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = ln

	s.httpServer = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 2 * time.Minute, // consent prompts can take a while
		IdleTimeout:  120 * time.Second,
	}

	logger.Info("REST API Server listening on ", ln.Addr().String())
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("REST API Server error:", err)
		}
	}()

	return nil
}

// Addr returns the bound address once started
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

func (s *Server) Stop(ctx context.Context) error {
	logger.Info("Shutting down REST API Server...")
	s.wsHub.Stop()
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) GetWSHub() *api.WSHub {
	return s.wsHub
}
