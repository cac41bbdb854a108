package rest

import (
	"net/http"

	"github.com/abcfe/abcfe-vault/api"
	"github.com/abcfe/abcfe-vault/vault"
	"github.com/abcfe/abcfe-vault/wallet"
	"github.com/gorilla/mux"
	"golang.org/x/time/rate"
)

func setupRouter(boundHost string, v *vault.Vault, wal *wallet.Wallet, optionals OptionalStore, wsHub *api.WSHub, unlockLimiter *rate.Limiter, onActivity func()) http.Handler {
	r := mux.NewRouter()

	r.Use(LoggingMiddleware)
	r.Use(RecoveryMiddleware)
	r.Use(LocalOnlyMiddleware(boundHost))
	r.Use(ActivityMiddleware(onActivity))

	r.HandleFunc("/", HomeHandler).Methods("GET")

	r.HandleFunc("/ws", api.HandleWebSocket(wsHub))

	apiRouter := r.PathPrefix("/api/v1").Subrouter()

	// Vault lifecycle
	apiRouter.HandleFunc("/status", GetStatus(v, wsHub)).Methods("GET")
	apiRouter.HandleFunc("/unlock", RateLimit(unlockLimiter, Unlock(v))).Methods("POST")
	apiRouter.HandleFunc("/lock", Lock(v)).Methods("POST")
	apiRouter.HandleFunc("/password/verify", RateLimit(unlockLimiter, VerifyPassword(v))).Methods("POST")
	apiRouter.HandleFunc("/password/change", RateLimit(unlockLimiter, ChangePassword(v))).Methods("POST")

	// Keychain
	apiRouter.HandleFunc("/keychain", GetKeychain(v, wal)).Methods("GET")
	apiRouter.HandleFunc("/keypairs", CreateKeypair(wal)).Methods("POST")
	apiRouter.HandleFunc("/keypairs/{id}", DeleteKeypair(wal)).Methods("DELETE")
	apiRouter.HandleFunc("/keypairs/{id}/export", ExportKeypair(wal)).Methods("POST")

	// Optionals
	apiRouter.HandleFunc("/optionals", ListOptionals(v, optionals)).Methods("GET")
	apiRouter.HandleFunc("/optionals/{name}", GetOptional(optionals)).Methods("GET")
	apiRouter.HandleFunc("/optionals/{name}", PutOptional(optionals)).Methods("PUT")
	apiRouter.HandleFunc("/optionals/{name}", DeleteOptional(v, optionals)).Methods("DELETE")

	// Signing
	apiRouter.HandleFunc("/sign", Sign(wal)).Methods("POST")
	apiRouter.HandleFunc("/blockchains", GetBlockchains(wal)).Methods("GET")

	apiRouter.HandleFunc("/ws/status", GetWSStatus(wsHub)).Methods("GET")

	return r
}
