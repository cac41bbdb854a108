package rest

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/abcfe/abcfe-vault/api"
	"github.com/abcfe/abcfe-vault/common/crypto"
	"github.com/abcfe/abcfe-vault/common/logger"
	"github.com/abcfe/abcfe-vault/common/utils"
	"github.com/abcfe/abcfe-vault/plugins"
	"github.com/abcfe/abcfe-vault/vault"
	"github.com/abcfe/abcfe-vault/wallet"
	"github.com/gorilla/mux"
)

const (
	ServiceName = "ABCFe Vault API"
	Version     = "1.0.0"

	maxBodyBytes = 1 << 20
)

var (
	errBadRequest       = errors.New("invalid request body")
	ErrOptionalNotFound = errors.New("optional not found")
)

func sendResp(w http.ResponseWriter, statusCode int, data interface{}, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(statusCode)

	response := RestResp{
		Success: err == nil,
		Data:    data,
	}

	if err != nil {
		response.Error = err.Error()
	}

	json.NewEncoder(w).Encode(response)
}

func decodeReq(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		sendResp(w, http.StatusBadRequest, nil, fmt.Errorf("%w: %v", errBadRequest, err))
		return false
	}
	return true
}

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	var serr *wallet.SignatureError
	switch {
	case errors.As(err, &serr):
		switch serr.Kind {
		case wallet.KindNoKeypair:
			return http.StatusNotFound
		case wallet.KindUnsupportedChain:
			return http.StatusBadRequest
		case wallet.KindHardwareUnsupported:
			return http.StatusNotImplemented
		}
		if errors.Is(err, vault.ErrLocked) {
			return http.StatusLocked
		}
		return http.StatusInternalServerError
	case errors.Is(err, vault.ErrWrongPassword):
		return http.StatusUnauthorized
	case errors.Is(err, vault.ErrLocked):
		return http.StatusLocked
	case errors.Is(err, vault.ErrNotInitialized), errors.Is(err, vault.ErrVaultExists),
		errors.Is(err, vault.ErrDuplicateID):
		return http.StatusConflict
	case errors.Is(err, vault.ErrKeypairNotFound), errors.Is(err, ErrOptionalNotFound):
		return http.StatusNotFound
	case errors.Is(err, plugins.ErrUnsupportedChain), errors.Is(err, plugins.ErrInvalidPrivateKey),
		errors.Is(err, plugins.ErrInvalidHash), errors.Is(err, plugins.ErrKeyMismatch),
		errors.Is(err, vault.ErrExternalKey), errors.Is(err, vault.ErrNoPrivateKey),
		errors.Is(err, vault.ErrInvalidScatter), errors.Is(err, wallet.ErrNoBlockchains):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// sendErr hides internal error detail from the client
func sendErr(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error("API error: ", err)
		var serr *wallet.SignatureError
		if errors.As(err, &serr) {
			sendResp(w, status, serr, errors.New(serr.Message))
			return
		}
		sendResp(w, status, nil, errors.New("internal error"))
		return
	}

	var serr *wallet.SignatureError
	if errors.As(err, &serr) {
		sendResp(w, status, serr, errors.New(serr.Message))
		return
	}
	sendResp(w, status, nil, err)
}

func HomeHandler(w http.ResponseWriter, r *http.Request) {
	info := map[string]string{
		"name":    ServiceName,
		"version": Version,
	}
	sendResp(w, http.StatusOK, info, nil)
}

func GetStatus(v *vault.Vault, hub *api.WSHub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sendResp(w, http.StatusOK, StatusResp{
			Name:      ServiceName,
			Version:   Version,
			State:     v.State().String(),
			Exists:    v.Exists(),
			Unlocked:  v.IsUnlocked(),
			WSClients: hub.GetClientCount(),
		}, nil)
	}
}

func Unlock(v *vault.Vault) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req UnlockReq
		if !decodeReq(w, r, &req) {
			return
		}
		if req.Password == "" {
			sendResp(w, http.StatusBadRequest, nil, errors.New("password is required"))
			return
		}

		// The snapshot is never returned over the wire
		s, err := v.Unlock(r.Context(), req.Password, req.IsNew, req.Salt)
		if err != nil {
			sendErr(w, err)
			return
		}
		s.Wipe()
		sendResp(w, http.StatusOK, map[string]string{"state": v.State().String()}, nil)
	}
}

func Lock(v *vault.Vault) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v.Lock(r.Context())
		sendResp(w, http.StatusOK, map[string]string{"state": v.State().String()}, nil)
	}
}

func VerifyPassword(v *vault.Vault) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PasswordReq
		if !decodeReq(w, r, &req) {
			return
		}
		ok, err := v.VerifyPassword(r.Context(), req.Password)
		if err != nil {
			sendErr(w, err)
			return
		}
		sendResp(w, http.StatusOK, VerifyResp{Valid: ok}, nil)
	}
}

func ChangePassword(v *vault.Vault) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ChangePasswordReq
		if !decodeReq(w, r, &req) {
			return
		}
		if req.NewPassword == "" {
			sendResp(w, http.StatusBadRequest, nil, errors.New("newPassword is required"))
			return
		}

		ok, err := v.VerifyPassword(r.Context(), req.Password)
		if err != nil {
			sendErr(w, err)
			return
		}
		if !ok {
			sendErr(w, vault.ErrWrongPassword)
			return
		}

		if err := v.ChangePassword(r.Context(), req.NewPassword); err != nil {
			sendErr(w, err)
			return
		}
		sendResp(w, http.StatusOK, map[string]bool{"changed": true}, nil)
	}
}

// GetKeychain lists public data only
func GetKeychain(v *vault.Vault, wal *wallet.Wallet) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		kc, err := v.Keychain()
		if err != nil {
			sendErr(w, err)
			return
		}
		keypairs, err := wal.Keypairs()
		if err != nil {
			sendErr(w, err)
			return
		}

		resp := KeychainResp{
			Keypairs:   keypairs,
			Identities: make([]IdentityResp, 0, len(kc.Identities)),
			Cards:      make([]CardResp, 0, len(kc.Cards)),
		}
		for _, id := range kc.Identities {
			resp.Identities = append(resp.Identities, IdentityResp{ID: id.ID, Name: id.Name, PublicKey: id.PublicKey})
		}
		for _, c := range kc.Cards {
			resp.Cards = append(resp.Cards, CardResp{ID: c.ID, Name: c.Name})
		}
		sendResp(w, http.StatusOK, resp, nil)
	}
}

func CreateKeypair(wal *wallet.Wallet) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateKeypairReq
		if !decodeReq(w, r, &req) {
			return
		}
		if req.Name == "" {
			sendResp(w, http.StatusBadRequest, nil, errors.New("name is required"))
			return
		}

		var (
			info wallet.KeypairInfo
			err  error
		)
		if req.PrivateKey != "" {
			key, herr := utils.HexToBytes(req.PrivateKey)
			if herr != nil {
				sendResp(w, http.StatusBadRequest, nil, plugins.ErrInvalidPrivateKey)
				return
			}
			info, err = wal.ImportKeypair(r.Context(), req.Name, key, req.Blockchains...)
			crypto.Zero(key)
		} else {
			info, err = wal.CreateKeypair(r.Context(), req.Name, req.Blockchains...)
		}
		if err != nil {
			sendErr(w, err)
			return
		}
		sendResp(w, http.StatusCreated, info, nil)
	}
}

func DeleteKeypair(wal *wallet.Wallet) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := wal.RemoveKeypair(r.Context(), mux.Vars(r)["id"]); err != nil {
			sendErr(w, err)
			return
		}
		sendResp(w, http.StatusOK, map[string]bool{"deleted": true}, nil)
	}
}

func Sign(wal *wallet.Wallet) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SignReq
		if !decodeReq(w, r, &req) {
			return
		}

		var payload []byte
		if req.Arbitrary {
			payload = []byte(req.Payload)
		} else {
			var err error
			payload, err = hex.DecodeString(utils.Strip0x(req.Payload))
			if err != nil {
				sendResp(w, http.StatusBadRequest, nil, fmt.Errorf("payload must be hex: %w", err))
				return
			}
		}

		sig, err := wal.Sign(r.Context(), req.Network, req.PublicKey, payload, req.Arbitrary, req.IsHash)
		if err != nil {
			sendErr(w, err)
			return
		}
		sendResp(w, http.StatusOK, sig, nil)
	}
}

// ExportKeypair exports a private key after the user consents on the vault host
func ExportKeypair(wal *wallet.Wallet) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ExportReq
		if !decodeReq(w, r, &req) {
			return
		}

		key, err := wal.GetPrivateKey(r.Context(), mux.Vars(r)["id"], req.Blockchain)
		if err != nil {
			sendErr(w, err)
			return
		}
		if key == "" {
			sendResp(w, http.StatusForbidden, ExportResp{Declined: true}, errors.New("export declined"))
			return
		}
		sendResp(w, http.StatusOK, ExportResp{PrivateKey: key}, nil)
	}
}

func GetBlockchains(wal *wallet.Wallet) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sendResp(w, http.StatusOK, wal.AvailableBlockchains(), nil)
	}
}

func GetWSStatus(hub *api.WSHub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sendResp(w, http.StatusOK, map[string]interface{}{
			"connected_clients": hub.GetClientCount(),
			"endpoint":          "/ws",
		}, nil)
	}
}

func ListOptionals(v *vault.Vault, store OptionalStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !v.IsUnlocked() {
			sendErr(w, vault.ErrLocked)
			return
		}
		names, err := store.ListOptionals(r.Context())
		if err != nil {
			sendErr(w, err)
			return
		}
		if names == nil {
			names = []string{}
		}
		sendResp(w, http.StatusOK, names, nil)
	}
}

func GetOptional(store OptionalStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := mux.Vars(r)["name"]
		value, err := store.GetOptional(r.Context(), name)
		if err != nil {
			sendErr(w, err)
			return
		}
		if value == nil {
			sendErr(w, ErrOptionalNotFound)
			return
		}
		resp := OptionalResp{Name: name, Value: string(value)}
		crypto.Zero(value)
		sendResp(w, http.StatusOK, resp, nil)
	}
}

// PutOptional seals the value under the live seed; it fails while locked
func PutOptional(store OptionalStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req OptionalReq
		if !decodeReq(w, r, &req) {
			return
		}
		name := mux.Vars(r)["name"]
		if err := store.PutOptional(r.Context(), name, []byte(req.Value)); err != nil {
			sendErr(w, err)
			return
		}
		sendResp(w, http.StatusOK, OptionalResp{Name: name}, nil)
	}
}

func DeleteOptional(v *vault.Vault, store OptionalStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !v.IsUnlocked() {
			sendErr(w, vault.ErrLocked)
			return
		}
		if err := store.DeleteOptional(r.Context(), mux.Vars(r)["name"]); err != nil {
			sendErr(w, err)
			return
		}
		sendResp(w, http.StatusOK, map[string]bool{"deleted": true}, nil)
	}
}
