package main

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	baseURL  string
	password string
)

type APIResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

type publicKey struct {
	Key        string `json:"key"`
	Blockchain string `json:"blockchain"`
}

type keypair struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	PublicKeys []publicKey `json:"publicKeys"`
}

type signature struct {
	Blockchain string `json:"blockchain"`
	PublicKey  string `json:"publicKey"`
	Signature  string `json:"signature"`
}

// End to end check of a running vault's REST API. Run it against a
// throwaway vault: it creates and deletes a keypair.
func main() {
	flag.StringVar(&baseURL, "url", "http://127.0.0.1:50005/api/v1", "Base API URL")
	flag.StringVar(&password, "password", "api-test-password", "Vault password")
	flag.Parse()

	fmt.Println("=== Starting Vault API Test ===")

	fmt.Println("\n[1] Status...")
	var status struct {
		State  string `json:"state"`
		Exists bool   `json:"exists"`
	}
	mustCall("GET", "/status", nil, http.StatusOK, &status)
	fmt.Printf("State: %s (exists: %v)\n", status.State, status.Exists)

	fmt.Println("\n[2] Unlocking...")
	mustCall("POST", "/unlock", map[string]interface{}{"password": password, "isNew": !status.Exists}, http.StatusOK, nil)

	fmt.Println("\n[3] Creating keypair on every chain...")
	var chains map[string]string
	mustCall("GET", "/blockchains", nil, http.StatusOK, &chains)
	var list []string
	for _, c := range chains {
		list = append(list, c)
	}
	var kp keypair
	mustCall("POST", "/keypairs", map[string]interface{}{"name": "api-test", "blockchains": list}, http.StatusCreated, &kp)
	fmt.Printf("Keypair %s\n", kp.ID)
	for _, pk := range kp.PublicKeys {
		fmt.Printf("  %-4s %s\n", pk.Blockchain, pk.Key)
	}

	fmt.Println("\n[4] Signing...")
	payload := []byte("vault api test payload")
	for _, pk := range kp.PublicKeys {
		var sig signature
		mustCall("POST", "/sign", map[string]interface{}{
			"network":   map[string]string{"blockchain": pk.Blockchain},
			"publicKey": pk.Key,
			"payload":   hex.EncodeToString(payload),
		}, http.StatusOK, &sig)
		fmt.Printf("  %-4s %s...\n", pk.Blockchain, sig.Signature[:24])

		if pk.Blockchain == "eth" {
			if err := verifyEth(pk.Key, payload, sig.Signature); err != nil {
				fail("eth signature did not verify: %v", err)
			}
			fmt.Println("  ✓ eth signature recovers the keypair address")
		}
	}

	fmt.Println("\n[5] Password check...")
	var verify struct {
		Valid bool `json:"valid"`
	}
	mustCall("POST", "/password/verify", map[string]string{"password": password}, http.StatusOK, &verify)
	if !verify.Valid {
		fail("current password reported invalid")
	}

	fmt.Println("\n[6] Optionals...")
	mustCall("PUT", "/optionals/api-test", map[string]string{"value": "note"}, http.StatusOK, nil)
	var opt struct {
		Value string `json:"value"`
	}
	mustCall("GET", "/optionals/api-test", nil, http.StatusOK, &opt)
	if opt.Value != "note" {
		fail("optional round trip returned %q", opt.Value)
	}
	mustCall("DELETE", "/optionals/api-test", nil, http.StatusOK, nil)

	fmt.Println("\n[7] Lock blocks signing...")
	mustCall("POST", "/lock", nil, http.StatusOK, nil)
	mustCall("POST", "/sign", map[string]interface{}{
		"network":   map[string]string{"blockchain": kp.PublicKeys[0].Blockchain},
		"publicKey": kp.PublicKeys[0].Key,
		"payload":   hex.EncodeToString(payload),
	}, http.StatusLocked, nil)

	fmt.Println("\n[8] Cleanup...")
	mustCall("POST", "/unlock", map[string]interface{}{"password": password}, http.StatusOK, nil)
	mustCall("DELETE", "/keypairs/"+kp.ID, nil, http.StatusOK, nil)
	mustCall("POST", "/lock", nil, http.StatusOK, nil)

	fmt.Println("\n✅ SUCCESS: vault API test passed")
}

func verifyEth(address string, payload []byte, sigHex string) error {
	sig, err := hexutil.Decode(sigHex)
	if err != nil {
		return err
	}
	if len(sig) != 65 {
		return fmt.Errorf("signature length %d", len(sig))
	}
	sig[64] -= 27

	pub, err := crypto.SigToPub(crypto.Keccak256(payload), sig)
	if err != nil {
		return err
	}
	if got := crypto.PubkeyToAddress(*pub).Hex(); !strings.EqualFold(got, address) {
		return fmt.Errorf("recovered %s", got)
	}
	return nil
}

func mustCall(method, path string, body interface{}, wantStatus int, out interface{}) {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req, err := http.NewRequest(method, baseURL+path, &buf)
	if err != nil {
		fail("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fail("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != wantStatus {
		fail("%s %s: status %d, want %d: %s", method, path, resp.StatusCode, wantStatus, string(raw))
	}
	fmt.Printf("  %s %s -> %s\n", method, path, resp.Status)

	if out == nil {
		return
	}
	var apiResp APIResponse
	if err := json.Unmarshal(raw, &apiResp); err != nil {
		fail("parse response: %v", err)
	}
	if err := json.Unmarshal(apiResp.Data, out); err != nil {
		fail("parse data: %v", err)
	}
}

func fail(format string, args ...interface{}) {
	panic(fmt.Sprintf("❌ FAILED: "+format, args...))
}
