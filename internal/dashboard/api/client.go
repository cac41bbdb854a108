package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
)

// Client talks to a running vault's local REST API
type Client struct {
	baseURL    string
	wsURL      string
	httpClient *http.Client
}

func NewClient(host string, port int) *Client {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	return &Client{
		baseURL: "http://" + addr,
		wsURL:   "ws://" + addr + "/ws",
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

type RestResp struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// VaultStatus is the /api/v1/status response
type VaultStatus struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	State     string `json:"state"`
	Exists    bool   `json:"exists"`
	Unlocked  bool   `json:"unlocked"`
	WSClients int    `json:"wsClients"`
}

type PublicKey struct {
	Blockchain string `json:"blockchain"`
	Key        string `json:"key"`
}

type KeypairInfo struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	PublicKeys []PublicKey `json:"publicKeys"`
	External   bool        `json:"external"`
	CreatedAt  int64       `json:"createdAt"`
}

type NamedEntry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Keychain is the public /api/v1/keychain response
type Keychain struct {
	Keypairs   []KeypairInfo `json:"keypairs"`
	Identities []NamedEntry  `json:"identities"`
	Cards      []NamedEntry  `json:"cards"`
}

// Event is a websocket frame from /ws
type Event struct {
	Event string `json:"event"`
	Data  struct {
		Type  string `json:"type"`
		State string `json:"state"`
		Epoch uint64 `json:"epoch"`
		At    int64  `json:"at"`
	} `json:"data"`
}

func (c *Client) GetStatus() (*VaultStatus, error) {
	resp, err := c.do(http.MethodGet, "/api/v1/status")
	if err != nil {
		return nil, err
	}

	var status VaultStatus
	if err := json.Unmarshal(resp.Data, &status); err != nil {
		return nil, fmt.Errorf("parse status: %w", err)
	}
	return &status, nil
}

// GetKeychain fails while the vault is locked
func (c *Client) GetKeychain() (*Keychain, error) {
	resp, err := c.do(http.MethodGet, "/api/v1/keychain")
	if err != nil {
		return nil, err
	}

	var kc Keychain
	if err := json.Unmarshal(resp.Data, &kc); err != nil {
		return nil, fmt.Errorf("parse keychain: %w", err)
	}
	return &kc, nil
}

func (c *Client) Lock() error {
	_, err := c.do(http.MethodPost, "/api/v1/lock")
	return err
}

func (c *Client) IsAlive() bool {
	_, err := c.GetStatus()
	return err == nil
}

// Subscribe opens the event stream. The caller closes the connection.
func (c *Client) Subscribe(ctx context.Context) (*websocket.Conn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}
	return conn, nil
}

// ReadEvent blocks for the next frame on conn
func ReadEvent(conn *websocket.Conn) (*Event, error) {
	var ev Event
	if err := conn.ReadJSON(&ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

func (c *Client) do(method, path string) (*RestResp, error) {
	req, err := http.NewRequest(method, c.baseURL+path, bytes.NewReader(nil))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	var result RestResp
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if !result.Success {
		return nil, fmt.Errorf("api error: %s", result.Error)
	}

	return &result, nil
}
