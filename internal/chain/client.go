// Package chain provides read-only access to the FUN Money contract over
// Ethereum JSON-RPC, and the pre-flight mint validator built on it.
//
// Only the handful of eth_* methods the validator needs are implemented;
// this is a deliberate thin client, not a general Ethereum SDK.
package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/funmoney-network/pplp/internal/domain"
)

// ─── JSON-RPC Client ────────────────────────────────────────────────────────

// Client is a minimal Ethereum JSON-RPC client. It implements
// domain.ChainReader.
type Client struct {
	rpcURL string
	http   *http.Client
	nextID atomic.Uint64
}

// NewClient creates a client for the given RPC endpoint.
func NewClient(rpcURL string) *Client {
	return &Client{
		rpcURL: rpcURL,
		http:   &http.Client{Timeout: 15 * time.Second},
	}
}

// WithHTTPClient overrides the underlying HTTP client (tests inject a
// counting round-tripper here).
func (c *Client) WithHTTPClient(h *http.Client) *Client {
	c.http = h
	return c
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data,omitempty"` // revert data, when present
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// revertReason decodes the revert payload some nodes attach to eth_call
// errors. Empty when no payload is present or it does not parse as hex.
func (e *rpcError) revertReason() string {
	if e.Data == "" {
		return ""
	}
	data, err := decodeHex(e.Data)
	if err != nil || len(data) == 0 {
		return ""
	}
	return DecodeRevert(data)
}

// call performs one JSON-RPC request.
func (c *Client) call(ctx context.Context, method string, params ...interface{}) (json.RawMessage, error) {
	if params == nil {
		params = []interface{}{}
	}
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rpcURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chain: %s: %w: %v", method, domain.ErrRPCUnavailable, err)
	}
	defer resp.Body.Close()

	var out rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("chain: %s: decode response: %w", method, err)
	}
	if out.Error != nil {
		if reason := out.Error.revertReason(); reason != "" {
			return nil, fmt.Errorf("chain: %s: %s", method, reason)
		}
		return nil, fmt.Errorf("chain: %s: %w", method, out.Error)
	}
	return out.Result, nil
}

// hexResult decodes a quoted 0x hex string result.
func hexResult(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", err
	}
	if !strings.HasPrefix(s, "0x") {
		return "", fmt.Errorf("chain: malformed hex result %q", s)
	}
	return s, nil
}

// ─── eth_* Methods ──────────────────────────────────────────────────────────

// ChainID returns the network's chain ID (eth_chainId).
func (c *Client) ChainID(ctx context.Context) (uint64, error) {
	raw, err := c.call(ctx, "eth_chainId")
	if err != nil {
		return 0, err
	}
	s, err := hexResult(raw)
	if err != nil {
		return 0, err
	}
	id, ok := new(big.Int).SetString(strings.TrimPrefix(s, "0x"), 16)
	if !ok {
		return 0, fmt.Errorf("chain: bad chain id %q", s)
	}
	return id.Uint64(), nil
}

// Code returns the contract bytecode at an address (eth_getCode, latest).
func (c *Client) Code(ctx context.Context, address string) ([]byte, error) {
	raw, err := c.call(ctx, "eth_getCode", address, "latest")
	if err != nil {
		return nil, err
	}
	s, err := hexResult(raw)
	if err != nil {
		return nil, err
	}
	return decodeHex(s)
}

// Call performs a read-only eth_call against the given contract with
// pre-encoded calldata and returns the raw return data.
func (c *Client) Call(ctx context.Context, address string, data []byte) ([]byte, error) {
	raw, err := c.call(ctx, "eth_call", map[string]string{
		"to":   address,
		"data": encodeHex(data),
	}, "latest")
	if err != nil {
		return nil, err
	}
	s, err := hexResult(raw)
	if err != nil {
		return nil, err
	}
	return decodeHex(s)
}

// CallBool calls a view function returning bool.
func (c *Client) CallBool(ctx context.Context, address, signature string, args ...[]byte) (bool, error) {
	ret, err := c.Call(ctx, address, EncodeCall(signature, args...))
	if err != nil {
		return false, err
	}
	return DecodeBool(ret)
}

// CallUint calls a view function returning uint256 (or a struct whose
// first word is the value of interest).
func (c *Client) CallUint(ctx context.Context, address, signature string, args ...[]byte) (*big.Int, error) {
	ret, err := c.Call(ctx, address, EncodeCall(signature, args...))
	if err != nil {
		return nil, err
	}
	return DecodeUint(ret)
}
