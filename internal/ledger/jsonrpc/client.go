// Package jsonrpc implements the ledger transport over an HTTP JSON-RPC 2.0
// endpoint exposed by a platform node.
package jsonrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/tessera-live/tessera/internal/domain"
	"github.com/tessera-live/tessera/internal/ledger"
)

const (
	methodSubmit = "ledger_submitCall"
	methodAwait  = "ledger_awaitReceipt"
	methodRead   = "ledger_readCall"

	// codeInterfaceMismatch is the node's error code for a call against an
	// address that does not expose the requested role interface.
	codeInterfaceMismatch = -32010
)

// Client speaks JSON-RPC 2.0 to a ledger node. It implements
// ledger.Transport.
type Client struct {
	endpoint     string
	http         *http.Client
	pollInterval time.Duration
	nextID       atomic.Uint64
}

type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithPollInterval overrides how often Await re-checks for a receipt.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

func New(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint:     endpoint,
		http:         &http.Client{Timeout: 30 * time.Second},
		pollInterval: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

type response struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

type callParams struct {
	Contract string `json:"contract"`
	Role     string `json:"role"`
	Function string `json:"function"`
	Args     []any  `json:"args,omitempty"`
	Value    uint64 `json:"value,omitempty"`
	From     string `json:"from,omitempty"`
}

func encodeCall(call ledger.Call) callParams {
	return callParams{
		Contract: string(call.Contract),
		Role:     string(call.Role),
		Function: call.Function,
		Args:     call.Args,
		Value:    call.ValueWei,
		From:     string(call.From),
	}
}

func (c *Client) Submit(ctx context.Context, call ledger.Call) (domain.TxHandle, error) {
	var tx string
	if err := c.invoke(ctx, methodSubmit, encodeCall(call), &tx); err != nil {
		return "", err
	}
	return domain.TxHandle(tx), nil
}

type receiptPayload struct {
	Tx             string `json:"tx"`
	Success        bool   `json:"success"`
	CreatedAddress string `json:"createdAddress,omitempty"`
	RevertReason   string `json:"revertReason,omitempty"`
}

// Await polls the node's receipt method until inclusion or ctx expiry.
// Inclusion latency routinely exceeds a sane per-request timeout, so this
// polls with short requests instead of one long-lived call.
func (c *Client) Await(ctx context.Context, tx domain.TxHandle) (ledger.Receipt, error) {
	var p receiptPayload
	for {
		err := c.invoke(ctx, methodAwait, map[string]string{"tx": string(tx)}, &p)
		if err != nil {
			return ledger.Receipt{}, err
		}
		if p.Tx != "" {
			break
		}
		// Empty receipt means "not yet included".
		t := time.NewTimer(c.pollInterval)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return ledger.Receipt{}, ctx.Err()
		}
	}
	return ledger.Receipt{
		Tx:             domain.TxHandle(p.Tx),
		Success:        p.Success,
		CreatedAddress: domain.Address(p.CreatedAddress),
		RevertReason:   p.RevertReason,
	}, nil
}

func (c *Client) Read(ctx context.Context, call ledger.Call, out any) error {
	return c.invoke(ctx, methodRead, encodeCall(call), out)
}

func (c *Client) invoke(ctx context.Context, method string, params, out any) error {
	body, err := json.Marshal(request{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: unexpected status %d", method, resp.StatusCode)
	}

	var rpcResp response
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	if rpcResp.Error != nil {
		if rpcResp.Error.Code == codeInterfaceMismatch {
			return fmt.Errorf("%s: %w", method, ledger.ErrContractInterfaceMismatch)
		}
		return fmt.Errorf("%s: %w", method, rpcResp.Error)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(rpcResp.Result, out); err != nil {
		return fmt.Errorf("decode %s result: %w", method, err)
	}
	return nil
}
