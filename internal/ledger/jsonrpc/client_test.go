package jsonrpc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tessera-live/tessera/internal/ledger"
)

func rpcServer(t *testing.T, handle func(method string, params json.RawMessage) (any, *rpcError)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			JSONRPC string          `json:"jsonrpc"`
			ID      uint64          `json:"id"`
			Method  string          `json:"method"`
			Params  json.RawMessage `json:"params"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			return
		}
		if req.JSONRPC != "2.0" {
			t.Errorf("expected jsonrpc 2.0, got %q", req.JSONRPC)
		}

		result, rpcErr := handle(req.Method, req.Params)
		resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
		if rpcErr != nil {
			resp["error"] = rpcErr
		} else {
			resp["result"] = result
		}
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			t.Errorf("encode response: %v", err)
		}
	}))
}

func TestClient_Submit(t *testing.T) {
	t.Parallel()

	srv := rpcServer(t, func(method string, params json.RawMessage) (any, *rpcError) {
		if method != methodSubmit {
			t.Errorf("expected %s, got %s", methodSubmit, method)
		}
		var call callParams
		if err := json.Unmarshal(params, &call); err != nil {
			t.Errorf("decode params: %v", err)
		}
		if call.Contract != "0xfac" || call.Function != "createEvent" || call.Value != 0 {
			t.Errorf("unexpected call params %+v", call)
		}
		return "0xtx42", nil
	})
	defer srv.Close()

	c := New(srv.URL)
	tx, err := c.Submit(context.Background(), ledger.Call{
		Contract: "0xfac",
		Role:     ledger.RoleFactory,
		Function: "createEvent",
		Args:     []any{"Mainnet Live"},
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if tx != "0xtx42" {
		t.Fatalf("expected 0xtx42, got %s", tx)
	}
}

func TestClient_Read(t *testing.T) {
	t.Parallel()

	t.Run("decodes the result into out", func(t *testing.T) {
		srv := rpcServer(t, func(method string, _ json.RawMessage) (any, *rpcError) {
			if method != methodRead {
				t.Errorf("expected %s, got %s", methodRead, method)
			}
			return "0x71c0000000000000000000000000000000000000", nil
		})
		defer srv.Close()

		c := New(srv.URL)
		var addr string
		if err := c.Read(context.Background(), ledger.Call{Function: "ticketContract"}, &addr); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if addr != "0x71c0000000000000000000000000000000000000" {
			t.Fatalf("unexpected result %q", addr)
		}
	})

	t.Run("interface mismatch code maps to the sentinel", func(t *testing.T) {
		srv := rpcServer(t, func(string, json.RawMessage) (any, *rpcError) {
			return nil, &rpcError{Code: codeInterfaceMismatch, Message: "no such interface"}
		})
		defer srv.Close()

		c := New(srv.URL)
		err := c.Read(context.Background(), ledger.Call{Function: "eventInfo"}, &struct{}{})
		if !errors.Is(err, ledger.ErrContractInterfaceMismatch) {
			t.Fatalf("expected ErrContractInterfaceMismatch, got %v", err)
		}
	})

	t.Run("other rpc errors keep their code", func(t *testing.T) {
		srv := rpcServer(t, func(string, json.RawMessage) (any, *rpcError) {
			return nil, &rpcError{Code: -32000, Message: "node busy"}
		})
		defer srv.Close()

		c := New(srv.URL)
		err := c.Read(context.Background(), ledger.Call{Function: "eventInfo"}, &struct{}{})
		var rpcErr *rpcError
		if !errors.As(err, &rpcErr) {
			t.Fatalf("expected rpcError, got %v", err)
		}
		if rpcErr.Code != -32000 {
			t.Fatalf("expected code -32000, got %d", rpcErr.Code)
		}
	})

	t.Run("non-200 status is an error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		c := New(srv.URL)
		if err := c.Read(context.Background(), ledger.Call{Function: "eventInfo"}, &struct{}{}); err == nil {
			t.Fatalf("expected error on status 502")
		}
	})
}

func TestClient_Await(t *testing.T) {
	t.Parallel()

	t.Run("polls until the receipt appears", func(t *testing.T) {
		var calls atomic.Int64
		srv := rpcServer(t, func(method string, _ json.RawMessage) (any, *rpcError) {
			if method != methodAwait {
				t.Errorf("expected %s, got %s", methodAwait, method)
			}
			if calls.Add(1) < 3 {
				// Not yet included.
				return receiptPayload{}, nil
			}
			return receiptPayload{Tx: "0xtx42", Success: true, CreatedAddress: "0xe0e"}, nil
		})
		defer srv.Close()

		c := New(srv.URL, WithPollInterval(time.Millisecond))
		receipt, err := c.Await(context.Background(), "0xtx42")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !receipt.Success || receipt.Tx != "0xtx42" || receipt.CreatedAddress != "0xe0e" {
			t.Fatalf("unexpected receipt %+v", receipt)
		}
		if calls.Load() != 3 {
			t.Fatalf("expected 3 polls, got %d", calls.Load())
		}
	})

	t.Run("returns the context error when the deadline passes", func(t *testing.T) {
		srv := rpcServer(t, func(string, json.RawMessage) (any, *rpcError) {
			return receiptPayload{}, nil
		})
		defer srv.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		c := New(srv.URL, WithPollInterval(5*time.Millisecond))
		_, err := c.Await(ctx, "0xtx42")
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("expected DeadlineExceeded, got %v", err)
		}
	})

	t.Run("revert reason is preserved", func(t *testing.T) {
		srv := rpcServer(t, func(string, json.RawMessage) (any, *rpcError) {
			return receiptPayload{Tx: "0xtx42", Success: false, RevertReason: "sold out"}, nil
		})
		defer srv.Close()

		c := New(srv.URL)
		receipt, err := c.Await(context.Background(), "0xtx42")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if receipt.Success || receipt.RevertReason != "sold out" {
			t.Fatalf("unexpected receipt %+v", receipt)
		}
	})
}
