package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tessera-live/tessera/internal/domain"
	"github.com/tessera-live/tessera/internal/ledger"
)

type fakeLifecycle struct {
	lastOp      string
	lastEvent   domain.Address
	lastTokenID uint64
	lastValue   uint64

	receipt ledger.Receipt
	err     error
}

func (f *fakeLifecycle) Purchase(_ context.Context, event domain.Address, _ string, offeredWei uint64) (ledger.Receipt, error) {
	f.lastOp, f.lastEvent, f.lastValue = "purchase", event, offeredWei
	return f.receipt, f.err
}

func (f *fakeLifecycle) ListForResale(_ context.Context, event domain.Address, tokenID, priceWei uint64) (ledger.Receipt, error) {
	f.lastOp, f.lastEvent, f.lastTokenID, f.lastValue = "list", event, tokenID, priceWei
	return f.receipt, f.err
}

func (f *fakeLifecycle) BuyResale(_ context.Context, event domain.Address, tokenID, offeredWei uint64) (ledger.Receipt, error) {
	f.lastOp, f.lastEvent, f.lastTokenID, f.lastValue = "buyResale", event, tokenID, offeredWei
	return f.receipt, f.err
}

func (f *fakeLifecycle) CancelResale(_ context.Context, event domain.Address, tokenID uint64) (ledger.Receipt, error) {
	f.lastOp, f.lastEvent, f.lastTokenID = "cancel", event, tokenID
	return f.receipt, f.err
}

func ticketMux(svc TicketLifecycle) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("POST /events/{addr}/tickets", HandlePurchaseTicket(svc))
	mux.Handle("POST /events/{addr}/tickets/{id}/resale", HandleListResale(svc))
	mux.Handle("POST /events/{addr}/tickets/{id}/resale/purchase", HandleBuyResale(svc))
	mux.Handle("DELETE /events/{addr}/tickets/{id}/resale", HandleCancelResale(svc))
	return mux
}

const ticketEventAddr = "0x1111111111111111111111111111111111111111"

func TestTicketHandlers(t *testing.T) {
	t.Parallel()

	t.Run("purchase forwards the offered value", func(t *testing.T) {
		svc := &fakeLifecycle{receipt: ledger.Receipt{Tx: "0xbuy", Success: true}}

		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/events/"+ticketEventAddr+"/tickets",
			strings.NewReader(`{"metadata_uri": "ipfs://ticket", "offered_wei": 1000}`))
		ticketMux(svc).ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
		}
		if svc.lastOp != "purchase" || svc.lastEvent != domain.Address(ticketEventAddr) || svc.lastValue != 1000 {
			t.Fatalf("unexpected call %+v", svc)
		}
		var resp receiptResponse
		if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if resp.Tx != "0xbuy" || !resp.Success {
			t.Fatalf("unexpected receipt %+v", resp)
		}
	})

	t.Run("malformed address is a 400", func(t *testing.T) {
		svc := &fakeLifecycle{}

		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/events/not-an-address/tickets",
			strings.NewReader(`{"offered_wei": 0}`))
		ticketMux(svc).ServeHTTP(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rr.Code)
		}
		if svc.lastOp != "" {
			t.Fatalf("coordinator must not be called, got %s", svc.lastOp)
		}
	})

	t.Run("value mismatch is a 409", func(t *testing.T) {
		svc := &fakeLifecycle{err: domain.ErrValueMismatch}

		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/events/"+ticketEventAddr+"/tickets",
			strings.NewReader(`{"offered_wei": 999}`))
		ticketMux(svc).ServeHTTP(rr, req)

		if rr.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rr.Code)
		}
		if resp := decodeErrorResponse(t, rr); resp.Code != codeValueMismatch {
			t.Fatalf("expected %s, got %s", codeValueMismatch, resp.Code)
		}
	})

	t.Run("resale listing parses the token id", func(t *testing.T) {
		svc := &fakeLifecycle{receipt: ledger.Receipt{Tx: "0xlist", Success: true}}

		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/events/"+ticketEventAddr+"/tickets/7/resale",
			strings.NewReader(`{"price_wei": 600}`))
		ticketMux(svc).ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
		}
		if svc.lastOp != "list" || svc.lastTokenID != 7 || svc.lastValue != 600 {
			t.Fatalf("unexpected call %+v", svc)
		}
	})

	t.Run("non-numeric token id is a 400", func(t *testing.T) {
		svc := &fakeLifecycle{}

		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/events/"+ticketEventAddr+"/tickets/seven/resale",
			strings.NewReader(`{"price_wei": 600}`))
		ticketMux(svc).ServeHTTP(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rr.Code)
		}
	})

	t.Run("zero resale price is a 400", func(t *testing.T) {
		svc := &fakeLifecycle{err: domain.ErrInvalidResalePrice}

		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/events/"+ticketEventAddr+"/tickets/7/resale",
			strings.NewReader(`{"price_wei": 0}`))
		ticketMux(svc).ServeHTTP(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rr.Code)
		}
	})

	t.Run("resale purchase of a vanished listing is a 409", func(t *testing.T) {
		svc := &fakeLifecycle{err: domain.ErrResaleNoLongerAvailable}

		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/events/"+ticketEventAddr+"/tickets/7/resale/purchase",
			strings.NewReader(`{"offered_wei": 600}`))
		ticketMux(svc).ServeHTTP(rr, req)

		if rr.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rr.Code)
		}
		if resp := decodeErrorResponse(t, rr); resp.Code != codeResaleUnavailable {
			t.Fatalf("expected %s, got %s", codeResaleUnavailable, resp.Code)
		}
	})

	t.Run("unknown outcome is a 202 carrying the handle", func(t *testing.T) {
		svc := &fakeLifecycle{err: &domain.SubmittedOutcomeUnknownError{
			Op: "buyResale", Tx: "0xresale", Cause: errors.New("confirmation timeout"),
		}}

		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/events/"+ticketEventAddr+"/tickets/7/resale/purchase",
			strings.NewReader(`{"offered_wei": 600}`))
		ticketMux(svc).ServeHTTP(rr, req)

		if rr.Code != http.StatusAccepted {
			t.Fatalf("expected 202, got %d", rr.Code)
		}
		resp := decodeErrorResponse(t, rr)
		if resp.Code != codeOutcomeUnknown || resp.Tx != "0xresale" {
			t.Fatalf("unexpected response %+v", resp)
		}
	})

	t.Run("cancel routes through DELETE", func(t *testing.T) {
		svc := &fakeLifecycle{receipt: ledger.Receipt{Tx: "0xcancel", Success: true}}

		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodDelete, "/events/"+ticketEventAddr+"/tickets/7/resale", nil)
		ticketMux(svc).ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
		}
		if svc.lastOp != "cancel" || svc.lastTokenID != 7 {
			t.Fatalf("unexpected call %+v", svc)
		}
	})
}
