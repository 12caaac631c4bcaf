package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/tessera-live/tessera/internal/domain"
	"github.com/tessera-live/tessera/internal/ledger"
)

// TicketLifecycle is the minimal interface for ticket operations.
type TicketLifecycle interface {
	Purchase(ctx context.Context, event domain.Address, metadataURI string, offeredWei uint64) (ledger.Receipt, error)
	ListForResale(ctx context.Context, event domain.Address, tokenID uint64, priceWei uint64) (ledger.Receipt, error)
	BuyResale(ctx context.Context, event domain.Address, tokenID uint64, offeredWei uint64) (ledger.Receipt, error)
	CancelResale(ctx context.Context, event domain.Address, tokenID uint64) (ledger.Receipt, error)
}

// HandlePurchaseTicket handles POST /events/{addr}/tickets.
func HandlePurchaseTicket(svc TicketLifecycle) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		event, ok := eventAddress(w, r)
		if !ok {
			return
		}

		var req purchaseRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		receipt, err := svc.Purchase(r.Context(), event, req.MetadataURI, req.OfferedWei)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeReceipt(w, receipt)
	}
}

// HandleListResale handles POST /events/{addr}/tickets/{id}/resale.
func HandleListResale(svc TicketLifecycle) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		event, tokenID, ok := ticketPath(w, r)
		if !ok {
			return
		}

		var req listResaleRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		receipt, err := svc.ListForResale(r.Context(), event, tokenID, req.PriceWei)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeReceipt(w, receipt)
	}
}

// HandleBuyResale handles POST /events/{addr}/tickets/{id}/resale/purchase.
func HandleBuyResale(svc TicketLifecycle) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		event, tokenID, ok := ticketPath(w, r)
		if !ok {
			return
		}

		var req buyResaleRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		receipt, err := svc.BuyResale(r.Context(), event, tokenID, req.OfferedWei)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeReceipt(w, receipt)
	}
}

// HandleCancelResale handles DELETE /events/{addr}/tickets/{id}/resale.
func HandleCancelResale(svc TicketLifecycle) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		event, tokenID, ok := ticketPath(w, r)
		if !ok {
			return
		}

		receipt, err := svc.CancelResale(r.Context(), event, tokenID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeReceipt(w, receipt)
	}
}

type purchaseRequest struct {
	MetadataURI string `json:"metadata_uri"`
	OfferedWei  uint64 `json:"offered_wei"`
}

type listResaleRequest struct {
	PriceWei uint64 `json:"price_wei"`
}

type buyResaleRequest struct {
	OfferedWei uint64 `json:"offered_wei"`
}

type receiptResponse struct {
	Tx      string `json:"tx"`
	Success bool   `json:"success"`
}

func writeReceipt(w http.ResponseWriter, receipt ledger.Receipt) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(receiptResponse{
		Tx:      string(receipt.Tx),
		Success: receipt.Success,
	})
}
