package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tessera-live/tessera/internal/domain"
	"github.com/tessera-live/tessera/internal/ledger"
)

const (
	codeMethodNotAllowed        = "method_not_allowed"
	codeNotFound                = "not_found"
	codeInvalidRequestBody      = "invalid_request_body"
	codeInvalidAddress          = "invalid_address"
	codeInvalidPublication      = "invalid_publication_input"
	codePublicationNeedsWallet  = "publication_requires_wallet"
	codeMediaUploadFailed       = "media_upload_failed"
	codePayloadTooLarge         = "payload_too_large"
	codePublicationIndetermined = "publication_indeterminate"
	codeCompensated             = "event_compensated"
	codeCompensationFailed      = "compensation_failed"
	codeValueMismatch           = "value_mismatch"
	codeInvalidResalePrice      = "invalid_resale_price"
	codeResaleUnavailable       = "resale_no_longer_available"
	codeOutcomeUnknown          = "submitted_outcome_unknown"
	codeAnalyticsUnavailable    = "analytics_unavailable"
	codeEventNotFound           = "event_not_found"
	codeTicketNotFound          = "ticket_not_found"
	codeOrganizationNotFound    = "organization_not_found"
	codeValidationFailed        = "validation_failed"
	codeStoreUnavailable        = "store_unavailable"
	codeInternalError           = "internal_error"
)

// errorResponse carries the transaction handle and event address whenever
// they exist: indeterminate and compensation outcomes need follow-up action,
// so "something went wrong" is never enough.
type errorResponse struct {
	Error        string `json:"error"`
	Code         string `json:"code"`
	Tx           string `json:"tx,omitempty"`
	EventAddress string `json:"event_address,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeErrorContext(w, status, errorResponse{Error: msg, Code: code})
}

func writeErrorContext(w http.ResponseWriter, status int, resp errorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(resp)
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

// writeDomainError maps coordinator failures onto stable wire codes.
func writeDomainError(w http.ResponseWriter, err error) {
	var (
		indeterminate *domain.IndeterminateError
		compFailed    *domain.CompensationFailedError
		unknown       *domain.SubmittedOutcomeUnknownError
	)
	switch {
	case errors.As(err, &indeterminate):
		writeErrorContext(w, http.StatusAccepted, errorResponse{
			Error: err.Error(),
			Code:  codePublicationIndetermined,
			Tx:    string(indeterminate.Tx),
		})
	case errors.As(err, &compFailed):
		writeErrorContext(w, http.StatusInternalServerError, errorResponse{
			Error:        err.Error(),
			Code:         codeCompensationFailed,
			Tx:           string(compFailed.Tx),
			EventAddress: string(compFailed.EventAddress),
		})
	case errors.As(err, &unknown):
		writeErrorContext(w, http.StatusAccepted, errorResponse{
			Error: err.Error(),
			Code:  codeOutcomeUnknown,
			Tx:    string(unknown.Tx),
		})
	case errors.Is(err, domain.ErrInvalidPublicationInput):
		writeError(w, http.StatusBadRequest, codeInvalidPublication, err.Error())
	case errors.Is(err, domain.ErrPublicationRequiresWallet), errors.Is(err, ledger.ErrNoSigningIdentity):
		writeError(w, http.StatusUnauthorized, codePublicationNeedsWallet, err.Error())
	case errors.Is(err, domain.ErrPayloadTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, codePayloadTooLarge, err.Error())
	case errors.Is(err, domain.ErrMediaUploadFailed):
		writeError(w, http.StatusBadGateway, codeMediaUploadFailed, err.Error())
	case errors.Is(err, domain.ErrValueMismatch):
		writeError(w, http.StatusConflict, codeValueMismatch, err.Error())
	case errors.Is(err, domain.ErrInvalidResalePrice):
		writeError(w, http.StatusBadRequest, codeInvalidResalePrice, err.Error())
	case errors.Is(err, domain.ErrResaleNoLongerAvailable):
		writeError(w, http.StatusConflict, codeResaleUnavailable, err.Error())
	case errors.Is(err, domain.ErrAnalyticsUnavailable):
		writeError(w, http.StatusServiceUnavailable, codeAnalyticsUnavailable, err.Error())
	case errors.Is(err, domain.ErrEventNotFound), errors.Is(err, domain.ErrRecordNotFound):
		writeError(w, http.StatusNotFound, codeEventNotFound, err.Error())
	case errors.Is(err, domain.ErrTicketNotFound):
		writeError(w, http.StatusNotFound, codeTicketNotFound, err.Error())
	case errors.Is(err, domain.ErrOrganizationNotFound):
		writeError(w, http.StatusNotFound, codeOrganizationNotFound, err.Error())
	case errors.Is(err, domain.ErrValidationFailed):
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
	case errors.Is(err, domain.ErrStoreUnavailable):
		writeError(w, http.StatusServiceUnavailable, codeStoreUnavailable, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}
