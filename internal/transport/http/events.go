package http

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"

	"github.com/tessera-live/tessera/internal/app"
	"github.com/tessera-live/tessera/internal/domain"
)

// EventPublisher is the minimal interface needed to publish an event.
type EventPublisher interface {
	Publish(ctx context.Context, in app.PublishInput) (app.PublishResult, error)
}

// HandlePublishEvent returns an HTTP handler for the publication saga.
func HandlePublishEvent(svc EventPublisher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var req publishEventRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		media, err := base64.StdEncoding.DecodeString(req.MediaBase64)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "media must be base64")
			return
		}

		tiers := make([]domain.TicketTier, 0, len(req.Tiers))
		for _, t := range req.Tiers {
			tiers = append(tiers, domain.TicketTier{Name: t.Name, PriceWei: t.PriceWei, Quantity: t.Quantity})
		}

		result, err := svc.Publish(r.Context(), app.PublishInput{
			Name:           req.Name,
			Description:    req.Description,
			Kind:           domain.EventKind(req.Kind),
			Tiers:          tiers,
			StartsAt:       req.StartsAt,
			EndsAt:         req.EndsAt,
			Location:       req.Location,
			Tags:           req.Tags,
			Organizer:      domain.Address(req.Organizer),
			Media:          media,
			ConfirmTimeout: time.Duration(req.ConfirmTimeoutSeconds) * time.Second,
		})
		if err != nil {
			if result.Status == app.StatusCompensated {
				// Publication failed but the ledger was repaired; the caller
				// still learns which address was deactivated.
				writeErrorContext(w, http.StatusBadGateway, errorResponse{
					Error:        err.Error(),
					Code:         codeCompensated,
					Tx:           string(result.Tx),
					EventAddress: string(result.EventAddress),
				})
				return
			}
			writeDomainError(w, err)
			return
		}

		resp := publishEventResponse{
			Status:       string(result.Status),
			EventAddress: string(result.EventAddress),
			RecordID:     result.RecordID,
			ContentID:    result.ContentID,
			Tx:           string(result.Tx),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(resp)
	}
}

type publishTierRequest struct {
	Name     string `json:"name"`
	PriceWei uint64 `json:"price_wei"`
	Quantity int    `json:"quantity"`
}

type publishEventRequest struct {
	Name                  string               `json:"name"`
	Description           string               `json:"description"`
	Kind                  string               `json:"kind"`
	Tiers                 []publishTierRequest `json:"tiers"`
	StartsAt              time.Time            `json:"starts_at"`
	EndsAt                time.Time            `json:"ends_at"`
	Location              string               `json:"location"`
	Tags                  []string             `json:"tags"`
	Organizer             string               `json:"organizer"`
	MediaBase64           string               `json:"media_base64"`
	ConfirmTimeoutSeconds int                  `json:"confirm_timeout_seconds"`
}

type publishEventResponse struct {
	Status       string `json:"status"`
	EventAddress string `json:"event_address"`
	RecordID     string `json:"record_id"`
	ContentID    string `json:"content_id"`
	Tx           string `json:"tx"`
}
