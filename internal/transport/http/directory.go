package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/tessera-live/tessera/internal/domain"
	"github.com/tessera-live/tessera/internal/ledger"
)

// DirectoryReader is the read surface: records, profiles, ticket positions.
type DirectoryReader interface {
	GetEvent(ctx context.Context, event domain.Address) (domain.EventRecord, error)
	ListOrganizationEvents(ctx context.Context, org domain.Address) ([]domain.EventRecord, error)
	OrganizationProfile(ctx context.Context, organizer domain.Address) (domain.Organization, error)
	UpdateOrganizationProfile(ctx context.Context, org domain.Organization) (ledger.Receipt, error)
	TicketInfo(ctx context.Context, event domain.Address, tokenID uint64) (domain.TicketPosition, error)
}

// HandleGetEvent handles GET /events/{addr}.
func HandleGetEvent(svc DirectoryReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		event, ok := eventAddress(w, r)
		if !ok {
			return
		}

		rec, err := svc.GetEvent(r.Context(), event)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, eventRecordToResponse(rec))
	}
}

// HandleListOrganizationEvents handles GET /organizations/{addr}/events.
func HandleListOrganizationEvents(svc DirectoryReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		org, ok := organizationAddress(w, r)
		if !ok {
			return
		}

		records, err := svc.ListOrganizationEvents(r.Context(), org)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		resp := make([]eventRecordResponse, 0, len(records))
		for _, rec := range records {
			resp = append(resp, eventRecordToResponse(rec))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// HandleGetOrganization handles GET /organizations/{addr}.
func HandleGetOrganization(svc DirectoryReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		org, ok := organizationAddress(w, r)
		if !ok {
			return
		}

		profile, err := svc.OrganizationProfile(r.Context(), org)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, organizationResponse{
			Address:     string(profile.Address),
			Name:        profile.Name,
			Description: profile.Description,
			Website:     profile.Website,
			UpdatedAt:   profile.UpdatedAt,
		})
	}
}

// HandleUpdateOrganization handles PUT /organizations/{addr}.
func HandleUpdateOrganization(svc DirectoryReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		org, ok := organizationAddress(w, r)
		if !ok {
			return
		}

		var req updateOrganizationRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		receipt, err := svc.UpdateOrganizationProfile(r.Context(), domain.Organization{
			Address:     org,
			Name:        req.Name,
			Description: req.Description,
			Website:     req.Website,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeReceipt(w, receipt)
	}
}

// HandleTicketInfo handles GET /events/{addr}/tickets/{id}.
func HandleTicketInfo(svc DirectoryReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		event, tokenID, ok := ticketPath(w, r)
		if !ok {
			return
		}

		pos, err := svc.TicketInfo(r.Context(), event, tokenID)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		resp := ticketPositionResponse{
			TicketContract: string(pos.TicketContract),
			TokenID:        pos.TokenID,
			Owner:          string(pos.Owner),
			MetadataURI:    pos.MetadataURI,
		}
		if pos.Listing != nil {
			resp.Listing = &resaleListingResponse{
				PriceWei: pos.Listing.PriceWei,
				Active:   pos.Listing.Active,
			}
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// organizationAddress extracts and sanity-checks the {addr} path value on
// organization-scoped routes.
func organizationAddress(w http.ResponseWriter, r *http.Request) (domain.Address, bool) {
	addr := domain.Address(r.PathValue("addr"))
	if !addr.Valid() {
		writeError(w, http.StatusBadRequest, codeInvalidAddress, "invalid organization address")
		return "", false
	}
	return addr, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type tierResponse struct {
	Name     string `json:"name"`
	PriceWei uint64 `json:"price_wei"`
	Quantity int    `json:"quantity"`
}

type eventRecordResponse struct {
	ID            string         `json:"id"`
	LedgerAddress string         `json:"ledger_address"`
	Organization  string         `json:"organization"`
	Name          string         `json:"name"`
	Description   string         `json:"description"`
	ContentID     string         `json:"content_id"`
	StartsAt      time.Time      `json:"starts_at"`
	EndsAt        time.Time      `json:"ends_at"`
	Location      string         `json:"location"`
	Tags          []string       `json:"tags"`
	Tiers         []tierResponse `json:"tiers"`
	Delisted      bool           `json:"delisted"`
	CreatedAt     time.Time      `json:"created_at"`
}

func eventRecordToResponse(rec domain.EventRecord) eventRecordResponse {
	tiers := make([]tierResponse, 0, len(rec.Tiers))
	for _, t := range rec.Tiers {
		tiers = append(tiers, tierResponse{Name: t.Name, PriceWei: t.PriceWei, Quantity: t.Quantity})
	}
	return eventRecordResponse{
		ID:            rec.ID,
		LedgerAddress: string(rec.LedgerAddress),
		Organization:  string(rec.OrganizationID),
		Name:          rec.Name,
		Description:   rec.Description,
		ContentID:     rec.ContentID,
		StartsAt:      rec.StartsAt,
		EndsAt:        rec.EndsAt,
		Location:      rec.Location,
		Tags:          rec.Tags,
		Tiers:         tiers,
		Delisted:      rec.Delisted,
		CreatedAt:     rec.CreatedAt,
	}
}

type organizationResponse struct {
	Address     string    `json:"address"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Website     string    `json:"website"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type updateOrganizationRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Website     string `json:"website"`
}

type resaleListingResponse struct {
	PriceWei uint64 `json:"price_wei"`
	Active   bool   `json:"active"`
}

type ticketPositionResponse struct {
	TicketContract string                 `json:"ticket_contract"`
	TokenID        uint64                 `json:"token_id"`
	Owner          string                 `json:"owner"`
	MetadataURI    string                 `json:"metadata_uri"`
	Listing        *resaleListingResponse `json:"listing,omitempty"`
}
