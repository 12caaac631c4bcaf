package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tessera-live/tessera/internal/domain"
	"github.com/tessera-live/tessera/internal/ledger"
)

type fakeDirectory struct {
	record  domain.EventRecord
	list    []domain.EventRecord
	org     domain.Organization
	orgIn   domain.Organization
	pos     domain.TicketPosition
	receipt ledger.Receipt
	err     error
}

func (f *fakeDirectory) GetEvent(_ context.Context, _ domain.Address) (domain.EventRecord, error) {
	return f.record, f.err
}

func (f *fakeDirectory) ListOrganizationEvents(_ context.Context, _ domain.Address) ([]domain.EventRecord, error) {
	return f.list, f.err
}

func (f *fakeDirectory) OrganizationProfile(_ context.Context, _ domain.Address) (domain.Organization, error) {
	return f.org, f.err
}

func (f *fakeDirectory) UpdateOrganizationProfile(_ context.Context, org domain.Organization) (ledger.Receipt, error) {
	f.orgIn = org
	return f.receipt, f.err
}

func (f *fakeDirectory) TicketInfo(_ context.Context, _ domain.Address, _ uint64) (domain.TicketPosition, error) {
	return f.pos, f.err
}

func directoryMux(svc DirectoryReader) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("GET /events/{addr}", HandleGetEvent(svc))
	mux.Handle("GET /events/{addr}/tickets/{id}", HandleTicketInfo(svc))
	mux.Handle("GET /organizations/{addr}", HandleGetOrganization(svc))
	mux.Handle("PUT /organizations/{addr}", HandleUpdateOrganization(svc))
	mux.Handle("GET /organizations/{addr}/events", HandleListOrganizationEvents(svc))
	return mux
}

const dirOrgAddr = "0x2222222222222222222222222222222222222222"

func TestDirectoryHandlers(t *testing.T) {
	t.Parallel()

	t.Run("get event returns the record with tiers", func(t *testing.T) {
		svc := &fakeDirectory{record: domain.EventRecord{
			ID:            "rec-1",
			LedgerAddress: domain.Address(ticketEventAddr),
			Name:          "Mainnet Live",
			Tiers:         []domain.TicketTier{{Name: "general", PriceWei: 1000, Quantity: 100}},
		}}

		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/events/"+ticketEventAddr, nil)
		directoryMux(svc).ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
		var resp eventRecordResponse
		if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if resp.ID != "rec-1" || len(resp.Tiers) != 1 || resp.Tiers[0].PriceWei != 1000 {
			t.Fatalf("unexpected response %+v", resp)
		}
	})

	t.Run("unknown event is a 404", func(t *testing.T) {
		svc := &fakeDirectory{err: domain.ErrEventNotFound}

		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/events/"+ticketEventAddr, nil)
		directoryMux(svc).ServeHTTP(rr, req)

		if rr.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rr.Code)
		}
		if resp := decodeErrorResponse(t, rr); resp.Code != codeEventNotFound {
			t.Fatalf("expected %s, got %s", codeEventNotFound, resp.Code)
		}
	})

	t.Run("organization event list round-trips", func(t *testing.T) {
		svc := &fakeDirectory{list: []domain.EventRecord{{ID: "rec-1"}, {ID: "rec-2"}}}

		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/organizations/"+dirOrgAddr+"/events", nil)
		directoryMux(svc).ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
		var resp []eventRecordResponse
		if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if len(resp) != 2 {
			t.Fatalf("expected 2 records, got %d", len(resp))
		}
	})

	t.Run("store outage on list is a 503", func(t *testing.T) {
		svc := &fakeDirectory{err: domain.ErrStoreUnavailable}

		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/organizations/"+dirOrgAddr+"/events", nil)
		directoryMux(svc).ServeHTTP(rr, req)

		if rr.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected 503, got %d", rr.Code)
		}
	})

	t.Run("organization profile round-trips", func(t *testing.T) {
		svc := &fakeDirectory{org: domain.Organization{
			Address:   domain.Address(dirOrgAddr),
			Name:      "Tessera Collective",
			Website:   "https://tessera.example",
			UpdatedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		}}

		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/organizations/"+dirOrgAddr, nil)
		directoryMux(svc).ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
		var resp organizationResponse
		if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if resp.Name != "Tessera Collective" || resp.Address != dirOrgAddr {
			t.Fatalf("unexpected response %+v", resp)
		}
	})

	t.Run("unknown organization is a 404", func(t *testing.T) {
		svc := &fakeDirectory{err: domain.ErrOrganizationNotFound}

		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/organizations/"+dirOrgAddr, nil)
		directoryMux(svc).ServeHTTP(rr, req)

		if rr.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rr.Code)
		}
		if resp := decodeErrorResponse(t, rr); resp.Code != codeOrganizationNotFound {
			t.Fatalf("expected %s, got %s", codeOrganizationNotFound, resp.Code)
		}
	})

	t.Run("profile update forwards the path address", func(t *testing.T) {
		svc := &fakeDirectory{receipt: ledger.Receipt{Tx: "0xorg", Success: true}}

		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPut, "/organizations/"+dirOrgAddr,
			strings.NewReader(`{"name": "Tessera Collective", "description": "", "website": "https://tessera.example"}`))
		directoryMux(svc).ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
		}
		if svc.orgIn.Address != domain.Address(dirOrgAddr) || svc.orgIn.Name != "Tessera Collective" {
			t.Fatalf("unexpected input %+v", svc.orgIn)
		}
	})

	t.Run("rejected profile is a 400", func(t *testing.T) {
		svc := &fakeDirectory{err: domain.ErrValidationFailed}

		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPut, "/organizations/"+dirOrgAddr,
			strings.NewReader(`{"name": ""}`))
		directoryMux(svc).ServeHTTP(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rr.Code)
		}
		if resp := decodeErrorResponse(t, rr); resp.Code != codeValidationFailed {
			t.Fatalf("expected %s, got %s", codeValidationFailed, resp.Code)
		}
	})

	t.Run("ticket position includes the live listing", func(t *testing.T) {
		svc := &fakeDirectory{pos: domain.TicketPosition{
			TicketContract: "0x7777777777777777777777777777777777777777",
			TokenID:        7,
			Owner:          "0x5555555555555555555555555555555555555555",
			MetadataURI:    "ipfs://ticket/7",
			Listing:        &domain.ResaleListing{PriceWei: 600, Active: true},
		}}

		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/events/"+ticketEventAddr+"/tickets/7", nil)
		directoryMux(svc).ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
		var resp ticketPositionResponse
		if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if resp.TokenID != 7 || resp.Listing == nil || resp.Listing.PriceWei != 600 {
			t.Fatalf("unexpected response %+v", resp)
		}
	})

	t.Run("unknown ticket is a 404", func(t *testing.T) {
		svc := &fakeDirectory{err: domain.ErrTicketNotFound}

		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/events/"+ticketEventAddr+"/tickets/7", nil)
		directoryMux(svc).ServeHTTP(rr, req)

		if rr.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rr.Code)
		}
		if resp := decodeErrorResponse(t, rr); resp.Code != codeTicketNotFound {
			t.Fatalf("expected %s, got %s", codeTicketNotFound, resp.Code)
		}
	})
}
