package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/tessera-live/tessera/internal/app"
	"github.com/tessera-live/tessera/internal/domain"
)

// AnalyticsReader is the minimal interface for the analytics view.
type AnalyticsReader interface {
	ComputeEventAnalytics(ctx context.Context, event domain.Address) (app.EventAnalytics, error)
}

// HandleEventAnalytics handles GET /events/{addr}/analytics.
func HandleEventAnalytics(svc AnalyticsReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		event, ok := eventAddress(w, r)
		if !ok {
			return
		}

		analytics, err := svc.ComputeEventAnalytics(r.Context(), event)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		resp := analyticsResponse{
			TicketsSold:     analytics.TicketsSold,
			CheckIns:        analytics.CheckIns,
			TotalRevenueWei: analytics.TotalRevenueWei,
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(resp)
	}
}

type analyticsResponse struct {
	TicketsSold     uint64 `json:"tickets_sold"`
	CheckIns        uint64 `json:"check_ins"`
	TotalRevenueWei uint64 `json:"total_revenue_wei"`
}
