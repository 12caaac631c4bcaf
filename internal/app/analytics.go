package app

import (
	"context"
	"fmt"

	"github.com/tessera-live/tessera/internal/domain"
)

// AnalyticsLedger is the read-only slice of the gateway analytics composes.
type AnalyticsLedger interface {
	NextTokenID(ctx context.Context, event domain.Address) (uint64, error)
	BurnedCount(ctx context.Context, event domain.Address) (uint64, error)
	UnitPrice(ctx context.Context, event domain.Address) (uint64, error)
}

// EventAnalytics is a consistent read view over one event's ledger state.
type EventAnalytics struct {
	TicketsSold     uint64
	CheckIns        uint64
	TotalRevenueWei uint64
}

// AnalyticsAggregator derives read views from ledger facts. It holds no
// state and never returns partial results: a zeroed check-in count is
// indistinguishable from "nobody came", so any failed sub-read fails the
// whole aggregate.
type AnalyticsAggregator struct {
	ledger AnalyticsLedger
}

func NewAnalyticsAggregator(lg AnalyticsLedger) *AnalyticsAggregator {
	return &AnalyticsAggregator{ledger: lg}
}

// ComputeEventAnalytics reads the sold count (next token id under
// sequential minting), the check-in count (burned tickets) and the unit
// price, then derives revenue as ticketsSold * unitPrice.
//
// The multiplication assumes one uniform price per event. Tiered pricing
// exists only off-chain and the ledger records no per-sale price, so this is
// a deliberate simplification, not an oversight: events with mixed-price
// tiers are mis-stated by exactly the off-chain tier spread.
func (a *AnalyticsAggregator) ComputeEventAnalytics(ctx context.Context, event domain.Address) (EventAnalytics, error) {
	sold, err := a.ledger.NextTokenID(ctx, event)
	if err != nil {
		return EventAnalytics{}, fmt.Errorf("tickets sold for %s: %v: %w", event, err, domain.ErrAnalyticsUnavailable)
	}
	checkIns, err := a.ledger.BurnedCount(ctx, event)
	if err != nil {
		return EventAnalytics{}, fmt.Errorf("check-ins for %s: %v: %w", event, err, domain.ErrAnalyticsUnavailable)
	}
	price, err := a.ledger.UnitPrice(ctx, event)
	if err != nil {
		return EventAnalytics{}, fmt.Errorf("unit price for %s: %v: %w", event, err, domain.ErrAnalyticsUnavailable)
	}

	return EventAnalytics{
		TicketsSold:     sold,
		CheckIns:        checkIns,
		TotalRevenueWei: sold * price,
	}, nil
}

// OrganizationAnalytics sums per-event aggregates across an organizer's
// events under the same all-or-nothing rule.
func (a *AnalyticsAggregator) OrganizationAnalytics(ctx context.Context, events []domain.Address) (EventAnalytics, error) {
	var total EventAnalytics
	for _, event := range events {
		ea, err := a.ComputeEventAnalytics(ctx, event)
		if err != nil {
			return EventAnalytics{}, err
		}
		total.TicketsSold += ea.TicketsSold
		total.CheckIns += ea.CheckIns
		total.TotalRevenueWei += ea.TotalRevenueWei
	}
	return total, nil
}
