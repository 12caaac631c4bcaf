package domain

import "time"

// TicketTier is an off-chain pricing tier. Tiers exist only in the metadata
// store; on the ledger they collapse into a single max ticket count and one
// initial price.
type TicketTier struct {
	Name     string
	PriceWei uint64
	Quantity int
}

// EventRecord is the off-chain, searchable side of an event. LedgerAddress is
// empty only while the creating transaction is unconfirmed; a stored record
// always references a confirmed event.
type EventRecord struct {
	ID             string
	LedgerAddress  Address
	OrganizationID Address
	Name           string
	Description    string
	ContentID      string
	StartsAt       time.Time
	EndsAt         time.Time
	Location       string
	Tags           []string
	Tiers          []TicketTier
	Delisted       bool
	CreatedAt      time.Time
}

// MaxTickets sums the tier quantities; this is the value the ledger event is
// created with.
func (r EventRecord) MaxTickets() int {
	total := 0
	for _, t := range r.Tiers {
		total += t.Quantity
	}
	return total
}
