package domain

// EventKind selects the admission model for an event.
type EventKind string

const (
	EventKindFree             EventKind = "free"
	EventKindPaid             EventKind = "paid"
	EventKindApprovalRequired EventKind = "approval_required"
)

// Valid reports whether the kind is one of the known admission models.
func (k EventKind) Valid() bool {
	switch k {
	case EventKindFree, EventKindPaid, EventKindApprovalRequired:
		return true
	}
	return false
}

// Event is the ledger-owned view of a published event. The ledger address is
// the canonical primary key once the creating transaction confirms. PriceWei
// is meaningful only when Kind is EventKindPaid and must be treated as zero
// for every other kind.
type Event struct {
	Address    Address
	Name       string
	Kind       EventKind
	PriceWei   uint64
	MaxTickets int
	Organizer  Address
	Active     bool
}

// EffectivePrice returns the value a buyer must attach: the configured price
// for paid events, zero for everything else.
func (e Event) EffectivePrice() uint64 {
	if e.Kind == EventKindPaid {
		return e.PriceWei
	}
	return 0
}
