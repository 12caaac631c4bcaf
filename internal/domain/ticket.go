package domain

// ResaleListing is a ticket owner's on-ledger offer. Active distinguishes a
// live offer from a cancelled or consumed one; PriceWei is meaningless when
// Active is false.
type ResaleListing struct {
	PriceWei uint64
	Active   bool
}

// TicketPosition is the ledger-owned state of one ticket, keyed by the ticket
// contract address and token id.
type TicketPosition struct {
	TicketContract Address
	TokenID        uint64
	Owner          Address
	MetadataURI    string
	Listing        *ResaleListing
}
