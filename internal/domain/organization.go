package domain

import "time"

// Organization is the organizer profile. The ledger owns name, description
// and website; the metadata store keeps a mirrored copy for search, which
// must always be re-derivable from the ledger.
type Organization struct {
	Address     Address
	Name        string
	Description string
	Website     string
	UpdatedAt   time.Time
}
