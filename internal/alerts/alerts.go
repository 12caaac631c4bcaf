// Package alerts carries outcomes that need operator follow-up out of the
// request path: publications whose ledger outcome is unknown, and failed
// compensations that leave an active event with no metadata record.
package alerts

import (
	"time"

	"github.com/tessera-live/tessera/internal/domain"
)

type Kind string

const (
	KindPublicationIndeterminate Kind = "publication.indeterminate"
	KindCompensationFailed       Kind = "compensation.failed"
)

// Alert is the message published to the operator queue. It always carries
// enough context (address, transaction handle) to act on, never just a
// message string.
type Alert struct {
	Kind         Kind            `json:"kind"`
	EventAddress domain.Address  `json:"event_address,omitempty"`
	Tx           domain.TxHandle `json:"tx,omitempty"`
	Detail       string          `json:"detail"`
	OccurredAt   time.Time       `json:"occurred_at"`
}
