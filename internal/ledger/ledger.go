// Package ledger wraps the distributed ledger behind typed read and write
// operations against the three contract roles of the platform: the event
// factory, the per-event contract, and the per-event ticket contract.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/tessera-live/tessera/internal/domain"
)

// Role names the contract interface a call targets. The transport uses it to
// select the ABI; the gateway uses it to catch calls against addresses that
// do not expose the expected interface.
type Role string

const (
	RoleFactory Role = "factory"
	RoleEvent   Role = "event"
	RoleTicket  Role = "ticket"
)

// Call is one ledger invocation. ValueWei is attached only to state-mutating
// calls that carry payment; From is the signing identity for writes.
type Call struct {
	Contract domain.Address
	Role     Role
	Function string
	Args     []any
	ValueWei uint64
	From     domain.Address
}

// Receipt is the confirmation result of a submitted transaction.
// CreatedAddress is set when the transaction deployed a new contract.
type Receipt struct {
	Tx             domain.TxHandle
	Success        bool
	CreatedAddress domain.Address
	RevertReason   string
}

// Transport is the external ledger client boundary. Submit returns as soon
// as the node accepts the transaction, before inclusion; Await blocks until
// the transaction is included or ctx expires; Read decodes a view call
// result into out.
type Transport interface {
	Submit(ctx context.Context, call Call) (domain.TxHandle, error)
	Await(ctx context.Context, tx domain.TxHandle) (Receipt, error)
	Read(ctx context.Context, call Call, out any) error
}

// Signer supplies the identity a write is signed with. The wallet is owned
// by the caller's session, never by the gateway.
type Signer interface {
	Address() domain.Address
}

var (
	// ErrNoSigningIdentity is returned before any network call when a write
	// is attempted without a signer attached.
	ErrNoSigningIdentity = errors.New("no signing identity attached")

	// ErrContractInterfaceMismatch is returned when the target address does
	// not expose the interface the role requires.
	ErrContractInterfaceMismatch = errors.New("contract interface mismatch")

	// ErrConfirmationTimeout is returned when a submitted transaction is not
	// included within the caller's deadline. The transaction may still
	// confirm later; the ledger state must not be assumed unchanged.
	ErrConfirmationTimeout = errors.New("confirmation timeout")
)

// RevertError is a confirmed transaction that the contract rejected.
type RevertError struct {
	Tx     domain.TxHandle
	Reason string
}

func (e *RevertError) Error() string {
	return fmt.Sprintf("transaction %s reverted: %s", e.Tx, e.Reason)
}
