package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/tessera-live/tessera/internal/clock"
	"github.com/tessera-live/tessera/internal/domain"
	"github.com/tessera-live/tessera/internal/ledger"
)

// LifecycleLedger is the slice of the ledger gateway the ticket lifecycle
// uses. Every write resolves the per-event ticket contract inside the
// gateway first.
type LifecycleLedger interface {
	EventInfo(ctx context.Context, event domain.Address) (domain.Event, error)
	ResaleListing(ctx context.Context, event domain.Address, tokenID uint64) (domain.ResaleListing, error)
	BuyTicket(ctx context.Context, event domain.Address, metadataURI string, valueWei uint64) (domain.TxHandle, error)
	ListTicketForResale(ctx context.Context, event domain.Address, tokenID uint64, priceWei uint64) (domain.TxHandle, error)
	BuyResaleTicket(ctx context.Context, event domain.Address, tokenID uint64, valueWei uint64) (domain.TxHandle, error)
	CancelResale(ctx context.Context, event domain.Address, tokenID uint64) (domain.TxHandle, error)
	AwaitConfirmation(ctx context.Context, tx domain.TxHandle, timeout time.Duration) (ledger.Receipt, error)
}

// TicketLifecycleCoordinator performs primary purchases and the resale
// operations. Each operation is atomic at the ledger; this layer only
// enforces pre-submission sanity (value and price checks) so no transaction
// is wasted on a call the contract would reject.
type TicketLifecycleCoordinator struct {
	ledger LifecycleLedger
	clock  clock.Clock
	logger *log.Logger
	retry  retryPolicy

	// confirmTimeout bounds each operation's confirmation wait.
	confirmTimeout time.Duration
}

type LifecycleOption func(*TicketLifecycleCoordinator)

// WithLifecycleRetry overrides the backoff applied before a transaction
// handle exists.
func WithLifecycleRetry(attempts int, base time.Duration) LifecycleOption {
	return func(c *TicketLifecycleCoordinator) {
		c.retry = retryPolicy{attempts: attempts, base: base}.withDefaults()
	}
}

// WithConfirmTimeout overrides the confirmation wait for lifecycle writes.
func WithConfirmTimeout(d time.Duration) LifecycleOption {
	return func(c *TicketLifecycleCoordinator) {
		if d > 0 {
			c.confirmTimeout = d
		}
	}
}

// WithLifecycleLogger overrides the default logger.
func WithLifecycleLogger(l *log.Logger) LifecycleOption {
	return func(c *TicketLifecycleCoordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

func NewTicketLifecycleCoordinator(lg LifecycleLedger, clk clock.Clock, opts ...LifecycleOption) *TicketLifecycleCoordinator {
	c := &TicketLifecycleCoordinator{
		ledger: lg,
		clock:  clk,
		logger: log.Default(),
		retry:  retryPolicy{}.withDefaults(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Purchase buys a primary ticket. Paid events require the offered value to
// equal the configured price exactly; free and approval-required events
// require zero. The check runs against fresh ledger state so no transaction
// is submitted on a mismatch.
func (c *TicketLifecycleCoordinator) Purchase(ctx context.Context, event domain.Address, metadataURI string, offeredWei uint64) (ledger.Receipt, error) {
	var info domain.Event
	err := c.readWithRetry(ctx, func() error {
		var err error
		info, err = c.ledger.EventInfo(ctx, event)
		return err
	})
	if err != nil {
		return ledger.Receipt{}, fmt.Errorf("purchase precheck: %w", err)
	}

	if required := info.EffectivePrice(); offeredWei != required {
		return ledger.Receipt{}, fmt.Errorf("offered %d, event requires %d: %w", offeredWei, required, domain.ErrValueMismatch)
	}

	return c.submitAndConfirm(ctx, "purchase", func() (domain.TxHandle, error) {
		return c.ledger.BuyTicket(ctx, event, metadataURI, offeredWei)
	})
}

// ListForResale puts an owned token up for sale at a positive price.
// Ownership is enforced by the ticket contract.
func (c *TicketLifecycleCoordinator) ListForResale(ctx context.Context, event domain.Address, tokenID uint64, priceWei uint64) (ledger.Receipt, error) {
	if priceWei == 0 {
		return ledger.Receipt{}, domain.ErrInvalidResalePrice
	}
	return c.submitAndConfirm(ctx, "list for resale", func() (domain.TxHandle, error) {
		return c.ledger.ListTicketForResale(ctx, event, tokenID, priceWei)
	})
}

// BuyResale purchases a listed token. The listing is re-read immediately
// before submission to keep stale-price submissions rare; a race that slips
// through is resolved by the ledger, whose rejection surfaces as
// ErrResaleNoLongerAvailable.
func (c *TicketLifecycleCoordinator) BuyResale(ctx context.Context, event domain.Address, tokenID uint64, offeredWei uint64) (ledger.Receipt, error) {
	var listing domain.ResaleListing
	err := c.readWithRetry(ctx, func() error {
		var err error
		listing, err = c.ledger.ResaleListing(ctx, event, tokenID)
		return err
	})
	if err != nil {
		return ledger.Receipt{}, fmt.Errorf("resale precheck: %w", err)
	}

	if !listing.Active {
		return ledger.Receipt{}, domain.ErrResaleNoLongerAvailable
	}
	if offeredWei < listing.PriceWei {
		return ledger.Receipt{}, fmt.Errorf("offered %d below listed price %d: %w", offeredWei, listing.PriceWei, domain.ErrValueMismatch)
	}

	receipt, err := c.submitAndConfirm(ctx, "buy resale", func() (domain.TxHandle, error) {
		return c.ledger.BuyResaleTicket(ctx, event, tokenID, offeredWei)
	})
	if err != nil {
		var revert *ledger.RevertError
		if errors.As(err, &revert) {
			return receipt, fmt.Errorf("%v: %w", revert, domain.ErrResaleNoLongerAvailable)
		}
		return receipt, err
	}
	return receipt, nil
}

// CancelResale withdraws a listing. No precondition beyond address
// resolution; only the current owner succeeds, and the contract enforces
// that.
func (c *TicketLifecycleCoordinator) CancelResale(ctx context.Context, event domain.Address, tokenID uint64) (ledger.Receipt, error) {
	return c.submitAndConfirm(ctx, "cancel resale", func() (domain.TxHandle, error) {
		return c.ledger.CancelResale(ctx, event, tokenID)
	})
}

// readWithRetry retries view calls on transport failures; sentinel ledger
// errors (wrong interface, no signer) are final.
func (c *TicketLifecycleCoordinator) readWithRetry(ctx context.Context, fn func() error) error {
	return c.retry.run(ctx, c.clock, retryableLedgerErr, fn)
}

// submitAndConfirm retries the submission while no transaction handle
// exists; once a handle exists nothing is retried, and any failure after
// that point carries the handle so the caller can poll the real outcome.
func (c *TicketLifecycleCoordinator) submitAndConfirm(ctx context.Context, op string, submit func() (domain.TxHandle, error)) (ledger.Receipt, error) {
	var tx domain.TxHandle
	err := c.retry.run(ctx, c.clock, retryableLedgerErr, func() error {
		var err error
		tx, err = submit()
		return err
	})
	if err != nil {
		return ledger.Receipt{}, fmt.Errorf("%s: %w", op, err)
	}

	receipt, err := c.ledger.AwaitConfirmation(ctx, tx, c.confirmTimeout)
	if err != nil {
		var revert *ledger.RevertError
		if errors.As(err, &revert) {
			// A revert is a known outcome, not an unknown one.
			return receipt, fmt.Errorf("%s: %w", op, err)
		}
		c.logger.Printf("%s: tx %s outcome unknown: %v", op, tx, err)
		return receipt, &domain.SubmittedOutcomeUnknownError{Op: op, Tx: tx, Cause: err}
	}
	return receipt, nil
}

func retryableLedgerErr(err error) bool {
	switch {
	case errors.Is(err, ledger.ErrNoSigningIdentity),
		errors.Is(err, ledger.ErrContractInterfaceMismatch),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return false
	}
	return true
}
