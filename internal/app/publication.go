package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/tessera-live/tessera/internal/alerts"
	"github.com/tessera-live/tessera/internal/clock"
	"github.com/tessera-live/tessera/internal/domain"
	"github.com/tessera-live/tessera/internal/ledger"
	"github.com/tessera-live/tessera/internal/media"
)

// PublicationLedger is the slice of the ledger gateway the publication saga
// uses.
type PublicationLedger interface {
	CreateEvent(ctx context.Context, p ledger.CreateEventParams) (domain.TxHandle, error)
	DeactivateEvent(ctx context.Context, event domain.Address) (domain.TxHandle, error)
	AwaitConfirmation(ctx context.Context, tx domain.TxHandle, timeout time.Duration) (ledger.Receipt, error)
}

// EventRecordStore is the off-chain metadata store boundary. CreateRecord
// either fully succeeds or fully fails; no partial writes are observable.
type EventRecordStore interface {
	CreateRecord(ctx context.Context, rec domain.EventRecord) (string, error)
}

// AlertSink receives outcomes that require operator follow-up.
type AlertSink interface {
	Publish(ctx context.Context, alert alerts.Alert) error
}

// PublishInput describes one publication intent. MaxTickets and the initial
// ledger price derive from the tiers; the tier breakdown itself is stored
// off-chain only.
type PublishInput struct {
	Name        string
	Description string
	Kind        domain.EventKind
	Tiers       []domain.TicketTier
	StartsAt    time.Time
	EndsAt      time.Time
	Location    string
	Tags        []string
	Organizer   domain.Address
	Media       []byte

	// ConfirmTimeout bounds the LedgerConfirming step only; zero means the
	// gateway default.
	ConfirmTimeout time.Duration
}

// ledgerPrice derives the single on-ledger price: the first tier with a
// positive price. Price is meaningful only for paid events; any other kind
// submits zero regardless of the tiers. Per-tier prices beyond the first
// live off-chain only.
func (in PublishInput) ledgerPrice() uint64 {
	if in.Kind != domain.EventKindPaid {
		return 0
	}
	for _, t := range in.Tiers {
		if t.PriceWei > 0 {
			return t.PriceWei
		}
	}
	return 0
}

func (in PublishInput) maxTickets() int {
	total := 0
	for _, t := range in.Tiers {
		total += t.Quantity
	}
	return total
}

// PublishStatus is the terminal state of a publication attempt.
type PublishStatus string

const (
	// StatusPublished: event confirmed on the ledger and metadata stored.
	StatusPublished PublishStatus = "published"
	// StatusFailed: no ledger side effect exists; safe to retry the intent.
	StatusFailed PublishStatus = "failed"
	// StatusIndeterminate: the create transaction was submitted but not
	// confirmed within the deadline. It may still confirm; re-running the
	// intent without checking Tx first risks a duplicate event.
	StatusIndeterminate PublishStatus = "indeterminate"
	// StatusCompensated: the event confirmed, the metadata write failed, and
	// the compensating deactivation succeeded.
	StatusCompensated PublishStatus = "compensated"
	// StatusCompensationFailed: the event confirmed, the metadata write
	// failed, and the deactivation also failed. EventAddress is live and
	// undiscoverable until an operator acts.
	StatusCompensationFailed PublishStatus = "compensation_failed"
)

// PublishResult reports the terminal state of one attempt. Tx and
// EventAddress are populated whenever they exist so indeterminate and
// compensation outcomes are actionable, never opaque.
type PublishResult struct {
	Status       PublishStatus
	EventAddress domain.Address
	RecordID     string
	ContentID    string
	Tx           domain.TxHandle
	// CancelRefused is set when the caller's context was cancelled after the
	// ledger write had been submitted; the saga runs to a terminal state
	// regardless.
	CancelRefused bool
}

// publishState names the saga steps. Transitions happen only in
// PublicationCoordinator.Publish, strictly forward.
type publishState int

const (
	stateValidating publishState = iota
	stateUploading
	stateSubmitting
	stateConfirming
	statePersisting
	stateCompensating
	stateDone
)

// PublicationCoordinator sequences an upload, a ledger-confirmed event
// creation and an off-chain metadata insert, deactivating the event when the
// final step fails. It owns no shared mutable state; concurrent attempts are
// independent.
type PublicationCoordinator struct {
	ledger   PublicationLedger
	uploader media.Uploader
	store    EventRecordStore
	alerts   AlertSink
	clock    clock.Clock
	logger   *log.Logger
	retry    retryPolicy
}

type PublicationOption func(*PublicationCoordinator)

// WithPublicationRetry overrides the backoff applied to the upload and
// metadata-persist steps.
func WithPublicationRetry(attempts int, base time.Duration) PublicationOption {
	return func(c *PublicationCoordinator) {
		c.retry = retryPolicy{attempts: attempts, base: base}.withDefaults()
	}
}

// WithPublicationLogger overrides the default logger.
func WithPublicationLogger(l *log.Logger) PublicationOption {
	return func(c *PublicationCoordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

func NewPublicationCoordinator(lg PublicationLedger, up media.Uploader, store EventRecordStore, sink AlertSink, clk clock.Clock, opts ...PublicationOption) *PublicationCoordinator {
	c := &PublicationCoordinator{
		ledger:   lg,
		uploader: up,
		store:    store,
		alerts:   sink,
		clock:    clk,
		logger:   log.Default(),
		retry:    retryPolicy{}.withDefaults(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// publishAttempt is the mutable state threaded through one saga run.
type publishAttempt struct {
	intentID  string
	input     PublishInput
	contentID string
	tx        domain.TxHandle
	address   domain.Address
	recordID  string
	// persistErr is the metadata failure that triggered compensation.
	persistErr error
}

// Publish runs the saga to a terminal state. Cancellation through ctx is
// honored with no side effects up to the moment the create transaction is
// submitted; from then on the saga detaches from ctx and always finishes,
// because a submitted transaction cannot be un-sent.
func (c *PublicationCoordinator) Publish(ctx context.Context, in PublishInput) (PublishResult, error) {
	a := &publishAttempt{intentID: uuid.NewString(), input: in}
	state := stateValidating

	// sagaCtx is swapped for a detached context at submission time.
	sagaCtx := ctx

	for state != stateDone {
		switch state {
		case stateValidating:
			if err := validatePublishInput(in); err != nil {
				return PublishResult{Status: StatusFailed}, err
			}
			state = stateUploading

		case stateUploading:
			if err := c.upload(sagaCtx, a); err != nil {
				return PublishResult{Status: StatusFailed}, err
			}
			state = stateSubmitting

		case stateSubmitting:
			if err := sagaCtx.Err(); err != nil {
				// Last point where cancellation is free of side effects.
				return PublishResult{Status: StatusFailed}, fmt.Errorf("publication cancelled before submission: %w", err)
			}
			tx, err := c.ledger.CreateEvent(sagaCtx, ledger.CreateEventParams{
				Name:       in.Name,
				Kind:       in.Kind,
				PriceWei:   in.ledgerPrice(),
				MaxTickets: in.maxTickets(),
			})
			if err != nil {
				if errors.Is(err, ledger.ErrNoSigningIdentity) {
					return PublishResult{Status: StatusFailed}, fmt.Errorf("%v: %w", err, domain.ErrPublicationRequiresWallet)
				}
				return PublishResult{Status: StatusFailed}, fmt.Errorf("submit create event: %w", err)
			}
			a.tx = tx
			sagaCtx = context.WithoutCancel(ctx)
			state = stateConfirming

		case stateConfirming:
			receipt, err := c.ledger.AwaitConfirmation(sagaCtx, a.tx, in.ConfirmTimeout)
			if err != nil {
				if errors.Is(err, ledger.ErrConfirmationTimeout) {
					// The transaction may still confirm later. Never
					// compensate here (there is no confirmed address) and
					// never resubmit (one intent must never create two
					// events). Surface the handle and alert an operator.
					c.alert(sagaCtx, alerts.Alert{
						Kind:       alerts.KindPublicationIndeterminate,
						Tx:         a.tx,
						Detail:     fmt.Sprintf("intent %s: create event unconfirmed after %s", a.intentID, in.ConfirmTimeout),
						OccurredAt: c.clock.Now(),
					})
					return c.result(ctx, a, StatusIndeterminate), &domain.IndeterminateError{
						Stage: "create event",
						Tx:    a.tx,
						Cause: err,
					}
				}
				return c.result(ctx, a, StatusFailed), fmt.Errorf("create event: %w", err)
			}
			if receipt.CreatedAddress.IsZero() {
				return c.result(ctx, a, StatusFailed), fmt.Errorf("create event confirmed without an assigned address (tx %s)", a.tx)
			}
			a.address = receipt.CreatedAddress
			state = statePersisting

		case statePersisting:
			if err := c.persist(sagaCtx, a); err != nil {
				a.persistErr = err
				state = stateCompensating
				continue
			}
			return c.result(ctx, a, StatusPublished), nil

		case stateCompensating:
			return c.compensate(ctx, sagaCtx, a)
		}
	}
	// Unreachable: every state above returns or advances.
	return PublishResult{}, fmt.Errorf("publication saga left loop in state %d", state)
}

func validatePublishInput(in PublishInput) error {
	switch {
	case in.Name == "":
		return fmt.Errorf("name is required: %w", domain.ErrInvalidPublicationInput)
	case !in.Kind.Valid():
		return fmt.Errorf("unknown event kind %q: %w", in.Kind, domain.ErrInvalidPublicationInput)
	case !in.EndsAt.After(in.StartsAt):
		return fmt.Errorf("schedule end must be after start: %w", domain.ErrInvalidPublicationInput)
	case len(in.Media) == 0:
		return fmt.Errorf("media asset is required: %w", domain.ErrInvalidPublicationInput)
	case in.Organizer.IsZero():
		return fmt.Errorf("organizer is required: %w", domain.ErrInvalidPublicationInput)
	}
	for _, t := range in.Tiers {
		if t.Quantity < 0 {
			return fmt.Errorf("tier %q has negative quantity: %w", t.Name, domain.ErrInvalidPublicationInput)
		}
	}
	if in.maxTickets() <= 0 {
		return fmt.Errorf("at least one ticket is required: %w", domain.ErrInvalidPublicationInput)
	}
	if in.Kind == domain.EventKindPaid && in.ledgerPrice() == 0 {
		return fmt.Errorf("paid event requires a positive price: %w", domain.ErrInvalidPublicationInput)
	}
	return nil
}

// upload retries transport failures; oversized payloads fail immediately.
// No ledger or store write exists yet, so exhaustion needs no compensation.
func (c *PublicationCoordinator) upload(ctx context.Context, a *publishAttempt) error {
	err := c.retry.run(ctx, c.clock,
		func(err error) bool { return errors.Is(err, domain.ErrUploadTransport) },
		func() error {
			cid, err := c.uploader.Upload(ctx, a.input.Media)
			if err != nil {
				return err
			}
			a.contentID = cid
			return nil
		})
	if err != nil {
		if errors.Is(err, domain.ErrPayloadTooLarge) {
			return err
		}
		return fmt.Errorf("%v: %w", err, domain.ErrMediaUploadFailed)
	}
	return nil
}

// persist writes the off-chain record referencing the confirmed address,
// retrying while the store is unavailable. A validation rejection is final.
func (c *PublicationCoordinator) persist(ctx context.Context, a *publishAttempt) error {
	in := a.input
	rec := domain.EventRecord{
		ID:             uuid.NewString(),
		LedgerAddress:  a.address,
		OrganizationID: in.Organizer,
		Name:           in.Name,
		Description:    in.Description,
		ContentID:      a.contentID,
		StartsAt:       in.StartsAt,
		EndsAt:         in.EndsAt,
		Location:       in.Location,
		Tags:           in.Tags,
		Tiers:          in.Tiers,
		CreatedAt:      c.clock.Now(),
	}

	err := c.retry.run(ctx, c.clock,
		func(err error) bool { return errors.Is(err, domain.ErrStoreUnavailable) },
		func() error {
			id, err := c.store.CreateRecord(ctx, rec)
			if err != nil {
				return err
			}
			a.recordID = id
			return nil
		})
	if err != nil {
		if errors.Is(err, domain.ErrValidationFailed) {
			return fmt.Errorf("%v: %w", err, domain.ErrMetadataRejected)
		}
		return fmt.Errorf("persist metadata for %s: %w", a.address, err)
	}
	return nil
}

// compensate issues exactly one deactivation for the confirmed address so no
// active event is left without discoverable metadata. Its own failure is the
// one inconsistency this system cannot repair, so it is flagged loudly, with
// the uncompensated address attached, rather than swallowed or retried
// forever.
func (c *PublicationCoordinator) compensate(ctx context.Context, sagaCtx context.Context, a *publishAttempt) (PublishResult, error) {
	tx, err := c.ledger.DeactivateEvent(sagaCtx, a.address)
	if err == nil {
		_, err = c.ledger.AwaitConfirmation(sagaCtx, tx, 0)
	}
	if err != nil {
		c.logger.Printf("publication %s: compensation failed for event %s: %v", a.intentID, a.address, err)
		c.alert(sagaCtx, alerts.Alert{
			Kind:         alerts.KindCompensationFailed,
			EventAddress: a.address,
			Tx:           tx,
			Detail:       fmt.Sprintf("intent %s: metadata write failed (%v) and deactivation failed (%v)", a.intentID, a.persistErr, err),
			OccurredAt:   c.clock.Now(),
		})
		return c.result(ctx, a, StatusCompensationFailed), &domain.CompensationFailedError{
			EventAddress: a.address,
			Tx:           tx,
			Cause:        err,
		}
	}

	c.logger.Printf("publication %s: compensated event %s after metadata failure: %v", a.intentID, a.address, a.persistErr)
	return c.result(ctx, a, StatusCompensated), fmt.Errorf("event %s deactivated after metadata failure: %w", a.address, a.persistErr)
}

// result assembles the terminal report, noting a refused cancellation when
// the caller's context died after submission.
func (c *PublicationCoordinator) result(ctx context.Context, a *publishAttempt, status PublishStatus) PublishResult {
	r := PublishResult{
		Status:       status,
		EventAddress: a.address,
		RecordID:     a.recordID,
		ContentID:    a.contentID,
		Tx:           a.tx,
	}
	if ctx.Err() != nil && !a.tx.IsZero() {
		r.CancelRefused = true
		c.logger.Printf("publication %s: %v (tx %s)", a.intentID, domain.ErrCannotCancelAfterSubmission, a.tx)
	}
	return r
}

func (c *PublicationCoordinator) alert(ctx context.Context, alert alerts.Alert) {
	if c.alerts == nil {
		return
	}
	if err := c.alerts.Publish(ctx, alert); err != nil {
		c.logger.Printf("publication alert %s not delivered: %v", alert.Kind, err)
	}
}
