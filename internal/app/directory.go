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

// DirectoryLedger is the slice of the ledger gateway the directory uses:
// ledger-authoritative reads plus the organizer profile mutation.
type DirectoryLedger interface {
	Organization(ctx context.Context, organizer domain.Address) (domain.Organization, error)
	UpdateOrganization(ctx context.Context, org domain.Organization) (domain.TxHandle, error)
	AwaitConfirmation(ctx context.Context, tx domain.TxHandle, timeout time.Duration) (ledger.Receipt, error)
	TicketContractAddress(ctx context.Context, event domain.Address) (domain.Address, error)
	TicketOwner(ctx context.Context, event domain.Address, tokenID uint64) (domain.Address, error)
	TokenURI(ctx context.Context, event domain.Address, tokenID uint64) (string, error)
	ResaleListing(ctx context.Context, event domain.Address, tokenID uint64) (domain.ResaleListing, error)
}

// EventRecordReader is the read side of the metadata store.
type EventRecordReader interface {
	GetByLedgerAddress(ctx context.Context, addr domain.Address) (domain.EventRecord, error)
	ListByOrganization(ctx context.Context, org domain.Address) ([]domain.EventRecord, error)
}

// OrganizationStore mirrors organizer profiles for search. Rows must always
// be re-derivable from the ledger.
type OrganizationStore interface {
	Upsert(ctx context.Context, org domain.Organization) error
	GetByAddress(ctx context.Context, addr domain.Address) (domain.Organization, error)
}

// Directory serves the read surface of the platform: event records, organizer
// profiles and per-ticket positions. The metadata store answers searches; the
// ledger stays authoritative, so a miss in the mirror falls back to it.
type Directory struct {
	ledger  DirectoryLedger
	records EventRecordReader
	orgs    OrganizationStore
	clock   clock.Clock
	logger  *log.Logger
	retry   retryPolicy

	confirmTimeout time.Duration
}

type DirectoryOption func(*Directory)

// WithDirectoryRetry overrides the backoff applied to store and ledger reads.
func WithDirectoryRetry(attempts int, base time.Duration) DirectoryOption {
	return func(d *Directory) {
		d.retry = retryPolicy{attempts: attempts, base: base}.withDefaults()
	}
}

// WithDirectoryConfirmTimeout overrides the confirmation wait for the profile
// mutation.
func WithDirectoryConfirmTimeout(t time.Duration) DirectoryOption {
	return func(d *Directory) {
		if t > 0 {
			d.confirmTimeout = t
		}
	}
}

// WithDirectoryLogger overrides the default logger.
func WithDirectoryLogger(l *log.Logger) DirectoryOption {
	return func(d *Directory) {
		if l != nil {
			d.logger = l
		}
	}
}

func NewDirectory(lg DirectoryLedger, records EventRecordReader, orgs OrganizationStore, clk clock.Clock, opts ...DirectoryOption) *Directory {
	d := &Directory{
		ledger:  lg,
		records: records,
		orgs:    orgs,
		clock:   clk,
		logger:  log.Default(),
		retry:   retryPolicy{}.withDefaults(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// GetEvent returns the off-chain record of a published event.
func (d *Directory) GetEvent(ctx context.Context, event domain.Address) (domain.EventRecord, error) {
	var rec domain.EventRecord
	err := d.retry.run(ctx, d.clock, retryableStoreErr, func() error {
		var err error
		rec, err = d.records.GetByLedgerAddress(ctx, event)
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return domain.EventRecord{}, fmt.Errorf("event %s: %w", event, domain.ErrEventNotFound)
		}
		return domain.EventRecord{}, fmt.Errorf("get event: %w", err)
	}
	return rec, nil
}

// ListOrganizationEvents returns all records published by one organizer,
// ordered by start time.
func (d *Directory) ListOrganizationEvents(ctx context.Context, org domain.Address) ([]domain.EventRecord, error) {
	var records []domain.EventRecord
	err := d.retry.run(ctx, d.clock, retryableStoreErr, func() error {
		var err error
		records, err = d.records.ListByOrganization(ctx, org)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list organization events: %w", err)
	}
	return records, nil
}

// OrganizationProfile returns the organizer profile, preferring the mirror
// and falling back to the ledger on a miss. A ledger hit refreshes the
// mirror so the next read is local.
func (d *Directory) OrganizationProfile(ctx context.Context, organizer domain.Address) (domain.Organization, error) {
	org, err := d.orgs.GetByAddress(ctx, organizer)
	if err == nil {
		return org, nil
	}
	if !errors.Is(err, domain.ErrOrganizationNotFound) && !errors.Is(err, domain.ErrStoreUnavailable) {
		return domain.Organization{}, fmt.Errorf("organization profile: %w", err)
	}

	err = d.retry.run(ctx, d.clock, retryableLedgerErr, func() error {
		var rerr error
		org, rerr = d.ledger.Organization(ctx, organizer)
		return rerr
	})
	if err != nil {
		return domain.Organization{}, fmt.Errorf("organization profile: %w", err)
	}
	if org.Name == "" {
		return domain.Organization{}, fmt.Errorf("organization %s: %w", organizer, domain.ErrOrganizationNotFound)
	}

	org.UpdatedAt = d.clock.Now()
	if uerr := d.orgs.Upsert(ctx, org); uerr != nil {
		// The mirror is rebuildable from the ledger, so a failed refresh
		// never fails the read.
		d.logger.Printf("organization mirror refresh failed organizer=%s: %v", organizer, uerr)
	}
	return org, nil
}

// UpdateOrganizationProfile writes the profile to the ledger and, once
// confirmed, refreshes the mirror. The ledger write follows the lifecycle
// rules: retried only before a handle exists, unknown outcomes surface the
// handle.
func (d *Directory) UpdateOrganizationProfile(ctx context.Context, org domain.Organization) (ledger.Receipt, error) {
	if org.Address.IsZero() || org.Name == "" {
		return ledger.Receipt{}, domain.ErrValidationFailed
	}

	var tx domain.TxHandle
	err := d.retry.run(ctx, d.clock, retryableLedgerErr, func() error {
		var serr error
		tx, serr = d.ledger.UpdateOrganization(ctx, org)
		return serr
	})
	if err != nil {
		return ledger.Receipt{}, fmt.Errorf("update organization: %w", err)
	}

	receipt, err := d.ledger.AwaitConfirmation(ctx, tx, d.confirmTimeout)
	if err != nil {
		var revert *ledger.RevertError
		if errors.As(err, &revert) {
			return receipt, fmt.Errorf("update organization: %w", err)
		}
		d.logger.Printf("update organization: tx %s outcome unknown: %v", tx, err)
		return receipt, &domain.SubmittedOutcomeUnknownError{Op: "update organization", Tx: tx, Cause: err}
	}

	org.UpdatedAt = d.clock.Now()
	if uerr := d.orgs.Upsert(ctx, org); uerr != nil {
		d.logger.Printf("organization mirror refresh failed organizer=%s: %v", org.Address, uerr)
	}
	return receipt, nil
}

// TicketInfo reads the ledger-owned state of one ticket. The listing pointer
// is set only while an offer is live.
func (d *Directory) TicketInfo(ctx context.Context, event domain.Address, tokenID uint64) (domain.TicketPosition, error) {
	pos := domain.TicketPosition{TokenID: tokenID}

	err := d.retry.run(ctx, d.clock, retryableLedgerErr, func() error {
		ticket, rerr := d.ledger.TicketContractAddress(ctx, event)
		if rerr != nil {
			return rerr
		}
		pos.TicketContract = ticket

		owner, rerr := d.ledger.TicketOwner(ctx, event, tokenID)
		if rerr != nil {
			return rerr
		}
		pos.Owner = owner

		uri, rerr := d.ledger.TokenURI(ctx, event, tokenID)
		if rerr != nil {
			return rerr
		}
		pos.MetadataURI = uri
		return nil
	})
	if err != nil {
		return domain.TicketPosition{}, fmt.Errorf("ticket info %s/%d: %w", event, tokenID, err)
	}
	if pos.Owner.IsZero() {
		return domain.TicketPosition{}, fmt.Errorf("ticket %s/%d: %w", event, tokenID, domain.ErrTicketNotFound)
	}

	listing, err := d.ledger.ResaleListing(ctx, event, tokenID)
	if err != nil {
		return domain.TicketPosition{}, fmt.Errorf("ticket info %s/%d: %w", event, tokenID, err)
	}
	if listing.Active {
		pos.Listing = &listing
	}
	return pos, nil
}

func retryableStoreErr(err error) bool {
	return errors.Is(err, domain.ErrStoreUnavailable)
}
