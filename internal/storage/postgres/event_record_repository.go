package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tessera-live/tessera/internal/domain"
)

// EventRecordRepository is the off-chain metadata store for events. A create
// either fully succeeds (the record is queryable immediately after) or fully
// fails; no partial state is visible to callers.
type EventRecordRepository struct {
	pool *pgxpool.Pool
}

func NewEventRecordRepository(pool *pgxpool.Pool) *EventRecordRepository {
	return &EventRecordRepository{pool: pool}
}

func (r *EventRecordRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

func (r *EventRecordRepository) CreateRecord(ctx context.Context, rec domain.EventRecord) (string, error) {
	if rec.ID == "" || rec.Name == "" || rec.LedgerAddress.IsZero() {
		return "", domain.ErrValidationFailed
	}

	tiers, err := encodeTiers(rec.Tiers)
	if err != nil {
		return "", fmt.Errorf("encode tiers: %w", domain.ErrValidationFailed)
	}

	const stmt = `
INSERT INTO event_records
	(id, ledger_address, organization_id, name, description, content_id, starts_at, ends_at, location, tags, tiers, delisted, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err = r.exec(ctx, stmt,
		rec.ID,
		string(rec.LedgerAddress),
		string(rec.OrganizationID),
		rec.Name,
		rec.Description,
		rec.ContentID,
		rec.StartsAt,
		rec.EndsAt,
		rec.Location,
		rec.Tags,
		tiers,
		rec.Delisted,
		rec.CreatedAt,
	)
	if err != nil {
		switch {
		case isUniqueViolation(err), isCheckViolation(err), isInvalidUUID(err):
			return "", domain.ErrValidationFailed
		case isUnavailable(err):
			return "", fmt.Errorf("create event record: %v: %w", err, domain.ErrStoreUnavailable)
		}
		return "", fmt.Errorf("create event record: %w", err)
	}
	return rec.ID, nil
}

func (r *EventRecordRepository) GetByLedgerAddress(ctx context.Context, addr domain.Address) (domain.EventRecord, error) {
	const query = `
SELECT id, ledger_address, organization_id, name, description, content_id, starts_at, ends_at, location, tags, tiers, delisted, created_at
FROM event_records
WHERE ledger_address = $1`

	return r.scanRecord(r.queryRow(ctx, query, string(addr)))
}

func (r *EventRecordRepository) ListByOrganization(ctx context.Context, org domain.Address) ([]domain.EventRecord, error) {
	const query = `
SELECT id, ledger_address, organization_id, name, description, content_id, starts_at, ends_at, location, tags, tiers, delisted, created_at
FROM event_records
WHERE organization_id = $1
ORDER BY starts_at`

	rows, err := r.query(ctx, query, string(org))
	if err != nil {
		if isUnavailable(err) {
			return nil, fmt.Errorf("list event records: %v: %w", err, domain.ErrStoreUnavailable)
		}
		return nil, fmt.Errorf("list event records: %w", err)
	}
	defer rows.Close()

	var records []domain.EventRecord
	for rows.Next() {
		rec, err := r.scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list event records: %w", err)
	}
	return records, nil
}

// MarkDelisted flags the local record only. Ledger data is never deleted;
// this exists for operator cleanup of records whose events were deactivated
// out-of-band.
func (r *EventRecordRepository) MarkDelisted(ctx context.Context, id string) error {
	const stmt = `UPDATE event_records SET delisted = TRUE WHERE id = $1`
	tag, err := r.exec(ctx, stmt, id)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrRecordNotFound
		}
		if isUnavailable(err) {
			return fmt.Errorf("mark delisted: %v: %w", err, domain.ErrStoreUnavailable)
		}
		return fmt.Errorf("mark delisted: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRecordNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *EventRecordRepository) scanRecord(row rowScanner) (domain.EventRecord, error) {
	var (
		rec       domain.EventRecord
		ledger    string
		org       string
		tiersJSON []byte
	)
	err := row.Scan(
		&rec.ID,
		&ledger,
		&org,
		&rec.Name,
		&rec.Description,
		&rec.ContentID,
		&rec.StartsAt,
		&rec.EndsAt,
		&rec.Location,
		&rec.Tags,
		&tiersJSON,
		&rec.Delisted,
		&rec.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.EventRecord{}, domain.ErrRecordNotFound
		}
		if isUnavailable(err) {
			return domain.EventRecord{}, fmt.Errorf("scan event record: %v: %w", err, domain.ErrStoreUnavailable)
		}
		return domain.EventRecord{}, fmt.Errorf("scan event record: %w", err)
	}
	rec.LedgerAddress = domain.Address(ledger)
	rec.OrganizationID = domain.Address(org)
	rec.Tiers, err = decodeTiers(tiersJSON)
	if err != nil {
		return domain.EventRecord{}, fmt.Errorf("decode tiers: %w", err)
	}
	return rec, nil
}

func (r *EventRecordRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *EventRecordRepository) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return r.pool.Query(ctx, sql, args...)
}

func (r *EventRecordRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}
