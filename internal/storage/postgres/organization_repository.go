package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tessera-live/tessera/internal/domain"
)

// OrganizationRepository mirrors organizer profiles for search. The ledger
// is authoritative; every row must be re-derivable from it.
type OrganizationRepository struct {
	pool *pgxpool.Pool
}

func NewOrganizationRepository(pool *pgxpool.Pool) *OrganizationRepository {
	return &OrganizationRepository{pool: pool}
}

func (r *OrganizationRepository) Upsert(ctx context.Context, org domain.Organization) error {
	if org.Address.IsZero() || org.Name == "" {
		return domain.ErrValidationFailed
	}

	const stmt = `
INSERT INTO organizations (ledger_address, name, description, website, updated_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (ledger_address) DO UPDATE
SET name = EXCLUDED.name,
    description = EXCLUDED.description,
    website = EXCLUDED.website,
    updated_at = EXCLUDED.updated_at`

	_, err := r.pool.Exec(ctx, stmt,
		string(org.Address), org.Name, org.Description, org.Website, org.UpdatedAt)
	if err != nil {
		if isCheckViolation(err) {
			return domain.ErrValidationFailed
		}
		if isUnavailable(err) {
			return fmt.Errorf("upsert organization: %v: %w", err, domain.ErrStoreUnavailable)
		}
		return fmt.Errorf("upsert organization: %w", err)
	}
	return nil
}

func (r *OrganizationRepository) GetByAddress(ctx context.Context, addr domain.Address) (domain.Organization, error) {
	const query = `
SELECT ledger_address, name, description, website, updated_at
FROM organizations
WHERE ledger_address = $1`

	var (
		org     domain.Organization
		address string
	)
	err := r.pool.QueryRow(ctx, query, string(addr)).
		Scan(&address, &org.Name, &org.Description, &org.Website, &org.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Organization{}, domain.ErrOrganizationNotFound
		}
		if isUnavailable(err) {
			return domain.Organization{}, fmt.Errorf("get organization: %v: %w", err, domain.ErrStoreUnavailable)
		}
		return domain.Organization{}, fmt.Errorf("get organization: %w", err)
	}
	org.Address = domain.Address(address)
	return org, nil
}
