package postgres

import (
	"context"
	"errors"
	"fmt"

	"relief-token-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ClaimRepo implements ports.ClaimRepository over the identity_links and
// duplicate_claims tables.
type ClaimRepo struct {
	pool Pool
}

// NewClaimRepo creates a new ClaimRepo.
func NewClaimRepo(pool Pool) *ClaimRepo {
	return &ClaimRepo{pool: pool}
}

// AddLink records an observed (identityHash, wallet) pair. Returns false when
// the pair was already known.
func (r *ClaimRepo) AddLink(ctx context.Context, identityHash, wallet string) (bool, error) {
	query := `INSERT INTO identity_links (identity_hash, wallet_address, observed_at)
		VALUES ($1, $2, NOW()) ON CONFLICT (identity_hash, wallet_address) DO NOTHING`

	tag, err := r.pool.Exec(ctx, query, identityHash, wallet)
	if err != nil {
		return false, fmt.Errorf("insert identity link: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// WalletsForHash lists every wallet ever observed with the identity hash.
func (r *ClaimRepo) WalletsForHash(ctx context.Context, identityHash string) ([]string, error) {
	query := `SELECT wallet_address FROM identity_links WHERE identity_hash = $1 ORDER BY observed_at ASC`

	rows, err := r.pool.Query(ctx, query, identityHash)
	if err != nil {
		return nil, fmt.Errorf("list identity links: %w", err)
	}
	defer rows.Close()

	var wallets []string
	for rows.Next() {
		var w string
		if err := rows.Scan(&w); err != nil {
			return nil, fmt.Errorf("scan identity link: %w", err)
		}
		wallets = append(wallets, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate identity links: %w", err)
	}
	return wallets, nil
}

// GetByIdentityHash fetches the claim for an identity hash. Returns nil, nil
// when no claim exists yet.
func (r *ClaimRepo) GetByIdentityHash(ctx context.Context, identityHash string) (*domain.DuplicateClaim, error) {
	query := `SELECT id, identity_hash, wallet_addresses, status, created_at, updated_at
		FROM duplicate_claims WHERE identity_hash = $1`
	return scanClaim(r.pool.QueryRow(ctx, query, identityHash))
}

// GetByID fetches a claim by UUID.
func (r *ClaimRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.DuplicateClaim, error) {
	query := `SELECT id, identity_hash, wallet_addresses, status, created_at, updated_at
		FROM duplicate_claims WHERE id = $1`
	return scanClaim(r.pool.QueryRow(ctx, query, id))
}

// Upsert inserts a claim or refreshes its wallet set, preserving status.
func (r *ClaimRepo) Upsert(ctx context.Context, c *domain.DuplicateClaim) error {
	query := `INSERT INTO duplicate_claims (id, identity_hash, wallet_addresses, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (identity_hash) DO UPDATE
		SET wallet_addresses = EXCLUDED.wallet_addresses, updated_at = EXCLUDED.updated_at`

	_, err := r.pool.Exec(ctx, query,
		c.ID, c.IdentityHash, c.WalletAddresses, c.Status, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert duplicate claim: %w", err)
	}
	return nil
}

// UpdateStatus records a review transition.
func (r *ClaimRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.ClaimStatus) error {
	query := `UPDATE duplicate_claims SET status = $1, updated_at = NOW() WHERE id = $2`

	tag, err := r.pool.Exec(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("update claim status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("claim not found: %s", id)
	}
	return nil
}

// List fetches claims, optionally filtered by status.
func (r *ClaimRepo) List(ctx context.Context, status *domain.ClaimStatus) ([]domain.DuplicateClaim, error) {
	query := `SELECT id, identity_hash, wallet_addresses, status, created_at, updated_at
		FROM duplicate_claims`
	var args []any
	if status != nil {
		query += ` WHERE status = $1`
		args = append(args, *status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list claims: %w", err)
	}
	defer rows.Close()

	var claims []domain.DuplicateClaim
	for rows.Next() {
		c := domain.DuplicateClaim{}
		err := rows.Scan(&c.ID, &c.IdentityHash, &c.WalletAddresses, &c.Status, &c.CreatedAt, &c.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan claim row: %w", err)
		}
		claims = append(claims, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate claim rows: %w", err)
	}
	return claims, nil
}

func scanClaim(row pgx.Row) (*domain.DuplicateClaim, error) {
	c := &domain.DuplicateClaim{}
	err := row.Scan(&c.ID, &c.IdentityHash, &c.WalletAddresses, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan claim: %w", err)
	}
	return c, nil
}
