package postgres

import (
	"context"
	"errors"
	"fmt"

	"relief-token-ledger/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// DisasterRepo implements ports.DisasterRepository.
type DisasterRepo struct {
	pool Pool
}

// NewDisasterRepo creates a new DisasterRepo.
func NewDisasterRepo(pool Pool) *DisasterRepo {
	return &DisasterRepo{pool: pool}
}

// Create registers a disaster with its token allocation.
func (r *DisasterRepo) Create(ctx context.Context, d *domain.Disaster) error {
	query := `INSERT INTO disasters (id, name, allocated_tokens, created_at) VALUES ($1, $2, $3, $4)`

	_, err := r.pool.Exec(ctx, query, d.ID, d.Name, d.AllocatedTokens, d.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert disaster: %w", err)
	}
	return nil
}

// GetByID fetches a disaster. Returns nil, nil when absent.
func (r *DisasterRepo) GetByID(ctx context.Context, id string) (*domain.Disaster, error) {
	query := `SELECT id, name, allocated_tokens, created_at FROM disasters WHERE id = $1`

	d := &domain.Disaster{}
	err := r.pool.QueryRow(ctx, query, id).Scan(&d.ID, &d.Name, &d.AllocatedTokens, &d.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan disaster: %w", err)
	}
	return d, nil
}
