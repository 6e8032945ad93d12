package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// VerdictRepo implements ports.VerdictRepository. Verdicts live in a side
// table so ledger entry rows stay immutable.
type VerdictRepo struct {
	pool Pool
}

// NewVerdictRepo creates a new VerdictRepo.
func NewVerdictRepo(pool Pool) *VerdictRepo {
	return &VerdictRepo{pool: pool}
}

// Attach records the bill-validation verdict for an entry. A later verdict
// for the same entry replaces the earlier one.
func (r *VerdictRepo) Attach(ctx context.Context, entryID uuid.UUID, verdict string, details string) error {
	query := `INSERT INTO bill_verdicts (entry_id, verdict, details, received_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (entry_id) DO UPDATE SET verdict = EXCLUDED.verdict,
		details = EXCLUDED.details, received_at = EXCLUDED.received_at`

	_, err := r.pool.Exec(ctx, query, entryID, verdict, details)
	if err != nil {
		return fmt.Errorf("attach bill verdict: %w", err)
	}
	return nil
}

// GetByEntryID fetches the verdict for an entry. Returns empty strings when
// no verdict has arrived yet.
func (r *VerdictRepo) GetByEntryID(ctx context.Context, entryID uuid.UUID) (string, string, error) {
	query := `SELECT verdict, details FROM bill_verdicts WHERE entry_id = $1`

	var verdict, details string
	err := r.pool.QueryRow(ctx, query, entryID).Scan(&verdict, &details)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", "", nil
		}
		return "", "", fmt.Errorf("scan bill verdict: %w", err)
	}
	return verdict, details, nil
}
