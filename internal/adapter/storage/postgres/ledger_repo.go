package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"relief-token-ledger/internal/core/domain"
	"relief-token-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const entryColumns = `id, from_wallet, from_type, to_wallet, to_type, amount, status, purpose,
	disaster_id, bank_reference, qr_signature, is_offline, flagged_for_review, failure_reason,
	integrity_token, local_timestamp, created_at`

// LedgerRepo implements ports.LedgerRepository over the append-only
// ledger_entries table. Balances and settlement totals are always folds over
// this table; no aggregate is stored elsewhere.
type LedgerRepo struct {
	pool Pool
}

// NewLedgerRepo creates a new LedgerRepo.
func NewLedgerRepo(pool Pool) *LedgerRepo {
	return &LedgerRepo{pool: pool}
}

// Insert appends an immutable entry within a database transaction.
func (r *LedgerRepo) Insert(ctx context.Context, tx pgx.Tx, e *domain.LedgerEntry) error {
	query := `INSERT INTO ledger_entries (` + entryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	_, err := tx.Exec(ctx, query,
		e.ID, e.FromWallet, e.FromType, e.ToWallet, e.ToType,
		e.Amount, e.Status, e.Purpose, e.DisasterID, e.BankReference,
		e.QRSignature, e.IsOffline, e.FlaggedForReview, e.FailureReason,
		e.IntegrityToken, e.LocalTimestamp, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

// GetByID fetches an entry by UUID. Returns nil, nil when absent.
func (r *LedgerRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.LedgerEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM ledger_entries WHERE id = $1`
	return scanEntry(r.pool.QueryRow(ctx, query, id))
}

// GetByQRSignature fetches the entry produced from an offline intent.
func (r *LedgerRepo) GetByQRSignature(ctx context.Context, signature string) (*domain.LedgerEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM ledger_entries WHERE qr_signature = $1`
	return scanEntry(r.pool.QueryRow(ctx, query, signature))
}

// BalanceOf folds completed/synced entries: incoming minus outgoing.
func (r *LedgerRepo) BalanceOf(ctx context.Context, wallet string) (int64, error) {
	query := `SELECT
		COALESCE(SUM(amount) FILTER (WHERE to_wallet = $1), 0) -
		COALESCE(SUM(amount) FILTER (WHERE from_wallet = $1), 0)
		FROM ledger_entries
		WHERE (to_wallet = $1 OR from_wallet = $1) AND status IN ('COMPLETED', 'SYNCED')`

	var balance int64
	if err := r.pool.QueryRow(ctx, query, wallet).Scan(&balance); err != nil {
		return 0, fmt.Errorf("balance fold: %w", err)
	}
	return balance, nil
}

// SpentBetween sums outgoing completed/synced amounts with created_at in [from, to).
func (r *LedgerRepo) SpentBetween(ctx context.Context, wallet string, from, to time.Time) (int64, error) {
	// Offline sales count on the day they happened at the shop, not the day
	// they synced.
	query := `SELECT COALESCE(SUM(amount), 0) FROM ledger_entries
		WHERE from_wallet = $1 AND status IN ('COMPLETED', 'SYNCED')
		AND COALESCE(local_timestamp, created_at) >= $2
		AND COALESCE(local_timestamp, created_at) < $3`

	var spent int64
	if err := r.pool.QueryRow(ctx, query, wallet, from, to).Scan(&spent); err != nil {
		return 0, fmt.Errorf("spent fold: %w", err)
	}
	return spent, nil
}

// DisasterOutflow sums government outgoing amounts carrying the disaster id.
func (r *LedgerRepo) DisasterOutflow(ctx context.Context, disasterID string) (int64, error) {
	query := `SELECT COALESCE(SUM(amount), 0) FROM ledger_entries
		WHERE disaster_id = $1 AND from_type = 'government' AND status IN ('COMPLETED', 'SYNCED')`

	var total int64
	if err := r.pool.QueryRow(ctx, query, disasterID).Scan(&total); err != nil {
		return 0, fmt.Errorf("disaster outflow fold: %w", err)
	}
	return total, nil
}

// ReceivedTotal sums completed/synced amounts received by the wallet.
func (r *LedgerRepo) ReceivedTotal(ctx context.Context, wallet string) (int64, error) {
	query := `SELECT COALESCE(SUM(amount), 0) FROM ledger_entries
		WHERE to_wallet = $1 AND status IN ('COMPLETED', 'SYNCED')`

	var total int64
	if err := r.pool.QueryRow(ctx, query, wallet).Scan(&total); err != nil {
		return 0, fmt.Errorf("received fold: %w", err)
	}
	return total, nil
}

// SettledTotal sums amounts the wallet has already settled to the bank.
func (r *LedgerRepo) SettledTotal(ctx context.Context, wallet string) (int64, error) {
	query := `SELECT COALESCE(SUM(amount), 0) FROM ledger_entries
		WHERE from_wallet = $1 AND to_type = 'bank' AND status IN ('COMPLETED', 'SYNCED')`

	var total int64
	if err := r.pool.QueryRow(ctx, query, wallet).Scan(&total); err != nil {
		return 0, fmt.Errorf("settled fold: %w", err)
	}
	return total, nil
}

// BankReferenceExists checks the settlement dedup index.
func (r *LedgerRepo) BankReferenceExists(ctx context.Context, reference string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM ledger_entries WHERE bank_reference = $1)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, reference).Scan(&exists); err != nil {
		return false, fmt.Errorf("check bank reference: %w", err)
	}
	return exists, nil
}

// List fetches entries touching a wallet with filtering and pagination.
func (r *LedgerRepo) List(ctx context.Context, params ports.LedgerListParams) ([]domain.LedgerEntry, int64, error) {
	var conditions []string
	var args []any
	argIdx := 1

	conditions = append(conditions, fmt.Sprintf("(from_wallet = $%d OR to_wallet = $%d)", argIdx, argIdx))
	args = append(args, params.Wallet)
	argIdx++

	if params.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, *params.Status)
		argIdx++
	}
	if params.Flagged != nil {
		conditions = append(conditions, fmt.Sprintf("flagged_for_review = $%d", argIdx))
		args = append(args, *params.Flagged)
		argIdx++
	}

	where := "WHERE " + strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM ledger_entries %s", where)
	var total int64
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count ledger entries: %w", err)
	}

	offset := (params.Page - 1) * params.PageSize
	dataQuery := fmt.Sprintf(`SELECT %s FROM ledger_entries %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		entryColumns, where, argIdx, argIdx+1)
	args = append(args, params.PageSize, offset)

	rows, err := r.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	entries, err := collectEntries(rows)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// ListFromWallet returns every entry appended from the wallet in append
// order. seq is a bigint identity assigned on insert; created_at cannot
// order the chain because microsecond timestamps can tie.
func (r *LedgerRepo) ListFromWallet(ctx context.Context, wallet string) ([]domain.LedgerEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM ledger_entries WHERE from_wallet = $1 ORDER BY seq ASC`

	rows, err := r.pool.Query(ctx, query, wallet)
	if err != nil {
		return nil, fmt.Errorf("list from wallet: %w", err)
	}
	defer rows.Close()

	return collectEntries(rows)
}

func collectEntries(rows pgx.Rows) ([]domain.LedgerEntry, error) {
	var entries []domain.LedgerEntry
	for rows.Next() {
		e := domain.LedgerEntry{}
		err := rows.Scan(
			&e.ID, &e.FromWallet, &e.FromType, &e.ToWallet, &e.ToType,
			&e.Amount, &e.Status, &e.Purpose, &e.DisasterID, &e.BankReference,
			&e.QRSignature, &e.IsOffline, &e.FlaggedForReview, &e.FailureReason,
			&e.IntegrityToken, &e.LocalTimestamp, &e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan ledger entry row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger entry rows: %w", err)
	}
	return entries, nil
}

func scanEntry(row pgx.Row) (*domain.LedgerEntry, error) {
	e := &domain.LedgerEntry{}
	err := row.Scan(
		&e.ID, &e.FromWallet, &e.FromType, &e.ToWallet, &e.ToType,
		&e.Amount, &e.Status, &e.Purpose, &e.DisasterID, &e.BankReference,
		&e.QRSignature, &e.IsOffline, &e.FlaggedForReview, &e.FailureReason,
		&e.IntegrityToken, &e.LocalTimestamp, &e.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan ledger entry: %w", err)
	}
	return e, nil
}
