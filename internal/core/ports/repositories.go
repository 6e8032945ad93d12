package ports

import (
	"context"
	"time"

	"relief-token-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// WalletRepository defines persistence operations for the wallet registry.
// Methods accepting pgx.Tx run inside the append critical section.
type WalletRepository interface {
	Create(ctx context.Context, wallet *domain.Wallet) error
	GetByAddress(ctx context.Context, address string) (*domain.Wallet, error)
	GetByAddressTx(ctx context.Context, tx pgx.Tx, address string) (*domain.Wallet, error)
	UpdateChainHead(ctx context.Context, tx pgx.Tx, address string, head string) error
}

// LedgerListParams holds filter + pagination for listing ledger entries.
type LedgerListParams struct {
	Wallet   string // Matches either side of the transfer
	Status   *domain.EntryStatus
	Flagged  *bool
	Page     int
	PageSize int
}

// LedgerRepository defines persistence for the append-only entry log.
// All aggregates (balance, spend, pending settlement) are derived from it;
// nothing is stored and separately mutated.
type LedgerRepository interface {
	Insert(ctx context.Context, tx pgx.Tx, entry *domain.LedgerEntry) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.LedgerEntry, error)
	GetByQRSignature(ctx context.Context, signature string) (*domain.LedgerEntry, error)

	// BalanceOf folds completed/synced entries: incoming minus outgoing.
	BalanceOf(ctx context.Context, wallet string) (int64, error)
	// SpentBetween sums outgoing completed/synced amounts in [from, to).
	SpentBetween(ctx context.Context, wallet string, from, to time.Time) (int64, error)
	// DisasterOutflow sums government outgoing completed/synced amounts
	// carrying the disaster id.
	DisasterOutflow(ctx context.Context, disasterID string) (int64, error)
	// ReceivedTotal sums completed/synced amounts received by the wallet.
	ReceivedTotal(ctx context.Context, wallet string) (int64, error)
	// SettledTotal sums completed amounts the wallet has settled to the bank.
	SettledTotal(ctx context.Context, wallet string) (int64, error)
	BankReferenceExists(ctx context.Context, reference string) (bool, error)

	List(ctx context.Context, params LedgerListParams) ([]domain.LedgerEntry, int64, error)
	// ListFromWallet returns every entry appended from the wallet in append
	// order, for integrity chain verification.
	ListFromWallet(ctx context.Context, wallet string) ([]domain.LedgerEntry, error)
}

// ClaimRepository defines persistence for duplicate-identity detection.
type ClaimRepository interface {
	// AddLink records an observed (identityHash, wallet) pair. Returns false
	// when the pair was already known (re-observation is a no-op).
	AddLink(ctx context.Context, identityHash, wallet string) (bool, error)
	WalletsForHash(ctx context.Context, identityHash string) ([]string, error)
	GetByIdentityHash(ctx context.Context, identityHash string) (*domain.DuplicateClaim, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.DuplicateClaim, error)
	// Upsert inserts a claim or refreshes its wallet set, preserving status.
	Upsert(ctx context.Context, claim *domain.DuplicateClaim) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.ClaimStatus) error
	List(ctx context.Context, status *domain.ClaimStatus) ([]domain.DuplicateClaim, error)
}

// DisasterRepository defines persistence for disaster allocations.
type DisasterRepository interface {
	Create(ctx context.Context, d *domain.Disaster) error
	GetByID(ctx context.Context, id string) (*domain.Disaster, error)
}

// VerdictRepository stores bill-validation verdicts in a side table, keeping
// ledger entries immutable.
type VerdictRepository interface {
	Attach(ctx context.Context, entryID uuid.UUID, verdict string, details string) error
	GetByEntryID(ctx context.Context, entryID uuid.UUID) (string, string, error)
}

// AuditRepository persists audit trail records.
type AuditRepository interface {
	Create(ctx context.Context, log *domain.AuditLog) error
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
