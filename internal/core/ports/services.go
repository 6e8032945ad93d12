package ports

import (
	"context"
	"time"

	"relief-token-ledger/internal/core/domain"

	"github.com/google/uuid"
)

// WalletLocker serializes read-check-write sections per wallet address.
// Operations on different wallets never block each other.
type WalletLocker interface {
	// WithWalletLock runs fn while holding the lock for address. It returns
	// the error from fn, or a lock acquisition error when the wallet stayed
	// busy past the configured wait bound.
	WithWalletLock(ctx context.Context, address string, fn func(ctx context.Context) error) error
}

// --- Ledger ---

// PaymentRequest holds validated input for an online payment.
type PaymentRequest struct {
	Actor      string // Authenticated actor (wallet address or admin id)
	Role       domain.Role
	FromWallet string
	ToWallet   string
	Amount     int64
	Purpose    string
	DisasterID *string
}

// BalanceReport is the derived state of one wallet. SpentToday and
// RemainingDailyLimit are reported for every owner type but the cap is only
// enforced on citizen spending; for other wallets the figures are
// informational.
type BalanceReport struct {
	Wallet              string `json:"wallet"`
	Balance             int64  `json:"balance"`
	SpentToday          int64  `json:"spent_today"`
	RemainingDailyLimit int64  `json:"remaining_daily_limit"`
}

// ChainReport is the result of verifying a wallet's integrity chain.
type ChainReport struct {
	Wallet     string `json:"wallet"`
	Entries    int    `json:"entries"`
	Intact     bool   `json:"intact"`
	BrokenAt   int    `json:"broken_at"`   // Index of first broken link; -1 when intact
	ChainHead  string `json:"chain_head"`  // Stored head at verification time
	VerifiedAt string `json:"verified_at"` // RFC3339
}

// LedgerService is the core token ledger: admission, append, derived balances.
type LedgerService interface {
	SubmitPayment(ctx context.Context, req PaymentRequest) (*domain.LedgerEntry, error)
	GetBalance(ctx context.Context, wallet string) (*BalanceReport, error)
	RegisterWallet(ctx context.Context, actor, address string, ownerType domain.OwnerType) (*domain.Wallet, error)
	RegisterDisaster(ctx context.Context, actor string, d *domain.Disaster) error
	ListEntries(ctx context.Context, params LedgerListParams) ([]domain.LedgerEntry, int64, error)
	VerifyWalletChain(ctx context.Context, wallet string) (*ChainReport, error)
}

// --- Offline sync ---

// SyncOutcome is the per-intent result of a reconciliation batch.
type SyncOutcome string

const (
	SyncOutcomeSynced            SyncOutcome = "SYNCED"
	SyncOutcomeAlreadySynced     SyncOutcome = "ALREADY_SYNCED"
	SyncOutcomeSignatureConflict SyncOutcome = "SIGNATURE_CONFLICT"
	SyncOutcomeRejected          SyncOutcome = "REJECTED"
)

// SyncResult reports what happened to one intent. Devices map results back
// by qr_signature and retry exactly the rejected subset.
type SyncResult struct {
	QRSignature string      `json:"qr_signature"`
	EntryID     *uuid.UUID  `json:"entry_id,omitempty"`
	Outcome     SyncOutcome `json:"outcome"`
	Flagged     bool        `json:"flagged_for_review"`
	Reason      string      `json:"reason,omitempty"`
}

// SyncService merges offline intents into the ledger exactly once each.
type SyncService interface {
	// SyncBatch never fails as a whole; each intent gets its own outcome.
	SyncBatch(ctx context.Context, merchantWallet string, intents []domain.OfflineIntent) ([]SyncResult, error)
}

// --- Settlement ---

// SettlementRequest holds validated input for a merchant payout.
type SettlementRequest struct {
	Actor          string
	MerchantWallet string
	Amount         int64
	BankReference  string
}

// SettlementService converts merchant token balances into bank payouts.
type SettlementService interface {
	PendingSettlement(ctx context.Context, merchantWallet string) (int64, error)
	Settle(ctx context.Context, req SettlementRequest) (*domain.LedgerEntry, error)
}

// --- Duplicate identity ---

// IdentityClaimService watches for one identity linked to multiple wallets.
// Advisory only; it never blocks a transaction.
type IdentityClaimService interface {
	Observe(ctx context.Context, identityHash, wallet string) (*domain.DuplicateClaim, error)
	ListClaims(ctx context.Context, status *domain.ClaimStatus) ([]domain.DuplicateClaim, error)
	Review(ctx context.Context, actor string, claimID uuid.UUID, to domain.ClaimStatus) (*domain.DuplicateClaim, error)
}

// SignatureCache is the fast-path dedup lookup for offline qr_signatures.
// A miss falls through to the ledger's unique index.
type SignatureCache interface {
	// Get returns the recorded entry id for a signature, "" when unseen.
	Get(ctx context.Context, signature string) (string, error)
	Set(ctx context.Context, signature string, entryID string) error
}

// --- External collaborators ---

// BillValidator is the external document-validation service. It is called
// asynchronously and never gates a ledger commit.
type BillValidator interface {
	Validate(ctx context.Context, entryID uuid.UUID, documentRef string) (verdict string, err error)
}

// BillCheckService hands entries off to the external validator with retries.
type BillCheckService interface {
	RequestValidation(ctx context.Context, entryID uuid.UUID, documentRef string)
}

// AuditService emits audit records for terminal state transitions.
type AuditService interface {
	Log(ctx context.Context, entry *domain.AuditLog)
}

// TokenClaims holds the parsed identity token claims.
type TokenClaims struct {
	Actor string
	Role  domain.Role
}

// TokenService validates identity-service tokens. The ledger trusts the role
// only to authorize which from->to transfers the actor may initiate.
type TokenService interface {
	Generate(actor string, role domain.Role) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}
