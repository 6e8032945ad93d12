package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"relief-token-ledger/internal/core/domain"
	"relief-token-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// --- In-Memory Wallet Repo ---

type inMemoryWalletRepo struct {
	mu      sync.RWMutex
	wallets map[string]*domain.Wallet
}

func newInMemoryWalletRepo() *inMemoryWalletRepo {
	return &inMemoryWalletRepo{wallets: make(map[string]*domain.Wallet)}
}

func (r *inMemoryWalletRepo) Create(ctx context.Context, w *domain.Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *w
	r.wallets[w.Address] = &cp
	return nil
}

func (r *inMemoryWalletRepo) GetByAddress(ctx context.Context, address string) (*domain.Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.wallets[address]
	if !ok {
		return nil, nil
	}
	cp := *w
	return &cp, nil
}

func (r *inMemoryWalletRepo) GetByAddressTx(ctx context.Context, tx pgx.Tx, address string) (*domain.Wallet, error) {
	return r.GetByAddress(ctx, address)
}

func (r *inMemoryWalletRepo) UpdateChainHead(ctx context.Context, tx pgx.Tx, address string, head string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[address]
	if !ok {
		return pgx.ErrNoRows
	}
	h := head
	w.ChainHead = &h
	return nil
}

// --- In-Memory Ledger Repo ---

type inMemoryLedgerRepo struct {
	mu      sync.RWMutex
	entries []domain.LedgerEntry
}

func newInMemoryLedgerRepo() *inMemoryLedgerRepo {
	return &inMemoryLedgerRepo{}
}

func (r *inMemoryLedgerRepo) Insert(ctx context.Context, tx pgx.Tx, e *domain.LedgerEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.entries {
		if e.QRSignature != nil && r.entries[i].QRSignature != nil && *r.entries[i].QRSignature == *e.QRSignature {
			return &pgconn.PgError{Code: uniqueViolationCode, ConstraintName: "ledger_entries_qr_signature_key"}
		}
		if e.BankReference != nil && r.entries[i].BankReference != nil && *r.entries[i].BankReference == *e.BankReference {
			return &pgconn.PgError{Code: uniqueViolationCode, ConstraintName: "ledger_entries_bank_reference_key"}
		}
	}
	r.entries = append(r.entries, *e)
	return nil
}

func (r *inMemoryLedgerRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.LedgerEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := range r.entries {
		if r.entries[i].ID == id {
			cp := r.entries[i]
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inMemoryLedgerRepo) GetByQRSignature(ctx context.Context, signature string) (*domain.LedgerEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := range r.entries {
		if r.entries[i].QRSignature != nil && *r.entries[i].QRSignature == signature {
			cp := r.entries[i]
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inMemoryLedgerRepo) BalanceOf(ctx context.Context, wallet string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var balance int64
	for i := range r.entries {
		e := &r.entries[i]
		if !e.CountsForBalance() {
			continue
		}
		if e.ToWallet == wallet {
			balance += e.Amount
		}
		if e.FromWallet == wallet {
			balance -= e.Amount
		}
	}
	return balance, nil
}

func (r *inMemoryLedgerRepo) SpentBetween(ctx context.Context, wallet string, from, to time.Time) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var spent int64
	for i := range r.entries {
		e := &r.entries[i]
		if !e.CountsForBalance() || e.FromWallet != wallet {
			continue
		}
		at := e.CreatedAt
		if e.LocalTimestamp != nil {
			at = *e.LocalTimestamp
		}
		if !at.Before(from) && at.Before(to) {
			spent += e.Amount
		}
	}
	return spent, nil
}

func (r *inMemoryLedgerRepo) DisasterOutflow(ctx context.Context, disasterID string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var total int64
	for i := range r.entries {
		e := &r.entries[i]
		if e.CountsForBalance() && e.FromType == domain.OwnerGovernment &&
			e.DisasterID != nil && *e.DisasterID == disasterID {
			total += e.Amount
		}
	}
	return total, nil
}

func (r *inMemoryLedgerRepo) ReceivedTotal(ctx context.Context, wallet string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var total int64
	for i := range r.entries {
		e := &r.entries[i]
		if e.CountsForBalance() && e.ToWallet == wallet {
			total += e.Amount
		}
	}
	return total, nil
}

func (r *inMemoryLedgerRepo) SettledTotal(ctx context.Context, wallet string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var total int64
	for i := range r.entries {
		e := &r.entries[i]
		if e.Status == domain.EntryStatusCompleted && e.FromWallet == wallet && e.ToType == domain.OwnerBank {
			total += e.Amount
		}
	}
	return total, nil
}

func (r *inMemoryLedgerRepo) BankReferenceExists(ctx context.Context, reference string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := range r.entries {
		if r.entries[i].BankReference != nil && *r.entries[i].BankReference == reference {
			return true, nil
		}
	}
	return false, nil
}

func (r *inMemoryLedgerRepo) List(ctx context.Context, params ports.LedgerListParams) ([]domain.LedgerEntry, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var matched []domain.LedgerEntry
	for i := range r.entries {
		e := r.entries[i]
		if params.Wallet != "" && e.FromWallet != params.Wallet && e.ToWallet != params.Wallet {
			continue
		}
		if params.Status != nil && e.Status != *params.Status {
			continue
		}
		if params.Flagged != nil && e.FlaggedForReview != *params.Flagged {
			continue
		}
		matched = append(matched, e)
	}
	total := int64(len(matched))
	start := (params.Page - 1) * params.PageSize
	if start >= len(matched) {
		return []domain.LedgerEntry{}, total, nil
	}
	end := start + params.PageSize
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (r *inMemoryLedgerRepo) ListFromWallet(ctx context.Context, wallet string) ([]domain.LedgerEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.LedgerEntry
	for i := range r.entries {
		if r.entries[i].FromWallet == wallet {
			e := r.entries[i]
			// timestamptz resolution: reads lose any sub-microsecond tail.
			e.CreatedAt = e.CreatedAt.Truncate(time.Microsecond)
			out = append(out, e)
		}
	}
	return out, nil
}

// tamper rewrites an entry's amount in place, for chain verification tests.
func (r *inMemoryLedgerRepo) tamper(id uuid.UUID, amount int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.entries {
		if r.entries[i].ID == id {
			r.entries[i].Amount = amount
			return
		}
	}
}

// --- In-Memory Claim Repo ---

type inMemoryClaimRepo struct {
	mu     sync.RWMutex
	links  map[string]map[string]bool // identityHash -> wallet set
	claims map[uuid.UUID]*domain.DuplicateClaim
}

func newInMemoryClaimRepo() *inMemoryClaimRepo {
	return &inMemoryClaimRepo{
		links:  make(map[string]map[string]bool),
		claims: make(map[uuid.UUID]*domain.DuplicateClaim),
	}
}

func (r *inMemoryClaimRepo) AddLink(ctx context.Context, identityHash, wallet string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.links[identityHash]
	if !ok {
		set = make(map[string]bool)
		r.links[identityHash] = set
	}
	if set[wallet] {
		return false, nil
	}
	set[wallet] = true
	return true, nil
}

func (r *inMemoryClaimRepo) WalletsForHash(ctx context.Context, identityHash string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for w := range r.links[identityHash] {
		out = append(out, w)
	}
	sort.Strings(out)
	return out, nil
}

func (r *inMemoryClaimRepo) GetByIdentityHash(ctx context.Context, identityHash string) (*domain.DuplicateClaim, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.claims {
		if c.IdentityHash == identityHash {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inMemoryClaimRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.DuplicateClaim, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.claims[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (r *inMemoryClaimRepo) Upsert(ctx context.Context, claim *domain.DuplicateClaim) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *claim
	r.claims[claim.ID] = &cp
	return nil
}

func (r *inMemoryClaimRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.ClaimStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.claims[id]
	if !ok {
		return pgx.ErrNoRows
	}
	c.Status = status
	c.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *inMemoryClaimRepo) List(ctx context.Context, status *domain.ClaimStatus) ([]domain.DuplicateClaim, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.DuplicateClaim
	for _, c := range r.claims {
		if status != nil && c.Status != *status {
			continue
		}
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.Compare(out[i].IdentityHash, out[j].IdentityHash) < 0
	})
	return out, nil
}

// --- In-Memory Disaster Repo ---

type inMemoryDisasterRepo struct {
	mu        sync.RWMutex
	disasters map[string]*domain.Disaster
}

func newInMemoryDisasterRepo() *inMemoryDisasterRepo {
	return &inMemoryDisasterRepo{disasters: make(map[string]*domain.Disaster)}
}

func (r *inMemoryDisasterRepo) Create(ctx context.Context, d *domain.Disaster) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *d
	r.disasters[d.ID] = &cp
	return nil
}

func (r *inMemoryDisasterRepo) GetByID(ctx context.Context, id string) (*domain.Disaster, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.disasters[id]
	if !ok {
		return nil, nil
	}
	cp := *d
	return &cp, nil
}

// --- In-Memory Verdict Repo ---

type inMemoryVerdictRepo struct {
	mu       sync.RWMutex
	verdicts map[uuid.UUID][2]string
}

func newInMemoryVerdictRepo() *inMemoryVerdictRepo {
	return &inMemoryVerdictRepo{verdicts: make(map[uuid.UUID][2]string)}
}

func (r *inMemoryVerdictRepo) Attach(ctx context.Context, entryID uuid.UUID, verdict string, details string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.verdicts[entryID] = [2]string{verdict, details}
	return nil
}

func (r *inMemoryVerdictRepo) GetByEntryID(ctx context.Context, entryID uuid.UUID) (string, string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.verdicts[entryID]
	if !ok {
		return "", "", nil
	}
	return v[0], v[1], nil
}

// --- In-Memory Audit Repo ---

type inMemoryAuditRepo struct {
	mu   sync.RWMutex
	logs []domain.AuditLog
}

func newInMemoryAuditRepo() *inMemoryAuditRepo {
	return &inMemoryAuditRepo{}
}

func (r *inMemoryAuditRepo) Create(ctx context.Context, log *domain.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, *log)
	return nil
}

// --- In-Memory Signature Cache ---

type inMemorySignatureCache struct {
	mu   sync.RWMutex
	data map[string]string
}

func newInMemorySignatureCache() *inMemorySignatureCache {
	return &inMemorySignatureCache{data: make(map[string]string)}
}

func (c *inMemorySignatureCache) Get(ctx context.Context, signature string) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.data[signature], nil
}

func (c *inMemorySignatureCache) Set(ctx context.Context, signature string, entryID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[signature] = entryID
	return nil
}

// --- In-Memory Transactor ---

type inMemoryTransactor struct{}

func (t *inMemoryTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	return &noopTx{}, nil
}

// noopTx is a no-op pgx.Tx implementation for in-memory testing.
type noopTx struct{}

func (t *noopTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *noopTx) Commit(ctx context.Context) error          { return nil }
func (t *noopTx) Rollback(ctx context.Context) error        { return nil }
func (t *noopTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *noopTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *noopTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *noopTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *noopTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}
func (t *noopTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *noopTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }
func (t *noopTx) Conn() *pgx.Conn                                               { return nil }
