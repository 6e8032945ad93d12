package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"relief-token-ledger/internal/core/domain"
	"relief-token-ledger/internal/core/ports"
	"relief-token-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// LedgerServiceImpl implements ports.LedgerService. All spending decisions
// read derived state inside the per-wallet critical section, so two racing
// payments from the same wallet can never both pass the balance fold.
type LedgerServiceImpl struct {
	walletRepo   ports.WalletRepository
	ledgerRepo   ports.LedgerRepository
	disasterRepo ports.DisasterRepository
	transactor   ports.DBTransactor
	locker       ports.WalletLocker
	auditSvc     ports.AuditService
	policy       Policy
	log          zerolog.Logger
}

// NewLedgerService creates a new LedgerServiceImpl.
func NewLedgerService(
	walletRepo ports.WalletRepository,
	ledgerRepo ports.LedgerRepository,
	disasterRepo ports.DisasterRepository,
	transactor ports.DBTransactor,
	locker ports.WalletLocker,
	auditSvc ports.AuditService,
	policy Policy,
	log zerolog.Logger,
) *LedgerServiceImpl {
	return &LedgerServiceImpl{
		walletRepo:   walletRepo,
		ledgerRepo:   ledgerRepo,
		disasterRepo: disasterRepo,
		transactor:   transactor,
		locker:       locker,
		auditSvc:     auditSvc,
		policy:       policy,
		log:          log,
	}
}

// SubmitPayment validates and appends an online payment. Malformed input
// returns a validation error with no side effect; business rejections append
// a FAILED entry carrying the reason, then return the precise figures.
func (s *LedgerServiceImpl) SubmitPayment(ctx context.Context, req ports.PaymentRequest) (*domain.LedgerEntry, error) {
	if req.Amount <= 0 {
		return nil, apperror.Validation("amount must be a positive whole number of tokens")
	}
	if req.FromWallet == "" || req.ToWallet == "" {
		return nil, apperror.Validation("from_wallet and to_wallet are required")
	}
	if req.FromWallet == req.ToWallet {
		return nil, apperror.Validation("from_wallet and to_wallet must differ")
	}

	var (
		entry     *domain.LedgerEntry
		rejection *apperror.AppError
	)
	err := s.locker.WithWalletLock(ctx, req.FromWallet, func(ctx context.Context) error {
		var err error
		entry, rejection, err = s.appendPayment(ctx, req)
		return err
	})
	if err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, apperror.ErrConcurrencyConflict(err)
	}

	if rejection != nil {
		s.audit(ctx, domain.AuditActionPaymentRejected, "ledger_entry", entry.ID.String(), req.Actor, map[string]any{
			"from_wallet": req.FromWallet,
			"to_wallet":   req.ToWallet,
			"amount":      req.Amount,
			"reason":      rejection.Code,
		})
		s.log.Info().
			Str("entry_id", entry.ID.String()).
			Str("from", req.FromWallet).
			Str("to", req.ToWallet).
			Int64("amount", req.Amount).
			Str("reason", rejection.Code).
			Msg("payment rejected")
		return nil, withDetail(rejection, "entry_id", entry.ID.String())
	}

	s.audit(ctx, domain.AuditActionPayment, "ledger_entry", entry.ID.String(), req.Actor, map[string]any{
		"from_wallet": req.FromWallet,
		"to_wallet":   req.ToWallet,
		"amount":      req.Amount,
	})
	s.log.Info().
		Str("entry_id", entry.ID.String()).
		Str("from", req.FromWallet).
		Str("to", req.ToWallet).
		Int64("amount", req.Amount).
		Msg("payment completed")

	return entry, nil
}

// appendPayment runs inside the wallet lock. It returns a non-nil rejection
// (with the FAILED entry persisted) for business rule failures, and a plain
// error for validation and infrastructure failures (nothing persisted).
func (s *LedgerServiceImpl) appendPayment(ctx context.Context, req ports.PaymentRequest) (*domain.LedgerEntry, *apperror.AppError, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	from, err := s.walletRepo.GetByAddressTx(ctx, dbTx, req.FromWallet)
	if err != nil {
		return nil, nil, apperror.InternalError(fmt.Errorf("get from wallet: %w", err))
	}
	if from == nil {
		return nil, nil, apperror.ErrNotFound("from wallet")
	}
	to, err := s.walletRepo.GetByAddress(ctx, req.ToWallet)
	if err != nil {
		return nil, nil, apperror.InternalError(fmt.Errorf("get to wallet: %w", err))
	}
	if to == nil {
		return nil, nil, apperror.ErrNotFound("to wallet")
	}

	if !domain.RoleMayInitiate(req.Role, from.OwnerType) {
		return nil, nil, apperror.ErrRoleNotPermitted(string(req.Role))
	}

	// timestamptz keeps microseconds; truncate up front so the entry we hand
	// back equals its persisted form.
	now := time.Now().UTC().Truncate(time.Microsecond)
	rejection, err := s.admit(ctx, from, to, req.Amount, req.DisasterID, now)
	if err != nil {
		return nil, nil, err
	}

	status := domain.EntryStatusCompleted
	var failureReason *string
	if rejection != nil {
		status = domain.EntryStatusFailed
		reason := rejection.Code
		failureReason = &reason
	}

	entry := &domain.LedgerEntry{
		ID:            uuid.New(),
		FromWallet:    from.Address,
		FromType:      from.OwnerType,
		ToWallet:      to.Address,
		ToType:        to.OwnerType,
		Amount:        req.Amount,
		Status:        status,
		Purpose:       req.Purpose,
		DisasterID:    req.DisasterID,
		FailureReason: failureReason,
		CreatedAt:     now,
	}
	prev := ""
	if from.ChainHead != nil {
		prev = *from.ChainHead
	}
	entry.IntegrityToken = domain.ChainToken(prev, entry)

	if err := s.ledgerRepo.Insert(ctx, dbTx, entry); err != nil {
		return nil, nil, apperror.InternalError(fmt.Errorf("insert entry: %w", err))
	}
	if err := s.walletRepo.UpdateChainHead(ctx, dbTx, from.Address, entry.IntegrityToken); err != nil {
		return nil, nil, apperror.InternalError(fmt.Errorf("update chain head: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	return entry, rejection, nil
}

// admit applies the business rules against derived state. A non-nil rejection
// means the transfer must be recorded as FAILED; a plain error means the
// check itself could not run.
func (s *LedgerServiceImpl) admit(ctx context.Context, from, to *domain.Wallet, amount int64, disasterID *string, now time.Time) (*apperror.AppError, error) {
	if !domain.TransferPermitted(from.OwnerType, to.OwnerType) {
		return apperror.ErrTransferNotPermitted(string(from.OwnerType), string(to.OwnerType)), nil
	}

	// Government wallets are the token origin; their outflow is bounded by
	// disaster allocations, not by a derived balance.
	if from.OwnerType != domain.OwnerGovernment {
		balance, err := s.ledgerRepo.BalanceOf(ctx, from.Address)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("balance fold: %w", err))
		}
		if balance < amount {
			return apperror.ErrInsufficientBalance(balance, amount), nil
		}
	}

	if from.OwnerType == domain.OwnerCitizen {
		dayStart, dayEnd := s.policy.dayBounds(now)
		spent, err := s.ledgerRepo.SpentBetween(ctx, from.Address, dayStart, dayEnd)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("daily spend fold: %w", err))
		}
		if spent+amount > s.policy.DailyLimit {
			return apperror.ErrDailyLimitExceeded(s.policy.DailyLimit, spent, amount), nil
		}
	}

	if disasterID != nil && from.OwnerType == domain.OwnerGovernment {
		d, err := s.disasterRepo.GetByID(ctx, *disasterID)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("get disaster: %w", err))
		}
		if d == nil {
			return nil, apperror.ErrNotFound("disaster")
		}
		outflow, err := s.ledgerRepo.DisasterOutflow(ctx, *disasterID)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("disaster outflow fold: %w", err))
		}
		if outflow+amount > d.AllocatedTokens {
			return apperror.ErrAllocationExceeded(*disasterID, d.AllocatedTokens, outflow, amount), nil
		}
	}

	return nil, nil
}

// GetBalance derives the wallet's balance report by folding the ledger. The
// daily figures are computed for every owner type; admission only enforces
// the cap on citizens, so for other wallets they are informational.
func (s *LedgerServiceImpl) GetBalance(ctx context.Context, wallet string) (*ports.BalanceReport, error) {
	w, err := s.walletRepo.GetByAddress(ctx, wallet)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get wallet: %w", err))
	}
	if w == nil {
		return nil, apperror.ErrNotFound("wallet")
	}

	balance, err := s.ledgerRepo.BalanceOf(ctx, wallet)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("balance fold: %w", err))
	}
	dayStart, dayEnd := s.policy.dayBounds(time.Now().UTC())
	spent, err := s.ledgerRepo.SpentBetween(ctx, wallet, dayStart, dayEnd)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("daily spend fold: %w", err))
	}

	remaining := s.policy.DailyLimit - spent
	if remaining < 0 {
		remaining = 0
	}
	return &ports.BalanceReport{
		Wallet:              wallet,
		Balance:             balance,
		SpentToday:          spent,
		RemainingDailyLimit: remaining,
	}, nil
}

// RegisterWallet creates a wallet in the registry.
func (s *LedgerServiceImpl) RegisterWallet(ctx context.Context, actor, address string, ownerType domain.OwnerType) (*domain.Wallet, error) {
	if address == "" {
		return nil, apperror.Validation("wallet address is required")
	}
	if !domain.ValidOwnerType(string(ownerType)) {
		return nil, apperror.Validation("unknown owner type")
	}

	existing, err := s.walletRepo.GetByAddress(ctx, address)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get wallet: %w", err))
	}
	if existing != nil {
		return nil, apperror.Validation("wallet address is already registered")
	}

	w := &domain.Wallet{
		Address:   address,
		OwnerType: ownerType,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.walletRepo.Create(ctx, w); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create wallet: %w", err))
	}

	s.audit(ctx, domain.AuditActionWalletCreated, "wallet", address, actor, map[string]any{
		"owner_type": string(ownerType),
	})
	s.log.Info().Str("address", address).Str("owner_type", string(ownerType)).Msg("wallet registered")

	return w, nil
}

// RegisterDisaster records a disaster allocation.
func (s *LedgerServiceImpl) RegisterDisaster(ctx context.Context, actor string, d *domain.Disaster) error {
	if d.ID == "" || d.Name == "" {
		return apperror.Validation("disaster id and name are required")
	}
	if d.AllocatedTokens <= 0 {
		return apperror.Validation("allocated_tokens must be positive")
	}

	existing, err := s.disasterRepo.GetByID(ctx, d.ID)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("get disaster: %w", err))
	}
	if existing != nil {
		return apperror.Validation("disaster id is already registered")
	}

	d.CreatedAt = time.Now().UTC()
	if err := s.disasterRepo.Create(ctx, d); err != nil {
		return apperror.InternalError(fmt.Errorf("create disaster: %w", err))
	}

	s.log.Info().Str("disaster_id", d.ID).Int64("allocated", d.AllocatedTokens).Msg("disaster registered")
	return nil
}

// ListEntries returns a filtered, paginated slice of the ledger.
func (s *LedgerServiceImpl) ListEntries(ctx context.Context, params ports.LedgerListParams) ([]domain.LedgerEntry, int64, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 {
		params.PageSize = 20
	}
	if params.PageSize > 100 {
		params.PageSize = 100
	}

	entries, total, err := s.ledgerRepo.List(ctx, params)
	if err != nil {
		return nil, 0, apperror.InternalError(fmt.Errorf("list entries: %w", err))
	}
	return entries, total, nil
}

// VerifyWalletChain recomputes the wallet's integrity chain from the ledger
// and checks it against the stored head.
func (s *LedgerServiceImpl) VerifyWalletChain(ctx context.Context, wallet string) (*ports.ChainReport, error) {
	w, err := s.walletRepo.GetByAddress(ctx, wallet)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get wallet: %w", err))
	}
	if w == nil {
		return nil, apperror.ErrNotFound("wallet")
	}

	entries, err := s.ledgerRepo.ListFromWallet(ctx, wallet)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list chain entries: %w", err))
	}

	brokenAt := domain.VerifyChain(entries, w.ChainHead)
	head := ""
	if w.ChainHead != nil {
		head = *w.ChainHead
	}
	report := &ports.ChainReport{
		Wallet:     wallet,
		Entries:    len(entries),
		Intact:     brokenAt == -1,
		BrokenAt:   brokenAt,
		ChainHead:  head,
		VerifiedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if !report.Intact {
		s.log.Warn().Str("wallet", wallet).Int("broken_at", brokenAt).Msg("integrity chain broken")
	}
	return report, nil
}

// audit dispatches an audit record; the sink is fire-and-forget.
func (s *LedgerServiceImpl) audit(ctx context.Context, action domain.AuditAction, resourceType, resourceID, actor string, details map[string]any) {
	b, _ := json.Marshal(details)
	s.auditSvc.Log(ctx, &domain.AuditLog{
		ID:           uuid.New(),
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		PerformedBy:  actor,
		Details:      string(b),
		CreatedAt:    time.Now().UTC(),
	})
}

// withDetail adds one key to an AppError's details map.
func withDetail(e *apperror.AppError, key string, value any) *apperror.AppError {
	if e.Details == nil {
		e.Details = make(map[string]any, 1)
	}
	e.Details[key] = value
	return e
}
