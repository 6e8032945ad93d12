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

// SettlementServiceImpl implements ports.SettlementService. Pending
// settlement is always re-derived at commit time under the merchant wallet
// lock, so a sync batch landing between quote and commit can only raise the
// pending total, never let a payout overshoot it.
type SettlementServiceImpl struct {
	walletRepo ports.WalletRepository
	ledgerRepo ports.LedgerRepository
	bankRepo   ports.WalletRepository // Same registry; named for the payout side
	transactor ports.DBTransactor
	locker     ports.WalletLocker
	auditSvc   ports.AuditService
	policy     Policy
	log        zerolog.Logger
}

// NewSettlementService creates a new SettlementServiceImpl.
func NewSettlementService(
	walletRepo ports.WalletRepository,
	ledgerRepo ports.LedgerRepository,
	transactor ports.DBTransactor,
	locker ports.WalletLocker,
	auditSvc ports.AuditService,
	policy Policy,
	log zerolog.Logger,
) *SettlementServiceImpl {
	return &SettlementServiceImpl{
		walletRepo: walletRepo,
		ledgerRepo: ledgerRepo,
		bankRepo:   walletRepo,
		transactor: transactor,
		locker:     locker,
		auditSvc:   auditSvc,
		policy:     policy,
		log:        log,
	}
}

// PendingSettlement derives the merchant's settleable total: everything
// received minus everything already settled to the bank.
func (s *SettlementServiceImpl) PendingSettlement(ctx context.Context, merchantWallet string) (int64, error) {
	w, err := s.walletRepo.GetByAddress(ctx, merchantWallet)
	if err != nil {
		return 0, apperror.InternalError(fmt.Errorf("get merchant wallet: %w", err))
	}
	if w == nil {
		return 0, apperror.ErrNotFound("merchant wallet")
	}
	if w.OwnerType != domain.OwnerMerchant {
		return 0, apperror.Validation("wallet is not a merchant wallet")
	}
	return s.pendingOf(ctx, merchantWallet)
}

func (s *SettlementServiceImpl) pendingOf(ctx context.Context, merchantWallet string) (int64, error) {
	received, err := s.ledgerRepo.ReceivedTotal(ctx, merchantWallet)
	if err != nil {
		return 0, apperror.InternalError(fmt.Errorf("received fold: %w", err))
	}
	settled, err := s.ledgerRepo.SettledTotal(ctx, merchantWallet)
	if err != nil {
		return 0, apperror.InternalError(fmt.Errorf("settled fold: %w", err))
	}
	return received - settled, nil
}

// Settle converts part of a merchant's pending total into a bank payout entry.
func (s *SettlementServiceImpl) Settle(ctx context.Context, req ports.SettlementRequest) (*domain.LedgerEntry, error) {
	if req.Amount <= 0 {
		return nil, apperror.Validation("amount must be positive")
	}
	if req.BankReference == "" {
		return nil, apperror.Validation("bank_reference is required")
	}

	var entry *domain.LedgerEntry
	err := s.locker.WithWalletLock(ctx, req.MerchantWallet, func(ctx context.Context) error {
		var err error
		entry, err = s.commitSettlement(ctx, req)
		return err
	})
	if err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, apperror.ErrConcurrencyConflict(err)
	}

	details, _ := json.Marshal(map[string]any{
		"merchant":       req.MerchantWallet,
		"amount":         req.Amount,
		"bank_reference": req.BankReference,
		"payout_value":   float64(req.Amount) * s.policy.TokenValue,
	})
	s.auditSvc.Log(ctx, &domain.AuditLog{
		ID:           uuid.New(),
		Action:       domain.AuditActionSettlement,
		ResourceType: "ledger_entry",
		ResourceID:   entry.ID.String(),
		PerformedBy:  req.Actor,
		Details:      string(details),
		CreatedAt:    time.Now().UTC(),
	})
	s.log.Info().
		Str("entry_id", entry.ID.String()).
		Str("merchant", req.MerchantWallet).
		Int64("amount", req.Amount).
		Str("bank_reference", req.BankReference).
		Msg("settlement committed")

	return entry, nil
}

func (s *SettlementServiceImpl) commitSettlement(ctx context.Context, req ports.SettlementRequest) (*domain.LedgerEntry, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	merchant, err := s.walletRepo.GetByAddressTx(ctx, dbTx, req.MerchantWallet)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get merchant wallet: %w", err))
	}
	if merchant == nil {
		return nil, apperror.ErrNotFound("merchant wallet")
	}
	if merchant.OwnerType != domain.OwnerMerchant {
		return nil, apperror.Validation("wallet is not a merchant wallet")
	}

	bank, err := s.bankRepo.GetByAddress(ctx, bankWalletAddress)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get bank wallet: %w", err))
	}
	if bank == nil {
		return nil, apperror.ErrNotFound("bank wallet")
	}

	exists, err := s.ledgerRepo.BankReferenceExists(ctx, req.BankReference)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("check bank reference: %w", err))
	}
	if exists {
		return nil, apperror.ErrDuplicateReference(req.BankReference)
	}

	// Re-derived here, inside the lock. The quote the caller saw earlier may
	// be stale; only this figure decides.
	pending, err := s.pendingOf(ctx, req.MerchantWallet)
	if err != nil {
		return nil, err
	}
	if req.Amount > pending {
		return nil, apperror.ErrAmountExceedsPending(pending, req.Amount)
	}

	now := time.Now().UTC().Truncate(time.Microsecond)
	ref := req.BankReference
	entry := &domain.LedgerEntry{
		ID:            uuid.New(),
		FromWallet:    merchant.Address,
		FromType:      merchant.OwnerType,
		ToWallet:      bank.Address,
		ToType:        bank.OwnerType,
		Amount:        req.Amount,
		Status:        domain.EntryStatusCompleted,
		Purpose:       "settlement",
		BankReference: &ref,
		CreatedAt:     now,
	}
	prev := ""
	if merchant.ChainHead != nil {
		prev = *merchant.ChainHead
	}
	entry.IntegrityToken = domain.ChainToken(prev, entry)

	if err := s.ledgerRepo.Insert(ctx, dbTx, entry); err != nil {
		if isUniqueViolation(err) {
			return nil, apperror.ErrDuplicateReference(req.BankReference)
		}
		return nil, apperror.InternalError(fmt.Errorf("insert settlement entry: %w", err))
	}
	if err := s.walletRepo.UpdateChainHead(ctx, dbTx, merchant.Address, entry.IntegrityToken); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update chain head: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	return entry, nil
}

// bankWalletAddress is the single payout counterparty. Created once at
// bootstrap; every settlement entry points at it.
const bankWalletAddress = "BANK_SETTLEMENT"
