package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"relief-token-ledger/internal/core/domain"
	"relief-token-ledger/internal/core/ports"
	"relief-token-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
)

const uniqueViolationCode = "23505"

// SyncServiceImpl implements ports.SyncService. Each offline intent is
// reconciled exactly once: the qr_signature is checked against the cache,
// then the ledger, and the ledger's unique index is the last line of defense
// against concurrent syncs of the same intent from two devices.
type SyncServiceImpl struct {
	walletRepo ports.WalletRepository
	ledgerRepo ports.LedgerRepository
	transactor ports.DBTransactor
	locker     ports.WalletLocker
	sigCache   ports.SignatureCache
	auditSvc   ports.AuditService
	policy     Policy
	log        zerolog.Logger
}

// NewSyncService creates a new SyncServiceImpl.
func NewSyncService(
	walletRepo ports.WalletRepository,
	ledgerRepo ports.LedgerRepository,
	transactor ports.DBTransactor,
	locker ports.WalletLocker,
	sigCache ports.SignatureCache,
	auditSvc ports.AuditService,
	policy Policy,
	log zerolog.Logger,
) *SyncServiceImpl {
	return &SyncServiceImpl{
		walletRepo: walletRepo,
		ledgerRepo: ledgerRepo,
		transactor: transactor,
		locker:     locker,
		sigCache:   sigCache,
		auditSvc:   auditSvc,
		policy:     policy,
		log:        log,
	}
}

// SyncBatch reconciles a merchant's offline intents. Intents run in local
// timestamp order so retroactive checks see cumulative state including the
// earlier intents of the same batch. The batch never fails as a whole; every
// intent gets its own outcome.
func (s *SyncServiceImpl) SyncBatch(ctx context.Context, merchantWallet string, intents []domain.OfflineIntent) ([]ports.SyncResult, error) {
	if len(intents) == 0 {
		return []ports.SyncResult{}, nil
	}
	if s.policy.MaxSyncBatch > 0 && len(intents) > s.policy.MaxSyncBatch {
		return nil, apperror.Validation(fmt.Sprintf("batch exceeds %d intents", s.policy.MaxSyncBatch))
	}

	merchant, err := s.walletRepo.GetByAddress(ctx, merchantWallet)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get merchant wallet: %w", err))
	}
	if merchant == nil {
		return nil, apperror.ErrNotFound("merchant wallet")
	}
	if merchant.OwnerType != domain.OwnerMerchant {
		return nil, apperror.Validation("sync target is not a merchant wallet")
	}

	// Device clocks order intents only relative to each other; batches from
	// different devices interleave in server receipt order.
	sorted := make([]domain.OfflineIntent, len(intents))
	copy(sorted, intents)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].LocalTimestamp.Before(sorted[j].LocalTimestamp)
	})

	results := make([]ports.SyncResult, 0, len(sorted))
	counts := map[ports.SyncOutcome]int{}
	for i := range sorted {
		res := s.reconcileIntent(ctx, merchant, &sorted[i])
		counts[res.Outcome]++
		results = append(results, res)
	}

	details, _ := json.Marshal(map[string]any{
		"merchant":           merchantWallet,
		"intents":            len(sorted),
		"synced":             counts[ports.SyncOutcomeSynced],
		"already_synced":     counts[ports.SyncOutcomeAlreadySynced],
		"signature_conflict": counts[ports.SyncOutcomeSignatureConflict],
		"rejected":           counts[ports.SyncOutcomeRejected],
	})
	s.auditSvc.Log(ctx, &domain.AuditLog{
		ID:           uuid.New(),
		Action:       domain.AuditActionOfflineSync,
		ResourceType: "wallet",
		ResourceID:   merchantWallet,
		PerformedBy:  merchantWallet,
		Details:      string(details),
		CreatedAt:    time.Now().UTC(),
	})
	s.log.Info().
		Str("merchant", merchantWallet).
		Int("intents", len(sorted)).
		Int("synced", counts[ports.SyncOutcomeSynced]).
		Int("rejected", counts[ports.SyncOutcomeRejected]).
		Msg("offline batch reconciled")

	return results, nil
}

func (s *SyncServiceImpl) reconcileIntent(ctx context.Context, merchant *domain.Wallet, intent *domain.OfflineIntent) ports.SyncResult {
	// The signature is the intent's identity. Devices derive it from the
	// payload; the server only needs it to be stable, so a provided one is
	// trusted and an absent one is derived here.
	if intent.QRSignature == "" {
		intent.Sign()
	}

	if intent.Amount <= 0 {
		return rejected(intent.QRSignature, "amount must be positive")
	}
	if intent.MerchantWallet != merchant.Address {
		return rejected(intent.QRSignature, "intent is addressed to a different merchant")
	}

	// Fast path: Redis remembers recently synced signatures.
	if cachedID, err := s.sigCache.Get(ctx, intent.QRSignature); err != nil {
		s.log.Warn().Err(err).Msg("signature cache lookup failed, falling through to ledger")
	} else if cachedID != "" {
		if id, err := uuid.Parse(cachedID); err == nil {
			if entry, err := s.ledgerRepo.GetByID(ctx, id); err == nil && entry != nil {
				return s.matchExisting(intent, entry)
			}
		}
	}

	existing, err := s.ledgerRepo.GetByQRSignature(ctx, intent.QRSignature)
	if err != nil {
		return rejected(intent.QRSignature, "ledger lookup failed, retry")
	}
	if existing != nil {
		return s.matchExisting(intent, existing)
	}

	var res ports.SyncResult
	lockErr := s.locker.WithWalletLock(ctx, intent.CitizenWallet, func(ctx context.Context) error {
		res = s.appendIntent(ctx, merchant, intent)
		return nil
	})
	if lockErr != nil {
		return rejected(intent.QRSignature, "citizen wallet is busy, retry")
	}
	return res
}

// matchExisting resolves an intent whose signature is already in the ledger.
func (s *SyncServiceImpl) matchExisting(intent *domain.OfflineIntent, entry *domain.LedgerEntry) ports.SyncResult {
	if intent.SignatureMatches(entry) {
		id := entry.ID
		return ports.SyncResult{
			QRSignature: intent.QRSignature,
			EntryID:     &id,
			Outcome:     ports.SyncOutcomeAlreadySynced,
			Flagged:     entry.FlaggedForReview,
		}
	}
	s.log.Warn().
		Str("qr_signature", intent.QRSignature).
		Str("entry_id", entry.ID.String()).
		Msg("signature conflict: same signature, different payload")
	return ports.SyncResult{
		QRSignature: intent.QRSignature,
		Outcome:     ports.SyncOutcomeSignatureConflict,
		Reason:      "signature already recorded with a different payload",
	}
}

// appendIntent commits one unseen intent inside the citizen wallet lock.
// Retroactive check failures flag the entry but still commit it as SYNCED;
// a sale that already happened at the shop is never silently dropped.
func (s *SyncServiceImpl) appendIntent(ctx context.Context, merchant *domain.Wallet, intent *domain.OfflineIntent) ports.SyncResult {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return rejected(intent.QRSignature, "ledger unavailable, retry")
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	citizen, err := s.walletRepo.GetByAddressTx(ctx, dbTx, intent.CitizenWallet)
	if err != nil {
		return rejected(intent.QRSignature, "ledger unavailable, retry")
	}
	if citizen == nil {
		return rejected(intent.QRSignature, "unknown citizen wallet")
	}
	if citizen.OwnerType != domain.OwnerCitizen {
		return rejected(intent.QRSignature, "paying wallet is not a citizen wallet")
	}

	flagged := false
	flagReason := ""

	balance, err := s.ledgerRepo.BalanceOf(ctx, intent.CitizenWallet)
	if err != nil {
		return rejected(intent.QRSignature, "ledger unavailable, retry")
	}
	if balance < intent.Amount {
		flagged = true
		flagReason = "balance insufficient at reconciliation"
	}

	// The spend day is the day the sale happened on, per the device clock.
	dayStart, dayEnd := s.policy.dayBounds(intent.LocalTimestamp)
	spent, err := s.ledgerRepo.SpentBetween(ctx, intent.CitizenWallet, dayStart, dayEnd)
	if err != nil {
		return rejected(intent.QRSignature, "ledger unavailable, retry")
	}
	if spent+intent.Amount > s.policy.DailyLimit {
		flagged = true
		if flagReason == "" {
			flagReason = "daily limit exceeded at reconciliation"
		}
	}

	now := time.Now().UTC().Truncate(time.Microsecond)
	localTs := intent.LocalTimestamp
	sig := intent.QRSignature
	entry := &domain.LedgerEntry{
		ID:               uuid.New(),
		FromWallet:       citizen.Address,
		FromType:         citizen.OwnerType,
		ToWallet:         merchant.Address,
		ToType:           merchant.OwnerType,
		Amount:           intent.Amount,
		Status:           domain.EntryStatusSynced,
		Purpose:          intent.Purpose,
		QRSignature:      &sig,
		IsOffline:        true,
		FlaggedForReview: flagged,
		LocalTimestamp:   &localTs,
		CreatedAt:        now,
	}
	prev := ""
	if citizen.ChainHead != nil {
		prev = *citizen.ChainHead
	}
	entry.IntegrityToken = domain.ChainToken(prev, entry)

	if err := s.ledgerRepo.Insert(ctx, dbTx, entry); err != nil {
		// Another device synced the same signature first; the unique index
		// caught it. Resolve against what got there.
		if isUniqueViolation(err) {
			_ = dbTx.Rollback(ctx)
			racing, lookupErr := s.ledgerRepo.GetByQRSignature(ctx, intent.QRSignature)
			if lookupErr == nil && racing != nil {
				return s.matchExisting(intent, racing)
			}
		}
		return rejected(intent.QRSignature, "ledger unavailable, retry")
	}
	if err := s.walletRepo.UpdateChainHead(ctx, dbTx, citizen.Address, entry.IntegrityToken); err != nil {
		return rejected(intent.QRSignature, "ledger unavailable, retry")
	}
	if err := dbTx.Commit(ctx); err != nil {
		return rejected(intent.QRSignature, "ledger unavailable, retry")
	}

	if err := s.sigCache.Set(ctx, intent.QRSignature, entry.ID.String()); err != nil {
		s.log.Warn().Err(err).Msg("failed to cache synced signature")
	}
	if flagged {
		s.log.Warn().
			Str("entry_id", entry.ID.String()).
			Str("citizen", citizen.Address).
			Str("reason", flagReason).
			Msg("offline intent flagged for review")
	}

	id := entry.ID
	return ports.SyncResult{
		QRSignature: intent.QRSignature,
		EntryID:     &id,
		Outcome:     ports.SyncOutcomeSynced,
		Flagged:     flagged,
		Reason:      flagReason,
	}
}

func rejected(signature, reason string) ports.SyncResult {
	return ports.SyncResult{
		QRSignature: signature,
		Outcome:     ports.SyncOutcomeRejected,
		Reason:      reason,
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}
