package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"relief-token-ledger/internal/core/domain"
	"relief-token-ledger/internal/core/ports"
	"relief-token-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// IdentityClaimServiceImpl implements ports.IdentityClaimService. Detection
// is advisory: it surfaces wallets sharing one identity hash for admin
// review, and never sits on the payment path.
type IdentityClaimServiceImpl struct {
	claimRepo ports.ClaimRepository
	auditSvc  ports.AuditService
	log       zerolog.Logger
}

// NewIdentityClaimService creates a new IdentityClaimServiceImpl.
func NewIdentityClaimService(claimRepo ports.ClaimRepository, auditSvc ports.AuditService, log zerolog.Logger) *IdentityClaimServiceImpl {
	return &IdentityClaimServiceImpl{
		claimRepo: claimRepo,
		auditSvc:  auditSvc,
		log:       log,
	}
}

// Observe records an (identityHash, wallet) pairing. The first wallet for a
// hash is unremarkable; a second distinct wallet flags a claim grouping all
// wallets seen for that hash. Re-observing a known pair is a no-op.
func (s *IdentityClaimServiceImpl) Observe(ctx context.Context, identityHash, wallet string) (*domain.DuplicateClaim, error) {
	if identityHash == "" || wallet == "" {
		return nil, apperror.Validation("identity_hash and wallet are required")
	}

	inserted, err := s.claimRepo.AddLink(ctx, identityHash, wallet)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("add identity link: %w", err))
	}
	if !inserted {
		// Known pair. Return the existing claim, if any.
		claim, err := s.claimRepo.GetByIdentityHash(ctx, identityHash)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("get claim: %w", err))
		}
		return claim, nil
	}

	wallets, err := s.claimRepo.WalletsForHash(ctx, identityHash)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list linked wallets: %w", err))
	}
	if len(wallets) < 2 {
		return nil, nil
	}

	existing, err := s.claimRepo.GetByIdentityHash(ctx, identityHash)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get claim: %w", err))
	}

	now := time.Now().UTC()
	claim := &domain.DuplicateClaim{
		ID:              uuid.New(),
		IdentityHash:    identityHash,
		WalletAddresses: wallets,
		Status:          domain.ClaimStatusFlagged,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if existing != nil {
		// Refresh the wallet set; the upsert preserves review status.
		claim.ID = existing.ID
		claim.Status = existing.Status
		claim.CreatedAt = existing.CreatedAt
	}
	if err := s.claimRepo.Upsert(ctx, claim); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("upsert claim: %w", err))
	}

	if existing == nil {
		details, _ := json.Marshal(map[string]any{"wallets": wallets})
		s.auditSvc.Log(ctx, &domain.AuditLog{
			ID:           uuid.New(),
			Action:       domain.AuditActionClaimFlagged,
			ResourceType: "duplicate_claim",
			ResourceID:   claim.ID.String(),
			PerformedBy:  "system",
			Details:      string(details),
			CreatedAt:    now,
		})
		s.log.Warn().
			Str("claim_id", claim.ID.String()).
			Int("wallets", len(wallets)).
			Msg("identity linked to multiple wallets")
	}

	return claim, nil
}

// ListClaims returns claims, optionally filtered by review status.
func (s *IdentityClaimServiceImpl) ListClaims(ctx context.Context, status *domain.ClaimStatus) ([]domain.DuplicateClaim, error) {
	claims, err := s.claimRepo.List(ctx, status)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list claims: %w", err))
	}
	return claims, nil
}

// Review moves a claim through flagged -> reviewed -> cleared.
func (s *IdentityClaimServiceImpl) Review(ctx context.Context, actor string, claimID uuid.UUID, to domain.ClaimStatus) (*domain.DuplicateClaim, error) {
	if !domain.ValidClaimStatus(string(to)) {
		return nil, apperror.Validation("unknown claim status")
	}

	claim, err := s.claimRepo.GetByID(ctx, claimID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get claim: %w", err))
	}
	if claim == nil {
		return nil, apperror.ErrNotFound("claim")
	}
	if !claim.CanTransition(to) {
		return nil, apperror.ErrInvalidClaimTransition(string(claim.Status), string(to))
	}

	if err := s.claimRepo.UpdateStatus(ctx, claimID, to); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update claim status: %w", err))
	}

	details, _ := json.Marshal(map[string]any{"from": claim.Status, "to": to})
	s.auditSvc.Log(ctx, &domain.AuditLog{
		ID:           uuid.New(),
		Action:       domain.AuditActionClaimReview,
		ResourceType: "duplicate_claim",
		ResourceID:   claimID.String(),
		PerformedBy:  actor,
		Details:      string(details),
		CreatedAt:    time.Now().UTC(),
	})

	claim.Status = to
	claim.UpdatedAt = time.Now().UTC()
	return claim, nil
}
