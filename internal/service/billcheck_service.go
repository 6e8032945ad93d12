package service

import (
	"context"
	"encoding/json"
	"time"

	"relief-token-ledger/internal/core/domain"
	"relief-token-ledger/internal/core/ports"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// BillCheckServiceImpl implements ports.BillCheckService. The external
// document validator is slow and flaky; verdicts land in a side table after
// the entry has already committed, and never gate a payment.
type BillCheckServiceImpl struct {
	validator   ports.BillValidator
	verdictRepo ports.VerdictRepository
	auditSvc    ports.AuditService
	maxElapsed  time.Duration
	log         zerolog.Logger
}

// NewBillCheckService creates a new BillCheckServiceImpl. maxElapsed bounds
// the total retry budget per validation request.
func NewBillCheckService(
	validator ports.BillValidator,
	verdictRepo ports.VerdictRepository,
	auditSvc ports.AuditService,
	maxElapsed time.Duration,
	log zerolog.Logger,
) *BillCheckServiceImpl {
	return &BillCheckServiceImpl{
		validator:   validator,
		verdictRepo: verdictRepo,
		auditSvc:    auditSvc,
		maxElapsed:  maxElapsed,
		log:         log,
	}
}

// RequestValidation hands the entry's document off to the external validator
// asynchronously, retrying with exponential backoff. The caller returns
// immediately; the verdict attaches whenever it arrives.
func (s *BillCheckServiceImpl) RequestValidation(ctx context.Context, entryID uuid.UUID, documentRef string) {
	go s.run(context.WithoutCancel(ctx), entryID, documentRef)
}

func (s *BillCheckServiceImpl) run(ctx context.Context, entryID uuid.UUID, documentRef string) {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = s.maxElapsed

	var verdict string
	op := func() error {
		v, err := s.validator.Validate(ctx, entryID, documentRef)
		if err != nil {
			return err
		}
		verdict = v
		return nil
	}

	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		s.log.Error().
			Err(err).
			Str("entry_id", entryID.String()).
			Str("document_ref", documentRef).
			Msg("bill validation gave up after retries")
		if err := s.verdictRepo.Attach(ctx, entryID, "UNAVAILABLE", err.Error()); err != nil {
			s.log.Error().Err(err).Str("entry_id", entryID.String()).Msg("failed to record validator failure")
		}
		return
	}

	if err := s.verdictRepo.Attach(ctx, entryID, verdict, documentRef); err != nil {
		s.log.Error().Err(err).Str("entry_id", entryID.String()).Msg("failed to attach verdict")
		return
	}

	details, _ := json.Marshal(map[string]any{"verdict": verdict, "document_ref": documentRef})
	s.auditSvc.Log(ctx, &domain.AuditLog{
		ID:           uuid.New(),
		Action:       domain.AuditActionBillVerdict,
		ResourceType: "ledger_entry",
		ResourceID:   entryID.String(),
		PerformedBy:  "system",
		Details:      string(details),
		CreatedAt:    time.Now().UTC(),
	})
	s.log.Info().
		Str("entry_id", entryID.String()).
		Str("verdict", verdict).
		Msg("bill verdict attached")
}
