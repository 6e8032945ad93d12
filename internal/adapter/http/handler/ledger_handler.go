package handler

import (
	"strconv"
	"time"

	"relief-token-ledger/internal/adapter/http/dto"
	"relief-token-ledger/internal/adapter/http/middleware"
	"relief-token-ledger/internal/core/domain"
	"relief-token-ledger/internal/core/ports"
	"relief-token-ledger/pkg/apperror"
	"relief-token-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// LedgerHandler handles payment, balance and wallet registry endpoints.
type LedgerHandler struct {
	ledgerSvc    ports.LedgerService
	billCheckSvc ports.BillCheckService
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(ledgerSvc ports.LedgerService, billCheckSvc ports.BillCheckService) *LedgerHandler {
	return &LedgerHandler{ledgerSvc: ledgerSvc, billCheckSvc: billCheckSvc}
}

// SubmitPayment handles POST /api/v1/payments.
func (h *LedgerHandler) SubmitPayment(c *gin.Context) {
	var req dto.PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	entry, err := h.ledgerSvc.SubmitPayment(c.Request.Context(), ports.PaymentRequest{
		Actor:      middleware.Actor(c),
		Role:       middleware.Role(c),
		FromWallet: req.FromWallet,
		ToWallet:   req.ToWallet,
		Amount:     req.Amount,
		Purpose:    req.Purpose,
		DisasterID: req.DisasterID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	// NGO disbursements carry supporting documents; validation runs after
	// commit and never holds the response.
	if h.billCheckSvc != nil && entry.FromType == domain.OwnerNGO {
		h.billCheckSvc.RequestValidation(c.Request.Context(), entry.ID, entry.Purpose)
	}

	response.Created(c, toEntryResponse(entry))
}

// GetBalance handles GET /api/v1/wallets/:address/balance.
func (h *LedgerHandler) GetBalance(c *gin.Context) {
	report, err := h.ledgerSvc.GetBalance(c.Request.Context(), c.Param("address"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, report)
}

// ListEntries handles GET /api/v1/wallets/:address/entries.
func (h *LedgerHandler) ListEntries(c *gin.Context) {
	params := ports.LedgerListParams{
		Wallet:   c.Param("address"),
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "page_size", 20),
	}
	if s := c.Query("status"); s != "" {
		status := domain.EntryStatus(s)
		params.Status = &status
	}
	if s := c.Query("flagged"); s != "" {
		flagged := s == "true"
		params.Flagged = &flagged
	}

	entries, total, err := h.ledgerSvc.ListEntries(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}

	out := dto.EntryListResponse{
		Entries:  make([]dto.EntryResponse, 0, len(entries)),
		Total:    total,
		Page:     params.Page,
		PageSize: params.PageSize,
	}
	for i := range entries {
		out.Entries = append(out.Entries, toEntryResponse(&entries[i]))
	}
	response.OK(c, out)
}

// VerifyChain handles GET /api/v1/wallets/:address/chain.
func (h *LedgerHandler) VerifyChain(c *gin.Context) {
	report, err := h.ledgerSvc.VerifyWalletChain(c.Request.Context(), c.Param("address"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, report)
}

// RegisterWallet handles POST /api/v1/wallets (admin).
func (h *LedgerHandler) RegisterWallet(c *gin.Context) {
	var req dto.RegisterWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	w, err := h.ledgerSvc.RegisterWallet(c.Request.Context(), middleware.Actor(c), req.Address, domain.OwnerType(req.OwnerType))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.WalletResponse{
		Address:   w.Address,
		OwnerType: string(w.OwnerType),
		CreatedAt: w.CreatedAt.Format(time.RFC3339),
	})
}

// RegisterDisaster handles POST /api/v1/disasters (admin).
func (h *LedgerHandler) RegisterDisaster(c *gin.Context) {
	var req dto.RegisterDisasterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	d := &domain.Disaster{
		ID:              req.ID,
		Name:            req.Name,
		AllocatedTokens: req.AllocatedTokens,
	}
	if err := h.ledgerSvc.RegisterDisaster(c.Request.Context(), middleware.Actor(c), d); err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, d)
}

// toEntryResponse converts a domain.LedgerEntry to its DTO.
func toEntryResponse(e *domain.LedgerEntry) dto.EntryResponse {
	resp := dto.EntryResponse{
		ID:               e.ID.String(),
		FromWallet:       e.FromWallet,
		ToWallet:         e.ToWallet,
		Amount:           e.Amount,
		Status:           string(e.Status),
		Purpose:          e.Purpose,
		DisasterID:       e.DisasterID,
		BankReference:    e.BankReference,
		QRSignature:      e.QRSignature,
		IsOffline:        e.IsOffline,
		FlaggedForReview: e.FlaggedForReview,
		FailureReason:    e.FailureReason,
		IntegrityToken:   e.IntegrityToken,
		CreatedAt:        e.CreatedAt.Format(time.RFC3339),
	}
	if e.LocalTimestamp != nil {
		ts := e.LocalTimestamp.Format(time.RFC3339)
		resp.LocalTimestamp = &ts
	}
	return resp
}

func queryInt(c *gin.Context, key string, def int) int {
	if s := c.Query(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return def
}
