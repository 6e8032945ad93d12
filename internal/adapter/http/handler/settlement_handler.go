package handler

import (
	"relief-token-ledger/internal/adapter/http/dto"
	"relief-token-ledger/internal/adapter/http/middleware"
	"relief-token-ledger/internal/core/domain"
	"relief-token-ledger/internal/core/ports"
	"relief-token-ledger/pkg/apperror"
	"relief-token-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// SettlementHandler handles merchant payout endpoints.
type SettlementHandler struct {
	settlementSvc ports.SettlementService
}

// NewSettlementHandler creates a new SettlementHandler.
func NewSettlementHandler(settlementSvc ports.SettlementService) *SettlementHandler {
	return &SettlementHandler{settlementSvc: settlementSvc}
}

// Settle handles POST /api/v1/settlements. Merchants settle their own
// wallet; the authenticated actor is the merchant wallet address.
func (h *SettlementHandler) Settle(c *gin.Context) {
	var req dto.SettlementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	entry, err := h.settlementSvc.Settle(c.Request.Context(), ports.SettlementRequest{
		Actor:          middleware.Actor(c),
		MerchantWallet: middleware.Actor(c),
		Amount:         req.Amount,
		BankReference:  req.BankReference,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, toEntryResponse(entry))
}

// PendingSettlement handles GET /api/v1/settlements/:merchant/pending.
// A merchant may only query its own wallet; admins may query any.
func (h *SettlementHandler) PendingSettlement(c *gin.Context) {
	merchant := c.Param("merchant")
	if middleware.Role(c) != domain.RoleAdmin && middleware.Actor(c) != merchant {
		response.Error(c, apperror.ErrRoleNotPermitted(string(middleware.Role(c))))
		return
	}

	pending, err := h.settlementSvc.PendingSettlement(c.Request.Context(), merchant)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.PendingSettlementResponse{
		MerchantWallet:    merchant,
		PendingSettlement: pending,
	})
}
