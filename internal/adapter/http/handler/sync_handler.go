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

// SyncHandler handles offline reconciliation endpoints.
type SyncHandler struct {
	syncSvc ports.SyncService
}

// NewSyncHandler creates a new SyncHandler.
func NewSyncHandler(syncSvc ports.SyncService) *SyncHandler {
	return &SyncHandler{syncSvc: syncSvc}
}

// SyncBatch handles POST /api/v1/sync. A merchant reconciles its own wallet;
// an admin may reconcile on a merchant's behalf via merchant_wallet.
func (h *SyncHandler) SyncBatch(c *gin.Context) {
	var req dto.SyncBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	merchant := middleware.Actor(c)
	if middleware.Role(c) == domain.RoleAdmin {
		if req.MerchantWallet == "" {
			response.Error(c, apperror.Validation("merchant_wallet is required for admin sync"))
			return
		}
		merchant = req.MerchantWallet
	}

	intents := make([]domain.OfflineIntent, 0, len(req.Intents))
	for _, i := range req.Intents {
		intents = append(intents, domain.OfflineIntent{
			CitizenWallet:  i.CitizenWallet,
			MerchantWallet: merchant,
			Amount:         i.Amount,
			Purpose:        i.Purpose,
			LocalTimestamp: i.LocalTimestamp,
			QRSignature:    i.QRSignature,
		})
	}

	results, err := h.syncSvc.SyncBatch(c.Request.Context(), merchant, intents)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"results": results})
}
