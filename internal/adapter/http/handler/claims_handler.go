package handler

import (
	"time"

	"relief-token-ledger/internal/adapter/http/dto"
	"relief-token-ledger/internal/adapter/http/middleware"
	"relief-token-ledger/internal/core/domain"
	"relief-token-ledger/internal/core/ports"
	"relief-token-ledger/pkg/apperror"
	"relief-token-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ClaimsHandler handles duplicate-identity detection endpoints.
type ClaimsHandler struct {
	identitySvc ports.IdentityClaimService
}

// NewClaimsHandler creates a new ClaimsHandler.
func NewClaimsHandler(identitySvc ports.IdentityClaimService) *ClaimsHandler {
	return &ClaimsHandler{identitySvc: identitySvc}
}

// Observe handles POST /api/v1/identity/observations. The identity service
// reports each (hash, wallet) pairing it sees during registration.
func (h *ClaimsHandler) Observe(c *gin.Context) {
	var req dto.ObservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	claim, err := h.identitySvc.Observe(c.Request.Context(), req.IdentityHash, req.Wallet)
	if err != nil {
		response.Error(c, err)
		return
	}
	if claim == nil {
		response.OK(c, gin.H{"flagged": false})
		return
	}
	response.OK(c, gin.H{"flagged": claim.Status == domain.ClaimStatusFlagged, "claim": toClaimResponse(claim)})
}

// ListClaims handles GET /api/v1/claims (admin).
func (h *ClaimsHandler) ListClaims(c *gin.Context) {
	var status *domain.ClaimStatus
	if s := c.Query("status"); s != "" {
		if !domain.ValidClaimStatus(s) {
			response.Error(c, apperror.Validation("unknown claim status"))
			return
		}
		cs := domain.ClaimStatus(s)
		status = &cs
	}

	claims, err := h.identitySvc.ListClaims(c.Request.Context(), status)
	if err != nil {
		response.Error(c, err)
		return
	}

	out := make([]dto.ClaimResponse, 0, len(claims))
	for i := range claims {
		out = append(out, toClaimResponse(&claims[i]))
	}
	response.OK(c, gin.H{"claims": out})
}

// ReviewClaim handles PATCH /api/v1/claims/:id (admin).
func (h *ClaimsHandler) ReviewClaim(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid claim id"))
		return
	}

	var req dto.ClaimReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	claim, err := h.identitySvc.Review(c.Request.Context(), middleware.Actor(c), id, domain.ClaimStatus(req.Status))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toClaimResponse(claim))
}

func toClaimResponse(claim *domain.DuplicateClaim) dto.ClaimResponse {
	return dto.ClaimResponse{
		ID:              claim.ID.String(),
		IdentityHash:    claim.IdentityHash,
		WalletAddresses: claim.WalletAddresses,
		Status:          string(claim.Status),
		CreatedAt:       claim.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       claim.UpdatedAt.Format(time.RFC3339),
	}
}
