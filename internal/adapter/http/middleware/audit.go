package middleware

import (
	"encoding/json"
	"strings"
	"time"

	"relief-token-ledger/internal/core/domain"
	"relief-token-ledger/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AuditLog creates an audit middleware that records successful write
// operations. Service-level audits carry the business detail; this layer
// records who touched which endpoint.
func AuditLog(auditSvc ports.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Only audit successful write operations (status 2xx)
		if c.Writer.Status() < 200 || c.Writer.Status() >= 300 {
			return
		}
		if c.Request.Method == "GET" || c.Request.Method == "HEAD" || c.Request.Method == "OPTIONS" {
			return
		}

		action, resourceType := mapPathToAction(c.Request.URL.Path, c.Request.Method)
		if action == "" {
			return
		}

		details, _ := json.Marshal(map[string]interface{}{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
			"status": c.Writer.Status(),
			"ip":     c.ClientIP(),
		})

		auditSvc.Log(c.Request.Context(), &domain.AuditLog{
			ID:           uuid.New(),
			Action:       action,
			ResourceType: resourceType,
			PerformedBy:  Actor(c),
			Details:      string(details),
			CreatedAt:    time.Now().UTC(),
		})
	}
}

func mapPathToAction(path, method string) (domain.AuditAction, string) {
	switch {
	case path == "/api/v1/payments" && method == "POST":
		return domain.AuditActionPayment, "ledger_entry"
	case path == "/api/v1/sync" && method == "POST":
		return domain.AuditActionOfflineSync, "wallet"
	case path == "/api/v1/settlements" && method == "POST":
		return domain.AuditActionSettlement, "ledger_entry"
	case strings.HasPrefix(path, "/api/v1/claims/") && method == "PATCH":
		return domain.AuditActionClaimReview, "duplicate_claim"
	case path == "/api/v1/wallets" && method == "POST":
		return domain.AuditActionWalletCreated, "wallet"
	}
	return "", ""
}
