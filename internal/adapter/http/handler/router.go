package handler

import (
	"relief-token-ledger/internal/adapter/http/middleware"
	"relief-token-ledger/internal/core/domain"
	"relief-token-ledger/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	LedgerSvc      ports.LedgerService
	SyncSvc        ports.SyncService
	SettlementSvc  ports.SettlementService
	IdentitySvc    ports.IdentityClaimService
	BillCheckSvc   ports.BillCheckService // nil = bill validation disabled
	TokenSvc       ports.TokenService
	AuditSvc       ports.AuditService // nil = request audit disabled
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Audit logging (after response)
	if deps.AuditSvc != nil {
		r.Use(middleware.AuditLog(deps.AuditSvc))
	}

	// Health check (deep — verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)
	adminOnly := middleware.RequireRoles(domain.RoleAdmin)
	merchantOrAdmin := middleware.RequireRoles(domain.RoleMerchant, domain.RoleAdmin)

	ledgerHandler := NewLedgerHandler(deps.LedgerSvc, deps.BillCheckSvc)
	syncHandler := NewSyncHandler(deps.SyncSvc)
	settlementHandler := NewSettlementHandler(deps.SettlementSvc)
	claimsHandler := NewClaimsHandler(deps.IdentitySvc)

	v1 := r.Group("/api/v1", jwtAuth)

	// --- Payments & wallets ---
	v1.POST("/payments", ledgerHandler.SubmitPayment)
	wallets := v1.Group("/wallets")
	{
		wallets.POST("", adminOnly, ledgerHandler.RegisterWallet)
		wallets.GET("/:address/balance", ledgerHandler.GetBalance)
		wallets.GET("/:address/entries", ledgerHandler.ListEntries)
		wallets.GET("/:address/chain", ledgerHandler.VerifyChain)
	}
	v1.POST("/disasters", adminOnly, ledgerHandler.RegisterDisaster)

	// --- Offline reconciliation ---
	v1.POST("/sync", merchantOrAdmin, syncHandler.SyncBatch)

	// --- Settlement ---
	settlements := v1.Group("/settlements", merchantOrAdmin)
	{
		settlements.POST("", settlementHandler.Settle)
		settlements.GET("/:merchant/pending", settlementHandler.PendingSettlement)
	}

	// --- Duplicate identity ---
	v1.POST("/identity/observations", adminOnly, claimsHandler.Observe)
	claims := v1.Group("/claims", adminOnly)
	{
		claims.GET("", claimsHandler.ListClaims)
		claims.PATCH("/:id", claimsHandler.ReviewClaim)
	}

	return r
}
