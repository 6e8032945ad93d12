package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of audited action.
type AuditAction string

const (
	AuditActionPayment         AuditAction = "PAYMENT"
	AuditActionPaymentRejected AuditAction = "PAYMENT_REJECTED"
	AuditActionOfflineSync     AuditAction = "OFFLINE_SYNC"
	AuditActionSettlement      AuditAction = "SETTLEMENT"
	AuditActionClaimFlagged    AuditAction = "CLAIM_FLAGGED"
	AuditActionClaimReview     AuditAction = "CLAIM_REVIEW"
	AuditActionBillVerdict     AuditAction = "BILL_VERDICT"
	AuditActionWalletCreated   AuditAction = "WALLET_CREATED"
)

// AuditLog records one terminal state transition for the audit sink.
type AuditLog struct {
	ID           uuid.UUID   `json:"id"`
	Action       AuditAction `json:"action"`
	ResourceType string      `json:"resource_type"`
	ResourceID   string      `json:"resource_id,omitempty"`
	PerformedBy  string      `json:"performed_by"`
	Details      string      `json:"details,omitempty"` // JSON string
	CreatedAt    time.Time   `json:"created_at"`
}
