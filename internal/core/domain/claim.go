package domain

import (
	"time"

	"github.com/google/uuid"
)

// ClaimStatus is the review state of a duplicate-identity claim.
type ClaimStatus string

const (
	ClaimStatusFlagged  ClaimStatus = "FLAGGED"
	ClaimStatusReviewed ClaimStatus = "REVIEWED"
	ClaimStatusCleared  ClaimStatus = "CLEARED"
)

// DuplicateClaim groups wallets that share one identity hash. Purely
// advisory: it never blocks a transaction, only surfaces for admin review.
type DuplicateClaim struct {
	ID              uuid.UUID   `json:"id"`
	IdentityHash    string      `json:"identity_hash"`
	WalletAddresses []string    `json:"wallet_addresses"`
	Status          ClaimStatus `json:"status"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// CanTransition reports whether a review transition is allowed.
// flagged -> reviewed -> cleared, with flagged -> cleared as a shortcut
// for obviously benign cases.
func (c *DuplicateClaim) CanTransition(to ClaimStatus) bool {
	switch c.Status {
	case ClaimStatusFlagged:
		return to == ClaimStatusReviewed || to == ClaimStatusCleared
	case ClaimStatusReviewed:
		return to == ClaimStatusCleared
	}
	return false
}

// ValidClaimStatus reports whether s names a known claim status.
func ValidClaimStatus(s string) bool {
	switch ClaimStatus(s) {
	case ClaimStatusFlagged, ClaimStatusReviewed, ClaimStatusCleared:
		return true
	}
	return false
}
