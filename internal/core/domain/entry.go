package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EntryStatus represents the lifecycle state of a ledger entry.
type EntryStatus string

const (
	EntryStatusPending   EntryStatus = "PENDING"
	EntryStatusCompleted EntryStatus = "COMPLETED"
	EntryStatusFailed    EntryStatus = "FAILED"
	// EntryStatusSynced marks entries produced by offline reconciliation.
	// It counts identically to COMPLETED for every balance fold.
	EntryStatusSynced EntryStatus = "SYNCED"
)

// LedgerEntry is one atomic, immutable transfer record between two wallets.
// Corrections are new compensating entries, never edits.
type LedgerEntry struct {
	ID               uuid.UUID   `json:"id"`
	FromWallet       string      `json:"from_wallet"`
	FromType         OwnerType   `json:"from_type"`
	ToWallet         string      `json:"to_wallet"`
	ToType           OwnerType   `json:"to_type"`
	Amount           int64       `json:"amount"` // Whole relief tokens
	Status           EntryStatus `json:"status"`
	Purpose          string      `json:"purpose"`
	DisasterID       *string     `json:"disaster_id,omitempty"`
	BankReference    *string     `json:"bank_reference,omitempty"`
	QRSignature      *string     `json:"qr_signature,omitempty"`
	IsOffline        bool        `json:"is_offline"`
	FlaggedForReview bool        `json:"flagged_for_review"`
	FailureReason    *string     `json:"failure_reason,omitempty"`
	IntegrityToken   string      `json:"integrity_token"`
	LocalTimestamp   *time.Time  `json:"local_timestamp,omitempty"`
	CreatedAt        time.Time   `json:"created_at"`
}

// IsTerminal returns true if the entry is in a final state.
func (e *LedgerEntry) IsTerminal() bool {
	return e.Status == EntryStatusCompleted ||
		e.Status == EntryStatusFailed ||
		e.Status == EntryStatusSynced
}

// CountsForBalance reports whether the entry participates in balance folds.
func (e *LedgerEntry) CountsForBalance() bool {
	return e.Status == EntryStatusCompleted || e.Status == EntryStatusSynced
}

// ChainToken computes the integrity token of an entry given the previous
// token of its from-wallet chain. Each appended entry links to its
// predecessor, so rewriting history breaks every later token. The timestamp
// hashes at microsecond resolution, the most a timestamptz column retains,
// so a token recomputed from a persisted entry matches the one stored at
// append time.
func ChainToken(prev string, e *LedgerEntry) string {
	data := fmt.Sprintf("%s|%s|%s|%d|%d|%s|%s",
		prev, e.FromWallet, e.ToWallet, e.Amount,
		e.CreatedAt.UTC().UnixMicro(), e.Purpose, e.Status)
	sum := sha256.Sum256([]byte(data))
	return hex.EncodeToString(sum[:])
}

// VerifyChain walks entries in append order and checks each integrity token
// against its predecessor. head is the stored chain head of the wallet; it
// must match the last entry's token. Returns the index of the first broken
// link, or -1 when the chain is intact.
func VerifyChain(entries []LedgerEntry, head *string) int {
	prev := ""
	for i := range entries {
		if ChainToken(prev, &entries[i]) != entries[i].IntegrityToken {
			return i
		}
		prev = entries[i].IntegrityToken
	}
	if len(entries) > 0 && (head == nil || *head != prev) {
		return len(entries) - 1
	}
	return -1
}
