package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// OfflineIntent is a payment captured on a disconnected merchant device.
// It exists only until the reconciler turns it into a SYNCED ledger entry
// or permanently rejects it.
type OfflineIntent struct {
	CitizenWallet  string    `json:"citizen_wallet"`
	MerchantWallet string    `json:"merchant_wallet"`
	Amount         int64     `json:"amount"`
	Purpose        string    `json:"purpose"`
	LocalTimestamp time.Time `json:"local_timestamp"` // Device clock; trusted only for intra-device order
	QRSignature    string    `json:"qr_signature"`
}

// ComputeQRSignature derives the deterministic digest that identifies one
// offline payment. Re-enqueuing the identical payment (same citizen, amount,
// timestamp, merchant) after an app restart reproduces the same signature,
// which is what makes server-side dedup possible.
func ComputeQRSignature(citizenWallet string, amount int64, localTimestamp time.Time, merchantWallet string) string {
	data := fmt.Sprintf("%s|%d|%d|%s", citizenWallet, amount, localTimestamp.UTC().UnixMilli(), merchantWallet)
	sum := sha256.Sum256([]byte(data))
	return hex.EncodeToString(sum[:])
}

// Sign fills QRSignature from the intent's own fields.
func (i *OfflineIntent) Sign() {
	i.QRSignature = ComputeQRSignature(i.CitizenWallet, i.Amount, i.LocalTimestamp, i.MerchantWallet)
}

// SignatureMatches reports whether an already-ledgered entry carries the same
// payload as this intent. A match means the intent was synced before; a
// mismatch under the same signature is a conflict that needs manual review.
func (i *OfflineIntent) SignatureMatches(e *LedgerEntry) bool {
	return e.FromWallet == i.CitizenWallet &&
		e.ToWallet == i.MerchantWallet &&
		e.Amount == i.Amount
}
