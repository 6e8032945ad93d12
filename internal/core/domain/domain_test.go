package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransferPermitted(t *testing.T) {
	assert.True(t, TransferPermitted(OwnerGovernment, OwnerNGO))
	assert.True(t, TransferPermitted(OwnerGovernment, OwnerCitizen))
	assert.True(t, TransferPermitted(OwnerNGO, OwnerCitizen))
	assert.True(t, TransferPermitted(OwnerCitizen, OwnerMerchant))
	assert.True(t, TransferPermitted(OwnerMerchant, OwnerBank))

	assert.False(t, TransferPermitted(OwnerCitizen, OwnerCitizen))
	assert.False(t, TransferPermitted(OwnerMerchant, OwnerCitizen))
	assert.False(t, TransferPermitted(OwnerBank, OwnerMerchant))
	assert.False(t, TransferPermitted(OwnerNGO, OwnerMerchant))
}

func TestRoleMayInitiate(t *testing.T) {
	assert.True(t, RoleMayInitiate(RoleCitizen, OwnerCitizen))
	assert.True(t, RoleMayInitiate(RoleMerchant, OwnerMerchant))
	assert.True(t, RoleMayInitiate(RoleNGO, OwnerNGO))
	assert.True(t, RoleMayInitiate(RoleAdmin, OwnerGovernment))
	assert.True(t, RoleMayInitiate(RoleAdmin, OwnerCitizen))

	assert.False(t, RoleMayInitiate(RoleCitizen, OwnerMerchant))
	assert.False(t, RoleMayInitiate(RoleMerchant, OwnerCitizen))
	assert.False(t, RoleMayInitiate(Role("bank"), OwnerBank))
}

func TestLedgerEntry_Terminal(t *testing.T) {
	e := &LedgerEntry{Status: EntryStatusPending}
	assert.False(t, e.IsTerminal())

	for _, s := range []EntryStatus{EntryStatusCompleted, EntryStatusFailed, EntryStatusSynced} {
		e.Status = s
		assert.True(t, e.IsTerminal(), string(s))
	}
}

func TestLedgerEntry_CountsForBalance(t *testing.T) {
	e := &LedgerEntry{Status: EntryStatusCompleted}
	assert.True(t, e.CountsForBalance())
	e.Status = EntryStatusSynced
	assert.True(t, e.CountsForBalance())
	e.Status = EntryStatusFailed
	assert.False(t, e.CountsForBalance())
	e.Status = EntryStatusPending
	assert.False(t, e.CountsForBalance())
}

func TestComputeQRSignature_Deterministic(t *testing.T) {
	ts := time.Date(2025, 6, 14, 9, 30, 0, 0, time.UTC)
	sig1 := ComputeQRSignature("wlt_citizen_1", 250, ts, "wlt_merchant_1")
	sig2 := ComputeQRSignature("wlt_citizen_1", 250, ts, "wlt_merchant_1")
	assert.Equal(t, sig1, sig2)
	assert.Len(t, sig1, 64)

	// Any payload field change produces a different digest.
	assert.NotEqual(t, sig1, ComputeQRSignature("wlt_citizen_2", 250, ts, "wlt_merchant_1"))
	assert.NotEqual(t, sig1, ComputeQRSignature("wlt_citizen_1", 251, ts, "wlt_merchant_1"))
	assert.NotEqual(t, sig1, ComputeQRSignature("wlt_citizen_1", 250, ts.Add(time.Millisecond), "wlt_merchant_1"))
	assert.NotEqual(t, sig1, ComputeQRSignature("wlt_citizen_1", 250, ts, "wlt_merchant_2"))
}

func TestOfflineIntent_SignatureMatches(t *testing.T) {
	intent := &OfflineIntent{
		CitizenWallet:  "wlt_c",
		MerchantWallet: "wlt_m",
		Amount:         100,
	}
	entry := &LedgerEntry{FromWallet: "wlt_c", ToWallet: "wlt_m", Amount: 100}
	assert.True(t, intent.SignatureMatches(entry))

	entry.Amount = 101
	assert.False(t, intent.SignatureMatches(entry))
}

func TestChainToken_LinksToPredecessor(t *testing.T) {
	now := time.Now().UTC()
	e1 := &LedgerEntry{
		ID: uuid.New(), FromWallet: "wlt_a", ToWallet: "wlt_b",
		Amount: 100, Purpose: "relief", Status: EntryStatusCompleted, CreatedAt: now,
	}
	t1 := ChainToken("", e1)
	e1.IntegrityToken = t1

	e2 := &LedgerEntry{
		ID: uuid.New(), FromWallet: "wlt_a", ToWallet: "wlt_b",
		Amount: 50, Purpose: "relief", Status: EntryStatusCompleted, CreatedAt: now.Add(time.Second),
	}
	t2 := ChainToken(t1, e2)
	e2.IntegrityToken = t2

	require.NotEqual(t, t1, t2)

	head := t2
	assert.Equal(t, -1, VerifyChain([]LedgerEntry{*e1, *e2}, &head))
}

func TestVerifyChain_DetectsTampering(t *testing.T) {
	now := time.Now().UTC()
	entries := make([]LedgerEntry, 3)
	prev := ""
	for i := range entries {
		entries[i] = LedgerEntry{
			ID: uuid.New(), FromWallet: "wlt_a", ToWallet: "wlt_b",
			Amount: int64(100 + i), Purpose: "relief",
			Status: EntryStatusCompleted, CreatedAt: now.Add(time.Duration(i) * time.Second),
		}
		entries[i].IntegrityToken = ChainToken(prev, &entries[i])
		prev = entries[i].IntegrityToken
	}
	head := prev

	require.Equal(t, -1, VerifyChain(entries, &head))

	// Tamper with the middle entry's amount.
	entries[1].Amount = 1
	assert.Equal(t, 1, VerifyChain(entries, &head))
}

func TestVerifyChain_HeadMismatch(t *testing.T) {
	now := time.Now().UTC()
	e := LedgerEntry{
		ID: uuid.New(), FromWallet: "wlt_a", ToWallet: "wlt_b",
		Amount: 10, Status: EntryStatusCompleted, CreatedAt: now,
	}
	e.IntegrityToken = ChainToken("", &e)

	stale := "deadbeef"
	assert.Equal(t, 0, VerifyChain([]LedgerEntry{e}, &stale))
	assert.Equal(t, 0, VerifyChain([]LedgerEntry{e}, nil))
}

func TestVerifyChain_SurvivesTimestampRounding(t *testing.T) {
	// timestamptz keeps microseconds; an entry read back from the database
	// loses the nanosecond tail its token was computed with.
	created := time.Date(2026, 8, 29, 10, 0, 0, 123456789, time.UTC)
	entries := make([]LedgerEntry, 2)
	prev := ""
	for i := range entries {
		entries[i] = LedgerEntry{
			ID: uuid.New(), FromWallet: "wlt_a", ToWallet: "wlt_b",
			Amount: int64(100 + i), Purpose: "relief",
			Status: EntryStatusCompleted, CreatedAt: created.Add(time.Duration(i) * time.Second),
		}
		entries[i].IntegrityToken = ChainToken(prev, &entries[i])
		prev = entries[i].IntegrityToken
	}
	head := prev

	roundTripped := make([]LedgerEntry, len(entries))
	for i, e := range entries {
		e.CreatedAt = e.CreatedAt.Truncate(time.Microsecond)
		roundTripped[i] = e
	}

	assert.Equal(t, -1, VerifyChain(roundTripped, &head))
}

func TestDuplicateClaim_Transitions(t *testing.T) {
	c := &DuplicateClaim{Status: ClaimStatusFlagged}
	assert.True(t, c.CanTransition(ClaimStatusReviewed))
	assert.True(t, c.CanTransition(ClaimStatusCleared))

	c.Status = ClaimStatusReviewed
	assert.True(t, c.CanTransition(ClaimStatusCleared))
	assert.False(t, c.CanTransition(ClaimStatusFlagged))

	c.Status = ClaimStatusCleared
	assert.False(t, c.CanTransition(ClaimStatusReviewed))
	assert.False(t, c.CanTransition(ClaimStatusFlagged))
}

func TestValidators(t *testing.T) {
	assert.True(t, ValidOwnerType("citizen"))
	assert.True(t, ValidOwnerType("bank"))
	assert.False(t, ValidOwnerType("mayor"))

	assert.True(t, ValidClaimStatus("FLAGGED"))
	assert.False(t, ValidClaimStatus("flagged"))
}
