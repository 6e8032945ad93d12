package offline

import (
	"testing"
	"time"

	"relief-token-ledger/internal/core/domain"
	"relief-token-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intentAt(amount int64, at time.Time) domain.OfflineIntent {
	return domain.OfflineIntent{
		CitizenWallet:  "wlt_citizen",
		MerchantWallet: "wlt_merchant",
		Amount:         amount,
		Purpose:        "groceries",
		LocalTimestamp: at,
	}
}

func TestEnqueue_AlwaysSucceedsAndSigns(t *testing.T) {
	q := NewQueue()
	sig := q.Enqueue(intentAt(500, time.Now()))
	assert.NotEmpty(t, sig)
	assert.Equal(t, 1, q.Len())
}

func TestEnqueue_IdenticalSaleCollapses(t *testing.T) {
	q := NewQueue()
	at := time.Date(2025, 6, 14, 10, 0, 0, 0, time.UTC)

	sig1 := q.Enqueue(intentAt(500, at))
	sig2 := q.Enqueue(intentAt(500, at)) // App restarted, same sale re-captured
	assert.Equal(t, sig1, sig2)
	assert.Equal(t, 1, q.Len())
}

func TestPending_LocalTimestampOrder(t *testing.T) {
	q := NewQueue()
	base := time.Date(2025, 6, 14, 10, 0, 0, 0, time.UTC)
	q.Enqueue(intentAt(300, base.Add(2*time.Hour)))
	q.Enqueue(intentAt(100, base))
	q.Enqueue(intentAt(200, base.Add(time.Hour)))

	pending := q.Pending()
	require.Len(t, pending, 3)
	assert.Equal(t, int64(100), pending[0].Amount)
	assert.Equal(t, int64(200), pending[1].Amount)
	assert.Equal(t, int64(300), pending[2].Amount)
}

func TestResolve_Outcomes(t *testing.T) {
	q := NewQueue()
	base := time.Date(2025, 6, 14, 10, 0, 0, 0, time.UTC)
	sigSynced := q.Enqueue(intentAt(100, base))
	sigAlready := q.Enqueue(intentAt(200, base.Add(time.Minute)))
	sigConflict := q.Enqueue(intentAt(300, base.Add(2*time.Minute)))
	sigRejected := q.Enqueue(intentAt(400, base.Add(3*time.Minute)))

	id := uuid.New()
	q.Resolve([]ports.SyncResult{
		{QRSignature: sigSynced, Outcome: ports.SyncOutcomeSynced, EntryID: &id},
		{QRSignature: sigAlready, Outcome: ports.SyncOutcomeAlreadySynced, EntryID: &id},
		{QRSignature: sigConflict, Outcome: ports.SyncOutcomeSignatureConflict},
		{QRSignature: sigRejected, Outcome: ports.SyncOutcomeRejected, Reason: "unknown citizen wallet"},
	})

	// Only the rejected intent is still pending; the next batch retries
	// exactly the failed subset.
	pending := q.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, sigRejected, pending[0].QRSignature)

	conflicts := q.Conflicts()
	require.Len(t, conflicts, 1)
	assert.Equal(t, sigConflict, conflicts[0].QRSignature)

	// A conflicted sale cannot sneak back into the pending set.
	q.Enqueue(conflicts[0])
	assert.Equal(t, 1, q.Len())
}

func TestSnapshotRestore(t *testing.T) {
	q := NewQueue()
	base := time.Date(2025, 6, 14, 10, 0, 0, 0, time.UTC)
	q.Enqueue(intentAt(100, base))
	sigConflict := q.Enqueue(intentAt(300, base.Add(time.Minute)))
	q.Resolve([]ports.SyncResult{
		{QRSignature: sigConflict, Outcome: ports.SyncOutcomeSignatureConflict},
	})

	data, err := q.Snapshot()
	require.NoError(t, err)

	restored := NewQueue()
	require.NoError(t, restored.Restore(data))
	assert.Equal(t, 1, restored.Len())
	assert.Len(t, restored.Conflicts(), 1)
	assert.Equal(t, q.Pending(), restored.Pending())
}

func TestRestore_Garbage(t *testing.T) {
	q := NewQueue()
	assert.Error(t, q.Restore([]byte("{not json")))
}
