// Package offline holds the merchant-device intent queue. Sales made without
// connectivity always succeed locally; the queue holds them until a sync
// batch reconciles each one, and survives app restarts via JSON snapshots.
package offline

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"relief-token-ledger/internal/core/domain"
	"relief-token-ledger/internal/core/ports"
)

// Queue is a device-local store of unreconciled offline intents.
type Queue struct {
	mu        sync.Mutex
	pending   map[string]domain.OfflineIntent // keyed by qr_signature
	conflicts map[string]domain.OfflineIntent // kept for manual review, never retried
}

// NewQueue creates an empty offline intent queue.
func NewQueue() *Queue {
	return &Queue{
		pending:   make(map[string]domain.OfflineIntent),
		conflicts: make(map[string]domain.OfflineIntent),
	}
}

// Enqueue captures a sale locally and returns its qr_signature. It never
// fails: the shop transaction already happened, connectivity or not.
// Re-enqueuing the identical sale (same citizen, amount, timestamp, merchant)
// reproduces the same signature and collapses into one pending intent.
func (q *Queue) Enqueue(intent domain.OfflineIntent) string {
	if intent.QRSignature == "" {
		intent.Sign()
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, reviewing := q.conflicts[intent.QRSignature]; reviewing {
		return intent.QRSignature
	}
	q.pending[intent.QRSignature] = intent
	return intent.QRSignature
}

// Pending returns unreconciled intents in local-timestamp order, ready to be
// handed to a sync batch.
func (q *Queue) Pending() []domain.OfflineIntent {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]domain.OfflineIntent, 0, len(q.pending))
	for _, i := range q.pending {
		out = append(out, i)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].LocalTimestamp.Equal(out[j].LocalTimestamp) {
			return out[i].QRSignature < out[j].QRSignature
		}
		return out[i].LocalTimestamp.Before(out[j].LocalTimestamp)
	})
	return out
}

// Resolve applies a sync batch's per-intent outcomes. Synced and
// already-synced intents leave the queue; conflicts move aside for manual
// review; rejected intents stay pending so the next batch retries exactly
// the failed subset.
func (q *Queue) Resolve(results []ports.SyncResult) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, res := range results {
		switch res.Outcome {
		case ports.SyncOutcomeSynced, ports.SyncOutcomeAlreadySynced:
			delete(q.pending, res.QRSignature)
		case ports.SyncOutcomeSignatureConflict:
			if intent, ok := q.pending[res.QRSignature]; ok {
				q.conflicts[res.QRSignature] = intent
				delete(q.pending, res.QRSignature)
			}
		case ports.SyncOutcomeRejected:
			// Stays pending.
		}
	}
}

// Conflicts returns intents parked for manual review.
func (q *Queue) Conflicts() []domain.OfflineIntent {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]domain.OfflineIntent, 0, len(q.conflicts))
	for _, i := range q.conflicts {
		out = append(out, i)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LocalTimestamp.Before(out[j].LocalTimestamp)
	})
	return out
}

// Len reports the number of pending intents.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

type snapshot struct {
	Pending   []domain.OfflineIntent `json:"pending"`
	Conflicts []domain.OfflineIntent `json:"conflicts"`
}

// Snapshot serializes the queue for durable device storage.
func (q *Queue) Snapshot() ([]byte, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	snap := snapshot{
		Pending:   make([]domain.OfflineIntent, 0, len(q.pending)),
		Conflicts: make([]domain.OfflineIntent, 0, len(q.conflicts)),
	}
	for _, i := range q.pending {
		snap.Pending = append(snap.Pending, i)
	}
	for _, i := range q.conflicts {
		snap.Conflicts = append(snap.Conflicts, i)
	}
	b, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("snapshot queue: %w", err)
	}
	return b, nil
}

// Restore loads a snapshot taken before an app restart. Signatures are
// re-derived for intents that predate signing, so restored state dedups the
// same way fresh state does.
func (q *Queue) Restore(data []byte) error {
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("restore queue: %w", err)
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = make(map[string]domain.OfflineIntent, len(snap.Pending))
	q.conflicts = make(map[string]domain.OfflineIntent, len(snap.Conflicts))
	for _, i := range snap.Pending {
		if i.QRSignature == "" {
			i.Sign()
		}
		q.pending[i.QRSignature] = i
	}
	for _, i := range snap.Conflicts {
		if i.QRSignature == "" {
			i.Sign()
		}
		q.conflicts[i.QRSignature] = i
	}
	return nil
}
