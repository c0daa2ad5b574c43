package outboundq

import (
	"sync"
	"time"

	"github.com/CityOfZion/neoq/pkg/gossip"
)

type failureRecord struct {
	at              time.Time
	reconsiderAfter time.Duration
}

// failureTracker maps destination -> (time of last failure, cooldown
// before reconsidering). Entries are left to linger until they expire
// on their own, or until a caller clears them wholesale via clearAll.
type failureTracker struct {
	mu      sync.Mutex
	records map[gossip.NodeID]failureRecord
}

func newFailureTracker() *failureTracker {
	return &failureTracker{records: make(map[gossip.NodeID]failureRecord)}
}

// record stores a fresh failure against dest, overwriting any prior one.
func (t *failureTracker) record(dest gossip.NodeID, at time.Time, reconsiderAfter time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.records[dest] = failureRecord{at: at, reconsiderAfter: reconsiderAfter}
}

// hasRecentFailure reports whether dest failed recently enough that
// its cooldown has not yet elapsed as of now.
func (t *failureTracker) hasRecentFailure(dest gossip.NodeID, now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.records[dest]
	if !ok {
		return false
	}
	return now.Before(rec.at.Add(rec.reconsiderAfter))
}

// delete drops dest's failure entry, e.g. when it vanishes from the
// bucket fold.
func (t *failureTracker) delete(dest gossip.NodeID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.records, dest)
}

// clearAll implements clear_recent_failures().
func (t *failureTracker) clearAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.records = make(map[gossip.NodeID]failureRecord)
}

// has reports whether dest currently has a failure entry at all,
// expired or not (used by tests asserting cleanup).
func (t *failureTracker) has(dest gossip.NodeID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.records[dest]
	return ok
}
