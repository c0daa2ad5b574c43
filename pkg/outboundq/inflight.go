package outboundq

import (
	"sync"

	"github.com/CityOfZion/neoq/pkg/gossip"
)

// inFlightTable maps destination -> precedence -> count of
// unacknowledged sends.
type inFlightTable struct {
	mu     sync.Mutex
	counts map[gossip.NodeID]map[gossip.Precedence]int
}

func newInFlightTable() *inFlightTable {
	return &inFlightTable{counts: make(map[gossip.NodeID]map[gossip.Precedence]int)}
}

func (t *inFlightTable) inc(dest gossip.NodeID, prec gossip.Precedence) {
	t.mu.Lock()
	defer t.mu.Unlock()
	row, ok := t.counts[dest]
	if !ok {
		row = make(map[gossip.Precedence]int)
		t.counts[dest] = row
	}
	row[prec]++
}

func (t *inFlightTable) dec(dest gossip.NodeID, prec gossip.Precedence) {
	t.mu.Lock()
	defer t.mu.Unlock()
	row, ok := t.counts[dest]
	if !ok {
		return
	}
	row[prec]--
	if row[prec] <= 0 {
		delete(row, prec)
	}
	if len(row) == 0 {
		delete(t.counts, dest)
	}
}

// total sums in-flight counts for dest across every precedence — the
// not_busy check compares this against the destination type's
// max_in_flight.
func (t *inFlightTable) total(dest gossip.NodeID) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	sum := 0
	for _, n := range t.counts[dest] {
		sum += n
	}
	return sum
}

// aheadFrom sums in-flight counts for dest at precedence >= prec, the
// in-flight half of pick_alt's `ahead` computation.
func (t *inFlightTable) aheadFrom(dest gossip.NodeID, prec gossip.Precedence) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	sum := 0
	for p, n := range t.counts[dest] {
		if p >= prec {
			sum += n
		}
	}
	return sum
}

// delete drops every in-flight entry for dest, e.g. when it vanishes
// from the bucket fold. A worker still running against dest finds no
// row on completion and its dec is a no-op; if dest has been re-added
// and has a new row by then, that row is decremented instead.
func (t *inFlightTable) delete(dest gossip.NodeID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.counts, dest)
}

// has reports whether dest has any in-flight sends at all.
func (t *inFlightTable) has(dest gossip.NodeID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.counts[dest]
	return ok
}

// snapshot returns a defensive copy for DumpState.
func (t *inFlightTable) snapshot() map[gossip.NodeID]int {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[gossip.NodeID]int, len(t.counts))
	for dest, row := range t.counts {
		sum := 0
		for _, n := range row {
			sum += n
		}
		out[dest] = sum
	}
	return out
}
