package gossip

import "sync"

// BucketStore maps a bucket id to Peers: named, caller-supplied
// partitions of peer knowledge, each writable by at most one external
// party, whose monoidal fold is the queue's effective peer set.
//
// The store itself only serializes access to the map; the "one writer
// per bucket" invariant is the caller's contract (callers each own a
// distinct bucket id), not something enforced here.
type BucketStore struct {
	mu      sync.Mutex
	buckets map[string]Peers
}

// NewBucketStore returns an empty store.
func NewBucketStore() *BucketStore {
	return &BucketStore{buckets: make(map[string]Peers)}
}

// Fold returns the monoidal union of every bucket currently stored.
func (s *BucketStore) Fold() Peers {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.foldLocked()
}

func (s *BucketStore) foldLocked() Peers {
	all := make([]Peers, 0, len(s.buckets))
	for _, p := range s.buckets {
		all = append(all, p)
	}
	return UnionAll(all)
}

// Update applies f to bucketID's current Peers (the zero value if the
// bucket is new) and stores the result. It returns the set of peer ids
// that were present in the fold before the update but vanished from
// the fold after it — the ids OutboundQ must reclaim in-flight,
// failure and scheduled-queue state for.
func (s *BucketStore) Update(bucketID string, f func(Peers) Peers) map[NodeID]struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := s.foldLocked().AllIDs()

	s.buckets[bucketID] = f(s.buckets[bucketID])

	after := s.foldLocked().AllIDs()
	vanished := make(map[NodeID]struct{})
	for id := range before {
		if _, ok := after[id]; !ok {
			vanished[id] = struct{}{}
		}
	}
	return vanished
}

// Delete removes a bucket entirely (e.g. a collaborator going away),
// returning the peer ids that vanished from the fold as a result.
func (s *BucketStore) Delete(bucketID string) map[NodeID]struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := s.foldLocked().AllIDs()
	delete(s.buckets, bucketID)
	after := s.foldLocked().AllIDs()

	vanished := make(map[NodeID]struct{})
	for id := range before {
		if _, ok := after[id]; !ok {
			vanished[id] = struct{}{}
		}
	}
	return vanished
}
