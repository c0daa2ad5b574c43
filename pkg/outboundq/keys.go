package outboundq

import "github.com/CityOfZion/neoq/pkg/gossip"

type keyKind int

const (
	kindPrec keyKind = iota
	kindDest
	kindDestPrec
)

// Key is the comparable key type the multi-queue is indexed by. Every
// packet is enqueued under exactly the three shapes below
// simultaneously: its precedence bucket (for the scheduler's top-level
// scan), its destination (for bulk removal on bucket changes), and the
// (destination, precedence) pair (for the max_ahead computation).
type Key struct {
	kind keyKind
	prec gossip.Precedence
	dest gossip.NodeID
}

// ByPrec is the key the dequeue scheduler scans, one precedence level
// at a time, from Highest to Lowest.
func ByPrec(p gossip.Precedence) Key { return Key{kind: kindPrec, prec: p} }

// ByDest is the key used to find and remove every packet addressed to
// a given peer, e.g. when that peer vanishes from the bucket fold.
func ByDest(n gossip.NodeID) Key { return Key{kind: kindDest, dest: n} }

// ByDestPrec is the key pick_alt sums over when computing how many
// packets are already scheduled ahead of a new one for a candidate.
func ByDestPrec(n gossip.NodeID, p gossip.Precedence) Key {
	return Key{kind: kindDestPrec, prec: p, dest: n}
}
