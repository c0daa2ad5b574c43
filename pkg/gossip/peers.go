package gossip

// ForwardingSet is a non-empty ordered list of alternative peer ids:
// "send to this set" means deliver to exactly one of them, preferring
// earlier entries.
type ForwardingSet []NodeID

func (f ForwardingSet) clone() ForwardingSet {
	out := make(ForwardingSet, len(f))
	copy(out, f)
	return out
}

// without returns a copy of f with id removed.
func (f ForwardingSet) without(id NodeID) ForwardingSet {
	out := make(ForwardingSet, 0, len(f))
	for _, a := range f {
		if a != id {
			out = append(out, a)
		}
	}
	return out
}

// restrictTo returns a copy of f containing only alternatives present
// in allowed.
func (f ForwardingSet) restrictTo(allowed map[NodeID]struct{}) ForwardingSet {
	out := make(ForwardingSet, 0, len(f))
	for _, a := range f {
		if _, ok := allowed[a]; ok {
			out = append(out, a)
		}
	}
	return out
}

// Peers is a classified, layered view of known peers: one list of
// forwarding sets per NodeType. Peers form a commutative monoid under
// pointwise concatenation (Union); the identity is the empty Peers.
type Peers struct {
	byType [nodeTypeCount][]ForwardingSet
}

// NewPeers builds a Peers value from explicit per-type forwarding set
// lists.
func NewPeers(core, relay, edge []ForwardingSet) Peers {
	var p Peers
	p.byType[Core] = core
	p.byType[Relay] = relay
	p.byType[Edge] = edge
	return p
}

// SimplePeers turns a flat list of peer ids of the given type into one
// singleton forwarding set per peer — the degenerate case where no
// alternative-grouping is in play.
func SimplePeers(t NodeType, ids []NodeID) Peers {
	sets := make([]ForwardingSet, 0, len(ids))
	for _, id := range ids {
		sets = append(sets, ForwardingSet{id})
	}
	var p Peers
	p.byType[t] = sets
	return p
}

// PeersOfType selects the forwarding sets of a single NodeType.
func (p Peers) PeersOfType(t NodeType) []ForwardingSet {
	return p.byType[t]
}

// Union is the monoid operation: pointwise concatenation of forwarding
// sets across all NodeTypes. Associative, with the empty Peers as
// identity — see peers_test.go for the law tests.
func (p Peers) Union(other Peers) Peers {
	var out Peers
	for t := NodeType(0); t < nodeTypeCount; t++ {
		out.byType[t] = append(append([]ForwardingSet{}, p.byType[t]...), other.byType[t]...)
	}
	return out
}

// UnionAll folds Union over a slice of Peers, starting from the
// identity (empty Peers). Used to compute the merged bucket fold.
func UnionAll(all []Peers) Peers {
	var acc Peers
	for _, p := range all {
		acc = acc.Union(p)
	}
	return acc
}

// AllIDs returns the set of every peer id appearing anywhere in p,
// across all NodeTypes and all alternatives of all forwarding sets.
func (p Peers) AllIDs() map[NodeID]struct{} {
	out := make(map[NodeID]struct{})
	for t := NodeType(0); t < nodeTypeCount; t++ {
		for _, fs := range p.byType[t] {
			for _, id := range fs {
				out[id] = struct{}{}
			}
		}
	}
	return out
}

// RemoveOrigin suppresses the peer a message was forwarded from: if
// origin is a forwarded message, n is dropped from every alternative
// list of every forwarding set of the given type, and any forwarding
// set that becomes empty is dropped entirely. OriginSender is the
// identity.
func RemoveOrigin(origin Origin, sets []ForwardingSet) []ForwardingSet {
	n, isForward := origin.IsForward()
	if !isForward {
		return sets
	}
	out := make([]ForwardingSet, 0, len(sets))
	for _, fs := range sets {
		trimmed := fs.without(n)
		if len(trimmed) > 0 {
			out = append(out, trimmed)
		}
	}
	return out
}

// RestrictPeers intersects sets against a caller-supplied restriction
// (the peers_to allowlist on enqueue_to); an empty restriction slice
// means "no restriction".
func RestrictPeers(restriction []NodeID, sets []ForwardingSet) []ForwardingSet {
	if len(restriction) == 0 {
		return sets
	}
	allowed := make(map[NodeID]struct{}, len(restriction))
	for _, id := range restriction {
		allowed[id] = struct{}{}
	}
	out := make([]ForwardingSet, 0, len(sets))
	for _, fs := range sets {
		trimmed := fs.restrictTo(allowed)
		if len(trimmed) > 0 {
			out = append(out, trimmed)
		}
	}
	return out
}

// CountByType returns, per NodeType, how many peer ids p knows about
// (used by OutboundQ.DumpState).
func (p Peers) CountByType() map[NodeType]int {
	out := make(map[NodeType]int, nodeTypeCount)
	for t := NodeType(0); t < nodeTypeCount; t++ {
		seen := make(map[NodeID]struct{})
		for _, fs := range p.byType[t] {
			for _, id := range fs {
				seen[id] = struct{}{}
			}
		}
		out[t] = len(seen)
	}
	return out
}
