// Package gossip models the peer-side data the outbound queue reasons
// about: node identities, node types, message origins and precedence,
// and the forwarding-set algebra used to pick destinations.
package gossip

import "fmt"

// NodeID identifies a peer. The transport collaborator owns the real
// wire address; neoq only needs something comparable, orderable and
// stringable to key its internal maps.
type NodeID string

// String implements fmt.Stringer.
func (n NodeID) String() string { return string(n) }

// NodeType classifies a peer's role in the network.
type NodeType int

// Valid node types.
const (
	Core NodeType = iota
	Relay
	Edge

	nodeTypeCount
)

// String implements fmt.Stringer.
func (t NodeType) String() string {
	switch t {
	case Core:
		return "Core"
	case Relay:
		return "Relay"
	case Edge:
		return "Edge"
	default:
		return fmt.Sprintf("NodeType(%d)", int(t))
	}
}

// Precedence is a message's urgency. Higher values dequeue first.
type Precedence int

// The five precedence levels, lowest to highest.
const (
	Lowest Precedence = iota
	Low
	Medium
	High
	Highest

	precedenceCount
)

// String implements fmt.Stringer.
func (p Precedence) String() string {
	switch p {
	case Lowest:
		return "Lowest"
	case Low:
		return "Low"
	case Medium:
		return "Medium"
	case High:
		return "High"
	case Highest:
		return "Highest"
	default:
		return fmt.Sprintf("Precedence(%d)", int(p))
	}
}

// Precedences returns all precedence levels from Highest to Lowest,
// the order the dequeue scheduler scans them in.
func Precedences() []Precedence {
	return []Precedence{Highest, High, Medium, Low, Lowest}
}

// MsgType is the closed set of application message classes neoq knows
// how to route. Serialization of the payload itself is the caller's
// concern.
type MsgType int

// Valid message types.
const (
	AnnounceBlockHeader MsgType = iota
	RequestBlockHeaders
	RequestBlocks
	Transaction
	MPC
)

// String implements fmt.Stringer.
func (m MsgType) String() string {
	switch m {
	case AnnounceBlockHeader:
		return "AnnounceBlockHeader"
	case RequestBlockHeaders:
		return "RequestBlockHeaders"
	case RequestBlocks:
		return "RequestBlocks"
	case Transaction:
		return "Transaction"
	case MPC:
		return "MPC"
	default:
		return fmt.Sprintf("MsgType(%d)", int(m))
	}
}

// Origin distinguishes a message created locally from one forwarded on
// behalf of another peer.
type Origin struct {
	forwardedFrom NodeID
	isForward     bool
}

// OriginSender is the origin of a message created by this node.
func OriginSender() Origin { return Origin{} }

// OriginForward is the origin of a message received from, and being
// relayed on behalf of, nid.
func OriginForward(nid NodeID) Origin { return Origin{forwardedFrom: nid, isForward: true} }

// IsForward reports whether the origin is a forwarded message, and if
// so the peer it came from.
func (o Origin) IsForward() (NodeID, bool) { return o.forwardedFrom, o.isForward }

// String implements fmt.Stringer.
func (o Origin) String() string {
	if o.isForward {
		return fmt.Sprintf("OriginForward(%s)", o.forwardedFrom)
	}
	return "OriginSender"
}
