// Package policy implements the three pure policy functions governing
// outbound traffic: enqueue policy, dequeue policy and failure policy.
// They are modelled as data tables rather than closures — enumerable
// and inspectable, which helps testing and lets operators diff
// configurations.
package policy

import (
	"time"

	"github.com/CityOfZion/neoq/pkg/gossip"
)

// InstructionKind distinguishes the two enqueue instruction shapes.
type InstructionKind int

// Valid instruction kinds.
const (
	// EnqueueAll sends to every forwarding set of DestTypes[0].
	EnqueueAll InstructionKind = iota
	// EnqueueOne sends to one forwarding set of one of DestTypes, tried
	// in order.
	EnqueueOne
)

// Instruction is one enqueue directive produced by an EnqueuePolicy for
// a given (MsgType, Origin) pair.
type Instruction struct {
	Kind InstructionKind
	// DestTypes holds a single type for EnqueueAll, or a preference
	// order of types to try for EnqueueOne.
	DestTypes []gossip.NodeType
	// MaxAhead bounds how many packets may already be scheduled or
	// in-flight to a candidate at precedence >= Prec before it's
	// excluded from consideration.
	MaxAhead int
	Prec     gossip.Precedence
}

// EnqueuePolicy maps a message class (its type and origin) to the list
// of enqueue instructions that should be executed for it. An empty
// result means "this class is not sent from this node".
type EnqueuePolicy interface {
	Instructions(msgType gossip.MsgType, origin gossip.Origin) []Instruction
}

// RateLimit is either unlimited (nil-valued via HasLimit==false) or a
// positive messages-per-second cap.
type RateLimit struct {
	PerSec   int
	HasLimit bool
}

// Unlimited is the zero-value "no rate limit" RateLimit.
var Unlimited = RateLimit{}

// PerSecLimit returns a RateLimit capping dispatch to n messages per second.
func PerSecLimit(n int) RateLimit {
	return RateLimit{PerSec: n, HasLimit: true}
}

// DequeueParams is what the dequeue policy yields for a destination
// type: a rate limit and a concurrency cap.
type DequeueParams struct {
	RateLimit   RateLimit
	MaxInFlight int
}

// DequeuePolicy maps a destination NodeType to its dequeue parameters.
type DequeuePolicy interface {
	Params(destType gossip.NodeType) DequeueParams
}

// FailurePolicy maps a failed send (destination type, message class,
// error) to the cooldown duration before that destination is
// reconsidered.
type FailurePolicy interface {
	ReconsiderAfter(destType gossip.NodeType, msgType gossip.MsgType, err error) time.Duration
}
