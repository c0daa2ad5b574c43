package policy

import (
	"time"

	"github.com/CityOfZion/neoq/pkg/gossip"
)

// Profile identifies this node's own deployment shape, which is what
// picks a default policy triple — the remote peer's gossip.NodeType is
// a separate axis used inside the tables themselves (dequeue params
// and failure cooldowns are looked up per destination type regardless
// of profile).
type Profile int

// The five deployment profiles with built-in policy defaults.
const (
	CoreProfile Profile = iota
	RelayProfile
	EdgeBehindNATProfile
	EdgeExchangeProfile
	EdgeP2PProfile
)

const defaultReconsiderAfter = 200 * time.Second

// Defaults returns the (enqueue, dequeue, failure) policy triple for a
// node deployed with the given profile.
func Defaults(profile Profile) (EnqueuePolicy, DequeuePolicy, FailurePolicy) {
	switch profile {
	case CoreProfile:
		return coreEnqueue(), coreDequeue(), defaultFailure()
	case RelayProfile:
		return relayEnqueue(), relayDequeue(), defaultFailure()
	case EdgeBehindNATProfile:
		return edgeEnqueue(), edgeBehindNATDequeue(), defaultFailure()
	case EdgeExchangeProfile:
		return edgeEnqueue(), edgeExchangeDequeue(), defaultFailure()
	case EdgeP2PProfile:
		return edgeEnqueue(), edgeP2PDequeue(), defaultFailure()
	default:
		return edgeEnqueue(), edgeP2PDequeue(), defaultFailure()
	}
}

// coreEnqueue is the routing table for a Core (consensus/validator)
// node: block headers and consensus-adjacent traffic (MPC) fan out to
// every Core peer at Highest precedence, Relay peers get the same at
// High, and requests go out to one Core peer at a time, falling back
// to Relay.
func coreEnqueue() EnqueuePolicy {
	return NewTableEnqueuePolicy().
		SetSender(gossip.AnnounceBlockHeader, []Instruction{
			{Kind: EnqueueAll, DestTypes: []gossip.NodeType{gossip.Core}, MaxAhead: 3, Prec: gossip.Highest},
			{Kind: EnqueueAll, DestTypes: []gossip.NodeType{gossip.Relay}, MaxAhead: 3, Prec: gossip.High},
		}).
		SetForward(gossip.AnnounceBlockHeader, []Instruction{
			{Kind: EnqueueAll, DestTypes: []gossip.NodeType{gossip.Core}, MaxAhead: 3, Prec: gossip.Highest},
			{Kind: EnqueueAll, DestTypes: []gossip.NodeType{gossip.Relay}, MaxAhead: 3, Prec: gossip.High},
		}).
		SetSender(gossip.Transaction, []Instruction{
			{Kind: EnqueueAll, DestTypes: []gossip.NodeType{gossip.Core}, MaxAhead: 8, Prec: gossip.Medium},
			{Kind: EnqueueAll, DestTypes: []gossip.NodeType{gossip.Relay}, MaxAhead: 8, Prec: gossip.Low},
		}).
		SetForward(gossip.Transaction, []Instruction{
			{Kind: EnqueueAll, DestTypes: []gossip.NodeType{gossip.Core}, MaxAhead: 8, Prec: gossip.Medium},
			{Kind: EnqueueAll, DestTypes: []gossip.NodeType{gossip.Relay}, MaxAhead: 8, Prec: gossip.Low},
		}).
		SetSender(gossip.RequestBlockHeaders, []Instruction{
			{Kind: EnqueueOne, DestTypes: []gossip.NodeType{gossip.Core, gossip.Relay}, MaxAhead: 2, Prec: gossip.High},
		}).
		SetSender(gossip.RequestBlocks, []Instruction{
			{Kind: EnqueueOne, DestTypes: []gossip.NodeType{gossip.Core, gossip.Relay}, MaxAhead: 4, Prec: gossip.Medium},
		}).
		SetSender(gossip.MPC, []Instruction{
			{Kind: EnqueueAll, DestTypes: []gossip.NodeType{gossip.Core}, MaxAhead: 1, Prec: gossip.Highest},
		})
}

// relayEnqueue fans headers/transactions onward to Core and Edge
// peers; a Relay never originates consensus (MPC) traffic.
func relayEnqueue() EnqueuePolicy {
	return NewTableEnqueuePolicy().
		SetForward(gossip.AnnounceBlockHeader, []Instruction{
			{Kind: EnqueueAll, DestTypes: []gossip.NodeType{gossip.Core}, MaxAhead: 3, Prec: gossip.High},
			{Kind: EnqueueAll, DestTypes: []gossip.NodeType{gossip.Edge}, MaxAhead: 3, Prec: gossip.Medium},
		}).
		SetForward(gossip.Transaction, []Instruction{
			{Kind: EnqueueAll, DestTypes: []gossip.NodeType{gossip.Core}, MaxAhead: 8, Prec: gossip.Medium},
			{Kind: EnqueueAll, DestTypes: []gossip.NodeType{gossip.Edge}, MaxAhead: 8, Prec: gossip.Low},
		}).
		SetSender(gossip.Transaction, []Instruction{
			{Kind: EnqueueAll, DestTypes: []gossip.NodeType{gossip.Core}, MaxAhead: 8, Prec: gossip.Medium},
		}).
		SetSender(gossip.RequestBlockHeaders, []Instruction{
			{Kind: EnqueueOne, DestTypes: []gossip.NodeType{gossip.Core}, MaxAhead: 2, Prec: gossip.High},
		}).
		SetSender(gossip.RequestBlocks, []Instruction{
			{Kind: EnqueueOne, DestTypes: []gossip.NodeType{gossip.Core}, MaxAhead: 4, Prec: gossip.Medium},
		})
}

// edgeEnqueue is shared by all three Edge profiles: edges never
// originate consensus traffic and have no forwarding rows, so they
// only send their own traffic, and only upward to Relay.
func edgeEnqueue() EnqueuePolicy {
	return NewTableEnqueuePolicy().
		SetSender(gossip.Transaction, []Instruction{
			{Kind: EnqueueAll, DestTypes: []gossip.NodeType{gossip.Relay}, MaxAhead: 4, Prec: gossip.Medium},
		}).
		SetSender(gossip.RequestBlockHeaders, []Instruction{
			{Kind: EnqueueOne, DestTypes: []gossip.NodeType{gossip.Relay}, MaxAhead: 2, Prec: gossip.High},
		}).
		SetSender(gossip.RequestBlocks, []Instruction{
			{Kind: EnqueueOne, DestTypes: []gossip.NodeType{gossip.Relay}, MaxAhead: 4, Prec: gossip.Medium},
		})
}

func coreDequeue() DequeuePolicy {
	return NewTableDequeuePolicy(map[gossip.NodeType]DequeueParams{
		gossip.Core:  {RateLimit: Unlimited, MaxInFlight: 16},
		gossip.Relay: {RateLimit: PerSecLimit(20), MaxInFlight: 8},
		gossip.Edge:  {RateLimit: PerSecLimit(5), MaxInFlight: 2},
	})
}

func relayDequeue() DequeuePolicy {
	return NewTableDequeuePolicy(map[gossip.NodeType]DequeueParams{
		gossip.Core:  {RateLimit: PerSecLimit(20), MaxInFlight: 8},
		gossip.Relay: {RateLimit: PerSecLimit(10), MaxInFlight: 6},
		gossip.Edge:  {RateLimit: PerSecLimit(10), MaxInFlight: 6},
	})
}

// edgeBehindNATDequeue assumes outbound-only connectivity with a
// single upstream relay link: conservative concurrency, modest rate.
func edgeBehindNATDequeue() DequeuePolicy {
	return NewTableDequeuePolicy(map[gossip.NodeType]DequeueParams{
		gossip.Relay: {RateLimit: PerSecLimit(4), MaxInFlight: 2},
	})
}

// edgeExchangeDequeue assumes a well-connected gateway node relaying
// for many downstream clients: higher concurrency to Relay peers.
func edgeExchangeDequeue() DequeuePolicy {
	return NewTableDequeuePolicy(map[gossip.NodeType]DequeueParams{
		gossip.Relay: {RateLimit: PerSecLimit(15), MaxInFlight: 6},
	})
}

// edgeP2PDequeue assumes direct peer connectivity without NAT
// constraints: a middle ground between the NAT and exchange profiles.
func edgeP2PDequeue() DequeuePolicy {
	return NewTableDequeuePolicy(map[gossip.NodeType]DequeueParams{
		gossip.Relay: {RateLimit: PerSecLimit(8), MaxInFlight: 4},
	})
}

func defaultFailure() FailurePolicy {
	return NewTableFailurePolicy(defaultReconsiderAfter, map[gossip.NodeType]time.Duration{
		gossip.Core:  60 * time.Second,
		gossip.Relay: 120 * time.Second,
		gossip.Edge:  300 * time.Second,
	})
}
