package outboundq

import (
	"github.com/CityOfZion/neoq/pkg/future"
	"github.com/CityOfZion/neoq/pkg/gossip"
)

// Packet is one scheduled send: a payload addressed to a single peer
// at a single precedence, plus the single-shot cell its result is
// delivered through. It hides the payload's concrete type behind
// `any` — the existential-payload design note — so one multi-queue
// can carry every MsgType at once; the caller holding the typed
// SentSlot future knows what to expect back.
type Packet struct {
	Payload  any
	MsgType  gossip.MsgType
	DestType gossip.NodeType
	Dest     gossip.NodeID
	Prec     gossip.Precedence
	SentSlot *future.Cell[any]
}

// Keys returns the three multi-queue keys this packet must be
// enqueued under atomically.
func (p *Packet) Keys() []Key {
	return []Key{ByPrec(p.Prec), ByDest(p.Dest), ByDestPrec(p.Dest, p.Prec)}
}

// EnqueueResult pairs a destination with the future its send will
// resolve through, the shape every public enqueue entry point returns
// one of per destination it actually scheduled.
type EnqueueResult struct {
	Dest   gossip.NodeID
	Result *future.Cell[any]
}
