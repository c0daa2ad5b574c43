package outboundq

import (
	"sort"

	"go.uber.org/zap"

	"github.com/CityOfZion/neoq/pkg/future"
	"github.com/CityOfZion/neoq/pkg/gossip"
	"github.com/CityOfZion/neoq/pkg/policy"
)

// nodeStats is the per-candidate tuple pick_alt sorts on.
type nodeStats struct {
	id            gossip.NodeID
	recentFailure bool
	ahead         int
}

// scheduledAhead sums, for candidate, how many packets are already
// sitting in the scheduled queue at precedence >= prec — the
// scheduled-queue half of pick_alt's `ahead` computation.
func (q *OutboundQ) scheduledAhead(candidate gossip.NodeID, prec gossip.Precedence) int {
	sum := 0
	for _, p := range gossip.Precedences() {
		if p >= prec {
			sum += q.mq.SizeBy(ByDestPrec(candidate, p))
		}
	}
	return sum
}

// pickAlt picks an alternative destination from fwd: of the
// candidates not already in excluded, it picks the one with the fewest
// packets ahead of it that has no recent failure and does not exceed
// maxAhead.
func (q *OutboundQ) pickAlt(maxAhead int, prec gossip.Precedence, fwd gossip.ForwardingSet, excluded map[gossip.NodeID]struct{}) (gossip.NodeID, bool) {
	var candidates []nodeStats
	now := timeNow()
	for _, a := range fwd {
		if _, skip := excluded[a]; skip {
			continue
		}
		ahead := q.inFlight.aheadFrom(a, prec) + q.scheduledAhead(a, prec)
		candidates = append(candidates, nodeStats{
			id:            a,
			recentFailure: q.failures.hasRecentFailure(a, now),
			ahead:         ahead,
		})
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].ahead < candidates[j].ahead })
	for _, c := range candidates {
		if c.recentFailure {
			continue
		}
		if c.ahead > maxAhead {
			continue
		}
		return c.id, true
	}
	return "", false
}

// schedule builds a Packet for (msgType, destType, dest, prec),
// enqueues it under its three keys and pokes the scheduler. This is
// the "on success" tail once a destination has been picked.
func (q *OutboundQ) schedule(msgType gossip.MsgType, destType gossip.NodeType, dest gossip.NodeID, prec gossip.Precedence, payload any) EnqueueResult {
	p := &Packet{
		Payload:  payload,
		MsgType:  msgType,
		DestType: destType,
		Dest:     dest,
		Prec:     prec,
		SentSlot: future.New[any](),
	}
	q.mq.Enqueue(p.Keys(), p)
	q.metrics.SetQueueSize(prec, q.mq.SizeBy(ByPrec(prec)))
	q.sig.Poke()
	return EnqueueResult{Dest: dest, Result: p.SentSlot}
}

// runInstructions runs the enqueue algorithm for every instruction the
// enqueue policy returns for (msgType, origin), restricted to
// restriction if non-empty.
func (q *OutboundQ) runInstructions(msgType gossip.MsgType, origin gossip.Origin, payload any, restriction []gossip.NodeID) []EnqueueResult {
	instrs := q.enqPolicy.Instructions(msgType, origin)
	if len(instrs) == 0 {
		q.logger.Debug("not sent from this node", zap.Stringer("msg_type", msgType))
		return nil
	}

	fold := q.buckets.Fold()
	var results []EnqueueResult

	for _, instr := range instrs {
		switch instr.Kind {
		case policy.EnqueueAll:
			results = append(results, q.runEnqueueAll(msgType, origin, instr, fold, restriction, payload)...)
		case policy.EnqueueOne:
			if r, ok := q.runEnqueueOne(msgType, origin, instr, fold, restriction, payload); ok {
				results = append(results, r)
			}
		}
	}
	return results
}

func (q *OutboundQ) relevantSets(destType gossip.NodeType, origin gossip.Origin, fold gossip.Peers, restriction []gossip.NodeID) []gossip.ForwardingSet {
	sets := fold.PeersOfType(destType)
	sets = gossip.RemoveOrigin(origin, sets)
	sets = gossip.RestrictPeers(restriction, sets)
	return sets
}

func (q *OutboundQ) runEnqueueAll(msgType gossip.MsgType, origin gossip.Origin, instr policy.Instruction, fold gossip.Peers, restriction []gossip.NodeID, payload any) []EnqueueResult {
	destType := instr.DestTypes[0]
	sets := q.relevantSets(destType, origin, fold, restriction)
	if len(sets) == 0 {
		q.logger.Debug("not enqueued to any", zap.Stringer("msg_type", msgType), zap.Stringer("dest_type", destType))
		return nil
	}

	picked := make(map[gossip.NodeID]struct{})
	var results []EnqueueResult
	for _, fs := range sets {
		nid, ok := q.pickAlt(instr.MaxAhead, instr.Prec, fs, picked)
		if !ok {
			continue
		}
		picked[nid] = struct{}{}
		results = append(results, q.schedule(msgType, destType, nid, instr.Prec, payload))
	}

	if len(results) == 0 {
		q.logger.Error("enqueue failed", zap.Stringer("msg_type", msgType), zap.Stringer("dest_type", destType))
	} else {
		dests := make([]gossip.NodeID, 0, len(results))
		for _, r := range results {
			dests = append(dests, r.Dest)
		}
		q.logger.Debug("enqueued", zap.Stringer("msg_type", msgType), zap.Any("dests", dests))
	}
	return results
}

func (q *OutboundQ) runEnqueueOne(msgType gossip.MsgType, origin gossip.Origin, instr policy.Instruction, fold gossip.Peers, restriction []gossip.NodeID, payload any) (EnqueueResult, bool) {
	var anySets bool
	for _, destType := range instr.DestTypes {
		sets := q.relevantSets(destType, origin, fold, restriction)
		if len(sets) > 0 {
			anySets = true
		}
		for _, fs := range sets {
			nid, ok := q.pickAlt(instr.MaxAhead, instr.Prec, fs, nil)
			if !ok {
				continue
			}
			r := q.schedule(msgType, destType, nid, instr.Prec, payload)
			q.logger.Debug("enqueued", zap.Stringer("msg_type", msgType), zap.Stringer("dest", r.Dest))
			return r, true
		}
	}
	if !anySets {
		q.logger.Debug("not enqueued to any", zap.Stringer("msg_type", msgType))
	} else {
		q.logger.Error("enqueue failed", zap.Stringer("msg_type", msgType))
	}
	return EnqueueResult{}, false
}
