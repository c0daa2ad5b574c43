package policy

import (
	"time"

	"github.com/CityOfZion/neoq/pkg/gossip"
)

// enqueueKey identifies one (MsgType, isForward) row of an enqueue
// table. Forwarded and self-originated traffic of the same MsgType
// commonly need different instructions (e.g. suppressing re-broadcast
// back to the forwarder), so the table is keyed on both.
type enqueueKey struct {
	msgType   gossip.MsgType
	isForward bool
}

// TableEnqueuePolicy is a data-table EnqueuePolicy: a plain map from
// (MsgType, origin shape) to the instructions to run. Missing entries
// yield no instructions ("not sent from this node").
type TableEnqueuePolicy struct {
	rows map[enqueueKey][]Instruction
}

// NewTableEnqueuePolicy returns a policy with no rows; add them with
// SetSender and SetForward.
func NewTableEnqueuePolicy() *TableEnqueuePolicy {
	return &TableEnqueuePolicy{rows: make(map[enqueueKey][]Instruction)}
}

// SetSender registers the instructions used when msgType originates at
// this node.
func (p *TableEnqueuePolicy) SetSender(msgType gossip.MsgType, instrs []Instruction) *TableEnqueuePolicy {
	p.rows[enqueueKey{msgType, false}] = instrs
	return p
}

// SetForward registers the instructions used when msgType is being
// relayed on behalf of another peer.
func (p *TableEnqueuePolicy) SetForward(msgType gossip.MsgType, instrs []Instruction) *TableEnqueuePolicy {
	p.rows[enqueueKey{msgType, true}] = instrs
	return p
}

// Instructions implements EnqueuePolicy.
func (p *TableEnqueuePolicy) Instructions(msgType gossip.MsgType, origin gossip.Origin) []Instruction {
	_, isForward := origin.IsForward()
	return p.rows[enqueueKey{msgType, isForward}]
}

// TableDequeuePolicy is a data-table DequeuePolicy.
type TableDequeuePolicy struct {
	rows map[gossip.NodeType]DequeueParams
}

// NewTableDequeuePolicy builds a policy from explicit per-type rows.
func NewTableDequeuePolicy(rows map[gossip.NodeType]DequeueParams) *TableDequeuePolicy {
	cp := make(map[gossip.NodeType]DequeueParams, len(rows))
	for k, v := range rows {
		cp[k] = v
	}
	return &TableDequeuePolicy{rows: cp}
}

// Params implements DequeuePolicy. An unconfigured destination type
// gets no rate limit and a conservative in-flight cap of 1, so a
// forgotten row fails closed rather than open.
func (p *TableDequeuePolicy) Params(destType gossip.NodeType) DequeueParams {
	if params, ok := p.rows[destType]; ok {
		return params
	}
	return DequeueParams{MaxInFlight: 1}
}

// TableFailurePolicy is a data-table FailurePolicy: a flat cooldown per
// destination type, independent of the specific message class or
// error (the common case — the interface keeps those parameters for
// extensibility, which this table preserves by ignoring them).
type TableFailurePolicy struct {
	rows     map[gossip.NodeType]time.Duration
	fallback time.Duration
}

// NewTableFailurePolicy builds a policy with a default cooldown and
// optional per-type overrides.
func NewTableFailurePolicy(fallback time.Duration, overrides map[gossip.NodeType]time.Duration) *TableFailurePolicy {
	cp := make(map[gossip.NodeType]time.Duration, len(overrides))
	for k, v := range overrides {
		cp[k] = v
	}
	return &TableFailurePolicy{rows: cp, fallback: fallback}
}

// ReconsiderAfter implements FailurePolicy.
func (p *TableFailurePolicy) ReconsiderAfter(destType gossip.NodeType, _ gossip.MsgType, _ error) time.Duration {
	if d, ok := p.rows[destType]; ok {
		return d
	}
	return p.fallback
}
