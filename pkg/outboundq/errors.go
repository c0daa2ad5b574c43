package outboundq

import (
	"fmt"

	"github.com/CityOfZion/neoq/pkg/gossip"
)

// SendFailure wraps an error returned by the SendMsg collaborator,
// recorded against the destination that produced it.
type SendFailure struct {
	Dest gossip.NodeID
	Err  error
}

// Error implements error.
func (e *SendFailure) Error() string {
	return fmt.Sprintf("outboundq: send to %s failed: %v", e.Dest, e.Err)
}

// Unwrap exposes the underlying collaborator error.
func (e *SendFailure) Unwrap() error { return e.Err }

// NoPeer describes an enqueue instruction that had no surviving
// destination to send to. It is never a future's error (there is no
// per-peer future when no peer was picked), and the enqueue
// interpreter does not construct it: it logs that case directly, at
// debug ("not enqueued to any") when the relevant peers list was empty
// and at error ("enqueue failed") otherwise.
type NoPeer struct {
	MsgType gossip.MsgType
	// Empty is true when the relevant peers list was empty to begin
	// with, as opposed to non-empty but fully exhausted by picking.
	Empty bool
}

// Error implements error.
func (e *NoPeer) Error() string {
	if e.Empty {
		return fmt.Sprintf("outboundq: no known peers for %s", e.MsgType)
	}
	return fmt.Sprintf("outboundq: enqueue failed for %s: no surviving alternative", e.MsgType)
}

// CherishExhausted reports that EnqueueCherished ran out of its retry
// budget without a single destination succeeding.
type CherishExhausted struct {
	MsgType gossip.MsgType
}

// Error implements error.
func (e *CherishExhausted) Error() string {
	return fmt.Sprintf("outboundq: cherished enqueue of %s exhausted its retry budget", e.MsgType)
}
