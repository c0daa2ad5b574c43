package outboundq

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/CityOfZion/neoq/pkg/gossip"
	"github.com/CityOfZion/neoq/pkg/signal"
)

// SendMsg is the transport collaborator contract: block until the peer
// acknowledges application-level receipt of payload, or fails. The
// queue treats it as opaque and applies no timeout of its own.
type SendMsg func(ctx context.Context, payload any, dest gossip.NodeID) (any, error)

// DequeueThread runs the dequeue scheduler's supervisor loop until a
// Shutdown control message is processed. It must be invoked exactly
// once per OutboundQ, typically from its own long-lived goroutine.
func (q *OutboundQ) DequeueThread(ctx context.Context, send SendMsg) {
	q.runOnce.Do(func() { q.dequeueLoop(ctx, send) })
}

func (q *OutboundQ) dequeueLoop(ctx context.Context, send SendMsg) {
	q.setState(stateRunning)
	for {
		pkt, ctrl := signal.RetryIfNothing(q.sig, q.tryDequeue, q.ctrlCheck)
		if ctrl != nil {
			_, isShutdown := ctrl.(*signal.ShutdownMsg)
			if isShutdown {
				q.setState(stateDraining)
			} else {
				q.setState(stateQuiescing)
			}
			q.workers.WaitAll()
			ctrl.Ack()
			if isShutdown {
				q.setState(stateStopped)
				return
			}
			q.setState(stateRunning)
			continue
		}
		q.dispatch(ctx, pkt, send)
	}
}

// tryDequeue scans precedences from Highest to Lowest, returning the
// first admissible packet.
func (q *OutboundQ) tryDequeue() (*Packet, bool) {
	for _, prec := range gossip.Precedences() {
		pkt, ok := q.mq.Dequeue(ByPrec(prec), q.notBusy)
		if ok {
			q.metrics.SetQueueSize(prec, q.mq.SizeBy(ByPrec(prec)))
			return pkt, true
		}
	}
	return nil, false
}

func (q *OutboundQ) notBusy(p *Packet) bool {
	return q.inFlight.total(p.Dest) < q.deqPolicy.Params(p.DestType).MaxInFlight
}

// ctrlCheck implements the "control messages only when the scheduled
// queue is empty" rule, so newly-admissible packets always preempt a
// pending flush or shutdown.
func (q *OutboundQ) ctrlCheck() (signal.CtrlMsg, bool) {
	if q.mq.TotalSize() != 0 {
		return nil, false
	}
	return q.sig.CtrlCheck()
}

// dispatch spawns the worker task that sends one packet and resolves
// its result.
func (q *OutboundQ) dispatch(ctx context.Context, pkt *Packet, send SendMsg) {
	q.inFlight.inc(pkt.Dest, pkt.Prec)
	q.metrics.IncDispatched(pkt.MsgType)
	q.metrics.IncInFlight(pkt.DestType)

	q.workers.Go(ctx, func(wctx context.Context) {
		t0 := timeNow()
		val, err := send(wctx, pkt.Payload, pkt.Dest)
		d := timeNow().Sub(t0)

		var resolveErr error
		if err != nil {
			resolveErr = &SendFailure{Dest: pkt.Dest, Err: err}
		}
		pkt.SentSlot.Resolve(val, resolveErr)

		if rl := q.deqPolicy.Params(pkt.DestType).RateLimit; rl.HasLimit && rl.PerSec > 0 {
			budget := time.Duration(1_000_000/rl.PerSec) * time.Microsecond
			if sleep := budget - d; sleep > 0 {
				time.Sleep(sleep)
			}
		}

		if err != nil {
			reconsiderAfter := q.failPolicy.ReconsiderAfter(pkt.DestType, pkt.MsgType, err)
			q.failures.record(pkt.Dest, t0, reconsiderAfter)
			q.metrics.IncFailures(pkt.DestType)
			q.logger.Warn("send failed",
				zap.Stringer("dest", pkt.Dest),
				zap.Stringer("msg_type", pkt.MsgType),
				zap.Duration("reconsider_after", reconsiderAfter),
				zap.Error(err))
		}

		q.inFlight.dec(pkt.Dest, pkt.Prec)
		q.metrics.DecInFlight(pkt.DestType)
		q.sig.Poke()
	})
}
