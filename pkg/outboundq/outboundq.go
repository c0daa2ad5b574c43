// Package outboundq implements the outbound message queue: the
// enqueue interpreter, dequeue scheduler, failure tracker and
// lifecycle facade, wired on top of pkg/gossip, pkg/queue, pkg/signal,
// pkg/future and pkg/policy.
package outboundq

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/CityOfZion/neoq/pkg/gossip"
	"github.com/CityOfZion/neoq/pkg/metrics"
	"github.com/CityOfZion/neoq/pkg/outboundq/registry"
	"github.com/CityOfZion/neoq/pkg/policy"
	"github.com/CityOfZion/neoq/pkg/queue"
	"github.com/CityOfZion/neoq/pkg/signal"
)

// cherishRetries is the hardcoded retry budget of EnqueueCherished.
const cherishRetries = 4

// OutboundQ is the lifecycle facade: one instance per node. Multiple
// instances must not share a *gossip.BucketStore.
type OutboundQ struct {
	selfID gossip.NodeID

	enqPolicy  policy.EnqueuePolicy
	deqPolicy  policy.DequeuePolicy
	failPolicy policy.FailurePolicy

	buckets  *gossip.BucketStore
	mq       *queue.Queue[Key, *Packet]
	inFlight *inFlightTable
	failures *failureTracker
	sig      *signal.Signal
	workers  *registry.Registry

	logger  *zap.Logger
	metrics *metrics.Collector

	state   atomic.Int32
	runOnce sync.Once
}

// Option customizes an OutboundQ at construction time.
type Option func(*OutboundQ)

// WithLogger overrides the default no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(q *OutboundQ) { q.logger = l }
}

// WithMetrics attaches a Prometheus collector. Passing nil (the
// default) leaves metrics reporting disabled.
func WithMetrics(c *metrics.Collector) Option {
	return func(q *OutboundQ) { q.metrics = c }
}

// New initializes empty tables and creates the signal. The dequeue
// loop is not started; call DequeueThread exactly once to start it.
func New(selfID gossip.NodeID, enqPolicy policy.EnqueuePolicy, deqPolicy policy.DequeuePolicy, failPolicy policy.FailurePolicy, opts ...Option) *OutboundQ {
	q := &OutboundQ{
		selfID:     selfID,
		enqPolicy:  enqPolicy,
		deqPolicy:  deqPolicy,
		failPolicy: failPolicy,
		buckets:    gossip.NewBucketStore(),
		mq:         queue.New[Key, *Packet](),
		inFlight:   newInFlightTable(),
		failures:   newFailureTracker(),
		sig:        signal.New(),
		workers:    registry.New(),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// UpdatePeersBucket applies f to the named bucket, then reclaims every
// piece of state belonging to any peer that disappeared from the
// merged fold as a result. Lock ordering: buckets, then
// in-flight/failures/queue — BucketStore.Update releases the buckets
// lock before this method touches anything else.
func (q *OutboundQ) UpdatePeersBucket(bucketID string, f func(gossip.Peers) gossip.Peers) {
	vanished := q.buckets.Update(bucketID, f)
	q.reclaim(vanished)
}

// DeletePeersBucket drops bucketID entirely (e.g. the collaborator
// that owned it disconnected), reclaiming every peer that fell out of
// the fold as a result.
func (q *OutboundQ) DeletePeersBucket(bucketID string) {
	vanished := q.buckets.Delete(bucketID)
	q.reclaim(vanished)
}

func (q *OutboundQ) reclaim(vanished map[gossip.NodeID]struct{}) {
	touched := make(map[gossip.Precedence]struct{})
	for nid := range vanished {
		for _, pkt := range q.mq.RemoveAllIn(ByDest(nid)) {
			pkt.SentSlot.Cancel()
			touched[pkt.Prec] = struct{}{}
		}
		q.inFlight.delete(nid)
		q.failures.delete(nid)
	}
	for prec := range touched {
		q.metrics.SetQueueSize(prec, q.mq.SizeBy(ByPrec(prec)))
	}
}

// ClearRecentFailures implements clear_recent_failures(): empties the
// failure table wholesale, e.g. when an external signal suggests
// connectivity has returned.
func (q *OutboundQ) ClearRecentFailures() {
	q.failures.clearAll()
}

// Enqueue is fire-and-forget: the returned handles may be dropped.
func (q *OutboundQ) Enqueue(msgType gossip.MsgType, origin gossip.Origin, payload any) []EnqueueResult {
	return q.runInstructions(msgType, origin, payload, nil)
}

// EnqueueTo restricts enqueue to the given subset of currently-known
// peers.
func (q *OutboundQ) EnqueueTo(msgType gossip.MsgType, origin gossip.Origin, payload any, restriction []gossip.NodeID) []EnqueueResult {
	return q.runInstructions(msgType, origin, payload, restriction)
}

// EnqueueSync implements enqueue_sync: await every result handle,
// logging if none succeeded.
func (q *OutboundQ) EnqueueSync(ctx context.Context, msgType gossip.MsgType, origin gossip.Origin, payload any) ([]EnqueueResult, bool) {
	return q.enqueueSync(ctx, q.Enqueue(msgType, origin, payload), msgType)
}

// EnqueueSyncTo is EnqueueSync restricted to a peer subset.
func (q *OutboundQ) EnqueueSyncTo(ctx context.Context, msgType gossip.MsgType, origin gossip.Origin, payload any, restriction []gossip.NodeID) ([]EnqueueResult, bool) {
	return q.enqueueSync(ctx, q.EnqueueTo(msgType, origin, payload, restriction), msgType)
}

func (q *OutboundQ) enqueueSync(ctx context.Context, results []EnqueueResult, msgType gossip.MsgType) ([]EnqueueResult, bool) {
	anySucceeded := false
	for _, r := range results {
		if _, err := r.Result.Wait(ctx); err == nil {
			anySucceeded = true
		}
	}
	if !anySucceeded {
		q.logger.Warn("enqueue_sync: no destination succeeded", zap.Stringer("msg_type", msgType))
	}
	return results, anySucceeded
}

// EnqueueCherished implements enqueue_cherished: retries the whole
// enqueue up to cherishRetries times until at least one destination
// succeeds.
func (q *OutboundQ) EnqueueCherished(ctx context.Context, msgType gossip.MsgType, origin gossip.Origin, payload any) bool {
	return q.enqueueCherished(ctx, msgType, func() []EnqueueResult { return q.Enqueue(msgType, origin, payload) })
}

// EnqueueCherishedTo is EnqueueCherished restricted to a peer subset.
func (q *OutboundQ) EnqueueCherishedTo(ctx context.Context, msgType gossip.MsgType, origin gossip.Origin, payload any, restriction []gossip.NodeID) bool {
	return q.enqueueCherished(ctx, msgType, func() []EnqueueResult { return q.EnqueueTo(msgType, origin, payload, restriction) })
}

func (q *OutboundQ) enqueueCherished(ctx context.Context, msgType gossip.MsgType, attempt func() []EnqueueResult) bool {
	for i := 0; i < cherishRetries; i++ {
		results := attempt()
		for _, r := range results {
			if _, err := r.Result.Wait(ctx); err == nil {
				return true
			}
		}
	}
	q.logger.Error("policy failure", zap.Error(&CherishExhausted{MsgType: msgType}))
	return false
}

// Flush implements flush(): submits a FlushMsg and blocks until the
// scheduler acks it, which only happens once the scheduled queue has
// drained to empty and every in-flight worker has completed — so every
// packet enqueued strictly before this call has had its sent_slot
// resolved by the time Flush returns.
func (q *OutboundQ) Flush() {
	msg, ack := signal.NewFlushMsg()
	q.sig.SubmitCtrl(msg)
	<-ack.Done()
}

// WaitShutdown implements wait_shutdown(): submits a ShutdownMsg and
// blocks until the scheduler has drained and exited its loop.
func (q *OutboundQ) WaitShutdown() {
	msg, ack := signal.NewShutdownMsg()
	q.sig.SubmitCtrl(msg)
	<-ack.Done()
}

// DumpState implements dump_state(formatter): a human-readable summary
// of queue depth, in-flight sends and known peer counts, for operator
// diagnostics.
func (q *OutboundQ) DumpState() string {
	var b strings.Builder
	fmt.Fprintf(&b, "OutboundQ(self=%s, state=%s)\n", q.selfID, q.getState())
	fmt.Fprintf(&b, "  queue: total=%d\n", q.mq.TotalSize())
	for _, prec := range gossip.Precedences() {
		fmt.Fprintf(&b, "    %s: %d\n", prec, q.mq.SizeBy(ByPrec(prec)))
	}
	fmt.Fprintf(&b, "  in_flight:\n")
	for dest, n := range q.inFlight.snapshot() {
		fmt.Fprintf(&b, "    %s: %d\n", dest, n)
	}
	fmt.Fprintf(&b, "  known_peers:\n")
	for destType, n := range q.buckets.Fold().CountByType() {
		fmt.Fprintf(&b, "    %s: %d\n", destType, n)
	}
	return b.String()
}
