package outboundq_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/CityOfZion/neoq/pkg/gossip"
	"github.com/CityOfZion/neoq/pkg/outboundq"
	"github.com/CityOfZion/neoq/pkg/policy"
)

// TestRateLimitSpacesDispatchesApart is scenario S4: a PerSec(2) limit
// on Relay sends keeps consecutive dispatch starts at least 500ms
// apart.
func TestRateLimitSpacesDispatchesApart(t *testing.T) {
	enq := policy.NewTableEnqueuePolicy().
		SetSender(gossip.Transaction, []policy.Instruction{
			{Kind: policy.EnqueueAll, DestTypes: []gossip.NodeType{gossip.Relay}, MaxAhead: 10, Prec: gossip.Low},
		})
	deq := policy.NewTableDequeuePolicy(map[gossip.NodeType]policy.DequeueParams{
		gossip.Relay: {RateLimit: policy.PerSecLimit(2), MaxInFlight: 1},
	})
	fail := policy.NewTableFailurePolicy(time.Minute, nil)
	q := outboundq.New("self", enq, deq, fail)

	// A single alternative: both enqueue calls pick r1, forcing the
	// second packet to wait behind the first's in-flight slot and
	// therefore behind its rate-limit sleep.
	q.UpdatePeersBucket("net", func(gossip.Peers) gossip.Peers {
		return gossip.SimplePeers(gossip.Relay, []gossip.NodeID{"r1"})
	})

	var mu sync.Mutex
	var starts []time.Time
	send := func(ctx context.Context, payload any, dest gossip.NodeID) (any, error) {
		mu.Lock()
		starts = append(starts, time.Now())
		mu.Unlock()
		return nil, nil
	}
	go q.DequeueThread(context.Background(), send)

	q.Enqueue(gossip.Transaction, gossip.OriginSender(), "tx1")
	q.Enqueue(gossip.Transaction, gossip.OriginSender(), "tx2")
	q.Flush()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, starts, 2)
	gap := starts[1].Sub(starts[0])
	if gap < 0 {
		gap = -gap
	}
	require.GreaterOrEqual(t, gap, 400*time.Millisecond)

	q.WaitShutdown()
}

// TestInFlightBoundIsRespected is property 2: at no point does the
// number of unacknowledged sends to one destination exceed its
// dequeue policy's max_in_flight.
func TestInFlightBoundIsRespected(t *testing.T) {
	enq := policy.NewTableEnqueuePolicy().
		SetSender(gossip.Transaction, []policy.Instruction{
			{Kind: policy.EnqueueAll, DestTypes: []gossip.NodeType{gossip.Relay}, MaxAhead: 100, Prec: gossip.Low},
		})
	deq := policy.NewTableDequeuePolicy(map[gossip.NodeType]policy.DequeueParams{
		gossip.Relay: {RateLimit: policy.Unlimited, MaxInFlight: 1},
	})
	fail := policy.NewTableFailurePolicy(time.Minute, nil)
	q := outboundq.New("self", enq, deq, fail)

	q.UpdatePeersBucket("net", func(gossip.Peers) gossip.Peers {
		return gossip.SimplePeers(gossip.Relay, []gossip.NodeID{"r1"})
	})

	var mu sync.Mutex
	current, maxSeen := 0, 0
	release := make(chan struct{})
	send := func(ctx context.Context, payload any, dest gossip.NodeID) (any, error) {
		mu.Lock()
		current++
		if current > maxSeen {
			maxSeen = current
		}
		mu.Unlock()
		<-release
		mu.Lock()
		current--
		mu.Unlock()
		return nil, nil
	}
	go q.DequeueThread(context.Background(), send)

	for i := 0; i < 5; i++ {
		q.Enqueue(gossip.Transaction, gossip.OriginSender(), i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	q.Flush()

	mu.Lock()
	require.Equal(t, 1, maxSeen)
	mu.Unlock()

	q.WaitShutdown()
}
