package outboundq_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/CityOfZion/neoq/pkg/gossip"
	"github.com/CityOfZion/neoq/pkg/outboundq"
	"github.com/CityOfZion/neoq/pkg/policy"
)

// TestNoDuplicateDispatch is property 1: send_msg is invoked at most
// once per (payload, dest) pair a packet carries.
func TestNoDuplicateDispatch(t *testing.T) {
	enq := policy.NewTableEnqueuePolicy().
		SetSender(gossip.Transaction, []policy.Instruction{
			{Kind: policy.EnqueueAll, DestTypes: []gossip.NodeType{gossip.Relay}, MaxAhead: 100, Prec: gossip.Low},
		})
	deq := policy.NewTableDequeuePolicy(map[gossip.NodeType]policy.DequeueParams{
		gossip.Relay: {RateLimit: policy.Unlimited, MaxInFlight: 10},
	})
	fail := policy.NewTableFailurePolicy(time.Minute, nil)
	q := outboundq.New("self", enq, deq, fail)

	q.UpdatePeersBucket("net", func(gossip.Peers) gossip.Peers {
		return gossip.SimplePeers(gossip.Relay, []gossip.NodeID{"r1", "r2", "r3"})
	})

	var mu sync.Mutex
	calls := make(map[[2]string]int)
	send := func(ctx context.Context, payload any, dest gossip.NodeID) (any, error) {
		mu.Lock()
		calls[[2]string{payload.(string), string(dest)}]++
		mu.Unlock()
		return nil, nil
	}
	go q.DequeueThread(context.Background(), send)

	for i := 0; i < 20; i++ {
		q.Enqueue(gossip.Transaction, gossip.OriginSender(), fmt.Sprintf("tx%d", i))
	}
	q.Flush()

	mu.Lock()
	defer mu.Unlock()
	for k, n := range calls {
		require.Equalf(t, 1, n, "dest %v dispatched %d times", k, n)
	}
	q.WaitShutdown()
}

// TestPriorityProgressPreemptsLowerPrecedence is property 3: with a
// Highest-precedence packet queued behind Low-precedence packets for
// the same destination and its single in-flight slot, the scheduler
// drains every Highest-precedence packet before touching any Low one (the scan
// order of spec §4.F, Highest to Lowest, is exhaustive per level).
func TestPriorityProgressPreemptsLowerPrecedence(t *testing.T) {
	enq := policy.NewTableEnqueuePolicy().
		SetSender(gossip.AnnounceBlockHeader, []policy.Instruction{
			{Kind: policy.EnqueueAll, DestTypes: []gossip.NodeType{gossip.Core}, MaxAhead: 100, Prec: gossip.Highest},
		}).
		SetSender(gossip.Transaction, []policy.Instruction{
			{Kind: policy.EnqueueAll, DestTypes: []gossip.NodeType{gossip.Core}, MaxAhead: 100, Prec: gossip.Low},
		})
	deq := policy.NewTableDequeuePolicy(map[gossip.NodeType]policy.DequeueParams{
		gossip.Core: {RateLimit: policy.Unlimited, MaxInFlight: 1},
	})
	fail := policy.NewTableFailurePolicy(time.Minute, nil)
	q := outboundq.New("self", enq, deq, fail)

	q.UpdatePeersBucket("net", func(gossip.Peers) gossip.Peers {
		return gossip.SimplePeers(gossip.Core, []gossip.NodeID{"c1"})
	})

	var mu sync.Mutex
	var order []string
	started := make(chan struct{}, 1)
	hold := make(chan struct{})
	var gotFirst bool
	send := func(ctx context.Context, payload any, dest gossip.NodeID) (any, error) {
		mu.Lock()
		order = append(order, payload.(string))
		first := !gotFirst
		gotFirst = true
		mu.Unlock()
		if first {
			started <- struct{}{}
			<-hold
		}
		return nil, nil
	}
	go q.DequeueThread(context.Background(), send)

	// low1 is picked up immediately (queue starts empty) and occupies
	// the single in-flight slot; low2/low3 then queue up behind it.
	q.Enqueue(gossip.Transaction, gossip.OriginSender(), "low1")
	<-started
	q.Enqueue(gossip.Transaction, gossip.OriginSender(), "low2")
	q.Enqueue(gossip.Transaction, gossip.OriginSender(), "low3")
	q.Enqueue(gossip.AnnounceBlockHeader, gossip.OriginSender(), "high")
	close(hold)
	q.Flush()

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"low1", "high", "low2", "low3"}, order)
	q.WaitShutdown()
}

// TestFIFOPerDestinationAndPrecedence is property 4: two packets to
// the same destination at the same precedence dispatch in enqueue
// order.
func TestFIFOPerDestinationAndPrecedence(t *testing.T) {
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
	var order []int
	send := func(ctx context.Context, payload any, dest gossip.NodeID) (any, error) {
		mu.Lock()
		order = append(order, payload.(int))
		mu.Unlock()
		return nil, nil
	}
	go q.DequeueThread(context.Background(), send)

	for i := 0; i < 10; i++ {
		q.Enqueue(gossip.Transaction, gossip.OriginSender(), i)
	}
	q.Flush()

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, order)
	q.WaitShutdown()
}

// TestCherishedEnqueueNeverExceedsRetryBound is property 9:
// enqueue_cherished performs at most 4 iterations of its inner
// enqueue when every attempt keeps failing.
func TestCherishedEnqueueNeverExceedsRetryBound(t *testing.T) {
	enq := policy.NewTableEnqueuePolicy().
		SetSender(gossip.Transaction, []policy.Instruction{
			{Kind: policy.EnqueueAll, DestTypes: []gossip.NodeType{gossip.Relay}, MaxAhead: 100, Prec: gossip.Low},
		})
	deq := policy.NewTableDequeuePolicy(map[gossip.NodeType]policy.DequeueParams{
		gossip.Relay: {RateLimit: policy.Unlimited, MaxInFlight: 10},
	})
	fail := policy.NewTableFailurePolicy(time.Millisecond, nil)
	q := outboundq.New("self", enq, deq, fail)

	q.UpdatePeersBucket("net", func(gossip.Peers) gossip.Peers {
		return gossip.SimplePeers(gossip.Relay, []gossip.NodeID{"r1"})
	})

	var mu sync.Mutex
	attempts := 0
	send := func(ctx context.Context, payload any, dest gossip.NodeID) (any, error) {
		mu.Lock()
		attempts++
		mu.Unlock()
		return nil, context.DeadlineExceeded
	}
	go q.DequeueThread(context.Background(), send)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	ok := q.EnqueueCherished(ctx, gossip.Transaction, gossip.OriginSender(), "tx")
	require.False(t, ok)

	mu.Lock()
	require.LessOrEqual(t, attempts, 4)
	mu.Unlock()

	q.WaitShutdown()
}
