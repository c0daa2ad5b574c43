package registry_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/CityOfZion/neoq/pkg/outboundq/registry"
)

func TestWaitAllBlocksUntilWorkersReturn(t *testing.T) {
	r := registry.New()
	var done int32

	for i := 0; i < 5; i++ {
		r.Go(context.Background(), func(ctx context.Context) {
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt32(&done, 1)
		})
	}

	r.WaitAll()
	require.EqualValues(t, 5, atomic.LoadInt32(&done))
	require.Equal(t, 0, r.Len())
}

func TestKillAllCancelsLiveWorkerContexts(t *testing.T) {
	r := registry.New()
	cancelled := make(chan struct{}, 1)

	r.Go(context.Background(), func(ctx context.Context) {
		<-ctx.Done()
		cancelled <- struct{}{}
	})

	// Give the worker a moment to register and start waiting.
	time.Sleep(5 * time.Millisecond)
	r.KillAll()

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("worker was not cancelled")
	}
	r.WaitAll()
}

func TestLenTracksLiveWorkers(t *testing.T) {
	r := registry.New()
	release := make(chan struct{})

	r.Go(context.Background(), func(ctx context.Context) { <-release })
	require.Equal(t, 1, r.Len())

	close(release)
	r.WaitAll()
	require.Equal(t, 0, r.Len())
}
