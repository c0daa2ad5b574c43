package signal_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/CityOfZion/neoq/pkg/signal"
)

func TestRetryIfNothingReturnsImmediatelyWhenActSucceeds(t *testing.T) {
	s := signal.New()
	v, ctrl := signal.RetryIfNothing(s, func() (int, bool) { return 42, true }, s.CtrlCheck)
	require.Nil(t, ctrl)
	require.Equal(t, 42, v)
}

func TestRetryIfNothingBlocksUntilPoke(t *testing.T) {
	s := signal.New()
	var ready atomic.Bool

	done := make(chan int, 1)
	go func() {
		v, _ := signal.RetryIfNothing(s, func() (int, bool) {
			if ready.Load() {
				return 7, true
			}
			return 0, false
		}, s.CtrlCheck)
		done <- v
	}()

	select {
	case <-done:
		t.Fatal("act should not have succeeded yet")
	case <-time.After(20 * time.Millisecond):
	}

	ready.Store(true)
	s.Poke()

	select {
	case v := <-done:
		require.Equal(t, 7, v)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for poke to wake consumer")
	}
}

func TestCtrlMsgOnlyDeliveredWhenActKeepsFailing(t *testing.T) {
	s := signal.New()
	flush, ack := signal.NewFlushMsg()
	s.SubmitCtrl(flush)

	_, ctrl := signal.RetryIfNothing(s, func() (int, bool) { return 0, false }, s.CtrlCheck)
	require.Equal(t, flush, ctrl)

	ctrl.Ack()
	require.True(t, ack.IsResolved())
}

func TestMultiplePokesWithoutConsumerCollapse(t *testing.T) {
	s := signal.New()
	s.Poke()
	s.Poke()
	s.Poke()

	// a single Wait should drain the coalesced poke without blocking.
	done := make(chan struct{})
	go func() {
		s.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected coalesced poke to unblock Wait")
	}
}

func TestCtrlCheckFIFO(t *testing.T) {
	s := signal.New()
	flush, _ := signal.NewFlushMsg()
	shutdown, _ := signal.NewShutdownMsg()
	s.SubmitCtrl(flush)
	s.SubmitCtrl(shutdown)

	first, ok := s.CtrlCheck()
	require.True(t, ok)
	require.Equal(t, signal.CtrlMsg(flush), first)

	second, ok := s.CtrlCheck()
	require.True(t, ok)
	require.Equal(t, signal.CtrlMsg(shutdown), second)

	_, ok = s.CtrlCheck()
	require.False(t, ok)
}
