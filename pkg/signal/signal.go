// Package signal implements a single-consumer wakeup with piggy-backed
// control messages: "something changed, retry".
package signal

import (
	"sync"

	"github.com/CityOfZion/neoq/pkg/future"
)

// CtrlMsg is an out-of-band instruction piggy-backed on the wakeup
// signal: either a request to flush in-flight work or to shut down.
type CtrlMsg interface {
	// Ack resolves the caller's wait on this control message.
	Ack()
}

// FlushMsg asks the dequeue scheduler to wait for all in-flight
// workers to finish, then keep running.
type FlushMsg struct {
	ack *future.Cell[struct{}]
}

// NewFlushMsg returns a FlushMsg whose ack cell is ready to Wait on.
func NewFlushMsg() (*FlushMsg, *future.Cell[struct{}]) {
	c := future.New[struct{}]()
	return &FlushMsg{ack: c}, c
}

// Ack implements CtrlMsg.
func (m *FlushMsg) Ack() { m.ack.Resolve(struct{}{}, nil) }

// ShutdownMsg asks the dequeue scheduler to wait for all in-flight
// workers to finish, then terminate.
type ShutdownMsg struct {
	ack *future.Cell[struct{}]
}

// NewShutdownMsg returns a ShutdownMsg whose ack cell is ready to Wait on.
func NewShutdownMsg() (*ShutdownMsg, *future.Cell[struct{}]) {
	c := future.New[struct{}]()
	return &ShutdownMsg{ack: c}, c
}

// Ack implements CtrlMsg.
func (m *ShutdownMsg) Ack() { m.ack.Resolve(struct{}{}, nil) }

// Signal is a one-bit wakeup flag with a FIFO of pending control
// messages. Exactly one goroutine may call Wait (or the RetryIfNothing
// helper); any number of goroutines may call Poke or SubmitCtrl.
type Signal struct {
	wake chan struct{}

	mu   sync.Mutex
	ctrl []CtrlMsg
}

// New returns a ready-to-use Signal.
func New() *Signal {
	return &Signal{wake: make(chan struct{}, 1)}
}

// Poke wakes the consumer. Pokes are idempotent: any number of pokes
// without an intervening Wait collapse into a single wakeup.
func (s *Signal) Poke() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// SubmitCtrl enqueues a control message and pokes the consumer.
func (s *Signal) SubmitCtrl(msg CtrlMsg) {
	s.mu.Lock()
	s.ctrl = append(s.ctrl, msg)
	s.mu.Unlock()
	s.Poke()
}

// CtrlCheck pops the oldest pending control message, if any. Callers
// should only invoke this when the scheduled queue is empty, so that
// scheduled messages take priority over flush/shutdown.
func (s *Signal) CtrlCheck() (CtrlMsg, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.ctrl) == 0 {
		return nil, false
	}
	msg := s.ctrl[0]
	s.ctrl = s.ctrl[1:]
	return msg, true
}

// Wait blocks until the next Poke.
func (s *Signal) Wait() {
	<-s.wake
}

// RetryIfNothing runs act; if it produces a value, returns it.
// Otherwise checks for a pending control message (via ctrlCheck,
// typically Signal.CtrlCheck gated on an empty queue) and returns it
// if present; otherwise blocks until the next Poke and tries again.
func RetryIfNothing[T any](s *Signal, act func() (T, bool), ctrlCheck func() (CtrlMsg, bool)) (T, CtrlMsg) {
	for {
		if v, ok := act(); ok {
			return v, nil
		}
		if ctrl, ok := ctrlCheck(); ok {
			var zero T
			return zero, ctrl
		}
		s.Wait()
	}
}
