package pipeline

import (
	"errors"
	"sync"
	"sync/atomic"
)

var (
	// ErrAggregatorClosed is returned by Send once the receiving end is gone.
	ErrAggregatorClosed = errors.New("aggregator closed")

	// ErrShutdownAlreadySent is returned by a second SendShutdown.
	ErrShutdownAlreadySent = errors.New("shutdown already sent")
)

// Aggregator is a bounded multi-producer, single-consumer queue of Messages.
//
// Send blocks while Cap messages are waiting. Close marks the receiving end
// gone: blocked and future Sends return ErrAggregatorClosed instead of
// waiting forever. The underlying channel is never closed, so concurrent
// senders cannot panic. Messages still buffered at Close are never received;
// Drain counts them.
type Aggregator struct {
	ch     chan Message
	closed chan struct{}

	closeOnce    sync.Once
	shutdownSent atomic.Bool
}

// NewAggregator creates an Aggregator holding at most capacity messages.
// A capacity below one is raised to one.
func NewAggregator(capacity int) *Aggregator {
	if capacity < 1 {
		capacity = 1
	}
	return &Aggregator{
		ch:     make(chan Message, capacity),
		closed: make(chan struct{}),
	}
}

// Send enqueues msg, blocking while the aggregator is full. Shutdown messages
// go through SendShutdown.
func (a *Aggregator) Send(msg Message) error {
	if msg.IsShutdown() {
		return a.SendShutdown()
	}
	return a.send(msg)
}

// SendShutdown enqueues the terminal marker. Only the first call sends.
func (a *Aggregator) SendShutdown() error {
	if !a.shutdownSent.CompareAndSwap(false, true) {
		return ErrShutdownAlreadySent
	}
	return a.send(Shutdown())
}

func (a *Aggregator) send(msg Message) error {
	// select picks randomly when both cases are ready
	select {
	case <-a.closed:
		return ErrAggregatorClosed
	default:
	}

	select {
	case a.ch <- msg:
	case <-a.closed:
		return ErrAggregatorClosed
	}

	// the enqueue may have won a race with Close; nothing reads after Close
	select {
	case <-a.closed:
		return ErrAggregatorClosed
	default:
		return nil
	}
}

// Receive blocks until a message is available.
func (a *Aggregator) Receive() Message {
	return <-a.ch
}

// Close marks the receiving end gone. Safe to call more than once.
func (a *Aggregator) Close() {
	a.closeOnce.Do(func() { close(a.closed) })
}

// Drain discards every waiting message and returns how many there were.
// After Close it counts the items that will never reach the sink.
func (a *Aggregator) Drain() int {
	n := 0
	for {
		select {
		case <-a.ch:
			n++
		default:
			return n
		}
	}
}

// Closed reports whether Close has been called.
func (a *Aggregator) Closed() bool {
	select {
	case <-a.closed:
		return true
	default:
		return false
	}
}

// Len returns the number of messages waiting.
func (a *Aggregator) Len() int {
	return len(a.ch)
}

// Cap returns the capacity.
func (a *Aggregator) Cap() int {
	return cap(a.ch)
}
