package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/zero-day-ai/eventdrain/event"
	"github.com/zero-day-ai/eventdrain/queue"
)

// Termination is the reason a worker stopped.
type Termination int

const (
	// TerminationExhausted means the pop timed out on an empty queue.
	TerminationExhausted Termination = iota + 1

	// TerminationMalformed means a payload failed to decode.
	TerminationMalformed

	// TerminationSinkClosed means the aggregator's receiving end was gone.
	TerminationSinkClosed

	// TerminationCancelled means the run context was cancelled.
	TerminationCancelled

	// TerminationTransportError means the pop failed for a reason other than
	// an idle timeout.
	TerminationTransportError

	// TerminationFault means the worker goroutine panicked.
	TerminationFault
)

// String returns the label used in logs and metrics.
func (t Termination) String() string {
	switch t {
	case TerminationExhausted:
		return "exhausted"
	case TerminationMalformed:
		return "malformed"
	case TerminationSinkClosed:
		return "sink_closed"
	case TerminationCancelled:
		return "cancelled"
	case TerminationTransportError:
		return "transport_error"
	case TerminationFault:
		return "fault"
	default:
		return fmt.Sprintf("termination(%d)", int(t))
	}
}

// Decoder turns a raw payload into an event. event.Decode is the default.
type Decoder func(payload string) (event.Event, error)

// worker drains one queue connection into the aggregator.
type worker struct {
	num     int
	source  queue.Source
	queue   string
	timeout time.Duration
	agg     *Aggregator
	decode  Decoder
	logger  *slog.Logger
	metrics *metrics
}

// run loops until the first terminating condition. Exhausted and Malformed
// are treated alike: both mean there is nothing more to usefully do now.
func (w *worker) run(ctx context.Context) Termination {
	for {
		if ctx.Err() != nil {
			return TerminationCancelled
		}

		raw, err := w.source.PopBlocking(ctx, w.queue, w.timeout)
		if err != nil {
			if ctx.Err() != nil {
				return TerminationCancelled
			}
			w.logger.Warn("pop failed", "error", err)
			return TerminationTransportError
		}
		if raw == nil {
			return TerminationExhausted
		}

		ev, err := w.decode(raw.Value)
		if err != nil {
			w.logger.Warn("discarding malformed payload",
				"error", err,
				"bytes", raw.Len(),
			)
			return TerminationMalformed
		}

		if err := w.agg.Send(Item(ev, w.num)); err != nil {
			return TerminationSinkClosed
		}
		w.metrics.itemReceived(ctx, w.num)
	}
}

// WorkerHandle is the eventual completion of a running worker.
type WorkerHandle struct {
	num  int
	done chan struct{}

	termination Termination
	err         error
}

// spawn starts w on its own goroutine. A panic inside the worker is recovered
// and reported through the handle as a fault.
func spawn(ctx context.Context, w *worker) *WorkerHandle {
	h := &WorkerHandle{num: w.num, done: make(chan struct{})}

	go func() {
		defer close(h.done)
		defer func() {
			if r := recover(); r != nil {
				h.termination = TerminationFault
				h.err = fmt.Errorf("worker %d panicked: %v", w.num, r)
			}
		}()

		h.termination = w.run(ctx)
	}()

	return h
}

// Num returns the worker's pool slot.
func (h *WorkerHandle) Num() int {
	return h.num
}

// Done is closed when the worker has stopped.
func (h *WorkerHandle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the worker stops. The error is non-nil only when the
// worker faulted.
func (h *WorkerHandle) Wait() (Termination, error) {
	<-h.done
	return h.termination, h.err
}
