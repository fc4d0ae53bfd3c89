package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/zero-day-ai/eventdrain/event"
	"github.com/zero-day-ai/eventdrain/queue"
)

// memQueue is an in-memory queue shared by every source a test opens.
// An empty queue reports idle immediately instead of waiting for the timeout.
type memQueue struct {
	mu     sync.Mutex
	items  []string
	popped int
	popErr error
}

func newMemQueue(payloads ...string) *memQueue {
	return &memQueue{items: append([]string(nil), payloads...)}
}

func (q *memQueue) pop() (*queue.RawItem, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.popErr != nil {
		return nil, q.popErr
	}
	if len(q.items) == 0 {
		return nil, nil
	}
	v := q.items[0]
	q.items = q.items[1:]
	q.popped++
	return &queue.RawItem{Key: "test", Value: v}, nil
}

func (q *memQueue) Popped() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.popped
}

func (q *memQueue) Remaining() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *memQueue) opener() queue.Opener {
	return func(ctx context.Context) (queue.Source, error) {
		return &memSource{q: q}, nil
	}
}

type memSource struct {
	q      *memQueue
	closed bool
}

func (s *memSource) PopBlocking(ctx context.Context, _ string, _ time.Duration) (*queue.RawItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.q.pop()
}

func (s *memSource) Close() error {
	s.closed = true
	return nil
}

// memAppender records every appended row. If gate is set, each Append waits
// for a value on it first.
type memAppender struct {
	mu      sync.Mutex
	rows    [][]string
	gate    chan struct{}
	failAt  int
	failErr error
}

func (a *memAppender) Append(ctx context.Context, fields []string) error {
	if a.gate != nil {
		<-a.gate
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.failErr != nil && len(a.rows) == a.failAt {
		return a.failErr
	}
	a.rows = append(a.rows, append([]string(nil), fields...))
	return nil
}

func (a *memAppender) Close() error { return nil }

func (a *memAppender) Rows() [][]string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([][]string(nil), a.rows...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mustEncode(e event.Event) string {
	s, err := e.Encode()
	if err != nil {
		panic(err)
	}
	return s
}

func testEvent(index int32) event.Event {
	return event.Event{
		Index:   index,
		Wday:    uint8(index % 7),
		Payload: "payload",
		Price:   10,
		UserID:  index + 100,
	}
}

var errBoom = errors.New("boom")
