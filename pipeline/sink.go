package pipeline

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/zero-day-ai/eventdrain"
	"github.com/zero-day-ai/eventdrain/event"
	"github.com/zero-day-ai/eventdrain/store"
)

// Record builds the persisted row for a transformed event:
// [recorded_at unix ms, index, fingerprint].
func Record(at time.Time, ev event.Event, fingerprint string) []string {
	return []string{
		strconv.FormatInt(at.UnixMilli(), 10),
		strconv.FormatInt(int64(ev.Index), 10),
		fingerprint,
	}
}

// sink is the only reader of the aggregator and the only writer to the store.
type sink struct {
	agg         *Aggregator
	appender    store.Appender
	transform   func(event.Event) event.Event
	fingerprint func(event.Event) (string, error)
	now         func() time.Time
	logger      *slog.Logger
	tracer      trace.Tracer
	metrics     *metrics
}

// run consumes until Shutdown and returns the number of records appended.
// The receiving end is closed on return either way, so senders blocked on a
// full aggregator are released if the sink fails.
func (s *sink) run(ctx context.Context) (int, error) {
	defer s.agg.Close()

	// cancellation stops the workers, never the drain
	ctx = context.WithoutCancel(ctx)

	persisted := 0
	for {
		msg := s.agg.Receive()
		if msg.IsShutdown() {
			s.logger.Debug("shutdown marker received", "persisted", persisted)
			return persisted, nil
		}

		if err := s.process(ctx, msg); err != nil {
			s.logger.Error("failed to persist record",
				"index", msg.Event.Index,
				"worker_num", msg.Worker,
				"error", err,
			)
			s.agg.Close()
			if dropped := s.agg.Drain(); dropped > 0 {
				s.logger.Warn("discarding items after persistence failure", "dropped", dropped)
			}
			return persisted, eventdrain.NewPersistenceError("pipeline.sink", err)
		}
		persisted++
	}
}

func (s *sink) process(ctx context.Context, msg Message) error {
	ctx, span := s.tracer.Start(ctx, "eventdrain.sink.append")
	defer span.End()

	ev := s.transform(msg.Event)
	fp, err := s.fingerprint(ev)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fingerprint failed")
		return err
	}

	span.SetAttributes(
		attribute.Int("event.index", int(ev.Index)),
		attribute.Int("worker.num", msg.Worker),
		attribute.String("event.fingerprint", fp),
	)

	if err := s.appender.Append(ctx, Record(s.now(), ev, fp)); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "append failed")
		return err
	}

	s.metrics.itemPersisted(ctx)
	return nil
}
