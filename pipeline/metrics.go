package pipeline

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// metrics holds the OpenTelemetry instruments for a pipeline.
type metrics struct {
	// received counts items a worker sent to the aggregator
	received metric.Int64Counter

	// persisted counts records appended by the sink
	persisted metric.Int64Counter

	// terminations counts worker terminations by reason
	terminations metric.Int64Counter

	// inflight observes aggregator occupancy
	inflight metric.Int64ObservableGauge
}

func newMetrics(meter metric.Meter) (*metrics, error) {
	m := &metrics{}
	var err error

	m.received, err = meter.Int64Counter(
		"eventdrain.items.received",
		metric.WithDescription("Items decoded by workers and sent to the aggregator"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create received counter: %w", err)
	}

	m.persisted, err = meter.Int64Counter(
		"eventdrain.items.persisted",
		metric.WithDescription("Records appended by the sink"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create persisted counter: %w", err)
	}

	m.terminations, err = meter.Int64Counter(
		"eventdrain.worker.terminations",
		metric.WithDescription("Worker terminations by reason"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create terminations counter: %w", err)
	}

	m.inflight, err = meter.Int64ObservableGauge(
		"eventdrain.aggregator.inflight",
		metric.WithDescription("Items waiting in the aggregator"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create inflight gauge: %w", err)
	}

	return m, nil
}

// observe registers agg with the inflight gauge for the duration of a run.
func (m *metrics) observe(meter metric.Meter, agg *Aggregator) (metric.Registration, error) {
	return meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		o.ObserveInt64(m.inflight, int64(agg.Len()))
		return nil
	}, m.inflight)
}

func (m *metrics) itemReceived(ctx context.Context, worker int) {
	m.received.Add(ctx, 1, metric.WithAttributes(attribute.Int("worker.num", worker)))
}

func (m *metrics) itemPersisted(ctx context.Context) {
	m.persisted.Add(ctx, 1)
}

func (m *metrics) workerTerminated(ctx context.Context, reason Termination) {
	m.terminations.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason.String())))
}
