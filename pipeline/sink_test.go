package pipeline

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/zero-day-ai/eventdrain"
	"github.com/zero-day-ai/eventdrain/event"
)

var fixedNow = time.UnixMilli(1700000000123)

func newTestSink(t *testing.T, agg *Aggregator, app *memAppender) *sink {
	t.Helper()
	return &sink{
		agg:         agg,
		appender:    app,
		transform:   event.Transform,
		fingerprint: event.Fingerprint,
		now:         func() time.Time { return fixedNow },
		logger:      discardLogger(),
		tracer:      tracenoop.NewTracerProvider().Tracer("test"),
		metrics:     noopMetrics(t),
	}
}

func TestRecord(t *testing.T) {
	ev := testEvent(42)
	got := Record(fixedNow, ev, "abc")
	assert.Equal(t, []string{"1700000000123", "42", "abc"}, got)
}

func TestSink_AppendsInReceiveOrder(t *testing.T) {
	agg := NewAggregator(8)
	app := &memAppender{}
	for _, i := range []int32{5, 1, 3} {
		require.NoError(t, agg.Send(Item(testEvent(i), 0)))
	}
	require.NoError(t, agg.SendShutdown())

	n, err := newTestSink(t, agg, app).run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 3, n)
	rows := app.Rows()
	require.Len(t, rows, 3)
	assert.Equal(t, "5", rows[0][1])
	assert.Equal(t, "1", rows[1][1])
	assert.Equal(t, "3", rows[2][1])
	assert.True(t, agg.Closed())
}

func TestSink_FingerprintsTransformedEvent(t *testing.T) {
	agg := NewAggregator(2)
	app := &memAppender{}
	ev := testEvent(2)
	require.NoError(t, agg.Send(Item(ev, 0)))
	require.NoError(t, agg.SendShutdown())

	_, err := newTestSink(t, agg, app).run(context.Background())
	require.NoError(t, err)

	rows := app.Rows()
	require.Len(t, rows, 1)
	transformed, err := event.Fingerprint(event.Transform(ev))
	require.NoError(t, err)
	raw, err := event.Fingerprint(ev)
	require.NoError(t, err)
	assert.Equal(t, transformed, rows[0][2])
	assert.NotEqual(t, raw, rows[0][2])
}

func TestSink_ShutdownOnly(t *testing.T) {
	agg := NewAggregator(1)
	require.NoError(t, agg.SendShutdown())
	app := &memAppender{}

	n, err := newTestSink(t, agg, app).run(context.Background())

	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, app.Rows())
}

func TestSink_PersistenceFault(t *testing.T) {
	agg := NewAggregator(8)
	app := &memAppender{failAt: 1, failErr: errBoom}
	for i := int32(0); i < 3; i++ {
		require.NoError(t, agg.Send(Item(testEvent(i), 0)))
	}

	n, err := newTestSink(t, agg, app).run(context.Background())

	assert.Equal(t, 1, n)
	require.Error(t, err)
	assert.ErrorIs(t, err, errBoom)
	assert.True(t, eventdrain.IsKind(err, eventdrain.KindPersistence))
	assert.True(t, agg.Closed())
	assert.Zero(t, agg.Len(), "items left behind are discarded")
	assert.ErrorIs(t, agg.Send(Item(testEvent(9), 0)), ErrAggregatorClosed)
}

func TestSink_IgnoresCancellation(t *testing.T) {
	agg := NewAggregator(4)
	app := &memAppender{}
	require.NoError(t, agg.Send(Item(testEvent(1), 0)))
	require.NoError(t, agg.SendShutdown())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	n, err := newTestSink(t, agg, app).run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSink_TracesAppends(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	agg := NewAggregator(4)
	app := &memAppender{failAt: 1, failErr: errBoom}
	require.NoError(t, agg.Send(Item(testEvent(1), 0)))
	require.NoError(t, agg.Send(Item(testEvent(2), 0)))

	s := newTestSink(t, agg, app)
	s.tracer = tp.Tracer("test")
	_, err := s.run(context.Background())
	require.Error(t, err)

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, "eventdrain.sink.append", spans[0].Name)
	assert.Equal(t, codes.Unset, spans[0].Status.Code)
	assert.Equal(t, codes.Error, spans[1].Status.Code)
}

func TestSink_UnencodableEventIsPersistenceFault(t *testing.T) {
	agg := NewAggregator(4)
	app := &memAppender{}
	require.NoError(t, agg.Send(Item(testEvent(1), 0)))
	bad := testEvent(2)
	bad.Price = math.Inf(1)
	require.NoError(t, agg.Send(Item(bad, 0)))

	n, err := newTestSink(t, agg, app).run(context.Background())

	assert.Equal(t, 1, n)
	require.Error(t, err)
	assert.True(t, eventdrain.IsKind(err, eventdrain.KindPersistence))
	assert.Len(t, app.Rows(), 1)
}
