package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"

	"github.com/zero-day-ai/eventdrain"
	"github.com/zero-day-ai/eventdrain/event"
	"github.com/zero-day-ai/eventdrain/queue"
	"github.com/zero-day-ai/eventdrain/store"
)

const instrumentationName = "github.com/zero-day-ai/eventdrain/pipeline"

// Config sizes a pipeline run.
type Config struct {
	// Queue is the name of the list workers pop from.
	Queue string

	// Workers is the pool size N.
	Workers int

	// IdleTimeout is T, how long a pop waits on an empty queue.
	IdleTimeout time.Duration

	// ChannelCapacity is C, the aggregator bound.
	ChannelCapacity int
}

// Validate checks the configuration.
func (c Config) Validate() error {
	var errs []error
	if c.Queue == "" {
		errs = append(errs, errors.New("queue name is required"))
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be at least 1, got %d", c.Workers))
	}
	if c.IdleTimeout <= 0 {
		errs = append(errs, fmt.Errorf("idle timeout must be positive, got %s", c.IdleTimeout))
	}
	if c.ChannelCapacity < 1 {
		errs = append(errs, fmt.Errorf("channel capacity must be at least 1, got %d", c.ChannelCapacity))
	}
	return errors.Join(errs...)
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the structured logger. Default: slog.Default()
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithTracerProvider enables tracing of runs and appends. Default: no-op
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(p *Pipeline) {
		p.tracer = tp.Tracer(instrumentationName)
	}
}

// WithMeterProvider enables pipeline metrics. Default: no-op
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(p *Pipeline) {
		p.meter = mp.Meter(instrumentationName)
	}
}

// WithClock sets the clock used for record timestamps. Default: time.Now
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		p.now = now
	}
}

// WithDecoder replaces event.Decode.
func WithDecoder(d Decoder) Option {
	return func(p *Pipeline) {
		p.decode = d
	}
}

// WithTransform replaces event.Transform.
func WithTransform(fn func(event.Event) event.Event) Option {
	return func(p *Pipeline) {
		p.transform = fn
	}
}

// Pipeline drains one queue into one store.
type Pipeline struct {
	cfg      Config
	open     queue.Opener
	appender store.Appender

	logger      *slog.Logger
	tracer      trace.Tracer
	meter       metric.Meter
	metrics     *metrics
	now         func() time.Time
	decode      Decoder
	transform   func(event.Event) event.Event
	fingerprint func(event.Event) (string, error)
}

// Summary describes a completed run.
type Summary struct {
	RunID        string
	Persisted    int
	Terminations map[Termination]int
	Faults       int
	Duration     time.Duration
}

// New creates a Pipeline. open is called once per worker at the start of
// every Run; appender receives every record and is not closed by the
// Pipeline.
func New(cfg Config, open queue.Opener, appender store.Appender, opts ...Option) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, eventdrain.NewConfigurationError("pipeline.New", err)
	}
	if open == nil {
		return nil, eventdrain.NewConfigurationError("pipeline.New", errors.New("queue opener is required"))
	}
	if appender == nil {
		return nil, eventdrain.NewConfigurationError("pipeline.New", errors.New("appender is required"))
	}

	p := &Pipeline{
		cfg:         cfg,
		open:        open,
		appender:    appender,
		logger:      slog.Default(),
		tracer:      tracenoop.NewTracerProvider().Tracer(instrumentationName),
		meter:       metricnoop.NewMeterProvider().Meter(instrumentationName),
		now:         time.Now,
		decode:      event.Decode,
		transform:   event.Transform,
		fingerprint: event.Fingerprint,
	}
	for _, opt := range opts {
		opt(p)
	}

	m, err := newMetrics(p.meter)
	if err != nil {
		return nil, eventdrain.NewConfigurationError("pipeline.New", err)
	}
	p.metrics = m

	return p, nil
}

// Run drains the queue until every worker has terminated and the sink has
// consumed the shutdown marker.
//
// Failing to open any queue connection is a startup fault and no worker
// starts. A persistence failure ends the run with a persistence fault. If
// the supervisor cannot deliver the shutdown marker, Run returns a shutdown
// fault.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	start := time.Now()
	runID := uuid.NewString()
	logger := p.logger.With("run_id", runID, "queue", p.cfg.Queue)

	ctx, span := p.tracer.Start(ctx, "eventdrain.run", trace.WithAttributes(
		attribute.String("run.id", runID),
		attribute.String("queue.name", p.cfg.Queue),
		attribute.Int("pool.workers", p.cfg.Workers),
		attribute.Int("aggregator.capacity", p.cfg.ChannelCapacity),
	))
	defer span.End()

	summary := Summary{RunID: runID, Terminations: map[Termination]int{}}

	sources, err := p.openSources(ctx, logger)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "startup failed")
		logger.Error("failed to open queue connections", "error", err)
		return summary, err
	}
	defer func() {
		for _, src := range sources {
			eventdrain.CloseWithLog(src, logger, "queue connection")
		}
	}()

	agg := NewAggregator(p.cfg.ChannelCapacity)
	if reg, err := p.metrics.observe(p.meter, agg); err != nil {
		logger.Warn("failed to register aggregator gauge", "error", err)
	} else {
		defer func() {
			if err := reg.Unregister(); err != nil {
				logger.Warn("failed to unregister aggregator gauge", "error", err)
			}
		}()
	}

	logger.Info("pipeline starting",
		"workers", p.cfg.Workers,
		"idle_timeout", p.cfg.IdleTimeout,
		"channel_capacity", p.cfg.ChannelCapacity,
	)

	handles := make([]*WorkerHandle, len(sources))
	for i, src := range sources {
		handles[i] = spawn(ctx, &worker{
			num:     i,
			source:  src,
			queue:   p.cfg.Queue,
			timeout: p.cfg.IdleTimeout,
			agg:     agg,
			decode:  p.decode,
			logger:  logger.With("worker_num", i),
			metrics: p.metrics,
		})
	}

	sup := &supervisor{handles: handles, agg: agg, logger: logger, metrics: p.metrics}
	supDone := make(chan supervisorResult, 1)
	go func() {
		supDone <- sup.run(ctx)
	}()

	s := &sink{
		agg:         agg,
		appender:    p.appender,
		transform:   p.transform,
		fingerprint: p.fingerprint,
		now:         p.now,
		logger:      logger,
		tracer:      p.tracer,
		metrics:     p.metrics,
	}
	persisted, sinkErr := s.run(ctx)
	supRes := <-supDone

	summary.Persisted = persisted
	summary.Terminations = supRes.terminations
	summary.Faults = supRes.faults
	summary.Duration = time.Since(start)

	span.SetAttributes(
		attribute.Int("run.persisted", persisted),
		attribute.Int("run.faults", supRes.faults),
	)

	runErr := sinkErr
	if runErr == nil {
		runErr = supRes.err
	}
	if runErr != nil {
		span.RecordError(runErr)
		span.SetStatus(codes.Error, "run failed")
		return summary, runErr
	}

	logger.Info("pipeline finished",
		"persisted", persisted,
		"faults", supRes.faults,
		"duration", summary.Duration,
	)
	span.SetStatus(codes.Ok, "")
	return summary, nil
}

// openSources opens one queue connection per worker concurrently. On any
// failure every opened connection is closed.
func (p *Pipeline) openSources(ctx context.Context, logger *slog.Logger) ([]queue.Source, error) {
	sources := make([]queue.Source, p.cfg.Workers)

	g, gctx := errgroup.WithContext(ctx)
	for i := range sources {
		g.Go(func() error {
			src, err := p.open(gctx)
			if err != nil {
				return fmt.Errorf("worker %d: %w", i, err)
			}
			sources[i] = src
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		for _, src := range sources {
			if src != nil {
				eventdrain.CloseWithLog(src, logger, "queue connection")
			}
		}
		return nil, eventdrain.NewStartupError("pipeline.openSources",
			fmt.Errorf("%w: %w", eventdrain.ErrQueueUnavailable, err))
	}
	return sources, nil
}
