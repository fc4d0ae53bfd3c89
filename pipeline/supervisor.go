package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/zero-day-ai/eventdrain"
)

// supervisorResult is what the supervisor observed over a run.
type supervisorResult struct {
	terminations map[Termination]int
	faults       int
	err          error
}

// supervisor waits for every worker, then sends the single Shutdown.
type supervisor struct {
	handles []*WorkerHandle
	agg     *Aggregator
	logger  *slog.Logger
	metrics *metrics
}

func (s *supervisor) run(ctx context.Context) supervisorResult {
	res := supervisorResult{terminations: make(map[Termination]int)}

	for _, h := range s.handles {
		reason, err := h.Wait()
		res.terminations[reason]++
		s.metrics.workerTerminated(ctx, reason)

		if err != nil {
			res.faults++
			s.logger.Error("worker task failed",
				"worker_num", h.Num(),
				"error", err,
			)
			continue
		}
		s.logger.Debug("worker terminated",
			"worker_num", h.Num(),
			"reason", reason.String(),
		)
	}

	s.logger.Info("all workers finished",
		"workers", len(s.handles),
		"faults", res.faults,
	)

	if err := s.agg.SendShutdown(); err != nil {
		s.logger.Error("failed to deliver shutdown marker", "error", err)
		res.err = eventdrain.NewShutdownError("pipeline.supervise",
			fmt.Errorf("%w: %w", eventdrain.ErrShutdownUndelivered, err))
	}
	return res
}
