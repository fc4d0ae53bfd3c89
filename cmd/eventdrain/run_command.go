package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/zero-day-ai/eventdrain"
	"github.com/zero-day-ai/eventdrain/config"
	"github.com/zero-day-ai/eventdrain/pipeline"
	"github.com/zero-day-ai/eventdrain/queue"
	"github.com/zero-day-ai/eventdrain/store"
)

type runFlags struct {
	queue         string
	workers       int
	idleTimeout   time.Duration
	capacity      int
	storeDriver   string
	outputDir     string
	header        bool
	skipPreflight bool
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Drain the queue until every worker goes idle",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			flags.apply(cmd, cfg)

			cfg, err = ctx.validConfig("cmd.run")
			if err != nil {
				return err
			}

			logger := newLogger(cmd.OutOrStdout(), cfg.GetLogLevel())

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if !flags.skipPreflight {
				status := preflight(runCtx, cfg)
				if status.IsUnhealthy() {
					logger.Error("preflight failed", "message", status.Message, "details", status.Details)
					return eventdrain.NewStartupError("cmd.run", fmt.Errorf("%w: %s", errPreflightFailed, status.Message))
				}
			}

			appender, err := store.Open(runCtx, cfg.StoreOptions())
			if err != nil {
				return eventdrain.NewStartupError("store.Open", err)
			}
			defer eventdrain.CloseWithLog(appender, logger, "record store")

			if csv, ok := appender.(*store.CSVAppender); ok {
				logger.Info("writing records", "path", csv.Path())
			}

			p, err := pipeline.New(pipeline.Config{
				Queue:           cfg.Pipeline.GetQueue(),
				Workers:         cfg.Pipeline.GetWorkers(),
				IdleTimeout:     cfg.Pipeline.GetIdleTimeout(),
				ChannelCapacity: cfg.Pipeline.GetChannelCapacity(),
			}, queue.RedisOpener(redisOptions(cfg)), appender, pipeline.WithLogger(logger))
			if err != nil {
				return err
			}

			summary, err := p.Run(runCtx)
			if err != nil {
				logger.Error("run failed", "run_id", summary.RunID, "error", err)
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&flags.queue, "queue", "", "Redis list to drain")
	cmd.Flags().IntVarP(&flags.workers, "workers", "w", 0, "Number of concurrent workers")
	cmd.Flags().DurationVar(&flags.idleTimeout, "idle-timeout", 0, "How long a worker waits on an empty queue")
	cmd.Flags().IntVar(&flags.capacity, "capacity", 0, "Items in flight between workers and the store")
	cmd.Flags().StringVar(&flags.storeDriver, "store", "", "Record store: csv, sqlite, postgres, kafka")
	cmd.Flags().StringVarP(&flags.outputDir, "output-dir", "o", "", "Directory for CSV output")
	cmd.Flags().BoolVar(&flags.header, "header", false, "Write a header row to CSV output")
	cmd.Flags().BoolVar(&flags.skipPreflight, "skip-preflight", false, "Do not check Redis and the store before starting")
	return cmd
}

// apply overrides cfg with the flags the user set explicitly.
func (f *runFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	changed := cmd.Flags().Changed
	if changed("queue") {
		cfg.Pipeline.Queue = f.queue
	}
	if changed("workers") {
		cfg.Pipeline.Workers = f.workers
	}
	if changed("idle-timeout") {
		cfg.Pipeline.IdleTimeout = f.idleTimeout.String()
	}
	if changed("capacity") {
		cfg.Pipeline.ChannelCapacity = f.capacity
	}
	if changed("store") {
		cfg.Store.Driver = f.storeDriver
	}
	if changed("output-dir") {
		cfg.Store.Dir = f.outputDir
	}
	if changed("header") {
		cfg.Store.Header = f.header
	}
}
