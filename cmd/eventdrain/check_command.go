package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zero-day-ai/eventdrain/config"
	"github.com/zero-day-ai/eventdrain/health"
	"github.com/zero-day-ai/eventdrain/queue"
	"github.com/zero-day-ai/eventdrain/store"
)

var errPreflightFailed = errors.New("preflight checks failed")

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check Redis and the record store and print the result as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.validConfig("cmd.check")
			if err != nil {
				return err
			}

			status := preflight(cmd.Context(), cfg)

			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			if err := encoder.Encode(status); err != nil {
				return fmt.Errorf("encode health status: %w", err)
			}

			if status.IsUnhealthy() {
				return errPreflightFailed
			}
			return nil
		},
	}
}

// preflight checks everything a run depends on before any worker starts.
func preflight(ctx context.Context, cfg *config.Config) health.Status {
	checks := []health.Status{redisPreflight(ctx, cfg)}

	opts := cfg.StoreOptions()
	switch opts.Driver {
	case store.DriverCSV:
		checks = append(checks, health.DirCheck(opts.Dir))
	case store.DriverKafka:
		for _, broker := range opts.Brokers {
			checks = append(checks, health.NetworkCheck(ctx, broker))
		}
	}

	return health.Combine(checks...)
}

func redisPreflight(ctx context.Context, cfg *config.Config) health.Status {
	client, err := queue.NewRedisClient(redisOptions(cfg))
	if err != nil {
		return health.Unhealthy("redis is unreachable", map[string]any{
			"host":  cfg.Redis.Host,
			"error": err.Error(),
		})
	}
	defer client.Close()

	return health.RedisCheck(ctx, client)
}
