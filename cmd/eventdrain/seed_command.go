package main

import (
	"bufio"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/zero-day-ai/eventdrain"
	"github.com/zero-day-ai/eventdrain/event"
	"github.com/zero-day-ai/eventdrain/queue"
)

const seedBatchSize = 100

type seedFlags struct {
	queue       string
	count       int
	file        string
	concurrency int
	strict      bool
}

func newSeedCommand(ctx *commandContext) *cobra.Command {
	var flags seedFlags

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Push events onto the queue",
		Long: "Push synthetic events onto the queue, or one payload per line from --file.\n" +
			"Lines from a file are pushed as-is unless --strict is set.\n" +
			"Payloads are pushed in batches of 100. With --concurrency 1 (the default) they are\n" +
			"popped in file order; with more, batches may land in any order.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.validConfig("cmd.seed")
			if err != nil {
				return err
			}

			queueName := cfg.Pipeline.GetQueue()
			if cmd.Flags().Changed("queue") {
				queueName = flags.queue
			}

			var payloads []string
			if flags.file != "" {
				payloads, err = readPayloads(flags.file, flags.strict)
			} else {
				payloads, err = syntheticPayloads(flags.count)
			}
			if err != nil {
				return err
			}

			client, err := queue.NewRedisClient(redisOptions(cfg))
			if err != nil {
				return eventdrain.NewStartupError("cmd.seed", fmt.Errorf("%w: %w", eventdrain.ErrQueueUnavailable, err))
			}
			defer client.Close()

			g, gctx := errgroup.WithContext(cmd.Context())
			g.SetLimit(max(flags.concurrency, 1))
			for start := 0; start < len(payloads); start += seedBatchSize {
				batch := payloads[start:min(start+seedBatchSize, len(payloads))]
				g.Go(func() error {
					return client.Push(gctx, queueName, batch...)
				})
			}
			if err := g.Wait(); err != nil {
				return eventdrain.NewTransportError("cmd.seed", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Pushed %d events to %s\n", len(payloads), queueName)
			return nil
		},
	}

	cmd.Flags().StringVar(&flags.queue, "queue", "", "Redis list to push to")
	cmd.Flags().IntVarP(&flags.count, "count", "n", 10, "Number of synthetic events")
	cmd.Flags().StringVarP(&flags.file, "file", "f", "", "File with one JSON payload per line")
	cmd.Flags().IntVar(&flags.concurrency, "concurrency", 1, "Concurrent push batches; above 1, order is kept only within a batch")
	cmd.Flags().BoolVar(&flags.strict, "strict", false, "Reject file lines that do not decode as events")
	return cmd
}

func syntheticPayloads(count int) ([]string, error) {
	if count < 0 {
		return nil, fmt.Errorf("count must not be negative, got %d", count)
	}

	payloads := make([]string, count)
	for i := range payloads {
		ev := event.Event{
			Index:   int32(i),
			Wday:    uint8(rand.IntN(7)),
			Payload: uuid.NewString(),
			Price:   math.Round(rand.Float64()*10000) / 100,
			UserID:  rand.Int32N(1000),
		}
		encoded, err := ev.Encode()
		if err != nil {
			return nil, err
		}
		payloads[i] = encoded
	}
	return payloads, nil
}

func readPayloads(path string, strict bool) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open payload file: %w", err)
	}
	defer f.Close()

	var payloads []string
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if strict {
			if _, err := event.Decode(text); err != nil {
				return nil, fmt.Errorf("%s:%d: %w", path, line, err)
			}
		}
		payloads = append(payloads, text)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read payload file: %w", err)
	}
	return payloads, nil
}
