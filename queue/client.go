package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// MinPopTimeout is the smallest idle timeout BRPOP honours.
const MinPopTimeout = time.Second

// Source is the blocking-pop side of a queue.
type Source interface {
	// PopBlocking removes and returns the next item from queue (BRPOP).
	// It returns (nil, nil) when the queue stays empty for timeout.
	PopBlocking(ctx context.Context, queue string, timeout time.Duration) (*RawItem, error)

	// Close releases the underlying connection.
	Close() error
}

// Client is the full set of queue operations used by the CLI and tests.
type Client interface {
	Source

	// Push adds payloads to the head of a queue (LPUSH).
	Push(ctx context.Context, queue string, values ...string) error

	// Len returns the number of items waiting in a queue (LLEN).
	Len(ctx context.Context, queue string) (int64, error)

	// Ping checks the connection.
	Ping(ctx context.Context) error
}

// Opener opens a new, independent Source. The pipeline calls it once per worker.
type Opener func(ctx context.Context) (Source, error)

// RedisOptions configures the Redis connection.
type RedisOptions struct {
	// URL is the Redis connection string (e.g., "redis://localhost:6379")
	URL string

	// PoolSize is the maximum number of connections. Default: 1
	PoolSize int

	// ConnectTimeout is the maximum time to wait for connection establishment
	ConnectTimeout time.Duration

	// ReadTimeout is the maximum time to wait for non-blocking reads.
	// Blocking pops extend it by their own timeout.
	ReadTimeout time.Duration

	// WriteTimeout is the maximum time to wait for write operations
	WriteTimeout time.Duration
}

// RedisClient implements Client using go-redis/v9.
type RedisClient struct {
	client *redis.Client
}

var _ Client = (*RedisClient)(nil)

// URLFromHost builds a connection URL from a REDIS_HOST style value.
// Values that already carry a redis:// or rediss:// scheme are returned unchanged.
func URLFromHost(host string) string {
	if strings.HasPrefix(host, "redis://") || strings.HasPrefix(host, "rediss://") {
		return host
	}
	return fmt.Sprintf("redis://%s/", host)
}

// NewRedisClient creates a Redis queue client and verifies the connection with PING.
func NewRedisClient(opts RedisOptions) (*RedisClient, error) {
	if opts.URL == "" {
		opts.URL = "redis://localhost:6379"
	}
	if opts.PoolSize <= 0 {
		opts.PoolSize = 1
	}
	if opts.ConnectTimeout == 0 {
		opts.ConnectTimeout = 5 * time.Second
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = 30 * time.Second
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = 5 * time.Second
	}

	redisOpts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	redisOpts.PoolSize = opts.PoolSize
	redisOpts.DialTimeout = opts.ConnectTimeout
	redisOpts.ReadTimeout = opts.ReadTimeout
	redisOpts.WriteTimeout = opts.WriteTimeout

	client := redis.NewClient(redisOpts)

	ctx, cancel := context.WithTimeout(context.Background(), opts.ConnectTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisClient{client: client}, nil
}

// RedisOpener returns an Opener that creates a new RedisClient on every call.
func RedisOpener(opts RedisOptions) Opener {
	return func(ctx context.Context) (Source, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return NewRedisClient(opts)
	}
}

// PopBlocking removes and returns the item at the tail of queue, waiting up to
// timeout for one to arrive. Timeouts below MinPopTimeout are raised to it.
func (c *RedisClient) PopBlocking(ctx context.Context, queue string, timeout time.Duration) (*RawItem, error) {
	if timeout < MinPopTimeout {
		timeout = MinPopTimeout
	}

	// BRPOP returns [queue_name, value], or redis.Nil on timeout
	result, err := c.client.BRPop(ctx, timeout, queue).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to pop from queue %s: %w", queue, err)
	}

	if len(result) != 2 {
		return nil, fmt.Errorf("unexpected BRPOP result length: %d", len(result))
	}

	return &RawItem{Key: result[0], Value: result[1]}, nil
}

// Push adds payloads to the head of queue in one LPUSH. Items from a single
// call are popped in the order given; concurrent calls interleave.
func (c *RedisClient) Push(ctx context.Context, queue string, values ...string) error {
	if len(values) == 0 {
		return nil
	}

	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = v
	}

	if err := c.client.LPush(ctx, queue, args...).Err(); err != nil {
		return fmt.Errorf("failed to push to queue %s: %w", queue, err)
	}
	return nil
}

// Len returns the number of items waiting in queue.
func (c *RedisClient) Len(ctx context.Context, queue string) (int64, error) {
	n, err := c.client.LLen(ctx, queue).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get length of queue %s: %w", queue, err)
	}
	return n, nil
}

// Ping checks the connection.
func (c *RedisClient) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (c *RedisClient) Close() error {
	return c.client.Close()
}
