package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestClient creates a miniredis instance and returns a connected RedisClient.
func setupTestClient(t *testing.T) (*RedisClient, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client, err := NewRedisClient(RedisOptions{
		URL:            fmt.Sprintf("redis://%s", mr.Addr()),
		ConnectTimeout: 5 * time.Second,
		ReadTimeout:    5 * time.Second,
		WriteTimeout:   5 * time.Second,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})

	return client, mr
}

func TestNewRedisClient(t *testing.T) {
	t.Run("successful connection", func(t *testing.T) {
		mr := miniredis.RunT(t)

		client, err := NewRedisClient(RedisOptions{
			URL: fmt.Sprintf("redis://%s", mr.Addr()),
		})
		require.NoError(t, err)
		require.NotNil(t, client)
		defer client.Close()

		assert.NoError(t, client.Ping(context.Background()))
	})

	t.Run("connection failure", func(t *testing.T) {
		_, err := NewRedisClient(RedisOptions{
			URL:            "redis://localhost:99999",
			ConnectTimeout: 100 * time.Millisecond,
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to connect to Redis")
	})

	t.Run("invalid URL", func(t *testing.T) {
		_, err := NewRedisClient(RedisOptions{
			URL: "invalid://url",
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse Redis URL")
	})
}

func TestURLFromHost(t *testing.T) {
	tests := []struct {
		host string
		want string
	}{
		{host: "localhost", want: "redis://localhost/"},
		{host: "10.0.0.5:6380", want: "redis://10.0.0.5:6380/"},
		{host: "redis://cache:6379/2", want: "redis://cache:6379/2"},
		{host: "rediss://secure:6379", want: "rediss://secure:6379"},
	}

	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			assert.Equal(t, tt.want, URLFromHost(tt.host))
		})
	}
}

func TestPushPop(t *testing.T) {
	t.Run("items pop in push order", func(t *testing.T) {
		client, _ := setupTestClient(t)
		ctx := context.Background()

		for i := 0; i < 5; i++ {
			require.NoError(t, client.Push(ctx, "test-queue", fmt.Sprintf("item-%d", i)))
		}

		n, err := client.Len(ctx, "test-queue")
		require.NoError(t, err)
		assert.Equal(t, int64(5), n)

		for i := 0; i < 5; i++ {
			item, err := client.PopBlocking(ctx, "test-queue", time.Second)
			require.NoError(t, err)
			require.NotNil(t, item)
			assert.Equal(t, "test-queue", item.Key)
			assert.Equal(t, fmt.Sprintf("item-%d", i), item.Value)
		}
	})

	t.Run("variadic push keeps order", func(t *testing.T) {
		client, _ := setupTestClient(t)
		ctx := context.Background()

		require.NoError(t, client.Push(ctx, "batch", "a", "b", "c"))

		for _, want := range []string{"a", "b", "c"} {
			item, err := client.PopBlocking(ctx, "batch", time.Second)
			require.NoError(t, err)
			require.NotNil(t, item)
			assert.Equal(t, want, item.Value)
		}
	})

	t.Run("empty push is a no-op", func(t *testing.T) {
		client, _ := setupTestClient(t)
		require.NoError(t, client.Push(context.Background(), "nothing"))
	})

	t.Run("idle timeout returns nil item", func(t *testing.T) {
		client, _ := setupTestClient(t)

		start := time.Now()
		item, err := client.PopBlocking(context.Background(), "empty-queue", time.Second)
		require.NoError(t, err)
		assert.Nil(t, item)
		assert.GreaterOrEqual(t, time.Since(start), 900*time.Millisecond)
	})

	t.Run("sub-second timeout is raised to minimum", func(t *testing.T) {
		client, _ := setupTestClient(t)

		start := time.Now()
		item, err := client.PopBlocking(context.Background(), "empty-queue", 10*time.Millisecond)
		require.NoError(t, err)
		assert.Nil(t, item)
		assert.GreaterOrEqual(t, time.Since(start), 900*time.Millisecond)
	})

	t.Run("blocked pop returns when data arrives", func(t *testing.T) {
		client, mr := setupTestClient(t)

		var wg sync.WaitGroup
		var got *RawItem
		var popErr error
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, popErr = client.PopBlocking(context.Background(), "delayed-queue", 5*time.Second)
		}()

		time.Sleep(100 * time.Millisecond)
		_, err := mr.Lpush("delayed-queue", "late")
		require.NoError(t, err)

		wg.Wait()
		require.NoError(t, popErr)
		require.NotNil(t, got)
		assert.Equal(t, "late", got.Value)
	})

	t.Run("cancelled context", func(t *testing.T) {
		client, _ := setupTestClient(t)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := client.PopBlocking(ctx, "test-queue", time.Second)
		require.Error(t, err)
		assert.True(t, errors.Is(err, context.Canceled))
	})
}

func TestRedisOpener(t *testing.T) {
	mr := miniredis.RunT(t)
	open := RedisOpener(RedisOptions{URL: fmt.Sprintf("redis://%s", mr.Addr())})

	a, err := open(context.Background())
	require.NoError(t, err)
	defer a.Close()

	b, err := open(context.Background())
	require.NoError(t, err)
	defer b.Close()

	assert.NotSame(t, a, b, "each call must open an independent client")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = open(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRawItemLen(t *testing.T) {
	var nilItem *RawItem
	assert.Equal(t, 0, nilItem.Len())
	assert.Equal(t, 3, (&RawItem{Value: "abc"}).Len())
}
