package health

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"

	"github.com/zero-day-ai/eventdrain/queue"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

func TestRedisCheck(t *testing.T) {
	t.Run("miniredis answers", func(t *testing.T) {
		mr := miniredis.RunT(t)
		client, err := queue.NewRedisClient(queue.RedisOptions{URL: fmt.Sprintf("redis://%s", mr.Addr())})
		if err != nil {
			t.Fatalf("failed to connect: %v", err)
		}
		defer client.Close()

		status := RedisCheck(context.Background(), client)
		if !status.IsHealthy() {
			t.Errorf("expected healthy status, got %s: %s", status.Status, status.Message)
		}
	})

	t.Run("ping error", func(t *testing.T) {
		status := RedisCheck(context.Background(), stubPinger{err: errors.New("connection refused")})
		if !status.IsUnhealthy() {
			t.Errorf("expected unhealthy status, got %s", status.Status)
		}
		if status.Details["error"] != "connection refused" {
			t.Errorf("expected error detail, got %v", status.Details)
		}
	})

	t.Run("nil pinger", func(t *testing.T) {
		if status := RedisCheck(context.Background(), nil); !status.IsUnhealthy() {
			t.Errorf("expected unhealthy status, got %s", status.Status)
		}
	})
}

func TestNetworkCheck(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to start test server: %v", err)
	}
	defer listener.Close()

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	tests := []struct {
		name          string
		address       string
		expectHealthy bool
	}{
		{name: "test server", address: listener.Addr().String(), expectHealthy: true},
		{name: "closed port", address: "127.0.0.1:1", expectHealthy: false},
		{name: "missing port", address: "127.0.0.1", expectHealthy: false},
		{name: "empty address", address: "", expectHealthy: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()

			status := NetworkCheck(ctx, tt.address)

			if tt.expectHealthy && !status.IsHealthy() {
				t.Errorf("expected healthy status, got %s: %s", status.Status, status.Message)
			}
			if !tt.expectHealthy && status.IsHealthy() {
				t.Errorf("expected unhealthy status, got %s: %s", status.Status, status.Message)
			}
			if status.Message == "" {
				t.Error("expected non-empty message")
			}
		})
	}
}

func TestDirCheck(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	tests := []struct {
		name   string
		path   string
		status string
	}{
		{name: "writable directory", path: dir, status: StatusHealthy},
		{name: "missing directory", path: filepath.Join(dir, "missing"), status: StatusDegraded},
		{name: "regular file", path: file, status: StatusUnhealthy},
		{name: "empty path", path: "", status: StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status := DirCheck(tt.path)
			if status.Status != tt.status {
				t.Errorf("expected %s, got %s: %s", tt.status, status.Status, status.Message)
			}
		})
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("failed to read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("probe file was not removed, found %d entries", len(entries))
	}
}

func TestCombine(t *testing.T) {
	tests := []struct {
		name         string
		checks       []Status
		expectStatus string
	}{
		{
			name:         "all healthy",
			checks:       []Status{Healthy("check 1"), Healthy("check 2")},
			expectStatus: StatusHealthy,
		},
		{
			name:         "one unhealthy",
			checks:       []Status{Healthy("check 1"), Unhealthy("check 2 failed", nil)},
			expectStatus: StatusUnhealthy,
		},
		{
			name:         "one degraded",
			checks:       []Status{Healthy("check 1"), Degraded("check 2 degraded", nil)},
			expectStatus: StatusDegraded,
		},
		{
			name:         "unhealthy takes precedence",
			checks:       []Status{Degraded("check 1 degraded", nil), Unhealthy("check 2 failed", nil)},
			expectStatus: StatusUnhealthy,
		},
		{
			name:         "no checks",
			checks:       nil,
			expectStatus: StatusHealthy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status := Combine(tt.checks...)

			if status.Status != tt.expectStatus {
				t.Errorf("expected status %s, got %s: %s", tt.expectStatus, status.Status, status.Message)
			}
			if status.Message == "" {
				t.Error("expected non-empty message")
			}
			if status.Status != StatusHealthy && status.Details == nil {
				t.Error("expected details for non-healthy status")
			}
		})
	}
}

func TestCombineReportsEachCheck(t *testing.T) {
	redis := Healthy("redis answered PING")
	dir := Degraded("directory 'out' does not exist and will be created", nil)
	broker := Unhealthy("failed to connect to kafka:9092", nil)

	status := Combine(redis, dir, broker)

	assert.True(t, status.IsUnhealthy())
	assert.Equal(t, dir.Message+"; "+broker.Message, status.Message)
	assert.Equal(t, []Status{redis, dir, broker}, status.Details["checks"])

	healthy := Combine(redis)
	assert.True(t, healthy.IsHealthy())
	assert.Equal(t, "1 preflight check(s) passed", healthy.Message)
}

func TestCombineUnknownStatusIsUnhealthy(t *testing.T) {
	status := Combine(Healthy("ok"), Status{Status: "weird"})

	assert.True(t, status.IsUnhealthy())
	assert.Equal(t, "unnamed check", status.Message)
}
