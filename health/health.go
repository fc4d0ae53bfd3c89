package health

import (
	"context"
	"fmt"
	"net"
	"os"
	"strings"
	"time"
)

// Pinger is implemented by queue clients.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RedisCheck verifies the queue transport answers PING.
func RedisCheck(ctx context.Context, p Pinger) Status {
	if p == nil {
		return Unhealthy("redis client is nil", nil)
	}

	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
	}

	if err := p.Ping(ctx); err != nil {
		return Unhealthy("redis did not answer PING", map[string]any{
			"error": err.Error(),
		})
	}
	return Healthy("redis answered PING")
}

// NetworkCheck verifies TCP connectivity to address (host:port).
// It uses the provided context for timeout and cancellation control.
func NetworkCheck(ctx context.Context, address string) Status {
	if address == "" {
		return Unhealthy("address cannot be empty", nil)
	}

	if _, _, err := net.SplitHostPort(address); err != nil {
		return Unhealthy(
			fmt.Sprintf("invalid address %q", address),
			map[string]any{"address": address, "error": err.Error()},
		)
	}

	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
	}

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return Unhealthy(
			fmt.Sprintf("failed to connect to %s", address),
			map[string]any{"address": address, "error": err.Error()},
		)
	}
	conn.Close()

	return Healthy(fmt.Sprintf("successfully connected to %s", address))
}

// DirCheck verifies path is a writable directory. A missing directory is
// degraded, since the CSV store creates it on open.
func DirCheck(path string) Status {
	if path == "" {
		return Unhealthy("path cannot be empty", nil)
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Degraded(
				fmt.Sprintf("directory '%s' does not exist and will be created", path),
				map[string]any{"path": path},
			)
		}
		return Unhealthy(
			fmt.Sprintf("failed to stat path '%s'", path),
			map[string]any{"path": path, "error": err.Error()},
		)
	}

	if !info.IsDir() {
		return Unhealthy(
			fmt.Sprintf("path '%s' is not a directory", path),
			map[string]any{"path": path},
		)
	}

	probe, err := os.CreateTemp(path, ".eventdrain-probe-*")
	if err != nil {
		return Unhealthy(
			fmt.Sprintf("directory '%s' is not writable", path),
			map[string]any{"path": path, "error": err.Error()},
		)
	}
	probe.Close()
	_ = os.Remove(probe.Name())

	return Healthy(fmt.Sprintf("directory '%s' is writable", path))
}

// Combine reports the worst status among checks. The message joins the
// messages of every check that is not healthy, and Details["checks"] lists
// all of them so preflight output shows each dependency.
func Combine(checks ...Status) Status {
	if len(checks) == 0 {
		return Healthy("no checks provided")
	}

	worst := StatusHealthy
	var problems []string
	for _, check := range checks {
		switch sev := severity(check.Status); {
		case sev == 2:
			worst = StatusUnhealthy
		case sev == 1 && worst == StatusHealthy:
			worst = StatusDegraded
		}
		if !check.IsHealthy() {
			msg := check.Message
			if msg == "" {
				msg = "unnamed check"
			}
			problems = append(problems, msg)
		}
	}

	msg := fmt.Sprintf("%d preflight check(s) passed", len(checks))
	if len(problems) > 0 {
		msg = strings.Join(problems, "; ")
	}
	return Status{Status: worst, Message: msg, Details: map[string]any{"checks": checks}}
}

// severity orders statuses; anything unrecognised counts as unhealthy.
func severity(status string) int {
	switch status {
	case StatusHealthy:
		return 0
	case StatusDegraded:
		return 1
	default:
		return 2
	}
}
