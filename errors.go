package eventdrain

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// Sentinel errors for conditions that end a run.
// These errors can be used with errors.Is() for error checking.
var (
	// ErrMissingRedisHost indicates the REDIS_HOST environment variable was not set.
	ErrMissingRedisHost = errors.New("REDIS_HOST is not set")

	// ErrQueueUnavailable indicates a queue connection could not be established.
	ErrQueueUnavailable = errors.New("queue unavailable")

	// ErrShutdownUndelivered indicates the supervisor could not deliver the
	// terminal marker to the sink.
	ErrShutdownUndelivered = errors.New("shutdown marker undelivered")
)

// Error kinds categorize errors by the phase of the run that produced them.
const (
	// KindStartup represents faults before any worker runs.
	KindStartup = "startup"

	// KindConfiguration represents invalid or incomplete configuration.
	KindConfiguration = "configuration"

	// KindPersistence represents failures appending a record.
	KindPersistence = "persistence"

	// KindShutdown represents a failure of the shutdown protocol itself.
	KindShutdown = "shutdown"

	// KindTransport represents queue transport failures at runtime.
	KindTransport = "transport"
)

// Error wraps an underlying error with the operation that failed and the
// category of failure.
//
// Error supports unwrapping, so it works with errors.Is() and errors.As().
// Matching against another *Error compares Kind (and Op when the target sets it):
//
//	if errors.Is(err, &eventdrain.Error{Kind: eventdrain.KindStartup}) {
//		os.Exit(2)
//	}
type Error struct {
	// Op is the operation that failed (e.g., "pipeline.Run", "store.Append").
	Op string

	// Kind categorizes the error (e.g., KindStartup, KindPersistence).
	Kind string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("eventdrain: %s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("eventdrain: %s (%s): %v", e.Op, e.Kind, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on Kind (and Op when the target names one), then delegates to
// the wrapped error.
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}

	if t, ok := target.(*Error); ok {
		if t.Kind != "" && e.Kind == t.Kind {
			if t.Op == "" || e.Op == t.Op {
				return true
			}
		}
	}

	return errors.Is(e.Err, target)
}

// NewStartupError creates a new Error with KindStartup.
func NewStartupError(op string, err error) *Error {
	return &Error{Op: op, Kind: KindStartup, Err: err}
}

// NewConfigurationError creates a new Error with KindConfiguration.
func NewConfigurationError(op string, err error) *Error {
	return &Error{Op: op, Kind: KindConfiguration, Err: err}
}

// NewPersistenceError creates a new Error with KindPersistence.
func NewPersistenceError(op string, err error) *Error {
	return &Error{Op: op, Kind: KindPersistence, Err: err}
}

// NewShutdownError creates a new Error with KindShutdown.
func NewShutdownError(op string, err error) *Error {
	return &Error{Op: op, Kind: KindShutdown, Err: err}
}

// NewTransportError creates a new Error with KindTransport.
func NewTransportError(op string, err error) *Error {
	return &Error{Op: op, Kind: KindTransport, Err: err}
}

// IsKind reports whether err is an *Error of the given kind anywhere in its chain.
func IsKind(err error, kind string) bool {
	var e *Error
	for err != nil {
		if !errors.As(err, &e) {
			return false
		}
		if e.Kind == kind {
			return true
		}
		err = e.Err
	}
	return false
}

// CloseWithLog closes the resource and logs any error at warning level.
// Intended for defer statements. If logger is nil, slog.Default() is used.
//
//	defer eventdrain.CloseWithLog(appender, logger, "record store")
func CloseWithLog(closer io.Closer, logger *slog.Logger, name string) {
	if closer == nil {
		return
	}

	if logger == nil {
		logger = slog.Default()
	}

	if err := closer.Close(); err != nil {
		logger.Warn("failed to close resource",
			"resource", name,
			"error", err)
	}
}
