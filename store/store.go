package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Columns names the fields of a record, in order.
var Columns = []string{"recorded_at", "item_id", "fingerprint"}

// Driver names accepted by Open.
const (
	DriverCSV      = "csv"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverKafka    = "kafka"
)

// ErrFieldCount is returned when a record does not match Columns.
var ErrFieldCount = errors.New("record field count does not match columns")

// Appender persists records.
type Appender interface {
	// Append persists one record. An error is fatal to the run.
	Append(ctx context.Context, fields []string) error

	// Close flushes buffered records and releases the backend.
	Close() error
}

// Options selects and configures a backend.
type Options struct {
	// Driver is one of DriverCSV, DriverSQLite, DriverPostgres, DriverKafka.
	Driver string

	// Dir and Prefix locate the CSV output file.
	Dir    string
	Prefix string

	// Header writes Columns as the first CSV row.
	Header bool

	// DSN is the SQLite path or PostgreSQL connection string.
	DSN string

	// Table receives SQL records. Default: "records"
	Table string

	// Brokers and Topic configure the Kafka producer.
	Brokers []string
	Topic   string

	// Now stamps the CSV file name. Default: time.Now
	Now func() time.Time
}

// Open creates the Appender selected by opts.Driver.
func Open(ctx context.Context, opts Options) (Appender, error) {
	switch opts.Driver {
	case DriverCSV, "":
		now := opts.Now
		if now == nil {
			now = time.Now
		}
		return NewCSVAppender(OutputPath(opts.Dir, opts.Prefix, now()), opts.Header)
	case DriverSQLite:
		return NewSQLAppender(ctx, DialectSQLite, opts.DSN, opts.Table)
	case DriverPostgres:
		return NewSQLAppender(ctx, DialectPostgres, opts.DSN, opts.Table)
	case DriverKafka:
		return NewKafkaAppender(opts.Brokers, opts.Topic, nil)
	default:
		return nil, fmt.Errorf("unknown store driver %q", opts.Driver)
	}
}

func checkFields(fields []string) error {
	if len(fields) != len(Columns) {
		return fmt.Errorf("%w: got %d, want %d", ErrFieldCount, len(fields), len(Columns))
	}
	return nil
}
