// Package store persists the records produced by the pipeline sink.
//
// Every backend implements Appender: one Append call per processed event,
// with the record given as an ordered slice of strings matching Columns.
// Appenders are used from a single goroutine (the sink) and are not safe for
// concurrent use.
//
// Backends:
//
//   - csv: one file per run, <dir>/<prefix>-<unix_ms>.csv
//   - sqlite: modernc.org/sqlite, one row per record
//   - postgres: jackc/pgx/v5 through database/sql
//   - kafka: IBM/sarama SyncProducer, one JSON envelope per record
package store
