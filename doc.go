// Package eventdrain drains a Redis work queue through a fixed pool of
// workers and persists one record per decoded event.
//
// # Architecture
//
// A run is a fan-out/fan-in pipeline:
//
//   - Workers (one per pool slot) pop from the queue with an idle timeout,
//     decode each payload and send it to the aggregator
//   - The aggregator is a bounded multi-producer, single-consumer channel
//   - The supervisor waits for every worker to terminate, then sends exactly
//     one shutdown marker
//   - The sink applies the transform, computes a fingerprint and appends a
//     record until it receives the shutdown marker
//
// A worker terminates on its first idle timeout, malformed payload, or failed
// send. Once every worker has terminated the run ends on its own; no
// external stop signal is required.
//
// # Packages
//
//   - event: decoded event model, transform and fingerprint
//   - queue: Redis queue source (BRPOP with idle timeout)
//   - store: record appenders (CSV, SQLite, PostgreSQL, Kafka)
//   - config: YAML, environment and flag configuration
//   - health: startup preflight checks
//   - pipeline: workers, aggregator, supervisor and sink
//
// # Errors
//
// Fatal conditions are reported as *Error values whose Kind names the phase
// that failed (startup, persistence, shutdown). Worker terminations are not
// errors and are only logged.
package eventdrain
