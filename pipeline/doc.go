// Package pipeline drains a queue through a fixed pool of workers into a
// single sink, and stops on its own once every worker has gone idle.
//
// # Architecture
//
//	queue.Source ×N ──▶ worker ×N ──▶ Aggregator (cap C) ──▶ sink ──▶ store.Appender
//	                       │                 ▲
//	                       └── WorkerHandle ─┴── supervisor (one Shutdown)
//
// Each worker owns its own queue connection and loops: pop with idle
// timeout T, decode, send. It terminates on the first idle timeout, decode
// failure, or failed send, and never resumes.
//
// The supervisor waits on every WorkerHandle and then sends exactly one
// Shutdown message on the aggregator. Because it sends only after every
// worker has returned, Shutdown is always behind the last Item in the
// channel, and the sink drains everything before it stops.
//
// The sink is the only reader of the aggregator and the only writer to the
// store, so records are appended sequentially in receive order.
//
// # Concurrency
//
// A run uses N+2 goroutines: N workers, the supervisor, and the sink (which
// runs on the caller's goroutine inside Run). Workers block on the pop (at
// most T) and on Send while the aggregator is full; that is the only
// backpressure in the system.
//
// # Cancellation
//
// The context passed to Run reaches the queue pop only. Cancelling it makes
// workers terminate at their next pop; the supervisor and sink still complete
// the shutdown protocol, so every item already sent is persisted.
package pipeline
