// Command eventdrain drains a Redis list of events into a record store.
//
//	eventdrain run     drain the queue until every worker goes idle
//	eventdrain seed    push synthetic or file-provided events onto the queue
//	eventdrain check   run the preflight checks and print the result as JSON
//
// REDIS_HOST must be set. Other settings come from eventdrain.yaml, the
// EVENTDRAIN_* environment variables and flags, in increasing priority.
package main
