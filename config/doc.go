// Package config loads eventdrain configuration.
//
// Values come from, in increasing priority: built-in defaults, an optional
// eventdrain.yaml file, the environment, and command-line flags (applied by
// the caller). REDIS_HOST is the only required value; a run without it never
// starts.
//
// Example eventdrain.yaml:
//
//	log_level: info
//	redis:
//	  connect_timeout: 5s
//	pipeline:
//	  queue: events_queue
//	  workers: 8
//	  idle_timeout: 5s
//	  channel_capacity: 256
//	store:
//	  driver: csv
//	  dir: ../output
//	  prefix: eventdrain
package config
