// Package health provides the preflight checks run before a drain starts
// and by the check command.
//
// # Check Functions
//
//   - RedisCheck: PING the queue transport
//   - NetworkCheck: verify TCP connectivity to host:port
//   - DirCheck: verify an output directory exists (or can be created) and is writable
//   - Combine: aggregate several checks into one Status
//
// # Usage Example
//
//	status := health.Combine(
//	    health.RedisCheck(ctx, client),
//	    health.DirCheck("../output"),
//	)
//	if status.IsUnhealthy() {
//	    return fmt.Errorf("preflight failed: %s", status.Message)
//	}
//
// # Status Semantics
//
//   - healthy: the dependency is usable
//   - degraded: usable, but something is off (e.g., the output directory
//     does not exist yet and will be created)
//   - unhealthy: the run cannot start
package health
