// Package retry provides exponential backoff retry logic for transient failures.
//
// [WithExponentialBackoff] retries an operation with configurable retry count,
// initial delay, and maximum delay. It is used by the CLI bridge runner for
// provider tools that fail transiently (throttling, token refresh races,
// network blips). Errors wrapped with [Fatal] are returned immediately.
package retry
