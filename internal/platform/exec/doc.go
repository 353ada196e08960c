// Package exec runs provider command-line tools (aws, az, databricks) for
// the provider bridges.
//
// [CLI.Run] captures stdout, turns a non-zero exit into a [CommandError]
// carrying stderr, and retries transient failures with backoff. [CLI.Start]
// launches interactive logins that finish out of band; their completion is
// observed by polling, not by waiting on the process.
package exec
