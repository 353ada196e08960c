// Package wizard is the state machine behind `wsdeploy init`.
//
// A [Machine] owns the deployment being assembled and the credentials
// record. It moves through a fixed sequence of screens; each forward step
// is gated on the current screen's concern (a prerequisite check, an auth
// orchestrator's readiness, a validation result) and a single GoBack
// reverses the last forward step. The machine is UI-agnostic: the CLI
// renders screens with huh, tests drive it directly.
package wizard
