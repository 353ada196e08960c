// Package poll provides a cancellable repeat-until-condition loop.
//
// A [Poller] runs one condition check immediately and then once per
// interval until the check reports true or the attempt budget is spent.
// It is used by the auth orchestrators to wait for actions that complete
// out of band: a browser SSO login, a CLI login, an OAuth device-code login.
//
// Each Poller runs at most one poll. Starting a new poll stops the previous
// one first. The context passed to [Poller.Start] is the liveness token of
// the caller: once it is done, no callback fires.
package poll
