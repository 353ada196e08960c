// Package auth holds the model shared by the provider authentication
// orchestrators: profiles, identities, permission checks and the
// credentials record, plus [Base], the state every orchestrator embeds.
//
// The credentials record is owned by the wizard. Orchestrators never hold
// it; they write through a [Setter] and read snapshots passed to them.
//
// Logins that complete out of band (browser SSO, OAuth device flow) are
// driven by [Base.PollLogin]: trigger, then poll for the result with the
// orchestrator's liveness context. [Base.Detach] cancels that context and
// stops the poll, after which no login callback fires.
package auth
