// Package workspace orchestrates the session-tab core: it restores the
// saved tab set at startup, serializes every add/remove/select through the
// mutation scheduler together with its persistence and disposal side
// effects, and publishes consistent registry snapshots to observers.
//
// Error policy follows the taxonomy of the core: duplicate keys and missing
// keys come back synchronously on the request's result channel; persistence
// and disposal failures are logged and swallowed so the registry always
// reaches a consistent state.
package workspace
