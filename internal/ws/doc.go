// Package ws streams registry snapshots to the UI layer over WebSocket and
// accepts add/remove/select messages on the same connection. Every pushed
// snapshot corresponds to a fully-committed mutation.
package ws
