// Package server wires the session-tab core together: configuration,
// logging, metrics, the persistence store, the mutation scheduler, the
// workspace manager, and the HTTP/WebSocket surface the UI layer talks to.
package server
