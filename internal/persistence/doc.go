// Package persistence implements the durable tab store on SQLite. Only
// sessions with a backing resource are persisted; untitled placeholder tabs
// are ephemeral and never survive a restart.
package persistence
