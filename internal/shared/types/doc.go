// Package types provides shared data structures for the tab-session core.
//
// Core Types:
//   - Session: One open backing context, displayed as one tab
//   - Handle: Opaque live resources owned by a session
//   - Snapshot: Immutable point-in-time view of the registry
//   - Stats: Registry statistics
//
// Request Types:
//   - AddTabRequest: UI-originated tab creation
//   - WSMessage: WebSocket communication
package types
