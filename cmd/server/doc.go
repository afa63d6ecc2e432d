// Command server runs the tab-session core backend.
//
// The process restores the persisted tab set at startup, serves the UI
// layer over HTTP and WebSocket, and persists backed tabs so they reopen
// on the next launch.
//
// Configuration comes from the environment (see internal/config); the
// -port, -host, and -db flags override it for local runs.
package main
