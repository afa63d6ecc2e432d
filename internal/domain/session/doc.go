// Package session provides the construction and disposal collaborators for
// session objects. The registry and workspace orchestrator only depend on
// the Factory and Disposer interfaces; the surrounding application supplies
// implementations that know how to wire a session to real backend
// operations.
package session
