// Package registry implements the observable collection of open sessions.
//
// The registry is the single source of truth for which tabs exist and which
// one is selected. It enforces key uniqueness, keeps display order stable
// (key ascending), and preserves the "at least one tab" invariant by
// replacing the last removed session with a fresh untitled one.
//
// Concurrency model: one writer (the mutation scheduler's worker), any
// number of readers. Every mutation ends by swapping in a rebuilt immutable
// snapshot, so readers never block and never observe torn state.
package registry
