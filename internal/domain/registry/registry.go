package registry

import (
	"sort"
	"sync/atomic"

	"github.com/tabwell/backend/internal/shared/types"
)

// Factory builds a new session for a key and optional backing resource.
// The registry uses it to synthesize the replacement untitled session when
// the last tab is removed.
type Factory interface {
	Create(key int, backingResource *string) *types.Session
}

// untitledKey is the well-known key for synthesized placeholder sessions.
// It is only minted when the registry is empty, so it cannot collide.
const untitledKey = 0

// Registry is the in-memory, observable, ordered collection of open sessions
// plus the selected one. Display order is key ascending.
//
// Mutations assume a single writer: they must only be invoked from the
// mutation scheduler's worker. Readers get copy-on-write snapshots via an
// atomically swapped pointer and never contend with the writer.
type Registry struct {
	factory  Factory
	sessions map[int]*types.Session
	selected *int
	snapshot atomic.Pointer[types.Snapshot]
}

// New creates an empty registry.
func New(factory Factory) *Registry {
	r := &Registry{
		factory:  factory,
		sessions: make(map[int]*types.Session),
	}
	r.publish()
	return r
}

// Add inserts a session. Fails with ErrDuplicateKey if the key is already
// present; the registry is left unchanged in that case.
func (r *Registry) Add(session *types.Session) error {
	if _, exists := r.sessions[session.Key]; exists {
		return ErrDuplicateKey
	}

	r.sessions[session.Key] = session

	// First tab in becomes the selected one.
	if r.selected == nil {
		key := session.Key
		r.selected = &key
	}

	r.publish()
	return nil
}

// Remove deletes and returns the session for key, or nil if absent. The
// registry never stays empty: removing the last session synthesizes a fresh
// untitled one in its place. Selection moves to the lowest remaining key
// when the removed session was selected.
func (r *Registry) Remove(key int) *types.Session {
	removed, ok := r.sessions[key]
	if !ok {
		return nil
	}
	delete(r.sessions, key)

	if len(r.sessions) == 0 {
		replacement := r.factory.Create(untitledKey, nil)
		r.sessions[replacement.Key] = replacement
	}

	if r.selected != nil && *r.selected == key {
		r.selected = nil
		for k := range r.sessions {
			if r.selected == nil || k < *r.selected {
				sel := k
				r.selected = &sel
			}
		}
	}

	r.publish()
	return removed
}

// Select marks key as the selected session. Fails with ErrNotFound when the
// key is absent; the current selection is unchanged in that case.
func (r *Registry) Select(key int) error {
	if _, ok := r.sessions[key]; !ok {
		return ErrNotFound
	}

	sel := key
	r.selected = &sel
	r.publish()
	return nil
}

// Selected returns the selected key, or nil when nothing is selected.
func (r *Registry) Selected() *int {
	snap := r.snapshot.Load()
	if snap.SelectedKey == nil {
		return nil
	}
	key := *snap.SelectedKey
	return &key
}

// Get retrieves a copy of the session for key.
func (r *Registry) Get(key int) (*types.Session, bool) {
	for _, s := range r.snapshot.Load().Sessions {
		if s.Key == key {
			return s, true
		}
	}
	return nil, false
}

// List returns the open sessions ordered by key ascending. The returned
// slice is an immutable snapshot; it never reflects a partially-applied
// mutation.
func (r *Registry) List() []*types.Session {
	return r.snapshot.Load().Sessions
}

// Snapshot returns the current point-in-time view of the registry.
func (r *Registry) Snapshot() *types.Snapshot {
	return r.snapshot.Load()
}

// Stats returns registry statistics.
func (r *Registry) Stats() types.Stats {
	snap := r.snapshot.Load()

	stats := types.Stats{TotalTabs: len(snap.Sessions)}
	for _, s := range snap.Sessions {
		if s.Untitled() {
			stats.UntitledTabs++
		} else {
			stats.BackedTabs++
		}
	}
	if snap.SelectedKey != nil {
		key := *snap.SelectedKey
		stats.SelectedKey = &key
	}
	return stats
}

// Clear empties the registry without synthesizing a replacement and returns
// the removed sessions. Shutdown path only; the never-empty invariant holds
// for the steady state observers see, not for teardown.
func (r *Registry) Clear() []*types.Session {
	removed := make([]*types.Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		removed = append(removed, s)
	}
	sort.Slice(removed, func(i, j int) bool { return removed[i].Key < removed[j].Key })

	r.sessions = make(map[int]*types.Session)
	r.selected = nil
	r.publish()
	return removed
}

// publish rebuilds the read snapshot. Must be called at the end of every
// mutation, so readers only ever see fully-applied states.
func (r *Registry) publish() {
	sessions := make([]*types.Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s.Clone())
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].Key < sessions[j].Key })

	snap := &types.Snapshot{Sessions: sessions}
	if r.selected != nil {
		key := *r.selected
		snap.SelectedKey = &key
	}
	r.snapshot.Store(snap)
}
