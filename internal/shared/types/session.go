package types

import "time"

// UntitledName is the display name given to sessions without a backing resource.
const UntitledName = "Untitled"

// Handle represents the live resources a session owns (open connections,
// background watchers). The core never looks inside it; it is closed exactly
// once, at disposal time.
type Handle interface {
	Close() error
}

// Session represents one open backing context, displayed as one tab.
type Session struct {
	Key             int       `json:"key"`
	BackingResource *string   `json:"backing_resource,omitempty"`
	DisplayName     string    `json:"display_name"`
	CreatedAt       time.Time `json:"created_at"`

	// Handle is exclusively owned by this session. It never appears in
	// snapshots handed to readers.
	Handle Handle `json:"-"`
}

// Untitled reports whether the session is a placeholder with no backing resource.
func (s *Session) Untitled() bool {
	return s.BackingResource == nil
}

// Clone returns a copy safe to hand to readers. The handle stays with the
// original; readers have no business touching live resources.
func (s *Session) Clone() *Session {
	c := *s
	c.Handle = nil
	return &c
}
