package types

// AddTabRequest represents a UI-originated add-tab request. The key is minted
// by the caller; the core never synthesizes keys for explicit adds.
type AddTabRequest struct {
	Key             *int    `json:"key" binding:"required"`
	BackingResource *string `json:"backing_resource,omitempty"`
}

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type            string  `json:"type"`
	Key             *int    `json:"key,omitempty"`
	BackingResource *string `json:"backing_resource,omitempty"`
}
