package types

// Snapshot is a point-in-time view of the registry: the open sessions in key
// order plus the selected key. Snapshots are immutable once published;
// readers never observe a partially-applied mutation.
type Snapshot struct {
	Sessions    []*Session `json:"sessions"`
	SelectedKey *int       `json:"selected_key,omitempty"`
}

// Stats contains registry statistics
type Stats struct {
	TotalTabs    int  `json:"total_tabs"`
	BackedTabs   int  `json:"backed_tabs"`
	UntitledTabs int  `json:"untitled_tabs"`
	SelectedKey  *int `json:"selected_key,omitempty"`
}
