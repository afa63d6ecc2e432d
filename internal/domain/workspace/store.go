package workspace

import "context"

// NopStore is the fallback Store used when the durable store cannot be
// opened. Every launch then behaves like a first run: tabs stay fully
// usable, they just are not restored next time.
type NopStore struct{}

func (NopStore) LoadAll(ctx context.Context) (map[int]string, error) { return nil, nil }

func (NopStore) Put(ctx context.Context, key int, backingResource string) error { return nil }

func (NopStore) Remove(ctx context.Context, key int) error { return nil }
