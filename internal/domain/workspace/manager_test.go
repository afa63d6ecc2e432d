package workspace

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabwell/backend/internal/domain/registry"
	"github.com/tabwell/backend/internal/domain/session"
	"github.com/tabwell/backend/internal/logging"
	"github.com/tabwell/backend/internal/scheduler"
	"github.com/tabwell/backend/internal/shared/types"
)

// memStore is an in-memory Store with injectable failures.
type memStore struct {
	mu      sync.Mutex
	entries map[int]string

	loadErr   error
	putErr    error
	removeErr error
}

func newMemStore() *memStore {
	return &memStore{entries: make(map[int]string)}
}

func (s *memStore) LoadAll(ctx context.Context) (map[int]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	out := make(map[int]string, len(s.entries))
	for k, v := range s.entries {
		out[k] = v
	}
	return out, nil
}

func (s *memStore) Put(ctx context.Context, key int, backingResource string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.putErr != nil {
		return s.putErr
	}
	s.entries[key] = backingResource
	return nil
}

func (s *memStore) Remove(ctx context.Context, key int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.removeErr != nil {
		return s.removeErr
	}
	delete(s.entries, key)
	return nil
}

func (s *memStore) get(key int) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.entries[key]
	return v, ok
}

// countingDisposer records how often each session key was disposed.
type countingDisposer struct {
	mu     sync.Mutex
	counts map[int]int
	err    error
}

func newCountingDisposer() *countingDisposer {
	return &countingDisposer{counts: make(map[int]int)}
}

func (d *countingDisposer) Dispose(ctx context.Context, s *types.Session) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.counts[s.Key]++
	return d.err
}

func (d *countingDisposer) count(key int) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.counts[key]
}

// blockingDisposer parks every Dispose until released, then counts it.
type blockingDisposer struct {
	countingDisposer
	release chan struct{}
}

func newBlockingDisposer() *blockingDisposer {
	return &blockingDisposer{
		countingDisposer: countingDisposer{counts: make(map[int]int)},
		release:          make(chan struct{}),
	}
}

func (d *blockingDisposer) Dispose(ctx context.Context, s *types.Session) error {
	<-d.release
	return d.countingDisposer.Dispose(ctx, s)
}

func newTestManager(t *testing.T, store Store, disposer session.Disposer) *Manager {
	t.Helper()
	logger := logging.NewDefault()
	sched := scheduler.New(16, logger)
	m := NewManager(store, session.NewFactory(), disposer, sched, logger)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		m.Close(ctx)
	})
	return m
}

func strptr(s string) *string { return &s }

func TestStartEmptyStore(t *testing.T) {
	m := newTestManager(t, newMemStore(), newCountingDisposer())
	require.NoError(t, m.Start(context.Background()))

	snap := m.Snapshot()
	require.Len(t, snap.Sessions, 1)
	assert.True(t, snap.Sessions[0].Untitled())
	assert.Equal(t, 0, snap.Sessions[0].Key)
	require.NotNil(t, snap.SelectedKey)
	assert.Equal(t, 0, *snap.SelectedKey)
}

func TestStartRestoresPersistedTabs(t *testing.T) {
	store := newMemStore()
	store.entries = map[int]string{5: "/data/x", 2: "/data/y"}

	m := newTestManager(t, store, newCountingDisposer())
	require.NoError(t, m.Start(context.Background()))

	snap := m.Snapshot()
	require.Len(t, snap.Sessions, 2)
	assert.Equal(t, 2, snap.Sessions[0].Key)
	assert.Equal(t, 5, snap.Sessions[1].Key)
	assert.Equal(t, "y", snap.Sessions[0].DisplayName)
	require.NotNil(t, snap.SelectedKey)
	assert.Equal(t, 2, *snap.SelectedKey)
}

func TestStartLoadFailureDegradesToFirstRun(t *testing.T) {
	store := newMemStore()
	store.loadErr = errors.New("disk on fire")

	m := newTestManager(t, store, newCountingDisposer())
	require.NoError(t, m.Start(context.Background()))

	snap := m.Snapshot()
	require.Len(t, snap.Sessions, 1)
	assert.True(t, snap.Sessions[0].Untitled())
}

func TestAddPersistsBackedTabsOnly(t *testing.T) {
	store := newMemStore()
	m := newTestManager(t, store, newCountingDisposer())
	require.NoError(t, m.Start(context.Background()))
	ctx := context.Background()

	require.NoError(t, <-m.RequestAdd(ctx, 5, strptr("/data/x")))
	require.NoError(t, <-m.RequestAdd(ctx, 6, nil))

	v, ok := store.get(5)
	assert.True(t, ok)
	assert.Equal(t, "/data/x", v)

	_, ok = store.get(6)
	assert.False(t, ok, "untitled tabs are ephemeral")
}

func TestAddDuplicateKey(t *testing.T) {
	m := newTestManager(t, newMemStore(), newCountingDisposer())
	require.NoError(t, m.Start(context.Background()))
	ctx := context.Background()

	require.NoError(t, <-m.RequestAdd(ctx, 3, nil))
	before := m.Snapshot()

	err := <-m.RequestAdd(ctx, 3, strptr("/other"))
	assert.ErrorIs(t, err, registry.ErrDuplicateKey)
	assert.Same(t, before, m.Snapshot(), "failed add must leave the registry unchanged")
}

func TestRemoveDropsPersistedEntry(t *testing.T) {
	store := newMemStore()
	m := newTestManager(t, store, newCountingDisposer())
	require.NoError(t, m.Start(context.Background()))
	ctx := context.Background()

	require.NoError(t, <-m.RequestAdd(ctx, 5, strptr("X")))
	require.NoError(t, <-m.RequestRemove(ctx, 5))

	_, ok := store.get(5)
	assert.False(t, ok)
}

func TestRemoveNotFound(t *testing.T) {
	m := newTestManager(t, newMemStore(), newCountingDisposer())
	require.NoError(t, m.Start(context.Background()))

	err := <-m.RequestRemove(context.Background(), 42)
	assert.ErrorIs(t, err, registry.ErrNotFound)
}

func TestDisposeExactlyOncePerRemovedSession(t *testing.T) {
	disposer := newCountingDisposer()
	m := newTestManager(t, newMemStore(), disposer)
	require.NoError(t, m.Start(context.Background()))
	ctx := context.Background()

	require.NoError(t, <-m.RequestAdd(ctx, 1, nil))
	require.NoError(t, <-m.RequestAdd(ctx, 2, nil))
	require.NoError(t, <-m.RequestRemove(ctx, 1))

	assert.Equal(t, 1, disposer.count(1))
	assert.Equal(t, 0, disposer.count(2), "live sessions must never be disposed")
	assert.Equal(t, 0, disposer.count(0), "the startup untitled session is still open")

	// A second remove of the same key is a not-found no-op, not a second dispose.
	err := <-m.RequestRemove(ctx, 1)
	assert.ErrorIs(t, err, registry.ErrNotFound)
	assert.Equal(t, 1, disposer.count(1))
}

func TestRemoveLastTabSynthesizesUntitled(t *testing.T) {
	store := newMemStore()
	store.entries = map[int]string{7: "/only/tab"}

	m := newTestManager(t, store, newCountingDisposer())
	require.NoError(t, m.Start(context.Background()))

	require.NoError(t, <-m.RequestRemove(context.Background(), 7))

	snap := m.Snapshot()
	require.Len(t, snap.Sessions, 1)
	assert.True(t, snap.Sessions[0].Untitled())
	require.NotNil(t, snap.SelectedKey)
	assert.Equal(t, snap.Sessions[0].Key, *snap.SelectedKey)

	// The replacement is a fresh ephemeral session, never persisted.
	entries, err := store.LoadAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSelect(t *testing.T) {
	m := newTestManager(t, newMemStore(), newCountingDisposer())
	require.NoError(t, m.Start(context.Background()))
	ctx := context.Background()

	require.NoError(t, <-m.RequestAdd(ctx, 9, nil))
	require.NoError(t, <-m.RequestSelect(ctx, 9))

	snap := m.Snapshot()
	require.NotNil(t, snap.SelectedKey)
	assert.Equal(t, 9, *snap.SelectedKey)
}

func TestSelectNotFoundKeepsSelection(t *testing.T) {
	m := newTestManager(t, newMemStore(), newCountingDisposer())
	require.NoError(t, m.Start(context.Background()))

	err := <-m.RequestSelect(context.Background(), 404)
	assert.ErrorIs(t, err, registry.ErrNotFound)

	snap := m.Snapshot()
	require.NotNil(t, snap.SelectedKey)
	assert.Equal(t, 0, *snap.SelectedKey)
}

func TestConcurrentMutationsResolveInSubmissionOrder(t *testing.T) {
	m := newTestManager(t, newMemStore(), newCountingDisposer())
	require.NoError(t, m.Start(context.Background()))
	ctx := context.Background()

	// add(7) enqueued before remove(7): the final state reflects exactly
	// that order, never an interleaving.
	addRes := m.RequestAdd(ctx, 7, nil)
	removeRes := m.RequestRemove(ctx, 7)

	assert.NoError(t, <-addRes)
	assert.NoError(t, <-removeRes)

	for _, s := range m.Snapshot().Sessions {
		assert.NotEqual(t, 7, s.Key)
	}

	// Reversed order: remove(7) first is a not-found no-op, then add lands.
	removeRes = m.RequestRemove(ctx, 7)
	addRes = m.RequestAdd(ctx, 7, nil)

	assert.ErrorIs(t, <-removeRes, registry.ErrNotFound)
	assert.NoError(t, <-addRes)

	_, found := m.registry.Get(7)
	assert.True(t, found)
}

func TestPersistenceFailureDoesNotBlockMutation(t *testing.T) {
	store := newMemStore()
	store.putErr = errors.New("readonly filesystem")
	store.removeErr = errors.New("readonly filesystem")

	m := newTestManager(t, store, newCountingDisposer())
	require.NoError(t, m.Start(context.Background()))
	ctx := context.Background()

	require.NoError(t, <-m.RequestAdd(ctx, 5, strptr("X")), "unpersistable tab is still usable")
	require.NoError(t, <-m.RequestRemove(ctx, 5), "unpersistable removal still closes the tab")
}

func TestDisposalFailureDoesNotBlockRemoval(t *testing.T) {
	disposer := newCountingDisposer()
	disposer.err = errors.New("watcher refused to die")

	m := newTestManager(t, newMemStore(), disposer)
	require.NoError(t, m.Start(context.Background()))
	ctx := context.Background()

	require.NoError(t, <-m.RequestAdd(ctx, 5, nil))
	require.NoError(t, <-m.RequestRemove(ctx, 5))

	for _, s := range m.Snapshot().Sessions {
		assert.NotEqual(t, 5, s.Key)
	}
}

func TestSubscribeReceivesSnapshots(t *testing.T) {
	m := newTestManager(t, newMemStore(), newCountingDisposer())
	require.NoError(t, m.Start(context.Background()))

	id, ch := m.Subscribe()
	defer m.Unsubscribe(id)

	require.NoError(t, <-m.RequestAdd(context.Background(), 1, nil))

	select {
	case snap := <-ch:
		assert.Len(t, snap.Sessions, 2)
	case <-time.After(time.Second):
		t.Fatal("No snapshot published after mutation")
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	m := newTestManager(t, newMemStore(), newCountingDisposer())
	require.NoError(t, m.Start(context.Background()))

	id, ch := m.Subscribe()
	m.Unsubscribe(id)

	_, open := <-ch
	assert.False(t, open)
}

func TestCloseDisposesRemainingSessions(t *testing.T) {
	disposer := newCountingDisposer()
	logger := logging.NewDefault()
	sched := scheduler.New(16, logger)
	m := NewManager(newMemStore(), session.NewFactory(), disposer, sched, logger)
	require.NoError(t, m.Start(context.Background()))
	ctx := context.Background()

	require.NoError(t, <-m.RequestAdd(ctx, 1, nil))
	require.NoError(t, <-m.RequestAdd(ctx, 2, nil))

	closeCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	require.NoError(t, m.Close(closeCtx))

	assert.Equal(t, 1, disposer.count(0))
	assert.Equal(t, 1, disposer.count(1))
	assert.Equal(t, 1, disposer.count(2))
}

func TestCloseDrainTimeoutLeavesRegistryToWorker(t *testing.T) {
	disposer := newBlockingDisposer()
	logger := logging.NewDefault()
	sched := scheduler.New(16, logger)
	m := NewManager(newMemStore(), session.NewFactory(), disposer, sched, logger)
	require.NoError(t, m.Start(context.Background()))
	ctx := context.Background()

	require.NoError(t, <-m.RequestAdd(ctx, 5, nil))
	removeRes := m.RequestRemove(ctx, 5) // worker parks inside the disposer
	addRes := m.RequestAdd(ctx, 2, nil)  // queued behind it

	closeCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	require.Error(t, m.Close(closeCtx), "drain cannot finish while disposal is stuck")

	// Teardown was abandoned, so the worker still owns the registry: the
	// queued mutation lands cleanly once disposal unblocks.
	close(disposer.release)
	require.NoError(t, <-removeRes)
	require.NoError(t, <-addRes)

	snap := m.Snapshot()
	keys := make([]int, 0, len(snap.Sessions))
	for _, s := range snap.Sessions {
		keys = append(keys, s.Key)
	}
	assert.Equal(t, []int{0, 2}, keys)
	assert.Equal(t, 1, disposer.count(5))
	assert.Equal(t, 0, disposer.count(2), "sessions surviving an abandoned teardown stay open")
	assert.Equal(t, 0, disposer.count(0))
}
