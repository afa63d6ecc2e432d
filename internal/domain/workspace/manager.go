package workspace

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tabwell/backend/internal/domain/registry"
	"github.com/tabwell/backend/internal/domain/session"
	"github.com/tabwell/backend/internal/infrastructure/monitoring"
	"github.com/tabwell/backend/internal/logging"
	"github.com/tabwell/backend/internal/scheduler"
	"github.com/tabwell/backend/internal/shared/types"
)

// Store is the durable key -> backing-resource mapping the workspace
// restores from. Failures on any method are degraded, never fatal: a tab
// that fails to persist is still usable for the current run.
type Store interface {
	LoadAll(ctx context.Context) (map[int]string, error)
	Put(ctx context.Context, key int, backingResource string) error
	Remove(ctx context.Context, key int) error
}

// subscriberBuffer bounds each observer channel. Slow observers skip
// intermediate snapshots; they always receive a later, fully-consistent one.
const subscriberBuffer = 8

// Manager owns the tab registry and funnels every mutation through the
// single-worker scheduler, pairing it with its persistence and disposal
// side effects. It is an explicitly constructed instance, injected where
// needed; there is no process-wide singleton.
type Manager struct {
	registry *registry.Registry
	store    Store
	factory  session.Factory
	disposer session.Disposer
	sched    *scheduler.Scheduler
	logger   *logging.Logger
	metrics  *monitoring.Metrics

	subMu sync.RWMutex
	subs  map[string]chan *types.Snapshot
}

// NewManager creates a workspace manager around the given collaborators.
func NewManager(store Store, factory session.Factory, disposer session.Disposer, sched *scheduler.Scheduler, logger *logging.Logger) *Manager {
	return &Manager{
		registry: registry.New(factory),
		store:    store,
		factory:  factory,
		disposer: disposer,
		sched:    sched,
		logger:   logger,
		subs:     make(map[string]chan *types.Snapshot),
	}
}

// WithMetrics adds metrics tracking to the manager
func (m *Manager) WithMetrics(metrics *monitoring.Metrics) *Manager {
	m.metrics = metrics
	return m
}

// Start seeds the registry from the persistence store. An unreadable store
// degrades to a first run: the error is logged and exactly one untitled
// session is opened instead of aborting startup.
func (m *Manager) Start(ctx context.Context) error {
	entries, err := m.store.LoadAll(ctx)
	if err != nil {
		m.logger.Warn("failed to load persisted tabs, starting fresh", zap.Error(err))
		entries = nil
	}

	if len(entries) == 0 {
		if err := m.registry.Add(m.factory.Create(0, nil)); err != nil {
			return err
		}
	} else {
		keys := make([]int, 0, len(entries))
		for key := range entries {
			keys = append(keys, key)
		}
		sort.Ints(keys)

		for _, key := range keys {
			resource := entries[key]
			if err := m.registry.Add(m.factory.Create(key, &resource)); err != nil {
				// Persisted keys are unique by schema; a collision here
				// means a corrupt store entry. Skip it rather than die.
				m.logger.Error("skipping persisted tab", zap.Int("key", key), zap.Error(err))
			}
		}
	}

	snap := m.registry.Snapshot()
	if len(snap.Sessions) > 0 {
		if err := m.registry.Select(snap.Sessions[0].Key); err != nil {
			return err
		}
	}

	m.trackOpenTabs()
	m.logger.Info("workspace restored",
		zap.Int("tabs", len(m.registry.List())),
		zap.Int("persisted", len(entries)),
	)
	return nil
}

// RequestAdd enqueues creation of a new tab. The caller mints the key; a
// collision surfaces as registry.ErrDuplicateKey on the returned channel.
func (m *Manager) RequestAdd(ctx context.Context, key int, backingResource *string) <-chan error {
	return m.sched.Submit(ctx, func(ctx context.Context) error {
		timer := m.startTimer("add")

		s := m.factory.Create(key, backingResource)
		if err := m.registry.Add(s); err != nil {
			m.stopTimer(timer, "duplicate_key")
			return err
		}

		if backingResource != nil {
			if err := m.store.Put(ctx, key, *backingResource); err != nil {
				m.logger.Warn("tab will not be restored next launch",
					zap.Int("key", key), zap.Error(err))
			}
		}

		if m.metrics != nil {
			m.metrics.TabsOpened.Inc()
		}
		m.stopTimer(timer, "ok")
		m.publish()
		return nil
	})
}

// RequestRemove enqueues removal of a tab: registry removal, persistence
// cleanup, then disposal of the removed session, in that order, all before
// observers see the new state.
func (m *Manager) RequestRemove(ctx context.Context, key int) <-chan error {
	return m.sched.Submit(ctx, func(ctx context.Context) error {
		timer := m.startTimer("remove")

		removed := m.registry.Remove(key)
		if removed == nil {
			m.stopTimer(timer, "not_found")
			return registry.ErrNotFound
		}

		if err := m.store.Remove(ctx, key); err != nil {
			m.logger.Warn("failed to drop persisted tab",
				zap.Int("key", key), zap.Error(err))
		}

		if err := m.disposer.Dispose(ctx, removed); err != nil {
			m.logger.Warn("tab closed with incomplete cleanup",
				zap.Int("key", key), zap.Error(err))
		}

		if m.metrics != nil {
			m.metrics.TabsClosed.Inc()
		}
		m.stopTimer(timer, "ok")
		m.publish()
		return nil
	})
}

// RequestSelect enqueues a selection change. Selecting an absent key is a
// non-fatal no-op signaled as registry.ErrNotFound.
func (m *Manager) RequestSelect(ctx context.Context, key int) <-chan error {
	return m.sched.Submit(ctx, func(ctx context.Context) error {
		timer := m.startTimer("select")

		if err := m.registry.Select(key); err != nil {
			m.stopTimer(timer, "not_found")
			return err
		}

		m.stopTimer(timer, "ok")
		m.publish()
		return nil
	})
}

// Snapshot returns the current point-in-time view of the registry.
func (m *Manager) Snapshot() *types.Snapshot {
	return m.registry.Snapshot()
}

// Stats returns registry statistics.
func (m *Manager) Stats() types.Stats {
	return m.registry.Stats()
}

// Subscribe registers an observer of registry snapshots. The returned
// channel closes on Unsubscribe or workspace shutdown.
func (m *Manager) Subscribe() (string, <-chan *types.Snapshot) {
	id := uuid.New().String()
	ch := make(chan *types.Snapshot, subscriberBuffer)

	m.subMu.Lock()
	m.subs[id] = ch
	m.subMu.Unlock()

	return id, ch
}

// Unsubscribe removes an observer and closes its channel.
func (m *Manager) Unsubscribe(id string) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	if ch, ok := m.subs[id]; ok {
		delete(m.subs, id)
		close(ch)
	}
}

// Close drains the scheduler, then disposes all remaining sessions
// best-effort and closes observer channels. If the drain times out the
// worker is still the live owner of the registry, so registry teardown is
// abandoned and the error returned: a leaked session is recoverable,
// clearing state under a running writer is not.
func (m *Manager) Close(ctx context.Context) error {
	drainErr := m.sched.Close(ctx)
	if drainErr != nil {
		m.logger.Warn("mutation queue did not drain cleanly, abandoning session cleanup",
			zap.Error(drainErr))
	} else {
		for _, s := range m.registry.Clear() {
			if err := m.disposer.Dispose(ctx, s); err != nil {
				m.logger.Warn("session cleanup incomplete on shutdown",
					zap.Int("key", s.Key), zap.Error(err))
			}
		}
	}

	m.subMu.Lock()
	for id, ch := range m.subs {
		delete(m.subs, id)
		close(ch)
	}
	m.subMu.Unlock()

	return drainErr
}

// publish fans the current snapshot out to observers. Runs on the worker at
// task boundaries only, so every delivered snapshot is fully consistent.
func (m *Manager) publish() {
	m.trackOpenTabs()
	snap := m.registry.Snapshot()

	m.subMu.RLock()
	defer m.subMu.RUnlock()
	for _, ch := range m.subs {
		select {
		case ch <- snap:
		default:
			// Slow observer; it will catch a later snapshot.
		}
	}
}

func (m *Manager) trackOpenTabs() {
	if m.metrics != nil {
		m.metrics.SetOpenTabs(len(m.registry.List()))
	}
}

func (m *Manager) startTimer(op string) *monitoring.Timer {
	if m.metrics == nil {
		return nil
	}
	return monitoring.NewTimer(m.metrics, op)
}

func (m *Manager) stopTimer(t *monitoring.Timer, status string) {
	if t != nil {
		t.Stop(status)
	}
}
