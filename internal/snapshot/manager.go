package snapshot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"
)

// ErrNoSource is returned by Boot when every source failed.
var ErrNoSource = errors.New("snapshot: no source produced a network")

// Manager serializes refreshes. Readers never wait on it: they read the
// store, which only changes after a new snapshot has been built completely.
type Manager struct {
	store     *Store
	opts      Options
	cachePath string

	mu      sync.Mutex
	hooks   []func(*Snapshot)
	lastErr error
	lastRun time.Time
}

// NewManager creates a manager writing into store. When cachePath is not
// empty every successful refresh also writes the raw network there.
func NewManager(store *Store, opts Options, cachePath string) *Manager {
	return &Manager{store: store, opts: opts, cachePath: cachePath}
}

// Store returns the store the manager swaps into.
func (m *Manager) Store() *Store { return m.store }

// Options returns the build options every refresh uses.
func (m *Manager) Options() Options { return m.opts }

// OnSwap registers fn to run after each successful swap.
func (m *Manager) OnSwap(fn func(*Snapshot)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks = append(m.hooks, fn)
}

// Refresh reads src, builds a snapshot and swaps it in. On any error the
// active snapshot stays in place.
func (m *Manager) Refresh(ctx context.Context, src Source) (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	start := time.Now()
	m.lastRun = start
	snap, err := m.build(ctx, src)
	m.lastErr = err
	if err != nil {
		log.Printf("❌ [SNAPSHOT] Refresh from %s failed: %v", src.Name(), err)
		return nil, err
	}

	prev := m.store.Swap(snap)
	prevVersion := "none"
	if prev != nil {
		prevVersion = prev.Version
	}
	log.Printf("✅ [SNAPSHOT] %s -> %s from %s (%d stations, %d departures, %v)",
		prevVersion, snap.Version, snap.Source, len(snap.Network.Stations()), snap.Index.Size(), time.Since(start))

	if m.cachePath != "" && src.Name() != FileSourceName {
		if err := SaveFile(m.cachePath, snap.raw); err != nil {
			log.Printf("⚠️ [SNAPSHOT] Could not write cache %s: %v", m.cachePath, err)
		}
	}
	for _, fn := range m.hooks {
		fn(snap)
	}
	return snap, nil
}

func (m *Manager) build(ctx context.Context, src Source) (*Snapshot, error) {
	raw, err := src.ReadNetwork(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot: read %s: %w", src.Name(), err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	snap, err := Build(raw, m.opts)
	if err != nil {
		return nil, err
	}
	snap.Source = src.Name()
	return snap, nil
}

// Boot tries sources in order and stops at the first that loads.
func (m *Manager) Boot(ctx context.Context, sources ...Source) (*Snapshot, error) {
	var errs []error
	for _, src := range sources {
		if src == nil {
			continue
		}
		snap, err := m.Refresh(ctx, src)
		if err == nil {
			return snap, nil
		}
		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
	}
	return nil, errors.Join(append([]error{ErrNoSource}, errs...)...)
}

// Status reports the outcome of the most recent refresh.
type Status struct {
	LastRun   time.Time
	LastError string
}

func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := Status{LastRun: m.lastRun}
	if m.lastErr != nil {
		st.LastError = m.lastErr.Error()
	}
	return st
}
