// Package snapshot bundles everything a query needs into one immutable value
// and swaps it atomically when the data is refreshed.
package snapshot

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/yourorg/kharkivmetro/internal/metro"
	"github.com/yourorg/kharkivmetro/internal/planner"
	"github.com/yourorg/kharkivmetro/internal/resolver"
	"github.com/yourorg/kharkivmetro/internal/schedule"
)

// Options configures how raw data becomes a snapshot.
type Options struct {
	TransferMinutes int
	Resolver        resolver.Options
}

// Snapshot is a fully built, read-only view of the network. Requests grab
// one pointer at the start and use it throughout, so a concurrent refresh
// never mixes old and new data.
type Snapshot struct {
	Version  string
	Source   string
	LoadedAt time.Time

	Network  *metro.Network
	Index    *schedule.Index
	Resolver *resolver.Resolver
	Planner  *planner.Planner

	raw metro.RawNetwork
}

// Raw returns the input the snapshot was built from.
func (s *Snapshot) Raw() metro.RawNetwork { return s.raw }

// Build validates raw and derives the index, resolver and planner from it.
func Build(raw metro.RawNetwork, opts Options) (*Snapshot, error) {
	net, err := metro.Load(raw, metro.LoadOptions{TransferMinutes: opts.TransferMinutes})
	if err != nil {
		return nil, err
	}
	res, err := resolver.New(net, opts.Resolver)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	ix := schedule.Build(net.Timetable())
	return &Snapshot{
		Version:  uuid.NewString(),
		LoadedAt: time.Now(),
		Network:  net,
		Index:    ix,
		Resolver: res,
		Planner:  planner.New(net, ix),
		raw:      raw,
	}, nil
}

// Source yields the raw network a snapshot is built from.
type Source interface {
	Name() string
	ReadNetwork(ctx context.Context) (metro.RawNetwork, error)
}

// Store holds the current snapshot.
type Store struct {
	current atomic.Pointer[Snapshot]
}

// Current returns the active snapshot, or nil before the first load.
func (s *Store) Current() *Snapshot {
	return s.current.Load()
}

// Swap installs next and returns the previous snapshot.
func (s *Store) Swap(next *Snapshot) *Snapshot {
	return s.current.Swap(next)
}
