// Package localstate owns the node's belief about its own research: the
// current map, updated from engine scans and cluster reconciliation, and the
// map as it was right before the latest scan of each technology.
package localstate

import (
	"math"
	"sync"

	"go.uber.org/zap"

	"github.com/spacemeshos/go-researchsync/tech"
)

type Opt func(*Store)

func WithLogger(logger *zap.Logger) Opt {
	return func(s *Store) {
		s.logger = logger
	}
}

// State is the pair of maps guarded by a Store. It must not be retained
// outside of the function passed to Store.Reconcile.
type State struct {
	// Research is the authoritative local map.
	Research tech.Map
	// Previous holds, for each technology, the record that Research held
	// before the most recent scan of that technology was merged in.
	Previous tech.Map
}

// Store serializes scan results arriving from the engine with reconciliation
// passes driven by the syncer.
type Store struct {
	logger *zap.Logger

	mu    sync.Mutex
	state State
}

func New(opts ...Opt) *Store {
	s := &Store{
		logger: zap.NewNop(),
		state: State{
			Research: make(tech.Map),
			Previous: make(tech.Map),
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ApplyScanResult merges one technology line reported by the engine.
func (s *Store) ApplyScanResult(scan tech.Scan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.applyScan(scan)
}

// ResetRealizedContributions zeroes the contribution of every technology that
// advanced since its previous record.
func (s *Store) ResetRealizedContributions() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.ResetRealizedContributions()
}

// Import replaces the local map with research published by this node before a
// restart. Previous records are discarded since they describe another session.
func (s *Store) Import(research tech.Map) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Research = research.Clone()
	if s.state.Research == nil {
		s.state.Research = make(tech.Map)
	}
	s.state.Previous = make(tech.Map)
	s.logger.Info("imported published research", zap.Int("techs", len(research)))
}

// Reconcile runs fn with exclusive access to the local state.
func (s *Store) Reconcile(fn func(*State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.state)
}

// Snapshot returns a copy of the local map.
func (s *Store) Snapshot() tech.Map {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Research.Clone()
}

// Get returns the local record of a technology.
func (s *Store) Get(name string) (tech.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.state.Research[name]
	return r, ok
}

func (st *State) applyScan(scan tech.Scan) {
	prev, ok := st.Research[scan.Name]
	if !ok {
		prev = tech.Record{Infinite: scan.Infinite}
	}
	st.Previous[scan.Name] = prev

	current := tech.Record{
		Researched:   scan.Researched,
		Level:        scan.Level,
		Infinite:     scan.Infinite,
		Progress:     scan.Progress,
		Contribution: prev.Contribution,
	}
	// Previous progress is either the last scan or the cluster value pushed to
	// the engine, so the difference is work done by this node alone.
	before, okBefore := prev.Progress.Get()
	after, okAfter := current.Progress.Get()
	switch {
	case ok && tech.Advanced(prev, current, current.Infinite):
		current.Contribution = 0
	case okBefore && okAfter:
		if delta := after - before; math.Abs(delta) >= tech.Epsilon {
			current.Contribution += delta
		}
	}
	if math.Abs(current.Contribution) < tech.Epsilon {
		current.Contribution = 0
	}
	st.Research[scan.Name] = current
}

// ResetRealizedContributions zeroes the contribution of every technology whose
// current record is more advanced than its previous one: that credit was
// spent on the advance and must not be summed into the cluster again.
func (st *State) ResetRealizedContributions() {
	for name, current := range st.Research {
		prev, ok := st.Previous[name]
		if !ok {
			continue
		}
		if tech.Advanced(prev, current, current.Infinite) && current.Contribution != 0 {
			current.Contribution = 0
			st.Research[name] = current
		}
	}
}
