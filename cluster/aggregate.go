// Package cluster combines the research states published by peer nodes with
// this node's own contributions into a single view per sync cycle.
package cluster

import (
	"math"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/spacemeshos/go-researchsync/tech"
)

// Aggregate is the cluster-wide state of one technology for the current cycle.
type Aggregate struct {
	Researched bool
	Level      int
	Infinite   bool
	// Progress is the sum of admissible contributions toward Level. It is
	// absent once the technology completed in this cycle.
	Progress tech.Progress
}

// View maps technology name to its aggregate. A view is rebuilt every cycle
// and never persisted.
type View map[string]Aggregate

type Opt func(*Aggregator)

func WithLogger(logger *zap.Logger) Opt {
	return func(a *Aggregator) {
		a.logger = logger
	}
}

// Aggregator builds cluster views.
type Aggregator struct {
	logger *zap.Logger
}

func New(opts ...Opt) *Aggregator {
	a := &Aggregator{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Build aggregates peer snapshots into a view.
//
// Own contributions are read from local. When a technology completes in this
// cycle the own contribution in local is reset to zero, so local must be the
// store's map and Build must run under the store's lock.
func (a *Aggregator) Build(local tech.Map, peers []tech.PeerSnapshot) View {
	peers = slices.Clone(peers)
	slices.SortStableFunc(peers, func(x, y tech.PeerSnapshot) int {
		return strings.Compare(x.NodeID, y.NodeID)
	})

	view := make(View)
	for _, peer := range peers {
		for _, name := range sortedNames(peer.Research) {
			researched, level, infinite, ok := peer.Research[name].Marker()
			if !ok {
				continue
			}
			agg, exists := view[name]
			if !exists {
				view[name] = Aggregate{
					Researched: researched,
					Level:      level,
					Infinite:   infinite,
				}
				continue
			}
			if agg.Infinite && agg.Level < level {
				agg.Level = level
			} else if researched && !agg.Researched {
				agg.Researched = true
			}
			view[name] = agg
		}
	}

	// own credit always counts, even when no peer is at our level
	progress := make(map[string]float64, len(view))
	for name := range view {
		progress[name] = credit(local[name].Contribution)
	}

	for _, peer := range peers {
		for name, rec := range peer.Research {
			agg, ok := view[name]
			if !ok || !rec.Contribution.Valid {
				continue
			}
			level, ok := rec.Level.Int()
			if !ok || level != agg.Level {
				continue
			}
			progress[name] += credit(rec.Contribution.Value)
		}
	}

	for name, agg := range view {
		p := progress[name]
		if p <= 1 {
			agg.Progress = tech.NewProgress(p)
			view[name] = agg
			continue
		}
		agg.Progress = tech.NoProgress
		agg.Researched = true
		own, ok := local[name]
		if ok {
			own.Contribution = 0
			if own.Level >= agg.Level {
				agg.Level = own.Level + 1
			}
			local[name] = own
		}
		view[name] = agg
		a.logger.Debug("cluster completed technology",
			zap.String("tech", name),
			zap.Int("level", agg.Level),
			zap.Float64("progress", p),
		)
	}
	return view
}

// credit is a contribution with drift below tech.Epsilon counted as zero.
func credit(v float64) float64 {
	if math.Abs(v) < tech.Epsilon {
		return 0
	}
	return v
}

func sortedNames(research map[string]tech.PeerRecord) []string {
	names := make([]string, 0, len(research))
	for name := range research {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
