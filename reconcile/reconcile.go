// Package reconcile decides which parts of the cluster view must be applied to
// the local engine and turns them into engine commands.
package reconcile

import (
	"math"
	"slices"

	"go.uber.org/zap"

	"github.com/spacemeshos/go-researchsync/cluster"
	"github.com/spacemeshos/go-researchsync/engine"
	"github.com/spacemeshos/go-researchsync/tech"
)

// SelectToResearch returns the known technologies that the cluster completed
// or leveled past the local record.
func SelectToResearch(local tech.Map, view cluster.View) cluster.View {
	selected := make(cluster.View)
	for name, own := range local {
		agg, ok := view[name]
		if !ok {
			continue
		}
		target := tech.Record{Researched: agg.Researched, Level: agg.Level}
		if tech.Advanced(own, target, own.Infinite) {
			selected[name] = agg
		}
	}
	return selected
}

// SelectToUpdateProgress returns the known technologies, not selected for
// research, whose cluster progress is ahead of the local progress. Infinite
// technologies already on a higher local level are never pulled back.
func SelectToUpdateProgress(local tech.Map, view, toResearch cluster.View) cluster.View {
	selected := make(cluster.View)
	for name, own := range local {
		if _, ok := toResearch[name]; ok {
			continue
		}
		agg, ok := view[name]
		if !ok {
			continue
		}
		progress, ok := agg.Progress.Get()
		if !ok {
			continue
		}
		if own.Infinite && own.Level > agg.Level {
			continue
		}
		if own.Progress.Or(0) < progress {
			selected[name] = agg
		}
	}
	return selected
}

type Opt func(*Reconciler)

func WithLogger(logger *zap.Logger) Opt {
	return func(r *Reconciler) {
		r.logger = logger
	}
}

// Reconciler applies selections to the local map.
type Reconciler struct {
	logger *zap.Logger
}

func New(opts ...Opt) *Reconciler {
	r := &Reconciler{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ApplyResearch installs the cluster value of every selected technology in
// local and returns the unlock commands for the engine. Players are notified
// only when exactly one technology is unlocked.
func (r *Reconciler) ApplyResearch(local tech.Map, toResearch cluster.View) []engine.Command {
	names := make([]string, 0, len(toResearch))
	for name := range toResearch {
		if _, ok := local[name]; ok {
			names = append(names, name)
		}
	}
	slices.Sort(names)

	notify := len(names) == 1
	cmds := make([]engine.Command, 0, len(names))
	for _, name := range names {
		agg := toResearch[name]
		unlock := engine.Unlock{
			Name:       name,
			Researched: agg.Researched,
			Level:      agg.Level,
			Infinite:   agg.Infinite,
			Progress:   tech.NoProgress,
			Notify:     notify,
		}
		cmds = append(cmds, unlock)
		// progress and own credit restart with the new tier
		local[name] = tech.Record{
			Researched: agg.Researched,
			Level:      agg.Level,
			Infinite:   agg.Infinite,
		}
		unlocks.Inc()
		r.logger.Info(unlock.Description(),
			zap.String("tech", name),
			zap.Int("level", agg.Level),
			zap.Bool("infinite", agg.Infinite),
			zap.Bool("notify", notify),
		)
	}
	return cmds
}

// ApplyProgressUpdates moves every selected technology to the cluster progress
// and returns the commands that do the same in the engine. The new progress
// becomes the baseline for the next contribution delta.
func (r *Reconciler) ApplyProgressUpdates(local tech.Map, toUpdate cluster.View) []engine.Command {
	names := make([]string, 0, len(toUpdate))
	for name := range toUpdate {
		names = append(names, name)
	}
	slices.Sort(names)

	var cmds []engine.Command
	for _, name := range names {
		own, ok := local[name]
		if !ok {
			continue
		}
		progress, ok := toUpdate[name].Progress.Get()
		if !ok {
			continue
		}
		cmds = append(cmds, engine.SetProgress{Name: name, Last: own.Progress, New: progress})
		progressUpdates.Inc()
		r.logger.Info("updating progress",
			zap.String("tech", name),
			zap.Stringer("last", own.Progress),
			zap.Float64("delta", progress-own.Progress.Or(0)),
		)
		own.Progress = tech.NewProgress(progress)
		local[name] = own
	}
	return cmds
}

// OwnContributions returns, for every technology present in both maps, how
// much the contribution changed since the previous record. Changes within
// epsilon are omitted.
func OwnContributions(current, previous tech.Map) map[string]float64 {
	diffs := make(map[string]float64)
	for name, rec := range current {
		prev, ok := previous[name]
		if !ok {
			continue
		}
		if diff := rec.Contribution - prev.Contribution; math.Abs(diff) > tech.Epsilon {
			diffs[name] = diff
		}
	}
	return diffs
}

// ReportOwnContributions logs the own contribution changes of this cycle.
func (r *Reconciler) ReportOwnContributions(current, previous tech.Map) {
	diffs := OwnContributions(current, previous)
	names := make([]string, 0, len(diffs))
	for name := range diffs {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		contributed.Add(math.Abs(diffs[name]))
		r.logger.Info("own research",
			zap.String("tech", name),
			zap.Stringer("progress", current[name].Progress),
			zap.Float64("delta", diffs[name]),
		)
	}
}
