package reconcile

import (
	"github.com/spacemeshos/go-researchsync/metrics"
)

const subsystem = "reconcile"

var (
	unlocks = metrics.NewCounter(
		"unlocks",
		subsystem,
		"number of technologies unlocked from the cluster view",
		[]string{},
	).WithLabelValues()

	progressUpdates = metrics.NewCounter(
		"progress_updates",
		subsystem,
		"number of progress updates pushed from the cluster view",
		[]string{},
	).WithLabelValues()

	contributed = metrics.NewCounter(
		"own_contribution",
		subsystem,
		"absolute own contribution change observed across cycles",
		[]string{},
	).WithLabelValues()
)
