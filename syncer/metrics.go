package syncer

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/spacemeshos/go-researchsync/metrics"
)

const (
	namespace = "syncer"
)

var (
	numCycles = metrics.NewCounter(
		"cycles",
		namespace,
		"number of sync cycles",
		[]string{"outcome"},
	)
	cycleSuccess = numCycles.WithLabelValues("ok")
	cycleFail    = numCycles.WithLabelValues("not")

	registrations = metrics.NewCounter(
		"registration_attempts",
		namespace,
		"number of attempts to fetch own published state",
		[]string{"outcome"},
	)
	registered      = registrations.WithLabelValues("ok")
	notRegistered   = registrations.WithLabelValues("not_registered")
	registrationErr = registrations.WithLabelValues("error")

	syncState = metrics.NewGauge(
		"state",
		namespace,
		"current sync state in [idle, scanning, awaiting_peers, reconciling, publishing]",
		[]string{},
	).WithLabelValues()

	peersSeen = metrics.NewGauge(
		"peers",
		namespace,
		"number of peer snapshots aggregated in the last cycle",
		[]string{},
	).WithLabelValues()

	cycleDuration = metrics.NewHistogramWithBuckets(
		"cycle_duration_seconds",
		namespace,
		"duration of successful sync cycles",
		[]string{},
		prometheus.ExponentialBuckets(0.5, 2, 8),
	).WithLabelValues()
)
