package engine

import (
	"github.com/spacemeshos/go-researchsync/metrics"
)

const subsystem = "engine"

var (
	scanLines = metrics.NewCounter(
		"scan_lines",
		subsystem,
		"number of lines read from the engine",
		[]string{"outcome"},
	)
	scanAccepted  = scanLines.WithLabelValues("ok")
	scanMalformed = scanLines.WithLabelValues("malformed")

	commandsSent = metrics.NewCounter(
		"commands",
		subsystem,
		"number of commands written to the engine",
		[]string{"kind"},
	)
)
