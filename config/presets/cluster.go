package presets

import (
	"time"

	"github.com/spacemeshos/go-researchsync/config"
)

func init() {
	register("cluster", cluster())
}

// cluster is tuned for many instances sharing one relay.
func cluster() config.Config {
	conf := config.DefaultConfig()
	conf.Preset = "cluster"

	conf.Relay.RequestTimeout = 20 * time.Second
	conf.Relay.MaxRequestRetries = 3
	conf.Relay.RequestRetryDelay = time.Second

	conf.Sync.Interval = 10 * time.Second
	conf.Sync.ScanGrace = 3 * time.Second

	conf.LOGGING.Encoder = config.JSONLogEncoder
	conf.CollectMetrics = true
	return conf
}
