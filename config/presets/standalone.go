package presets

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spacemeshos/go-researchsync/config"
)

func init() {
	register("standalone", standalone())
}

// standalone runs against a relay on the same host with short cycles.
func standalone() config.Config {
	conf := config.DefaultConfig()
	conf.Preset = "standalone"

	conf.DataDir = filepath.Join(os.TempDir(), "researchsync")
	conf.FileLock = filepath.Join(conf.DataDir, "LOCK")

	conf.Relay.URL = "http://127.0.0.1:8080"
	conf.Relay.RequestTimeout = 2 * time.Second
	conf.Relay.MaxRequestRetries = 1

	conf.Sync.Interval = time.Second
	conf.Sync.ScanGrace = 500 * time.Millisecond
	conf.Sync.RegisterRetry = time.Second

	conf.LOGGING.SyncLoggerLevel = "debug"
	return conf
}
