// Package config contains the research sync agent configuration definitions.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/spacemeshos/go-researchsync/engine"
	"github.com/spacemeshos/go-researchsync/relay"
	"github.com/spacemeshos/go-researchsync/syncer"
)

const (
	defaultConfigFileName = "./config.json"
	defaultDataDirName    = "researchsync"
	lockFileName          = "LOCK"
)

// Config is the top level configuration of the agent.
type Config struct {
	BaseConfig `mapstructure:"main"`
	Preset     string        `mapstructure:"preset"`
	Relay      relay.Config  `mapstructure:"relay"`
	Sync       syncer.Config `mapstructure:"sync"`
	Engine     engine.Config `mapstructure:"engine"`
	LOGGING    LoggerConfig  `mapstructure:"logging"`
}

// BaseConfig holds process level options.
type BaseConfig struct {
	DataDir    string `mapstructure:"data-folder"`
	ConfigFile string `mapstructure:"config"`
	FileLock   string `mapstructure:"filelock"`

	CollectMetrics    bool          `mapstructure:"metrics"`
	MetricsListener   string        `mapstructure:"metrics-listener"`
	MetricsPushURL    string        `mapstructure:"metrics-push"`
	MetricsPushPeriod time.Duration `mapstructure:"metrics-push-period"`

	// ResearchLog enables the per-instance research log under DataDir.
	ResearchLog bool `mapstructure:"research-log"`
}

// DefaultConfig returns the default configuration of the agent.
func DefaultConfig() Config {
	return Config{
		BaseConfig: defaultBaseConfig(),
		Relay:      relay.DefaultConfig(),
		Sync:       syncer.DefaultConfig(),
		Engine:     engine.DefaultConfig(),
		LOGGING:    DefaultLoggingConfig(),
	}
}

func defaultBaseConfig() BaseConfig {
	dataDir := filepath.Join(homeDir(), defaultDataDirName)
	return BaseConfig{
		DataDir:           dataDir,
		ConfigFile:        defaultConfigFileName,
		FileLock:          filepath.Join(dataDir, lockFileName),
		CollectMetrics:    false,
		MetricsListener:   "127.0.0.1:9095",
		MetricsPushPeriod: time.Minute,
		ResearchLog:       true,
	}
}

func homeDir() string {
	if dir, err := os.UserHomeDir(); err == nil {
		return dir
	}
	return os.TempDir()
}

// LoadConfig reads the config file at fileLocation into vip. A missing file
// at the default location is not an error: the agent then runs on defaults
// and flags only.
func LoadConfig(fileLocation string, vip *viper.Viper) error {
	if fileLocation == "" {
		fileLocation = defaultConfigFileName
	}
	vip.SetConfigFile(fileLocation)
	err := vip.ReadInConfig()
	switch {
	case err == nil:
		return nil
	case fileLocation == defaultConfigFileName && errors.Is(err, fs.ErrNotExist):
		return nil
	default:
		return fmt.Errorf("failed to read config file %w", err)
	}
}
