package cmd

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/spacemeshos/go-researchsync/config"
	"github.com/spacemeshos/go-researchsync/config/presets"
)

// AddFlags binds cfg fields to flags in flagSet and returns the location
// of the config file that will be set once flags are parsed.
func AddFlags(flagSet *pflag.FlagSet, cfg *config.Config) (configPath *string) {
	flagSet.StringVarP(&cfg.Preset, "preset", "p", cfg.Preset,
		fmt.Sprintf("preset overwrites default values of the config. options %+s", presets.Options()))

	/** ======================== BaseConfig Flags ========================== **/
	configPath = flagSet.StringP("config", "c", "", "load configuration from file")
	flagSet.StringVarP(&cfg.DataDir, "data-folder", "d",
		cfg.DataDir, "directory for the research log")
	flagSet.StringVar(&cfg.FileLock, "filelock",
		cfg.FileLock, "filesystem lock to prevent running more than one agent per data folder")
	flagSet.BoolVar(&cfg.ResearchLog, "research-log",
		cfg.ResearchLog, "write unlocks and progress updates to <data-folder>/logs/<instance-name>-research.log")
	flagSet.BoolVar(&cfg.CollectMetrics, "metrics",
		cfg.CollectMetrics, "collect agent metrics")
	flagSet.StringVar(&cfg.MetricsListener, "metrics-listener",
		cfg.MetricsListener, "address of the metrics server")
	flagSet.StringVar(&cfg.MetricsPushURL, "metrics-push",
		cfg.MetricsPushURL, "push metrics to url")
	flagSet.DurationVar(&cfg.MetricsPushPeriod, "metrics-push-period",
		cfg.MetricsPushPeriod, "push period")

	/** ======================== Relay Flags ========================== **/
	flagSet.StringVar(&cfg.Relay.URL, "relay-url",
		cfg.Relay.URL, "base url of the relay")
	flagSet.StringVar(&cfg.Relay.Token, "relay-token",
		cfg.Relay.Token, "access token sent to the relay")
	flagSet.StringVar(&cfg.Relay.InstanceID, "instance-id",
		cfg.Relay.InstanceID, "identity of this instance on the relay")
	flagSet.StringVar(&cfg.Relay.Password, "instance-password",
		cfg.Relay.Password, "password of this instance on the relay")
	flagSet.StringVar(&cfg.Relay.InstanceName, "instance-name",
		cfg.Relay.InstanceName, "human readable name of this instance")
	flagSet.DurationVar(&cfg.Relay.RequestTimeout, "relay-request-timeout",
		cfg.Relay.RequestTimeout, "timeout of a single relay call including retries")
	flagSet.IntVar(&cfg.Relay.MaxRequestRetries, "relay-retry-max",
		cfg.Relay.MaxRequestRetries, "retries of a failed relay request")
	flagSet.DurationVar(&cfg.Relay.RequestRetryDelay, "relay-retry-delay",
		cfg.Relay.RequestRetryDelay, "minimal wait between relay request retries")

	/** ======================== Sync Flags ========================== **/
	flagSet.DurationVar(&cfg.Sync.Interval, "sync-interval",
		cfg.Sync.Interval, "interval between sync cycles")
	flagSet.DurationVar(&cfg.Sync.ScanGrace, "sync-scan-grace",
		cfg.Sync.ScanGrace, "wait after requesting a dump before reconciling")
	flagSet.DurationVar(&cfg.Sync.RegisterRetry, "sync-register-retry",
		cfg.Sync.RegisterRetry, "wait between attempts to fetch own published state")

	/** ======================== Engine Flags ========================== **/
	flagSet.StringVar(&cfg.Engine.CommandPath, "engine-commands",
		cfg.Engine.CommandPath, "file receiving engine commands, - for stdout")
	flagSet.StringVar(&cfg.Engine.OutputPath, "engine-output",
		cfg.Engine.OutputPath, "file with engine output, - for stdin")
	flagSet.StringVar(&cfg.Engine.Force, "engine-force",
		cfg.Engine.Force, "force whose research is synchronized")
	flagSet.Float64Var(&cfg.Engine.CommandsPerSecond, "engine-commands-per-second",
		cfg.Engine.CommandsPerSecond, "rate limit of engine commands")
	flagSet.IntVar(&cfg.Engine.Burst, "engine-burst",
		cfg.Engine.Burst, "burst of engine commands")

	/** ======================== Logging Flags ========================== **/
	flagSet.StringVar(&cfg.LOGGING.Encoder, "log-encoder",
		cfg.LOGGING.Encoder, "log as json or console")
	flagSet.StringVar(&cfg.LOGGING.AppLoggerLevel, "log-level",
		cfg.LOGGING.AppLoggerLevel, "level of the app logger")

	return configPath
}
