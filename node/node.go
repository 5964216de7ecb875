// Package node contains the research sync agent executable.
package node

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/spacemeshos/go-researchsync/cmd"
	"github.com/spacemeshos/go-researchsync/config"
	"github.com/spacemeshos/go-researchsync/config/presets"
	"github.com/spacemeshos/go-researchsync/engine"
	"github.com/spacemeshos/go-researchsync/localstate"
	"github.com/spacemeshos/go-researchsync/log"
	"github.com/spacemeshos/go-researchsync/metrics"
	"github.com/spacemeshos/go-researchsync/relay"
	"github.com/spacemeshos/go-researchsync/syncer"
)

// Logger names.
const (
	AppLogger    = "app"
	SyncLogger   = "sync"
	RelayLogger  = "relay"
	EngineLogger = "engine"
	StateLogger  = "state"
)

var errNoInstanceID = errors.New("relay instance id is not set, generate a config with `config init`")

func GetCommand() *cobra.Command {
	conf := config.DefaultConfig()
	var configPath *string
	c := &cobra.Command{
		Use:   "researchsync",
		Short: "synchronize research with the cluster",
		RunE: func(c *cobra.Command, args []string) error {
			if err := configure(c, *configPath, &conf); err != nil {
				return err
			}
			if conf.Relay.InstanceID == "" {
				return errNoInstanceID
			}
			encoder, err := log.NewEncoder(conf.LOGGING.Encoder)
			if err != nil {
				return err
			}
			app := New(
				WithConfig(&conf),
				WithLog(log.New(encoder, zapcore.Lock(os.Stderr))),
			)

			// os.Interrupt for all systems, syscall.SIGTERM is mainly for docker.
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			if err := app.Lock(); err != nil {
				return fmt.Errorf("getting exclusive file lock: %w", err)
			}
			defer app.Unlock()

			// Don't print usage on error from this point forward
			c.SilenceUsage = true

			// This blocks until the context is finished or until an error is produced
			return app.Start(ctx)
		},
	}

	configPath = cmd.AddFlags(c.PersistentFlags(), &conf)

	// versionCmd returns the current version of the agent.
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version info",
		Run: func(c *cobra.Command, args []string) {
			fmt.Fprintln(c.OutOrStdout(), cmd.Version)
		},
	}
	c.AddCommand(versionCmd)
	c.AddCommand(configCommand(&conf, configPath))
	return c
}

func configure(c *cobra.Command, configPath string, conf *config.Config) error {
	// loading the preset and the file overwrites conf, flags are applied
	// again afterwards so that they take precedence
	changed := map[string]string{}
	c.Flags().Visit(func(f *pflag.Flag) {
		changed[f.Name] = f.Value.String()
	})
	preset := conf.Preset // might be set via CLI flag
	if err := loadConfig(conf, preset, configPath); err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	for name, value := range changed {
		if err := c.Flags().Set(name, value); err != nil {
			return fmt.Errorf("applying flag %s: %w", name, err)
		}
	}
	if configPath != "" {
		conf.ConfigFile = configPath
	}
	return nil
}

// loadConfig loads config and preset (if provided) into the provided config.
// It first loads the preset and then overrides it with values from the config file.
func loadConfig(cfg *config.Config, preset, path string) error {
	v := viper.New()
	// read in config from file
	if err := config.LoadConfig(path, v); err != nil {
		return err
	}

	// override default config with preset if provided
	if len(preset) == 0 && v.IsSet("preset") {
		preset = v.GetString("preset")
	}
	if len(preset) > 0 {
		p, err := presets.Get(preset)
		if err != nil {
			return err
		}
		*cfg = p
	}

	hook := mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		mapstructure.TextUnmarshallerHookFunc(),
	)

	opts := []viper.DecoderConfigOption{
		viper.DecodeHook(hook),
		WithIgnoreUntagged(),
		WithErrorUnused(),
	}

	// load config if it was loaded to the viper
	if err := v.Unmarshal(cfg, opts...); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}
	return nil
}

func WithIgnoreUntagged() viper.DecoderConfigOption {
	return func(cfg *mapstructure.DecoderConfig) {
		cfg.IgnoreUntaggedFields = true
	}
}

func WithErrorUnused() viper.DecoderConfigOption {
	return func(cfg *mapstructure.DecoderConfig) {
		cfg.ErrorUnused = true
	}
}

// Option to modify an App instance.
type Option func(app *App)

// WithLog sets the root logger of an App. Module loggers derive from it.
func WithLog(logger *zap.Logger) Option {
	return func(app *App) {
		app.log = logger
	}
}

// WithConfig overwrites default App config.
func WithConfig(conf *config.Config) Option {
	return func(app *App) {
		app.Config = conf
	}
}

func withFs(fs afero.Fs) Option {
	return func(app *App) {
		app.fs = fs
	}
}

// withEngineIO replaces the engine streams named in the config.
func withEngineIO(output io.Reader, commands io.Writer) Option {
	return func(app *App) {
		app.engineOutput = output
		app.engineCommands = commands
	}
}

// New creates an instance of the agent.
func New(opts ...Option) *App {
	defaultConfig := config.DefaultConfig()
	app := &App{
		Config:  &defaultConfig,
		log:     zap.NewNop(),
		fs:      afero.NewOsFs(),
		started: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(app)
	}
	return app
}

// App is the cli app singleton.
type App struct {
	Config   *config.Config
	log      *zap.Logger
	fs       afero.Fs
	fileLock *flock.Flock

	engineOutput   io.Reader
	engineCommands io.Writer

	store  *localstate.Store
	syncer *syncer.Syncer

	closers []io.Closer
	started chan struct{} // closed once the app has finished starting
}

// Started is closed once all services are running.
func (app *App) Started() <-chan struct{} {
	return app.started
}

// Lock locks the app for exclusive use. It returns an error if the app is already locked.
func (app *App) Lock() error {
	lockDir := filepath.Dir(app.Config.FileLock)
	if err := os.MkdirAll(lockDir, 0o700); err != nil {
		return fmt.Errorf("creating dir %s for lock %s: %w", lockDir, app.Config.FileLock, err)
	}
	fl := flock.New(app.Config.FileLock)
	locked, err := fl.TryLock()
	if err != nil {
		return fmt.Errorf("flock %s: %w", app.Config.FileLock, err)
	} else if !locked {
		return fmt.Errorf("only one agent should be running per data folder (locking file %s)", fl.Path())
	}
	app.fileLock = fl
	return nil
}

// Unlock unlocks the app. It is a no-op if the app is not locked.
func (app *App) Unlock() {
	if app.fileLock == nil {
		return
	}
	if err := app.fileLock.Unlock(); err != nil {
		app.log.Error("failed to unlock file",
			zap.String("path", app.fileLock.Path()),
			zap.Error(err),
		)
	}
}

func (app *App) addLogger(name, level string) (*zap.Logger, error) {
	return log.Module(app.log, name, level)
}

// researchLogger writes to the research log of the instance in addition to
// the root logger.
func (app *App) researchLogger(name, level string) (*zap.Logger, error) {
	if !app.Config.ResearchLog {
		return app.addLogger(name, level)
	}
	f, err := log.OpenResearchLog(app.fs, app.Config.DataDir, app.Config.Relay.InstanceName)
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, f)
	encoder, err := log.NewEncoder(log.ConsoleEncoder)
	if err != nil {
		return nil, err
	}
	return log.Module(log.Tee(app.log, encoder, zapcore.AddSync(f)), name, level)
}

func (app *App) openEngine() (io.Reader, io.Writer, error) {
	output, commands := app.engineOutput, app.engineCommands
	if output == nil {
		r, err := engine.OpenOutput(app.fs, app.Config.Engine)
		if err != nil {
			return nil, nil, err
		}
		app.closers = append(app.closers, r)
		output = r
	}
	if commands == nil {
		w, err := engine.OpenCommands(app.fs, app.Config.Engine)
		if err != nil {
			return nil, nil, err
		}
		app.closers = append(app.closers, w)
		commands = w
	}
	return output, commands, nil
}

// Start wires the components and runs them until ctx is done, the engine
// output is closed, or a service fails.
func (app *App) Start(ctx context.Context) error {
	defer app.cleanup()
	lg := app.Config.LOGGING
	appLog, err := app.addLogger(AppLogger, lg.AppLoggerLevel)
	if err != nil {
		return err
	}
	syncLog, err := app.researchLogger(SyncLogger, lg.SyncLoggerLevel)
	if err != nil {
		return err
	}
	relayLog, err := app.addLogger(RelayLogger, lg.RelayLoggerLevel)
	if err != nil {
		return err
	}
	engineLog, err := app.addLogger(EngineLogger, lg.EngineLoggerLevel)
	if err != nil {
		return err
	}
	stateLog, err := app.addLogger(StateLogger, lg.StateLoggerLevel)
	if err != nil {
		return err
	}

	output, commands, err := app.openEngine()
	if err != nil {
		return err
	}
	stream, err := engine.NewStream(commands, app.Config.Engine, engine.WithLogger(engineLog))
	if err != nil {
		return fmt.Errorf("engine stream: %w", err)
	}
	client, err := relay.NewClient(app.Config.Relay, relay.WithLogger(relayLog))
	if err != nil {
		return fmt.Errorf("relay client: %w", err)
	}
	app.store = localstate.New(localstate.WithLogger(stateLog))
	app.syncer = syncer.New(
		app.Config.Relay.InstanceID,
		app.store,
		client,
		stream,
		syncer.WithLogger(syncLog),
		syncer.WithConfig(app.Config.Sync),
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		if err := stream.Listen(ctx, output, app.store.ApplyScanResult); err != nil {
			return err
		}
		if ctx.Err() == nil {
			appLog.Info("engine output closed, stopping")
			cancel()
		}
		return nil
	})
	eg.Go(func() error {
		return app.syncer.Start(ctx)
	})
	if app.Config.CollectMetrics {
		srv, err := metrics.NewServer(app.Config.MetricsListener, appLog.Named("metrics"))
		if err != nil {
			cancel()
			eg.Wait()
			return err
		}
		eg.Go(func() error {
			return srv.Serve(ctx)
		})
	}
	if app.Config.MetricsPushURL != "" {
		eg.Go(func() error {
			metrics.PushMetrics(ctx, appLog, app.Config.MetricsPushURL,
				app.Config.MetricsPushPeriod, app.Config.Relay.InstanceID)
			return nil
		})
	}
	appLog.Info("agent started",
		zap.String("instance", app.Config.Relay.InstanceName),
		zap.String("id", app.Config.Relay.InstanceID),
		zap.String("relay", app.Config.Relay.URL),
		zap.String("version", cmd.Version),
	)
	close(app.started)
	return eg.Wait()
}

func (app *App) cleanup() {
	for _, c := range app.closers {
		// engine output may already be closed by a cancelled listener
		if err := c.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			app.log.Warn("failed to close", zap.Error(err))
		}
	}
	app.closers = nil
	// syncing a console returns an error on some platforms
	_ = app.log.Sync()
}
