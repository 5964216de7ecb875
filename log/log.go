// Package log builds the process loggers: a root logger writing to the
// console, module loggers with their own levels, and the per-instance research
// log file.
package log

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Encoder kinds.
const (
	ConsoleEncoder = "console"
	JSONEncoder    = "json"
)

// NewEncoder returns the encoder for kind.
func NewEncoder(kind string) (zapcore.Encoder, error) {
	switch kind {
	case ConsoleEncoder, "":
		return zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()), nil
	case JSONEncoder:
		return zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), nil
	default:
		return nil, fmt.Errorf("unknown log encoder %q", kind)
	}
}

// New creates the root logger writing to sinks. It logs everything; levels
// are applied by module loggers.
func New(encoder zapcore.Encoder, sinks ...zapcore.WriteSyncer) *zap.Logger {
	if len(sinks) == 0 {
		sinks = []zapcore.WriteSyncer{zapcore.Lock(os.Stdout)}
	}
	core := zapcore.NewCore(encoder, zapcore.NewMultiWriteSyncer(sinks...), zapcore.DebugLevel)
	return zap.New(core)
}

// Module returns a named logger that drops entries below level.
func Module(logger *zap.Logger, name, level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("level of %s logger: %w", name, err)
	}
	return logger.Named(name).WithOptions(addDynamicLevel(&lvl)), nil
}

// Tee returns a logger that also writes every entry to ws.
func Tee(logger *zap.Logger, encoder zapcore.Encoder, ws zapcore.WriteSyncer) *zap.Logger {
	return logger.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, zapcore.NewCore(encoder, ws, zapcore.DebugLevel))
	}))
}

// ResearchLogPath is the research log file of instance.
func ResearchLogPath(dataDir, instance string) string {
	return filepath.Join(dataDir, "logs", instance+"-research.log")
}

// OpenResearchLog opens the research log file of instance for appending.
func OpenResearchLog(fs afero.Fs, dataDir, instance string) (afero.File, error) {
	path := ResearchLogPath(dataDir, instance)
	if err := fs.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := fs.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open research log: %w", err)
	}
	return f, nil
}

func addDynamicLevel(level *zap.AtomicLevel) zap.Option {
	return zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return &coreWithLevel{
			Core: core,
			lvl:  level,
		}
	})
}

type coreWithLevel struct {
	zapcore.Core
	lvl *zap.AtomicLevel
}

func (c *coreWithLevel) Enabled(level zapcore.Level) bool {
	return c.lvl.Enabled(level)
}

func (c *coreWithLevel) With(fields []zapcore.Field) zapcore.Core {
	return &coreWithLevel{Core: c.Core.With(fields), lvl: c.lvl}
}

func (c *coreWithLevel) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.lvl.Enabled(e.Level) {
		return ce
	}
	return c.Core.Check(e, ce)
}
