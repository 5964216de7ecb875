package config

import (
	"go.uber.org/zap/zapcore"

	"github.com/spacemeshos/go-researchsync/log"
)

// LogEncoder defines a log encoder kind.
type LogEncoder = string

const (
	defaultLoggingLevel = zapcore.InfoLevel
	// ConsoleLogEncoder represents logging with plain text.
	ConsoleLogEncoder LogEncoder = log.ConsoleEncoder
	// JSONLogEncoder represents logging with JSON.
	JSONLogEncoder LogEncoder = log.JSONEncoder
)

// LoggerConfig holds the logging level for each module.
type LoggerConfig struct {
	Encoder           LogEncoder `mapstructure:"log-encoder"`
	AppLoggerLevel    string     `mapstructure:"app"`
	SyncLoggerLevel   string     `mapstructure:"sync"`
	RelayLoggerLevel  string     `mapstructure:"relay"`
	EngineLoggerLevel string     `mapstructure:"engine"`
	StateLoggerLevel  string     `mapstructure:"state"`
}

func DefaultLoggingConfig() LoggerConfig {
	return LoggerConfig{
		Encoder:           ConsoleLogEncoder,
		AppLoggerLevel:    defaultLoggingLevel.String(),
		SyncLoggerLevel:   defaultLoggingLevel.String(),
		RelayLoggerLevel:  zapcore.WarnLevel.String(),
		EngineLoggerLevel: defaultLoggingLevel.String(),
		StateLoggerLevel:  defaultLoggingLevel.String(),
	}
}
