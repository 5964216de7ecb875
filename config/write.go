package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"
	"github.com/natefinch/atomic"
)

// NewInstanceID returns a random identity for a new instance.
func NewInstanceID() string {
	return uuid.NewString()
}

// Encode renders cfg in the layout read by LoadConfig. Durations are
// written in their string form.
func Encode(cfg Config) ([]byte, error) {
	raw := map[string]any{}
	if err := mapstructure.Decode(cfg, &raw); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	stringifyDurations(raw)
	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return append(data, '\n'), nil
}

// Write atomically replaces the file at path with cfg.
func Write(path string, cfg Config) error {
	data, err := Encode(cfg)
	if err != nil {
		return err
	}
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

func stringifyDurations(m map[string]any) {
	for k, v := range m {
		switch v := v.(type) {
		case time.Duration:
			m[k] = v.String()
		case map[string]any:
			stringifyDurations(v)
		}
	}
}
