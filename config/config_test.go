package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Run("missing default file", func(t *testing.T) {
		dir := t.TempDir()
		wd, err := os.Getwd()
		require.NoError(t, err)
		require.NoError(t, os.Chdir(dir))
		t.Cleanup(func() { os.Chdir(wd) })

		require.NoError(t, LoadConfig("", viper.New()))
	})
	t.Run("missing explicit file", func(t *testing.T) {
		err := LoadConfig(filepath.Join(t.TempDir(), "absent.json"), viper.New())
		require.ErrorContains(t, err, "failed to read config file")
	})
	t.Run("reads values", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"sync": {"interval": "7s"}}`), 0o600))
		vip := viper.New()
		require.NoError(t, LoadConfig(path, vip))
		require.Equal(t, "7s", vip.GetString("sync.interval"))
	})
}

func TestWriteRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Relay.InstanceID = NewInstanceID()
	cfg.Sync.Interval = 3 * time.Second
	_, err := uuid.Parse(cfg.Relay.InstanceID)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, Write(path, cfg))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), `"interval": "3s"`)

	vip := viper.New()
	require.NoError(t, LoadConfig(path, vip))
	got := Config{}
	hook := mapstructure.StringToTimeDurationHookFunc()
	require.NoError(t, vip.Unmarshal(&got, viper.DecodeHook(hook)))
	require.Equal(t, cfg, got)
}
