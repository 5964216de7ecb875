package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func testEncoder() zapcore.Encoder {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.TimeKey = ""
	return zapcore.NewConsoleEncoder(cfg)
}

func TestModuleLevel(t *testing.T) {
	var buf bytes.Buffer
	root := New(testEncoder(), zapcore.AddSync(&buf))

	logger, err := Module(root, "sync", "info")
	require.NoError(t, err)
	logger.Debug("hidden")
	logger.Info("shown", zap.String("tech", "optics"))
	logger.With(zap.Int("cycle", 1)).Debug("hidden with fields")
	logger.With(zap.Int("cycle", 1)).Warn("shown with fields")

	out := buf.String()
	require.NotContains(t, out, "hidden")
	require.Contains(t, out, "INFO\tsync\tshown\t{\"tech\": \"optics\"}\n")
	require.Contains(t, out, "WARN\tsync\tshown with fields\t{\"cycle\": 1}\n")

	_, err = Module(root, "sync", "loud")
	require.Error(t, err)
}

func TestJSONEncoder(t *testing.T) {
	enc, err := NewEncoder(JSONEncoder)
	require.NoError(t, err)
	var buf bytes.Buffer
	New(enc, zapcore.AddSync(&buf)).Named("relay").Info("published", zap.Int("techs", 3))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "relay", entry["logger"])
	require.Equal(t, "published", entry["msg"])
	require.EqualValues(t, 3, entry["techs"])

	_, err = NewEncoder("xml")
	require.Error(t, err)
}

func TestResearchLog(t *testing.T) {
	fs := afero.NewMemMapFs()
	f, err := OpenResearchLog(fs, "/data", "node-1")
	require.NoError(t, err)

	var console bytes.Buffer
	root := New(testEncoder(), zapcore.AddSync(&console))
	logger, err := Module(Tee(root, testEncoder(), zapcore.AddSync(f)), "sync", "info")
	require.NoError(t, err)
	logger.Info("unlocking research optics")
	logger.Debug("dropped")
	require.NoError(t, f.Close())

	data, err := afero.ReadFile(fs, "/data/logs/node-1-research.log")
	require.NoError(t, err)
	require.Equal(t, 1, strings.Count(string(data), "\n"))
	require.Contains(t, string(data), "unlocking research optics")
	require.Contains(t, console.String(), "unlocking research optics")

	// reopening appends
	f, err = OpenResearchLog(fs, "/data", "node-1")
	require.NoError(t, err)
	_, err = f.WriteString("second\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())
	data, err = afero.ReadFile(fs, ResearchLogPath("/data", "node-1"))
	require.NoError(t, err)
	require.Equal(t, 2, strings.Count(string(data), "\n"))
}
