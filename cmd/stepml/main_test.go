package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/stepml/config"
	"github.com/YuminosukeSato/stepml/pkg/log"
)

func TestVersionCommand(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version", "--log-level", "error"})

	require.NoError(t, root.Execute())
	assert.Equal(t, "stepml dev\n", out.String())
}

func TestConfigFileAndFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stepml.yaml")
	require.NoError(t, os.WriteFile(path, []byte("workflow:\n  random_state: 9\nmodel:\n  scaler: none\n"), 0o600))

	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"version", "--config", path, "--log-level", "warn", "--log-format", "json"})
	require.NoError(t, root.Execute())

	require.NotNil(t, cfg)
	assert.Equal(t, int64(9), cfg.Workflow.RandomState)
	assert.Equal(t, "none", cfg.Model.Scaler)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestInvalidLogLevel(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"version", "--log-level", "loud"})
	assert.Error(t, root.Execute())
}

func TestTUIRequiresFile(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"tui"})
	assert.Error(t, root.Execute())
}

func TestRedirectLogsWritesToOutputDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	t.Cleanup(func() { _ = log.Setup(log.Options{Level: "info"}) })

	f, err := redirectLogs(dir, config.LoggingConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	log.GetLogger().Info("Transition complete", log.OperationKey, "Encode")
	require.NoError(t, f.Close())

	data, err := os.ReadFile(filepath.Join(dir, logFile))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Transition complete")
	assert.Contains(t, string(data), `"ml.operation":"Encode"`)
}

func TestRedirectLogsRejectsBadFormat(t *testing.T) {
	t.Cleanup(func() { _ = log.Setup(log.Options{Level: "info"}) })

	_, err := redirectLogs(t.TempDir(), config.LoggingConfig{Level: "info", Format: "xml"})
	assert.Error(t, err)
}
