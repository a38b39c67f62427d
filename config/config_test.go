package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	cfg, err := Load("testdata/marla.yaml")
	require.NoError(t, err)

	assert.Equal(t, "/usr/lib/R/bin/R", cfg.Engine.Path)
	assert.Equal(t, []string{"--slave", "--no-readline", "--vanilla"}, cfg.Engine.Args)
	assert.Equal(t, 2*time.Second, cfg.Engine.ShutdownTimeout)
	assert.Equal(t, 640, cfg.Engine.PlotWidth, "unset keys keep their defaults")
	assert.Equal(t, filepath.Join("testdata", "ops", "primary.xml"), cfg.Operations.Primary)
	assert.Equal(t, []string{"/etc/marla/extra.xml"}, cfg.Operations.User)
	assert.True(t, cfg.Operations.Watch)
	assert.Equal(t, "0.0.0.0:9000", cfg.Server.Addr)
	assert.Equal(t, 10*time.Second, cfg.Server.StopTimeout)
	assert.True(t, cfg.Telemetry.TraceStdout)

	opts, err := cfg.EngineOptions(&bytes.Buffer{}, cfg.Logger(&bytes.Buffer{}))
	require.NoError(t, err)
	assert.Len(t, opts, 7)
}

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "marla.yaml")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.FileExists(t, path)

	want := Default()
	want.Operations.Primary = filepath.Join(filepath.Dir(path), "ops.xml")
	assert.Equal(t, want, cfg)

	again, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Default().Validate())

	for name, mutate := range map[string]func(*Config){
		"no engine path": func(c *Config) { c.Engine.Path = "" },
		"zero timeout":   func(c *Config) { c.Engine.ShutdownTimeout = 0 },
		"negative width": func(c *Config) { c.Engine.PlotWidth = -1 },
		"bad debug":      func(c *Config) { c.Engine.Debug = "loud" },
		"bad repos":      func(c *Config) { c.Engine.Repos = "not a url" },
		"no primary":     func(c *Config) { c.Operations.Primary = "" },
		"bad addr":       func(c *Config) { c.Server.Addr = "nowhere" },
		"bad level":      func(c *Config) { c.Logging.Level = "chatty" },
		"bad format":     func(c *Config) { c.Logging.Format = "xml" },
	} {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "marla.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: chatty\n"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("engine: [unclosed\n"), 0o644))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := Default()
	cfg.Logging.Format = "json"
	cfg.Logging.Level = "warn"
	log := cfg.Logger(&buf)
	log.Info("hidden")
	log.Warn("shown", "k", 1)
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
}
