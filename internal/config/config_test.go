package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv(EnvDB, "")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 1e-3, cfg.SolverOptions().RTol)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	t.Setenv(EnvDB, "")
	path := writeConfig(t, `
db_path: /tmp/runs.db
log_level: debug
log_format: json
solver:
  rtol: 1.0e-6
  max_step: 0.5
server:
  addr: 127.0.0.1:9000
workers: 8
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/runs.db", cfg.DBPath)
	assert.Equal(t, slog.LevelDebug, cfg.Level())
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, 8, cfg.Workers)

	opts := cfg.SolverOptions()
	assert.Equal(t, 1e-6, opts.RTol)
	assert.Equal(t, 1e-6, opts.ATol, "unset keys keep their default")
	assert.Equal(t, 0.5, opts.MaxStep)
}

func TestLoad_EnvOverridesDB(t *testing.T) {
	t.Setenv(EnvDB, "/srv/seiqhcdro.db")
	cfg, err := Load(writeConfig(t, "db_path: /tmp/ignored.db\n"))
	require.NoError(t, err)
	assert.Equal(t, "/srv/seiqhcdro.db", cfg.DBPath)
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv(EnvDB, "")
	for name, body := range map[string]string{
		"bad yaml":   "workers: [\n",
		"bad level":  "log_level: loud\n",
		"bad format": "log_format: xml\n",
		"bad rtol":   "solver:\n  rtol: 2\n",
		"no workers": "workers: 0\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestPath(t *testing.T) {
	t.Setenv(EnvConfig, "/etc/seiqhcdro.yaml")
	assert.Equal(t, "/etc/seiqhcdro.yaml", Path())

	t.Setenv(EnvConfig, "")
	assert.True(t, strings.HasSuffix(Path(), filepath.Join(".seiqhcdro", "config.yaml")))
}

func TestLogger(t *testing.T) {
	cfg := Default()
	cfg.LogFormat = "json"
	cfg.LogLevel = "warn"

	var buf bytes.Buffer
	log := cfg.Logger(&buf)
	log.Info("hidden")
	log.Warn("shown", "k", 1)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
}
