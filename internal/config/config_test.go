package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 11, cfg.Query.K)
	assert.Equal(t, 5, cfg.Query.TopN)
	assert.Equal(t, 64, cfg.Feature.Dimension)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracksim.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
index:
  dir: ~/tracksim/models
  compression: zstd
query:
  k: 20
  top_n: 3
log:
  level: debug
`), 0o644))
	cfg, err := Load(path)
	require.NoError(t, err)
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "tracksim", "models"), cfg.Index.Dir)
	assert.Equal(t, "zstd", cfg.Index.Compression)
	assert.Equal(t, 20, cfg.Query.K)
	assert.Equal(t, 3, cfg.Query.TopN)
	assert.Equal(t, 22050, cfg.Audio.SampleRate, "unset keys keep defaults")
	assert.Equal(t, BackendDir, cfg.Index.Backend)
	require.NoError(t, cfg.Validate())
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("query: [1, 2"), 0o644))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestValidate_CollectsErrors(t *testing.T) {
	cfg := Default()
	cfg.Query.K = 2
	cfg.Query.TopN = 3
	cfg.Index.Backend = "s3"
	cfg.Log.Format = "xml"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "k >= top_n")
	assert.Contains(t, err.Error(), "index.backend")
	assert.Contains(t, err.Error(), "log.format")

	cfg = Default()
	cfg.Index.Backend = BackendSQLite
	assert.Error(t, cfg.Validate())
	cfg.Index.Database = "tracksim.db"
	assert.NoError(t, cfg.Validate())

	cfg = Default()
	cfg.Feature.Dimension = 50
	assert.Error(t, cfg.Validate())
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracksim.yaml")
	cfg := Default()
	cfg.Build.Workers = 4
	require.NoError(t, Save(path, cfg))
	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestExpandPath(t *testing.T) {
	p, err := ExpandPath("/abs/path")
	require.NoError(t, err)
	assert.Equal(t, "/abs/path", p)
	p, err = ExpandPath("~user/x")
	require.NoError(t, err)
	assert.Equal(t, "~user/x", p)
}
