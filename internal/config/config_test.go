package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	c, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "http", c.Source)
	assert.Equal(t, 10, c.PageSize)
	assert.Equal(t, 3*time.Second, c.HealthTimeout())
	assert.Equal(t, 3*time.Second, c.ContextTimeout())
	assert.Equal(t, 10*time.Second, c.ChatTimeout())
	assert.Equal(t, ":8080", c.ListenAddr)
	assert.False(t, c.HideIntro)
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("page_size: 20\nbackend_url: http://files.example/api\n"), 0o644))
	t.Setenv("TITANIC_PAGE_SIZE", "25")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 25, c.PageSize)
	assert.Equal(t, "http://files.example/api", c.BackendURL)
}

func TestSaveRoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "cfg.yaml")

	c := Default()
	require.NoError(t, c.Set("hide_intro", "true"))
	require.NoError(t, c.Set("source", "SNAPSHOT"))
	require.NoError(t, c.Set("snapshot_path", "/tmp/snap.yaml"))
	require.NoError(t, Save(c, path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.True(t, got.HideIntro)
	assert.Equal(t, "snapshot", got.Source)
	assert.Equal(t, "/tmp/snap.yaml", got.SnapshotPath)
}

func TestSetValidates(t *testing.T) {
	c := Default()
	assert.Error(t, c.Set("page_size", "0"))
	assert.Error(t, c.Set("page_size", "ten"))
	assert.Error(t, c.Set("source", "ftp"))
	assert.Error(t, c.Set("log_level", "loud"))
	assert.Error(t, c.Set("hide_intro", "maybe"))
	assert.Error(t, c.Set("nope", "1"))

	require.NoError(t, c.Set("chat_timeout_ms", "2500"))
	assert.Equal(t, 2500*time.Millisecond, c.ChatTimeout())

	for _, k := range Keys {
		_, ok := c.Get(k)
		assert.True(t, ok, k)
	}
}

func TestLoadRejectsBrokenFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("page_size: [\n"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}
