package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tracklink.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	fc, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":4000", fc.Server.Listen)
	assert.Equal(t, "/api", fc.Server.BasePath)
	assert.Equal(t, "file", fc.Snapshot.Type)
	assert.Equal(t, "links.json", fc.Snapshot.Path)
	assert.Empty(t, fc.HistorySinks)
}

func TestLoadFullFile(t *testing.T) {
	path := writeConfig(t, `
history_sinks = ["sqlite://positions.db", "postgres://u:p@localhost/track"]

[server]
listen = ":8080"
base_path = "/track-api"
metrics_listen = ":9090"

[snapshot]
type = "memory"

[relay]
send_buffer = 128

[log]
level = "debug"
color = false
path = "tracklink.log"
`)
	fc, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":8080", fc.Server.Listen)
	assert.Equal(t, "/track-api", fc.Server.BasePath)
	assert.Equal(t, ":9090", fc.Server.MetricsListen)
	assert.Equal(t, "memory", fc.Snapshot.Type)
	assert.Equal(t, 128, fc.Relay.SendBuffer)
	assert.Equal(t, "debug", fc.Log.Level)
	assert.Equal(t, "tracklink.log", fc.Log.Path)
	assert.Equal(t, []string{"sqlite://positions.db", "postgres://u:p@localhost/track"}, fc.HistorySinks)
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `
[server]
listen = ":5000"
`)
	fc, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":5000", fc.Server.Listen)
	assert.Equal(t, "/api", fc.Server.BasePath)
	assert.Equal(t, "file", fc.Snapshot.Type)
}

func TestLoadRejectsBadSnapshotType(t *testing.T) {
	path := writeConfig(t, `
[snapshot]
type = "redis"
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported snapshot type")
}

func TestLoadRejectsNegativeBuffer(t *testing.T) {
	path := writeConfig(t, `
[relay]
send_buffer = -1
`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.Error(t, err)
}
