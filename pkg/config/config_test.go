package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kv.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	require.Equal(t, BackendMemory, cfg.Backend)
	require.Equal(t, "info", cfg.LogLevel)
	require.Equal(t, 5*time.Second, cfg.ApplyTimeout)

	// Port and service name come from the command line.
	require.Error(t, cfg.Validate())
	cfg.Port = 32000
	cfg.ServiceName = "Server"
	require.NoError(t, cfg.Validate())
	require.Equal(t, ":32000", cfg.ListenAddr())
}

func TestLoadConfigYAML(t *testing.T) {
	path := writeConfig(t, `
host: 127.0.0.1
port: 32000
service_name: Server
backend: raft
node_id: n1
apply_timeout: 250ms
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	require.Equal(t, "127.0.0.1:32000", cfg.ListenAddr())
	require.Equal(t, BackendRaft, cfg.Backend)
	require.Equal(t, "n1", cfg.NodeID)
	require.Equal(t, 250*time.Millisecond, cfg.ApplyTimeout)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	path := writeConfig(t, "port: 1\nservice_name: FromFile\n")
	t.Setenv("KV_PORT", "4242")
	t.Setenv("KV_SERVICE_NAME", "FromEnv")
	t.Setenv("KV_APPLY_TIMEOUT", "2s")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, 4242, cfg.Port)
	require.Equal(t, "FromEnv", cfg.ServiceName)
	require.Equal(t, 2*time.Second, cfg.ApplyTimeout)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorContains(t, err, "failed to read config file")
	require.True(t, errors.Is(err, os.ErrNotExist), "%v", err)

	_, err = LoadConfig(writeConfig(t, "port: [oops"))
	require.ErrorContains(t, err, "failed to parse config file")

	t.Setenv("KV_PORT", "eighty")
	_, err = LoadConfig("")
	require.ErrorContains(t, err, "invalid KV_PORT")
}

func TestValidate(t *testing.T) {
	base := Config{Port: 1, ServiceName: "s", Backend: BackendMemory, ApplyTimeout: time.Second}
	require.NoError(t, base.Validate())

	bad := base
	bad.Port = 70000
	require.Error(t, bad.Validate())

	bad = base
	bad.Backend = "bolt"
	require.ErrorContains(t, bad.Validate(), "unknown backend")

	bad = base
	bad.ApplyTimeout = 0
	require.Error(t, bad.Validate())
}
