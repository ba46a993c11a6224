package config

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/beacon/internal/event"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 1.0, cfg.Transport.SampleRate)
	assert.Equal(t, 50, cfg.Transport.MaxBufferSize)
	assert.Equal(t, 10*time.Second, cfg.Transport.FlushInterval)
	assert.Equal(t, "production", cfg.Agent.Environment)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("BEACON_AGENT_PROJECT_ID", "proj-123")
	t.Setenv("BEACON_TRANSPORT_SAMPLE_RATE", "0.25")
	t.Setenv("BEACON_TRANSPORT_MAX_BUFFER_SIZE", "100")
	t.Setenv("BEACON_ROUTING_ENDPOINT", "https://ingest.example.com")
	t.Setenv("BEACON_ROUTING_CREDENTIAL", "secret-token")
	t.Setenv("BEACON_ROUTING_ERROR_ENDPOINT", "https://errors.example.com")
	t.Setenv("BEACON_IGNORE_ERRORS", "ResizeObserver,ScriptError")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "proj-123", cfg.Agent.ProjectID)
	assert.Equal(t, 0.25, cfg.Transport.SampleRate)
	assert.Equal(t, 100, cfg.Transport.MaxBufferSize)
	assert.Equal(t, "https://ingest.example.com", cfg.Routing.Endpoint)
	assert.Equal(t, "https://errors.example.com", cfg.Routing.Error.Endpoint)
	assert.Equal(t, []string{"ResizeObserver", "ScriptError"}, cfg.Ignore.Errors)
}

func TestLoadFilePrecedence(t *testing.T) {
	// environment overrides file, file overrides defaults
	path := filepath.Join(t.TempDir(), "beacon.yaml")
	data := []byte(`
agent:
  project_id: from-file
  service: checkout
transport:
  sample_rate: 0.5
  max_buffer_size: 25
routing:
  endpoint: https://file.example.com
  credential: file-token
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	t.Setenv("BEACON_AGENT_PROJECT_ID", "from-env")

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Agent.ProjectID)
	assert.Equal(t, "checkout", cfg.Agent.Service)
	assert.Equal(t, 0.5, cfg.Transport.SampleRate)
	assert.Equal(t, 25, cfg.Transport.MaxBufferSize)
	assert.Equal(t, "https://file.example.com", cfg.Routing.Endpoint)
	// file left flush interval alone, default survives
	assert.Equal(t, 10*time.Second, cfg.Transport.FlushInterval)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative sample rate", func(c *Config) { c.Transport.SampleRate = -0.1 }},
		{"sample rate above one", func(c *Config) { c.Transport.SampleRate = 1.5 }},
		{"zero buffer size", func(c *Config) { c.Transport.MaxBufferSize = 0 }},
		{"zero flush interval", func(c *Config) { c.Transport.FlushInterval = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestRoutingTable(t *testing.T) {
	r := RoutingConfig{
		Endpoint:   "https://x",
		Credential: "legacy-token",
		Error:      DestinationConfig{Endpoint: "https://errors.example.com", Credential: "err-token"},
	}

	table := r.Table()

	endpoint, ok := table.EndpointFor(event.CategoryError)
	require.True(t, ok)
	assert.Equal(t, "https://errors.example.com", endpoint)

	endpoint, ok = table.EndpointFor(event.CategoryConsole)
	require.True(t, ok)
	assert.Equal(t, "https://x/api/v1/browser", endpoint)
}

func TestRoutingMerge(t *testing.T) {
	local := RoutingConfig{
		Endpoint: "https://local.example.com",
		Error:    DestinationConfig{Endpoint: "https://local-errors.example.com"},
	}
	remote := RoutingConfig{
		Endpoint:   "https://remote.example.com",
		Credential: "remote-token",
		Error:      DestinationConfig{Endpoint: "https://remote-errors.example.com", Credential: "remote-err-token"},
		Network:    DestinationConfig{Endpoint: "https://remote-net.example.com"},
	}

	local.Merge(remote)

	// local values win
	assert.Equal(t, "https://local.example.com", local.Endpoint)
	assert.Equal(t, "https://local-errors.example.com", local.Error.Endpoint)
	// gaps are filled from remote
	assert.Equal(t, "remote-token", local.Credential)
	assert.Equal(t, "remote-err-token", local.Error.Credential)
	assert.Equal(t, "https://remote-net.example.com", local.Network.Endpoint)
}

func TestFetchRemote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"endpoint":"https://remote.example.com","credential":"remote-token","error":{"endpoint":"https://remote-errors.example.com"}}`))
	}))
	defer srv.Close()

	remote, err := FetchRemote(t.Context(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, "https://remote.example.com", remote.Endpoint)
	assert.Equal(t, "remote-token", remote.Credential)
	assert.Equal(t, "https://remote-errors.example.com", remote.Error.Endpoint)
}

func TestFetchRemoteNonOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := FetchRemote(t.Context(), srv.URL)
	assert.Error(t, err)
}
