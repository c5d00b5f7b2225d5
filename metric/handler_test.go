package metric

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServerDefaults(t *testing.T) {
	registry := NewMetricsRegistry()

	server := NewServer(0, "", registry)
	assert.Equal(t, "http://localhost:9090/metrics", server.Address())

	custom := NewServer(8123, "/scrape", registry)
	assert.Equal(t, "http://localhost:8123/scrape", custom.Address())
}

func TestServerScrapeEndpoint(t *testing.T) {
	registry := NewMetricsRegistry()
	registry.Metrics.RecordEngineStatus("arm", 2)
	registry.Metrics.RecordTick("arm", 500*time.Microsecond)

	server := NewServer(0, "", registry)
	ts := httptest.NewServer(server.handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), "dynamicgraph_engine_status")
	assert.Contains(t, string(body), "dynamicgraph_engine_ticks_total")
	assert.Contains(t, string(body), "go_goroutines")
}

func TestServerHealthEndpoint(t *testing.T) {
	server := NewServer(0, "", NewMetricsRegistry())
	ts := httptest.NewServer(server.handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "OK", string(body))
}

func TestServerIndexLinksMetricsPath(t *testing.T) {
	server := NewServer(0, "/scrape", NewMetricsRegistry())
	ts := httptest.NewServer(server.handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `href="/scrape"`)
}

func TestServerStartRejectsDoubleStart(t *testing.T) {
	server := NewServer(0, "", NewMetricsRegistry())
	server.server = &http.Server{}

	err := server.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already running")
}

func TestServerStartRequiresRegistry(t *testing.T) {
	server := NewServer(0, "", nil)

	err := server.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "registry not provided")
}

func TestServerStopWithoutStart(t *testing.T) {
	server := NewServer(0, "", NewMetricsRegistry())
	assert.NoError(t, server.Stop())
}
