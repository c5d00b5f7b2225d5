package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// Test loading config from a JSON file
func TestLoader_LoadJSON(t *testing.T) {
	path := writeConfigFile(t, "config.json", `{
		"graph": {
			"name": "arm",
			"entities": [
				{"name": "clock", "class": "Clock"},
				{"name": "filter", "class": "LowPassFilter"}
			],
			"plugs": [{"from": "clock.time", "to": "filter.tick"}],
			"terminals": ["filter.out"]
		},
		"engine": {"period": "5ms", "max_ticks": 1000},
		"nats": {
			"urls": ["nats://a:4222", "nats://b:4222"],
			"max_reconnects": 10,
			"reconnect_wait": "5s"
		}
	}`)

	loader := NewLoader()
	cfg, err := loader.LoadFile(path)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "arm", cfg.Graph.Name)
	assert.Len(t, cfg.Graph.Entities, 2)
	assert.Equal(t, "Clock", cfg.Graph.Entities[0].Class)
	assert.Equal(t, []string{"filter.out"}, cfg.Graph.Terminals)
	assert.Equal(t, 5*time.Millisecond, cfg.Engine.Period)
	assert.Equal(t, int64(1000), cfg.Engine.MaxTicks)
	assert.Len(t, cfg.NATS.URLs, 2)
	assert.Equal(t, 10, cfg.NATS.MaxReconnects)
	assert.Equal(t, 5*time.Second, cfg.NATS.ReconnectWait)
}

// Test loading config from a YAML file
func TestLoader_LoadYAML(t *testing.T) {
	path := writeConfigFile(t, "config.yaml", `
graph:
  name: arm
  entities:
    - name: clock
      class: Clock
engine:
  period: 2ms
logger:
  verbosity: debug
  stream_print_period: 0.25
`)

	loader := NewLoader()
	cfg, err := loader.LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "arm", cfg.Graph.Name)
	assert.Equal(t, 2*time.Millisecond, cfg.Engine.Period)
	assert.Equal(t, "debug", cfg.Logger.Verbosity)
	assert.InDelta(t, 0.25, cfg.Logger.StreamPrintPeriod, 1e-12)
}

// Test that defaults fill fields the file omits
func TestLoader_Defaults(t *testing.T) {
	path := writeConfigFile(t, "config.json", `{
		"graph": {"name": "minimal"}
	}`)

	loader := NewLoader()
	cfg, err := loader.LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "minimal", cfg.Graph.Name)                        // from file
	assert.Equal(t, 10*time.Millisecond, cfg.Engine.Period)           // default
	assert.Equal(t, "info", cfg.Logger.Verbosity)                     // default
	assert.Equal(t, []string{"nats://localhost:4222"}, cfg.NATS.URLs) // default
	assert.Equal(t, -1, cfg.NATS.MaxReconnects)                       // default infinite reconnects
	assert.True(t, cfg.Metrics.Enabled)                               // default
	assert.Equal(t, "dg", cfg.Remote.SubjectPrefix)                   // default
}

// Test layered loading: later layers override earlier ones
func TestLoader_Layers(t *testing.T) {
	base := writeConfigFile(t, "base.yaml", `
graph:
  name: base-graph
  entities:
    - name: clock
      class: Clock
engine:
  period: 10ms
logger:
  verbosity: info
`)
	override := writeConfigFile(t, "robot.yaml", `
graph:
  name: robot
engine:
  period: 1ms
`)

	loader := NewLoader()
	loader.AddLayer(base)
	loader.AddLayer(override)

	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, "robot", cfg.Graph.Name)               // from override
	assert.Equal(t, time.Millisecond, cfg.Engine.Period)   // from override
	assert.Equal(t, "info", cfg.Logger.Verbosity)          // from base
	require.Len(t, cfg.Graph.Entities, 1)                  // from base, untouched
	assert.Equal(t, "clock", cfg.Graph.Entities[0].Name)
}

// Test environment variable overrides
func TestLoader_EnvOverrides(t *testing.T) {
	t.Setenv("DG_GRAPH_NAME", "env-graph")
	t.Setenv("DG_NATS_URLS", "nats://x:4222,nats://y:4222")
	t.Setenv("DG_NATS_USERNAME", "robot")
	t.Setenv("DG_LOG_VERBOSITY", "warning")
	t.Setenv("DG_METRICS_PORT", "9191")

	path := writeConfigFile(t, "config.json", `{
		"graph": {"name": "file-graph"}
	}`)

	loader := NewLoader()
	cfg, err := loader.LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "env-graph", cfg.Graph.Name)
	assert.Equal(t, []string{"nats://x:4222", "nats://y:4222"}, cfg.NATS.URLs)
	assert.Equal(t, "robot", cfg.NATS.Username)
	assert.Equal(t, "warning", cfg.Logger.Verbosity)
	assert.Equal(t, 9191, cfg.Metrics.Port)
}

// Test schema validation failures during load
func TestLoader_SchemaValidation(t *testing.T) {
	tests := []struct {
		name      string
		config    string
		wantError string
	}{
		{
			name:      "unknown top-level section",
			config:    `{"graph": {"name": "g"}, "logging": {}}`,
			wantError: "logging",
		},
		{
			name:      "entity missing class",
			config:    `{"graph": {"entities": [{"name": "clock"}]}}`,
			wantError: "class",
		},
		{
			name:      "bad verbosity enum",
			config:    `{"logger": {"verbosity": "loud"}}`,
			wantError: "verbosity",
		},
		{
			name:      "plug without dot",
			config:    `{"graph": {"plugs": [{"from": "clock", "to": "filter.tick"}]}}`,
			wantError: "from",
		},
		{
			name:      "metrics port out of range",
			config:    `{"metrics": {"port": 99999}}`,
			wantError: "port",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfigFile(t, "config.json", tt.config)

			loader := NewLoader()
			_, err := loader.LoadFile(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantError)
		})
	}
}

// Test semantic validation of the merged result
func TestLoader_SemanticValidation(t *testing.T) {
	path := writeConfigFile(t, "config.json", `{
		"graph": {
			"name": "g",
			"entities": [
				{"name": "a", "class": "Clock"},
				{"name": "a", "class": "Tracer"}
			]
		}
	}`)

	loader := NewLoader()
	_, err := loader.LoadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate entity name")
}

// Test that validation can be disabled
func TestLoader_ValidationDisabled(t *testing.T) {
	path := writeConfigFile(t, "config.json", `{
		"graph": {"name": ""},
		"logging": {}
	}`)

	loader := NewLoader()
	loader.EnableValidation(false)

	cfg, err := loader.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "", cfg.Graph.Name)
}

// Test rejected files
func TestLoader_FileErrors(t *testing.T) {
	loader := NewLoader()

	_, err := loader.LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	_, err = loader.LoadFile(writeConfigFile(t, "config.toml", "graph = 1"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), ".json, .yaml or .yml")

	_, err = loader.LoadFile(writeConfigFile(t, "config.json", `{"graph": {`))
	assert.Error(t, err)
}

// Test saving configuration back to a file
func TestConfig_Save(t *testing.T) {
	cfg := Defaults()
	cfg.Graph.Name = "save-test"
	cfg.Graph.Entities = []EntityConfig{{Name: "clock", Class: "Clock"}}
	cfg.Engine.Period = 3 * time.Millisecond

	saveFile := filepath.Join(t.TempDir(), "saved.json")
	require.NoError(t, cfg.SaveToFile(saveFile))

	loader := NewLoader()
	loaded, err := loader.LoadFile(saveFile)
	require.NoError(t, err)

	assert.Equal(t, cfg.Graph.Name, loaded.Graph.Name)
	assert.Equal(t, cfg.Graph.Entities, loaded.Graph.Entities)
	assert.Equal(t, cfg.Engine.Period, loaded.Engine.Period)
	assert.Equal(t, cfg.NATS.URLs, loaded.NATS.URLs)
}

// Test loading the example config shipped with the package
func TestLoader_ExampleConfig(t *testing.T) {
	loader := NewLoader()
	cfg, err := loader.LoadFile("example_config.yaml")
	require.NoError(t, err)

	assert.Equal(t, "arm-demo", cfg.Graph.Name)
	require.Len(t, cfg.Graph.Entities, 2)
	assert.Equal(t, "Clock", cfg.Graph.Entities[0].Class)
	assert.Equal(t, "Tracer", cfg.Graph.Entities[1].Class)
	require.Len(t, cfg.Graph.Plugs, 1)
	assert.Equal(t, "clock.time", cfg.Graph.Plugs[0].From)
	assert.Equal(t, 5*time.Millisecond, cfg.Engine.Period)
	assert.Equal(t, "dg.arm", cfg.Remote.SubjectPrefix)
	require.NoError(t, cfg.Validate())
}
