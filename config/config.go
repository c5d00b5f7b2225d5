package config

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/nim65s/dynamic-graph/errors"
)

// Config is the complete daemon configuration: the graph to build plus
// the engine, logger, NATS, metrics and remote sections that drive it.
type Config struct {
	Version string        `json:"version"` // Semantic version of the config document
	Graph   GraphConfig   `json:"graph"`
	Engine  EngineConfig  `json:"engine"`
	Logger  LoggerConfig  `json:"logger"`
	NATS    NATSConfig    `json:"nats"`
	Metrics MetricsConfig `json:"metrics"`
	Remote  RemoteConfig  `json:"remote"`
}

// GraphConfig declares the entity graph: which instances to create,
// how to wire them, which commands to run after wiring, and which
// signals the engine recomputes every tick.
type GraphConfig struct {
	Name      string          `json:"name"`
	Entities  []EntityConfig  `json:"entities"`
	Plugs     []PlugConfig    `json:"plugs,omitempty"`
	Commands  []CommandConfig `json:"commands,omitempty"`
	Terminals []string        `json:"terminals,omitempty"`
}

// EntityConfig names one entity instance and the registered class that
// builds it.
type EntityConfig struct {
	Name  string `json:"name"`
	Class string `json:"class"`
	Doc   string `json:"doc,omitempty"`
}

// PlugConfig wires one output into one input. Both ends use the
// "entity.signal" path form.
type PlugConfig struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// CommandConfig runs one entity command after the graph is wired,
// typically to set initial parameter values.
type CommandConfig struct {
	Entity string   `json:"entity"`
	Name   string   `json:"name"`
	Args   []string `json:"args,omitempty"`
}

// EngineConfig drives the evaluation loop.
type EngineConfig struct {
	Period      time.Duration `json:"period,omitempty"`
	MaxTicks    int64         `json:"max_ticks,omitempty"` // 0 = run until stopped
	StopOnError bool          `json:"stop_on_error,omitempty"`
}

// LoggerConfig sets the graph-wide defaults each entity logger starts
// from.
type LoggerConfig struct {
	Verbosity         string  `json:"verbosity,omitempty"`
	TimeSample        float64 `json:"time_sample,omitempty"`
	StreamPrintPeriod float64 `json:"stream_print_period,omitempty"`
}

// NATSConfig defines the NATS connection settings shared by the remote
// API and the NATS log sink.
type NATSConfig struct {
	URLs          []string      `json:"urls,omitempty"`
	Name          string        `json:"name,omitempty"`
	MaxReconnects int           `json:"max_reconnects,omitempty"`
	ReconnectWait time.Duration `json:"reconnect_wait,omitempty"`
	Username      string        `json:"username,omitempty"`
	Password      string        `json:"password,omitempty"`
	Token         string        `json:"token,omitempty"`
}

// MetricsConfig controls the Prometheus scrape endpoint.
type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Port    int    `json:"port,omitempty"`
	Path    string `json:"path,omitempty"`
}

// RemoteConfig controls the NATS request-reply introspection API.
type RemoteConfig struct {
	Enabled       bool   `json:"enabled"`
	SubjectPrefix string `json:"subject_prefix,omitempty"`
}

// SafeConfig provides thread-safe access to configuration.
type SafeConfig struct {
	mu     sync.RWMutex
	config *Config
}

// NewSafeConfig creates a new thread-safe config wrapper.
func NewSafeConfig(cfg *Config) *SafeConfig {
	if cfg == nil {
		cfg = &Config{}
	}
	return &SafeConfig{
		config: cfg,
	}
}

// Get returns a deep copy of the current configuration.
func (sc *SafeConfig) Get() *Config {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.config.Clone()
}

// Update atomically replaces the configuration after validation.
func (sc *SafeConfig) Update(cfg *Config) error {
	if cfg == nil {
		return errors.WrapInvalid(errors.ErrMissingConfig, "SafeConfig", "Update",
			"config cannot be nil")
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.config = cfg
	return nil
}

// Clone creates a deep copy of the configuration.
func (c *Config) Clone() *Config {
	if c == nil {
		return &Config{}
	}

	// JSON round trip for a deep copy
	data, err := json.Marshal(c)
	if err != nil {
		copied := *c
		return &copied
	}

	var clone Config
	if err := json.Unmarshal(data, &clone); err != nil {
		copied := *c
		return &copied
	}

	return &clone
}

// Defaults returns the configuration a bare daemon starts from: an
// empty graph, a 10ms control period, info-level logging and the local
// NATS server.
func Defaults() *Config {
	return &Config{
		Version: "1.0.0",
		Graph: GraphConfig{
			Name: "graph",
		},
		Engine: EngineConfig{
			Period: 10 * time.Millisecond,
		},
		Logger: LoggerConfig{
			Verbosity:         "info",
			TimeSample:        0.001,
			StreamPrintPeriod: 1.0,
		},
		NATS: NATSConfig{
			URLs:          []string{"nats://localhost:4222"},
			Name:          "dynamic-graph",
			MaxReconnects: -1,
			ReconnectWait: 2 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
			Path:    "/metrics",
		},
		Remote: RemoteConfig{
			Enabled:       true,
			SubjectPrefix: "dg",
		},
	}
}

// Validate checks the configuration and reports every problem found,
// not just the first.
func (c *Config) Validate() error {
	var errs []string

	if c.Version != "" {
		if _, _, _, err := parseSemVer(c.Version); err != nil {
			errs = append(errs, fmt.Sprintf("version: %v", err))
		}
	}

	if c.Graph.Name == "" {
		errs = append(errs, "graph.name is required")
	} else if !isValidSubjectPart(c.Graph.Name) {
		errs = append(errs, fmt.Sprintf(
			"graph.name %q is not valid for NATS subjects (alphanumeric, dots, dashes, underscores)",
			c.Graph.Name))
	}

	seen := make(map[string]bool, len(c.Graph.Entities))
	for i, e := range c.Graph.Entities {
		if e.Name == "" {
			errs = append(errs, fmt.Sprintf("graph.entities[%d].name is required", i))
		} else if seen[e.Name] {
			errs = append(errs, fmt.Sprintf("graph.entities[%d]: duplicate entity name %q", i, e.Name))
		}
		seen[e.Name] = true
		if e.Class == "" {
			errs = append(errs, fmt.Sprintf("graph.entities[%d].class is required", i))
		}
	}

	for i, p := range c.Graph.Plugs {
		if !isSignalPath(p.From) {
			errs = append(errs, fmt.Sprintf("graph.plugs[%d].from %q is not entity.signal", i, p.From))
		}
		if !isSignalPath(p.To) {
			errs = append(errs, fmt.Sprintf("graph.plugs[%d].to %q is not entity.signal", i, p.To))
		}
	}

	for i, cmd := range c.Graph.Commands {
		if cmd.Entity == "" {
			errs = append(errs, fmt.Sprintf("graph.commands[%d].entity is required", i))
		}
		if cmd.Name == "" {
			errs = append(errs, fmt.Sprintf("graph.commands[%d].name is required", i))
		}
	}

	for i, term := range c.Graph.Terminals {
		if !isSignalPath(term) {
			errs = append(errs, fmt.Sprintf("graph.terminals[%d] %q is not entity.signal", i, term))
		}
	}

	if c.Engine.Period < 0 {
		errs = append(errs, "engine.period must not be negative")
	}
	if c.Engine.MaxTicks < 0 {
		errs = append(errs, "engine.max_ticks must not be negative")
	}

	if c.Logger.Verbosity != "" {
		switch c.Logger.Verbosity {
		case "none", "error", "warning", "info", "all", "debug":
		default:
			errs = append(errs, fmt.Sprintf(
				"logger.verbosity %q is not one of none, error, warning, info, all", c.Logger.Verbosity))
		}
	}
	if c.Logger.TimeSample < 0 {
		errs = append(errs, "logger.time_sample must not be negative")
	}
	if c.Logger.StreamPrintPeriod < 0 {
		errs = append(errs, "logger.stream_print_period must not be negative")
	}

	for i, url := range c.NATS.URLs {
		if url == "" {
			errs = append(errs, fmt.Sprintf("nats.urls[%d] is empty", i))
		}
	}
	if c.NATS.ReconnectWait < 0 {
		errs = append(errs, "nats.reconnect_wait must not be negative")
	}

	if c.Metrics.Enabled {
		if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
			errs = append(errs, "metrics.port must be between 1 and 65535")
		}
		if c.Metrics.Path != "" && !strings.HasPrefix(c.Metrics.Path, "/") {
			errs = append(errs, "metrics.path must start with /")
		}
	}

	if c.Remote.Enabled {
		if c.Remote.SubjectPrefix == "" {
			errs = append(errs, "remote.subject_prefix is required when remote is enabled")
		} else if !isValidSubjectPart(c.Remote.SubjectPrefix) {
			errs = append(errs, fmt.Sprintf(
				"remote.subject_prefix %q is not valid for NATS subjects", c.Remote.SubjectPrefix))
		}
	}

	if len(errs) > 0 {
		return errors.WrapInvalid(
			fmt.Errorf("%s: %w", strings.Join(errs, "; "), errors.ErrInvalidConfig),
			"Config", "Validate", "checking configuration")
	}
	return nil
}

// isValidSubjectPart checks that a string is usable as one token of a
// NATS subject. Valid characters are alphanumeric, dots, dashes and
// underscores.
func isValidSubjectPart(s string) bool {
	if len(s) == 0 {
		return false
	}

	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) &&
			r != '-' && r != '_' && r != '.' {
			return false
		}
	}
	return true
}

// isSignalPath checks the "entity.signal" form used by plugs and
// terminals. The signal part may itself contain dots.
func isSignalPath(s string) bool {
	entity, sig, ok := strings.Cut(s, ".")
	return ok && entity != "" && sig != ""
}

// String returns a JSON representation of the config.
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// SaveToFile writes the configuration as indented JSON.
func (c *Config) SaveToFile(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return safeWriteFile(path, data)
}

// parseSemVer parses a semantic version string such as "1.2.3" into its
// major, minor and patch parts.
func parseSemVer(version string) (int, int, int, error) {
	if version == "" {
		return 0, 0, 0, fmt.Errorf("version cannot be empty")
	}

	version = strings.TrimPrefix(version, "v")

	parts := strings.Split(version, ".")
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("version must be in format 'major.minor.patch', got %q", version)
	}

	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid major version %q: %w", parts[0], err)
	}

	minor, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid minor version %q: %w", parts[1], err)
	}

	patch, err := strconv.Atoi(parts[2])
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid patch version %q: %w", parts[2], err)
	}

	return major, minor, patch, nil
}

// UnmarshalJSON accepts duration fields as Go duration strings ("10ms")
// or as raw nanosecond counts.
func (ec *EngineConfig) UnmarshalJSON(data []byte) error {
	type Alias EngineConfig
	aux := &struct {
		Period any `json:"period,omitempty"`
		*Alias
	}{
		Alias: (*Alias)(ec),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	d, err := decodeDuration(aux.Period)
	if err != nil {
		return fmt.Errorf("engine.period: %w", err)
	}
	ec.Period = d
	return nil
}

// UnmarshalJSON accepts reconnect_wait as a Go duration string or raw
// nanoseconds.
func (nc *NATSConfig) UnmarshalJSON(data []byte) error {
	type Alias NATSConfig
	aux := &struct {
		ReconnectWait any `json:"reconnect_wait,omitempty"`
		*Alias
	}{
		Alias: (*Alias)(nc),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	d, err := decodeDuration(aux.ReconnectWait)
	if err != nil {
		return fmt.Errorf("nats.reconnect_wait: %w", err)
	}
	nc.ReconnectWait = d
	return nil
}

func decodeDuration(v any) (time.Duration, error) {
	switch val := v.(type) {
	case nil:
		return 0, nil
	case string:
		return time.ParseDuration(val)
	case float64:
		return time.Duration(val), nil
	default:
		return 0, fmt.Errorf("unsupported duration value %v (%T)", v, v)
	}
}
