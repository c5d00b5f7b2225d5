package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nim65s/dynamic-graph/errors"
)

// Loader handles configuration loading with layers and overrides.
// Layers are merged in order on top of Defaults, then DG_-prefixed
// environment variables override connection-level settings.
type Loader struct {
	layers     []string
	validation bool
	envPrefix  string
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{
		layers:     []string{},
		validation: true,
		envPrefix:  "DG",
	}
}

// AddLayer adds a configuration file layer. Later layers override
// earlier ones.
func (l *Loader) AddLayer(path string) {
	l.layers = append(l.layers, path)
}

// EnableValidation enables or disables schema and semantic validation.
func (l *Loader) EnableValidation(enable bool) {
	l.validation = enable
}

// LoadFile loads configuration from a single file.
func (l *Loader) LoadFile(path string) (*Config, error) {
	l.layers = []string{path}
	return l.Load()
}

// Load loads and merges all configuration layers.
func (l *Loader) Load() (*Config, error) {
	cfg := Defaults()

	for _, path := range l.layers {
		raw, err := l.loadRaw(path)
		if err != nil {
			return nil, errors.WrapInvalid(err, "Loader", "Load",
				fmt.Sprintf("loading layer %s", path))
		}

		if l.validation {
			if fieldErrs := ValidateDocument(raw); len(fieldErrs) > 0 {
				return nil, errors.WrapInvalid(
					fmt.Errorf("%s: %s: %w", path, joinFieldErrors(fieldErrs), errors.ErrInvalidConfig),
					"Loader", "Load", "validating configuration schema")
			}
		}

		cfg, err = l.mergeFromMap(cfg, raw)
		if err != nil {
			return nil, errors.WrapInvalid(err, "Loader", "Load",
				fmt.Sprintf("merging layer %s", path))
		}
	}

	l.applyEnvOverrides(cfg)

	if l.validation {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// loadRaw reads one configuration file into a map. The format follows
// the extension: .yaml/.yml parse as YAML, everything else as JSON.
func (l *Loader) loadRaw(path string) (map[string]any, error) {
	data, err := safeReadFile(path)
	if err != nil {
		return nil, err
	}

	var raw map[string]any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parsing YAML: %w", err)
		}
	default:
		if err := validateJSONDepth(data); err != nil {
			return nil, fmt.Errorf("invalid JSON structure: %w", err)
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parsing JSON: %w", err)
		}
	}

	return raw, nil
}

// mergeFromMap merges a raw document on top of base, only overriding
// fields present in the document.
func (l *Loader) mergeFromMap(base *Config, override map[string]any) (*Config, error) {
	if override == nil {
		return base, nil
	}

	baseJSON, err := json.Marshal(base)
	if err != nil {
		return nil, err
	}

	var baseMap map[string]any
	if err := json.Unmarshal(baseJSON, &baseMap); err != nil {
		return nil, err
	}

	mergedMap := deepMergeMaps(baseMap, override)

	mergedJSON, err := json.Marshal(mergedMap)
	if err != nil {
		return nil, err
	}

	var merged Config
	if err := json.Unmarshal(mergedJSON, &merged); err != nil {
		return nil, err
	}

	return &merged, nil
}

// deepMergeMaps recursively merges two maps, with override taking
// precedence. Lists replace wholesale: a layer that names any entity
// names all of them.
func deepMergeMaps(base, override map[string]any) map[string]any {
	result := make(map[string]any, len(base)+len(override))

	for k, v := range base {
		result[k] = v
	}

	for k, v := range override {
		if v == nil {
			continue
		}

		if baseMap, baseOk := base[k].(map[string]any); baseOk {
			if overrideMap, overrideOk := v.(map[string]any); overrideOk {
				result[k] = deepMergeMaps(baseMap, overrideMap)
				continue
			}
		}

		result[k] = v
	}

	return result
}

// applyEnvOverrides applies DG_-prefixed environment variable
// overrides for the settings deployments most often need to change
// without editing files.
func (l *Loader) applyEnvOverrides(cfg *Config) {
	if val := l.lookupEnv("GRAPH_NAME"); val != "" {
		cfg.Graph.Name = val
	}

	if val := l.lookupEnv("NATS_URLS"); val != "" {
		cfg.NATS.URLs = strings.Split(val, ",")
	}
	if val := l.lookupEnv("NATS_USERNAME"); val != "" {
		cfg.NATS.Username = val
	}
	if val := l.lookupEnv("NATS_PASSWORD"); val != "" {
		cfg.NATS.Password = val
	}
	if val := l.lookupEnv("NATS_TOKEN"); val != "" {
		cfg.NATS.Token = val
	}

	if val := l.lookupEnv("LOG_VERBOSITY"); val != "" {
		cfg.Logger.Verbosity = val
	}

	if val := l.lookupEnv("METRICS_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			cfg.Metrics.Port = port
		}
	}

	if val := l.lookupEnv("REMOTE_PREFIX"); val != "" {
		cfg.Remote.SubjectPrefix = val
	}
}

// lookupEnv reads one prefixed environment variable, dropping values
// that fail basic sanity checks.
func (l *Loader) lookupEnv(key string) string {
	full := l.envPrefix + "_" + key
	val := os.Getenv(full)
	if err := validateEnvVar(full, val); err != nil {
		return ""
	}
	return val
}

func joinFieldErrors(fieldErrs []FieldError) string {
	parts := make([]string, len(fieldErrs))
	for i, fe := range fieldErrs {
		parts[i] = fe.String()
	}
	return strings.Join(parts, "; ")
}
