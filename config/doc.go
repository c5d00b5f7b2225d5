// Package config provides configuration management for dynamic-graph
// daemons.
//
// This package handles loading, validation and thread-safe access to
// daemon configuration from YAML or JSON files and environment
// variables.
//
// # Core Components
//
// Config: the root structure covering the graph declaration (entities,
// plugs, initial commands, terminal signals) plus the engine, logger,
// NATS, metrics and remote sections.
//
// SafeConfig: thread-safe wrapper using an RWMutex and deep cloning so
// a running engine and a reconfiguring caller never share mutable
// state.
//
// Loader: loads configuration with layer merging (base + overrides),
// JSON-Schema validation of each layer, and DG_-prefixed environment
// variable overrides.
//
// # Basic Usage
//
// Loading configuration from files with layer merging:
//
//	loader := config.NewLoader()
//	loader.AddLayer("config/base.yaml")
//	loader.AddLayer("config/robot.yaml") // Overrides base
//
//	cfg, err := loader.Load()
//	if err != nil {
//		log.Fatal(err)
//	}
//
// File format follows the extension: .yaml/.yml parse as YAML,
// everything else as JSON. Duration fields accept Go duration strings
// ("10ms") in either format.
//
// # Validation
//
// Each layer is checked against a JSON Schema before merging, so typos
// in section names and type errors are reported with field-level
// messages. The merged result then goes through Config.Validate, which
// aggregates every cross-field problem (duplicate entity names,
// malformed plug paths, out-of-range ports) into one error.
//
// # Environment Overrides
//
// Deployment-level settings can be overridden without editing files:
//
//	DG_GRAPH_NAME, DG_NATS_URLS (comma-separated), DG_NATS_USERNAME,
//	DG_NATS_PASSWORD, DG_NATS_TOKEN, DG_LOG_VERBOSITY,
//	DG_METRICS_PORT, DG_REMOTE_PREFIX
package config
