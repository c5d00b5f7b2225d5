package config_test

import (
	"fmt"
	"log"

	"github.com/nim65s/dynamic-graph/config"
)

// ExampleLoader_LoadFile demonstrates loading a graph configuration
// from a YAML file with schema validation.
func ExampleLoader_LoadFile() {
	loader := config.NewLoader()

	cfg, err := loader.LoadFile("example_config.yaml")
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(cfg.Graph.Name)
	fmt.Println(cfg.Engine.Period)
	// Output:
	// arm-demo
	// 5ms
}

// ExampleLoader_Load demonstrates layered configuration: later layers
// override earlier ones, and DG_-prefixed environment variables
// override both.
func ExampleLoader_Load() {
	loader := config.NewLoader()
	loader.AddLayer("example_config.yaml")
	// loader.AddLayer("robot-overrides.yaml") would refine the base.

	cfg, err := loader.Load()
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(cfg.Remote.SubjectPrefix)
	// Output: dg.arm
}

// ExampleSafeConfig demonstrates thread-safe configuration access. Get
// returns a deep copy, so callers never share mutable state with the
// running daemon.
func ExampleSafeConfig() {
	sc := config.NewSafeConfig(config.Defaults())

	cfg := sc.Get()
	cfg.Graph.Name = "scratch" // only affects this copy

	fmt.Println(sc.Get().Graph.Name)
	// Output: graph
}

// ExampleConfig_Validate demonstrates aggregated validation: every
// problem is reported in one pass.
func ExampleConfig_Validate() {
	cfg := config.Defaults()
	cfg.Graph.Name = ""
	cfg.Metrics.Port = 0

	err := cfg.Validate()
	fmt.Println(err != nil)
	// Output: true
}
