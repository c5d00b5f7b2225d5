// Package entities provides the builtin entity classes shipped with the
// framework and their registration entry point.
//
// Two classes cover the needs of a minimal control graph: Clock turns
// the evaluation tick into seconds, and Tracer records sampled signal
// values to a file for offline inspection. Both are ordinary entities:
// they demonstrate the constructor shape domain packages follow, with a
// concrete struct embedding *entity.Entity, signals registered under
// short names, and commands for runtime control.
//
// Install the classes into a registry before building a graph from
// config:
//
//	reg := entity.NewRegistry()
//	if err := entities.Register(reg); err != nil {
//		return err
//	}
//	eng, err := engine.FromConfig(cfg, reg, logger, metrics)
package entities
