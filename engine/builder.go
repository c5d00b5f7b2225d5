package engine

import (
	"fmt"
	"log/slog"

	"github.com/nim65s/dynamic-graph/config"
	"github.com/nim65s/dynamic-graph/entity"
	"github.com/nim65s/dynamic-graph/errors"
	"github.com/nim65s/dynamic-graph/logger"
	"github.com/nim65s/dynamic-graph/metric"
)

// FromConfig builds the configured graph into reg and returns the engine
// driving it. Entities are created through the registry's class table in
// declaration order, wired per the plug list, then initialized by the
// configured commands. Every entity logger gets the configured defaults,
// the engine clock, and the given sinks (an slog sink when none are
// given).
//
// On failure the partially built graph stays in reg for inspection;
// callers wanting a clean slate use reg.Clear().
func FromConfig(
	cfg *config.Config,
	reg *entity.Registry,
	slogger *slog.Logger,
	metricsRegistry *metric.MetricsRegistry,
	sinks ...logger.Sink,
) (*Engine, error) {
	if cfg == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "Engine", "FromConfig", "nil config")
	}
	if reg == nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "Engine", "FromConfig", "nil registry")
	}
	if slogger == nil {
		slogger = slog.Default()
	}
	if len(sinks) == 0 {
		sinks = []logger.Sink{logger.NewSlogSink(slogger)}
	}

	clock := &logger.Clock{}
	if err := buildGraph(cfg, reg, clock, metricsRegistry, sinks); err != nil {
		return nil, err
	}
	if err := runInitialCommands(cfg, reg, slogger, metricsRegistry); err != nil {
		return nil, err
	}

	opts := []Option{
		WithClock(clock),
		WithPeriod(cfg.Engine.Period),
		WithMaxTicks(cfg.Engine.MaxTicks),
		WithStopOnError(cfg.Engine.StopOnError),
		WithTerminals(cfg.Graph.Terminals...),
		WithLogger(slogger),
	}
	if metricsRegistry != nil {
		opts = append(opts, WithMetrics(metricsRegistry))
	}
	return New(cfg.Graph.Name, reg, opts...)
}

// buildGraph creates and wires the configured entities.
func buildGraph(
	cfg *config.Config,
	reg *entity.Registry,
	clock *logger.Clock,
	metricsRegistry *metric.MetricsRegistry,
	sinks []logger.Sink,
) error {
	verbosity := logger.VerbosityInfoWarningError
	if cfg.Logger.Verbosity != "" {
		if v, ok := logger.ParseVerbosity(cfg.Logger.Verbosity); ok {
			verbosity = v
		}
	}

	var observer func(level string, suppressed bool)
	if metricsRegistry != nil {
		core := metricsRegistry.CoreMetrics()
		graph := cfg.Graph.Name
		observer = func(level string, suppressed bool) {
			core.RecordLogMessage(graph, level, suppressed)
		}
	}

	for _, ec := range cfg.Graph.Entities {
		e, err := reg.NewEntity(ec.Class, ec.Name)
		if err != nil {
			return errors.Wrap(err, "Engine", "FromConfig",
				fmt.Sprintf("creating entity %s of class %s", ec.Name, ec.Class))
		}
		if ec.Doc != "" {
			e.SetDocString(ec.Doc)
		}

		log := e.Logger()
		log.SetClock(clock)
		log.SetVerbosity(verbosity)
		if cfg.Logger.TimeSample > 0 {
			log.SetTimeSample(cfg.Logger.TimeSample)
		}
		if cfg.Logger.StreamPrintPeriod > 0 {
			log.SetStreamPrintPeriod(cfg.Logger.StreamPrintPeriod)
		}
		if observer != nil {
			log.SetObserver(observer)
		}
		for _, s := range sinks {
			log.AddSink(s)
		}
	}

	for _, p := range cfg.Graph.Plugs {
		if err := reg.Plug(p.From, p.To); err != nil {
			return errors.Wrap(err, "Engine", "FromConfig",
				fmt.Sprintf("plugging %s into %s", p.From, p.To))
		}
	}

	return nil
}

// runInitialCommands executes the configured post-wiring commands,
// typically setting initial parameter values or opening trace files.
func runInitialCommands(
	cfg *config.Config,
	reg *entity.Registry,
	slogger *slog.Logger,
	metricsRegistry *metric.MetricsRegistry,
) error {
	var core *metric.Metrics
	if metricsRegistry != nil {
		core = metricsRegistry.CoreMetrics()
	}

	for _, cc := range cfg.Graph.Commands {
		context := fmt.Sprintf("running command %s.%s", cc.Entity, cc.Name)

		ent, err := reg.Entity(cc.Entity)
		if err != nil {
			return errors.Wrap(err, "Engine", "FromConfig", context)
		}
		cmd, err := ent.Command(cc.Name)
		if err != nil {
			return errors.Wrap(err, "Engine", "FromConfig", context)
		}

		result, err := cmd.Execute(cc.Args)
		if core != nil {
			status := "ok"
			if err != nil {
				status = "error"
			}
			core.RecordCommandExecuted(cfg.Graph.Name, status)
		}
		if err != nil {
			return errors.Wrap(err, "Engine", "FromConfig", context)
		}
		if result != "" {
			slogger.Debug("Initial command result",
				"entity", cc.Entity,
				"command", cc.Name,
				"result", result)
		}
	}

	return nil
}
