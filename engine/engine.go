package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nim65s/dynamic-graph/entity"
	"github.com/nim65s/dynamic-graph/errors"
	"github.com/nim65s/dynamic-graph/logger"
	"github.com/nim65s/dynamic-graph/metric"
	"github.com/nim65s/dynamic-graph/service"
	"github.com/nim65s/dynamic-graph/signal"
)

const (
	defaultPeriod    = 10 * time.Millisecond
	defaultQueueSize = 64
	defaultTimeout   = 5 * time.Second
)

// terminal is one signal the loop recomputes every tick, with its dotted
// path kept for metrics and diagnostics.
type terminal struct {
	path string
	sig  signal.Base
}

// task is one deferred operation queued by Submit. The reply channel is
// buffered so the loop never blocks on a submitter that gave up.
type task struct {
	fn    func() error
	reply chan error
}

// Engine owns the single evaluation goroutine of one graph. Each tick it
// drains the submit queue, advances the logical clock and recomputes the
// configured terminal signals in order; memoization in the signal layer
// turns that into exactly one evaluation per computed signal per tick.
//
// Structural mutation of a running graph must go through Submit so it
// serializes with evaluation. A stopped engine can be driven one tick at
// a time with Step.
type Engine struct {
	*service.BaseService

	graph       string
	registry    *entity.Registry
	clock       *logger.Clock
	period      time.Duration
	maxTicks    int64
	stopOnError bool

	terminalPaths []string
	terminals     []terminal

	queueSize int
	submitted chan task

	slogger         *slog.Logger
	metricsRegistry *metric.MetricsRegistry
	metrics         *metric.Metrics
	em              *engineMetrics

	ticks atomic.Int64

	mu       sync.Mutex
	loopStop context.CancelFunc
	loopDone chan struct{}
}

// Option configures an Engine.
type Option func(*Engine)

// WithPeriod sets the control period. Non-positive values keep the
// default.
func WithPeriod(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.period = d
		}
	}
}

// WithMaxTicks bounds the run to n ticks, after which the engine stops
// itself. Zero runs until stopped.
func WithMaxTicks(n int64) Option {
	return func(e *Engine) {
		if n >= 0 {
			e.maxTicks = n
		}
	}
}

// WithStopOnError makes the loop stop and mark the engine failed on the
// first evaluation error instead of logging and continuing.
func WithStopOnError(stop bool) Option {
	return func(e *Engine) { e.stopOnError = stop }
}

// WithClock shares an external logical clock instead of an engine-owned
// one, so entity loggers and the loop agree on the current tick.
func WithClock(c *logger.Clock) Option {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

// WithTerminals appends dotted "entity.signal" paths to recompute each
// tick, in order. They are resolved against the registry in New.
func WithTerminals(paths ...string) Option {
	return func(e *Engine) { e.terminalPaths = append(e.terminalPaths, paths...) }
}

// WithMetrics attaches the metrics registry.
func WithMetrics(registry *metric.MetricsRegistry) Option {
	return func(e *Engine) { e.metricsRegistry = registry }
}

// WithLogger sets the structured logger for engine-level events. Entity
// diagnostics flow through the entity loggers, not this one.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.slogger = l
		}
	}
}

// WithSubmitQueueSize bounds the submit queue. Submit blocks (up to its
// context) once the queue is full.
func WithSubmitQueueSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.queueSize = n
		}
	}
}

// New creates an engine for the graph held in reg. Terminal paths given
// with WithTerminals are resolved here, so every terminal of a returned
// engine is known to exist.
func New(graphName string, reg *entity.Registry, opts ...Option) (*Engine, error) {
	if reg == nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "Engine", "New", "nil registry")
	}
	if graphName == "" {
		graphName = "graph"
	}

	e := &Engine{
		graph:     graphName,
		registry:  reg,
		clock:     &logger.Clock{},
		period:    defaultPeriod,
		queueSize: defaultQueueSize,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.submitted = make(chan task, e.queueSize)

	var baseOpts []service.Option
	if e.slogger != nil {
		baseOpts = append(baseOpts, service.WithLogger(e.slogger.With("service", "engine", "graph", e.graph)))
	}
	if e.metricsRegistry != nil {
		baseOpts = append(baseOpts, service.WithMetrics(e.metricsRegistry))
		e.metrics = e.metricsRegistry.CoreMetrics()
	}
	e.BaseService = service.NewBaseService("engine", baseOpts...)

	if e.metricsRegistry != nil {
		em, err := newEngineMetrics(e.metricsRegistry)
		if err != nil {
			e.Logger().Error("Failed to initialize engine metrics", "error", err)
		} else {
			e.em = em
		}
	}

	for _, path := range e.terminalPaths {
		sig, err := reg.Signal(path)
		if err != nil {
			return nil, errors.Wrap(err, "Engine", "New", "resolving terminal "+path)
		}
		e.terminals = append(e.terminals, terminal{path: path, sig: sig})
	}

	return e, nil
}

// Graph returns the graph name.
func (e *Engine) Graph() string { return e.graph }

// Registry returns the entity registry the engine evaluates.
func (e *Engine) Registry() *entity.Registry { return e.registry }

// Clock returns the logical clock the engine advances.
func (e *Engine) Clock() *logger.Clock { return e.clock }

// Period returns the control period.
func (e *Engine) Period() time.Duration { return e.period }

// Ticks returns how many ticks have executed since construction.
func (e *Engine) Ticks() int64 { return e.ticks.Load() }

// Terminals returns the dotted paths recomputed each tick, in evaluation
// order.
func (e *Engine) Terminals() []string {
	paths := make([]string, len(e.terminals))
	for i, term := range e.terminals {
		paths[i] = term.path
	}
	return paths
}

// Start brings the base lifecycle up and launches the evaluation loop.
// Starting a running engine is a no-op.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	status := e.Status()
	if status == service.StatusRunning || status == service.StatusStarting {
		return nil
	}

	if err := e.BaseService.Start(ctx); err != nil {
		return errors.Wrap(err, "Engine", "Start", "starting base service")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	e.loopStop = cancel
	e.loopDone = make(chan struct{})
	go e.run(loopCtx)

	e.recordStatus(service.StatusRunning)
	if e.metrics != nil {
		e.metrics.RecordEntitiesLive(e.graph, e.registry.Size())
	}
	return nil
}

// Stop cancels the evaluation loop, waits for it up to timeout, then
// stops the base lifecycle. A zero timeout uses the default.
func (e *Engine) Stop(timeout time.Duration) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	status := e.Status()
	if status == service.StatusStopped || status == service.StatusStopping {
		return nil
	}
	if timeout == 0 {
		timeout = defaultTimeout
	}

	if e.loopStop != nil {
		e.loopStop()
		select {
		case <-e.loopDone:
		case <-time.After(timeout):
			e.Logger().Warn("Evaluation loop did not stop in time", "timeout", timeout)
		}
		e.loopStop = nil
	}

	if err := e.BaseService.Stop(timeout); err != nil {
		return errors.Wrap(err, "Engine", "Stop", "stopping base service")
	}
	e.recordStatus(service.StatusStopped)
	return nil
}

// Step advances exactly one tick synchronously: tests and interactive
// tooling drive a graph with it instead of the period loop. Stepping
// while the loop runs would race it, so a running engine rejects Step.
func (e *Engine) Step() error {
	status := e.Status()
	if status == service.StatusRunning || status == service.StatusStarting {
		return errors.WrapInvalid(errors.ErrAlreadyStarted, "Engine", "Step", "engine loop is running")
	}
	return e.tick()
}

// Submit queues fn to run on the evaluation goroutine ahead of the next
// recomputation and waits for its result, so structural mutations and
// signal writes serialize with evaluation. Both the enqueue and the
// result wait are bounded by ctx. The operation may still run after ctx
// expires; only the wait is abandoned.
func (e *Engine) Submit(ctx context.Context, fn func() error) error {
	if fn == nil {
		return errors.WrapInvalid(errors.ErrBadArgument, "Engine", "Submit", "nil operation")
	}
	if e.Status() != service.StatusRunning {
		return errors.WrapInvalid(errors.ErrNotStarted, "Engine", "Submit", "engine loop not running")
	}

	t := task{fn: fn, reply: make(chan error, 1)}
	select {
	case e.submitted <- t:
		e.em.recordQueueDepth(len(e.submitted))
	case <-ctx.Done():
		e.em.recordSubmission("rejected")
		return errors.WrapTransient(ctx.Err(), "Engine", "Submit", "queueing operation")
	}

	select {
	case err := <-t.reply:
		if err != nil {
			e.em.recordSubmission("error")
			return err
		}
		e.em.recordSubmission("ok")
		return nil
	case <-ctx.Done():
		e.em.recordSubmission("abandoned")
		return errors.WrapTransient(ctx.Err(), "Engine", "Submit", "waiting for operation result")
	}
}

// run is the evaluation loop. It exits on context cancellation, on the
// tick budget, or on the first evaluation error when StopOnError is set.
func (e *Engine) run(ctx context.Context) {
	defer close(e.loopDone)

	e.Logger().Info("Evaluation loop started",
		"graph", e.graph,
		"period", e.period,
		"terminals", len(e.terminals))

	ticker := time.NewTicker(e.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.failPending()
			return
		case <-ticker.C:
			if err := e.tick(); err != nil && e.stopOnError {
				e.Logger().Error("Stopping on evaluation error", "error", err)
				e.failPending()
				e.MarkFailed("evaluation loop stopped on error")
				e.recordStatus(service.StatusFailed)
				return
			}
			if e.maxTicks > 0 && e.ticks.Load() >= e.maxTicks {
				e.Logger().Info("Tick budget reached", "ticks", e.maxTicks)
				e.failPending()
				if err := e.BaseService.Stop(0); err != nil {
					e.Logger().Warn("Base service stop failed", "error", err)
				}
				e.recordStatus(service.StatusStopped)
				return
			}
		}
	}
}

// tick runs one evaluation cycle: drain queued operations, advance the
// logical clock, recompute the terminals in order. The first evaluation
// error aborts the cycle; remaining terminals keep their previous memo.
func (e *Engine) tick() error {
	start := time.Now()
	e.drainSubmitted()
	now := e.clock.Advance()

	var tickErr error
	for _, term := range e.terminals {
		if err := term.sig.Recompute(now); err != nil {
			if e.metrics != nil {
				e.metrics.RecordEvaluationError(e.graph, term.path)
			}
			e.reportEvaluationError(term, now, err)
			tickErr = errors.Wrap(err, "Engine", "tick",
				fmt.Sprintf("recomputing %s at t=%d", term.path, now))
			break
		}
		if e.metrics != nil {
			e.metrics.RecordEvaluation(e.graph, term.path)
		}
	}

	e.ticks.Add(1)
	e.RecordActivity()
	e.recordTick(time.Since(start))
	return tickErr
}

// drainSubmitted runs every queued operation in submission order on the
// calling goroutine.
func (e *Engine) drainSubmitted() {
	for {
		select {
		case t := <-e.submitted:
			t.reply <- runTask(t)
		default:
			e.em.recordQueueDepth(0)
			return
		}
	}
}

// runTask isolates a submitted operation's panic so a bad remote request
// cannot take the evaluation loop down.
func runTask(t task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.WrapFatal(fmt.Errorf("panic: %v", r),
				"Engine", "Submit", "running submitted operation")
		}
	}()
	return t.fn()
}

// failPending answers operations still queued after the loop stopped so
// their submitters unblock.
func (e *Engine) failPending() {
	for {
		select {
		case t := <-e.submitted:
			t.reply <- errors.WrapTransient(errors.ErrShuttingDown,
				"Engine", "Submit", "engine loop stopped")
		default:
			return
		}
	}
}

// reportEvaluationError routes the failure through the owning entity's
// diagnostic logger, where entity-level tooling watches, and through the
// engine's own log. Error messages bypass the stream throttle.
func (e *Engine) reportEvaluationError(term terminal, now signal.Time, err error) {
	if owner := term.sig.Owner(); owner != "" {
		if ent, lookupErr := e.registry.Entity(owner); lookupErr == nil {
			ent.Logger().Send(logger.MsgTypeError,
				fmt.Sprintf("evaluating %s at t=%d: %v", term.path, now, err))
		}
	}
	e.Logger().Error("Signal evaluation failed",
		"signal", term.path,
		"tick", int64(now),
		"error", err)
}

// recordTick mirrors one tick into the core metric set.
func (e *Engine) recordTick(dur time.Duration) {
	if e.metrics == nil {
		return
	}
	e.metrics.RecordTick(e.graph, dur)
	if dur > e.period {
		e.metrics.RecordTickOverrun(e.graph)
	}
	e.metrics.RecordEntitiesLive(e.graph, e.registry.Size())
}

// recordStatus mirrors a lifecycle transition into the engine status
// gauge, keyed by graph.
func (e *Engine) recordStatus(status service.Status) {
	if e.metrics == nil {
		return
	}
	e.metrics.RecordEngineStatus(e.graph, int(status))
}
