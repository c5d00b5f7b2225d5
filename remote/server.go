package remote

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nim65s/dynamic-graph/entity"
	"github.com/nim65s/dynamic-graph/errors"
	"github.com/nim65s/dynamic-graph/health"
	"github.com/nim65s/dynamic-graph/metric"
	"github.com/nim65s/dynamic-graph/natsclient"
	"github.com/nim65s/dynamic-graph/service"
)

// DefaultSubjectPrefix is used when no prefix is configured.
const DefaultSubjectPrefix = "dg"

// operations are the subject suffixes the server answers, in the order
// they are subscribed.
var operations = []string{
	"entity.list",
	"entity.describe",
	"signal.get",
	"signal.set",
	"command.exec",
	"graph.dot",
	"completion",
	"health",
}

// Submitter serializes graph mutations with evaluation. The engine
// implements it; the server falls back to direct execution when no
// submitter is attached or its loop is not running.
type Submitter interface {
	Submit(ctx context.Context, fn func() error) error
}

// Server answers the NATS request-reply introspection API for one
// graph. Directory operations go straight to the registry; operations
// touching signal state (signal.get, signal.set, command.exec) are
// funneled through the attached Submitter so they land between
// evaluation ticks.
type Server struct {
	*service.BaseService

	graph     string
	registry  *entity.Registry
	client    *natsclient.Client
	prefix    string
	submitter Submitter
	monitor   *health.Monitor

	slogger         *slog.Logger
	metricsRegistry *metric.MetricsRegistry
	metrics         *metric.Metrics
}

// Option configures a Server.
type Option func(*Server)

// WithSubjectPrefix sets the subject namespace, e.g. "dg.arm". Empty
// keeps the default.
func WithSubjectPrefix(prefix string) Option {
	return func(s *Server) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// WithSubmitter funnels stateful requests through the engine's submit
// queue.
func WithSubmitter(sub Submitter) Option {
	return func(s *Server) { s.submitter = sub }
}

// WithMonitor answers the health subject from the monitor's aggregate
// instead of the server's own status.
func WithMonitor(m *health.Monitor) Option {
	return func(s *Server) { s.monitor = m }
}

// WithMetrics attaches the metrics registry for request counting.
func WithMetrics(registry *metric.MetricsRegistry) Option {
	return func(s *Server) { s.metricsRegistry = registry }
}

// WithLogger sets the structured logger the server reports through.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.slogger = l
		}
	}
}

// NewServer creates the introspection server for the graph held in reg.
// It does not subscribe until Start.
func NewServer(graphName string, reg *entity.Registry, client *natsclient.Client, opts ...Option) (*Server, error) {
	if reg == nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "Remote", "NewServer", "nil registry")
	}
	if client == nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "Remote", "NewServer", "nil NATS client")
	}
	if graphName == "" {
		graphName = "graph"
	}

	s := &Server{
		graph:    graphName,
		registry: reg,
		client:   client,
		prefix:   DefaultSubjectPrefix,
	}
	for _, opt := range opts {
		opt(s)
	}

	var baseOpts []service.Option
	if s.slogger != nil {
		baseOpts = append(baseOpts, service.WithLogger(s.slogger.With("service", "remote", "graph", s.graph)))
	}
	if s.metricsRegistry != nil {
		baseOpts = append(baseOpts, service.WithMetrics(s.metricsRegistry))
		s.metrics = s.metricsRegistry.CoreMetrics()
	}
	s.BaseService = service.NewBaseService("remote", baseOpts...)
	return s, nil
}

// Prefix returns the subject namespace the server answers under.
func (s *Server) Prefix() string { return s.prefix }

// Subjects returns the full subjects the server subscribes to.
func (s *Server) Subjects() []string {
	subjects := make([]string, len(operations))
	for i, op := range operations {
		subjects[i] = s.subject(op)
	}
	return subjects
}

func (s *Server) subject(op string) string {
	return s.prefix + "." + op
}

// Start subscribes every operation subject and brings the base
// lifecycle up. Subscriptions live until the NATS client closes.
func (s *Server) Start(ctx context.Context) error {
	status := s.Status()
	if status == service.StatusRunning || status == service.StatusStarting {
		return nil
	}
	if err := s.BaseService.Start(ctx); err != nil {
		return errors.Wrap(err, "Remote", "Start", "starting base service")
	}

	handlers := map[string]func(context.Context, []byte) []byte{
		"entity.list":     s.handleEntityList,
		"entity.describe": s.handleEntityDescribe,
		"signal.get":      s.handleSignalGet,
		"signal.set":      s.handleSignalSet,
		"command.exec":    s.handleCommandExec,
		"graph.dot":       s.handleGraphDot,
		"completion":      s.handleCompletion,
		"health":          s.handleHealth,
	}
	for _, op := range operations {
		subject := s.subject(op)
		if err := s.client.SubscribeRequest(ctx, subject, handlers[op]); err != nil {
			_ = s.BaseService.Stop(0)
			return errors.WrapTransient(err, "Remote", "Start", "subscribing "+subject)
		}
	}

	s.Logger().Info("Remote API listening",
		"prefix", s.prefix,
		"operations", len(operations))
	return nil
}

// Stop brings the base lifecycle down. The NATS subscriptions drain
// when the shared client closes; handlers answer with an error envelope
// in between.
func (s *Server) Stop(timeout time.Duration) error {
	if err := s.BaseService.Stop(timeout); err != nil {
		return errors.Wrap(err, "Remote", "Stop", "stopping base service")
	}
	return nil
}

// serialize runs fn on the evaluation goroutine when a running engine
// is attached, and directly otherwise. Direct execution is safe while
// no evaluation loop runs, which is exactly when Submit reports
// ErrNotStarted.
func (s *Server) serialize(ctx context.Context, fn func() error) error {
	if s.submitter == nil {
		return fn()
	}
	err := s.submitter.Submit(ctx, fn)
	if err != nil && stderrors.Is(err, errors.ErrNotStarted) {
		return fn()
	}
	return err
}

// respond finalizes one reply: stamp the envelope, count the request,
// marshal. A marshalling failure degrades to a bare error envelope.
func (s *Server) respond(op, requestID string, start time.Time, resp enveloped, err error) []byte {
	status := "ok"
	if err != nil {
		status = "error"
		resp = &basicResponse{}
		resp.setEnvelope(Envelope{RequestID: requestID, OK: false, Error: errorInfo(err)})
		s.Logger().Warn("Remote request failed",
			"operation", op,
			"request_id", requestID,
			"error", err)
	} else {
		resp.setEnvelope(Envelope{RequestID: requestID, OK: true})
	}
	if s.metrics != nil {
		s.metrics.RecordRemoteRequest(op, status, time.Since(start))
	}
	s.RecordActivity()

	out, merr := json.Marshal(resp)
	if merr != nil {
		s.Logger().Error("Failed to marshal remote response",
			"operation", op,
			"error", merr)
		fallback, _ := json.Marshal(&basicResponse{Envelope: Envelope{
			RequestID: requestID,
			OK:        false,
			Error:     &ErrorInfo{Class: "fatal", Message: "response marshalling failed"},
		}})
		return fallback
	}
	return out
}

// accept rejects requests while the server is not running and decodes
// the request body when it carries one.
func (s *Server) accept(op string, data []byte, req any) error {
	if s.Status() != service.StatusRunning {
		return errors.WrapInvalid(errors.ErrNotStarted, "Remote", op, "server not running")
	}
	if req == nil {
		return nil
	}
	if len(data) == 0 {
		return errors.WrapInvalid(errors.ErrBadArgument, "Remote", op, "empty request body")
	}
	if err := json.Unmarshal(data, req); err != nil {
		return errors.WrapInvalid(fmt.Errorf("%w: %v", errors.ErrBadArgument, err),
			"Remote", op, "decoding request")
	}
	return nil
}
