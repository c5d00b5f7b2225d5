package remote

import (
	"bytes"
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nim65s/dynamic-graph/dot"
	"github.com/nim65s/dynamic-graph/errors"
	"github.com/nim65s/dynamic-graph/health"
	"github.com/nim65s/dynamic-graph/signal"
)

// handleEntityList answers {prefix}.entity.list with the live instances
// and their classes.
func (s *Server) handleEntityList(_ context.Context, data []byte) []byte {
	const op = "entity.list"
	start := time.Now()
	requestID := uuid.New().String()

	if err := s.accept(op, data, nil); err != nil {
		return s.respond(op, requestID, start, nil, err)
	}

	resp := &EntityListResponse{Entities: make([]EntityInfo, 0, s.registry.Size())}
	for _, name := range s.registry.Names() {
		ent, err := s.registry.Entity(name)
		if err != nil {
			// Destroyed between listing and lookup.
			continue
		}
		resp.Entities = append(resp.Entities, EntityInfo{Name: ent.Name(), Class: ent.ClassName()})
	}
	return s.respond(op, requestID, start, resp, nil)
}

// handleEntityDescribe answers {prefix}.entity.describe with one
// entity's signal and command directories. Signal stamps are a snapshot
// and may trail the loop by a tick.
func (s *Server) handleEntityDescribe(_ context.Context, data []byte) []byte {
	const op = "entity.describe"
	start := time.Now()
	requestID := uuid.New().String()

	var req EntityDescribeRequest
	if err := s.accept(op, data, &req); err != nil {
		return s.respond(op, requestID, start, nil, err)
	}
	if req.Name == "" {
		return s.respond(op, requestID, start, nil,
			errors.WrapInvalid(errors.ErrBadArgument, "Remote", op, "missing entity name"))
	}

	ent, err := s.registry.Entity(req.Name)
	if err != nil {
		return s.respond(op, requestID, start, nil, err)
	}

	resp := &EntityDescribeResponse{
		Name:     ent.Name(),
		Class:    ent.ClassName(),
		Doc:      ent.DocString(),
		Signals:  make([]SignalInfo, 0),
		Commands: make([]CommandInfo, 0),
	}
	for _, name := range ent.SignalNames() {
		sig, sigErr := ent.Signal(name)
		if sigErr != nil {
			continue
		}
		resp.Signals = append(resp.Signals, SignalInfo{
			Name:  name,
			Type:  sig.TypeName(),
			Input: signal.IsInput(sig),
			Ready: sig.Ready(),
			Time:  int64(sig.Time()),
		})
	}
	for _, name := range ent.CommandList() {
		cmd, cmdErr := ent.Command(name)
		if cmdErr != nil {
			continue
		}
		resp.Commands = append(resp.Commands, CommandInfo{Name: name, Doc: cmd.Doc()})
	}
	return s.respond(op, requestID, start, resp, nil)
}

// handleSignalGet answers {prefix}.signal.get. The read runs on the
// evaluation goroutine when an engine is attached, so the value, stamp
// and readiness are consistent with each other.
func (s *Server) handleSignalGet(ctx context.Context, data []byte) []byte {
	const op = "signal.get"
	start := time.Now()
	requestID := uuid.New().String()

	var req SignalGetRequest
	if err := s.accept(op, data, &req); err != nil {
		return s.respond(op, requestID, start, nil, err)
	}
	if req.Signal == "" {
		return s.respond(op, requestID, start, nil,
			errors.WrapInvalid(errors.ErrBadArgument, "Remote", op, "missing signal path"))
	}

	resp := &SignalGetResponse{Signal: req.Signal}
	err := s.serialize(ctx, func() error {
		sig, sigErr := s.registry.Signal(req.Signal)
		if sigErr != nil {
			return sigErr
		}
		at := signal.Time(req.Time)
		if req.Time == 0 {
			at = sig.Time()
		}
		value, valErr := renderValue(sig, at)
		if valErr != nil {
			return valErr
		}
		resp.Type = sig.TypeName()
		resp.Value = value
		resp.Time = int64(sig.Time())
		resp.Ready = sig.Ready()
		return nil
	})
	if err != nil {
		return s.respond(op, requestID, start, nil, err)
	}
	return s.respond(op, requestID, start, resp, nil)
}

// handleSignalSet answers {prefix}.signal.set, assigning a constant to
// the addressed signal between evaluation ticks.
func (s *Server) handleSignalSet(ctx context.Context, data []byte) []byte {
	const op = "signal.set"
	start := time.Now()
	requestID := uuid.New().String()

	var req SignalSetRequest
	if err := s.accept(op, data, &req); err != nil {
		return s.respond(op, requestID, start, nil, err)
	}
	if req.Signal == "" {
		return s.respond(op, requestID, start, nil,
			errors.WrapInvalid(errors.ErrBadArgument, "Remote", op, "missing signal path"))
	}

	err := s.serialize(ctx, func() error {
		sig, sigErr := s.registry.Signal(req.Signal)
		if sigErr != nil {
			return sigErr
		}
		return assignValue(sig, req.Value)
	})
	if err != nil {
		return s.respond(op, requestID, start, nil, err)
	}
	return s.respond(op, requestID, start, &SignalSetResponse{Signal: req.Signal, Value: req.Value}, nil)
}

// handleCommandExec answers {prefix}.command.exec, running the command
// between evaluation ticks.
func (s *Server) handleCommandExec(ctx context.Context, data []byte) []byte {
	const op = "command.exec"
	start := time.Now()
	requestID := uuid.New().String()

	var req CommandExecRequest
	if err := s.accept(op, data, &req); err != nil {
		return s.respond(op, requestID, start, nil, err)
	}
	if req.Entity == "" || req.Command == "" {
		return s.respond(op, requestID, start, nil,
			errors.WrapInvalid(errors.ErrBadArgument, "Remote", op, "missing entity or command name"))
	}

	var result string
	err := s.serialize(ctx, func() error {
		ent, entErr := s.registry.Entity(req.Entity)
		if entErr != nil {
			return entErr
		}
		cmd, cmdErr := ent.Command(req.Command)
		if cmdErr != nil {
			return cmdErr
		}
		out, execErr := cmd.Execute(req.Args)
		result = out
		return execErr
	})
	if s.metrics != nil {
		status := "ok"
		if err != nil {
			status = "error"
		}
		s.metrics.RecordCommandExecuted(s.graph, status)
	}
	if err != nil {
		return s.respond(op, requestID, start, nil, err)
	}
	return s.respond(op, requestID, start, &CommandExecResponse{
		Entity:  req.Entity,
		Command: req.Command,
		Result:  result,
	}, nil)
}

// handleGraphDot answers {prefix}.graph.dot with the full wiring in DOT
// syntax.
func (s *Server) handleGraphDot(_ context.Context, data []byte) []byte {
	const op = "graph.dot"
	start := time.Now()
	requestID := uuid.New().String()

	if err := s.accept(op, data, nil); err != nil {
		return s.respond(op, requestID, start, nil, err)
	}

	var buf bytes.Buffer
	if err := dot.Write(s.graph, s.registry, &buf); err != nil {
		return s.respond(op, requestID, start, nil, err)
	}
	return s.respond(op, requestID, start, &GraphDotResponse{Graph: s.graph, Dot: buf.String()}, nil)
}

// handleCompletion answers {prefix}.completion with every completion
// token of the live graph: entity names and the dotted signal and
// command paths under them.
func (s *Server) handleCompletion(_ context.Context, data []byte) []byte {
	const op = "completion"
	start := time.Now()
	requestID := uuid.New().String()

	if err := s.accept(op, data, nil); err != nil {
		return s.respond(op, requestID, start, nil, err)
	}

	var buf bytes.Buffer
	s.registry.WriteCompletionList(&buf)
	tokens := make([]string, 0)
	for _, line := range strings.Split(buf.String(), "\n") {
		if line != "" {
			tokens = append(tokens, line)
		}
	}
	return s.respond(op, requestID, start, &CompletionResponse{Tokens: tokens}, nil)
}

// handleHealth answers {prefix}.health with the monitor's aggregate, or
// the server's own status when no monitor is attached.
func (s *Server) handleHealth(_ context.Context, data []byte) []byte {
	const op = "health"
	start := time.Now()
	requestID := uuid.New().String()

	if err := s.accept(op, data, nil); err != nil {
		return s.respond(op, requestID, start, nil, err)
	}

	var status health.Status
	if s.monitor != nil {
		status = s.monitor.AggregateHealth(s.graph)
	} else {
		status = s.Health()
	}
	return s.respond(op, requestID, start, &HealthResponse{Health: status}, nil)
}
