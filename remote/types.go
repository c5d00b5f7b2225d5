package remote

import (
	"github.com/nim65s/dynamic-graph/errors"
	"github.com/nim65s/dynamic-graph/health"
)

// Envelope is the part of every reply shared across operations. A fresh
// request_id is minted per request so log lines on both sides of the
// wire correlate.
type Envelope struct {
	RequestID string     `json:"request_id"`
	OK        bool       `json:"ok"`
	Error     *ErrorInfo `json:"error,omitempty"`
}

func (e *Envelope) setEnvelope(env Envelope) { *e = env }

// enveloped is satisfied by every response type through the embedded
// Envelope.
type enveloped interface {
	setEnvelope(Envelope)
}

// ErrorInfo carries a failed operation's classification and message so
// callers can decide between retrying, fixing their request, and giving
// up.
type ErrorInfo struct {
	Class   string `json:"class"` // "transient", "invalid", "fatal"
	Message string `json:"message"`
}

// errorInfo renders err for the wire.
func errorInfo(err error) *ErrorInfo {
	if err == nil {
		return nil
	}
	return &ErrorInfo{
		Class:   errors.Classify(err).String(),
		Message: err.Error(),
	}
}

// EntityInfo is one row of an entity listing.
type EntityInfo struct {
	Name  string `json:"name"`
	Class string `json:"class"`
}

// EntityListResponse answers {prefix}.entity.list.
type EntityListResponse struct {
	Envelope
	Entities []EntityInfo `json:"entities"`
}

// EntityDescribeRequest selects the entity to describe.
type EntityDescribeRequest struct {
	Name string `json:"name"`
}

// SignalInfo describes one directory entry of an entity.
type SignalInfo struct {
	Name  string `json:"name"` // short name, the directory key
	Type  string `json:"type"`
	Input bool   `json:"input"`
	Ready bool   `json:"ready"`
	Time  int64  `json:"time"`
}

// CommandInfo describes one command of an entity.
type CommandInfo struct {
	Name string `json:"name"`
	Doc  string `json:"doc"`
}

// EntityDescribeResponse answers {prefix}.entity.describe.
type EntityDescribeResponse struct {
	Envelope
	Name     string        `json:"name"`
	Class    string        `json:"class"`
	Doc      string        `json:"doc,omitempty"`
	Signals  []SignalInfo  `json:"signals"`
	Commands []CommandInfo `json:"commands"`
}

// SignalGetRequest selects the signal to read by its dotted
// "entity.signal" path. Time selects the read stamp; zero means the
// signal's current stamp, so reading never forces a recomputation by
// default.
type SignalGetRequest struct {
	Signal string `json:"signal"`
	Time   int64  `json:"time,omitempty"`
}

// SignalGetResponse answers {prefix}.signal.get.
type SignalGetResponse struct {
	Envelope
	Signal string `json:"signal"`
	Type   string `json:"type"`
	Value  string `json:"value"`
	Time   int64  `json:"time"`
	Ready  bool   `json:"ready"`
}

// SignalSetRequest assigns a string-encoded value to a signal by its
// dotted path.
type SignalSetRequest struct {
	Signal string `json:"signal"`
	Value  string `json:"value"`
}

// SignalSetResponse answers {prefix}.signal.set.
type SignalSetResponse struct {
	Envelope
	Signal string `json:"signal"`
	Value  string `json:"value"`
}

// CommandExecRequest invokes a named command of an entity.
type CommandExecRequest struct {
	Entity  string   `json:"entity"`
	Command string   `json:"command"`
	Args    []string `json:"args,omitempty"`
}

// CommandExecResponse answers {prefix}.command.exec.
type CommandExecResponse struct {
	Envelope
	Entity  string `json:"entity"`
	Command string `json:"command"`
	Result  string `json:"result,omitempty"`
}

// GraphDotResponse answers {prefix}.graph.dot with the whole graph in
// DOT syntax.
type GraphDotResponse struct {
	Envelope
	Graph string `json:"graph"`
	Dot   string `json:"dot"`
}

// CompletionResponse answers {prefix}.completion with the tokens
// interactive shells complete on: entity names and the dotted signal
// and command paths under them.
type CompletionResponse struct {
	Envelope
	Tokens []string `json:"tokens"`
}

// HealthResponse answers {prefix}.health.
type HealthResponse struct {
	Envelope
	Health health.Status `json:"health"`
}

// basicResponse is the bare envelope used for replies that carry no
// payload, such as error replies and unparseable requests.
type basicResponse struct {
	Envelope
}
