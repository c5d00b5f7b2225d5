// Package remote exposes a running graph over NATS request-reply.
//
// # Overview
//
// The remote server is the process boundary of a graph: everything the
// in-process API offers for poking at entities, signals and commands is
// mirrored onto NATS subjects so operators and tools can inspect and
// steer a live controller without linking against it. Requests and
// responses are JSON documents; every response carries an envelope with
// the request id, an ok flag and a classified error when the operation
// failed.
//
// # Subjects
//
// All subjects share one configurable prefix (default "dg"):
//
//	{prefix}.entity.list      enumerate entities and their classes
//	{prefix}.entity.describe  one entity's signals, commands and doc
//	{prefix}.signal.get       read a signal value by dotted path
//	{prefix}.signal.set       assign a constant to a signal
//	{prefix}.command.exec     run an entity command with arguments
//	{prefix}.graph.dot        render the wiring in DOT syntax
//	{prefix}.completion       entity, signal and command tokens for shells
//	{prefix}.health           aggregate or server health status
//
// Run one server per graph and disambiguate with the prefix, e.g.
// "dg.arm" and "dg.base".
//
// # Consistency
//
// Directory reads (entity.list, entity.describe, completion, graph.dot)
// go straight to the registry under its own locking. Operations that
// touch signal state (signal.get, signal.set, command.exec) are
// funneled through the engine's submit queue when a Submitter is
// attached, so they execute on the evaluation goroutine between ticks
// and can never observe or produce a half-evaluated graph. Without a
// submitter (or while the engine loop is stopped) they run directly,
// which is safe precisely because nothing else is evaluating.
//
// # Values
//
// signal.get and signal.set speak the command codec: values cross the
// wire as strings and are parsed or formatted per the signal's value
// type (bool, int, int64, float64, string). Signals carrying other
// types answer with a type mismatch error. A get with time zero reads
// at the signal's current stamp, so it returns the memo instead of
// forcing a recomputation; a non-zero time evaluates at that tick.
//
// # Usage
//
//	server, err := remote.NewServer("arm", reg, natsClient,
//	    remote.WithSubjectPrefix("dg.arm"),
//	    remote.WithSubmitter(eng),
//	    remote.WithMonitor(monitor),
//	    remote.WithLogger(logger),
//	    remote.WithMetrics(metricsRegistry),
//	)
//	if err != nil {
//	    return err
//	}
//	if err := server.Start(ctx); err != nil {
//	    return err
//	}
//	defer server.Stop(5 * time.Second)
//
// A client needs nothing from this package beyond the types:
//
//	data, _ := json.Marshal(remote.SignalGetRequest{Signal: "clock.time"})
//	raw, err := natsClient.Request(ctx, "dg.arm.signal.get", data)
//	if err != nil {
//	    return err
//	}
//	var resp remote.SignalGetResponse
//	if err := json.Unmarshal(raw, &resp); err != nil {
//	    return err
//	}
//	if !resp.OK {
//	    return fmt.Errorf("signal.get: %s: %s", resp.Error.Class, resp.Error.Message)
//	}
//
// # Error Handling
//
// Handler failures never drop a request: the reply is an envelope with
// ok=false and the error's class ("transient", "invalid", "fatal") and
// message, so callers can decide whether to retry. Requests received
// while the server is not running answer with an invalid-class error
// rather than timing out the requester.
package remote
