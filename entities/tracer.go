package entities

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/nim65s/dynamic-graph/command"
	"github.com/nim65s/dynamic-graph/entity"
	"github.com/nim65s/dynamic-graph/errors"
	"github.com/nim65s/dynamic-graph/signal"
)

// TracerClassName is the class the tracer factory registers under.
const TracerClassName = "Tracer"

// tracerInputs is how many pluggable channels a tracer owns, named
// in0..in3.
const tracerInputs = 4

// Tracer samples its plugged inputs every time its "trigger" signal
// recomputes and appends one tab-separated line per tick to the open
// trace file. Lines are buffered and flushed when the file closes, so
// tracing inside the control period stays cheap. With no file open the
// trigger is a no-op, which lets a graph keep trace.trigger as a
// terminal and switch recording on and off with the open and close
// commands.
type Tracer struct {
	*entity.Entity

	inputs  [tracerInputs]*signal.Input[float64]
	trigger *signal.Of[int]

	mu      sync.Mutex
	file    *os.File
	buf     *bufio.Writer
	path    string
	samples int
}

// NewTracer builds a tracer entity into reg.
func NewTracer(reg *entity.Registry, name string) (*Tracer, error) {
	base, err := entity.NewInRegistry(reg, TracerClassName, name)
	if err != nil {
		return nil, err
	}

	tr := &Tracer{Entity: base}
	for i := range tr.inputs {
		tr.inputs[i] = signal.NewInput[float64](
			fmt.Sprintf("Tracer(%s)::input(float64)::in%d", base.Name(), i))
	}
	tr.trigger = signal.New[int](fmt.Sprintf("Tracer(%s)::output(int)::trigger", base.Name()))
	tr.trigger.SetFunction(tr.trace)

	sigs := make([]signal.Base, 0, tracerInputs+1)
	for _, in := range tr.inputs {
		sigs = append(sigs, in)
	}
	sigs = append(sigs, tr.trigger)
	if err := base.RegisterSignal(sigs...); err != nil {
		base.Destroy()
		return nil, err
	}

	open := command.NewFunc("Open the trace file at the given path, closing any previous one.",
		func(args []string) (string, error) {
			if len(args) != 1 {
				return "", errors.WrapInvalid(errors.ErrBadArgument, "Tracer", "open",
					fmt.Sprintf("expected 1 argument, got %d", len(args)))
			}
			return tr.Open(args[0])
		})
	if err := base.AddCommand("open", open); err != nil {
		base.Destroy()
		return nil, err
	}
	// The close command doubles as the io.Closer the entity teardown
	// invokes, so a destroyed tracer never leaks its file handle.
	if err := base.AddCommand("close", &closeCommand{tr: tr}); err != nil {
		base.Destroy()
		return nil, err
	}

	base.SetDocString("Appends one line of sampled input values per trigger recomputation to a trace file.")
	return tr, nil
}

// Input returns the i-th pluggable channel.
func (tr *Tracer) Input(i int) *signal.Input[float64] { return tr.inputs[i] }

// Trigger returns the signal whose recomputation performs the trace.
func (tr *Tracer) Trigger() *signal.Of[int] { return tr.trigger }

// Path returns the open trace file path, or "" when closed.
func (tr *Tracer) Path() string {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return tr.path
}

// Samples returns how many lines have been recorded since construction.
func (tr *Tracer) Samples() int {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return tr.samples
}

// Open creates the trace file and writes its header. An already open
// file is closed first.
func (tr *Tracer) Open(path string) (string, error) {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	if err := tr.closeLocked(); err != nil {
		return "", err
	}

	f, err := os.Create(path)
	if err != nil {
		return "", errors.WrapTransient(err, "Tracer", "Open", "creating "+path)
	}
	tr.file = f
	tr.buf = bufio.NewWriter(f)
	tr.path = path

	header := []string{"# tick"}
	for _, in := range tr.traceable() {
		header = append(header, in.ShortName())
	}
	fmt.Fprintln(tr.buf, strings.Join(header, "\t"))

	return "tracing to " + path, nil
}

// CloseFile flushes and closes the trace file. Closing a closed tracer
// is a no-op.
func (tr *Tracer) CloseFile() (string, error) {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	if tr.file == nil {
		return "", nil
	}
	path, n := tr.path, tr.samples
	if err := tr.closeLocked(); err != nil {
		return "", err
	}
	return fmt.Sprintf("closed %s after %d samples", path, n), nil
}

// closeLocked releases the current file under tr.mu.
func (tr *Tracer) closeLocked() error {
	if tr.file == nil {
		return nil
	}
	flushErr := tr.buf.Flush()
	closeErr := tr.file.Close()
	tr.file = nil
	tr.buf = nil
	tr.path = ""
	if flushErr != nil {
		return errors.WrapTransient(flushErr, "Tracer", "close", "flushing trace buffer")
	}
	if closeErr != nil {
		return errors.WrapTransient(closeErr, "Tracer", "close", "closing trace file")
	}
	return nil
}

// trace is the trigger function: sample every traceable input at t and
// append one line. It returns the running sample count.
func (tr *Tracer) trace(t signal.Time) (int, error) {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	if tr.buf == nil {
		return tr.samples, nil
	}

	fields := []string{strconv.FormatInt(int64(t), 10)}
	for _, in := range tr.traceable() {
		v, err := in.Get(t)
		if err != nil {
			return tr.samples, err
		}
		fields = append(fields, strconv.FormatFloat(v, 'g', -1, 64))
	}

	if _, err := fmt.Fprintln(tr.buf, strings.Join(fields, "\t")); err != nil {
		return tr.samples, errors.WrapTransient(err, "Tracer", "trace", "writing to "+tr.path)
	}
	tr.samples++
	return tr.samples, nil
}

// traceable returns the inputs that currently have a value to record:
// plugged ones and those holding a local constant.
func (tr *Tracer) traceable() []*signal.Input[float64] {
	out := make([]*signal.Input[float64], 0, tracerInputs)
	for _, in := range tr.inputs {
		if in.Plugged() || in.Ready() {
			out = append(out, in)
		}
	}
	return out
}

// closeCommand exposes CloseFile as the "close" command and implements
// io.Closer for the entity teardown path.
type closeCommand struct {
	tr *Tracer
}

// Execute implements command.Command.
func (c *closeCommand) Execute(args []string) (string, error) {
	if len(args) != 0 {
		return "", errors.WrapInvalid(errors.ErrBadArgument, "Tracer", "close",
			fmt.Sprintf("expected no arguments, got %d", len(args)))
	}
	return c.tr.CloseFile()
}

// Doc implements command.Command.
func (c *closeCommand) Doc() string {
	return "Flush and close the trace file."
}

// Close implements io.Closer.
func (c *closeCommand) Close() error {
	_, err := c.tr.CloseFile()
	return err
}
