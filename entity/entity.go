package entity

import (
	"fmt"
	"io"
	"maps"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/nim65s/dynamic-graph/command"
	"github.com/nim65s/dynamic-graph/errors"
	"github.com/nim65s/dynamic-graph/logger"
	"github.com/nim65s/dynamic-graph/signal"
)

// noCopy triggers a go vet warning when an Entity is copied by value.
// Entities are identity objects: the registry, the signals and the
// commands all hold the one true instance.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// Entity is a named node of the computation graph. It owns a directory
// of signals keyed by short name, a directory of commands, and a
// diagnostic logger. Concrete entity types embed *Entity and add their
// signals and commands during construction.
//
// An entity is registered in exactly one registry from base construction
// until Destroy. Structural mutation (registering signals and commands,
// destroying) follows the single-threaded wiring discipline of the
// signal package.
type Entity struct {
	noCopy noCopy

	name      string
	className string
	docString string

	signals  map[string]signal.Base
	commands map[string]command.Command

	log       *logger.Logger
	registry  *Registry
	destroyed bool
}

// NewInRegistry creates an entity of the given class and registers it in
// reg as the final step of construction, so a registered entity always
// starts with empty directories. An empty className defaults to "Entity";
// an empty name is replaced by a generated unique one. Fails when a live
// entity already holds the name.
func NewInRegistry(reg *Registry, className, name string) (*Entity, error) {
	if reg == nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "Entity", "NewInRegistry",
			"nil registry")
	}
	if className == "" {
		className = "Entity"
	}
	if name == "" {
		name = strings.ToLower(className) + "-" + uuid.NewString()[:8]
	}

	e := &Entity{
		name:      name,
		className: className,
		signals:   make(map[string]signal.Base),
		commands:  make(map[string]command.Command),
		log:       logger.New(name),
	}
	if err := reg.add(e); err != nil {
		return nil, err
	}
	e.registry = reg
	return e, nil
}

// New creates an entity registered in the default registry.
func New(className, name string) (*Entity, error) {
	return NewInRegistry(Default, className, name)
}

// Name returns the instance name.
func (e *Entity) Name() string { return e.name }

// ClassName returns the class name, "Entity" for a plain base.
func (e *Entity) ClassName() string { return e.className }

// DocString returns the class documentation shown by interactive tools.
func (e *Entity) DocString() string { return e.docString }

// SetDocString sets the class documentation.
func (e *Entity) SetDocString(doc string) { e.docString = doc }

// Registered reports whether the entity is still held by its registry.
func (e *Entity) Registered() bool { return e.registry != nil }

// String returns the one-line summary
// "ClassName(name): N signals, M commands".
func (e *Entity) String() string {
	return fmt.Sprintf("%s(%s): %d signals, %d commands",
		e.className, e.name, len(e.signals), len(e.commands))
}

// Display writes the one-line summary used by interactive listings.
func (e *Entity) Display(w io.Writer) {
	fmt.Fprint(w, e.String())
}

// RegisterSignal adds signals to the directory under their short names
// and binds each one to this entity. Registration stops at the first
// failure, leaving the signals registered so far in place. A short name
// already present fails with ErrDuplicateSignalName; a signal bound
// elsewhere fails with ErrSignalAlreadyBound.
func (e *Entity) RegisterSignal(sigs ...signal.Base) error {
	if e.destroyed {
		return errors.WrapFatal(errors.ErrUnregisteredAccess, "Entity", "RegisterSignal",
			fmt.Sprintf("entity %s destroyed", e.name))
	}
	for _, s := range sigs {
		key := s.ShortName()
		if _, exists := e.signals[key]; exists {
			return errors.WrapInvalid(errors.ErrDuplicateSignalName, "Entity", "RegisterSignal",
				fmt.Sprintf("registering %q in entity %s", key, e.name))
		}
		if err := s.Bind(e.name); err != nil {
			return errors.Wrap(err, "Entity", "RegisterSignal",
				fmt.Sprintf("binding %q to entity %s", key, e.name))
		}
		e.signals[key] = s
	}
	return nil
}

// DeregisterSignal removes the named signal from the directory and
// revokes it, so stale references fail loudly instead of reading a dead
// value. Deregistering an absent name is a no-op.
func (e *Entity) DeregisterSignal(name string) {
	s, exists := e.signals[name]
	if !exists {
		return
	}
	s.Unbind()
	delete(e.signals, name)
}

// HasSignal reports whether the directory holds the short name.
func (e *Entity) HasSignal(name string) bool {
	_, exists := e.signals[name]
	return exists
}

// Signal returns the signal registered under the short name.
func (e *Entity) Signal(name string) (signal.Base, error) {
	s, exists := e.signals[name]
	if !exists {
		return nil, errors.WrapInvalid(errors.ErrSignalNotFound, "Entity", "Signal",
			fmt.Sprintf("looking up %q in entity %s", name, e.name))
	}
	return s, nil
}

// SignalMap returns a copy of the signal directory.
func (e *Entity) SignalMap() map[string]signal.Base {
	result := make(map[string]signal.Base, len(e.signals))
	maps.Copy(result, e.signals)
	return result
}

// SignalNames returns the registered short names in sorted order.
func (e *Entity) SignalNames() []string {
	return slices.Sorted(maps.Keys(e.signals))
}

// DisplaySignalList writes the signal directory in the interactive
// listing format.
func (e *Entity) DisplaySignalList(w io.Writer) {
	fmt.Fprintf(w, "--- <%s> signal list:\n", e.name)
	names := e.SignalNames()
	for i, name := range names {
		prefix := "    |--"
		if i == len(names)-1 {
			prefix = "    `--"
		}
		fmt.Fprintf(w, "%s <", prefix)
		e.signals[name].Display(w)
		fmt.Fprintln(w, ">")
	}
}

// WriteGraph writes this entity's incoming plug edges as dot fragments.
// Only wiring between directory-registered signals appears: an upstream
// signal with no owner has no node to draw the edge from.
func (e *Entity) WriteGraph(w io.Writer) error {
	for _, name := range e.SignalNames() {
		s := e.signals[name]
		src := s.Source()
		if src == nil || src.Owner() == "" {
			continue
		}
		_, err := fmt.Fprintf(w, "\t\"%s\" -> \"%s\" [label=\"%s -> %s\"];\n",
			src.Owner(), e.name, src.ShortName(), s.ShortName())
		if err != nil {
			return errors.WrapTransient(err, "Entity", "WriteGraph",
				fmt.Sprintf("writing edges of %s", e.name))
		}
	}
	return nil
}

// WriteCompletionList writes the token set interactive shells complete
// on: the entity name, one "entity.signal" line per registered signal,
// then one "entity.command" line per command, each group sorted.
func (e *Entity) WriteCompletionList(w io.Writer) {
	fmt.Fprintln(w, e.name)
	for _, name := range e.SignalNames() {
		fmt.Fprintf(w, "%s.%s\n", e.name, name)
	}
	for _, name := range e.CommandList() {
		fmt.Fprintf(w, "%s.%s\n", e.name, name)
	}
}

// AddCommand registers a named command. Fails with
// ErrDuplicateCommandName when the name is taken.
func (e *Entity) AddCommand(name string, cmd command.Command) error {
	if e.destroyed {
		return errors.WrapFatal(errors.ErrUnregisteredAccess, "Entity", "AddCommand",
			fmt.Sprintf("entity %s destroyed", e.name))
	}
	if cmd == nil {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Entity", "AddCommand",
			fmt.Sprintf("nil command %q", name))
	}
	if _, exists := e.commands[name]; exists {
		return errors.WrapInvalid(errors.ErrDuplicateCommandName, "Entity", "AddCommand",
			fmt.Sprintf("registering %q in entity %s", name, e.name))
	}
	e.commands[name] = cmd
	return nil
}

// Command returns the named command.
func (e *Entity) Command(name string) (command.Command, error) {
	cmd, exists := e.commands[name]
	if !exists {
		return nil, errors.WrapInvalid(errors.ErrCommandNotFound, "Entity", "Command",
			fmt.Sprintf("looking up %q in entity %s", name, e.name))
	}
	return cmd, nil
}

// CommandMap returns a copy of the command directory.
func (e *Entity) CommandMap() map[string]command.Command {
	result := make(map[string]command.Command, len(e.commands))
	maps.Copy(result, e.commands)
	return result
}

// CommandList returns the registered command names in sorted order.
func (e *Entity) CommandList() []string {
	return slices.Sorted(maps.Keys(e.commands))
}

// Logger returns the entity's diagnostic channel.
func (e *Entity) Logger() *logger.Logger { return e.log }

// SendMsg logs msg with the caller's file and line as origin.
func (e *Entity) SendMsg(msg string, typ logger.MsgType) {
	file, line := "", 0
	if _, f, ln, ok := runtime.Caller(1); ok {
		file, line = filepath.Base(f), ln
	}
	e.log.SendWithOrigin(typ, msg, file, line)
}

// SetLoggerVerbosity changes which severities the entity emits.
func (e *Entity) SetLoggerVerbosity(v logger.Verbosity) { e.log.SetVerbosity(v) }

// LoggerVerbosity returns the current verbosity.
func (e *Entity) LoggerVerbosity() logger.Verbosity { return e.log.Verbosity() }

// SetTimeSample sets the logger's seconds-per-tick. Returns false for
// non-positive values.
func (e *Entity) SetTimeSample(dt float64) bool { return e.log.SetTimeSample(dt) }

// TimeSample returns the logger's seconds-per-tick.
func (e *Entity) TimeSample() float64 { return e.log.TimeSample() }

// SetStreamPrintPeriod sets the minimum seconds between stream emissions
// per origin. Returns false for non-positive values.
func (e *Entity) SetStreamPrintPeriod(p float64) bool { return e.log.SetStreamPrintPeriod(p) }

// StreamPrintPeriod returns the minimum seconds between stream emissions
// per origin.
func (e *Entity) StreamPrintPeriod() float64 { return e.log.StreamPrintPeriod() }

// Destroy tears the entity down: it leaves the registry first, so
// lookups fail before any state is dismantled, then revokes every
// signal and closes every command that owns resources. Holders of stale
// signal references get ErrUnregisteredAccess on their next read.
// Destroy is idempotent.
func (e *Entity) Destroy() {
	if e.destroyed {
		return
	}
	e.destroyed = true

	if e.registry != nil {
		e.registry.remove(e.name, e)
		e.registry = nil
	}

	for name, s := range e.signals {
		s.Unbind()
		delete(e.signals, name)
	}

	for name, cmd := range e.commands {
		if closer, ok := cmd.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				e.log.Send(logger.MsgTypeError,
					fmt.Sprintf("closing command %s: %v", name, err))
			}
		}
		delete(e.commands, name)
	}
}
