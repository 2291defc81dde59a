// Package app provides the Tmick kernel: the composition root tying the
// container, the handler registry and the three dispatchers together.
package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/tmick/go-tmick/framework/container"
	"github.com/tmick/go-tmick/framework/cqrs"
)

// Lifecycle errors. The message strings are part of the framework's API
// surface and are matched by callers.
var (
	ErrNotInitialized     = errors.New("Tmick Framework not initialized. Call initialize() first.")
	ErrAlreadyInitialized = errors.New("Tmick Framework already initialized.")
)

// Tmick is the framework kernel. It owns a container, a handler registry
// and — after scanning — the three dispatchers. Lifecycle:
//
//	t := app.New()
//	// register definitions and handler bindings on t.Registry()
//	err := t.AutoScanAndRegister()
//	err = t.Initialize()
//	result, err := t.ExecuteCommand(ctx, CreateNote{...})
//	t.Dispose()
//
// Dispose is the only full reset; afterwards the kernel is back in its
// constructed state with an empty registry.
type Tmick struct {
	log      *zap.Logger
	services *container.Services
	registry *cqrs.Registry

	commands *cqrs.CommandDispatcher
	queries  *cqrs.QueryDispatcher
	events   *cqrs.EventDispatcher

	processed   map[*container.ServiceDefinition]struct{}
	scanned     bool
	initialized bool
}

// Option configures a kernel.
type Option func(*Tmick)

// WithLogger sets the kernel (and container) logger. Default is a no-op
// logger.
func WithLogger(log *zap.Logger) Option {
	return func(t *Tmick) { t.log = log }
}

// WithRegistry hands the kernel a pre-populated handler registry instead of
// an empty one. The kernel takes ownership — Dispose clears it.
func WithRegistry(r *cqrs.Registry) Option {
	return func(t *Tmick) { t.registry = r }
}

// New creates a kernel in its constructed state.
func New(opts ...Option) *Tmick {
	t := &Tmick{
		log:       zap.NewNop(),
		registry:  cqrs.NewRegistry(),
		processed: make(map[*container.ServiceDefinition]struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	c := container.New(container.WithLogger(t.log))
	t.services = container.NewServices(c)
	return t
}

// Registry exposes the kernel's handler registry for startup wiring.
func (t *Tmick) Registry() *cqrs.Registry { return t.registry }

// Services exposes the registration facade for startup wiring.
func (t *Tmick) Services() *container.Services { return t.services }

// ── Scan ──────────────────────────────────────────────────────────────────────

// AutoScanAndRegister registers every definition in the registry's service
// set with the container, then builds the three dispatchers and wires every
// handler binding into them. Definitions already processed are skipped, so
// re-entrant calls are harmless.
func (t *Tmick) AutoScanAndRegister() error {
	for _, def := range t.registry.Definitions() {
		if _, done := t.processed[def]; done {
			continue
		}
		if err := t.services.RegisterDefinition(def); err != nil {
			return err
		}
		t.processed[def] = struct{}{}
		t.log.Debug("registered service", zap.String("type", def.TypeID().String()))
	}

	// Dispatchers are built and wired exactly once; a re-entrant scan only
	// picks up definitions added since the first pass.
	if t.scanned {
		return nil
	}

	if err := t.registerDispatchers(); err != nil {
		return err
	}

	for _, reg := range t.registry.Registrations() {
		id := reg.Definition.ID()
		var err error
		switch reg.Kind {
		case cqrs.KindCommand:
			err = t.commands.RegisterHandler(reg.Target, id)
		case cqrs.KindQuery:
			err = t.queries.RegisterHandler(reg.Target, id)
		case cqrs.KindEvent:
			t.events.RegisterHandler(reg.Target, id)
		}
		if err != nil {
			return err
		}
		t.log.Debug("wired handler",
			zap.String("kind", string(reg.Kind)),
			zap.String("target", reg.Target))
	}

	t.scanned = true
	return nil
}

// registerDispatchers registers the dispatcher singletons, resolves them and
// re-registers each instance under its well-known token so services depend
// on the token, not the concrete type.
func (t *Tmick) registerDispatchers() error {
	type wiring struct {
		def   *container.ServiceDefinition
		token *container.Token
		bind  func(any) error
	}
	wirings := []wiring{
		{
			def: container.Define((*cqrs.CommandDispatcher)(nil), func(deps ...any) (any, error) {
				return cqrs.NewCommandDispatcher(deps[0].(*container.Container)), nil
			}).DependsOn(container.ContainerToken).Definition(),
			token: cqrs.CommandDispatcherToken,
			bind: func(v any) error {
				d, ok := v.(*cqrs.CommandDispatcher)
				if !ok {
					return fmt.Errorf("app: command dispatcher resolved to %T", v)
				}
				t.commands = d
				return nil
			},
		},
		{
			def: container.Define((*cqrs.QueryDispatcher)(nil), func(deps ...any) (any, error) {
				return cqrs.NewQueryDispatcher(deps[0].(*container.Container)), nil
			}).DependsOn(container.ContainerToken).Definition(),
			token: cqrs.QueryDispatcherToken,
			bind: func(v any) error {
				d, ok := v.(*cqrs.QueryDispatcher)
				if !ok {
					return fmt.Errorf("app: query dispatcher resolved to %T", v)
				}
				t.queries = d
				return nil
			},
		},
		{
			def: container.Define((*cqrs.EventDispatcher)(nil), func(deps ...any) (any, error) {
				return cqrs.NewEventDispatcher(deps[0].(*container.Container)), nil
			}).DependsOn(container.ContainerToken).Definition(),
			token: cqrs.EventDispatcherToken,
			bind: func(v any) error {
				d, ok := v.(*cqrs.EventDispatcher)
				if !ok {
					return fmt.Errorf("app: event dispatcher resolved to %T", v)
				}
				t.events = d
				return nil
			},
		},
	}

	for _, w := range wirings {
		if err := t.services.RegisterDefinition(w.def); err != nil {
			return err
		}
		instance, err := t.services.Get(w.def.ID())
		if err != nil {
			return err
		}
		if err := w.bind(instance); err != nil {
			return err
		}
		t.services.Instance(w.token, instance)
	}
	return nil
}

// ── Lifecycle ─────────────────────────────────────────────────────────────────

// Initialize moves the kernel into its initialized state. When the scan has
// not run yet it is run first. Calling Initialize twice fails.
func (t *Tmick) Initialize() error {
	if t.initialized {
		return ErrAlreadyInitialized
	}
	if !t.scanned {
		if err := t.AutoScanAndRegister(); err != nil {
			return err
		}
	}
	t.initialized = true
	t.log.Info("framework initialized")
	return nil
}

// Dispose clears the container and the handler registry and resets the
// kernel to its constructed state. It is idempotent and valid in any state.
func (t *Tmick) Dispose() {
	t.services.Clear()
	t.registry.Clear()
	t.processed = make(map[*container.ServiceDefinition]struct{})
	t.commands = nil
	t.queries = nil
	t.events = nil
	t.scanned = false
	t.initialized = false
	t.log.Info("framework disposed")
}

// ── Execution ─────────────────────────────────────────────────────────────────

// ExecuteCommand dispatches a command to its handler and returns the
// handler's result.
func (t *Tmick) ExecuteCommand(ctx context.Context, cmd any) (any, error) {
	if !t.initialized {
		return nil, ErrNotInitialized
	}
	return t.commands.Dispatch(ctx, cmd)
}

// ExecuteQuery dispatches a query to its handler and returns the result.
func (t *Tmick) ExecuteQuery(ctx context.Context, query any) (any, error) {
	if !t.initialized {
		return nil, ErrNotInitialized
	}
	return t.queries.Dispatch(ctx, query)
}

// DispatchEvents dispatches events in order, fanning each one out to all of
// its handlers.
func (t *Tmick) DispatchEvents(ctx context.Context, events ...any) error {
	if !t.initialized {
		return ErrNotInitialized
	}
	return t.events.Dispatch(ctx, events...)
}

// Get resolves a service from the container.
func (t *Tmick) Get(id container.Identifier) (any, error) {
	if !t.initialized {
		return nil, ErrNotInitialized
	}
	return t.services.Get(id)
}

// GetContainer returns the underlying container core.
func (t *Tmick) GetContainer() (*container.Container, error) {
	if !t.initialized {
		return nil, ErrNotInitialized
	}
	return t.services.Container(), nil
}

// ── Debug ─────────────────────────────────────────────────────────────────────

// DebugInfo is a snapshot of kernel state for diagnostics.
type DebugInfo struct {
	RegisteredServices   []string
	HandlerRegistrations []string
	ScannedDefinitions   int
	Initialized          bool
	ContainerStats       container.Stats
}

// GetDebugInfo reports the kernel's current state. Unlike the execution
// methods it is valid in any lifecycle state.
func (t *Tmick) GetDebugInfo() DebugInfo {
	core := t.services.Container()
	regs := t.registry.Registrations()
	lines := make([]string, 0, len(regs))
	for _, reg := range regs {
		lines = append(lines, fmt.Sprintf("%s %s -> %s", reg.Kind, reg.Target, reg.Definition.TypeID()))
	}
	return DebugInfo{
		RegisteredServices:   core.Registered(),
		HandlerRegistrations: lines,
		ScannedDefinitions:   len(t.processed),
		Initialized:          t.initialized,
		ContainerStats:       core.Stats(),
	}
}
