package cqrs

import (
	"sync"

	"github.com/tmick/go-tmick/framework/container"
)

// HandlerRegistration is one handler-class → target-type binding.
type HandlerRegistration struct {
	Definition *container.ServiceDefinition
	Target     string
	Kind       Kind
}

// Registry is the table of command/query/event bindings plus the set of all
// service definitions eligible for the kernel's auto-scan. It is an owned
// instance — each kernel creates (or is handed) its own, so independent
// framework instances in one process never share registration state.
type Registry struct {
	mu sync.RWMutex

	commands     map[string]*container.ServiceDefinition
	commandOrder []string
	queries      map[string]*container.ServiceDefinition
	queryOrder   []string
	events       map[string][]*container.ServiceDefinition
	eventOrder   []string

	defs []*container.ServiceDefinition
	seen map[*container.ServiceDefinition]struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	r := &Registry{}
	r.reset()
	return r
}

func (r *Registry) reset() {
	r.commands = make(map[string]*container.ServiceDefinition)
	r.commandOrder = nil
	r.queries = make(map[string]*container.ServiceDefinition)
	r.queryOrder = nil
	r.events = make(map[string][]*container.ServiceDefinition)
	r.eventOrder = nil
	r.defs = nil
	r.seen = make(map[*container.ServiceDefinition]struct{})
}

// ── Registration ──────────────────────────────────────────────────────────────

// RegisterCommandHandler binds a handler definition to the command type of
// the prototype. At most one command handler may exist per target type; a
// duplicate fails with DuplicateHandlerError naming the type.
func (r *Registry) RegisterCommandHandler(def *container.ServiceDefinition, command any) error {
	target := MessageName(command)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.commands[target]; exists {
		return DuplicateHandlerError{Kind: KindCommand, Target: target}
	}
	r.commands[target] = def
	r.commandOrder = append(r.commandOrder, target)
	r.addService(def)
	return nil
}

// RegisterQueryHandler binds a handler definition to the query type of the
// prototype, with the same uniqueness rule as commands.
func (r *Registry) RegisterQueryHandler(def *container.ServiceDefinition, query any) error {
	target := MessageName(query)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.queries[target]; exists {
		return DuplicateHandlerError{Kind: KindQuery, Target: target}
	}
	r.queries[target] = def
	r.queryOrder = append(r.queryOrder, target)
	r.addService(def)
	return nil
}

// RegisterEventHandler appends a handler definition for the event type of
// the prototype. Event types take any number of handlers; insertion order
// is preserved and all of them are invoked on dispatch.
func (r *Registry) RegisterEventHandler(def *container.ServiceDefinition, event any) {
	target := MessageName(event)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, known := r.events[target]; !known {
		r.eventOrder = append(r.eventOrder, target)
	}
	r.events[target] = append(r.events[target], def)
	r.addService(def)
}

// RegisterService adds a definition to the auto-scan set. Adding the same
// definition again is a no-op, so a class bound as several handlers is
// still scanned once.
func (r *Registry) RegisterService(def *container.ServiceDefinition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.addService(def)
}

// addService is the idempotent append (must hold mu).
func (r *Registry) addService(def *container.ServiceDefinition) {
	if _, dup := r.seen[def]; dup {
		return
	}
	r.seen[def] = struct{}{}
	r.defs = append(r.defs, def)
}

// ── Introspection ─────────────────────────────────────────────────────────────

// Registrations flattens the three binding tables into one list: all
// commands, then all queries, then all events, each in registration order.
// Only the command/query/event grouping is a stable guarantee.
func (r *Registry) Registrations() []HandlerRegistration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]HandlerRegistration, 0,
		len(r.commandOrder)+len(r.queryOrder)+len(r.eventOrder))
	for _, target := range r.commandOrder {
		out = append(out, HandlerRegistration{Definition: r.commands[target], Target: target, Kind: KindCommand})
	}
	for _, target := range r.queryOrder {
		out = append(out, HandlerRegistration{Definition: r.queries[target], Target: target, Kind: KindQuery})
	}
	for _, target := range r.eventOrder {
		for _, def := range r.events[target] {
			out = append(out, HandlerRegistration{Definition: def, Target: target, Kind: KindEvent})
		}
	}
	return out
}

// Definitions returns the auto-scan set in insertion order.
func (r *Registry) Definitions() []*container.ServiceDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*container.ServiceDefinition, len(r.defs))
	copy(out, r.defs)
	return out
}

// Clear empties every binding table and the service set. This is the
// framework's reset primitive; nothing survives it.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reset()
}
