package cqrs

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/tmick/go-tmick/framework/container"
)

// Well-known identifiers the kernel re-registers each dispatcher instance
// under, so services depend on a token rather than a concrete dispatcher
// type.
var (
	CommandDispatcherToken = container.NewToken("tmick.dispatcher.command")
	QueryDispatcherToken   = container.NewToken("tmick.dispatcher.query")
	EventDispatcherToken   = container.NewToken("tmick.dispatcher.event")
)

// ── CommandDispatcher ─────────────────────────────────────────────────────────

// CommandDispatcher routes a command to the single handler bound to its type
// name. Handlers are resolved from the container lazily, at dispatch time.
type CommandDispatcher struct {
	mu       sync.RWMutex
	c        *container.Container
	handlers map[string]container.Identifier
}

// NewCommandDispatcher creates a dispatcher resolving handlers from c.
func NewCommandDispatcher(c *container.Container) *CommandDispatcher {
	return &CommandDispatcher{c: c, handlers: make(map[string]container.Identifier)}
}

// RegisterHandler binds a command type name to a handler identifier. A
// second binding for the same name fails.
func (d *CommandDispatcher) RegisterHandler(name string, handler container.Identifier) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.handlers[name]; exists {
		return DuplicateHandlerError{Kind: KindCommand, Target: name}
	}
	d.handlers[name] = handler
	return nil
}

// Dispatch resolves the handler for the command's type name and invokes it,
// returning the handler's result and error unchanged.
func (d *CommandDispatcher) Dispatch(ctx context.Context, cmd any) (any, error) {
	name := MessageName(cmd)
	d.mu.RLock()
	id, ok := d.handlers[name]
	d.mu.RUnlock()
	if !ok {
		return nil, NoHandlerError{Kind: KindCommand, Name: name}
	}
	handler, err := resolveAs[CommandHandler](d.c, id)
	if err != nil {
		return nil, err
	}
	return handler.Handle(ctx, cmd)
}

// ── QueryDispatcher ───────────────────────────────────────────────────────────

// QueryDispatcher is shaped like CommandDispatcher but routes read-only
// queries to their handlers.
type QueryDispatcher struct {
	mu       sync.RWMutex
	c        *container.Container
	handlers map[string]container.Identifier
}

// NewQueryDispatcher creates a dispatcher resolving handlers from c.
func NewQueryDispatcher(c *container.Container) *QueryDispatcher {
	return &QueryDispatcher{c: c, handlers: make(map[string]container.Identifier)}
}

// RegisterHandler binds a query type name to a handler identifier. A second
// binding for the same name fails.
func (d *QueryDispatcher) RegisterHandler(name string, handler container.Identifier) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.handlers[name]; exists {
		return DuplicateHandlerError{Kind: KindQuery, Target: name}
	}
	d.handlers[name] = handler
	return nil
}

// Dispatch resolves the handler for the query's type name and invokes it.
func (d *QueryDispatcher) Dispatch(ctx context.Context, query any) (any, error) {
	name := MessageName(query)
	d.mu.RLock()
	id, ok := d.handlers[name]
	d.mu.RUnlock()
	if !ok {
		return nil, NoHandlerError{Kind: KindQuery, Name: name}
	}
	handler, err := resolveAs[QueryHandler](d.c, id)
	if err != nil {
		return nil, err
	}
	return handler.Handle(ctx, query)
}

// ── EventDispatcher ───────────────────────────────────────────────────────────

// EventDispatcher fans one event out to every handler bound to its type
// name. Handlers for one event run concurrently; events in one Dispatch
// call run strictly in order, each batch fully settled before the next
// event starts.
type EventDispatcher struct {
	mu       sync.RWMutex
	c        *container.Container
	handlers map[string][]container.Identifier
}

// NewEventDispatcher creates a dispatcher resolving handlers from c.
func NewEventDispatcher(c *container.Container) *EventDispatcher {
	return &EventDispatcher{c: c, handlers: make(map[string][]container.Identifier)}
}

// RegisterHandler appends a handler identifier for an event type name.
// Event bindings have no uniqueness constraint; order is preserved.
func (d *EventDispatcher) RegisterHandler(name string, handler container.Identifier) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[name] = append(d.handlers[name], handler)
}

// Dispatch processes events in the given order. Per event, all bound
// handlers are resolved, invoked concurrently and waited on before the next
// event begins. Event types with no handlers are skipped silently. The
// first handler failure fails that event's batch and aborts the remaining
// events.
func (d *EventDispatcher) Dispatch(ctx context.Context, events ...any) error {
	for _, event := range events {
		name := MessageName(event)
		d.mu.RLock()
		ids := d.handlers[name]
		d.mu.RUnlock()
		if len(ids) == 0 {
			continue
		}

		handlers := make([]EventHandler, len(ids))
		for i, id := range ids {
			h, err := resolveAs[EventHandler](d.c, id)
			if err != nil {
				return err
			}
			handlers[i] = h
		}

		errs := make([]error, len(handlers))
		var wg sync.WaitGroup
		for i, h := range handlers {
			wg.Add(1)
			go func(i int, h EventHandler) {
				defer wg.Done()
				errs[i] = h.Handle(ctx, event)
			}(i, h)
		}
		wg.Wait()

		for _, err := range errs {
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// resolveAs resolves a handler identifier and asserts its interface.
func resolveAs[H any](c *container.Container, id container.Identifier) (H, error) {
	var zero H
	raw, err := c.Get(id)
	if err != nil {
		return zero, err
	}
	handler, ok := raw.(H)
	if !ok {
		want := reflect.TypeOf((*H)(nil)).Elem()
		return zero, fmt.Errorf("cqrs: handler [%s] is %T, want %s", id, raw, want)
	}
	return handler, nil
}
