package cqrs

import (
	"context"
	"reflect"
)

// Kind classifies a message binding.
type Kind string

const (
	KindCommand Kind = "command"
	KindQuery   Kind = "query"
	KindEvent   Kind = "event"
)

// CommandHandler executes one command type and returns its result.
type CommandHandler interface {
	Handle(ctx context.Context, cmd any) (any, error)
}

// QueryHandler answers one query type with a read-only result.
type QueryHandler interface {
	Handle(ctx context.Context, query any) (any, error)
}

// EventHandler reacts to one event type. Events are notifications of past
// facts; handlers return only an error.
type EventHandler interface {
	Handle(ctx context.Context, event any) error
}

// MessageName derives the type name a message is dispatched under: the bare
// type name of the (dereferenced) runtime type.
func MessageName(msg any) string {
	t := reflect.TypeOf(msg)
	if t == nil {
		return ""
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// ── Errors ────────────────────────────────────────────────────────────────────

// DuplicateHandlerError is returned when a second command or query handler
// is registered for a target type that already has one.
type DuplicateHandlerError struct {
	Kind   Kind
	Target string
}

func (e DuplicateHandlerError) Error() string {
	return "cqrs: " + string(e.Kind) + " handler already registered for '" + e.Target + "'"
}

// NoHandlerError is returned when a command or query is dispatched and no
// handler is bound to its type name.
type NoHandlerError struct {
	Kind Kind
	Name string
}

func (e NoHandlerError) Error() string {
	return "No handler registered for " + string(e.Kind) + " '" + e.Name + "'"
}
