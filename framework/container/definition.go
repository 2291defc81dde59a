package container

import (
	"errors"
	"reflect"
)

// ── Service definitions ───────────────────────────────────────────────────────

// ServiceDefinition is an explicit, statically constructed registration
// record: the type identity of a service, how to build it and what it needs.
// Definitions are assembled by application startup code and fed to the
// Services facade or to the kernel's handler registry — there is no runtime
// reflection over constructors.
type ServiceDefinition struct {
	// Type is the service's type identity.
	Type reflect.Type

	// Identifier optionally overrides the identifier the service is exposed
	// under (commonly a Token). When set, the service is additionally
	// resolvable under it, sharing the same cached singleton.
	Identifier Identifier

	// Singleton selects the lifecycle. Definitions built with Define default
	// to singleton.
	Singleton bool

	// Dependencies is the explicit ordered list of identifiers passed to New,
	// already in declaration order. No positional metadata, no gaps.
	Dependencies []Identifier

	// New builds the service from its resolved dependencies.
	New Constructor
}

// ID returns the identifier the definition is exposed under: the override
// when one is declared, the Typed form of its type otherwise.
func (d *ServiceDefinition) ID() Identifier {
	if d.Identifier != nil {
		return d.Identifier
	}
	return typedOf(d.Type)
}

// TypeID returns the Typed identifier of the definition's type.
func (d *ServiceDefinition) TypeID() Typed {
	return typedOf(d.Type)
}

var (
	errNilPrototype   = errors.New("container: definition needs a non-nil prototype type")
	errNilConstructor = errors.New("container: definition needs a constructor")
)

// Validate checks the definition is complete enough to register.
func (d *ServiceDefinition) Validate() error {
	if d.Type == nil {
		return errNilPrototype
	}
	if d.New == nil {
		return errNilConstructor
	}
	return nil
}

// ── Builder ───────────────────────────────────────────────────────────────────

// DefinitionBuilder assembles a ServiceDefinition fluently.
//
//	def := container.Define((*NoteService)(nil), newNoteService).
//	    Provides(NoteServiceToken).
//	    DependsOn(RepoToken, container.TypeOf(Clock{})).
//	    Definition()
type DefinitionBuilder struct {
	def ServiceDefinition
}

// Define starts a definition for the prototype's type. Pointer prototypes
// are dereferenced. The definition defaults to singleton with no
// dependencies.
func Define(prototype any, ctor Constructor) *DefinitionBuilder {
	t := reflect.TypeOf(prototype)
	if t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return &DefinitionBuilder{def: ServiceDefinition{
		Type:      t,
		Singleton: true,
		New:       ctor,
	}}
}

// Provides sets the identifier override the service is exposed under.
func (b *DefinitionBuilder) Provides(id Identifier) *DefinitionBuilder {
	b.def.Identifier = id
	return b
}

// Transient switches the lifecycle to a new instance per resolution.
func (b *DefinitionBuilder) Transient() *DefinitionBuilder {
	b.def.Singleton = false
	return b
}

// Singleton switches the lifecycle back to a cached instance.
func (b *DefinitionBuilder) Singleton() *DefinitionBuilder {
	b.def.Singleton = true
	return b
}

// DependsOn appends dependency identifiers, in the order New receives them.
func (b *DefinitionBuilder) DependsOn(ids ...Identifier) *DefinitionBuilder {
	b.def.Dependencies = append(b.def.Dependencies, ids...)
	return b
}

// Definition finalizes and returns the definition.
func (b *DefinitionBuilder) Definition() *ServiceDefinition {
	def := b.def
	return &def
}
