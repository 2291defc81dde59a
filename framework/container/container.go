package container

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// ── Descriptors ───────────────────────────────────────────────────────────────

// Factory builds a value from the container.
type Factory func(c *Container) (any, error)

// Constructor builds a value from its already-resolved dependencies, in the
// order they were declared.
type Constructor func(deps ...any) (any, error)

type descriptorKind int

const (
	kindFactory descriptorKind = iota
	kindConstructor
	kindInstance
)

// descriptor holds one registration. Exactly one of factory, ctor or instance
// is set, selected by kind.
type descriptor struct {
	id        Identifier
	kind      descriptorKind
	factory   Factory
	ctor      Constructor
	deps      []Identifier
	instance  any
	singleton bool
}

// ── Errors ────────────────────────────────────────────────────────────────────

// NotRegisteredError is returned by Get when no descriptor exists for an
// identifier.
type NotRegisteredError struct {
	ID Identifier
}

func (e NotRegisteredError) Error() string {
	return "container: no binding registered for [" + e.ID.String() + "]"
}

// ── Container ─────────────────────────────────────────────────────────────────

// Container is the IoC core. It stores service descriptors, resolves
// instances, caches singletons and walks constructor dependency chains.
//
// Descriptors and the instance cache are guarded by a single RWMutex.
// Registration performs check-then-act sequences that are not atomic across
// goroutines, so concurrent registration of the same identifier is not
// supported; concurrent resolution after registration has settled is.
type Container struct {
	mu  sync.RWMutex
	log *zap.Logger

	// canonical identifier → descriptor
	descriptors map[Identifier]*descriptor

	// canonical identifier → cached singleton instance
	instances map[Identifier]any

	// string name → canonical identifier
	names map[string]Identifier

	// alias identifier → canonical identifier
	aliases map[Identifier]Identifier
}

// Option configures a Container.
type Option func(*Container)

// WithLogger sets the logger used for registration warnings. The default is
// a no-op logger.
func WithLogger(log *zap.Logger) Option {
	return func(c *Container) { c.log = log }
}

// ContainerToken is the well-known identifier every container registers
// itself under, so services can declare the container as a dependency.
var ContainerToken = NewToken("tmick.container")

// New creates an empty container bound to itself under ContainerToken.
func New(opts ...Option) *Container {
	c := &Container{
		log:         zap.NewNop(),
		descriptors: make(map[Identifier]*descriptor),
		instances:   make(map[Identifier]any),
		names:       make(map[string]Identifier),
		aliases:     make(map[Identifier]Identifier),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.RegisterInstance(ContainerToken, c)
	return c
}

// ── Registration ──────────────────────────────────────────────────────────────

// RegisterFactory stores a factory descriptor. Re-registering an identifier
// overwrites the previous descriptor with a warning and drops any cached
// singleton instance.
func (c *Container) RegisterFactory(id Identifier, factory Factory, singleton bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := c.canonicalForRegister(id, false)
	c.store(key, &descriptor{id: key, kind: kindFactory, factory: factory, singleton: singleton})
}

// RegisterConstructor stores a constructor descriptor with a pre-resolved
// ordered dependency list. The container never re-derives dependencies at
// resolution time — callers supply them canonicalized (the Services facade
// does this for definitions).
func (c *Container) RegisterConstructor(id Identifier, ctor Constructor, singleton bool, deps ...Identifier) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := c.canonicalForRegister(id, false)
	resolved := make([]Identifier, len(deps))
	for i, dep := range deps {
		resolved[i] = c.canonicalRead(dep)
	}
	c.store(key, &descriptor{id: key, kind: kindConstructor, ctor: ctor, deps: resolved, singleton: singleton})
}

// RegisterInstance stores a pre-built value. Instance registrations are
// always singletons; the cache is seeded immediately.
func (c *Container) RegisterInstance(id Identifier, instance any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := c.canonicalForRegister(id, true)
	c.store(key, &descriptor{id: key, kind: kindInstance, instance: instance, singleton: true})
	c.instances[key] = instance
}

// Alias makes alias resolve to the same registration (and the same cached
// singleton) as id.
func (c *Container) Alias(id, alias Identifier) {
	c.mu.Lock()
	defer c.mu.Unlock()
	canon := c.canonicalRead(id)
	switch a := alias.(type) {
	case Named:
		c.names[string(a)] = canon
	default:
		c.aliases[alias] = canon
		if n := alias.name(); n != "" {
			c.names[n] = alias
		}
	}
}

// store writes a descriptor under its canonical key (must hold mu).
func (c *Container) store(key Identifier, d *descriptor) {
	if _, exists := c.descriptors[key]; exists {
		c.log.Warn("overwriting service registration",
			zap.String("identifier", key.String()))
		delete(c.instances, key)
	}
	c.descriptors[key] = d
}

// ── Canonicalization ──────────────────────────────────────────────────────────

// canonicalForRegister maps an identifier to its canonical form at
// registration time (must hold mu). A never-seen Named identifier mints a
// fresh token (or keeps the string itself when keepNamed is set, so plain
// string-keyed instances stay addressable by their string). Token and Typed
// identifiers are canonical already and are indexed by name for future
// string lookups.
func (c *Container) canonicalForRegister(id Identifier, keepNamed bool) Identifier {
	switch v := id.(type) {
	case Named:
		if canon, ok := c.names[string(v)]; ok {
			return canon
		}
		if keepNamed {
			c.names[string(v)] = v
			return v
		}
		tok := NewToken(string(v))
		c.names[string(v)] = tok
		return tok
	default:
		if n := id.name(); n != "" {
			c.names[n] = id
		}
		return id
	}
}

// canonicalRead maps an identifier to its canonical form without mutating
// any state (must hold mu or mu.RLock). An unseen string resolves under
// itself.
func (c *Container) canonicalRead(id Identifier) Identifier {
	if n, ok := id.(Named); ok {
		if canon, ok := c.names[string(n)]; ok {
			id = canon
		}
	}
	if target, ok := c.aliases[id]; ok {
		id = target
	}
	return id
}

// ── Resolution ────────────────────────────────────────────────────────────────

// Get resolves an instance for the identifier. Singleton descriptors are
// cached on first resolution; transient descriptors build a new instance per
// call. Get never registers anything as a side effect — a missing descriptor
// is a NotRegisteredError naming the identifier.
func (c *Container) Get(id Identifier) (any, error) {
	c.mu.RLock()
	key := c.canonicalRead(id)
	if inst, ok := c.instances[key]; ok {
		c.mu.RUnlock()
		return inst, nil
	}
	d, ok := c.descriptors[key]
	c.mu.RUnlock()

	if !ok {
		return nil, NotRegisteredError{ID: id}
	}
	return c.build(key, d)
}

// build constructs an instance from a descriptor, caching singletons.
// Dependencies resolve depth-first, left to right; a missing dependency
// aborts construction with the underlying NotRegisteredError wrapped.
func (c *Container) build(key Identifier, d *descriptor) (any, error) {
	var (
		instance any
		err      error
	)
	switch d.kind {
	case kindInstance:
		instance = d.instance
	case kindFactory:
		instance, err = d.factory(c)
		if err != nil {
			return nil, fmt.Errorf("container: factory for [%s]: %w", d.id, err)
		}
	case kindConstructor:
		args := make([]any, len(d.deps))
		for i, dep := range d.deps {
			arg, depErr := c.Get(dep)
			if depErr != nil {
				return nil, fmt.Errorf("container: resolving dependency [%s] of [%s]: %w", dep, d.id, depErr)
			}
			args[i] = arg
		}
		instance, err = d.ctor(args...)
		if err != nil {
			return nil, fmt.Errorf("container: constructing [%s]: %w", d.id, err)
		}
	}

	if d.singleton {
		c.mu.Lock()
		if cached, ok := c.instances[key]; ok {
			instance = cached
		} else {
			c.instances[key] = instance
		}
		c.mu.Unlock()
	}
	return instance, nil
}

// Has reports whether a descriptor or a string-to-identifier mapping exists
// for the identifier.
func (c *Container) Has(id Identifier) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if n, ok := id.(Named); ok {
		if _, mapped := c.names[string(n)]; mapped {
			return true
		}
	}
	key := c.canonicalRead(id)
	_, ok := c.descriptors[key]
	return ok
}

// ── Lifecycle & introspection ────────────────────────────────────────────────

// Clear drops all descriptors, cached instances and identifier mappings,
// then restores the container's self binding.
func (c *Container) Clear() {
	c.mu.Lock()
	c.descriptors = make(map[Identifier]*descriptor)
	c.instances = make(map[Identifier]any)
	c.names = make(map[string]Identifier)
	c.aliases = make(map[Identifier]Identifier)
	c.mu.Unlock()
	c.RegisterInstance(ContainerToken, c)
}

// Stats summarizes container state for debug output.
type Stats struct {
	Descriptors     int
	CachedInstances int
	NameMappings    int
}

// Stats returns current counts. The container's self binding is not counted.
func (c *Container) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := Stats{NameMappings: len(c.names)}
	for key := range c.descriptors {
		if key == ContainerToken {
			continue
		}
		s.Descriptors++
	}
	for key := range c.instances {
		if key == ContainerToken {
			continue
		}
		s.CachedInstances++
	}
	return s
}

// Registered returns the sorted display names of all registered services,
// excluding the container's self binding.
func (c *Container) Registered() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.descriptors))
	for key := range c.descriptors {
		if key == ContainerToken {
			continue
		}
		out = append(out, key.String())
	}
	sort.Strings(out)
	return out
}

// ── Generics helper ───────────────────────────────────────────────────────────

// Resolve calls Get and type-asserts the result.
//
//	repo, err := container.Resolve[*UserRepo](c, container.TypeOf(UserRepo{}))
func Resolve[T any](c *Container, id Identifier) (T, error) {
	var zero T
	instance, err := c.Get(id)
	if err != nil {
		return zero, err
	}
	typed, ok := instance.(T)
	if !ok {
		return zero, fmt.Errorf("container: [%s] resolved to %T, not %T", id, instance, zero)
	}
	return typed, nil
}
