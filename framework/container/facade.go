package container

// Services is the public registration facade over the container core. It
// adds definition-based registration — resolving a definition's declared
// dependencies into canonical identifiers once, at registration time — and
// passes everything else through. Apart from the kernel's auto-scan, this is
// the only place definition metadata is pre-resolved; the core never does it
// implicitly.
type Services struct {
	c *Container
}

// NewServices wraps a container core.
func NewServices(c *Container) *Services {
	return &Services{c: c}
}

// Container exposes the wrapped core.
func (s *Services) Container() *Container { return s.c }

// RegisterDefinition registers a definition as a constructor descriptor
// keyed by its type. A declared identifier override is aliased to the same
// descriptor, so both forms resolve to the same cached singleton.
func (s *Services) RegisterDefinition(def *ServiceDefinition) error {
	if err := def.Validate(); err != nil {
		return err
	}
	typeID := def.TypeID()
	s.c.RegisterConstructor(typeID, def.New, def.Singleton, def.Dependencies...)
	if def.Identifier != nil && def.Identifier != Identifier(typeID) {
		s.c.Alias(typeID, def.Identifier)
	}
	return nil
}

// Factory registers a factory descriptor.
func (s *Services) Factory(id Identifier, factory Factory, singleton bool) {
	s.c.RegisterFactory(id, factory, singleton)
}

// Constructor registers a constructor descriptor with explicit dependencies.
func (s *Services) Constructor(id Identifier, ctor Constructor, singleton bool, deps ...Identifier) {
	s.c.RegisterConstructor(id, ctor, singleton, deps...)
}

// Instance registers a pre-built value.
func (s *Services) Instance(id Identifier, instance any) {
	s.c.RegisterInstance(id, instance)
}

// Get resolves an instance.
func (s *Services) Get(id Identifier) (any, error) { return s.c.Get(id) }

// Has reports whether the identifier is known.
func (s *Services) Has(id Identifier) bool { return s.c.Has(id) }

// Clear resets the underlying container.
func (s *Services) Clear() { s.c.Clear() }
