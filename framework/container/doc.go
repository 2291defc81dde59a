// Package container provides the IoC (Inversion of Control) core of the
// Tmick framework: an identifier model, a descriptor-based service
// container with constructor dependency injection, and a registration
// facade.
//
// # Identifiers
//
// A service is addressable by any of three identifier forms:
//
//	container.Named("mailer")              // plain string
//	container.TypeOf(Mailer{})             // type handle
//	container.NewToken("app.mailer")       // opaque token
//
// The container canonicalizes between them: registering a constructor under
// Named("mailer") mints a token for it, and a Token or Typed registration is
// indexed by its name so later string lookups land on the same descriptor.
// Two surface forms of the same service always collide.
//
// # Registration
//
//	c := container.New()
//
//	// Factory — receives the container, may resolve other services
//	c.RegisterFactory(cacheToken, func(c *container.Container) (any, error) {
//	    return NewCache(), nil
//	}, true)
//
//	// Constructor — explicit ordered dependency list, resolved depth-first
//	c.RegisterConstructor(container.TypeOf(NoteService{}), newNoteService,
//	    true, repoToken, container.TypeOf(Clock{}))
//
//	// Pre-built value — always a singleton, cached immediately
//	c.RegisterInstance(configToken, cfg)
//
// Re-registering an identifier overwrites the descriptor, logs a warning and
// invalidates any cached singleton. Every other failure is a hard error.
//
// # Resolution
//
//	raw, err := c.Get(cacheToken)
//	cache, err := container.Resolve[*Cache](c, cacheToken)
//
// Singleton descriptors cache their instance on first Get; transient
// descriptors build a fresh one per call. Get never mutates the container —
// unregistered identifiers fail with NotRegisteredError, and a missing
// dependency anywhere in a constructor chain aborts the whole resolution.
//
// # Definitions
//
// ServiceDefinition is the declarative registration record consumed by the
// Services facade and the kernel's auto-scan:
//
//	def := container.Define((*NoteService)(nil), func(deps ...any) (any, error) {
//	    return &NoteService{repo: deps[0].(NoteRepository)}, nil
//	}).DependsOn(repoToken).Definition()
//
//	svcs := container.NewServices(c)
//	err := svcs.RegisterDefinition(def)
//
// A definition declaring an identifier override (Provides) is additionally
// resolvable under that identifier, sharing the same cached singleton.
package container
