// Package cqrs provides the Command/Query/Event dispatch layer of the Tmick
// framework, built atop the container package.
//
// Messages are plain structs; a message's dispatch key is its bare type
// name. Commands and queries have exactly one handler each and return a
// result; events fan out to any number of handlers, which run concurrently
// per event while events within one dispatch stay strictly ordered.
//
// The Registry collects handler bindings and the set of service definitions
// the kernel auto-scans; the three dispatchers resolve handler instances
// from the container lazily, at dispatch time, so handler construction and
// handler wiring stay decoupled.
package cqrs
