package container

import (
	"reflect"

	"github.com/google/uuid"
)

// ── Identifiers ───────────────────────────────────────────────────────────────

// Identifier names a registrable unit in the container. It is a closed sum of
// three forms:
//
//   - Named — a plain string name
//   - Typed — a type handle, derived from a prototype value or a definition
//   - *Token — an opaque token minted with NewToken
//
// All three forms are comparable, so an Identifier can be used directly as a
// map key. The container maintains a name→identifier table so that a Named
// form and the Typed/Token form of the same service collide at registration
// and resolution (see canonicalization in container.go).
type Identifier interface {
	// String renders the identifier for error messages and debug output.
	String() string

	// name is the key used for string-based aliasing of this identifier.
	name() string
}

// Named is a plain string identifier.
type Named string

func (n Named) String() string { return string(n) }
func (n Named) name() string   { return string(n) }

// Typed is a type-handle identifier. Two Typed values built from the same Go
// type are equal.
type Typed struct {
	t reflect.Type
}

// TypeOf builds a Typed identifier from a prototype value. Pointer prototypes
// are dereferenced, so TypeOf((*UserRepo)(nil)) and TypeOf(UserRepo{}) yield
// the same identifier.
func TypeOf(prototype any) Typed {
	return typedOf(reflect.TypeOf(prototype))
}

func typedOf(t reflect.Type) Typed {
	if t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return Typed{t: t}
}

// Type returns the underlying reflect.Type.
func (t Typed) Type() reflect.Type { return t.t }

func (t Typed) String() string {
	if t.t == nil {
		return "<nil type>"
	}
	return t.t.String()
}

func (t Typed) name() string {
	if t.t == nil {
		return ""
	}
	return t.t.Name()
}

// Token is an opaque identifier. Identity is the pointer: two tokens minted
// with the same name are distinct services. The uuid gives each token a
// stable identity for debug output.
type Token struct {
	id    uuid.UUID
	label string
}

// NewToken mints a fresh token. Tokens are typically package-level variables
// shared between the service that provides them and the services that depend
// on them.
//
//	var CacheToken = container.NewToken("app.cache")
func NewToken(name string) *Token {
	return &Token{id: uuid.New(), label: name}
}

// Name returns the label the token was minted with.
func (t *Token) Name() string { return t.label }

func (t *Token) String() string { return "Token(" + t.label + ")" }
func (t *Token) name() string   { return t.label }
