// Package token issues the opaque identifiers that link dataset tables.
package token

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Token is an opaque 32-character hex identifier.
type Token = string

// Generator produces a candidate token. Tests inject deterministic ones.
type Generator func() Token

// UUIDGenerator returns a random UUID v4 rendered as hex without dashes.
func UUIDGenerator() Token {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

// Registry mints tokens and maps source object ids to instance tokens.
// Every issued token is remembered; issuing one twice panics.
// A Registry is not safe for concurrent use.
type Registry struct {
	gen       Generator
	issued    map[Token]struct{}
	instances map[int64]Token
}

// NewRegistry returns a Registry backed by UUIDGenerator.
func NewRegistry() *Registry {
	return NewRegistryWithGenerator(UUIDGenerator)
}

// NewRegistryWithGenerator returns a Registry that draws tokens from gen.
func NewRegistryWithGenerator(gen Generator) *Registry {
	return &Registry{
		gen:       gen,
		issued:    make(map[Token]struct{}),
		instances: make(map[int64]Token),
	}
}

// New mints a fresh token.
func (r *Registry) New() Token {
	t := r.gen()
	if _, dup := r.issued[t]; dup {
		panic(fmt.Sprintf("token: duplicate token %q issued", t))
	}
	r.issued[t] = struct{}{}
	return t
}

// Reserve records a fixed token so that a later mint of the same value
// is detected as a duplicate.
func (r *Registry) Reserve(t Token) {
	if _, dup := r.issued[t]; dup {
		panic(fmt.Sprintf("token: duplicate token %q reserved", t))
	}
	r.issued[t] = struct{}{}
}

// Instance returns the instance token for objectID in the active scene,
// minting one on first use.
func (r *Registry) Instance(objectID int64) Token {
	if t, ok := r.instances[objectID]; ok {
		return t
	}
	t := r.New()
	r.instances[objectID] = t
	return t
}

// BeginScene forgets all instance mappings. Source object ids are only
// unique within a scene.
func (r *Registry) BeginScene() {
	r.instances = make(map[int64]Token)
}

// Issued returns how many tokens have been minted or reserved.
func (r *Registry) Issued() int {
	return len(r.issued)
}

// Sequence returns a Generator yielding prefix followed by a zero-padded
// counter, 32 characters in total.
func Sequence(prefix string) Generator {
	n := 0
	width := 32 - len(prefix)
	if width < 1 {
		width = 1
	}
	return func() Token {
		n++
		return fmt.Sprintf("%s%0*d", prefix, width, n)
	}
}
