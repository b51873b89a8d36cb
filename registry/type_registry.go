/*
 * Copyright © 2025 CipherStash Inc., All rights reserved.
 */

package registry

import (
	"sort"
	"sync"

	"github.com/cipherstash/cipherstash-dynamodb/errors"
)

// Registry holds the record types sharing one table. Registration is safe for
// concurrent use; after Freeze the registry is read-only.
type Registry struct {
	mu         sync.RWMutex
	types      map[string]*RecordType
	prefixes   map[string]string
	defaultCap int
	frozen     bool
}

// Option configures a Registry.
type Option func(*Registry)

// WithMaxPrefixLen sets the prefix cap used by fields and types that declare none.
func WithMaxPrefixLen(n int) Option {
	return func(r *Registry) {
		if n > 0 && n <= MaxPrefixLenLimit {
			r.defaultCap = n
		}
	}
}

// New returns an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		types:      make(map[string]*RecordType),
		prefixes:   make(map[string]string),
		defaultCap: DefaultMaxPrefixLen,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a record type. Type names and sort-key prefixes must be unique
// across the registry so rows of different types never share an address.
func (r *Registry) Register(rt *RecordType) error {
	if rt == nil {
		return errors.NewConfigurationError("", "", "nil record type")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return errors.NewConfigurationError(rt.Name(), "", "registry is frozen")
	}
	if _, exists := r.types[rt.Name()]; exists {
		return errors.NewConfigurationError(rt.Name(), "", "record type already registered")
	}
	if owner, exists := r.prefixes[rt.SortKey().Prefix]; exists {
		return errors.NewConfigurationError(rt.Name(), "", "sort key prefix %q already used by %s", rt.SortKey().Prefix, owner)
	}

	bound := rt.withDefaultCap(r.defaultCap)
	if err := bound.checkFanOut(); err != nil {
		return err
	}
	r.types[rt.Name()] = bound
	r.prefixes[rt.SortKey().Prefix] = rt.Name()
	return nil
}

// MustRegister registers every type and panics on the first error.
func (r *Registry) MustRegister(types ...*RecordType) *Registry {
	for _, rt := range types {
		if err := r.Register(rt); err != nil {
			panic(err)
		}
	}
	return r
}

// Freeze makes the registry read-only.
func (r *Registry) Freeze() *Registry {
	r.mu.Lock()
	r.frozen = true
	r.mu.Unlock()
	return r
}

// Lookup returns the registered type with the given name.
func (r *Registry) Lookup(name string) (*RecordType, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rt, ok := r.types[name]
	return rt, ok
}

// MaxPrefixLen returns the registry-wide default prefix cap.
func (r *Registry) MaxPrefixLen() int {
	return r.defaultCap
}

// Types returns the registered type names in sorted order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.types))
	for name := range r.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
