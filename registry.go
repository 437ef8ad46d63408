/*
 * registry.go, part of atomsio.
 *
 * Copyright 2024 Raul Mera <rmera{at}chemDOThelsinkiDOTfi>
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 */

package atomsio

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// Registry is an ordered list of backends. The order of registration is the
// priority order used by a Resolver: when two backends can handle the same
// file, the one registered first is chosen. This order is part of the API.
//
// Registrations are serialized. Readers never lock: every registration
// publishes a new slice, and a slice, once published, is never modified.
// A Registry is frozen the first time a Resolver uses it, or when Freeze
// is called. After that, Register fails with ErrRegistryFrozen.
type Registry struct {
	mu       sync.Mutex
	backends atomic.Pointer[[]Backend]
	frozen   atomic.Bool
}

// NewRegistry returns a registry with the given backends, in that order.
func NewRegistry(backends ...Backend) (*Registry, error) {
	R := new(Registry)
	empty := []Backend{}
	R.backends.Store(&empty)
	for _, b := range backends {
		if err := R.Register(b); err != nil {
			return nil, err
		}
	}
	return R, nil
}

// MustRegistry is like NewRegistry but panics on error.
func MustRegistry(backends ...Backend) *Registry {
	R, err := NewRegistry(backends...)
	if err != nil {
		panic(err.Error())
	}
	return R
}

// Register appends b to the registry, with the lowest priority so far.
func (R *Registry) Register(b Backend) error {
	if b == nil {
		return errors.New("atomsio: nil backend")
	}
	name := b.Name()
	if name == "" {
		return errors.New("atomsio: backend with empty name")
	}
	R.mu.Lock()
	defer R.mu.Unlock()
	if R.frozen.Load() {
		return fmt.Errorf("atomsio: can't register %q: %w", name, ErrRegistryFrozen)
	}
	old := R.list()
	for _, v := range old {
		if v.Name() == name {
			return fmt.Errorf("atomsio: %q: %w", name, ErrDuplicateBackend)
		}
	}
	n := make([]Backend, len(old), len(old)+1)
	copy(n, old)
	n = append(n, b)
	R.backends.Store(&n)
	return nil
}

// Freeze makes the registry read-only. It is safe to call it more than once.
// No Register call publishes a backend after Freeze returns.
func (R *Registry) Freeze() {
	if R.frozen.Load() {
		return
	}
	R.mu.Lock()
	R.frozen.Store(true)
	R.mu.Unlock()
}

// Frozen returns true if the registry can no longer be modified.
func (R *Registry) Frozen() bool {
	return R.frozen.Load()
}

func (R *Registry) list() []Backend {
	p := R.backends.Load()
	if p == nil {
		return nil
	}
	return *p
}

// Backends returns the registered backends in priority order.
// The returned slice is a copy.
func (R *Registry) Backends() []Backend {
	l := R.list()
	ret := make([]Backend, len(l))
	copy(ret, l)
	return ret
}

// Names returns the names of the registered backends in priority order.
func (R *Registry) Names() []string {
	l := R.list()
	ret := make([]string, len(l))
	for i, b := range l {
		ret[i] = b.Name()
	}
	return ret
}

// Lookup returns the backend registered with the given name.
func (R *Registry) Lookup(name string) (Backend, bool) {
	for _, b := range R.list() {
		if b.Name() == name {
			return b, true
		}
	}
	return nil, false
}

// Len returns the number of registered backends.
func (R *Registry) Len() int {
	return len(R.list())
}
