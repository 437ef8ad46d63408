/*
 * resolver.go, part of atomsio.
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
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rmera/atomsio/internal/logging"
)

// Request is what a Resolver needs to pick a backend.
type Request struct {
	Op      Operation
	Path    string
	Backend string //if not empty, this backend is used, skipping auto-detection.
	Index   int    //only meaningful for LoadSystem.
	Format  string //if not empty, passed to a FormatBackend. It plays no part in resolution.
}

// Resolver picks, for each load or save call, the backend that will perform it,
// and forwards the call.
type Resolver struct {
	reg     *Registry
	log     *slog.Logger
	metrics *metrics
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithLogger sets the logger used by the resolver. The default discards everything.
func WithLogger(l *slog.Logger) ResolverOption {
	return func(R *Resolver) {
		if l != nil {
			R.log = l
		}
	}
}

// WithMetrics registers the resolver's Prometheus collectors in reg.
// It panics if they are already registered there, as prometheus.MustRegister does.
func WithMetrics(reg prometheus.Registerer) ResolverOption {
	return func(R *Resolver) {
		if reg != nil {
			R.metrics = newMetrics(reg)
		}
	}
}

// NewResolver returns a resolver over reg. The registry is frozen on the
// first resolution.
func NewResolver(reg *Registry, opts ...ResolverOption) *Resolver {
	R := &Resolver{reg: reg, log: logging.NewNop()}
	for _, o := range opts {
		o(R)
	}
	return R
}

// Registry returns the registry the resolver works on.
func (R *Resolver) Registry() *Registry {
	return R.reg
}

// Resolve returns the backend that would handle req. An explicit req.Backend
// must be registered and available, and is returned without asking it whether
// it can handle the file. Otherwise, the first available backend, in
// registration order, that can handle req.Path and req.Op is returned.
// Resolve has no side effects, other than freezing the registry.
func (R *Resolver) Resolve(req Request) (Backend, error) {
	R.reg.Freeze()
	b, err := R.resolve(req)
	if err != nil {
		R.metrics.failure(req.Op, err)
		R.log.Debug("resolution failed", "op", req.Op.String(), "path", req.Path, "error", err)
		return nil, err
	}
	R.metrics.resolved(req.Op, b.Name())
	R.log.Debug("resolved backend", "op", req.Op.String(), "path", req.Path, "backend", b.Name(), "explicit", req.Backend != "")
	return b, nil
}

func (R *Resolver) resolve(req Request) (Backend, error) {
	if req.Path == "" {
		return nil, ErrEmptyPath
	}
	backends := R.reg.list()
	if req.Backend != "" {
		for _, b := range backends {
			if b.Name() != req.Backend {
				continue
			}
			if !b.Available() {
				return nil, &BackendUnavailableError{Name: req.Backend, Registered: true}
			}
			return b, nil
		}
		return nil, &BackendUnavailableError{Name: req.Backend}
	}
	var consulted, skipped []string
	for _, b := range backends {
		if !b.Available() {
			skipped = append(skipped, b.Name())
			continue
		}
		consulted = append(consulted, b.Name())
		if b.CanHandle(req.Path, req.Op) {
			return b, nil
		}
	}
	return nil, &UnsupportedFormatError{
		Path:      req.Path,
		Ext:       Ext(req.Path),
		Op:        req.Op,
		Consulted: consulted,
		Skipped:   skipped,
	}
}

// CallOption modifies a single load or save call.
type CallOption func(*Request)

// WithBackend forces the use of the named backend, skipping auto-detection.
func WithBackend(name string) CallOption {
	return func(r *Request) { r.Backend = name }
}

// WithIndex selects which structure LoadSystem reads from a file containing
// several. Indexes are 0-based; negative ones count from the end. The default
// is LastFrame.
func WithIndex(i int) CallOption {
	return func(r *Request) { r.Index = i }
}

// WithFormat tells the selected backend the format of the file, in the
// backend's own naming. The backend must implement FormatBackend.
func WithFormat(format string) CallOption {
	return func(r *Request) { r.Format = format }
}

func newRequest(op Operation, path string, opts []CallOption) Request {
	req := Request{Op: op, Path: path, Index: LastFrame}
	for _, o := range opts {
		o(&req)
	}
	return req
}

// backendFor resolves req and, if req.Format is given, sets the format
// on the backend.
func (R *Resolver) backendFor(req Request) (Backend, error) {
	b, err := R.Resolve(req)
	if err != nil || req.Format == "" {
		return b, err
	}
	fb, ok := b.(FormatBackend)
	if !ok {
		R.log.Debug("format given to a backend that takes none", "backend", b.Name(), "format", req.Format)
		return nil, fmt.Errorf("%s: %w", b.Name(), ErrFormatNotAccepted)
	}
	fmtb, err := fb.ForFormat(req.Format)
	if err != nil {
		return nil, R.wrap(b, req, err)
	}
	return fmtb, nil
}

// wrap turns a backend error into a BackendOperationError. No other backend
// is tried after a failure.
func (R *Resolver) wrap(b Backend, req Request, err error) error {
	if err == nil {
		return nil
	}
	R.metrics.backendFailure(req.Op, b.Name())
	R.log.Warn("backend operation failed", "backend", b.Name(), "op", req.Op.String(), "path", req.Path, "error", err)
	return &BackendOperationError{Backend: b.Name(), Op: req.Op, Path: req.Path, Err: err}
}

// LoadSystem reads one structure from path. If the file contains several, the
// last one is returned, unless WithIndex is given.
func (R *Resolver) LoadSystem(path string, opts ...CallOption) (*System, error) {
	req := newRequest(LoadSystem, path, opts)
	b, err := R.backendFor(req)
	if err != nil {
		return nil, err
	}
	sys, err := b.LoadSystem(path, req.Index)
	if err != nil {
		return nil, R.wrap(b, req, err)
	}
	return sys, nil
}

// SaveSystem writes sys to path.
func (R *Resolver) SaveSystem(path string, sys *System, opts ...CallOption) error {
	req := newRequest(SaveSystem, path, opts)
	if err := sys.Validate(); err != nil {
		return err
	}
	b, err := R.backendFor(req)
	if err != nil {
		return err
	}
	return R.wrap(b, req, b.SaveSystem(path, sys))
}

// LoadTrajectory reads all the structures in path.
func (R *Resolver) LoadTrajectory(path string, opts ...CallOption) ([]*System, error) {
	req := newRequest(LoadTrajectory, path, opts)
	b, err := R.backendFor(req)
	if err != nil {
		return nil, err
	}
	traj, err := b.LoadTrajectory(path)
	if err != nil {
		return nil, R.wrap(b, req, err)
	}
	return traj, nil
}

// SaveTrajectory writes all the structures in traj to path.
func (R *Resolver) SaveTrajectory(path string, traj []*System, opts ...CallOption) error {
	req := newRequest(SaveTrajectory, path, opts)
	if err := ValidateTrajectory(traj); err != nil {
		return err
	}
	b, err := R.backendFor(req)
	if err != nil {
		return err
	}
	return R.wrap(b, req, b.SaveTrajectory(path, traj))
}
