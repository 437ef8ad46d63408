/*
 * resolver_test.go, part of atomsio.
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
	"bytes"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rmera/atomsio/internal/logging"
	v3 "github.com/rmera/atomsio/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// extxyz claims .xyz and .extxyz, chemfiles .cif and .traj.
func scenario() (*Resolver, *fakeBackend, *fakeBackend) {
	extxyz := newFake("extxyz", true, ".xyz", ".extxyz")
	chemfiles := newFake("chemfiles", true, ".cif", ".traj")
	return NewResolver(MustRegistry(extxyz, chemfiles)), extxyz, chemfiles
}

func TestResolveScenario(t *testing.T) {
	R, _, _ := scenario()
	b, err := R.Resolve(Request{Op: LoadSystem, Path: "x.cif"})
	require.NoError(t, err)
	assert.Equal(t, "chemfiles", b.Name())

	b, err = R.Resolve(Request{Op: LoadSystem, Path: "x.xyz"})
	require.NoError(t, err)
	assert.Equal(t, "extxyz", b.Name())

	_, err = R.Resolve(Request{Op: LoadSystem, Path: "x.pdb"})
	require.ErrorIs(t, err, ErrUnsupportedFormat)
	var uerr *UnsupportedFormatError
	require.ErrorAs(t, err, &uerr)
	assert.Equal(t, []string{"extxyz", "chemfiles"}, uerr.Consulted)
	assert.Empty(t, uerr.Skipped)
	assert.Equal(t, ".pdb", uerr.Ext)
	assert.Equal(t, "x.pdb", uerr.Path)
	assert.Equal(t, LoadSystem, uerr.Op)
	assert.Contains(t, err.Error(), "extxyz, chemfiles")
}

func TestResolveOverride(t *testing.T) {
	R, _, chemfiles := scenario()
	b, err := R.Resolve(Request{Op: LoadSystem, Path: "x.xyz", Backend: "chemfiles"})
	require.NoError(t, err)
	assert.Equal(t, "chemfiles", b.Name())

	//no CanHandle check for explicit backends.
	b, err = R.Resolve(Request{Op: SaveTrajectory, Path: "x.weird", Backend: "chemfiles"})
	require.NoError(t, err)
	assert.Same(t, chemfiles, b)

	_, err = R.Resolve(Request{Op: LoadSystem, Path: "x.xyz", Backend: "ase"})
	require.ErrorIs(t, err, ErrBackendUnavailable)
	var berr *BackendUnavailableError
	require.ErrorAs(t, err, &berr)
	assert.False(t, berr.Registered)
}

func TestResolveUnavailable(t *testing.T) {
	first := newFake("first", false, ".xyz")
	second := newFake("second", true, ".xyz")
	R := NewResolver(MustRegistry(first, second))

	b, err := R.Resolve(Request{Op: LoadSystem, Path: "x.xyz"})
	require.NoError(t, err)
	assert.Equal(t, "second", b.Name(), "unavailable backends are skipped even if they claim the file")

	_, err = R.Resolve(Request{Op: LoadSystem, Path: "x.xyz", Backend: "first"})
	var berr *BackendUnavailableError
	require.ErrorAs(t, err, &berr)
	assert.True(t, berr.Registered)
	assert.ErrorIs(t, err, ErrBackendUnavailable)

	_, err = R.Resolve(Request{Op: LoadSystem, Path: "x.pdb"})
	var uerr *UnsupportedFormatError
	require.ErrorAs(t, err, &uerr)
	assert.Equal(t, []string{"second"}, uerr.Consulted)
	assert.Equal(t, []string{"first"}, uerr.Skipped)
}

func TestResolvePriority(t *testing.T) {
	b1 := newFake("b1", true, ".xyz")
	b2 := newFake("b2", true, ".xyz")
	b, err := NewResolver(MustRegistry(b1, b2)).Resolve(Request{Op: LoadSystem, Path: "x.xyz"})
	require.NoError(t, err)
	assert.Equal(t, "b1", b.Name())
	b, err = NewResolver(MustRegistry(b2, b1)).Resolve(Request{Op: LoadSystem, Path: "x.xyz"})
	require.NoError(t, err)
	assert.Equal(t, "b2", b.Name())
}

func TestResolveOperations(t *testing.T) {
	ro := newFake("readonly", true)
	ro.formats[".xyz"] = LoadSystem | LoadTrajectory
	rw := newFake("readwrite", true, ".xyz")
	R := NewResolver(MustRegistry(ro, rw))
	for op, want := range map[Operation]string{LoadSystem: "readonly", LoadTrajectory: "readonly", SaveSystem: "readwrite", SaveTrajectory: "readwrite"} {
		b, err := R.Resolve(Request{Op: op, Path: "x.xyz"})
		require.NoError(t, err)
		assert.Equal(t, want, b.Name(), op.String())
	}
}

func TestResolveIdempotent(t *testing.T) {
	R, _, _ := scenario()
	for _, req := range []Request{{Op: LoadSystem, Path: "a.cif"}, {Op: SaveSystem, Path: "a.xyz"}, {Op: LoadSystem, Path: "a.pdb"}} {
		b1, err1 := R.Resolve(req)
		b2, err2 := R.Resolve(req)
		assert.Equal(t, b1, b2)
		assert.Equal(t, err1, err2)
	}
}

func TestResolveEmptyPath(t *testing.T) {
	R, _, _ := scenario()
	_, err := R.Resolve(Request{Op: LoadSystem})
	assert.ErrorIs(t, err, ErrEmptyPath)
}

func TestResolveConcurrent(t *testing.T) {
	R, _, _ := scenario()
	var wg sync.WaitGroup
	errs := make(chan error, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			path, want := "a.cif", "chemfiles"
			if i%2 == 0 {
				path, want = "a.xyz", "extxyz"
			}
			b, err := R.Resolve(Request{Op: LoadSystem, Path: path})
			if err != nil {
				errs <- err
				return
			}
			if b.Name() != want {
				errs <- errors.New(path + " resolved to " + b.Name())
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestEntryPoints(t *testing.T) {
	R, extxyz, chemfiles := scenario()
	s, err := R.LoadSystem("a.xyz")
	require.NoError(t, err)
	assert.Equal(t, "extxyz", s.Atom(0).Name)
	assert.Equal(t, int32(LastFrame), extxyz.lastIndex.Load(), "the last structure by default")

	_, err = R.LoadSystem("a.xyz", WithIndex(3))
	require.NoError(t, err)
	assert.Equal(t, int32(3), extxyz.lastIndex.Load())

	s, err = R.LoadSystem("a.xyz", WithBackend("chemfiles"))
	require.NoError(t, err)
	assert.Equal(t, "chemfiles", s.Atom(0).Name)

	traj, err := R.LoadTrajectory("a.traj")
	require.NoError(t, err)
	assert.Len(t, traj, 2)

	require.NoError(t, R.SaveSystem("b.cif", s))
	require.NoError(t, R.SaveTrajectory("b.xyz", traj))
	assert.Equal(t, int32(3), chemfiles.calls.Load())
	assert.Equal(t, int32(3), extxyz.calls.Load())

	_, err = R.LoadTrajectory("a.pdb")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestSaveValidates(t *testing.T) {
	R, extxyz, _ := scenario()
	assert.ErrorIs(t, R.SaveSystem("a.xyz", nil), ErrInvalidSystem)
	bad := &System{Atoms: []*Atom{{}, {}}, Coords: v3.Zeros(1)}
	assert.ErrorIs(t, R.SaveSystem("a.xyz", bad), ErrInvalidSystem)
	assert.ErrorIs(t, R.SaveTrajectory("a.xyz", nil), ErrInvalidSystem)
	assert.ErrorIs(t, R.SaveTrajectory("a.xyz", []*System{extxyz.system(), bad}), ErrInvalidSystem)
	assert.Zero(t, extxyz.calls.Load(), "no backend is called with invalid input")
	assert.False(t, R.Registry().Frozen(), "nor is the registry consulted")
}

func TestBackendFailureNotRetried(t *testing.T) {
	cause := errors.New("disk on fire")
	broken := newFake("broken", true, ".xyz")
	broken.err = cause
	spare := newFake("spare", true, ".xyz")
	var logs bytes.Buffer
	R := NewResolver(MustRegistry(broken, spare), WithLogger(logging.NewWriter(&logs, -8)))

	_, err := R.LoadSystem("a.xyz")
	require.ErrorIs(t, err, ErrBackendOperationFailed)
	assert.ErrorIs(t, err, cause)
	assert.Same(t, cause, errors.Unwrap(err))
	var operr *BackendOperationError
	require.ErrorAs(t, err, &operr)
	assert.Equal(t, "broken", operr.Backend)
	assert.Equal(t, LoadSystem, operr.Op)
	assert.Equal(t, "a.xyz", operr.FileName())

	assert.ErrorIs(t, R.SaveSystem("a.xyz", spare.system()), cause)
	_, err = R.LoadTrajectory("a.xyz")
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, R.SaveTrajectory("a.xyz", []*System{spare.system()}), cause)

	assert.Equal(t, int32(4), broken.calls.Load())
	assert.Zero(t, spare.calls.Load())
	assert.Contains(t, logs.String(), "err=\"disk on fire\"")
	assert.Contains(t, logs.String(), "backend=broken")
}

func TestMetrics(t *testing.T) {
	extxyz := newFake("extxyz", true, ".xyz")
	extxyz.err = errors.New("nope")
	reg := prometheus.NewRegistry()
	R := NewResolver(MustRegistry(extxyz, newFake("off", false, ".cif")), WithMetrics(reg))

	R.Resolve(Request{Op: LoadSystem, Path: "a.xyz"})
	R.Resolve(Request{Op: LoadSystem, Path: "b.xyz"})
	R.Resolve(Request{Op: SaveSystem, Path: "a.pdb"})
	R.Resolve(Request{Op: SaveSystem, Path: "a.cif", Backend: "off"})
	R.Resolve(Request{Op: SaveSystem})
	R.LoadTrajectory("a.xyz")

	assert.Equal(t, 2.0, testutil.ToFloat64(R.metrics.resolutions.WithLabelValues("load-system", "extxyz")))
	assert.Equal(t, 1.0, testutil.ToFloat64(R.metrics.resolutions.WithLabelValues("load-trajectory", "extxyz")))
	assert.Equal(t, 1.0, testutil.ToFloat64(R.metrics.failures.WithLabelValues("save-system", "unsupported_format")))
	assert.Equal(t, 1.0, testutil.ToFloat64(R.metrics.failures.WithLabelValues("save-system", "backend_unavailable")))
	assert.Equal(t, 1.0, testutil.ToFloat64(R.metrics.failures.WithLabelValues("save-system", "empty_path")))
	assert.Equal(t, 1.0, testutil.ToFloat64(R.metrics.backendFailures.WithLabelValues("load-trajectory", "extxyz")))

	n, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	//without metrics, nothing breaks.
	_, err = NewResolver(MustRegistry(extxyz)).Resolve(Request{Op: LoadSystem, Path: "a.xyz"})
	assert.NoError(t, err)
}

func TestCallFormat(t *testing.T) {
	plain := newFake("extxyz", true, ".xyz")
	withFormat := &formatFake{fakeBackend: newFake("ase", true, ".in"), lastFormat: new(atomic.Value)}
	R := NewResolver(MustRegistry(plain, withFormat))

	_, err := R.LoadSystem("scf.in", WithFormat("espresso-in"))
	require.NoError(t, err)
	assert.Equal(t, "espresso-in", withFormat.lastFormat.Load())
	assert.Equal(t, int32(1), withFormat.calls.Load())

	//the format is no part of resolution.
	b, err := R.Resolve(Request{Op: LoadSystem, Path: "a.xyz", Format: "espresso-in"})
	require.NoError(t, err)
	assert.Same(t, plain, b)

	_, err = R.LoadSystem("a.xyz", WithFormat("espresso-in"))
	assert.ErrorIs(t, err, ErrFormatNotAccepted)
	assert.Zero(t, plain.calls.Load(), "the backend was called anyway")

	err = R.SaveSystem("scf.in", plain.system(), WithFormat("bad"))
	assert.ErrorIs(t, err, ErrBackendOperationFailed)
	assert.Equal(t, int32(1), withFormat.calls.Load())
}
