/*
 * fake_test.go, part of atomsio.
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
	"sync/atomic"

	v3 "github.com/rmera/atomsio/v3"
)

// fakeBackend claims the extensions in formats, and counts its calls.
type fakeBackend struct {
	name      string
	available bool
	formats   Formats
	err       error //returned by every operation, if not nil.
	calls     atomic.Int32
	lastIndex atomic.Int32
}

func newFake(name string, available bool, exts ...string) *fakeBackend {
	f := &fakeBackend{name: name, available: available, formats: make(Formats)}
	for _, e := range exts {
		f.formats[e] = AllOperations
	}
	return f
}

func (f *fakeBackend) Name() string    { return f.name }
func (f *fakeBackend) Available() bool { return f.available }

func (f *fakeBackend) CanHandle(path string, op Operation) bool {
	return f.formats.Handles(path, op)
}

func (f *fakeBackend) system() *System {
	c, _ := v3.NewMatrix([]float64{0, 0, 0})
	return &System{Atoms: []*Atom{{Name: f.name, Symbol: "X"}}, Coords: c}
}

func (f *fakeBackend) LoadSystem(path string, index int) (*System, error) {
	f.calls.Add(1)
	f.lastIndex.Store(int32(index))
	if f.err != nil {
		return nil, f.err
	}
	return f.system(), nil
}

func (f *fakeBackend) SaveSystem(path string, sys *System) error {
	f.calls.Add(1)
	return f.err
}

func (f *fakeBackend) LoadTrajectory(path string) ([]*System, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return []*System{f.system(), f.system()}, nil
}

func (f *fakeBackend) SaveTrajectory(path string, traj []*System) error {
	f.calls.Add(1)
	return f.err
}

// formatFake is a fakeBackend that accepts a format, and records the last one.
type formatFake struct {
	*fakeBackend
	lastFormat *atomic.Value
}

func (f *formatFake) ForFormat(format string) (Backend, error) {
	if format == "bad" {
		return nil, errors.New("unknown format bad")
	}
	f.lastFormat.Store(format)
	return f.fakeBackend, nil
}
