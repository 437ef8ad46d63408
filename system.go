/*
 * system.go, part of atomsio.
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

	v3 "github.com/rmera/atomsio/v3"
)

// Atom contains the per-atom data of a structure, except for the coordinates,
// which are kept in the Coords matrix of the System.
type Atom struct {
	Name      string
	ID        int
	Symbol    string
	MolName   string
	MolID     int
	Chain     string
	Mass      float64
	Charge    float64
	Occupancy float64
	Bfactor   float64
	Het       bool // is hetatm in the pdb file?
}

// Copy returns a copy of the Atom object.
func (A *Atom) Copy() *Atom {
	if A == nil {
		return nil
	}
	n := *A
	return &n
}

// System is one atomistic structure. Coords has one vector per atom, in Angstrom.
// Box, if not nil, holds the 3 vectors of the simulation box, row-wise,
// in Angstrom. atomsio carries the box around but never interprets it.
// Info keeps free-form metadata, such as the keys of an extended XYZ comment line.
type System struct {
	Atoms  []*Atom
	Coords *v3.Matrix
	Box    []float64
	Info   map[string]string
}

// NewSystem builds a System from atoms and coordinates, checking that they
// are consistent.
func NewSystem(atoms []*Atom, coords *v3.Matrix) (*System, error) {
	S := &System{Atoms: atoms, Coords: coords}
	if err := S.Validate(); err != nil {
		return nil, err
	}
	return S, nil
}

// Len returns the number of atoms in the system.
func (S *System) Len() int {
	return len(S.Atoms)
}

// Atom returns the ith atom. Panics if out of range.
func (S *System) Atom(i int) *Atom {
	if i >= S.Len() {
		panic("System: Requested Atom out of bounds")
	}
	return S.Atoms[i]
}

// Validate returns an error wrapping ErrInvalidSystem if the system has
// no atoms, nil atoms, a coordinate matrix that doesn't match the atoms
// or a box with the wrong number of elements.
func (S *System) Validate() error {
	if S == nil {
		return fmt.Errorf("nil system: %w", ErrInvalidSystem)
	}
	if len(S.Atoms) == 0 {
		return fmt.Errorf("system has no atoms: %w", ErrInvalidSystem)
	}
	for i, a := range S.Atoms {
		if a == nil {
			return fmt.Errorf("atom %d is nil: %w", i, ErrInvalidSystem)
		}
	}
	if S.Coords == nil {
		return fmt.Errorf("system has no coordinates: %w", ErrInvalidSystem)
	}
	if n := S.Coords.NVecs(); n != len(S.Atoms) {
		return fmt.Errorf("%d atoms but %d coordinates: %w", len(S.Atoms), n, ErrInvalidSystem)
	}
	if S.Box != nil && len(S.Box) != 9 {
		return fmt.Errorf("box has %d elements, 9 expected: %w", len(S.Box), ErrInvalidSystem)
	}
	return nil
}

// Copy returns a deep copy of the system.
func (S *System) Copy() *System {
	if S == nil {
		return nil
	}
	N := new(System)
	N.Atoms = make([]*Atom, len(S.Atoms))
	for i, a := range S.Atoms {
		N.Atoms[i] = a.Copy()
	}
	if S.Coords != nil {
		N.Coords = S.Coords.Clone()
	}
	if S.Box != nil {
		N.Box = append([]float64(nil), S.Box...)
	}
	if S.Info != nil {
		N.Info = make(map[string]string, len(S.Info))
		for k, v := range S.Info {
			N.Info[k] = v
		}
	}
	return N
}

// ValidateTrajectory checks every frame of traj, and that all of them
// have the same number of atoms.
func ValidateTrajectory(traj []*System) error {
	if len(traj) == 0 {
		return fmt.Errorf("empty trajectory: %w", ErrInvalidSystem)
	}
	for i, s := range traj {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
		if s.Len() != traj[0].Len() {
			return fmt.Errorf("frame %d has %d atoms, frame 0 has %d: %w", i, s.Len(), traj[0].Len(), ErrInvalidSystem)
		}
	}
	return nil
}

// FrameIndex translates a user-given index into a position in a list of
// n structures. Negative indexes count from the end, so LastFrame (-1)
// is the last structure.
func FrameIndex(index, n int) (int, error) {
	i := index
	if i < 0 {
		i = n + i
	}
	if i < 0 || i >= n {
		return 0, fmt.Errorf("index %d out of range for %d structures", index, n)
	}
	return i, nil
}
