/*
 * system_test.go, part of atomsio.
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
	"testing"

	v3 "github.com/rmera/atomsio/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func water(t *testing.T) *System {
	t.Helper()
	c, err := v3.NewMatrix([]float64{0, 0, 0.1173, 0, 0.7572, -0.4692, 0, -0.7572, -0.4692})
	require.NoError(t, err)
	atoms := []*Atom{{Name: "O", Symbol: "O"}, {Name: "H1", Symbol: "H"}, {Name: "H2", Symbol: "H"}}
	s, err := NewSystem(atoms, c)
	require.NoError(t, err)
	return s
}

func TestValidate(t *testing.T) {
	s := water(t)
	assert.NoError(t, s.Validate())
	assert.Equal(t, 3, s.Len())

	var nilsys *System
	for name, bad := range map[string]*System{
		"nil":        nilsys,
		"no atoms":   {Coords: v3.Zeros(1)},
		"nil atom":   {Atoms: []*Atom{nil}, Coords: v3.Zeros(1)},
		"no coords":  {Atoms: []*Atom{{}}},
		"mismatch":   {Atoms: []*Atom{{}}, Coords: v3.Zeros(2)},
		"box length": {Atoms: []*Atom{{}}, Coords: v3.Zeros(1), Box: []float64{1, 2, 3}},
	} {
		assert.ErrorIs(t, bad.Validate(), ErrInvalidSystem, name)
	}
	_, err := NewSystem(nil, v3.Zeros(1))
	assert.ErrorIs(t, err, ErrInvalidSystem)
}

func TestCopy(t *testing.T) {
	s := water(t)
	s.Box = []float64{10, 0, 0, 0, 10, 0, 0, 0, 10}
	s.Info = map[string]string{"comment": "water"}
	c := s.Copy()
	c.Atom(0).Name = "OW"
	c.Coords.Set(0, 0, 5)
	c.Box[0] = 1
	c.Info["comment"] = "ice"
	assert.Equal(t, "O", s.Atom(0).Name)
	assert.Equal(t, 0.0, s.Coords.At(0, 0))
	assert.Equal(t, 10.0, s.Box[0])
	assert.Equal(t, "water", s.Info["comment"])
	var nilsys *System
	assert.Nil(t, nilsys.Copy())
	assert.Panics(t, func() { s.Atom(3) })
}

func TestValidateTrajectory(t *testing.T) {
	s := water(t)
	assert.NoError(t, ValidateTrajectory([]*System{s, s.Copy()}))
	assert.ErrorIs(t, ValidateTrajectory(nil), ErrInvalidSystem)
	one, err := NewSystem([]*Atom{{}}, v3.Zeros(1))
	require.NoError(t, err)
	assert.ErrorIs(t, ValidateTrajectory([]*System{s, one}), ErrInvalidSystem)
}

func TestFrameIndex(t *testing.T) {
	for _, c := range []struct{ index, n, want int }{
		{LastFrame, 5, 4},
		{0, 5, 0},
		{-5, 5, 0},
		{4, 5, 4},
		{0, 1, 0},
	} {
		got, err := FrameIndex(c.index, c.n)
		require.NoError(t, err)
		assert.Equal(t, c.want, got)
	}
	for _, c := range [][2]int{{5, 5}, {-6, 5}, {0, 0}, {LastFrame, 0}} {
		_, err := FrameIndex(c[0], c[1])
		assert.Error(t, err, c)
	}
}

func TestMass(t *testing.T) {
	assert.InDelta(t, 15.999, Mass("O"), 0.01)
	assert.InDelta(t, Mass("Cl"), Mass("CL"), 0)
	assert.Zero(t, Mass("Xx"))
	assert.Equal(t, "Fe", NormalizeSymbol(" fE "))
	assert.Equal(t, "", NormalizeSymbol(""))
}
