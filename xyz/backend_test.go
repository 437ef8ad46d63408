/*
 * backend_test.go, part of atomsio.
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

package xyz

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rmera/atomsio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackendCanHandle(t *testing.T) {
	B := NewBackend()
	for _, op := range atomsio.Operations {
		assert.True(t, B.CanHandle("a.xyz", op))
		assert.True(t, B.CanHandle("dir/A.EXTXYZ", op))
		assert.True(t, B.CanHandle("a.xyz.gz", op))
		assert.False(t, B.CanHandle("a.pdb", op))
		assert.False(t, B.CanHandle("xyz", op))
	}
	assert.True(t, B.Available())
	assert.Equal(t, "extxyz", B.Name())
}

func TestBackendIndex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frames.xyz")
	content := "1\nframe=0\nH 0 0 0\n1\nframe=1\nH 0 0 1\n1\nframe=2\nH 0 0 2\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	B := NewBackend()

	s, err := B.LoadSystem(path, atomsio.LastFrame)
	require.NoError(t, err)
	assert.Equal(t, "2", s.Info["frame"])

	s, err = B.LoadSystem(path, 0)
	require.NoError(t, err)
	assert.Equal(t, "0", s.Info["frame"])

	s, err = B.LoadSystem(path, -2)
	require.NoError(t, err)
	assert.Equal(t, 1.0, s.Coords.At(0, 2))

	_, err = B.LoadSystem(path, 3)
	assert.Error(t, err)
	_, err = B.LoadSystem(path, -4)
	assert.Error(t, err)

	traj, err := B.LoadTrajectory(path)
	require.NoError(t, err)
	out := filepath.Join(t.TempDir(), "copy.extxyz")
	require.NoError(t, B.SaveTrajectory(out, traj))
	again, err := B.LoadTrajectory(out)
	require.NoError(t, err)
	assert.Len(t, again, 3)
}
