/*
 * stf_test.go, part of atomsio.
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

package chemfmt

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/rmera/atomsio"
	"github.com/rmera/atomsio/internal/fileio"
	v3 "github.com/rmera/atomsio/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Tests the frame by frame writing and reading.
func TestSTFWriteRead(Te *testing.T) {
	name := filepath.Join(Te.TempDir(), "test.stf")
	wtraj, err := NewSTFWriter(name, 2, map[string]string{"title": "two atoms", "prec": "2"})
	if err != nil {
		Te.Fatal(err)
	}
	box := []float64{10, 0, 0, 0, 10, 0, 0, 0, 10.5}
	for i := 0; i < 5; i++ {
		c, _ := v3.NewMatrix([]float64{float64(i), 1.234, -2, 0, 0, float64(i) / 10})
		if i%2 == 0 {
			err = wtraj.WNext(c, box)
		} else {
			err = wtraj.WNext(c)
		}
		if err != nil {
			Te.Fatal(err)
		}
	}
	if err = wtraj.WNext(v3.Zeros(3)); err == nil {
		Te.Error("a frame with the wrong number of atoms was written")
	}
	if err = wtraj.Close(); err != nil {
		Te.Fatal(err)
	}
	if err = wtraj.WNext(v3.Zeros(2)); err == nil {
		Te.Error("wrote to a closed trajectory")
	}

	rtraj, head, err := NewSTFReader(name)
	if err != nil {
		Te.Fatal(err)
	}
	defer rtraj.Close()
	if head["title"] != "two atoms" || head["prec"] != "2" {
		Te.Errorf("wrong header: %v", head)
	}
	if rtraj.Len() != 2 {
		Te.Errorf("expected 2 atoms, got %d", rtraj.Len())
	}
	mat := v3.Zeros(2)
	rbox := make([]float64, 9)
	i := 0
	for ; ; i++ {
		for j := range rbox {
			rbox[j] = 0
		}
		if i == 1 {
			err = rtraj.Next(nil) //just skipping this frame
		} else {
			err = rtraj.Next(mat, rbox)
		}
		if err != nil {
			if _, ok := err.(atomsio.LastFrameError); ok {
				break
			}
			Te.Fatal(err)
		}
		if i == 1 {
			continue
		}
		if mat.At(0, 0) != float64(i) || mat.At(0, 1) != 1.23 {
			Te.Errorf("wrong coordinates in frame %d: %v", i, mat)
		}
		if i%2 == 0 && rbox[8] != 10.5 {
			Te.Errorf("wrong box in frame %d: %v", i, rbox)
		}
		if i%2 == 1 && rbox[0] != 0 {
			Te.Errorf("frame %d should have no box: %v", i, rbox)
		}
	}
	if i != 5 {
		Te.Errorf("expected 5 frames, read %d", i)
	}
	if rtraj.Readable() {
		Te.Error("trajectory still readable after the last frame")
	}
}

func TestSTFRoundTrip(t *testing.T) {
	s := testSystem(t)
	s.Box = []float64{20, 0, 0, 0, 21, 0, 0, 0, 22}
	s.Info = map[string]string{"title": "a = b"}
	moved := s.Copy()
	moved.Coords.Set(1, 2, 0.001)
	moved.Box = nil
	name := filepath.Join(t.TempDir(), "rt.stf")
	require.NoError(t, WriteSTF(name, s, moved))

	traj, err := ReadSTF(name)
	require.NoError(t, err)
	require.Len(t, traj, 2)
	assert.True(t, traj[0].Coords.EqualApprox(s.Coords, 1e-3))
	assert.True(t, traj[1].Coords.EqualApprox(moved.Coords, 1e-3))
	assert.Equal(t, s.Box, traj[0].Box)
	assert.Nil(t, traj[1].Box)
	assert.Equal(t, map[string]string{"title": "a = b"}, traj[1].Info)
	for i, a := range traj[1].Atoms {
		assert.Equal(t, *s.Atom(i), *a)
	}
}

func TestSTFErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := NewSTFWriter(filepath.Join(dir, "a.stf"), 1, map[string]string{"prec": "x"})
	var serr Error
	require.ErrorAs(t, err, &serr)
	assert.True(t, serr.Critical())
	assert.Equal(t, "stf", serr.Format())

	assert.ErrorIs(t, WriteSTF(filepath.Join(dir, "b.stf")), atomsio.ErrInvalidSystem)

	plain := filepath.Join(dir, "plain.stf")
	require.NoError(t, os.WriteFile(plain, []byte("** 1\n0 0 0\n*\n"), 0o644))
	_, err = ReadSTF(plain)
	assert.Error(t, err, "STF files are always compressed")

	_, _, err = NewSTFReader(filepath.Join(dir, "missing.stf"))
	assert.Error(t, err)

	for i, n := range []string{"0", "-1", "x"} {
		name := filepath.Join(dir, fmt.Sprintf("natoms%d.stf", i))
		writeZstd(t, name, "title=bad\n** "+n+"\n0 0 0\n*\n")
		_, err := ReadSTF(name)
		require.ErrorAs(t, err, &serr, n)
		assert.Equal(t, name, serr.FileName())
	}
}

func writeZstd(t *testing.T, name, content string) {
	f, err := os.Create(name)
	require.NoError(t, err)
	z, err := fileio.NewWriter(f, fileio.Zstd)
	require.NoError(t, err)
	_, err = io.WriteString(z, content)
	require.NoError(t, err)
	require.NoError(t, z.Close())
	require.NoError(t, f.Close())
}
