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

package atomsio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExt(t *testing.T) {
	cases := map[string]string{
		"a.xyz":           ".xyz",
		"dir.d/A.XYZ":     ".xyz",
		"a.xyz.gz":        ".xyz",
		"a.cif.ZST":       ".cif",
		"POSCAR":          "",
		"archive.tar.gz":  ".tar",
		"/tmp/x.y/noext":  "",
		"traj.extxyz.zst": ".extxyz",
	}
	for in, want := range cases {
		assert.Equal(t, want, Ext(in), in)
	}
}

func TestFormats(t *testing.T) {
	F := Formats{".xyz": AllOperations, ".pdb": LoadSystem | LoadTrajectory, "POSCAR": LoadSystem}
	assert.True(t, F.Handles("x.XYZ.gz", SaveTrajectory))
	assert.True(t, F.Handles("x.pdb", LoadTrajectory))
	assert.False(t, F.Handles("x.pdb", SaveSystem))
	assert.True(t, F.Handles("run/POSCAR", LoadSystem))
	assert.True(t, F.Handles("POSCAR.gz", LoadSystem))
	assert.False(t, F.Handles("POSCAR", SaveSystem))
	assert.False(t, F.Handles("x.cif", LoadSystem))
	assert.False(t, F.Handles("x.xyz", 0), "the empty operation is never handled")
	assert.Equal(t, []string{".pdb", ".xyz", "POSCAR"}, F.Keys())
}

func TestOperation(Te *testing.T) {
	for _, op := range Operations {
		p, err := ParseOperation(op.String())
		if err != nil {
			Te.Error(err)
		}
		if p != op {
			Te.Errorf("%s parsed as %s", op, p)
		}
	}
	if _, err := ParseOperation("load"); err == nil {
		Te.Error("parsed an unknown operation")
	}
	if s := (LoadSystem | SaveSystem).String(); s != "load-system|save-system" {
		Te.Errorf("wrong name for a set of operations: %s", s)
	}
	if s := Operation(0).String(); s != "operation(0)" {
		Te.Errorf("wrong name for the empty operation: %s", s)
	}
	if !AllOperations.Has(SaveTrajectory) || (LoadSystem | SaveSystem).Has(LoadSystem|LoadTrajectory) {
		Te.Error("Has is wrong")
	}
	require.Len(Te, Operations, 4)
}
