/*
 * v3_test.go, part of atomsio.
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

package v3

import (
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestNewMatrix(Te *testing.T) {
	a := []float64{1.0, 2.0, 3, 4, 5, 6, 7, 8, 9}
	A, err := NewMatrix(a)
	if err != nil {
		Te.Fatal(err)
	}
	if A.NVecs() != 3 {
		Te.Errorf("expected 3 vectors, got %d", A.NVecs())
	}
	if _, err = NewMatrix([]float64{1, 2, 3, 4}); err == nil {
		Te.Error("a slice with 4 elements should not give a Matrix")
	}
	if _, err = NewMatrix(nil); err == nil {
		Te.Error("an empty slice should not give a Matrix")
	}
}

func TestViews(Te *testing.T) {
	A, err := NewMatrix([]float64{1, 2, 3, 4, 5, 6})
	if err != nil {
		Te.Fatal(err)
	}
	View := A.VecView(1)
	View.Set(0, 0, 100)
	if A.At(1, 0) != 100 {
		Te.Errorf("changes in a view should reach the matrix: %v", A)
	}
	v := A.Vec(nil, 1)
	if v[0] != 100 || v[1] != 5 || v[2] != 6 {
		Te.Errorf("wrong vector %v", v)
	}
	A.SetVec(0, []float64{-1, -2, -3})
	if A.At(0, 2) != -3 {
		Te.Errorf("SetVec failed: %v", A)
	}
}

func TestClone(Te *testing.T) {
	A, _ := NewMatrix([]float64{1, 2, 3, 4, 5, 6})
	B := A.Clone()
	B.Set(0, 0, 42)
	if A.At(0, 0) != 1 {
		Te.Error("Clone shares storage with the original")
	}
	if A.EqualApprox(B, 1e-9) {
		Te.Error("matrices should differ after the change")
	}
	B.Set(0, 0, 1)
	if !A.EqualApprox(B, 1e-9) {
		Te.Error("matrices should be equal again")
	}
}

func TestDense2Matrix(Te *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			Te.Error("a 2-column Dense should panic")
		}
	}()
	Dense2Matrix(mat.NewDense(2, 2, nil))
}
