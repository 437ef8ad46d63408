/*
 * matrix.go, part of atomsio.
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
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"
)

const cols int = 3

// Matrix is a set of vectors in 3D space.
// It must be able to act as any gonum mat.Matrix.
type Matrix struct {
	*mat.Dense
}

// Matrix2Dense returns the gonum Dense underlying A.
func Matrix2Dense(A *Matrix) *mat.Dense {
	return A.Dense
}

// Dense2Matrix wraps a Dense with 3 columns in a Matrix.
// It panics if A doesn't have 3 columns.
func Dense2Matrix(A *mat.Dense) *Matrix {
	if _, c := A.Dims(); c != cols {
		panic(ErrNotXx3Matrix)
	}
	return &Matrix{A}
}

// Zeros returns a zero-filled Matrix with vecs vectors and 3 in the other dimension.
func Zeros(vecs int) *Matrix {
	f := make([]float64, cols*vecs)
	return &Matrix{mat.NewDense(vecs, cols, f)}
}

// NewMatrix generates and returns a Matrix with 3 columns from data.
// data is used as backing storage, it is not copied.
func NewMatrix(data []float64) (*Matrix, error) {
	l := len(data)
	if l == 0 {
		return nil, Error{"Input slice is empty", []string{"NewMatrix"}, true}
	}
	if l%cols != 0 {
		return nil, Error{fmt.Sprintf("Input slice length %d not divisible by %d: %d", l, cols, l%cols), []string{"NewMatrix"}, true}
	}
	return &Matrix{mat.NewDense(l/cols, cols, data)}, nil
}

// NVecs returns the number of vectors in F.
func (F *Matrix) NVecs() int {
	r, c := F.Dims()
	if c != cols {
		panic(ErrNotXx3Matrix)
	}
	return r
}

// VecView returns a view of the ith vector of F. Changes in the view
// are reflected in F and vice-versa.
func (F *Matrix) VecView(i int) *Matrix {
	r := F.Dense.Slice(i, i+1, 0, cols).(*mat.Dense)
	return &Matrix{r}
}

// Vec copies the ith vector of F into dst, which is allocated if nil,
// and returns it.
func (F *Matrix) Vec(dst []float64, i int) []float64 {
	if dst == nil {
		dst = make([]float64, cols)
	}
	return mat.Row(dst, i, F.Dense)
}

// SetVec sets the ith vector of F to the first 3 elements of v.
func (F *Matrix) SetVec(i int, v []float64) {
	if len(v) < cols {
		panic(ErrNotEnoughElements)
	}
	F.Dense.SetRow(i, v[:cols])
}

// Clone returns a deep copy of F.
func (F *Matrix) Clone() *Matrix {
	r := Zeros(F.NVecs())
	r.Copy(F.Dense)
	return r
}

// EqualApprox returns true if F and A have the same shape and all
// their elements are within tol of each other.
func (F *Matrix) EqualApprox(A *Matrix, tol float64) bool {
	if F == nil || A == nil {
		return F == A
	}
	return mat.EqualApprox(F.Dense, A.Dense, tol)
}

// String returns a neat string representation of a Matrix
func (F *Matrix) String() string {
	r, _ := F.Dims()
	v := make([]string, r+2)
	v[0] = "\n["
	v[len(v)-1] = " ]"
	row := make([]float64, cols)
	for i := 0; i < r; i++ {
		F.Vec(row, i)
		if i == 0 {
			v[i+1] = fmt.Sprintf("%6.2f %6.2f %6.2f\n", row[0], row[1], row[2])
			continue
		}
		v[i+1] = fmt.Sprintf(" %6.2f %6.2f %6.2f\n", row[0], row[1], row[2])
	}
	v[len(v)-2] = strings.Replace(v[len(v)-2], "\n", "", 1)
	return strings.Join(v, "")
}

//Errors

// Error is the error type returned by this package. It keeps
// the chain of callers it went through in deco.
type Error struct {
	message  string
	deco     []string
	critical bool
}

// Error returns a string with an error message.
func (err Error) Error() string {
	return "v3: " + err.message
}

// Decorate will add the dec string to the decoration slice of strings of the error,
// and return the resulting slice.
func (err Error) Decorate(dec string) []string {
	if dec != "" {
		err.deco = append(err.deco, dec)
	}
	return err.deco
}

// Critical return whether the error is critical or it can be ignored
func (err Error) Critical() bool { return err.critical }

// PanicMsg is a message used for panics, even though it does satisfy the error interface.
// for errors use Error.
type PanicMsg string

func (v PanicMsg) Error() string { return string(v) }

const (
	ErrNotXx3Matrix      = PanicMsg("v3: A Matrix should have 3 columns")
	ErrNotEnoughElements = PanicMsg("v3: not enough elements in Matrix")
	ErrShape             = PanicMsg("v3: Dimension mismatch")
)
