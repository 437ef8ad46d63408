/*
 * interfaces.go, part of atomsio.
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

// Traj is an interface for trajectories that are read frame by frame, for
// backends that stream their files instead of reading them at once.
type Traj interface {

	//Is the trajectory ready to be read?
	Readable() bool

	//Next reads the next frame into output, or discards it if output is nil.
	//It can also fill the (optional) box with the box vectors, if present in the frame.
	Next(output *v3.Matrix, box ...[]float64) error

	//Returns the number of atoms per frame
	Len() int
}

// TrajError is the interface for errors in trajectories
type TrajError interface {
	error
	Critical() bool
	FileName() string
	Format() string
}

// LastFrameError has a useless function to distinguish the harmless errors (i.e. last frame) so they can be
// filtered in a type switch that looks for this interface.
type LastFrameError interface {
	TrajError
	NormalLastFrameTermination() //does nothing, just to separate this interface from other TrajError's
}

// ReadFrames reads every remaining frame of traj, returning a copy of the coordinates
// and, for each frame, its box, or nil if the frame has none. It stops at the
// first LastFrameError.
func ReadFrames(traj Traj) ([]*v3.Matrix, [][]float64, error) {
	var coords []*v3.Matrix
	var boxes [][]float64
	if traj.Len() <= 0 {
		return nil, nil, fmt.Errorf("trajectory has %d atoms", traj.Len())
	}
	for {
		c := v3.Zeros(traj.Len())
		box := make([]float64, 9)
		err := traj.Next(c, box)
		if err != nil {
			if _, ok := err.(LastFrameError); ok {
				break
			}
			return nil, nil, err
		}
		coords = append(coords, c)
		if isZero(box) {
			box = nil
		}
		boxes = append(boxes, box)
	}
	return coords, boxes, nil
}

func isZero(f []float64) bool {
	for _, v := range f {
		if v != 0 {
			return false
		}
	}
	return true
}
