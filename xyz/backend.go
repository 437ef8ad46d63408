/*
 * backend.go, part of atomsio.
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
	"bufio"
	"fmt"

	"github.com/rmera/atomsio"
	"github.com/rmera/atomsio/internal/fileio"
)

// Name is the name of the backend in a registry.
const Name = "extxyz"

// Backend is the extended XYZ backend. It is always available.
type Backend struct {
	formats atomsio.Formats
}

// NewBackend returns the extended XYZ backend, handling .xyz and .extxyz
// files (optionally compressed).
func NewBackend() *Backend {
	return &Backend{formats: atomsio.Formats{
		".xyz":    atomsio.AllOperations,
		".extxyz": atomsio.AllOperations,
	}}
}

func (B *Backend) Name() string { return Name }

func (B *Backend) Available() bool { return true }

// Formats returns the extensions the backend handles.
func (B *Backend) Formats() atomsio.Formats { return B.formats }

func (B *Backend) CanHandle(path string, op atomsio.Operation) bool {
	return B.formats.Handles(path, op)
}

// LoadSystem reads the frame number index from the file. A non-negative index
// stops reading once that frame is found.
func (B *Backend) LoadSystem(path string, index int) (*atomsio.System, error) {
	if index < 0 {
		traj, err := ReadFile(path)
		if err != nil {
			return nil, err
		}
		i, err := atomsio.FrameIndex(index, len(traj))
		if err != nil {
			return nil, err
		}
		return traj[i], nil
	}
	f, err := fileio.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	traj, err := readFrames(bufio.NewReader(f), index+1)
	if err != nil {
		return nil, fmt.Errorf("xyz file %s: %w", path, err)
	}
	if len(traj) <= index {
		return nil, fmt.Errorf("xyz file %s: index %d out of range for %d structures", path, index, len(traj))
	}
	return traj[index], nil
}

func (B *Backend) SaveSystem(path string, sys *atomsio.System) error {
	return WriteFile(path, sys)
}

func (B *Backend) LoadTrajectory(path string) ([]*atomsio.System, error) {
	return ReadFile(path)
}

func (B *Backend) SaveTrajectory(path string, traj []*atomsio.System) error {
	return WriteFile(path, traj...)
}
