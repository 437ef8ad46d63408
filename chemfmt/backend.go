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

package chemfmt

import (
	"fmt"
	"io"

	"github.com/rmera/atomsio"
	"github.com/rmera/atomsio/internal/fileio"
)

// Name is the name of the backend in a registry.
const Name = "gochem"

type reader func(io.Reader) ([]*atomsio.System, error)
type writer func(io.Writer, ...*atomsio.System) error

// textCodec is a format read and written as a (possibly compressed) text file.
type textCodec struct {
	name  string
	read  reader
	write writer
}

var (
	pdbCodec = textCodec{"pdb", ReadPDB, WritePDB}
	cifCodec = textCodec{"cif", ReadCIF, WriteCIF}
)

// binary trajectories, which handle their own files. STF is already
// zstd-compressed, so it takes no compression suffix.
type fileCodec struct {
	read         func(string) ([]*atomsio.System, error)
	write        func(string, ...*atomsio.System) error
	compressible bool
}

var fileCodecs = map[string]fileCodec{
	".stf": {ReadSTF, WriteSTF, false},
	".dcd": {ReadDCD, WriteDCD, true},
}

// fileCodecFor returns the codec for a binary trajectory name, and whether
// the name is one the codec can handle.
func fileCodecFor(name string) (fileCodec, bool, error) {
	c, ok := fileCodecs[atomsio.Ext(name)]
	if !ok {
		return c, false, nil
	}
	if !c.compressible && fileio.CompressionOf(name) != fileio.None {
		return c, true, fmt.Errorf("chemfmt: %s: compressed %s files are not supported", name, atomsio.Ext(name))
	}
	return c, true, nil
}

var textCodecs = map[string]textCodec{
	".pdb":   pdbCodec,
	".ent":   pdbCodec,
	".cif":   cifCodec,
	".mmcif": cifCodec,
}

// Backend reads and writes PDB, mmCIF, STF and DCD files. It is always available
// and keeps no state, so it can be used concurrently on different files.
type Backend struct {
	formats atomsio.Formats
}

// NewBackend returns the backend, which handles .pdb, .ent, .cif, .mmcif and
// .dcd (all optionally gzip- or zstd-compressed) and .stf files.
func NewBackend() *Backend {
	f := make(atomsio.Formats)
	for k := range textCodecs {
		f[k] = atomsio.AllOperations
	}
	for k := range fileCodecs {
		f[k] = atomsio.AllOperations
	}
	return &Backend{formats: f}
}

func (B *Backend) Name() string { return Name }

func (B *Backend) Available() bool { return true }

// Formats returns the extensions the backend handles.
func (B *Backend) Formats() atomsio.Formats { return B.formats }

func (B *Backend) CanHandle(path string, op atomsio.Operation) bool {
	if _, _, err := fileCodecFor(path); err != nil {
		return false
	}
	return B.formats.Handles(path, op)
}

// ReadFile reads every structure in name, choosing the format from its extension.
func ReadFile(name string) ([]*atomsio.System, error) {
	if c, ok, err := fileCodecFor(name); err != nil {
		return nil, err
	} else if ok {
		return c.read(name)
	}
	c, ok := textCodecs[atomsio.Ext(name)]
	if !ok {
		return nil, fmt.Errorf("chemfmt: no format for %s", name)
	}
	f, err := fileio.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	traj, err := c.read(f)
	if err != nil {
		return nil, fmt.Errorf("%s file %s: %w", c.name, name, err)
	}
	return traj, nil
}

// WriteFile writes traj to name, choosing the format from its extension.
func WriteFile(name string, traj ...*atomsio.System) error {
	if c, ok, err := fileCodecFor(name); err != nil {
		return err
	} else if ok {
		return c.write(name, traj...)
	}
	c, ok := textCodecs[atomsio.Ext(name)]
	if !ok {
		return fmt.Errorf("chemfmt: no format for %s", name)
	}
	f, err := fileio.Create(name)
	if err != nil {
		return err
	}
	if err := c.write(f, traj...); err != nil {
		f.Close()
		return fmt.Errorf("%s file %s: %w", c.name, name, err)
	}
	return f.Close()
}

func (B *Backend) LoadSystem(path string, index int) (*atomsio.System, error) {
	traj, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	i, err := atomsio.FrameIndex(index, len(traj))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return traj[i], nil
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
