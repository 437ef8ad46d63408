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

package atomsio

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// LastFrame is the index that selects the last structure in a file.
const LastFrame = -1

// Operation is one of the four things a backend can be asked to do.
type Operation uint8

const (
	LoadSystem Operation = 1 << iota
	SaveSystem
	LoadTrajectory
	SaveTrajectory
)

// AllOperations is the set of all operations.
const AllOperations = LoadSystem | SaveSystem | LoadTrajectory | SaveTrajectory

// Operations lists every single operation, in a stable order.
var Operations = []Operation{LoadSystem, SaveSystem, LoadTrajectory, SaveTrajectory}

func (op Operation) String() string {
	switch op {
	case LoadSystem:
		return "load-system"
	case SaveSystem:
		return "save-system"
	case LoadTrajectory:
		return "load-trajectory"
	case SaveTrajectory:
		return "save-trajectory"
	}
	//a set of operations
	var s []string
	for _, o := range Operations {
		if op&o != 0 {
			s = append(s, o.String())
		}
	}
	if len(s) == 0 {
		return fmt.Sprintf("operation(%d)", uint8(op))
	}
	return strings.Join(s, "|")
}

// Has returns true if all the operations in o are in op.
func (op Operation) Has(o Operation) bool {
	return o != 0 && op&o == o
}

// ParseOperation parses the names returned by Operation.String for single operations.
func ParseOperation(s string) (Operation, error) {
	for _, o := range Operations {
		if strings.EqualFold(s, o.String()) {
			return o, nil
		}
	}
	return 0, fmt.Errorf("unknown operation %q", s)
}

// Backend is a pluggable engine that reads and writes atomistic structure files.
// Each Backend decides, by itself, which files it can handle.
type Backend interface {
	//Name is the unique name of the backend in a Registry.
	Name() string

	//Available returns false if the backend's implementation is not usable in
	//this process (e.g. a required external program is missing). It is fixed when
	//the backend is configured, not checked again on each call.
	Available() bool

	//CanHandle returns true if the backend can perform op on the file path.
	CanHandle(path string, op Operation) bool

	//LoadSystem reads the structure number index (0-based, negative values count
	//from the end) from the file.
	LoadSystem(path string, index int) (*System, error)

	SaveSystem(path string, sys *System) error

	//LoadTrajectory reads all the structures in the file.
	LoadTrajectory(path string) ([]*System, error)

	SaveTrajectory(path string, traj []*System) error
}

// FormatBackend is implemented by backends that can be told the format of a
// file, instead of guessing it from the name. Format names are the backend's own.
type FormatBackend interface {
	Backend
	//ForFormat returns a backend that reads and writes format. The receiver
	//is not modified.
	ForFormat(format string) (Backend, error)
}

// compression suffixes that are transparent to format detection.
var compressionSuffixes = []string{".gz", ".zst"}

// Ext returns the lower-case extension of path, including the dot, after
// removing a compression suffix, if present. "Water.XYZ.gz" gives ".xyz".
func Ext(path string) string {
	base := strings.ToLower(filepath.Base(path))
	for _, c := range compressionSuffixes {
		if strings.HasSuffix(base, c) {
			base = strings.TrimSuffix(base, c)
			break
		}
	}
	return filepath.Ext(base)
}

// Formats maps lower-case extensions (".xyz") or exact base file names
// ("POSCAR") to the operations a backend supports for them.
type Formats map[string]Operation

// Handles returns true if path has an extension (or base name) in F, and
// the operation op is supported for it.
func (F Formats) Handles(path string, op Operation) bool {
	if ops, ok := F[Ext(path)]; ok && ops.Has(op) {
		return true
	}
	base := filepath.Base(path)
	for _, c := range compressionSuffixes {
		base = strings.TrimSuffix(base, c)
	}
	if ops, ok := F[base]; ok && ops.Has(op) {
		return true
	}
	return false
}

// Keys returns the extensions and names in F, sorted.
func (F Formats) Keys() []string {
	ret := make([]string, 0, len(F))
	for k := range F {
		ret = append(ret, k)
	}
	sort.Strings(ret)
	return ret
}
