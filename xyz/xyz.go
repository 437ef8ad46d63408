/*
 * xyz.go, part of atomsio.
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

// Package xyz reads and writes XYZ and extended XYZ files, and provides
// the "extxyz" backend.
//
// A file may contain several frames, one after the other. Each frame is
// an atom-count line, a comment line and one line per atom. In extended XYZ
// the comment line is a list of key=value pairs. Lattice (9 numbers) is read
// into the box of the structure, Properties is used to find the species and
// position columns, and every other pair goes to the Info map. A comment line
// without key=value pairs is kept as Info["comment"].
package xyz

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rmera/atomsio"
	"github.com/rmera/atomsio/internal/fileio"
	v3 "github.com/rmera/atomsio/v3"
)

// Read reads all the frames in r.
func Read(r io.Reader) ([]*atomsio.System, error) {
	return readFrames(bufio.NewReader(r), -1)
}

// ReadFile reads all the frames in the file name, which may be compressed.
func ReadFile(name string) ([]*atomsio.System, error) {
	f, err := fileio.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	traj, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("xyz file %s: %w", name, err)
	}
	return traj, nil
}

// readLine returns the next line without its end-of-line characters.
// A last line without '\n' is returned with a nil error.
func readLine(xyz *bufio.Reader) (string, error) {
	line, err := xyz.ReadString('\n')
	if err != nil && !(err == io.EOF && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// readFrames reads up to max frames (all of them if max < 0).
func readFrames(xyz *bufio.Reader, max int) ([]*atomsio.System, error) {
	var traj []*atomsio.System
	for max < 0 || len(traj) < max {
		line, err := readLine(xyz)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(line) == "" {
			continue //blank lines between or after frames
		}
		natoms, err := strconv.Atoi(strings.TrimSpace(line))
		if err != nil || natoms < 0 {
			return nil, fmt.Errorf("frame %d: ill formatted atom count line %q", len(traj), line)
		}
		s, err := readFrame(xyz, natoms)
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", len(traj), err)
		}
		traj = append(traj, s)
	}
	if len(traj) == 0 {
		return nil, fmt.Errorf("no frames found")
	}
	return traj, nil
}

func readFrame(xyz *bufio.Reader, natoms int) (*atomsio.System, error) {
	comment, err := readLine(xyz)
	if err != nil {
		return nil, fmt.Errorf("missing comment line: %w", err)
	}
	s := new(atomsio.System)
	cols := defaultColumns
	kv, extended, err := parseComment(comment)
	if err != nil {
		return nil, err
	}
	if extended {
		if p, ok := kv[keyProperties]; ok {
			cols, err = parseProperties(p)
			if err != nil {
				return nil, err
			}
			delete(kv, keyProperties)
		}
		if l, ok := kv[keyLattice]; ok {
			s.Box, err = parseLattice(l)
			if err != nil {
				return nil, err
			}
			delete(kv, keyLattice)
		}
		if len(kv) > 0 {
			s.Info = kv
		}
	} else if c := strings.TrimSpace(comment); c != "" {
		s.Info = map[string]string{keyComment: c}
	}
	if natoms == 0 {
		return nil, fmt.Errorf("frame with no atoms")
	}
	//the count line is not trusted for allocation.
	var coords []float64
	for i := 0; i < natoms; i++ {
		line, err := readLine(xyz)
		if err != nil {
			return nil, fmt.Errorf("expected %d atoms, found %d", natoms, i)
		}
		fields := strings.Fields(line)
		if len(fields) < cols.total {
			return nil, fmt.Errorf("atom line %d ill formed: %q", i+1, line)
		}
		at := new(atomsio.Atom)
		at.ID = i + 1
		at.Symbol = atomsio.NormalizeSymbol(fields[cols.species])
		at.Name = at.Symbol
		at.Mass = atomsio.Mass(at.Symbol)
		s.Atoms = append(s.Atoms, at)
		for j := 0; j < 3; j++ {
			v, err := strconv.ParseFloat(fields[cols.pos+j], 64)
			if err != nil {
				return nil, fmt.Errorf("atom line %d: can't parse coordinate %d: %w", i+1, j, err)
			}
			coords = append(coords, v)
		}
	}
	s.Coords, err = v3.NewMatrix(coords)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Write writes the frames in traj to out. The comment line is in extended XYZ
// format, unless the frame has no box and its only metadata is a comment that
// would be read back as a plain one, which is then written as is.
func Write(out io.Writer, traj ...*atomsio.System) error {
	w := bufio.NewWriter(out)
	for n, s := range traj {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("frame %d: %w", n, err)
		}
		fmt.Fprintf(w, "%d\n", s.Len())
		cm, ok := s.Info[keyComment]
		cm = strings.TrimSpace(strings.ReplaceAll(cm, "\n", " "))
		if ok && len(s.Info) == 1 && s.Box == nil && isPlainComment(cm) {
			fmt.Fprintf(w, "%s\n", cm)
		} else {
			fmt.Fprintf(w, "%s\n", formatComment(s.Box, s.Info))
		}
		c := make([]float64, 3)
		for i, at := range s.Atoms {
			s.Coords.Vec(c, i)
			symbol := at.Symbol
			if symbol == "" {
				symbol = "X"
			}
			if _, err := fmt.Fprintf(w, "%-2s %15.8f %15.8f %15.8f\n", symbol, c[0], c[1], c[2]); err != nil {
				return err
			}
		}
	}
	return w.Flush()
}

// WriteFile writes the frames in traj to the file name, which will be created
// (or overwritten) for that. The output is compressed if name ends in .gz or .zst
func WriteFile(name string, traj ...*atomsio.System) error {
	out, err := fileio.Create(name)
	if err != nil {
		return err
	}
	err = Write(out, traj...)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("xyz file %s: %w", name, err)
	}
	return nil
}
