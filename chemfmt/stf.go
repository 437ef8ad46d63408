/*
 * stf.go, part of atomsio.
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
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/rmera/atomsio"
	"github.com/rmera/atomsio/internal/fileio"
	v3 "github.com/rmera/atomsio/v3"
)

//STF, the simple trajectory format, is a zstd-compressed text file. It starts with
//key=value header lines, then a "** N" line with the number of atoms. Each frame
//is N lines of 3 integers (the coordinates times 10^prec) followed by a line
//that starts with "*" and may carry the 9 box numbers.
//atomsio keeps the atoms of the trajectory as a JSON list in the "topology" key.

const (
	//DefaultPrecision is the number of decimals kept for coordinates in STF files.
	DefaultPrecision = 3
	stfPrecKey       = "prec"
	stfTopologyKey   = "topology"
)

// STFWriter writes a STF trajectory frame by frame.
type STFWriter struct {
	f         *os.File
	h         io.WriteCloser
	buf       *bufio.Writer
	natoms    int
	filename  string
	writeable bool
	prec      int
}

// NewSTFWriter creates name and writes the header to it. The "prec" key of the
// header, if present, sets the precision; DefaultPrecision is used otherwise.
func NewSTFWriter(name string, natoms int, header map[string]string) (*STFWriter, error) {
	S := &STFWriter{filename: name, natoms: natoms, prec: DefaultPrecision}
	if p, ok := header[stfPrecKey]; ok {
		prec, err := strconv.Atoi(p)
		if err != nil || prec < 0 {
			return nil, newError("stf", fmt.Sprintf("Invalid precision %q", p), name, "NewSTFWriter")
		}
		S.prec = prec
	}
	var err error
	S.f, err = os.Create(name)
	if err != nil {
		return nil, err
	}
	S.h, err = zstd.NewWriter(S.f, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	if err != nil {
		S.f.Close()
		return nil, newError("stf", "Can't write header "+err.Error(), name, "NewSTFWriter")
	}
	S.buf = bufio.NewWriter(S.h)
	S.writeable = true
	keys := make([]string, 0, len(header))
	for k := range header {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Fprintf(S.buf, "%s=%d\n", stfPrecKey, S.prec)
	for _, k := range keys {
		v := header[k]
		if k == stfPrecKey || k == "" || strings.ContainsAny(k, "=\n") || strings.Contains(v, "\n") {
			continue
		}
		fmt.Fprintf(S.buf, "%s=%s\n", k, v)
	}
	fmt.Fprintf(S.buf, "** %d\n", S.natoms)
	return S, nil
}

func coordsEncode(f [3]float64, temp *[3]int, p float64) string {
	for i, v := range f {
		temp[i] = int(math.RoundToEven(v * p))
	}
	return fmt.Sprintf("%d %d %d\n", temp[0], temp[1], temp[2])
}

// WNext writes one frame to the trajectory. If box is given and has
// 9 elements, it is written along the frame.
func (S *STFWriter) WNext(coord *v3.Matrix, box ...[]float64) error {
	if !S.writeable {
		return newError("stf", TrajUnIniWrite, S.filename, "WNext")
	}
	if coord == nil {
		return newError("stf", NilCoordinates, S.filename, "WNext")
	}
	v := coord.NVecs()
	if v != S.natoms {
		return newError("stf", fmt.Sprintf("%d coordinates given, but %d expected", v, S.natoms), S.filename, "WNext")
	}
	p := math.Pow(10, float64(S.prec))
	var temp [3]int
	var floats [3]float64
	for i := 0; i < v; i++ {
		floats[0] = coord.At(i, 0)
		floats[1] = coord.At(i, 1)
		floats[2] = coord.At(i, 2)
		if _, err := S.buf.WriteString(coordsEncode(floats, &temp, p)); err != nil {
			return newError("stf", err.Error(), S.filename, "WNext")
		}
	}
	var err error
	if len(box) > 0 && len(box[0]) == 9 {
		b := box[0]
		_, err = fmt.Fprintf(S.buf, "* %g %g %g %g %g %g %g %g %g\n", b[0], b[1], b[2], b[3], b[4], b[5], b[6], b[7], b[8])
	} else {
		_, err = S.buf.WriteString("*\n")
	}
	if err != nil {
		return newError("stf", err.Error(), S.filename, "WNext")
	}
	return nil
}

// Len returns the number of atoms per frame.
func (S *STFWriter) Len() int {
	return S.natoms
}

// Close flushes and closes the trajectory. It can not be used after this call.
func (S *STFWriter) Close() error {
	if S == nil || !S.writeable {
		return nil
	}
	S.writeable = false
	err := S.buf.Flush()
	if cerr := S.h.Close(); err == nil {
		err = cerr
	}
	if cerr := S.f.Close(); err == nil {
		err = cerr
	}
	return err
}

// STFReader reads a STF trajectory frame by frame. It implements atomsio.Traj.
type STFReader struct {
	f        *os.File
	z        io.ReadCloser
	h        *bufio.Reader
	natoms   int
	filename string
	prec     int
	readable bool
	log      *slog.Logger
}

// NewSTFReader opens a STF trajectory for reading, and returns the handle and
// the header metadata (without the atom number line).
func NewSTFReader(name string) (*STFReader, map[string]string, error) {
	S := &STFReader{filename: name, natoms: -1, prec: 2, log: slog.Default()}
	var err error
	S.f, err = os.Open(name)
	if err != nil {
		return nil, nil, err
	}
	S.z, err = fileio.NewReader(bufio.NewReader(S.f), fileio.Zstd)
	if err != nil {
		S.f.Close()
		return nil, nil, newError("stf", "Can't read header "+err.Error(), name, "NewSTFReader")
	}
	S.h = bufio.NewReader(S.z)
	S.readable = true
	m := make(map[string]string)
	for {
		str, err := S.h.ReadString('\n')
		if err != nil {
			S.Close()
			return nil, nil, newError("stf", "Can't read header "+err.Error(), name, "NewSTFReader")
		}
		str = strings.TrimSuffix(str, "\n")
		if strings.HasPrefix(str, "**") {
			nat := strings.Fields(str)
			if len(nat) < 2 {
				S.Close()
				return nil, nil, newError("stf", fmt.Sprintf("Can't read atom number from '%s'", str), name, "NewSTFReader")
			}
			S.natoms, err = strconv.Atoi(nat[1])
			if err != nil {
				S.Close()
				return nil, nil, newError("stf", fmt.Sprintf("Can't read atom number from '%s': %s", nat[1], err.Error()), name, "NewSTFReader")
			}
			if S.natoms <= 0 {
				S.Close()
				return nil, nil, newError("stf", fmt.Sprintf("Invalid atom number %d", S.natoms), name, "NewSTFReader")
			}
			break
		}
		kv := strings.SplitN(str, "=", 2)
		if len(kv) != 2 {
			S.Close()
			return nil, nil, newError("stf", "Malformed header line: "+str, name, "NewSTFReader")
		}
		m[kv[0]] = kv[1]
	}
	if p, ok := m[stfPrecKey]; ok {
		prec, err := strconv.Atoi(p)
		if err == nil && prec >= 0 {
			S.prec = prec
		} else {
			S.log.Warn("invalid precision in trajectory, assuming the default", "file", name, "prec", p)
		}
	}
	return S, m, nil
}

// Readable returns true if the handle is readable (if it is possible to call Next on it)
func (S *STFReader) Readable() bool {
	return S.readable
}

func coordsDecode(str string, temp *[3]float64, p float64) error {
	s := strings.Fields(str)
	if len(s) < 3 {
		return fmt.Errorf("Ill formated coordinates line in stf: Too few fields: %s", str)
	}
	if len(s) > 3 {
		return fmt.Errorf("Ill formated coordinates line in stf: Too many fields: %s", str)
	}
	for i, v := range s {
		f, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("Can't parse coordinate %d (%s). Error: %s", i, v, err.Error())
		}
		temp[i] = float64(f) / p
	}
	return nil
}

// Next puts in the given matrix (c) the coordinates for the next frame of the trajectory
// and, if given, and the information is present, puts the box vector information in box.
// At the end of the trajectory, it returns an atomsio.LastFrameError.
// If c is nil, the frame is read and checked, but discarded.
func (S *STFReader) Next(c *v3.Matrix, box ...[]float64) error {
	if !S.readable {
		return newError("stf", TrajUnIniRead, S.filename, "Next")
	}
	p := math.Pow(10, float64(S.prec))
	var temp [3]float64
	for i := 0; i < S.natoms; i++ {
		b, err := S.h.ReadString('\n')
		if err != nil {
			//EOF at the first atom just means the trajectory is over.
			if err == io.EOF && i == 0 && b == "" {
				S.Close()
				return newlastFrameError("stf", S.filename, "Next")
			}
			return newError("stf", err.Error(), S.filename, "Next")
		}
		if strings.HasPrefix(b, "*") {
			return newError("stf", WrongFormat+": frame with too few atoms", S.filename, "Next")
		}
		if err = coordsDecode(b, &temp, p); err != nil {
			return newError("stf", err.Error(), S.filename, "Next")
		}
		if c == nil {
			continue
		}
		c.Set(i, 0, temp[0])
		c.Set(i, 1, temp[1])
		c.Set(i, 2, temp[2])
	}
	s, err := S.h.ReadString('\n')
	if err != nil && s == "" {
		return newError("stf", "Can't read the frame termination mark: "+err.Error(), S.filename, "Next")
	}
	if s[0] != '*' {
		return newError("stf", WrongFormat+": wrong number of atoms in frame", S.filename, "Next")
	}
	if len(box) == 0 || len(box[0]) < 9 {
		return nil
	}
	fields := strings.Fields(s)
	if len(fields) == 1 {
		return nil
	}
	if len(fields) < 10 {
		S.log.Warn("trajectory does not contain correct box information", "file", S.filename, "fields", fields)
		return nil
	}
	var vals [9]float64
	for j, v := range fields[1:10] {
		vals[j], err = strconv.ParseFloat(v, 64)
		if err != nil {
			S.log.Warn("failed to read box in a frame", "file", S.filename, "error", err)
			return nil
		}
	}
	copy(box[0], vals[:])
	return nil
}

// Close closes the object, and marks it as unreadable
func (S *STFReader) Close() {
	if !S.readable {
		return
	}
	S.z.Close()
	S.f.Close()
	S.readable = false
}

// Len returns the number of atoms in each frame of the trajectory.
func (S *STFReader) Len() int {
	return S.natoms
}

// ReadSTF reads a whole STF trajectory. The atoms come from the topology key of the
// header; if it is missing, the atoms only get an ID. Other header keys go to the
// Info of each frame.
func ReadSTF(name string) ([]*atomsio.System, error) {
	S, head, err := NewSTFReader(name)
	if err != nil {
		return nil, err
	}
	defer S.Close()
	var atoms []*atomsio.Atom
	if top, ok := head[stfTopologyKey]; ok {
		if err := json.Unmarshal([]byte(top), &atoms); err != nil {
			return nil, newError("stf", "Can't decode topology: "+err.Error(), name, "ReadSTF")
		}
		if len(atoms) != S.Len() {
			return nil, newError("stf", fmt.Sprintf("topology has %d atoms, frames have %d", len(atoms), S.Len()), name, "ReadSTF")
		}
	} else {
		atoms = make([]*atomsio.Atom, S.Len())
		for i := range atoms {
			atoms[i] = &atomsio.Atom{ID: i + 1}
		}
	}
	delete(head, stfTopologyKey)
	delete(head, stfPrecKey)
	coords, boxes, err := atomsio.ReadFrames(S)
	if err != nil {
		return nil, err
	}
	if len(coords) == 0 {
		return nil, newError("stf", "trajectory has no frames", name, "ReadSTF")
	}
	traj := make([]*atomsio.System, len(coords))
	for i, c := range coords {
		s := &atomsio.System{Coords: c, Box: boxes[i], Atoms: make([]*atomsio.Atom, len(atoms))}
		for j, a := range atoms {
			s.Atoms[j] = a.Copy()
		}
		if len(head) > 0 {
			s.Info = make(map[string]string, len(head))
			for k, v := range head {
				s.Info[k] = v
			}
		}
		traj[i] = s
	}
	return traj, nil
}

// WriteSTF writes traj to name. The atoms and Info of the first frame go to the header.
func WriteSTF(name string, traj ...*atomsio.System) error {
	if err := atomsio.ValidateTrajectory(traj); err != nil {
		return err
	}
	top, err := json.Marshal(traj[0].Atoms)
	if err != nil {
		return err
	}
	head := make(map[string]string, len(traj[0].Info)+1)
	for k, v := range traj[0].Info {
		head[k] = v
	}
	head[stfTopologyKey] = string(top)
	W, err := NewSTFWriter(name, traj[0].Len(), head)
	if err != nil {
		return err
	}
	for i, s := range traj {
		if err := W.WNext(s.Coords, s.Box); err != nil {
			W.Close()
			return fmt.Errorf("frame %d: %w", i, err)
		}
	}
	return W.Close()
}
