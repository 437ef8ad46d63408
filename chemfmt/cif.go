/*
 * cif.go, part of atomsio.
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
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rmera/atomsio"
	v3 "github.com/rmera/atomsio/v3"
)

var tl func(string) string = strings.ToLower

// ErrFractional is returned when a CIF file only has fractional coordinates.
// Converting them needs the unit cell, which this package doesn't interpret.
var ErrFractional = errors.New("CIF file has only fractional coordinates")

// cifTokens splits a CIF line into values. Values may be quoted with ' or ", and
// a quote only closes a value when followed by whitespace or the end of the line.
func cifTokens(line string) []string {
	var ret []string
	i := 0
	for i < len(line) {
		for i < len(line) && (line[i] == ' ' || line[i] == '\t') {
			i++
		}
		if i >= len(line) {
			break
		}
		if q := line[i]; q == '\'' || q == '"' {
			j := i + 1
			for j < len(line) && !(line[j] == q && (j+1 == len(line) || line[j+1] == ' ' || line[j+1] == '\t')) {
				j++
			}
			ret = append(ret, line[i+1:j])
			i = j + 1
			continue
		}
		j := i
		for j < len(line) && line[j] != ' ' && line[j] != '\t' {
			j++
		}
		ret = append(ret, line[i:j])
		i = j
	}
	return ret
}

// cifcols maps the (lower-case) tags of an _atom_site loop to their column.
type cifcols map[string]int

// get returns the value of the first of the tags present in the row, or ""
// if none is, or if the value is one of the CIF placeholders "." and "?".
func (m cifcols) get(row []string, tags ...string) string {
	for _, t := range tags {
		k, ok := m[t]
		if !ok || k >= len(row) {
			continue
		}
		if v := row[k]; v != "." && v != "?" {
			return v
		}
	}
	return ""
}

func (m cifcols) has(tag string) bool {
	_, ok := m[tag]
	return ok
}

func cifAtom(row []string, m cifcols) (*atomsio.Atom, error) {
	var err error
	at := new(atomsio.Atom)
	at.Symbol = atomsio.NormalizeSymbol(m.get(row, "_atom_site.type_symbol"))
	at.Name = m.get(row, "_atom_site.auth_atom_id", "_atom_site.label_atom_id")
	if at.Symbol == "" {
		at.Symbol, _ = symbolFromName(at.Name)
	}
	at.Mass = atomsio.Mass(at.Symbol)
	at.MolName = m.get(row, "_atom_site.auth_comp_id", "_atom_site.label_comp_id")
	at.Chain = m.get(row, "_atom_site.auth_asym_id", "_atom_site.label_asym_id")
	if s := m.get(row, "_atom_site.id"); s != "" {
		at.ID, err = strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("Couldn't parse ID from %s: %w", s, err)
		}
	}
	if s := m.get(row, "_atom_site.auth_seq_id", "_atom_site.label_seq_id"); s != "" {
		at.MolID, err = strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("Couldn't parse MolID from %s: %w", s, err)
		}
	}
	//Charge, but we won't do anything if we somehow can't read it.
	if s := m.get(row, "_atom_site.pdbx_formal_charge"); s != "" {
		at.Charge, _ = strconv.ParseFloat(s, 64)
	}
	at.Het = tl(m.get(row, "_atom_site.group_pdb")) == "hetatm"
	return at, nil
}

func cifFloat(row []string, m cifcols, tag string) (float64, bool, error) {
	s := m.get(row, tag)
	if s == "" {
		return 0, false, nil
	}
	//standard uncertainties, as in 1.234(5)
	if p := strings.IndexByte(s, '('); p > 0 {
		s = s[:p]
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, fmt.Errorf("Couldn't parse %s from %s: %w", tag, s, err)
	}
	return f, true, nil
}

// ReadCIF reads the _atom_site loop of a (mm)CIF file. Each model, as given by
// _atom_site.pdbx_PDB_model_num, is a frame. Only Cartesian coordinates are read.
func ReadCIF(r io.Reader) ([]*atomsio.System, error) {
	cif := bufio.NewReader(r)
	m := make(cifcols)
	var atoms []*atomsio.Atom
	var coords [][]float64
	var occbf [][][2]float64
	var pending []string
	var inloop, reading bool
	model := ""
	name := ""
	handleRow := func(row []string) error {
		for _, tag := range []string{"_atom_site.cartn_x", "_atom_site.cartn_y", "_atom_site.cartn_z"} {
			if !m.has(tag) {
				if m.has("_atom_site.fract_x") {
					return ErrFractional
				}
				return fmt.Errorf("_atom_site loop lacks %s", tag)
			}
		}
		mod := m.get(row, "_atom_site.pdbx_pdb_model_num")
		if len(coords) == 0 || mod != model {
			if len(coords) > 1 && len(coords[len(coords)-1]) != len(coords[0]) {
				return fmt.Errorf("model %s has %d atoms, the first one has %d", model, len(coords[len(coords)-1])/3, len(coords[0])/3)
			}
			coords = append(coords, make([]float64, 0, 3*len(atoms)))
			occbf = append(occbf, make([][2]float64, 0, len(atoms)))
			model = mod
		}
		c := len(coords) - 1
		//we don't read the atoms again for the next models.
		if c == 0 {
			at, err := cifAtom(row, m)
			if err != nil {
				return fmt.Errorf("Couldn't read atom %d: %w", len(atoms)+1, err)
			}
			atoms = append(atoms, at)
		}
		for _, tag := range []string{"_atom_site.cartn_x", "_atom_site.cartn_y", "_atom_site.cartn_z"} {
			f, ok, err := cifFloat(row, m, tag)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("missing %s in model %s", tag, model)
			}
			coords[c] = append(coords[c], f)
		}
		occ, ok, err := cifFloat(row, m, "_atom_site.occupancy")
		if err != nil {
			return err
		}
		if !ok {
			occ = 1
		}
		bf, _, err := cifFloat(row, m, "_atom_site.b_iso_or_equiv")
		if err != nil {
			return err
		}
		occbf[c] = append(occbf[c], [2]float64{occ, bf})
		return nil
	}
	for {
		line, err := cif.ReadString('\n')
		if err != nil && line == "" {
			if err == io.EOF {
				break
			}
			return nil, err
		}
		line = strings.TrimRight(line, "\r\n")
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(line, ";") || trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, "#") {
			if reading {
				break //the _atom_site loop is over
			}
			continue
		}
		switch {
		case strings.HasPrefix(tl(trimmed), "data_"):
			if reading || len(atoms) > 0 {
				break //only the first data block is read
			}
			name = trimmed[5:]
			continue
		case strings.HasPrefix(tl(trimmed), "loop_"):
			if reading {
				break
			}
			inloop = true
			m = make(cifcols)
			continue
		case strings.HasPrefix(trimmed, "_"):
			if reading {
				break
			}
			tag := tl(strings.Fields(trimmed)[0])
			//small-molecule CIF files use _atom_site_x instead of _atom_site.x
			if strings.HasPrefix(tag, "_atom_site_") {
				tag = "_atom_site." + tag[len("_atom_site_"):]
			}
			if inloop && strings.HasPrefix(tag, "_atom_site.") {
				m[tag] = len(m)
			} else {
				inloop = false
			}
			continue
		default:
			if !inloop || len(m) == 0 {
				continue //the data of some other loop
			}
			reading = true
			pending = append(pending, cifTokens(trimmed)...)
			for len(pending) >= len(m) {
				if err := handleRow(pending[:len(m)]); err != nil {
					return nil, fmt.Errorf("CIF: %w", err)
				}
				pending = pending[len(m):]
			}
			continue
		}
		break
	}
	if len(pending) > 0 {
		return nil, fmt.Errorf("CIF: incomplete _atom_site row: %v", pending)
	}
	if len(atoms) == 0 {
		return nil, fmt.Errorf("CIF: no _atom_site loop found")
	}
	traj := make([]*atomsio.System, len(coords))
	for i, f := range coords {
		if len(f) != 3*len(atoms) {
			return nil, fmt.Errorf("CIF: model %d has %d atoms, the first one has %d", i+1, len(f)/3, len(atoms))
		}
		c, err := v3.NewMatrix(f)
		if err != nil {
			return nil, fmt.Errorf("CIF: Couldn't transform coordinates from frame %d: %w", i, err)
		}
		s := &atomsio.System{Coords: c, Atoms: make([]*atomsio.Atom, len(atoms))}
		for j, a := range atoms {
			s.Atoms[j] = a.Copy()
			s.Atoms[j].Occupancy = occbf[i][j][0]
			s.Atoms[j].Bfactor = occbf[i][j][1]
		}
		if name != "" {
			s.Info = map[string]string{"data": name}
		}
		traj[i] = s
	}
	return traj, nil
}

func cifValue(s string) string {
	if s == "" {
		return "?"
	}
	if strings.ContainsAny(s, " \t'") {
		return `"` + s + `"`
	}
	if strings.ContainsAny(s, `"`) || strings.HasPrefix(s, "_") || strings.HasPrefix(s, "#") {
		return "'" + s + "'"
	}
	return s
}

var cifWriteTags = []string{
	"group_PDB",
	"id",
	"type_symbol",
	"auth_atom_id",
	"auth_comp_id",
	"auth_asym_id",
	"auth_seq_id",
	"Cartn_x",
	"Cartn_y",
	"Cartn_z",
	"occupancy",
	"B_iso_or_equiv",
	"pdbx_formal_charge",
	"pdbx_PDB_model_num",
}

// WriteCIF writes traj as an mmCIF _atom_site loop, each structure as one model.
func WriteCIF(out io.Writer, traj ...*atomsio.System) error {
	w := bufio.NewWriter(out)
	n := "atomsio"
	if len(traj) > 0 && traj[0] != nil && traj[0].Info["data"] != "" {
		n = traj[0].Info["data"]
	}
	fmt.Fprintf(w, "data_%s\n#\nloop_\n", strings.ReplaceAll(n, " ", "_"))
	for _, t := range cifWriteTags {
		fmt.Fprintf(w, "_atom_site.%s\n", t)
	}
	c := make([]float64, 3)
	for i, s := range traj {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
		if s.Len() != traj[0].Len() {
			return fmt.Errorf("frame %d has %d atoms, frame 0 has %d", i, s.Len(), traj[0].Len())
		}
		for j, a := range s.Atoms {
			het := "ATOM"
			if a.Het {
				het = "HETATM"
			}
			id := a.ID
			if id == 0 {
				id = j + 1
			}
			s.Coords.Vec(c, j)
			_, err := fmt.Fprintf(w, "%s %d %s %s %s %s %d %.3f %.3f %.3f %.2f %.2f %d %d\n", het, id, cifValue(a.Symbol), cifValue(a.Name), cifValue(a.MolName),
				cifValue(a.Chain), a.MolID, c[0], c[1], c[2], a.Occupancy, a.Bfactor, int(a.Charge), i+1)
			if err != nil {
				return err
			}
		}
	}
	fmt.Fprint(w, "#\n")
	return w.Flush()
}
