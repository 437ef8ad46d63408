/*
 * pdb.go, part of atomsio.
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
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rmera/atomsio"
	v3 "github.com/rmera/atomsio/v3"
)

// This tries to guess a chemical element symbol from a PDB atom name. Mostly based on AMBER names.
// It only deals with some common bio-elements.
func symbolFromName(name string) (string, error) {
	symbol := ""
	if len(name) == 0 {
		return "", fmt.Errorf("Can't guess symbol from an empty name")
	}
	if len(name) == 4 || name[0] == 'H' { //I thiiink only Hs can have 4-char names in amber.
		symbol = "H"
	} else if name[0] == 'C' {
		switch name {
		case "CU":
			symbol = "Cu"
		case "CO":
			symbol = "Co"
		case "CL":
			symbol = "Cl"
		default: //Ca is not considered here
			symbol = "C"
		}
	} else if name[0] == 'N' {
		if name == "NA" {
			symbol = "Na"
		} else {
			symbol = "N"
		}
	} else if name[0] == 'O' {
		symbol = "O"
	} else if name[0] == 'P' {
		symbol = "P"
	} else if name[0] == 'S' {
		if name == "SE" {
			symbol = "Se"
		} else {
			symbol = "S"
		}
	} else if strings.HasPrefix(name, "ZN") {
		symbol = "Zn"
	} else if strings.HasPrefix(name, "MG") {
		symbol = "Mg"
	} else if strings.HasPrefix(name, "FE") {
		symbol = "Fe"
	}
	if symbol == "" {
		return symbol, fmt.Errorf("Couldn't guess symbol from PDB name %s", name)
	}
	return symbol, nil
}

// field returns line[a:b], trimmed, or "" if the line is too short.
func field(line string, a, b int) string {
	if len(line) <= a {
		return ""
	}
	if len(line) < b {
		b = len(line)
	}
	return strings.TrimSpace(line[a:b])
}

// parsePDBCharge reads charges written as "2+" or "1-".
func parsePDBCharge(s string) float64 {
	if len(s) != 2 {
		return 0
	}
	n, err := strconv.Atoi(s[:1])
	if err != nil {
		return 0
	}
	if s[1] == '-' {
		return -float64(n)
	}
	return float64(n)
}

// Parses a valid ATOM or HETATM line of a PDB file, returns an Atom
// object with the info except for the coordinates, which are returned
// separately.
func readPDBLine(line string) (*atomsio.Atom, [3]float64, error) {
	var coords [3]float64
	var err error
	if len(line) < 54 {
		return nil, coords, fmt.Errorf("line too short: %q", line)
	}
	atom := new(atomsio.Atom)
	atom.Het = strings.HasPrefix(line, "HETATM")
	atom.ID, err = strconv.Atoi(field(line, 6, 11))
	if err != nil {
		return nil, coords, fmt.Errorf("can't read atom serial: %w", err)
	}
	atom.Name = field(line, 12, 16)
	//PDB says that pos. 17 is for other thing but I see that is
	//used for residue name in many cases
	atom.MolName = field(line, 17, 20)
	atom.Chain = field(line, 21, 22)
	if s := field(line, 22, 26); s != "" {
		atom.MolID, err = strconv.Atoi(s)
		if err != nil {
			return nil, coords, fmt.Errorf("can't read residue number: %w", err)
		}
	}
	for i := 0; i < 3; i++ {
		coords[i], err = strconv.ParseFloat(field(line, 30+8*i, 38+8*i), 64)
		if err != nil {
			return nil, coords, fmt.Errorf("can't read coordinate %d: %w", i, err)
		}
	}
	//Occupancy and b-factors are often missing. We just leave them in zero.
	atom.Occupancy, _ = strconv.ParseFloat(field(line, 54, 60), 64)
	atom.Bfactor, _ = strconv.ParseFloat(field(line, 60, 66), 64)
	atom.Symbol = atomsio.NormalizeSymbol(field(line, 76, 78))
	atom.Charge = parsePDBCharge(field(line, 78, 80))
	//This part tries to guess the symbol from the atom name, if it has not been read
	//No error checking here, just fills symbol with the empty string the function returns
	if atom.Symbol == "" {
		atom.Symbol, _ = symbolFromName(atom.Name)
	}
	atom.Mass = atomsio.Mass(atom.Symbol)
	return atom, coords, nil
}

// ReadPDB reads all the models in a PDB file. Atom data is taken from the first model,
// the following ones only contribute coordinates, occupancies and b-factors. The CRYST1
// record, if present, is kept verbatim in Info["CRYST1"].
func ReadPDB(r io.Reader) ([]*atomsio.System, error) {
	pdb := bufio.NewReader(r)
	var atoms []*atomsio.Atom
	var frames [][]float64
	var occbf [][][2]float64
	var cryst1 string
	var current []float64
	var currentob [][2]float64
	inModel := false
	contlines := 0 //count the lines read to better report errors
	flush := func() error {
		if len(current) == 0 {
			return nil
		}
		if len(frames) > 0 && len(current) != len(frames[0]) {
			return fmt.Errorf("model %d has %d atoms, the first one has %d", len(frames)+1, len(current)/3, len(frames[0])/3)
		}
		frames = append(frames, current)
		occbf = append(occbf, currentob)
		current = nil
		currentob = nil
		return nil
	}
	for {
		line, err := pdb.ReadString('\n')
		if err != nil && line == "" {
			if err == io.EOF {
				break
			}
			return nil, err
		}
		contlines++
		line = strings.TrimRight(line, "\r\n")
		switch {
		case strings.HasPrefix(line, "ATOM") || strings.HasPrefix(line, "HETATM"):
			at, c, err := readPDBLine(line)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", contlines, err)
			}
			if len(frames) == 0 {
				atoms = append(atoms, at)
			}
			current = append(current, c[0], c[1], c[2])
			currentob = append(currentob, [2]float64{at.Occupancy, at.Bfactor})
		case strings.HasPrefix(line, "MODEL"):
			if inModel {
				return nil, fmt.Errorf("line %d: MODEL without ENDMDL", contlines)
			}
			inModel = true
			if err := flush(); err != nil {
				return nil, err
			}
		case strings.HasPrefix(line, "ENDMDL"):
			inModel = false
			if err := flush(); err != nil {
				return nil, err
			}
		case strings.HasPrefix(line, "CRYST1"):
			cryst1 = strings.TrimSpace(line[6:])
		case strings.HasPrefix(line, "END"):
			//anything after END is ignored.
			if err := flush(); err != nil {
				return nil, err
			}
			return buildPDBFrames(atoms, frames, occbf, cryst1)
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return buildPDBFrames(atoms, frames, occbf, cryst1)
}

func buildPDBFrames(atoms []*atomsio.Atom, frames [][]float64, occbf [][][2]float64, cryst1 string) ([]*atomsio.System, error) {
	if len(atoms) == 0 {
		return nil, fmt.Errorf("no atoms found")
	}
	traj := make([]*atomsio.System, len(frames))
	for i, f := range frames {
		c, err := v3.NewMatrix(f)
		if err != nil {
			return nil, err
		}
		s := &atomsio.System{Coords: c, Atoms: make([]*atomsio.Atom, len(atoms))}
		for j, a := range atoms {
			s.Atoms[j] = a.Copy()
			s.Atoms[j].Occupancy = occbf[i][j][0]
			s.Atoms[j].Bfactor = occbf[i][j][1]
		}
		if cryst1 != "" {
			s.Info = map[string]string{"CRYST1": cryst1}
		}
		traj[i] = s
	}
	return traj, nil
}

func pdbCharge(c float64) string {
	n := int(c)
	if n == 0 || float64(n) != c || n > 9 || n < -9 {
		return "  "
	}
	if n < 0 {
		return fmt.Sprintf("%d-", -n)
	}
	return fmt.Sprintf("%d+", n)
}

func firstChar(s string) string {
	if s == "" {
		return " "
	}
	return s[:1]
}

// WritePDB writes the structures in traj to out. If there is more than one, each
// goes in its own MODEL. A TER record is written each time the chain changes.
// The box is not written, but a CRYST1 record read from a PDB file is.
func WritePDB(out io.Writer, traj ...*atomsio.System) error {
	w := bufio.NewWriter(out)
	fmt.Fprint(w, "REMARK     WRITTEN WITH ATOMSIO\n")
	if len(traj) > 0 && traj[0] != nil {
		if c, ok := traj[0].Info["CRYST1"]; ok {
			fmt.Fprintf(w, "CRYST1%s\n", c)
		}
	}
	c := make([]float64, 3)
	for j, s := range traj {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("frame %d: %w", j, err)
		}
		if len(traj) > 1 {
			fmt.Fprintf(w, "MODEL     %4d\n", j+1)
		}
		chainprev := s.Atoms[0].Chain //this is to know when the chain changes.
		for i, at := range s.Atoms {
			if at.Chain != chainprev {
				fmt.Fprintln(w, "TER")
				chainprev = at.Chain
			}
			first := "ATOM"
			if at.Het {
				first = "HETATM"
			}
			s.Coords.Vec(c, i)
			id := at.ID
			if id == 0 {
				id = i + 1
			}
			name := at.Name
			if name == "" {
				name = at.Symbol
			}
			var err error
			switch {
			case len(name) < 4:
				_, err = fmt.Fprintf(w, "%-6s%5d  %-3s %3s %1s%4d    %8.3f%8.3f%8.3f%6.2f%6.2f          %2s%2s\n", first, id%100000, name, at.MolName, firstChar(at.Chain),
					at.MolID%10000, c[0], c[1], c[2], at.Occupancy, at.Bfactor, at.Symbol, pdbCharge(at.Charge))
			case len(name) == 4:
				//4 chars for the atom name are used when hydrogens are included.
				_, err = fmt.Fprintf(w, "%-6s%5d %4s %3s %1s%4d    %8.3f%8.3f%8.3f%6.2f%6.2f          %2s%2s\n", first, id%100000, name, at.MolName, firstChar(at.Chain),
					at.MolID%10000, c[0], c[1], c[2], at.Occupancy, at.Bfactor, at.Symbol, pdbCharge(at.Charge))
			default:
				err = fmt.Errorf("atom %d: name %q is too long for PDB", i, name)
			}
			if err != nil {
				return err
			}
		}
		if len(traj) > 1 {
			fmt.Fprint(w, "ENDMDL\n")
		}
	}
	fmt.Fprint(w, "END\n")
	return w.Flush()
}
