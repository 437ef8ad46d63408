/*
 * extended.go, part of atomsio.
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
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Keys of the comment line with a meaning for the reader.
const (
	keyLattice    = "Lattice"
	keyProperties = "Properties"
	keyComment    = "comment" //Info key for a plain (non key=value) comment line.
)

// parseComment splits an extended XYZ comment line into its key=value pairs.
// A key without a value is a flag, and gets the value "T". If the line holds
// no key=value pair at all, or an '=' with no key before it, it is a plain
// comment, and ok is false.
func parseComment(line string) (kv map[string]string, ok bool, err error) {
	kv = make(map[string]string)
	pairs := 0
	s := []rune(strings.TrimSpace(line))
	i := 0
	for i < len(s) {
		for i < len(s) && isSpace(s[i]) {
			i++
		}
		if i >= len(s) {
			break
		}
		start := i
		for i < len(s) && s[i] != '=' && !isSpace(s[i]) {
			i++
		}
		key := string(s[start:i])
		if key == "" {
			return nil, false, nil
		}
		if i >= len(s) || s[i] != '=' {
			kv[key] = "T"
			continue
		}
		i++ //the '='
		var val strings.Builder
		if i < len(s) && s[i] == '"' {
			i++
			closed := false
			for i < len(s) {
				if s[i] == '\\' && i+1 < len(s) {
					val.WriteRune(s[i+1])
					i += 2
					continue
				}
				if s[i] == '"' {
					closed = true
					i++
					break
				}
				val.WriteRune(s[i])
				i++
			}
			if !closed {
				return nil, false, fmt.Errorf("unterminated quoted value for key %s", key)
			}
		} else {
			for i < len(s) && !isSpace(s[i]) {
				val.WriteRune(s[i])
				i++
			}
		}
		kv[key] = val.String()
		pairs++
	}
	if pairs == 0 {
		return nil, false, nil
	}
	return kv, true, nil
}

// isPlainComment returns true if c would be read back as a plain comment.
func isPlainComment(c string) bool {
	_, ext, err := parseComment(c)
	return !ext && err == nil
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t'
}

// columns tells where the species and positions are in each atom line.
type columns struct {
	species int
	pos     int
	total   int
}

var defaultColumns = columns{species: 0, pos: 1, total: 4}

// parseProperties reads a Properties value such as "species:S:1:pos:R:3:forces:R:3".
func parseProperties(p string) (columns, error) {
	f := strings.Split(p, ":")
	if len(f)%3 != 0 {
		return columns{}, fmt.Errorf("malformed Properties %q", p)
	}
	c := columns{species: -1, pos: -1}
	for i := 0; i < len(f); i += 3 {
		n, err := strconv.Atoi(f[i+2])
		if err != nil || n < 1 {
			return columns{}, fmt.Errorf("malformed column count in Properties %q", p)
		}
		switch strings.ToLower(f[i]) {
		case "species":
			c.species = c.total
		case "pos":
			if n != 3 {
				return columns{}, fmt.Errorf("pos property must have 3 columns, not %d", n)
			}
			c.pos = c.total
		}
		c.total += n
	}
	if c.species < 0 || c.pos < 0 {
		return columns{}, fmt.Errorf("Properties %q lacks species or pos", p)
	}
	return c, nil
}

func parseLattice(l string) ([]float64, error) {
	f := strings.Fields(l)
	if len(f) != 9 {
		return nil, fmt.Errorf("Lattice needs 9 numbers, got %d", len(f))
	}
	box := make([]float64, 9)
	for i, v := range f {
		var err error
		box[i], err = strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("can't parse Lattice element %d (%s): %w", i, v, err)
		}
	}
	return box, nil
}

func quote(v string) string {
	v = strings.ReplaceAll(v, "\n", " ")
	if v != "" && !strings.ContainsAny(v, " \t=\"\\") {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `"`, `\"`)
	return `"` + v + `"`
}

// formatComment builds the comment line for a frame. Info keys, including a
// plain comment, are written in alphabetical order after the Lattice and
// Properties keys.
func formatComment(box []float64, info map[string]string) string {
	var b []string
	if len(box) == 9 {
		l := make([]string, 9)
		for i, v := range box {
			l[i] = strconv.FormatFloat(v, 'f', -1, 64)
		}
		b = append(b, keyLattice+"="+quote(strings.Join(l, " ")))
	}
	b = append(b, keyProperties+"=species:S:1:pos:R:3")
	keys := make([]string, 0, len(info))
	for k := range info {
		if k == keyLattice || k == keyProperties || k == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b = append(b, quote(k)+"="+quote(info[k]))
	}
	return strings.Join(b, " ")
}
