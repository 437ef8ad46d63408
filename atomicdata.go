/*
 * atomicdata.go, part of atomsio.
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

import "strings"

// A map for assigning mass to elements.
// Note that just common elements are present
var symbolMass = map[string]float64{
	"H":  1.008,
	"He": 4.0026,
	"Li": 6.94,
	"Be": 9.012,
	"B":  10.81,
	"C":  12.01,
	"N":  14.01,
	"O":  16.00,
	"F":  18.998,
	"Ne": 20.18,
	"Na": 22.99,
	"Mg": 24.30,
	"Al": 26.98,
	"Si": 28.08,
	"P":  30.97,
	"S":  32.06,
	"Cl": 35.45,
	"Ar": 39.95,
	"K":  39.1,
	"Ca": 40.08,
	"Ti": 47.87,
	"Cr": 51.996,
	"Mn": 54.94,
	"Fe": 55.84,
	"Co": 58.93,
	"Ni": 58.69,
	"Cu": 63.55,
	"Zn": 65.38,
	"Ga": 69.72,
	"Ge": 72.63,
	"As": 74.92,
	"Se": 78.96,
	"Br": 79.904,
	"Kr": 83.80,
	"Ag": 107.87,
	"Sn": 118.71,
	"I":  126.90,
	"Xe": 131.29,
	"Pt": 195.08,
	"Au": 196.97,
	"Pb": 207.2,
}

// NormalizeSymbol returns the element symbol s with the usual
// capitalization ("CL" and "cl" give "Cl").
func NormalizeSymbol(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

// Mass returns the atomic mass for the element symbol, or 0 if
// the element is not known.
func Mass(symbol string) float64 {
	return symbolMass[NormalizeSymbol(symbol)]
}
