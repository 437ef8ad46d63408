/*
 * doc.go, part of atomsio.
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

// Package external implements a backend that delegates to an external
// converter program. The default program is the "ase convert" command of the
// Atomic Simulation Environment, which reads and writes many formats that
// atomsio doesn't handle itself (VASP, Quantum Espresso, ASE trajectories...).
// Structures go through a temporary extended XYZ file, so whatever the
// converter keeps in that format is what atomsio gets.
//
// The backend is only available if the program is found when the
// backend is created.
package external
