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

/*
Package atomsio loads and saves atomistic structures and trajectories,
dispatching each call to one of several pluggable backends.

A Backend knows how to read and/or write some file formats, and tells,
through CanHandle, whether it can perform a given Operation on a given file.
Backends are kept in a Registry, in the order they were registered. That order
is the priority: when more than one backend can handle a file, the first
one registered wins. The default registry, built by the backends package, is

	extxyz, gochem, ase (optional)

A Resolver picks the backend for each call:

  - If a backend name is given explicitly (WithBackend), that backend is used,
    as long as it is registered and available. It is not asked whether it can
    handle the file.
  - Otherwise, backends are asked in registration order, skipping the
    unavailable ones, and the first one that can handle the file is used.
  - If none can, an UnsupportedFormatError lists the backends consulted,
    and those skipped because they were unavailable.

Files are never sniffed; the decision depends only on the file name, the
operation and the registry. Once a backend is chosen, its errors are returned
wrapped in a BackendOperationError, and no other backend is tried.

A minimal use:

	reg, err := backends.Default(nil, nil)
	if err != nil {
		return err
	}
	R := atomsio.NewResolver(reg)
	mol, err := R.LoadSystem("1abc.pdb")               //the last model
	first, err := R.LoadSystem("md.xyz", atomsio.WithIndex(0))
	err = R.SaveSystem("out.cif", mol, atomsio.WithBackend("ase"))

The registry can be extended with more backends before the first resolution.
After that it is frozen, so resolution can proceed concurrently without locks.
*/
package atomsio

// Version is the atomsio version.
const Version = "0.1.0"
