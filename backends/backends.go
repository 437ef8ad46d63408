/*
 * backends.go, part of atomsio.
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

// Package backends builds the default atomsio registry. The priority order
// is part of the public contract:
//
//  1. extxyz (package xyz), always registered.
//  2. gochem (package chemfmt), always registered.
//  3. ase (package external), registered only if enabled in the configuration.
//     It is available only if the converter program was found.
//
// So .xyz files go to extxyz and .cif files to gochem, unless a backend is
// explicitly requested.
package backends

import (
	"fmt"
	"log/slog"

	"github.com/rmera/atomsio"
	"github.com/rmera/atomsio/chemfmt"
	"github.com/rmera/atomsio/config"
	"github.com/rmera/atomsio/external"
	"github.com/rmera/atomsio/xyz"
)

// Names are the backends Default knows about, in priority order.
var Names = []string{xyz.Name, chemfmt.Name, external.Name}

func builtin(name string) bool {
	return name == xyz.Name || name == chemfmt.Name
}

func checkConfig(cfg *config.Config) error {
	for _, b := range cfg.Backends {
		known := false
		for _, n := range Names {
			known = known || n == b.Name
		}
		if !known {
			return fmt.Errorf("unknown backend %q in configuration (known: %v)", b.Name, Names)
		}
		if builtin(b.Name) && !b.IsEnabled(true) {
			return fmt.Errorf("backend %q is built in and can't be disabled", b.Name)
		}
		if builtin(b.Name) && len(b.Options) > 0 {
			return fmt.Errorf("backend %q takes no options", b.Name)
		}
	}
	return nil
}

// Default returns a new registry with the backends enabled in cfg, in
// priority order. A nil cfg means config.Default(). The options in extra
// are given to the external backend.
func Default(cfg *config.Config, log *slog.Logger, extra ...external.Option) (*atomsio.Registry, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if log == nil {
		log = slog.Default()
	}
	if err := checkConfig(cfg); err != nil {
		return nil, err
	}
	reg, err := atomsio.NewRegistry(xyz.NewBackend(), chemfmt.NewBackend())
	if err != nil {
		return nil, err
	}
	ase, _ := cfg.Backend(external.Name)
	if !ase.IsEnabled(false) {
		log.Debug("backend disabled", "backend", external.Name)
		return reg, nil
	}
	o, err := external.DecodeOptions(ase.Options)
	if err != nil {
		return nil, err
	}
	opts := append([]external.Option{external.WithLogger(log)}, extra...)
	b := external.NewBackend(o, opts...)
	if err := reg.Register(b); err != nil {
		return nil, err
	}
	log.Debug("backend registered", "backend", b.Name(), "available", b.Available(), "command", b.Command())
	return reg, nil
}
