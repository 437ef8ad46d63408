/*
 * root.go, part of atomsio.
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

package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/rmera/atomsio"
	"github.com/rmera/atomsio/backends"
	"github.com/rmera/atomsio/config"
	"github.com/rmera/atomsio/internal/logging"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "atomsio",
		Short: "atomsio reads and writes atomistic structure files",
		Long: `atomsio loads and saves structures and trajectories, choosing a backend
from the file name. Backends are tried in a fixed priority order: extxyz, gochem, ase.`,
		SilenceUsage:  true,
		SilenceErrors: true, //Execute prints them
	}
	// Persistent flags (available to all commands)
	root.PersistentFlags().String("config", "", "Configuration file (default $"+config.EnvPath+")")
	root.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error (overrides the configuration)")
	root.AddCommand(newConvertCmd(), newResolveCmd(), newBackendsCmd(), newVersionCmd())
	return root
}

// Execute runs the root command.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup reads the configuration given in the flags and returns a resolver
// over the default registry.
func setup(cmd *cobra.Command) (*atomsio.Resolver, *slog.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(config.Path(path))
	if err != nil {
		return nil, nil, err
	}
	level := cfg.LogLevel
	if l, _ := cmd.Flags().GetString("log-level"); l != "" {
		level = l
	}
	lvl, err := logging.ParseLevel(level)
	if err != nil {
		return nil, nil, err
	}
	log := logging.NewWriter(cmd.ErrOrStderr(), lvl)
	reg, err := backends.Default(cfg, log)
	if err != nil {
		return nil, nil, err
	}
	return atomsio.NewResolver(reg, atomsio.WithLogger(log)), log, nil
}
