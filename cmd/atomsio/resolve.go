/*
 * resolve.go, part of atomsio.
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

	"github.com/rmera/atomsio"
	"github.com/spf13/cobra"
)

func newResolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve PATH",
		Short: "Print the backend that would handle a file",
		Long: `Prints the name of the backend that would be used for the given operation
on PATH. The file doesn't need to exist.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opname, _ := cmd.Flags().GetString("op")
			op, err := atomsio.ParseOperation(opname)
			if err != nil {
				return err
			}
			name, _ := cmd.Flags().GetString("backend")
			R, _, err := setup(cmd)
			if err != nil {
				return err
			}
			b, err := R.Resolve(atomsio.Request{Op: op, Path: args[0], Backend: name})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), b.Name())
			return nil
		},
	}
	cmd.Flags().String("op", atomsio.LoadSystem.String(), "Operation: load-system, save-system, load-trajectory or save-trajectory")
	cmd.Flags().String("backend", "", "Explicit backend")
	return cmd
}
