/*
 * convert.go, part of atomsio.
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

func newConvertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert IN OUT",
		Short: "Convert a structure or trajectory file",
		Long: `Reads IN and writes OUT, each with the backend chosen from its name unless
--from or --to are given. By default only one structure (the last one) is
converted; use --index to pick another, or --trajectory to convert them all.
--in-format and --out-format name the file formats for backends that take
them (ase).`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, _ := cmd.Flags().GetString("from")
			to, _ := cmd.Flags().GetString("to")
			index, _ := cmd.Flags().GetInt("index")
			all, _ := cmd.Flags().GetBool("trajectory")
			infmt, _ := cmd.Flags().GetString("in-format")
			outfmt, _ := cmd.Flags().GetString("out-format")
			if all && cmd.Flags().Changed("index") {
				return fmt.Errorf("--index and --trajectory can't be used together")
			}
			R, log, err := setup(cmd)
			if err != nil {
				return err
			}
			if all {
				traj, err := R.LoadTrajectory(args[0], atomsio.WithBackend(from), atomsio.WithFormat(infmt))
				if err != nil {
					return err
				}
				if err := R.SaveTrajectory(args[1], traj, atomsio.WithBackend(to), atomsio.WithFormat(outfmt)); err != nil {
					return err
				}
				log.Info("converted trajectory", "in", args[0], "out", args[1], "frames", len(traj))
				return nil
			}
			mol, err := R.LoadSystem(args[0], atomsio.WithBackend(from), atomsio.WithIndex(index), atomsio.WithFormat(infmt))
			if err != nil {
				return err
			}
			if err := R.SaveSystem(args[1], mol, atomsio.WithBackend(to), atomsio.WithFormat(outfmt)); err != nil {
				return err
			}
			log.Info("converted structure", "in", args[0], "out", args[1], "atoms", mol.Len())
			return nil
		},
	}
	cmd.Flags().String("from", "", "Backend to read IN with")
	cmd.Flags().String("to", "", "Backend to write OUT with")
	cmd.Flags().Int("index", atomsio.LastFrame, "Structure to read from IN (0-based, negative values count from the end)")
	cmd.Flags().Bool("trajectory", false, "Convert every structure in IN")
	cmd.Flags().String("in-format", "", "Format of IN, for backends that take one")
	cmd.Flags().String("out-format", "", "Format of OUT, for backends that take one")
	return cmd
}
