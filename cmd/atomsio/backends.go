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

package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/rmera/atomsio"
	"github.com/spf13/cobra"
)

// formatter is implemented by the backends that can list their formats.
type formatter interface {
	Formats() atomsio.Formats
}

func newBackendsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backends",
		Short: "List the backends in priority order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			R, _, err := setup(cmd)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PRIORITY\tNAME\tAVAILABLE\tFORMATS")
			for i, b := range R.Registry().Backends() {
				formats := "?"
				if f, ok := b.(formatter); ok {
					formats = strings.Join(f.Formats().Keys(), " ")
				}
				fmt.Fprintf(w, "%d\t%s\t%t\t%s\n", i+1, b.Name(), b.Available(), formats)
			}
			return w.Flush()
		},
	}
}
