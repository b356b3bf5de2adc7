package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/danmuck/waylink/internal/client"
	"github.com/danmuck/waylink/internal/protocol"
	"github.com/spf13/cobra"
)

func globalsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "globals",
		Short: "List the globals the compositor advertises",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, c, stop, err := opts.session(cmd.Context())
			if err != nil {
				return err
			}
			defer stop()

			_, globals, err := c.Globals(ctx)
			if err != nil {
				return err
			}
			return printGlobals(cmd.OutOrStdout(), globals)
		},
	}
}

func printGlobals(out io.Writer, globals []client.Global) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tINTERFACE\tVERSION\tKNOWN")
	for _, g := range globals {
		known := "-"
		if iface, ok := protocol.Lookup(g.Interface); ok {
			known = fmt.Sprintf("v%d", iface.Version)
		}
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\n", g.Name, g.Interface, g.Version, known)
	}
	return w.Flush()
}
