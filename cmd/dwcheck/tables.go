package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/dwcheck/internal/core"
)

func (c *cli) tablesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List table kinds and their required columns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "KIND\tKEY\tPARENT\tREQUIRED COLUMNS")
			for _, def := range core.All() {
				parent := "-"
				if def.ParentKind != "" {
					parent = fmt.Sprintf("%s.%s", def.ParentKind, def.ParentKey)
				}
				key := def.PrimaryKey
				if key == "" {
					key = "-"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", def.Kind, key, parent, strings.Join(def.RequiredColumns, ", "))
			}
			return tw.Flush()
		},
	}
}
