package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ivlev/adreel/internal/templates"
)

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "List the built-in templates",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg := templates.Builtin()
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "KEY\tTHEME\tDESCRIPTION")
		for _, t := range reg.List() {
			key := t.Key
			if key == reg.DefaultKey() {
				key += " (default)"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", key, t.Theme, t.Description)
		}
		return w.Flush()
	},
}
