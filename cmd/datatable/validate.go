package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Load every table definition and report problems",
		RunE: func(cmd *cobra.Command, _ []string) error {
			tables, _, err := loadTables()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TABLE\tMODE\tCOLUMNS\tFILTERS\tEXPORTS")
			for _, name := range tables.Names() {
				table, err := tables.Get(name)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%v\n",
					name, table.DataSource.Mode, len(table.Columns), len(table.Filters), table.Export.Types)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			for _, warning := range tables.Warnings {
				log.Warn(warning)
			}
			return nil
		},
	}
}
