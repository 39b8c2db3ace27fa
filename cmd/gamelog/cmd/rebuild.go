package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Regenerate the relational database from the workbook",
	Long: `Rebuild validates every workbook row, regenerates the dictionary and
data tables, and atomically replaces the database file. A malformed
row fails the whole rebuild with the offending row named; the previous
database is left untouched.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		defer client.Close()

		if err := client.Rebuild(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Database rebuilt at %s.\n", client.DatabasePath())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rebuildCmd)
}
