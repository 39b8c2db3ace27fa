package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Compare the catalog against the Steam library without writing",
	Long: `Check fetches the owned-games list and reports both directions of
drift: library titles with no catalog row (with a closest-row
suggestion where one is plausible) and catalog rows tagged Steam that
the library no longer lists. Nothing is written.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		defer client.Close()

		summary, err := client.Check(cmd.Context())
		if err != nil {
			return err
		}

		if len(summary.Missing) == 0 && len(summary.Unmatched) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "Catalog and library are in agreement.")
			return nil
		}
		printSummary(cmd, summary)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
