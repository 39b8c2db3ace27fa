package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var addCmd = &cobra.Command{
	Use:   "add <name>...",
	Short: "Append catalog rows for named Steam titles",
	Long: `Add appends one row per named title with the new-entry defaults
(platform Steam, status Not Started, sentinel dates). Titles the
library shows as already launched get their playtime folded in
immediately.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		defer client.Close()

		if err := client.AddMissing(cmd.Context(), args); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added %d entries.\n", len(args))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(addCmd)
}
