package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/apetrov/gamelog/pkg/errors"
	"github.com/apetrov/gamelog/pkg/sources"
	"github.com/apetrov/gamelog/pkg/syncer"
)

var (
	syncPartial bool
	syncTest    bool
)

var syncCmd = &cobra.Command{
	Use:   "sync <steam|metacritic|hltb>",
	Short: "Synchronize catalog rows against an external source",
	Long: `Sync runs one synchronization pass for the given source. Full mode
(the default) processes every committed row; --partial only processes
rows still missing the fields the source would fill. --test bounds the
pass to the configured test row cap for a quick dry run.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind := sources.Kind(args[0])
		if !kind.IsValid() {
			return fmt.Errorf("unknown source %q (expected steam, metacritic or hltb)", args[0])
		}

		client, err := newClient()
		if err != nil {
			return err
		}
		defer client.Close()

		mode := sources.Full
		if syncPartial {
			mode = sources.Partial
		}
		rowCap := 0
		if syncTest {
			rowCap = client.TestRowCap()
		}

		summary, err := client.Sync(cmd.Context(), kind, mode, rowCap)
		if errors.Is(err, errors.ErrNothingToSync) {
			fmt.Fprintln(cmd.OutOrStdout(), "Nothing to synchronize.")
			return nil
		}
		if err != nil {
			return err
		}

		printSummary(cmd, summary)
		return nil
	},
}

func init() {
	syncCmd.Flags().BoolVar(&syncPartial, "partial", false, "only process rows missing the target fields")
	syncCmd.Flags().BoolVar(&syncTest, "test", false, "bound the pass to the configured test row cap")
	rootCmd.AddCommand(syncCmd)
}

func printSummary(cmd *cobra.Command, s *syncer.Summary) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s %s sync: %d updated, %d skipped, %d not found, %d failed\n",
		s.Source, s.Mode, s.Updated, s.Skipped, s.NotFound, s.Failed)

	if len(s.Missing) > 0 {
		fmt.Fprintf(out, "\nLibrary titles missing from the catalog (%d):\n", len(s.Missing))
		suggestions := make(map[string]string, len(s.Suggestions))
		for _, sg := range s.Suggestions {
			suggestions[sg.Original] = fmt.Sprintf("%s (%s, score %.2f)", sg.Closest, sg.Class, sg.Score)
		}
		for _, name := range s.Missing {
			if hint, ok := suggestions[name]; ok {
				fmt.Fprintf(out, "  %s (closest row: %s)\n", name, hint)
			} else {
				fmt.Fprintf(out, "  %s\n", name)
			}
		}
	}
	if len(s.Unmatched) > 0 {
		fmt.Fprintf(out, "\nCatalog rows absent from the library (%d):\n", len(s.Unmatched))
		for _, name := range s.Unmatched {
			fmt.Fprintf(out, "  %s\n", name)
		}
	}
}
