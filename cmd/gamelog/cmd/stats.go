package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/apetrov/gamelog/internal/store/gamedb"
)

var statsPlatform string

var statsCmd = &cobra.Command{
	Use:   "stats [game]",
	Short: "Query the rebuilt database",
	Long: `Stats reads the rebuilt relational database. Without arguments it
prints per-status counts and total hours played; with a game name it
prints that game's record; with --platform it lists the games on one
platform.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		db, err := gamedb.Open(cfg.DatabasePath)
		if err != nil {
			return err
		}
		defer db.Close()

		out := cmd.OutOrStdout()
		ctx := cmd.Context()

		if len(args) == 1 {
			game, err := db.GameByName(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s [%s]\n", game.Name, strings.Join(game.Platforms, ", "))
			fmt.Fprintf(out, "  status:       %s\n", game.Status)
			fmt.Fprintf(out, "  released:     %s\n", game.ReleaseDate)
			fmt.Fprintf(out, "  press score:  %s\n", formatScore(game.PressScore))
			fmt.Fprintf(out, "  user score:   %s\n", formatScore(game.UserScore))
			fmt.Fprintf(out, "  time to beat: %s expected, %s played\n",
				formatScore(game.AvgTimeBeat), formatScore(game.MyTimeBeat))
			return nil
		}

		if statsPlatform != "" {
			games, err := db.GamesOnPlatform(ctx, statsPlatform)
			if err != nil {
				return err
			}
			for _, game := range games {
				fmt.Fprintf(out, "%s (%s)\n", game.Name, game.Status)
			}
			fmt.Fprintf(out, "%d games on %s\n", len(games), statsPlatform)
			return nil
		}

		for _, status := range cfg.Statuses {
			n, err := db.CountByStatus(ctx, status)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%-12s %d\n", status, n)
		}
		hours, err := db.TotalHoursPlayed(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Total hours played: %.1f\n", hours)
		return nil
	},
}

func formatScore(f *float64) string {
	if f == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.1f", *f)
}

func init() {
	statsCmd.Flags().StringVar(&statsPlatform, "platform", "", "list games on one platform")
	rootCmd.AddCommand(statsCmd)
}
