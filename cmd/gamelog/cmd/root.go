// Package cmd implements the gamelog CLI commands.
package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/apetrov/gamelog"
	"github.com/apetrov/gamelog/internal/config"
	"github.com/apetrov/gamelog/pkg/logging"
)

var (
	configFile string
	verbose    bool

	// Version information set by main.
	Version = "dev"
	// Commit is the git commit hash.
	Commit = "unknown"
	// Date is the build date.
	Date = "unknown"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "gamelog",
	Short: "Game catalog synchronization CLI",
	Long: `Gamelog maintains a personal game catalog: an xlsx workbook as the
human-editable source of truth, synchronized against Steam playtime,
Metacritic reviews and HowLongToBeat completion times, and compiled
into a relational SQLite database for querying.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			zerolog.SetGlobalLevel(zerolog.DebugLevel)
		}
	},
}

// Execute runs the root command with signal-aware cancellation.
func Execute(version, commit, date string) error {
	Version = version
	Commit = commit
	Date = date
	rootCmd.Version = fmt.Sprintf("%s (commit %s, built %s)", version, commit, date)

	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(rootCmd.ErrOrStderr(), "Error:", err)
		return err
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is $HOME/.gamelog.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// loadConfig loads configuration honoring the persistent flags and
// applies its logging settings.
func loadConfig() (*config.Config, error) {
	if configFile != "" {
		viper.Set("config", configFile)
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	logging.Configure(cfg.LogLevel, cfg.LogFormat)
	return cfg, nil
}

// newClient loads configuration and opens the catalog facade.
func newClient() (*gamelog.Client, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return gamelog.New(gamelog.WithConfig(cfg))
}
