// Package config loads application configuration from config files,
// environment variables, and .env files.
package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/apetrov/gamelog/pkg/errors"
)

// Defaults applied when no other source provides a value.
const (
	DefaultWorkbookPath = "games.xlsx"
	DefaultDatabasePath = "games.db"
	DefaultRequestDelay = 2 * time.Second
	DefaultTestRowCap   = 5
	DefaultHTTPTimeout  = 10 * time.Second
)

// Config holds the application configuration loaded from config files,
// environment variables, and .env files.
type Config struct {
	// Steam Web API credentials.
	SteamAPIKey string
	SteamID     string

	// Store locations.
	WorkbookPath string
	DatabasePath string

	// Dictionary enumerations, in surrogate-identifier order.
	Statuses  []string
	Platforms []string

	// Synchronization settings.
	RequestDelay time.Duration
	TestRowCap   int
	HTTPTimeout  time.Duration

	// Similarity thresholds; zero means the built-in default.
	MatchMax    float64
	PossibleMax float64

	// Logging configuration.
	LogLevel  string
	LogFormat string
}

// Load reads configuration from all sources in order of precedence:
// command-line flags (handled by cobra), environment variables, .env
// files, a config file (~/.gamelog.yaml), and defaults.
func Load() (*Config, error) {
	loadEnvFiles()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	setDefaults()

	configFile := viper.GetString("config")
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath("$HOME")
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".gamelog")
	}
	// Missing config file is fine; env vars and defaults cover it.
	_ = viper.ReadInConfig()

	cfg := &Config{
		SteamAPIKey:  viper.GetString("steam_api_key"),
		SteamID:      viper.GetString("steam_id"),
		WorkbookPath: viper.GetString("workbook_path"),
		DatabasePath: viper.GetString("database_path"),
		Statuses:     viper.GetStringSlice("statuses"),
		Platforms:    viper.GetStringSlice("platforms"),
		RequestDelay: viper.GetDuration("request_delay"),
		TestRowCap:   viper.GetInt("test_row_cap"),
		HTTPTimeout:  viper.GetDuration("http_timeout"),
		MatchMax:     viper.GetFloat64("match_max"),
		PossibleMax:  viper.GetFloat64("possible_max"),
		LogLevel:     viper.GetString("log_level"),
		LogFormat:    viper.GetString("log_format"),
	}
	return cfg, nil
}

// Validate checks the invariants every operation relies on. Steam
// credentials are checked separately by RequireSteam, since only the
// playtime flows need them.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.WorkbookPath) == "" {
		return errors.NewValidationError("workbook_path", c.WorkbookPath, "workbook path must not be empty")
	}
	if strings.TrimSpace(c.DatabasePath) == "" {
		return errors.NewValidationError("database_path", c.DatabasePath, "database path must not be empty")
	}
	if len(c.Statuses) == 0 {
		return errors.NewValidationError("statuses", nil, "at least one status must be configured")
	}
	if len(c.Platforms) == 0 {
		return errors.NewValidationError("platforms", nil, "at least one platform must be configured")
	}
	return nil
}

// RequireSteam checks that the Steam Web API credentials are configured.
func (c *Config) RequireSteam() error {
	if strings.TrimSpace(c.SteamAPIKey) == "" {
		return errors.NewValidationError("steam_api_key", nil, "STEAM_API_KEY not set")
	}
	if strings.TrimSpace(c.SteamID) == "" {
		return errors.NewValidationError("steam_id", nil, "STEAM_ID not set")
	}
	return nil
}

func setDefaults() {
	viper.SetDefault("workbook_path", DefaultWorkbookPath)
	viper.SetDefault("database_path", DefaultDatabasePath)
	viper.SetDefault("statuses", []string{"Completed", "Not Started", "Dropped"})
	viper.SetDefault("platforms", []string{"Steam", "Switch", "PS4", "PS5", "PC"})
	viper.SetDefault("request_delay", DefaultRequestDelay)
	viper.SetDefault("test_row_cap", DefaultTestRowCap)
	viper.SetDefault("http_timeout", DefaultHTTPTimeout)
	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_format", "auto")
}

// loadEnvFiles loads environment variables from .env files;
// .env.local overrides .env.
func loadEnvFiles() {
	for _, envFile := range []string{".env", ".env.local"} {
		_ = godotenv.Load(envFile)
	}
}
