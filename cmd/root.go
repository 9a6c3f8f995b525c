// Package cmd holds the command-line entrypoints: the HTTP server, schema
// migration and the scoring maintenance commands.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/tbourn/go-interview-backend/internal/ai"
	"github.com/tbourn/go-interview-backend/internal/ai/gemini"
	"github.com/tbourn/go-interview-backend/internal/ai/openai"
	"github.com/tbourn/go-interview-backend/internal/config"
	"github.com/tbourn/go-interview-backend/internal/repo"
	"github.com/tbourn/go-interview-backend/internal/sysutil"
)

const app = "interview-backend"

var (
	// Used for flags.
	envFile string
	debug   bool

	rootCmd = &cobra.Command{
		Use:           app,
		Short:         "interview-backend runs AI-led candidate interviews and scores them",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Execute executes the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		return err
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment (missing file is ignored)")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "debug logging regardless of LOG_LEVEL")
}

// loadConfig reads the dotenv file, the environment and sets up logging.
func loadConfig() (config.Config, error) {
	if envFile != "" {
		// real environment wins over the file
		_ = godotenv.Load(envFile)
	}
	cfg, err := config.Load()
	if err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	if debug {
		cfg.LogLevel = "debug"
	}
	sysutil.SetupLogging(cfg.LogLevel, cfg.LogPretty, nil)
	return cfg, nil
}

// openDB connects to the configured backend.
func openDB(cfg config.Config) (*gorm.DB, error) {
	dsn := cfg.DB.Path
	if cfg.DB.Driver == "postgres" {
		dsn = cfg.DB.URL
	}
	db, err := repo.Open(cfg.DB.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.DB.Driver, err)
	}
	return db, nil
}

// providerKeyEnv names the provider SDK's own key variable, consulted when
// AI_API_KEY is unset.
var providerKeyEnv = map[string]string{
	"gemini": "GEMINI_API_KEY",
	"openai": "OPENAI_API_KEY",
}

// newInterviewer builds the configured AI provider.
func newInterviewer(ctx context.Context, cfg config.AIConfig) (ai.Interviewer, error) {
	if env, ok := providerKeyEnv[cfg.Provider]; ok {
		cfg.APIKey = sysutil.FirstNonEmpty(cfg.APIKey, os.Getenv(env))
	}
	var (
		model ai.Interviewer
		name  string
	)
	switch cfg.Provider {
	case "gemini":
		g, err := gemini.New(ctx, cfg.APIKey, cfg.Model)
		if err != nil {
			return nil, err
		}
		model, name = g, g.Model()
	case "openai":
		o, err := openai.New(cfg.APIKey, cfg.BaseURL, cfg.Model)
		if err != nil {
			return nil, err
		}
		model, name = o, o.Model()
	default:
		return nil, fmt.Errorf("unsupported AI provider %q", cfg.Provider)
	}
	log.Info().Str("provider", cfg.Provider).Str("model", name).Msg("AI provider ready")
	return model, nil
}

func closeDB(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Warn().Err(err).Msg("close database")
	}
}

// cmdLogger is the logger for a subcommand.
func cmdLogger(name string) zerolog.Logger {
	return log.With().Str("cmd", name).Logger()
}
