package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/assessd/internal/config"
	"github.com/abhisek/assessd/internal/store"
)

var rootCmd = &cobra.Command{
	Use:           "assessd",
	Short:         "AI-assisted assessment service",
	Long:          "assessd generates, serves and grades multiple-choice quizzes for an online learning platform.",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("config", "assessd.yaml", "Path to the YAML config file")
	rootCmd.PersistentFlags().String("db", "", "Database DSN or SQLite path (overrides db.dsn and ASSESSD_DB_DSN)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads --config and applies the --db override.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	if dsn, _ := cmd.Flags().GetString("db"); dsn != "" {
		cfg.DB.DSN = dsn
	}
	return cfg, nil
}

// openStore opens the configured database. An empty SQLite DSN resolves
// to the default XDG data path.
func openStore(ctx context.Context, cfg config.DBConfig) (*store.Store, error) {
	dsn := cfg.DSN
	if dsn == "" && (cfg.Driver == store.DriverSQLite || cfg.Driver == "") {
		p, err := store.DefaultSQLitePath()
		if err != nil {
			return nil, fmt.Errorf("resolve database path: %w", err)
		}
		dsn = p
	}
	st, err := store.Open(ctx, cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return st, nil
}
