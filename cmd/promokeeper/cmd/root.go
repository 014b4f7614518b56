package cmd

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/solatis/promokeeper/internal/catalog"
	"github.com/solatis/promokeeper/internal/core/config"
	"github.com/solatis/promokeeper/internal/core/db"
	"github.com/solatis/promokeeper/internal/core/logging"
	"github.com/spf13/cobra"
)

// Version is reported by the server at startup and in span resources.
const Version = "0.1.0"

var (
	configFile string
	dbURL      string
	logLevel   string
	logFormat  string
)

var rootCmd = &cobra.Command{
	Use:          "promokeeper",
	Short:        "PromoKeeper promotion rule management",
	Long:         `PromoKeeper stores retail promotions with qualifier and target rule trees, serves them over gRPC and exports their rules as CEL expressions.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&dbURL, "db-url", "", "database connection URL (sqlite://path or postgres://...)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "json", "log format (json, text)")
}

func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

// env is what every subcommand starts from: validated config with the root
// flags applied, and a logger built from it.
type env struct {
	cfg *config.Config
	log zerolog.Logger
}

func loadEnv(cmd *cobra.Command) (*env, error) {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load config")
	}

	flags := cmd.Flags()
	if flags.Changed("db-url") {
		cfg.Database.URL = dbURL
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = logFormat
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	log, err := logging.NewStderr(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, log: log}, nil
}

// openDatabase opens the configured database and refuses to continue while
// migrations are pending.
func (e *env) openDatabase() (*db.Queries, func(), error) {
	if e.cfg.Database.URL == "" {
		return nil, nil, errors.New("--db-url or PK_DATABASE_URL required")
	}
	database, err := db.Open(e.cfg.Database.URL)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to open database")
	}

	status, err := db.MigrateStatus(database)
	if err != nil {
		database.Close()
		return nil, nil, errors.Wrap(err, "failed to check migrations")
	}
	for _, s := range status {
		if !s.Applied {
			database.Close()
			return nil, nil, errors.Errorf("migration %s not applied - run 'promokeeper migrate up' first", s.ID)
		}
	}

	queries, err := db.LoadQueries(database)
	if err != nil {
		database.Close()
		return nil, nil, errors.Wrap(err, "failed to load queries")
	}
	return queries, func() { database.Close() }, nil
}

func (e *env) openCatalog() (*catalog.StaticCatalog, error) {
	cat, err := catalog.Open(e.cfg.Catalog.Path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load attribute catalog")
	}
	return cat, nil
}
