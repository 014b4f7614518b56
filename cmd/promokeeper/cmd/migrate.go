package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/solatis/promokeeper/internal/core/db"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply pending migrations",
	Args:  cobra.NoArgs,
	RunE:  runMigrateUp,
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show applied and pending migrations",
	Args:  cobra.NoArgs,
	RunE:  runMigrateStatus,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd, migrateStatusCmd)
}

// openRawDatabase skips the pending-migration check openDatabase performs.
func openRawDatabase(cmd *cobra.Command) (*env, *sqlx.DB, error) {
	e, err := loadEnv(cmd)
	if err != nil {
		return nil, nil, err
	}
	if e.cfg.Database.URL == "" {
		return nil, nil, errors.New("--db-url or PK_DATABASE_URL required")
	}
	database, err := db.Open(e.cfg.Database.URL)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to open database")
	}
	return e, database, nil
}

func runMigrateUp(cmd *cobra.Command, args []string) error {
	e, database, err := openRawDatabase(cmd)
	if err != nil {
		return err
	}
	defer database.Close()

	start := time.Now()
	if err := db.MigrateUp(database); err != nil {
		return errors.Wrap(err, "migration failed")
	}
	e.log.Info().Dur("duration", time.Since(start)).Msg("migrations applied")
	return nil
}

func runMigrateStatus(cmd *cobra.Command, args []string) error {
	_, database, err := openRawDatabase(cmd)
	if err != nil {
		return err
	}
	defer database.Close()

	status, err := db.MigrateStatus(database)
	if err != nil {
		return errors.Wrap(err, "failed to read migration status")
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MIGRATION\tSTATUS\tAPPLIED AT\tDURATION")
	for _, s := range status {
		if !s.Applied {
			fmt.Fprintf(w, "%s\tpending\t-\t-\n", s.ID)
			continue
		}
		appliedAt := "-"
		if s.AppliedAt != nil {
			appliedAt = s.AppliedAt.Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%s\tapplied\t%s\t%dms\n", s.ID, appliedAt, s.ExecutionMs)
	}
	return w.Flush()
}
