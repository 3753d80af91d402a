package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/solatis/querykeeper/internal/core/db"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newMigrateCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE:  runMigrate,
	}
	c.Flags().Bool("status", false, "print migration status without applying")
	return c
}

func runMigrate(cmd *cobra.Command, args []string) error {
	rt, err := loadRuntime(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = rt.logger.Sync() }()
	ctx := cmd.Context()

	database, err := db.Open(ctx, rt.cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	if statusOnly, _ := cmd.Flags().GetBool("status"); !statusOnly {
		if err := db.MigrateUp(ctx, database, rt.logger); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	statuses, err := db.MigrateStatus(ctx, database)
	if err != nil {
		return fmt.Errorf("failed to read migration status: %w", err)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "MIGRATION\tAPPLIED\tAPPLIED AT\tDURATION")
	for _, s := range statuses {
		appliedAt := "-"
		if s.AppliedAt != nil {
			appliedAt = s.AppliedAt.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%s\t%t\t%s\t%dms\n", s.ID, s.Applied, appliedAt, s.ExecutionMs)
	}
	return w.Flush()
}

func newPruneCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "prune",
		Short: "Delete stored query versions older than a retention window",
		Long: `Delete stored query versions created before now minus --older-than.
The latest version is always kept.`,
		Args: cobra.NoArgs,
		RunE: runPrune,
	}
	c.Flags().Duration("older-than", 30*24*time.Hour, "retention window")
	return c
}

func runPrune(cmd *cobra.Command, args []string) error {
	rt, err := loadRuntime(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = rt.logger.Sync() }()
	ctx := cmd.Context()

	olderThan, _ := cmd.Flags().GetDuration("older-than")
	if olderThan <= 0 {
		return fmt.Errorf("--older-than must be positive")
	}

	database, err := db.Open(ctx, rt.cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	queries, err := db.LoadQueries(database)
	if err != nil {
		return fmt.Errorf("failed to load queries: %w", err)
	}

	cutoff := time.Now().Add(-olderThan)
	removed, err := db.NewStore(queries).Prune(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("prune failed: %w", err)
	}

	rt.logger.Info("pruned query versions",
		zap.Int64("removed", removed),
		zap.Time("cutoff", cutoff))
	fmt.Fprintf(cmd.OutOrStdout(), "removed %d version(s)\n", removed)
	return nil
}
