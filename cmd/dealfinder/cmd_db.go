package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/Simplici0/dealfinder/internal/db"
	"github.com/Simplici0/dealfinder/internal/listing"
	"github.com/Simplici0/dealfinder/internal/migrations"
	"github.com/Simplici0/dealfinder/internal/repository"
)

var snapshotLimit int

var snapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "List the most recently seen listings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openDatabase(cmd.Context())
		if err != nil {
			return err
		}
		defer database.Close()
		return writeSnapshots(cmd.Context(), cmd.OutOrStdout(), database, snapshotLimit, time.Now())
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := db.Open(cfg.Server.DBPath)
		if err != nil {
			return err
		}
		defer database.Close()
		return migrate(cmd.Context(), cmd.OutOrStdout(), database)
	},
}

func init() {
	snapshotsCmd.Flags().IntVarP(&snapshotLimit, "limit", "n", 20, "number of listings to show")
}

func migrate(ctx context.Context, out io.Writer, database *sql.DB) error {
	applied, err := migrations.Up(ctx, database)
	if err != nil {
		return err
	}
	version, err := migrations.Version(ctx, database)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "applied %d migration(s), schema version %d\n", applied, version)
	return err
}

func writeSnapshots(ctx context.Context, out io.Writer, database *sql.DB, limit int, now time.Time) error {
	repo := repository.NewSnapshots(database)
	items, err := repo.Recent(ctx, limit)
	if err != nil {
		return err
	}
	total, err := repo.Count(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ITEM\tPRICE\tTCO\tCPU\tRAM\tSTORAGE\tSEEN\tTITLE")
	for _, s := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			s.ItemID, listing.FormatPrice(s.Price), listing.FormatPrice(s.TCO),
			orNA(s.CPUModel), orNA(s.RAM), orNA(s.Storage),
			humanize.RelTime(s.LastUpdated, now, "ago", "from now"), s.Title)
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("write snapshots: %w", err)
	}
	_, err = fmt.Fprintf(out, "%s of %s listings recorded\n", humanize.Comma(int64(len(items))), humanize.Comma(int64(total)))
	return err
}

func orNA(s string) string {
	if s == "" {
		return listing.NA
	}
	return s
}
