package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/clide7029/MagicProxyAPp/internal/config"
	"github.com/clide7029/MagicProxyAPp/internal/database"
	"github.com/clide7029/MagicProxyAPp/internal/services"
)

var (
	exportFormat string
	exportOut    string
)

var exportCmd = &cobra.Command{
	Use:   "export <deck id>",
	Short: "Export a stored deck as CSV or JSON",
	Long:  `Loads a deck from the configured database (DB_DRIVER, DB_PATH, DATABASE_URL) and writes it to a file or stdout.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "csv", "export format: csv or json")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (default stdout, \"auto\" names it after the deck)")
}

func runExport(cmd *cobra.Command, args []string) error {
	if exportFormat != "csv" && exportFormat != "json" {
		return fmt.Errorf("unknown export format %q", exportFormat)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	db, err := database.Open(database.Config{
		Driver: cfg.DBDriver,
		Path:   cfg.DBPath,
		URL:    cfg.DatabaseURL,
	}, logger)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	deck, err := services.NewDeckStore(db).LoadDeck(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	// stats are not backfilled offline
	view := services.NewDeckEnricher(nil, logger).Enrich(cmd.Context(), deck)

	var data []byte
	if exportFormat == "csv" {
		data, err = services.ExportCSV(view, nil)
	} else {
		data, err = services.ExportJSON(view)
	}
	if err != nil {
		return err
	}

	switch exportOut {
	case "":
		_, err = cmd.OutOrStdout().Write(data)
		return err
	case "auto":
		exportOut = services.ExportFilename(view.Name, exportFormat)
	}
	if err := os.WriteFile(exportOut, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", exportOut, err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", exportOut)
	return nil
}
