package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/meihsieh/bookship-bot/internal/common"
	"github.com/meihsieh/bookship-bot/internal/seed"
	"github.com/meihsieh/bookship-bot/internal/store"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

// seedimport validates a JSON seed file against the schema and appends its
// catalog and zip reference rows to the workbook.
func main() {
	var (
		file     = flag.String("file", "", "seed JSON file (required)")
		workbook = flag.String("workbook", "", "workbook path (defaults to WORKBOOK_PATH)")
	)
	flag.Parse()

	if *file == "" {
		printError("Error: --file is required\n")
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if *workbook == "" {
		*workbook = cfg.Store.WorkbookPath
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		printError("Error: read %s: %v\n", *file, err)
		os.Exit(1)
	}

	sf, err := seed.Parse(data)
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	st := store.NewXLSX(*workbook, logger)

	if rows := sf.CatalogRows(); len(rows) > 0 {
		if err := st.AppendRows(ctx, cfg.Store.CatalogSheet, rows); err != nil {
			logger.Error("seedimport.catalog.failed", "error", err)
			os.Exit(1)
		}
		logger.Info("seedimport.catalog.ok", "sheet", cfg.Store.CatalogSheet, "rows", len(rows))
	}
	if rows := sf.ZipRows(); len(rows) > 0 {
		if err := st.AppendRows(ctx, cfg.Store.ZipRefSheet, rows); err != nil {
			logger.Error("seedimport.zip.failed", "error", err)
			os.Exit(1)
		}
		logger.Info("seedimport.zip.ok", "sheet", cfg.Store.ZipRefSheet, "rows", len(rows))
	}

	fmt.Printf("imported %d catalog rows, %d zip rows into %s\n",
		len(sf.Catalog), len(sf.Zipcodes), *workbook)
}
