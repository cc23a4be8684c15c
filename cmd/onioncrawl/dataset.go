package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/nao1215/onioncrawl/internal/config"
	"github.com/nao1215/onioncrawl/internal/database"
	"github.com/nao1215/onioncrawl/internal/dataset"
	"github.com/nao1215/onioncrawl/internal/record"
	"github.com/nao1215/onioncrawl/internal/report"
)

// defaultDatasetFile is where dataset writes the CSV by default.
const defaultDatasetFile = "dataset.csv"

// NewDatasetCmd creates the dataset command.
func NewDatasetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dataset",
		Short: "Build a categorized dataset from a crawl and its enrichment",
		Long: `Dataset joins a crawl record with enrichment data into one row per crawled
site: title, topic, enriched Bitcoin addresses ordered by volume, and BTC
sent and received.

The CSV uses ';' between fields and ',' as the decimal separator. Rows are
also saved to the dataset database in the XDG data directory unless --no-db
is given.

Examples:
  onioncrawl dataset --enrichment enrichment.jsonl

  # Fit address lists into spreadsheet cells and write a Markdown summary
  onioncrawl dataset --enrichment enrichment.jsonl --excel --markdown summary.md`,
		Args: cobra.NoArgs,
		RunE: runDatasetCmd,
	}

	cmd.Flags().StringP("data", "d", filepath.Join(config.DefaultOutputDir(), record.DataFileName),
		"Crawl record to read")
	cmd.Flags().StringP("enrichment", "e", defaultEnrichmentFile,
		"Enrichment file written by the enrich command")
	cmd.Flags().StringP("output", "o", defaultDatasetFile,
		"CSV output file ('-' for stdout)")
	cmd.Flags().Bool("excel", false,
		"Truncate address lists to fit a spreadsheet cell")
	cmd.Flags().StringSlice("exclude", []string{dataset.DefaultExcludedHost},
		"Drop entries whose address contains any of these hosts")
	cmd.Flags().StringP("markdown", "m", "",
		"Also write a Markdown summary to this file")
	cmd.Flags().Int("top", report.DefaultTopSites,
		"Number of sites ranked in the summary")
	cmd.Flags().Bool("no-db", false,
		"Do not save the dataset to the database")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the dataset database")

	return cmd
}

// datasetOptions are the parsed flags of the dataset command.
type datasetOptions struct {
	dataPath       string
	enrichmentPath string
	outputPath     string
	markdownPath   string
	excel          bool
	exclude        []string
	top            int
	noDB           bool
	dbDir          string
}

func parseDatasetFlags(cmd *cobra.Command) (*datasetOptions, error) {
	flags := cmd.Flags()
	opts := &datasetOptions{}
	var err error

	if opts.dataPath, err = flags.GetString("data"); err != nil {
		return nil, err
	}
	if opts.enrichmentPath, err = flags.GetString("enrichment"); err != nil {
		return nil, err
	}
	if opts.outputPath, err = flags.GetString("output"); err != nil {
		return nil, err
	}
	if opts.markdownPath, err = flags.GetString("markdown"); err != nil {
		return nil, err
	}
	if opts.excel, err = flags.GetBool("excel"); err != nil {
		return nil, err
	}
	if opts.exclude, err = flags.GetStringSlice("exclude"); err != nil {
		return nil, err
	}
	if opts.top, err = flags.GetInt("top"); err != nil {
		return nil, err
	}
	if opts.noDB, err = flags.GetBool("no-db"); err != nil {
		return nil, err
	}
	if opts.dbDir, err = flags.GetString("db-dir"); err != nil {
		return nil, err
	}
	return opts, nil
}

// runDatasetCmd executes the dataset command.
func runDatasetCmd(cmd *cobra.Command, _ []string) error {
	opts, err := parseDatasetFlags(cmd)
	if err != nil {
		return err
	}
	logger := setupLogger(cmd, getVerboseFlag(cmd))
	return runDataset(cmd.Context(), opts, logger, cmd.OutOrStdout())
}

// runDataset builds the dataset, writes the CSV and the optional Markdown
// summary, saves it, and prints the summary to out.
func runDataset(ctx context.Context, opts *datasetOptions, logger *slog.Logger, out io.Writer) error {
	file, err := record.ReadFile(opts.dataPath)
	if err != nil {
		return err
	}
	stats, err := dataset.ConsolidateFile(opts.enrichmentPath)
	if err != nil {
		return err
	}

	buildOpts := dataset.Options{ExcludeHosts: opts.exclude}
	if opts.excel {
		buildOpts.CellLimit = dataset.SpreadsheetCellLimit
	}
	rows := dataset.Build(file.Entries, stats, buildOpts)
	logger.Info("dataset built", "entries", len(file.Entries), "rows", len(rows), "enriched", len(stats))

	csvOut, err := openOutput(opts.outputPath, out, false)
	if err != nil {
		return err
	}
	if err := closeOutput(csvOut, dataset.WriteCSV(csvOut, rows)); err != nil {
		return err
	}

	datasetID := uuid.NewString()
	summary := report.NewDatasetReport(datasetID, opts.dataPath, rows, report.WithTopSites(opts.top))

	if opts.markdownPath != "" {
		mdOut, err := openOutput(opts.markdownPath, out, false)
		if err != nil {
			return err
		}
		_, err = report.NewMarkdownWriter(mdOut).WriteDataset(summary)
		if err := closeOutput(mdOut, err); err != nil {
			return fmt.Errorf("failed to write Markdown summary: %w", err)
		}
	}

	if !opts.noDB {
		if err := saveDataset(ctx, opts.dbDir, datasetID, file.RunID, opts.dataPath, rows, stats, logger); err != nil {
			return err
		}
	}

	// Keep stdout clean for the CSV when it goes there.
	if opts.outputPath == "-" || opts.outputPath == "" {
		return nil
	}
	_, err = report.NewSimpleWriter(out).WriteDataset(summary)
	return err
}

// saveDataset stores rows and the address statistics they were built from.
func saveDataset(ctx context.Context, dbDir, datasetID, runID, source string, rows []dataset.Row,
	stats map[string]dataset.ChainStats, logger *slog.Logger) error {
	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	info := database.DatasetInfo{ID: datasetID, RunID: runID, Source: source}
	if err := db.SaveDataset(ctx, info, rows); err != nil {
		return err
	}
	if err := db.SaveAddressStats(ctx, stats); err != nil {
		return err
	}

	logger.Info("dataset saved to database", "id", datasetID, "path", db.Path())
	return nil
}
