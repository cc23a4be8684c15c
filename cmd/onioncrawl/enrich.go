package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/onioncrawl/internal/config"
	"github.com/nao1215/onioncrawl/internal/enrich"
)

// defaultEnrichmentFile is where enrich appends lookups by default.
const defaultEnrichmentFile = "enrichment.jsonl"

// NewEnrichCmd creates the enrich command.
func NewEnrichCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "enrich <address-list>",
		Short: "Look up on-chain statistics for Bitcoin addresses",
		Long: `Enrich looks up each address of an address list (see the addrs command)
with an Esplora-compatible API and appends one JSON object per address to the
output file.

Invalid addresses are skipped with a warning. Failed lookups are logged and
skipped without retry; run the command again on the remaining addresses if
needed. When an address appears more than once in the output, the dataset
command uses the last lookup.

Examples:
  onioncrawl enrich addrs.txt -o enrichment.jsonl

  # Be gentle with the public API
  onioncrawl enrich addrs.txt --workers 4 --rate 2`,
		Args: cobra.ExactArgs(1),
		RunE: runEnrichCmd,
	}

	cmd.Flags().StringP("output", "o", defaultEnrichmentFile,
		"File the lookups are appended to")
	cmd.Flags().String("api", config.DefaultEnrichAPI,
		"Base URL of the address API")
	cmd.Flags().IntP("workers", "w", config.DefaultEnrichWorkers,
		"Number of concurrent lookups")
	cmd.Flags().Float64("rate", 0,
		"Maximum lookups per second (0 = unlimited)")
	cmd.Flags().DurationP("timeout", "t", config.DefaultEnrichTimeout,
		"Timeout for each lookup")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .onioncrawl in current or home directory)")

	return cmd
}

// runEnrichCmd executes the enrich command.
func runEnrichCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildEnrichConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.ValidateEnrich(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	logger := setupLogger(cmd, cfg.Verbose)

	addrs, err := enrich.LoadAddresses(args[0])
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out, err := openOutput(outputPath, cmd.OutOrStdout(), true)
	if err != nil {
		return err
	}

	client := enrich.NewClient(cfg.EnrichAPI, cfg.EnrichTimeout,
		enrich.WithWorkers(cfg.EnrichWorkers),
		enrich.WithRate(cfg.EnrichRate),
		enrich.WithLogger(logger),
	)

	logger.Info("starting enrichment", "addresses", len(addrs), "api", cfg.EnrichAPI, "workers", cfg.EnrichWorkers)
	res, err := client.FetchAll(ctx, addrs, out)
	if err = closeOutput(out, err); err != nil {
		logEnrichResult(logger, res)
		return err
	}

	logEnrichResult(logger, res)
	fmt.Fprintf(cmd.ErrOrStderr(), "Enriched %d of %d addresses (%d skipped, %d failed)\n",
		res.Written, res.Requested, res.Skipped, res.Failed)
	return nil
}

func logEnrichResult(logger *slog.Logger, res *enrich.Result) {
	if res == nil {
		return
	}
	logger.Info("enrichment finished",
		"requested", res.Requested,
		"written", res.Written,
		"skipped", res.Skipped,
		"failed", res.Failed,
	)
}

// buildEnrichConfig creates a Config from defaults, the configuration file,
// then every flag the user set explicitly.
func buildEnrichConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("api") {
		if cfg.EnrichAPI, err = flags.GetString("api"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("workers") {
		if cfg.EnrichWorkers, err = flags.GetInt("workers"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("rate") {
		if cfg.EnrichRate, err = flags.GetFloat64("rate"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("timeout") {
		if cfg.EnrichTimeout, err = flags.GetDuration("timeout"); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
