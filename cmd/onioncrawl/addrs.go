package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/onioncrawl/internal/config"
	"github.com/nao1215/onioncrawl/internal/dataset"
	"github.com/nao1215/onioncrawl/internal/record"
)

// NewAddrsCmd creates the addrs command.
func NewAddrsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "addrs [crawl-record]",
		Short: "List the Bitcoin addresses found by a crawl",
		Long: `Addrs reads a crawl record (data.jsonl) and writes every distinct payment
address once, one per line, in the order the crawl found them.

The list is the input of the enrich command. With --enriched, only the
addresses that have a response in the given enrichment file are written.

Examples:
  # Read the default crawl record and print to stdout
  onioncrawl addrs

  # Read a specific record and write a file
  onioncrawl addrs ./crawl/data.jsonl -o addrs.txt

  # List only the addresses the block explorer knows about
  onioncrawl addrs --enriched enrichment.jsonl -o valid.txt`,
		Args: cobra.MaximumNArgs(1),
		RunE: runAddrsCmd,
	}

	cmd.Flags().StringP("output", "o", "",
		"Write the address list to this file (default: stdout)")
	cmd.Flags().String("enriched", "",
		"Keep only addresses with a response in this enrichment file")

	return cmd
}

// runAddrsCmd executes the addrs command.
func runAddrsCmd(cmd *cobra.Command, args []string) error {
	input := filepath.Join(config.DefaultOutputDir(), record.DataFileName)
	if len(args) == 1 {
		input = args[0]
	}

	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	enrichedPath, err := cmd.Flags().GetString("enriched")
	if err != nil {
		return err
	}

	logger := setupLogger(cmd, getVerboseFlag(cmd))

	file, err := record.ReadFile(input)
	if err != nil {
		return err
	}
	if !file.Closed {
		logger.Warn("crawl record has no end marker; the crawl is running or was killed", "path", input)
	}

	addrs := dataset.AddressList(file.Entries)
	if enrichedPath != "" {
		stats, err := dataset.ConsolidateFile(enrichedPath)
		if err != nil {
			return err
		}
		found := len(addrs)
		addrs = dataset.ValidAddresses(addrs, stats)
		logger.Info("kept enriched addresses", "found", found, "enriched", len(addrs))
	}

	out, err := openOutput(outputPath, cmd.OutOrStdout(), false)
	if err != nil {
		return err
	}
	if err := closeOutput(out, dataset.WriteAddressList(out, addrs)); err != nil {
		return err
	}

	logger.Info("address list written", "entries", len(file.Entries), "addresses", len(addrs))
	if outputPath != "" && outputPath != "-" {
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d addresses to %s\n", len(addrs), outputPath)
	}
	return nil
}
