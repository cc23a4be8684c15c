package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/onioncrawl/internal/config"
	"github.com/nao1215/onioncrawl/internal/crawler"
	"github.com/nao1215/onioncrawl/internal/fetch"
	"github.com/nao1215/onioncrawl/internal/report"
	"github.com/nao1215/onioncrawl/internal/tor"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [onion-address...]",
		Short: "Crawl onion services for links and Bitcoin addresses",
		Long: `Crawl fetches onion services breadth-first, starting from the given
addresses and from search-engine result pages for each keyword.

Each completed address is appended to data.jsonl and log.txt in the output
directory. On interrupt (Ctrl+C) the crawl stops taking new work, lets
running fetches finish within the grace period, and saves the frontier to
savestate.json so it can continue with --resume.

Examples:
  # Crawl from one seed through the embedded Tor daemon
  onioncrawl crawl http://exampleonionaddressxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxx.onion

  # Seed from search keywords and stop after 500 addresses
  onioncrawl crawl --keywords keywords.txt --limit 500

  # Continue an interrupted crawl
  onioncrawl crawl --resume

  # Use an external Tor proxy
  onioncrawl crawl --external-tor 127.0.0.1:9150 --keywords keywords.txt`,
		Args: cobra.ArbitraryArgs,
		RunE: runCrawlCmd,
	}

	// Seed flags
	cmd.Flags().StringSliceP("seed", "s", nil,
		"Seed address (repeatable, in addition to positional arguments)")
	cmd.Flags().StringP("keywords", "k", "",
		"File with one search keyword per line")
	cmd.Flags().String("search-prefix", config.DefaultSearchPrefix,
		"Search engine query URL that keywords are appended to")

	// Resume flags
	cmd.Flags().BoolP("resume", "r", false,
		"Resume the crawl recorded in the output directory")
	cmd.Flags().String("savestate", "",
		"Savestate file (default: <output>/savestate.json)")
	cmd.Flags().Bool("overwrite", false,
		"Replace an existing crawl record when starting fresh")

	// Crawl behavior flags
	cmd.Flags().IntP("limit", "l", config.DefaultSearchLimit,
		"Stop after this many addresses are searched (0 = unlimited)")
	cmd.Flags().IntP("workers", "w", config.DefaultWorkers,
		"Number of concurrent fetches")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each fetch")
	cmd.Flags().Duration("grace", config.DefaultGrace,
		"How long running fetches may finish after an interrupt")
	cmd.Flags().Int("max-redirects", config.DefaultMaxRedirects,
		"Maximum redirects followed per fetch")
	cmd.Flags().Int64("max-body-size", config.DefaultMaxBodySize,
		"Maximum response body bytes read per page")
	cmd.Flags().String("user-agent", "",
		"User-Agent header (default: Tor Browser's)")

	// Tor connection flags
	cmd.Flags().StringP("external-tor", "e", "",
		"Use external Tor proxy at specified address (e.g., 127.0.0.1:9150)")
	cmd.Flags().DurationP("tor-timeout", "T", config.DefaultTorStartupTimeout,
		"Timeout for embedded Tor startup")
	cmd.Flags().Bool("direct", false,
		"Fetch without Tor (local testing only)")

	// Output flags
	cmd.Flags().StringP("output", "o", config.DefaultOutputDir(),
		"Output directory for data.jsonl, log.txt and savestate.json")
	cmd.Flags().BoolP("json", "j", false,
		"Print the summary as JSON")
	cmd.Flags().BoolP("markdown", "m", false,
		"Print the summary as Markdown")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .onioncrawl in current or home directory)")

	cmd.MarkFlagsMutuallyExclusive("json", "markdown")
	cmd.MarkFlagsMutuallyExclusive("direct", "external-tor")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildCrawlConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd, cfg.Verbose)
	slog.SetDefault(logger)

	// SIGINT and SIGTERM are the operator interrupt.
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	writer, err := summaryWriter(cmd)
	if err != nil {
		return err
	}
	return runCrawl(ctx, cfg, logger, writer)
}

// buildCrawlConfig creates a Config from defaults, the configuration file,
// then every flag the user set explicitly.
func buildCrawlConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	var errs []error
	setString := func(name string, dst *string) {
		if flags.Changed(name) {
			v, err := flags.GetString(name)
			errs = append(errs, err)
			*dst = v
		}
	}
	setInt := func(name string, dst *int) {
		if flags.Changed(name) {
			v, err := flags.GetInt(name)
			errs = append(errs, err)
			*dst = v
		}
	}
	setBool := func(name string, dst *bool) {
		if flags.Changed(name) {
			v, err := flags.GetBool(name)
			errs = append(errs, err)
			*dst = v
		}
	}

	setString("keywords", &cfg.KeywordsFile)
	setString("search-prefix", &cfg.SearchPrefix)
	setString("savestate", &cfg.SavestatePath)
	setString("user-agent", &cfg.UserAgent)
	setString("output", &cfg.OutputDir)
	setBool("resume", &cfg.Resume)
	setBool("overwrite", &cfg.Overwrite)
	setBool("direct", &cfg.Direct)
	setInt("limit", &cfg.SearchLimit)
	setInt("workers", &cfg.Workers)
	setInt("max-redirects", &cfg.MaxRedirects)

	if flags.Changed("timeout") {
		cfg.Timeout, err = flags.GetDuration("timeout")
		errs = append(errs, err)
	}
	if flags.Changed("grace") {
		cfg.Grace, err = flags.GetDuration("grace")
		errs = append(errs, err)
	}
	if flags.Changed("tor-timeout") {
		cfg.TorStartupTimeout, err = flags.GetDuration("tor-timeout")
		errs = append(errs, err)
	}
	if flags.Changed("max-body-size") {
		cfg.MaxBodySize, err = flags.GetInt64("max-body-size")
		errs = append(errs, err)
	}
	if flags.Changed("external-tor") {
		cfg.TorProxyAddress, err = flags.GetString("external-tor")
		errs = append(errs, err)
		cfg.UseExternalTor = cfg.TorProxyAddress != ""
	}

	seeds, err := flags.GetStringSlice("seed")
	errs = append(errs, err)
	if cli := append(seeds, args...); len(cli) > 0 {
		cfg.Seeds = cli
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// summaryWriter picks the report format for the run summary.
func summaryWriter(cmd *cobra.Command) (report.Writer, error) {
	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return nil, err
	}
	asMarkdown, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return nil, err
	}

	out := cmd.OutOrStdout()
	switch {
	case asJSON:
		return report.NewJSONWriter(out, report.WithPrettyPrint()), nil
	case asMarkdown:
		return report.NewMarkdownWriter(out), nil
	default:
		return report.NewSimpleWriter(out), nil
	}
}

// runCrawl connects to Tor, runs the engine, and reports the summary.
func runCrawl(ctx context.Context, cfg *config.Config, logger *slog.Logger, writer report.Writer) error {
	var keywords []string
	if cfg.KeywordsFile != "" {
		var err error
		keywords, err = crawler.LoadKeywords(cfg.KeywordsFile)
		if err != nil {
			return err
		}
	}
	warnSeeds(logger, cfg.Seeds)

	logger.Info("starting crawl",
		"seeds", len(cfg.Seeds),
		"keywords", len(keywords),
		"workers", cfg.Workers,
		"limit", cfg.SearchLimit,
		"resume", cfg.Resume,
		"output", cfg.OutputDir,
	)

	fetchOpts := []fetch.Option{fetch.WithMaxBodySize(cfg.MaxBodySize)}
	if cfg.UserAgent != "" {
		fetchOpts = append(fetchOpts, fetch.WithUserAgent(cfg.UserAgent))
	}

	fetcher, cleanup, err := newFetcher(ctx, cfg, logger, fetchOpts...)
	if err != nil {
		return err
	}
	defer cleanup()

	engine := crawler.New(fetcher, crawler.Options{
		Seeds:         cfg.Seeds,
		Keywords:      keywords,
		SearchPrefix:  cfg.SearchPrefix,
		SearchLimit:   cfg.SearchLimit,
		Workers:       cfg.Workers,
		Grace:         cfg.Grace,
		OutputDir:     cfg.OutputDir,
		SavestatePath: cfg.SavestatePath,
		Resume:        cfg.Resume,
		Overwrite:     cfg.Overwrite,
	}, crawler.WithLogger(logger))

	summary, runErr := engine.Run(ctx)
	if summary != nil {
		if _, err := writer.WriteCrawl(report.NewCrawlReport(summary, cfg.OutputDir)); err != nil {
			runErr = errors.Join(runErr, fmt.Errorf("failed to write summary: %w", err))
		}
	}
	return runErr
}

// warnSeeds logs seeds that cannot lead anywhere on the current Tor network.
func warnSeeds(logger *slog.Logger, seeds []string) {
	for _, seed := range seeds {
		switch gen := tor.Classify(seed); gen {
		case tor.GenerationV3, tor.GenerationNotOnion:
		default:
			logger.Warn("seed is not a valid v3 onion address", "seed", seed, "generation", gen.String())
		}
	}
}

// newFetcher returns the fetcher of the crawl and a cleanup function that
// stops any Tor daemon it started.
func newFetcher(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...fetch.Option) (fetch.Fetcher, func(), error) {
	noop := func() {}
	redirects := tor.WithMaxRedirects(cfg.MaxRedirects)

	switch {
	case cfg.Direct:
		logger.Warn("fetching without Tor; onion services will not resolve")
		client := fetch.NewDirectClient(cfg.Timeout)
		client.CheckRedirect = tor.RedirectLimit(cfg.MaxRedirects)
		return fetch.NewHTTPFetcher(client, opts...), noop, nil

	case cfg.UseExternalTor:
		client, err := tor.NewClient(cfg.TorProxyAddress, cfg.Timeout, redirects)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create Tor client: %w", err)
		}
		if status := client.CheckConnection(ctx); status != tor.ProxyStatusOK {
			return nil, nil, fmt.Errorf("tor proxy check failed: %s (make sure Tor is running at %s)",
				status, cfg.TorProxyAddress)
		}
		logger.Info("Tor proxy connection verified", "address", client.ProxyAddress())
		return fetch.NewTorFetcher(client, opts...), noop, nil

	default:
		client, stop, err := startEmbeddedTor(ctx, cfg, logger, os.Stderr)
		if err != nil {
			return nil, nil, err
		}
		return fetch.NewTorFetcher(client, opts...), stop, nil
	}
}

// startEmbeddedTor starts an embedded Tor daemon and returns a client that
// goes through it.
func startEmbeddedTor(ctx context.Context, cfg *config.Config, logger *slog.Logger, out io.Writer) (*tor.Client, func(), error) {
	fmt.Fprintln(out, "Starting embedded Tor daemon...")
	fmt.Fprintf(out, "This may take 1-3 minutes while Tor bootstraps and connects to the network.\n\n")

	daemon := tor.NewDaemon(tor.WithBootstrapTimeout(cfg.TorStartupTimeout))
	if err := daemon.Start(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to start embedded Tor: %w", err)
	}

	stop := func() {
		logger.Info("stopping embedded Tor daemon...")
		if err := daemon.Stop(); err != nil {
			logger.Error("failed to stop embedded Tor", "error", err)
		}
	}

	logger.Info("embedded Tor daemon started", "socksAddr", daemon.SocksAddr())
	fmt.Fprintf(out, "SOCKS proxy: %s\n\n", daemon.SocksAddr())

	client, err := daemon.NewClient(cfg.Timeout, tor.WithMaxRedirects(cfg.MaxRedirects))
	if err != nil {
		stop()
		return nil, nil, fmt.Errorf("failed to create Tor client: %w", err)
	}
	if status := client.CheckConnection(ctx); status != tor.ProxyStatusOK {
		stop()
		return nil, nil, fmt.Errorf("embedded Tor proxy check failed: %s", status)
	}
	return client, stop, nil
}
