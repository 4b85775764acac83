package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/linkwatch/linkwatch/internal/config"
	"github.com/linkwatch/linkwatch/internal/lifecycle"
	"github.com/linkwatch/linkwatch/internal/supervisor"
)

var (
	cfgFile          string
	verbose          bool
	concurrency      int
	maxDuration      int
	userAgent        string
	sitemapPath      string
	obtainerType     string
	obtainerTimeout  int
	persistence      string
	dbPath           string
	mongoURI         string
	mongoDatabase    string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "linkwatch [url]",
		Short: "LinkWatch — single-site link-health crawler",
		Long: `LinkWatch crawls every reachable page under a starting URL, records
HTTP response metadata and the outbound link graph of each page, and
persists the result for offline inspection (broken-link reports and
sitemap generation).`,
		Args:    cobra.ExactArgs(1),
		RunE:    runCrawl,
		Version: config.Version,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.Flags().IntVar(&concurrency, "concurrency", 1, "number of concurrent worker processes")
	rootCmd.Flags().IntVar(&maxDuration, "max_duration", 6, "slow-response threshold in seconds")
	rootCmd.Flags().StringVar(&userAgent, "useragent", "", "User-Agent string sent by the obtainer")
	rootCmd.Flags().StringVar(&sitemapPath, "sitemap", "sitemap.xml", "sitemap output path (consumed by the inspection service)")
	rootCmd.Flags().StringVar(&obtainerType, "obtainer", "", "obtainer backend: browser, static, xpath")
	rootCmd.Flags().IntVar(&obtainerTimeout, "obtainer-timeout", 0, "per-fetch wall-clock timeout in seconds (0 = config default)")
	rootCmd.Flags().StringVar(&persistence, "persistence", "", "persistence backend: sqlite, mongo, multi")
	rootCmd.Flags().StringVar(&dbPath, "db-path", "", "SQLite database path")
	rootCmd.Flags().StringVar(&mongoURI, "mongo-uri", "", "MongoDB connection URI")
	rootCmd.Flags().StringVar(&mongoDatabase, "mongo-database", "", "MongoDB database name")

	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(obtainCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// runCrawl is the crawl entry point: load config, apply CLI overrides,
// validate, and hand off to the Lifecycle Controller.
func runCrawl(cmd *cobra.Command, args []string) error {
	logger := setupLogger()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyCLIOverrides(cmd, cfg)

	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Worker processes run their own config.Load; hand the effective
	// slow-response threshold down through the environment it reads.
	os.Setenv("LINKWATCH_CRAWL_MAX_DURATION", cfg.Crawl.MaxDuration.String())

	startURL := args[0]
	if err := config.ValidateURL(startURL); err != nil {
		return fmt.Errorf("invalid url %q: %w", startURL, err)
	}

	logger.Info("starting crawl",
		"url", startURL,
		"concurrency", cfg.Crawl.Concurrency,
		"obtainer", cfg.Obtainer.Type,
		"persistence", cfg.Persistence.Backend,
	)

	controller := lifecycle.New(cfg, logger)
	if err := controller.Run(startURL); err != nil {
		return fmt.Errorf("crawl failed: %w", err)
	}

	logger.Info("crawl complete", "url", startURL)
	return nil
}

// versionCmd prints the build version.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("linkwatch %s\n", config.Version)
		},
	}
}

// obtainCmd is the hidden worker entry point the supervisor re-execs
// into: it runs exactly one Obtain call and writes its FetchResult to
// fd 3, then exits. Never invoked directly by a user.
func obtainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:    "obtain <url> <parent> <useragent>",
		Hidden: true,
		Args:   cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return supervisor.RunWorker(cfg, args[0], args[1], args[2])
		},
	}
	return cmd
}

// setupLogger builds the structured logger used for the crawl's
// lifetime.
func setupLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}

// applyCLIOverrides layers flag values onto the loaded config. Flags
// not given on the command line (or left at their zero value) defer
// to whatever config.Load already set.
func applyCLIOverrides(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("concurrency") && concurrency > 0 {
		cfg.Crawl.Concurrency = concurrency
	}
	if flags.Changed("max_duration") && maxDuration > 0 {
		cfg.Crawl.MaxDuration = time.Duration(maxDuration) * time.Second
	}
	if userAgent != "" {
		cfg.Crawl.UserAgent = userAgent
	}
	if flags.Changed("sitemap") && sitemapPath != "" {
		cfg.Crawl.SitemapPath = sitemapPath
	}
	if obtainerType != "" {
		cfg.Obtainer.Type = obtainerType
	}
	if obtainerTimeout > 0 {
		cfg.Obtainer.ExecutionTimeout = time.Duration(obtainerTimeout) * time.Second
	}
	if persistence != "" {
		cfg.Persistence.Backend = persistence
	}
	if dbPath != "" {
		cfg.Persistence.SQLitePath = dbPath
	}
	if mongoURI != "" {
		cfg.Persistence.MongoURI = mongoURI
	}
	if mongoDatabase != "" {
		cfg.Persistence.MongoDatabase = mongoDatabase
	}
}
