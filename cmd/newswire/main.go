package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"newswire/internal/config"
	"newswire/internal/crawl"
	"newswire/internal/database"
	"newswire/internal/enrich"
	"newswire/internal/server"
	"newswire/internal/source"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "newswire",
	Short:   "News ingestion and enrichment pipeline",
	Long:    "Newswire collects articles from RSS feeds and news APIs, deduplicates them into a local store, and enriches new articles with summaries and bias analysis.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// A missing .env is fine; environment variables may be set directly.
		_ = godotenv.Load()

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(sourcesCmd)
	rootCmd.AddCommand(crawlCmd)
	rootCmd.AddCommand(serveCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("newswire", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/newswire/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to configure feeds, API keys, and enrichment services.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database and system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		fmt.Println("Articles:")
		fmt.Printf("  Total stored: %d\n", stats.TotalArticles)
		fmt.Printf("  Summarized: %d\n", stats.SummarizedArticles)
		fmt.Println("\nEnrichment results:")
		fmt.Printf("  Summaries: %d\n", stats.SummaryResults)
		fmt.Printf("  Bias analyses: %d\n", stats.BiasResults)
		fmt.Println("\nCatalog:")
		fmt.Printf("  Sources: %d\n", stats.Sources)
		fmt.Printf("  Categories: %d\n", stats.Categories)
		return nil
	},
}

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List configured sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg := source.FromConfig(cfg)
		all := reg.All()
		if len(all) == 0 {
			fmt.Println("No sources configured. Edit the config to add feeds or enable the API.")
			return nil
		}

		fmt.Println("Sources:")
		for _, src := range all {
			fmt.Printf("  [%s] %-30s %s (%s)\n", src.Kind, src.Name, src.Endpoint, src.Category)
		}
		fmt.Printf("\nCategories: %v\n", reg.Categories())
		return nil
	},
}

// --- crawl command ---

var (
	crawlScope    string
	crawlMaxPages int
)

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Crawl configured sources and store new articles",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, _, runner, err := openRunner()
		if err != nil {
			return err
		}
		defer db.Close()

		summary, err := runner.Run(context.Background(), crawlScope, crawlMaxPages)
		if err != nil {
			return err
		}

		printSummary(summary)
		return nil
	},
}

func init() {
	crawlCmd.Flags().StringVar(&crawlScope, "scope", "all", "Which sources to crawl: all, rss, or api")
	crawlCmd.Flags().IntVar(&crawlMaxPages, "max-pages", 0, "Override API page limit for this run")
}

func printSummary(summary *crawl.Summary) {
	fmt.Println("\nCrawl complete:")
	fmt.Printf("  New articles: %d\n", summary.TotalStored)
	fmt.Printf("  Duplicates skipped: %d\n", summary.Duplicates)
	fmt.Printf("  Items skipped: %d\n", summary.SkippedItems)
	fmt.Printf("  Duration: %dms\n", summary.DurationMS)

	if len(summary.Counts) > 0 {
		fmt.Println("\nArticles by source:")
		for name, n := range summary.Counts {
			fmt.Printf("  %s: %d\n", name, n)
		}
	}
	if len(summary.Errors) > 0 {
		fmt.Println("\nSource errors:")
		for name, msg := range summary.Errors {
			fmt.Printf("  %s: %s\n", name, msg)
		}
	}
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, reg, runner, err := openRunner()
		if err != nil {
			return err
		}
		defer db.Close()

		if cfg.Scheduler.Enabled {
			c := cron.New()
			_, err := c.AddFunc(cfg.Scheduler.Cron, func() {
				summary, err := runner.Run(context.Background(), crawl.ScopeAll, 0)
				if err != nil {
					// An in-flight run just means this tick is skipped.
					log.Printf("scheduled crawl: %v", err)
					return
				}
				log.Printf("scheduled crawl done: stored=%d duplicates=%d errors=%d",
					summary.TotalStored, summary.Duplicates, len(summary.Errors))
			})
			if err != nil {
				return fmt.Errorf("invalid cron expression %q: %w", cfg.Scheduler.Cron, err)
			}
			c.Start()
			defer c.Stop()
			log.Printf("scheduler enabled: %s", cfg.Scheduler.Cron)
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		fmt.Printf("Starting server at http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(db, reg, runner, port)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to run server on (default from config)")
}

func openDB() (*database.DB, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return database.Open(filepath.Join(dataDir, "newswire.db"))
}

func openRunner() (*database.DB, *source.Registry, *crawl.Runner, error) {
	db, err := openDB()
	if err != nil {
		return nil, nil, nil, err
	}

	reg := source.FromConfig(cfg)
	if err := db.SeedRegistry(reg); err != nil {
		db.Close()
		return nil, nil, nil, fmt.Errorf("seeding source registry: %w", err)
	}

	var enricher *enrich.Enricher
	if cfg.Enrichment.Enabled {
		enricher = enrich.New(cfg.Enrichment, db)
	}

	return db, reg, crawl.NewRunner(cfg, db, reg, enricher), nil
}
