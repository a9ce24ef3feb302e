package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"brainboost/internal/config"
	"brainboost/internal/database"
	"brainboost/internal/extract"
	"brainboost/internal/feed"
	"brainboost/internal/knowledge"
	"brainboost/internal/llm"
	"brainboost/internal/manual"
	"brainboost/internal/news"
	"brainboost/internal/server"
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
	Use:     "brainboost",
	Short:   "Fresh context for conversational agents",
	Long:    "Brainboost supplies agents with deduplicated news snippets and curated facts retrieved by semantic similarity.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

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
	rootCmd.AddCommand(newsCmd)
	rootCmd.AddCommand(knowledgeCmd)
	rootCmd.AddCommand(drainCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(serveCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("brainboost", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/brainboost/",
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
		fmt.Println("Edit it to configure tickers, API keys, and the embedding provider.")
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

		fmt.Println("News dedup ledger:")
		fmt.Printf("  Records: %d\n", stats.DedupRecords)
		fmt.Println("\nKnowledge queue:")
		fmt.Printf("  Pending: %d\n", stats.PendingKnowledge)
		fmt.Printf("  Processed: %d\n", stats.ProcessedKnowledge)
		fmt.Println("\nVector index:")
		fmt.Printf("  Records: %d\n", stats.VectorRecords)
		fmt.Printf("\nManual buffer: %s\n", cfg.GetManualNewsPath())
		return nil
	},
}

// --- news command ---

var newsConsumer string

var newsCmd = &cobra.Command{
	Use:   "news",
	Short: "Fetch one fresh news context block for a consumer",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		provider := buildNewsProvider(db)
		fmt.Println(provider.FetchContext(context.Background(), newsConsumer))
		return nil
	},
}

// --- knowledge command ---

var knowledgeConsumer string

var knowledgeCmd = &cobra.Command{
	Use:   "knowledge [query]",
	Short: "Drain the knowledge backlog and answer a query from the index",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		engine, err := buildKnowledgeEngine(db)
		if err != nil {
			return err
		}

		query := strings.Join(args, " ")
		answer := engine.AnswerFromKnowledge(context.Background(), knowledgeConsumer, query)
		if answer == "" {
			fmt.Println("(no relevant facts)")
			return nil
		}
		fmt.Println(answer)
		return nil
	},
}

// --- drain command ---

var drainCmd = &cobra.Command{
	Use:   "drain",
	Short: "Flush pending knowledge rows into the vector index",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		engine, err := buildKnowledgeEngine(db)
		if err != nil {
			return err
		}

		result := engine.Drain(context.Background())
		fmt.Printf("Indexed: %d\nSkipped: %d\nFailed: %d\n", result.Indexed, result.Skipped, result.Failed)
		return nil
	},
}

// --- seed command ---

var seedType string

var seedCmd = &cobra.Command{
	Use:   "seed [summary]",
	Short: "Insert a pending fact into the knowledge queue",
	Long:  "Stands in for an external producer: appends a typed summary with processed=0.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		switch seedType {
		case database.TypeNews, database.TypeTransactions, database.TypePrices:
		default:
			return fmt.Errorf("unknown type %q (want news, transactions, or prices)", seedType)
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		id, err := db.InsertKnowledge(seedType, strings.Join(args, " "))
		if err != nil {
			return fmt.Errorf("inserting knowledge row: %w", err)
		}
		fmt.Printf("Inserted %s row %d\n", seedType, id)
		return nil
	},
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP context server",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		engine, err := buildKnowledgeEngine(db)
		if err != nil {
			return err
		}
		provider := buildNewsProvider(db)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		fmt.Printf("Starting server at http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(db, provider, engine, port)
	},
}

func init() {
	newsCmd.Flags().StringVar(&newsConsumer, "consumer", "agent", "Consumer identity for dedup scoping")
	knowledgeCmd.Flags().StringVar(&knowledgeConsumer, "consumer", "agent", "Consumer name used in section labels")
	seedCmd.Flags().StringVar(&seedType, "type", database.TypeNews, "Knowledge type: news, transactions, or prices")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to run server on (default from config)")
}

func openDB() (*database.DB, error) {
	dbPath := filepath.Join(cfg.GetDataDir(), "brainboost.db")
	db, err := database.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}

func buildNewsProvider(db *database.DB) *news.Provider {
	source := feed.NewClient(cfg.Feed.APIKeyEnv, cfg.Feed.Section)
	extractor := extract.New(time.Duration(cfg.Feed.ExtractTimeout) * time.Second)
	buffer := manual.NewBuffer(cfg.GetManualNewsPath())
	return news.NewProvider(cfg, db, source, extractor, buffer)
}

func buildKnowledgeEngine(db *database.DB) (*knowledge.Engine, error) {
	embedder := llm.CreateEmbedder(
		cfg.Embedding.Provider,
		cfg.Embedding.Model,
		cfg.Embedding.OllamaURL,
		cfg.Embedding.OpenAIModel,
		cfg.Embedding.APIKeyEnv,
	)
	if embedder == nil {
		return nil, fmt.Errorf("no embedding provider available")
	}
	return knowledge.NewEngine(cfg, db, embedder), nil
}
