// Package main is the bookflow CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/hyperjump/bookflow/internal/agent"
	"github.com/hyperjump/bookflow/internal/cli"
	"github.com/hyperjump/bookflow/internal/config"
	"github.com/hyperjump/bookflow/internal/dataset"
	"github.com/hyperjump/bookflow/internal/docstore"
	"github.com/hyperjump/bookflow/internal/embedding"
	"github.com/hyperjump/bookflow/internal/keyword"
	"github.com/hyperjump/bookflow/internal/lineage"
	"github.com/hyperjump/bookflow/internal/llm"
	"github.com/hyperjump/bookflow/internal/metrics"
	"github.com/hyperjump/bookflow/internal/models"
	"github.com/hyperjump/bookflow/internal/pipeline"
	"github.com/hyperjump/bookflow/internal/retry"
	"github.com/hyperjump/bookflow/internal/scraper"
	"github.com/hyperjump/bookflow/internal/server"
	"github.com/hyperjump/bookflow/internal/storage"
	"github.com/hyperjump/bookflow/internal/transcribe"
	"github.com/hyperjump/bookflow/internal/vector"
	"github.com/hyperjump/bookflow/pkg/utils"
	"go.uber.org/zap"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/bookflow/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used.
// Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "process":
		runProcess()
	case "search":
		runSearch()
	case "edit":
		runEdit()
	case "dataset":
		runDataset()
	case "scrape-worker":
		runScrapeWorker()
	case "init":
		runInit()
	case "version", "--version", "-v":
		fmt.Printf("bookflow version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
		zap.String("target_url", cfg.Scraper.TargetURL),
	)

	components, err := initializeComponents(cfg, logger, componentOptions{
		withLLM:    true,
		configPath: resolvedConfigPath,
		debug:      debugMode,
	})
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	srv := server.NewServer(server.Deps{
		Store:     components.Store,
		Pipeline:  components.Pipeline,
		Dataset:   components.Dataset,
		Lineage:   components.Lineage,
		Voice:     components.Voice,
		Metrics:   components.Metrics,
		TargetURL: cfg.Scraper.TargetURL,
		Search:    cfg.Search,
	}, &cfg.Server, logger)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

// commandContext returns a context cancelled on SIGINT or SIGTERM.
func commandContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// directComponents loads config and opens the stores for commands that run
// without a server. It exits the process on failure.
func directComponents(configPath string, withLLM bool) (*Components, *config.Config, *zap.Logger) {
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	components, err := initializeComponents(cfg, logger, componentOptions{
		withLLM:    withLLM,
		configPath: resolved,
		debug:      cfg.Debug,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	return components, cfg, logger
}

func parseFormatOrExit(s string) cli.OutputFormat {
	format, err := cli.ParseFormat(s)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	return format
}

func runProcess() {
	fs := flag.NewFlagSet("process", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", cli.DefaultServerURL, "server URL (empty = run the pipeline in this process)")
	outputFormat := fs.String("output", "text", "output format: text, compact, or json")
	_ = fs.Parse(os.Args[2:])
	format := parseFormatOrExit(*outputFormat)

	ctx, cancel := commandContext()
	defer cancel()

	var (
		out *pipeline.Outcome
		err error
	)
	if *serverURL != "" {
		out, err = cli.NewClient(*serverURL, nil).Process(ctx)
	} else {
		components, cfg, logger := directComponents(*configPath, true)
		defer logger.Sync()
		defer components.Close()
		out, err = components.Pipeline.Run(ctx, cfg.Scraper.TargetURL)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Process failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteOutcome(os.Stdout, out, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// printSearchUsage prints search subcommand usage.
func printSearchUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: bookflow search [flags] <query>\n\n")
	fmt.Fprintf(fs.Output(), "Query is all remaining arguments joined by spaces. Multi-word queries work with or without quotes.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Semantic search ranks every stored version (raw, AI and human) by embedding distance.
  • Use --keyword for a keyword search instead.
  • Use --status with --keyword to restrict results to one version type.

Examples:
  bookflow search storm at sea
  bookflow search --limit 10 "the captain's log"
  bookflow search --keyword --status human_edited harbour
`)
}

// buildSearchQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// searchArgsReorder moves any flags (and their values) that appear after the query
// to the front of the slice so that flag.Parse() sees them. Go's flag package
// stops at the first non-flag argument, so "bookflow search storm -limit 3"
// would otherwise leave -limit unparsed.
func searchArgsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", cli.DefaultServerURL, "server URL (empty = use direct storage when server is not running)")
	limit := fs.Int("limit", 0, "number of results (0 = server default)")
	kwEnabled := fs.Bool("keyword", false, "keyword search instead of semantic search")
	status := fs.String("status", "", "restrict keyword results to one status: raw, spun_ai, reviewed_ai, human_edited")
	outputFormat := fs.String("output", "text", "output format: text (human-readable), compact (one result per line), or json (parseable)")
	fs.Usage = func() { printSearchUsage(fs) }
	_ = fs.Parse(searchArgsReorder(os.Args[2:]))

	queryStr := buildSearchQuery(fs.Args())
	if queryStr == "" {
		printSearchUsage(fs)
		os.Exit(1)
	}
	format := parseFormatOrExit(*outputFormat)
	var st models.Status
	if *status != "" {
		parsed, err := models.ParseStatus(*status)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		st = parsed
	}

	ctx, cancel := commandContext()
	defer cancel()

	var (
		hits []*models.SearchHit
		err  error
	)
	if *serverURL != "" {
		// Use HTTP API when server is running (avoids Bleve/SQLite lock conflict).
		c := cli.NewClient(*serverURL, nil)
		if *kwEnabled {
			hits, err = c.KeywordSearch(ctx, queryStr, *limit, st)
		} else {
			hits, err = c.Search(ctx, queryStr, *limit)
		}
	} else {
		components, cfg, logger := directComponents(*configPath, false)
		defer logger.Sync()
		defer components.Close()
		query := &models.SearchQuery{Query: queryStr, Limit: *limit}
		query.Normalize(cfg.Search.TextResults, cfg.Search.MaxResults)
		if *kwEnabled {
			hits, err = components.Store.KeywordQuery(ctx, query.Query, query.Limit,
				&keyword.SearchOptions{FuzzyEnabled: cfg.Search.Fuzzy, Status: st})
		} else {
			hits, err = components.Store.Query(ctx, query.Query, query.Limit)
		}
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteSearchHits(os.Stdout, queryStr, hits, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// readEditText returns the edit text from file ("-" is stdin) or, when file is
// empty, the joined positional args.
func readEditText(file string, args []string, stdin io.Reader) (string, error) {
	if file == "" {
		return strings.Join(args, " "), nil
	}
	var (
		b   []byte
		err error
	)
	if file == "-" {
		b, err = io.ReadAll(stdin)
	} else {
		b, err = os.ReadFile(file)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read edit text: %w", err)
	}
	return string(b), nil
}

func runEdit() {
	fs := flag.NewFlagSet("edit", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", cli.DefaultServerURL, "server URL (empty = use direct storage)")
	editor := fs.String("editor", "", "editor id (default from config)")
	file := fs.String("file", "", "read the edited text from this file (- for stdin)")
	_ = fs.Parse(searchArgsReorder(os.Args[2:]))
	if fs.NArg() < 1 {
		fmt.Println("Usage: bookflow edit [flags] <parent-id> [text...]")
		os.Exit(1)
	}
	parentID := fs.Arg(0)
	text, err := readEditText(*file, fs.Args()[1:], os.Stdin)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if strings.TrimSpace(text) == "" {
		fmt.Fprintln(os.Stderr, "Edit text is empty; pass it as arguments or with --file.")
		os.Exit(1)
	}

	ctx, cancel := commandContext()
	defer cancel()

	var newID string
	if *serverURL != "" {
		newID, err = cli.NewClient(*serverURL, nil).Edit(ctx, parentID, text, *editor)
	} else {
		components, _, logger := directComponents(*configPath, false)
		defer logger.Sync()
		defer components.Close()
		var doc *models.VersionedDocument
		doc, err = components.Pipeline.SubmitEdit(ctx, parentID, text, *editor)
		if doc != nil {
			newID = doc.ID
		}
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Edit failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Human edit saved successfully: %s (parent %s)\n", newID, parentID)
}

func runDataset() {
	fs := flag.NewFlagSet("dataset", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", cli.DefaultServerURL, "server URL (empty = use direct storage)")
	outputFormat := fs.String("output", "text", "output format: text, compact (JSON Lines), or json")
	_ = fs.Parse(os.Args[2:])
	format := parseFormatOrExit(*outputFormat)

	ctx, cancel := commandContext()
	defer cancel()

	var (
		triples []models.PreferenceTriple
		stats   *dataset.Stats
		err     error
	)
	if *serverURL != "" {
		triples, stats, err = cli.NewClient(*serverURL, nil).Dataset(ctx)
	} else {
		components, _, logger := directComponents(*configPath, false)
		defer logger.Sync()
		defer components.Close()
		triples, stats, err = components.Dataset.Build(ctx)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Dataset failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteDataset(os.Stdout, triples, stats, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// runScrapeWorker scrapes one URL and writes a JSON result to stdout. The
// server runs it as a child process; logs go to stderr.
func runScrapeWorker() {
	fs := flag.NewFlagSet("scrape-worker", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	url := fs.String("url", "", "page to scrape")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	fail := func(err error) {
		_ = json.NewEncoder(os.Stdout).Encode(scraper.Failure(err))
		os.Exit(1)
	}
	if *url == "" {
		fail(errors.New("--url is required"))
	}
	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fail(err)
	}
	logger, err := utils.NewWorkerLogger(cfg.Debug || *debug)
	if err != nil {
		fail(err)
	}
	defer logger.Sync()

	ctx, cancel := commandContext()
	defer cancel()
	if err := scraper.RunWorker(ctx, scraper.NewPageScraper(pageConfig(cfg), logger), *url, os.Stdout); err != nil {
		logger.Error("failed to write scrape result", zap.Error(err))
		os.Exit(1)
	}
}

// runInit writes a config file populated with defaults.
func runInit() {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "config file to create")
	force := fs.Bool("force", false, "overwrite an existing file")
	_ = fs.Parse(os.Args[2:])

	if _, err := os.Stat(*configPath); err == nil && !*force {
		fmt.Fprintf(os.Stderr, "%s already exists; use --force to overwrite\n", *configPath)
		os.Exit(1)
	}
	var cfg config.Config
	config.ApplyDefaults(&cfg)
	if err := os.MkdirAll(filepath.Dir(*configPath), 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create config dir: %v\n", err)
		os.Exit(1)
	}
	if err := config.Save(*configPath, &cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %s. Set %s before running the pipeline.\n", *configPath, config.EnvAPIKey)
}

// Components holds initialized services.
type Components struct {
	Store    *docstore.Store
	Metrics  *metrics.Metrics
	Pipeline *pipeline.Orchestrator
	Dataset  *dataset.Builder
	Lineage  *lineage.Walker
	// Voice is nil when no transcriber is configured.
	Voice *transcribe.Service

	transcriber *transcribe.WhisperTranscriber
	vectorPath  string
	logger      *zap.Logger
}

// Close saves the vector index and releases all components.
func (c *Components) Close() {
	if c.vectorPath != "" {
		if err := c.Store.SaveIndex(c.vectorPath); err != nil {
			c.logger.Warn("vector index save failed", zap.String("path", c.vectorPath), zap.Error(err))
		}
	}
	if c.transcriber != nil {
		_ = c.transcriber.Close()
	}
	if err := c.Store.Close(); err != nil {
		c.logger.Warn("close failed", zap.Error(err))
	}
}

type componentOptions struct {
	// withLLM builds the scrape, writer and reviewer stages and the
	// transcriber. Without it the orchestrator only accepts human edits.
	withLLM    bool
	configPath string
	debug      bool
}

func pageConfig(cfg *config.Config) scraper.PageConfig {
	return scraper.PageConfig{
		ContentClass: cfg.Scraper.ContentClass,
		MinWords:     cfg.Scraper.MinWords,
		HTTPTimeout:  cfg.Scraper.HTTPTimeout,
		SnapshotDir:  cfg.Scraper.SnapshotDir,
		UserAgent:    cfg.Scraper.UserAgent,
	}
}

// workerBudget is the scrape worker's own timeout. It expires before the
// orchestrator's scrape budget so a slow page always fails with the worker's
// timeout message and the child is reaped before the run gives up.
func workerBudget(scrapeTimeout time.Duration) time.Duration {
	if scrapeTimeout <= 0 {
		scrapeTimeout = pipeline.DefaultScrapeTimeout
	}
	margin := 5 * time.Second
	if scrapeTimeout <= 2*margin {
		margin = scrapeTimeout / 10
	}
	return scrapeTimeout - margin
}

func initializeComponents(cfg *config.Config, logger *zap.Logger, opts componentOptions) (*Components, error) {
	for _, dir := range []string{
		filepath.Dir(cfg.Storage.DatabasePath),
		filepath.Dir(cfg.Storage.BleveIndexPath),
		filepath.Dir(cfg.Storage.VectorIndexPath),
	} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data dir: %w", err)
		}
	}

	db, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	embedder := embedding.New(embedding.Options{
		ModelPath:  cfg.Embedding.ModelPath,
		Dimensions: cfg.Embedding.Dimensions,
		MaxTokens:  cfg.Embedding.MaxTokens,
		CacheSize:  cfg.Embedding.CacheSize,
	}, logger)

	vectorIndex, err := vector.NewVectorIndex(string(vector.IndexTypeMemory), embedder.Dimensions())
	if err != nil {
		db.Close()
		embedder.Close()
		return nil, fmt.Errorf("failed to initialize vector index: %w", err)
	}

	keywordIndex, err := keyword.NewBleveIndex(cfg.Storage.BleveIndexPath)
	if err != nil {
		db.Close()
		embedder.Close()
		return nil, fmt.Errorf("failed to initialize keyword index: %w", err)
	}

	store := docstore.New(db, embedder, vectorIndex, keywordIndex,
		docstore.WithLogger(logger),
		docstore.WithDiskPaths(map[string]string{
			docstore.PartDatabase:     cfg.Storage.DatabasePath,
			docstore.PartKeywordIndex: cfg.Storage.BleveIndexPath,
			docstore.PartVectorIndex:  cfg.Storage.VectorIndexPath,
		}))
	store.LoadIndex(cfg.Storage.VectorIndexPath)
	if n, err := store.Rebuild(context.Background()); err != nil {
		logger.Warn("index rebuild failed", zap.Error(err))
	} else if n > 0 {
		logger.Info("indexed documents missing from indices", zap.Int("count", n))
	}

	m := metrics.New()
	c := &Components{
		Store:      store,
		Metrics:    m,
		Dataset:    dataset.NewBuilder(store, cfg.Pipeline.LineageMaxDepth, m, logger),
		Lineage:    lineage.NewWalker(store, cfg.Pipeline.LineageMaxDepth),
		vectorPath: cfg.Storage.VectorIndexPath,
		logger:     logger,
	}

	pipelineCfg := pipeline.Config{
		IDPrefix:      cfg.Pipeline.IDPrefix,
		PreviewLength: cfg.Pipeline.PreviewLength,
		EditorID:      cfg.Pipeline.EditorID,
		ScrapeTimeout: cfg.Scraper.WorkerTimeout,
	}
	if !opts.withLLM {
		c.Pipeline = pipeline.New(pipelineCfg, nil, nil, nil, store, m, logger)
		return c, nil
	}

	client, err := llm.NewClient(llm.Config{
		APIKey:            cfg.LLM.APIKey,
		BaseURL:           cfg.LLM.BaseURL,
		Model:             cfg.LLM.Model,
		RequestsPerSecond: cfg.LLM.RequestsPerSecond,
		Burst:             cfg.LLM.Burst,
	}, logger)
	if err != nil {
		c.Close()
		return nil, err
	}
	retrier := retry.New(retry.Policy{
		MaxAttempts: cfg.LLM.MaxAttempts,
		Cooldown:    cfg.LLM.Cooldown,
		Multiplier:  cfg.LLM.BackoffMultiplier,
	}, retry.WithRetryCounter(m.RetryCounter()), retry.WithLogger(logger))

	var s scraper.Scraper
	if cfg.Scraper.InProcess {
		s = scraper.NewPageScraper(pageConfig(cfg), logger)
	} else {
		exe, err := os.Executable()
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to locate executable for scrape worker: %w", err)
		}
		args := []string{"scrape-worker", "--config", opts.configPath}
		if opts.debug {
			args = append(args, "--debug")
		}
		s = scraper.NewProcessScraper(exe, workerBudget(pipelineCfg.ScrapeTimeout), logger, scraper.WithArgs(args...))
	}

	c.Pipeline = pipeline.New(
		pipelineCfg,
		s,
		agent.NewWriter(client, retrier, logger),
		agent.NewReviewer(client, retrier, logger),
		store,
		m,
		logger,
	)

	transcriber, err := transcribe.New(transcribe.Config{
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.Transcription.BaseURL,
		Model:   cfg.Transcription.Model,
	}, logger)
	if err != nil {
		logger.Warn("voice search disabled", zap.Error(err))
		return c, nil
	}
	c.transcriber = transcriber
	c.Voice = transcribe.NewService(transcriber, cfg.Transcription.TempDir, logger)
	return c, nil
}

func printUsage() {
	fmt.Println(`bookflow - Book chapter pipeline: scrape, AI rewrite and review, human edits, search

Usage:
  bookflow server [flags]                  Start the HTTP server
  bookflow process [flags]                 Run the pipeline on the configured chapter
  bookflow search [flags] <query>          Search stored chapter versions
  bookflow edit [flags] <parent-id> [text] Submit a human edit
  bookflow dataset [flags]                 Build the preference dataset
  bookflow init [flags]                    Write a config file with defaults
  bookflow version                         Show version
  bookflow help                            Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/bookflow/config.yaml)
  --debug            Enable debug logging

Process / Search / Edit / Dataset Flags:
  --config string    Config file path (for direct storage mode)
  --server string    Server URL (default: http://localhost:8080). Use --server "" for direct storage.
  --output string    Output format: text, compact, or json (not for edit)

Search Flags:
  --limit int        Number of results (default from server config)
  --keyword          Keyword search instead of semantic search
  --status string    With --keyword, restrict to raw, spun_ai, reviewed_ai, or human_edited

Edit Flags:
  --editor string    Editor id (default from config)
  --file string      Read edited text from a file (- for stdin)

Environment:
  GROQ_API_KEY         API key for completions and transcription
  BOOKFLOW_TARGET_URL  Overrides scraper.target_url

Examples:
  bookflow init --config ./config.yaml
  bookflow server
  bookflow process --output json
  bookflow search "storm at sea"
  bookflow search --keyword --status human_edited harbour
  bookflow edit --file chapter.txt chapter_1_reviewed_v2_...
  bookflow dataset --output compact > preference.jsonl`)
}
