package main

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/hyperjump/bookflow/internal/config"
	"github.com/hyperjump/bookflow/internal/docstore"
	"github.com/hyperjump/bookflow/internal/errs"
	"github.com/hyperjump/bookflow/internal/models"
	"go.uber.org/zap"
)

func TestSearchArgsReorder(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected []string
	}{
		{
			name:     "flags after query are moved first",
			args:     []string{"storm at sea", "-limit", "3"},
			expected: []string{"-limit", "3", "storm at sea"},
		},
		{
			name:     "flags first returns unchanged",
			args:     []string{"-limit", "3", "storm at sea"},
			expected: []string{"-limit", "3", "storm at sea"},
		},
		{
			name:     "query only returns unchanged",
			args:     []string{"storm at sea"},
			expected: []string{"storm at sea"},
		},
		{
			name:     "empty args returns unchanged",
			args:     []string{},
			expected: []string{},
		},
		{
			name:     "multiple positionals then flags",
			args:     []string{"one", "two", "-keyword", "-status", "raw"},
			expected: []string{"-keyword", "-status", "raw", "one", "two"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := searchArgsReorder(tt.args)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("searchArgsReorder() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestBuildSearchQuery(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected string
	}{
		{"single word", []string{"harbour"}, "harbour"},
		{"multiple words", []string{"storm", "sea"}, "storm sea"},
		{"single quoted phrase", []string{"storm sea"}, "storm sea"},
		{"empty args", []string{}, ""},
		{"blank args", []string{"  ", "  "}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := buildSearchQuery(tt.args)
			if got != tt.expected {
				t.Errorf("buildSearchQuery(%v) = %q, want %q", tt.args, got, tt.expected)
			}
		})
	}
}

func TestReadEditText(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "edit.txt")
	if err := os.WriteFile(path, []byte("from file\n"), 0600); err != nil {
		t.Fatal(err)
	}

	got, err := readEditText("", []string{"from", "args"}, nil)
	if err != nil || got != "from args" {
		t.Errorf("args: got %q, %v", got, err)
	}
	got, err = readEditText(path, []string{"ignored"}, nil)
	if err != nil || got != "from file\n" {
		t.Errorf("file: got %q, %v", got, err)
	}
	got, err = readEditText("-", nil, strings.NewReader("from stdin"))
	if err != nil || got != "from stdin" {
		t.Errorf("stdin: got %q, %v", got, err)
	}
	if _, err := readEditText(filepath.Join(dir, "missing.txt"), nil, nil); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadConfig_prefersCwdConfigWhenDefaultPath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
debug: true
server:
  host: "localhost"
  port: 8080
storage:
  database_path: "./test.db"
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	origWd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Chdir(origWd) }()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	// On macOS, cwd can be /private/var/... while configPath from t.TempDir() is /var/...; compare canonical paths.
	resolvedCanon, _ := filepath.EvalSymlinks(resolved)
	configPathCanon, _ := filepath.EvalSymlinks(configPath)
	if resolvedCanon != configPathCanon {
		t.Errorf("resolved path = %s (canon %s), want %s (canon %s)", resolved, resolvedCanon, configPath, configPathCanon)
	}
	if !cfg.Debug {
		t.Error("debug should be true from cwd config.yaml")
	}
}

func TestLoadConfig_usesExplicitPath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: "127.0.0.1"
  port: 9000
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != configPath {
		t.Errorf("resolved path = %s, want %s", resolved, configPath)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
}

// testConfig returns defaults with all data paths under a temp dir.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv(config.EnvAPIKey, "")
	dir := t.TempDir()
	var cfg config.Config
	config.ApplyDefaults(&cfg)
	cfg.Storage.DatabasePath = filepath.Join(dir, "db", "documents.db")
	cfg.Storage.BleveIndexPath = filepath.Join(dir, "indices", "bleve")
	cfg.Storage.VectorIndexPath = filepath.Join(dir, "indices", "vectors.idx")
	cfg.Embedding.ModelPath = filepath.Join(dir, "missing.onnx")
	cfg.Embedding.Dimensions = 64
	cfg.Scraper.SnapshotDir = filepath.Join(dir, "snapshots")
	return &cfg
}

func TestInitializeComponents_direct(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	c, err := initializeComponents(cfg, zap.NewNop(), componentOptions{})
	if err != nil {
		t.Fatalf("initializeComponents: %v", err)
	}
	if c.Voice != nil {
		t.Error("voice should be disabled without the LLM stages")
	}

	root := &models.VersionedDocument{ID: "root", Text: "The sea was calm.", Status: models.StatusRaw}
	if err := c.Store.Put(ctx, root); err != nil {
		t.Fatalf("Put: %v", err)
	}
	edit, err := c.Pipeline.SubmitEdit(ctx, "root", "The sea lay still.", "")
	if err != nil {
		t.Fatalf("SubmitEdit: %v", err)
	}
	if edit.Version != 1 || edit.Editor != cfg.Pipeline.EditorID {
		t.Errorf("edit = %+v", edit)
	}
	triples, _, err := c.Dataset.Build(ctx)
	if err != nil || len(triples) != 1 {
		t.Fatalf("Build = %v, %v", triples, err)
	}
	c.Close()

	if _, err := os.Stat(cfg.Storage.VectorIndexPath); err != nil {
		t.Errorf("vector index not saved on close: %v", err)
	}

	// Reopen: the saved index and the database agree, nothing to rebuild.
	c2, err := initializeComponents(cfg, zap.NewNop(), componentOptions{})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer c2.Close()
	hits, err := c2.Store.Query(ctx, "The sea lay still.", 1)
	if err != nil || len(hits) != 1 || hits[0].ID != edit.ID {
		t.Errorf("Query after reopen = %+v, %v", hits, err)
	}
	chain, err := c2.Lineage.Chain(ctx, edit.ID)
	if err != nil || len(chain) != 2 {
		t.Errorf("Chain = %d docs, %v", len(chain), err)
	}
}

func TestInitializeComponents_missingAPIKey(t *testing.T) {
	cfg := testConfig(t)
	_, err := initializeComponents(cfg, zap.NewNop(), componentOptions{withLLM: true})
	if !errs.IsConfiguration(err) {
		t.Fatalf("want configuration error, got %v", err)
	}
}

func TestInitializeComponents_withLLM(t *testing.T) {
	cfg := testConfig(t)
	cfg.LLM.APIKey = "test-key"
	cfg.Scraper.InProcess = true

	c, err := initializeComponents(cfg, zap.NewNop(), componentOptions{withLLM: true})
	if err != nil {
		t.Fatalf("initializeComponents: %v", err)
	}
	defer c.Close()
	if c.Pipeline == nil || c.Voice == nil || c.Metrics == nil {
		t.Errorf("components not wired: %+v", c)
	}
}

func TestPageConfig(t *testing.T) {
	cfg := testConfig(t)
	pc := pageConfig(cfg)
	if pc.ContentClass != cfg.Scraper.ContentClass || pc.MinWords != cfg.Scraper.MinWords || pc.SnapshotDir != cfg.Scraper.SnapshotDir {
		t.Errorf("pageConfig = %+v", pc)
	}
}

func TestWorkerBudget(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want time.Duration
	}{
		{90 * time.Second, 85 * time.Second},
		{0, 85 * time.Second},
		{30 * time.Second, 25 * time.Second},
		{10 * time.Second, 9 * time.Second},
		{time.Second, 900 * time.Millisecond},
	}
	for _, tt := range tests {
		got := workerBudget(tt.in)
		if got != tt.want {
			t.Errorf("workerBudget(%s) = %s, want %s", tt.in, got, tt.want)
		}
		scrape := tt.in
		if scrape <= 0 {
			scrape = 90 * time.Second
		}
		if got >= scrape {
			t.Errorf("workerBudget(%s) = %s must be below the scrape budget", tt.in, got)
		}
	}
}

func TestInitializeComponents_statusDiskUsage(t *testing.T) {
	cfg := testConfig(t)
	c, err := initializeComponents(cfg, zap.NewNop(), componentOptions{})
	if err != nil {
		t.Fatalf("initializeComponents: %v", err)
	}
	defer c.Close()
	stats, err := c.Store.Stats(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.DiskUsage[docstore.PartDatabase] <= 0 {
		t.Errorf("database size not reported: %+v", stats.DiskUsage)
	}
}
