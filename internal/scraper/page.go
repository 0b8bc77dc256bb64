package scraper

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	DefaultContentClass = "mw-parser-output"
	DefaultMinWords     = 100
	DefaultHTTPTimeout  = 60 * time.Second
	DefaultUserAgent    = "bookflow/1.0 (+https://github.com/hyperjump/bookflow)"

	maxPageBytes = 20 << 20
)

// PageConfig configures PageScraper.
type PageConfig struct {
	ContentClass string
	MinWords     int
	HTTPTimeout  time.Duration
	SnapshotDir  string
	UserAgent    string
}

// PageScraper downloads a page, extracts the text of the content element and
// keeps an HTML snapshot of what it saw.
type PageScraper struct {
	cfg    PageConfig
	client *http.Client
	logger *zap.Logger
}

// NewPageScraper creates a scraper; zero config fields take defaults.
func NewPageScraper(cfg PageConfig, logger *zap.Logger) *PageScraper {
	if cfg.ContentClass == "" {
		cfg.ContentClass = DefaultContentClass
	}
	if cfg.MinWords <= 0 {
		cfg.MinWords = DefaultMinWords
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = DefaultHTTPTimeout
	}
	if cfg.SnapshotDir == "" {
		cfg.SnapshotDir = "snapshots"
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PageScraper{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.HTTPTimeout},
		logger: logger,
	}
}

// Scrape implements Scraper.
func (p *PageScraper) Scrape(ctx context.Context, url string) Result {
	p.logger.Info("scraping page", zap.String("url", url))
	body, err := p.fetch(ctx, url)
	if err != nil {
		p.logger.Error("fetch failed", zap.String("url", url), zap.Error(err))
		return Failure(err)
	}
	text, err := ExtractText(bytes.NewReader(body), p.cfg.ContentClass)
	if err != nil {
		return Failure(err)
	}
	if words := len(strings.Fields(text)); words < p.cfg.MinWords {
		return Failure(fmt.Errorf("scraped content is missing or too short: %d words, need %d", words, p.cfg.MinWords))
	}
	path, err := p.saveSnapshot(body)
	if err != nil {
		return Failure(err)
	}
	p.logger.Info("page scraped", zap.String("url", url), zap.Int("chars", len(text)), zap.String("snapshot", path))
	return Result{
		Status:         StatusSuccess,
		Text:           text,
		ScreenshotPath: path,
		SourceURL:      url,
	}
}

func (p *PageScraper) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	req.Header.Set("User-Agent", p.cfg.UserAgent)
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch page: HTTP %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read page: %w", err)
	}
	return body, nil
}

func (p *PageScraper) saveSnapshot(body []byte) (string, error) {
	if err := os.MkdirAll(p.cfg.SnapshotDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create snapshot dir: %w", err)
	}
	path := filepath.Join(p.cfg.SnapshotDir, fmt.Sprintf("chapter_raw_%s.html", uuid.New()))
	if err := os.WriteFile(path, body, 0644); err != nil {
		return "", fmt.Errorf("failed to write snapshot: %w", err)
	}
	return path, nil
}

// ExtractText returns the rendered text of the first element carrying class.
func ExtractText(r io.Reader, class string) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", fmt.Errorf("failed to parse html: %w", err)
	}
	node := findByClass(doc, class)
	if node == nil {
		return "", fmt.Errorf("content element .%s not found", class)
	}
	var b strings.Builder
	renderText(&b, node)
	return cleanLines(b.String()), nil
}

func findByClass(n *html.Node, class string) *html.Node {
	if n.Type == html.ElementNode && hasClass(n, class) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findByClass(c, class); found != nil {
			return found
		}
	}
	return nil
}

func hasClass(n *html.Node, class string) bool {
	for _, a := range n.Attr {
		if a.Key != "class" {
			continue
		}
		for _, c := range strings.Fields(a.Val) {
			if c == class {
				return true
			}
		}
	}
	return false
}

func renderText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.ElementNode:
		switch n.DataAtom {
		case atom.Script, atom.Style, atom.Noscript:
			return
		case atom.Br:
			b.WriteByte('\n')
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		renderText(b, c)
	}
	if n.Type == html.ElementNode && isBlock(n.DataAtom) {
		b.WriteByte('\n')
	}
}

func isBlock(a atom.Atom) bool {
	switch a {
	case atom.P, atom.Div, atom.Li, atom.Tr, atom.Blockquote, atom.Pre,
		atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6, atom.Table, atom.Ul, atom.Ol:
		return true
	}
	return false
}

// cleanLines collapses runs of spaces inside lines and drops blank lines.
func cleanLines(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
