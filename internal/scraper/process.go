package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"go.uber.org/zap"
)

// DefaultWorkerTimeout bounds a whole worker run, including process start-up.
const DefaultWorkerTimeout = 90 * time.Second

// ProcessScraper runs each scrape in a child process and reads its JSON result
// from stdout. The child is always reaped before Scrape returns; on timeout or
// cancellation it is killed first.
type ProcessScraper struct {
	path    string
	args    []string
	env     []string
	timeout time.Duration
	stderr  io.Writer
	logger  *zap.Logger
}

// ProcessOption configures a ProcessScraper.
type ProcessOption func(*ProcessScraper)

// WithArgs replaces the arguments placed before "--url <url>".
func WithArgs(args ...string) ProcessOption {
	return func(p *ProcessScraper) { p.args = args }
}

// WithEnv appends environment variables for the child.
func WithEnv(env ...string) ProcessOption {
	return func(p *ProcessScraper) { p.env = append(p.env, env...) }
}

// WithStderr sets where the child's logs go.
func WithStderr(w io.Writer) ProcessOption {
	return func(p *ProcessScraper) { p.stderr = w }
}

// NewProcessScraper runs "<path> scrape-worker --url <url>" for each scrape.
func NewProcessScraper(path string, timeout time.Duration, logger *zap.Logger, opts ...ProcessOption) *ProcessScraper {
	if timeout <= 0 {
		timeout = DefaultWorkerTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &ProcessScraper{
		path:    path,
		args:    []string{"scrape-worker"},
		timeout: timeout,
		stderr:  os.Stderr,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Scrape implements Scraper.
func (p *ProcessScraper) Scrape(ctx context.Context, url string) Result {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	args := append(append([]string{}, p.args...), "--url", url)
	cmd := exec.CommandContext(ctx, p.path, args...)
	cmd.Env = append(os.Environ(), p.env...)
	cmd.Stderr = p.stderr
	cmd.WaitDelay = time.Second
	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	p.logger.Info("starting scrape worker", zap.String("url", url), zap.Duration("timeout", p.timeout))
	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	if ctxErr := ctx.Err(); ctxErr != nil {
		p.logger.Error("scrape worker killed", zap.String("url", url), zap.Duration("elapsed", elapsed), zap.Error(ctxErr))
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return Failure(fmt.Errorf("scrape worker timed out after %s", p.timeout))
		}
		return Failure(fmt.Errorf("scrape worker cancelled: %w", ctxErr))
	}

	var res Result
	if decodeErr := json.Unmarshal(stdout.Bytes(), &res); decodeErr != nil || res.Status == "" {
		if err != nil {
			return Failure(fmt.Errorf("scrape worker failed: %w", err))
		}
		return Failure(errors.New("scrape worker produced no result"))
	}
	if err != nil {
		p.logger.Warn("scrape worker exited with error after writing a result", zap.Error(err))
	}
	p.logger.Info("scrape worker finished",
		zap.String("url", url),
		zap.String("status", string(res.Status)),
		zap.Duration("elapsed", elapsed),
	)
	return res
}
