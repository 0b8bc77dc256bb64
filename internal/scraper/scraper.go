// Package scraper fetches chapter text from a web page, either in-process or in
// an isolated worker process.
package scraper

import (
	"context"
	"encoding/json"
	"io"
)

// Status of a scrape.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// Result is the scrape outcome. It is also the JSON line a worker process writes.
type Result struct {
	Status         Status `json:"status"`
	Text           string `json:"text,omitempty"`
	ScreenshotPath string `json:"screenshot_path,omitempty"`
	SourceURL      string `json:"source_url,omitempty"`
	Error          string `json:"error,omitempty"`
}

// OK reports whether the scrape succeeded.
func (r Result) OK() bool {
	return r.Status == StatusSuccess
}

// Failure builds a failed result.
func Failure(err error) Result {
	return Result{Status: StatusFailure, Error: err.Error()}
}

// Scraper extracts chapter text from url.
type Scraper interface {
	Scrape(ctx context.Context, url string) Result
}

// RunWorker scrapes url and writes the result as one JSON object to w.
// It is the body of the scrape-worker subcommand.
func RunWorker(ctx context.Context, s Scraper, url string, w io.Writer) error {
	return json.NewEncoder(w).Encode(s.Scrape(ctx, url))
}
