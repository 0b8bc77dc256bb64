package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hyperjump/bookflow/internal/dataset"
	"github.com/hyperjump/bookflow/internal/models"
	"github.com/hyperjump/bookflow/internal/pipeline"
)

// DefaultServerURL is where the CLI looks for a running server.
const DefaultServerURL = "http://localhost:8080"

// APIError is a non-200 response from the server.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Detail)
}

// Client talks to a running bookflow server. It is used by CLI commands so
// they do not contend with the server for the SQLite and Bleve locks.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a client for baseURL. A nil httpClient gets a client
// whose timeout covers a full pipeline run with retries.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Minute}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

type hitsResponse struct {
	Results []*models.SearchHit `json:"results"`
}

// Search runs a semantic search. No results is an empty slice, not an error.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]*models.SearchHit, error) {
	return c.search(ctx, "/search", query, limit, nil)
}

// KeywordSearch runs a keyword search, optionally restricted to one status.
func (c *Client) KeywordSearch(ctx context.Context, query string, limit int, status models.Status) ([]*models.SearchHit, error) {
	extra := url.Values{}
	if status != "" {
		extra.Set("status", string(status))
	}
	return c.search(ctx, "/search/keyword", query, limit, extra)
}

func (c *Client) search(ctx context.Context, path, query string, limit int, extra url.Values) ([]*models.SearchHit, error) {
	params := url.Values{}
	for k, v := range extra {
		params[k] = v
	}
	params.Set("q", query)
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	var resp hitsResponse
	if err := c.do(ctx, http.MethodGet, path+"?"+params.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	if resp.Results == nil {
		return []*models.SearchHit{}, nil
	}
	return resp.Results, nil
}

// Process triggers one pipeline run on the server's configured target.
func (c *Client) Process(ctx context.Context) (*pipeline.Outcome, error) {
	var out pipeline.Outcome
	if err := c.do(ctx, http.MethodPost, "/process-chapter", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Edit submits a human edit and returns the new document id.
func (c *Client) Edit(ctx context.Context, parentID, text, editor string) (string, error) {
	body := map[string]string{"parent_id": parentID, "new_text": text}
	if editor != "" {
		body["editor"] = editor
	}
	var resp struct {
		NewDocumentID string `json:"new_document_id"`
	}
	if err := c.do(ctx, http.MethodPost, "/edit-chapter", body, &resp); err != nil {
		return "", err
	}
	return resp.NewDocumentID, nil
}

// Dataset fetches the preference dataset.
func (c *Client) Dataset(ctx context.Context) ([]models.PreferenceTriple, *dataset.Stats, error) {
	var resp struct {
		Triples []models.PreferenceTriple `json:"preference_dataset"`
		Stats   *dataset.Stats            `json:"stats"`
	}
	if err := c.do(ctx, http.MethodGet, "/dataset/preference", nil, &resp); err != nil {
		return nil, nil, err
	}
	return resp.Triples, resp.Stats, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		var detail struct {
			Detail string `json:"detail"`
		}
		msg := strings.TrimSpace(string(b))
		if json.Unmarshal(b, &detail) == nil && detail.Detail != "" {
			msg = detail.Detail
		}
		return &APIError{StatusCode: resp.StatusCode, Detail: msg}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
