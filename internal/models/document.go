// Package models defines core data structures for versioned documents, searches, and datasets.
package models

import (
	"fmt"
	"time"
)

// Status tags which stage produced a document version.
type Status string

const (
	StatusRaw         Status = "raw"
	StatusSpun        Status = "spun_ai"
	StatusReviewed    Status = "reviewed_ai"
	StatusHumanEdited Status = "human_edited"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusRaw, StatusSpun, StatusReviewed, StatusHumanEdited:
		return true
	}
	return false
}

// ParseStatus converts s to a Status, rejecting unknown values.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", fmt.Errorf("unknown status: %q", s)
	}
	return st, nil
}

// Metadata keys stored alongside each document.
const (
	MetaVersion        = "version"
	MetaStatus         = "status"
	MetaParentID       = "parent_id"
	MetaSourceURL      = "source_url"
	MetaScreenshotPath = "screenshot_path"
	MetaModel          = "model"
	MetaEditor         = "editor"
)

// VersionedDocument is one immutable version of a chapter in a lineage chain.
type VersionedDocument struct {
	ID             string    `json:"id" db:"id"`
	Text           string    `json:"text" db:"text"`
	Version        int       `json:"version" db:"version"`
	Status         Status    `json:"status" db:"status"`
	ParentID       string    `json:"parent_id,omitempty" db:"parent_id"`
	SourceURL      string    `json:"source_url,omitempty" db:"source_url"`
	ScreenshotPath string    `json:"screenshot_path,omitempty" db:"screenshot_path"`
	Model          string    `json:"model,omitempty" db:"model"`
	Editor         string    `json:"editor,omitempty" db:"editor"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// IsRoot reports whether the document is an unmodified scraped original.
func (d *VersionedDocument) IsRoot() bool {
	return d.Status == StatusRaw
}

// Metadata returns the flat metadata map exposed to search clients.
// Only the fields relevant to the document's stage are included.
func (d *VersionedDocument) Metadata() map[string]interface{} {
	m := map[string]interface{}{
		MetaVersion: d.Version,
		MetaStatus:  string(d.Status),
	}
	if d.ParentID != "" {
		m[MetaParentID] = d.ParentID
	}
	if d.SourceURL != "" {
		m[MetaSourceURL] = d.SourceURL
	}
	if d.ScreenshotPath != "" {
		m[MetaScreenshotPath] = d.ScreenshotPath
	}
	if d.Model != "" {
		m[MetaModel] = d.Model
	}
	if d.Editor != "" {
		m[MetaEditor] = d.Editor
	}
	return m
}

// DocumentFilter selects documents by metadata. Zero fields match everything.
type DocumentFilter struct {
	Status   Status `json:"status,omitempty"`
	ParentID string `json:"parent_id,omitempty"`
}

// Matches reports whether doc satisfies the filter.
func (f DocumentFilter) Matches(doc *VersionedDocument) bool {
	if f.Status != "" && doc.Status != f.Status {
		return false
	}
	if f.ParentID != "" && doc.ParentID != f.ParentID {
		return false
	}
	return true
}

// DocumentRef is the short form of a document returned after a pipeline run.
type DocumentRef struct {
	ID      string `json:"id"`
	Preview string `json:"preview"`
}
