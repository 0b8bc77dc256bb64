// Package storage defines the persistence interface for versioned documents.
package storage

import (
	"context"

	"github.com/hyperjump/bookflow/internal/models"
)

// Storage defines document persistence operations. Documents are write-once:
// there is no update or delete.
type Storage interface {
	CreateDocument(ctx context.Context, doc *models.VersionedDocument) error
	// GetDocument returns errs.ErrNotFound when id is absent.
	GetDocument(ctx context.Context, id string) (*models.VersionedDocument, error)
	// ListDocuments returns documents in insertion order.
	ListDocuments(ctx context.Context, offset, limit int) ([]*models.VersionedDocument, error)
	// FindDocuments returns all documents matching filter in insertion order.
	FindDocuments(ctx context.Context, filter models.DocumentFilter) ([]*models.VersionedDocument, error)

	// Stats
	CountDocuments(ctx context.Context) (int64, error)
	CountByStatus(ctx context.Context) (map[models.Status]int64, error)

	Close() error
}
