// Package lineage implements the parent/child model of document versions:
// resolving documents, walking back to the raw root, and the version invariant
// every write must satisfy.
package lineage

import (
	"context"
	"errors"
	"fmt"

	"github.com/hyperjump/bookflow/internal/errs"
	"github.com/hyperjump/bookflow/internal/models"
)

// ErrNoRoot means a walk hit a missing link before reaching a raw document.
// It is a valid outcome: the branch is excluded from downstream use.
var ErrNoRoot = errors.New("no raw root found")

// DefaultMaxDepth bounds walks even if the cycle guard is somehow bypassed.
const DefaultMaxDepth = 1000

// Resolver looks up documents by id, returning errs.ErrNotFound when absent.
type Resolver interface {
	Get(ctx context.Context, id string) (*models.VersionedDocument, error)
}

// Walker walks lineage chains through a Resolver.
type Walker struct {
	resolver Resolver
	maxDepth int
}

// NewWalker creates a walker. maxDepth <= 0 uses DefaultMaxDepth.
func NewWalker(resolver Resolver, maxDepth int) *Walker {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Walker{resolver: resolver, maxDepth: maxDepth}
}

// Resolve returns the document with id.
func (w *Walker) Resolve(ctx context.Context, id string) (*models.VersionedDocument, error) {
	if id == "" {
		return nil, errs.Validation("document id is required")
	}
	return w.resolver.Get(ctx, id)
}

// WalkToRoot follows parent links from doc until a raw document is reached and
// returns it. A raw doc is its own root. A missing parent id or an unresolvable
// parent yields ErrNoRoot; revisiting a document yields errs.ErrCycleDetected.
// Other resolver failures are returned as-is.
func (w *Walker) WalkToRoot(ctx context.Context, doc *models.VersionedDocument) (*models.VersionedDocument, error) {
	chain, err := w.walk(ctx, doc)
	if err != nil {
		return nil, err
	}
	return chain[len(chain)-1], nil
}

// Chain returns the ancestry of the document with id, starting with the
// document itself and ending with its raw root.
func (w *Walker) Chain(ctx context.Context, id string) ([]*models.VersionedDocument, error) {
	doc, err := w.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	return w.walk(ctx, doc)
}

func (w *Walker) walk(ctx context.Context, doc *models.VersionedDocument) ([]*models.VersionedDocument, error) {
	visited := map[string]bool{doc.ID: true}
	chain := []*models.VersionedDocument{doc}
	current := doc
	for !current.IsRoot() {
		if len(chain) > w.maxDepth {
			return nil, fmt.Errorf("lineage of '%s' exceeds depth %d: %w", doc.ID, w.maxDepth, ErrNoRoot)
		}
		if current.ParentID == "" {
			return nil, fmt.Errorf("'%s' has no parent: %w", current.ID, ErrNoRoot)
		}
		if visited[current.ParentID] {
			return nil, errs.CycleDetected(current.ParentID)
		}
		parent, err := w.resolver.Get(ctx, current.ParentID)
		if errs.IsNotFound(err) {
			return nil, fmt.Errorf("parent '%s' of '%s' is missing: %w", current.ParentID, current.ID, ErrNoRoot)
		}
		if err != nil {
			return nil, err
		}
		visited[parent.ID] = true
		chain = append(chain, parent)
		current = parent
	}
	return chain, nil
}

// NextVersion returns the version a direct child of parent receives.
func NextVersion(parent *models.VersionedDocument) int {
	return parent.Version + 1
}

// CheckRoot validates a document with no parent: it must be raw at version 0.
func CheckRoot(doc *models.VersionedDocument) error {
	if doc.Status != models.StatusRaw {
		return errs.Validation(fmt.Sprintf("document '%s' with status %s requires a parent", doc.ID, doc.Status))
	}
	if doc.ParentID != "" {
		return errs.Validation(fmt.Sprintf("raw document '%s' cannot have a parent", doc.ID))
	}
	if doc.Version != 0 {
		return fmt.Errorf("raw document '%s' must be version 0, got %d: %w", doc.ID, doc.Version, errs.ErrVersionConflict)
	}
	return nil
}

// CheckChild validates child against its resolved parent.
func CheckChild(parent, child *models.VersionedDocument) error {
	if child.Status == models.StatusRaw {
		return errs.Validation(fmt.Sprintf("raw document '%s' cannot have a parent", child.ID))
	}
	if child.ParentID != parent.ID {
		return errs.Validation(fmt.Sprintf("document '%s' names parent '%s', not '%s'", child.ID, child.ParentID, parent.ID))
	}
	if child.Version <= parent.Version {
		return errs.VersionConflict(parent.ID, parent.Version, child.Version)
	}
	return nil
}
