package lineage

import (
	"context"
	"errors"
	"testing"

	"github.com/hyperjump/bookflow/internal/errs"
	"github.com/hyperjump/bookflow/internal/models"
)

type mapResolver map[string]*models.VersionedDocument

func (m mapResolver) Get(_ context.Context, id string) (*models.VersionedDocument, error) {
	if d, ok := m[id]; ok {
		return d, nil
	}
	return nil, errs.NotFound("document", id)
}

func chainFixture() mapResolver {
	return mapResolver{
		"r": {ID: "r", Text: "raw", Status: models.StatusRaw},
		"s": {ID: "s", Text: "spun", Status: models.StatusSpun, Version: 1, ParentID: "r"},
		"v": {ID: "v", Text: "reviewed", Status: models.StatusReviewed, Version: 2, ParentID: "s"},
		"h": {ID: "h", Text: "edit", Status: models.StatusHumanEdited, Version: 3, ParentID: "v"},
	}
}

func TestWalkToRoot(t *testing.T) {
	docs := chainFixture()
	w := NewWalker(docs, 0)
	ctx := context.Background()

	for _, id := range []string{"r", "s", "v", "h"} {
		root, err := w.WalkToRoot(ctx, docs[id])
		if err != nil {
			t.Fatalf("WalkToRoot(%s): %v", id, err)
		}
		if root.ID != "r" {
			t.Errorf("WalkToRoot(%s) = %s, want r", id, root.ID)
		}
	}
}

func TestWalkToRoot_BrokenChain(t *testing.T) {
	docs := chainFixture()
	delete(docs, "s")
	w := NewWalker(docs, 0)
	_, err := w.WalkToRoot(context.Background(), docs["h"])
	if !errors.Is(err, ErrNoRoot) {
		t.Errorf("expected ErrNoRoot, got %v", err)
	}

	orphan := &models.VersionedDocument{ID: "o", Status: models.StatusSpun, Version: 1}
	_, err = w.WalkToRoot(context.Background(), orphan)
	if !errors.Is(err, ErrNoRoot) {
		t.Errorf("missing parent id: expected ErrNoRoot, got %v", err)
	}
}

func TestWalkToRoot_Cycle(t *testing.T) {
	docs := mapResolver{
		"a": {ID: "a", Status: models.StatusSpun, Version: 1, ParentID: "b"},
		"b": {ID: "b", Status: models.StatusReviewed, Version: 2, ParentID: "a"},
	}
	w := NewWalker(docs, 0)
	_, err := w.WalkToRoot(context.Background(), docs["a"])
	if !errors.Is(err, errs.ErrCycleDetected) {
		t.Errorf("expected cycle, got %v", err)
	}

	self := mapResolver{"x": {ID: "x", Status: models.StatusHumanEdited, Version: 1, ParentID: "x"}}
	_, err = NewWalker(self, 0).WalkToRoot(context.Background(), self["x"])
	if !errors.Is(err, errs.ErrCycleDetected) {
		t.Errorf("self-parent: expected cycle, got %v", err)
	}
}

func TestWalkToRoot_MaxDepth(t *testing.T) {
	docs := chainFixture()
	w := NewWalker(docs, 2)
	_, err := w.WalkToRoot(context.Background(), docs["h"])
	if !errors.Is(err, ErrNoRoot) {
		t.Errorf("expected depth limit to end walk with ErrNoRoot, got %v", err)
	}
}

func TestWalkToRoot_ResolverFailure(t *testing.T) {
	boom := errors.New("database is locked")
	w := NewWalker(failingResolver{err: boom}, 0)
	_, err := w.WalkToRoot(context.Background(), &models.VersionedDocument{ID: "s", Status: models.StatusSpun, ParentID: "r", Version: 1})
	if !errors.Is(err, boom) {
		t.Errorf("expected resolver error to propagate, got %v", err)
	}
}

type failingResolver struct{ err error }

func (f failingResolver) Get(context.Context, string) (*models.VersionedDocument, error) {
	return nil, f.err
}

func TestChain(t *testing.T) {
	w := NewWalker(chainFixture(), 0)
	chain, err := w.Chain(context.Background(), "h")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"h", "v", "s", "r"}
	if len(chain) != len(want) {
		t.Fatalf("chain length %d, want %d", len(chain), len(want))
	}
	for i, id := range want {
		if chain[i].ID != id {
			t.Errorf("chain[%d] = %s, want %s", i, chain[i].ID, id)
		}
	}

	if _, err := w.Chain(context.Background(), "missing"); !errs.IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
	if _, err := w.Chain(context.Background(), ""); !errs.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestCheckChild(t *testing.T) {
	parent := &models.VersionedDocument{ID: "p", Status: models.StatusSpun, Version: 1}
	tests := []struct {
		name    string
		child   *models.VersionedDocument
		wantErr error
	}{
		{"next version", &models.VersionedDocument{ID: "c", Status: models.StatusReviewed, Version: 2, ParentID: "p"}, nil},
		{"skips versions", &models.VersionedDocument{ID: "c", Status: models.StatusHumanEdited, Version: 5, ParentID: "p"}, nil},
		{"same version", &models.VersionedDocument{ID: "c", Status: models.StatusReviewed, Version: 1, ParentID: "p"}, errs.ErrVersionConflict},
		{"lower version", &models.VersionedDocument{ID: "c", Status: models.StatusReviewed, Version: 0, ParentID: "p"}, errs.ErrVersionConflict},
		{"raw child", &models.VersionedDocument{ID: "c", Status: models.StatusRaw, Version: 2, ParentID: "p"}, errs.ErrValidation},
		{"wrong parent", &models.VersionedDocument{ID: "c", Status: models.StatusReviewed, Version: 2, ParentID: "q"}, errs.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckChild(parent, tt.child)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
	if NextVersion(parent) != 2 {
		t.Errorf("NextVersion = %d", NextVersion(parent))
	}
}

func TestCheckRoot(t *testing.T) {
	if err := CheckRoot(&models.VersionedDocument{ID: "r", Status: models.StatusRaw}); err != nil {
		t.Errorf("valid root rejected: %v", err)
	}
	if err := CheckRoot(&models.VersionedDocument{ID: "r", Status: models.StatusRaw, Version: 3}); !errors.Is(err, errs.ErrVersionConflict) {
		t.Errorf("root with version 3: got %v", err)
	}
	if err := CheckRoot(&models.VersionedDocument{ID: "s", Status: models.StatusSpun, Version: 1}); !errs.IsValidation(err) {
		t.Errorf("non-raw without parent: got %v", err)
	}
}
