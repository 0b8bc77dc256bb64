// Package dataset derives preference pairs from human edits: the edit is the
// chosen text, its direct parent the rejected one, and the raw ancestor the prompt.
package dataset

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/bookflow/internal/errs"
	"github.com/hyperjump/bookflow/internal/lineage"
	"github.com/hyperjump/bookflow/internal/metrics"
	"github.com/hyperjump/bookflow/internal/models"
)

// Skip reasons, used as metric labels.
const (
	ReasonMissingParent = "missing_parent"
	ReasonNoRoot        = "no_root"
	ReasonCycle         = "cycle"
)

// Source is the read side of the document store.
type Source interface {
	lineage.Resolver
	Where(ctx context.Context, filter models.DocumentFilter) ([]*models.VersionedDocument, error)
}

// Stats summarizes one build.
type Stats struct {
	HumanEdits           int `json:"human_edits"`
	Emitted              int `json:"emitted"`
	SkippedMissingParent int `json:"skipped_missing_parent"`
	SkippedNoRoot        int `json:"skipped_no_root"`
	SkippedCycle         int `json:"skipped_cycle"`
}

// Builder builds preference datasets.
type Builder struct {
	source  Source
	walker  *lineage.Walker
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewBuilder creates a builder. m and logger may be nil.
func NewBuilder(source Source, maxDepth int, m *metrics.Metrics, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{
		source:  source,
		walker:  lineage.NewWalker(source, maxDepth),
		metrics: m,
		logger:  logger,
	}
}

// Build emits one triple per human edit whose lineage is intact, in store order.
// Broken lineage is skipped and counted, never returned as an error.
func (b *Builder) Build(ctx context.Context) ([]models.PreferenceTriple, *Stats, error) {
	edits, err := b.source.Where(ctx, models.DocumentFilter{Status: models.StatusHumanEdited})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list human edits: %w", err)
	}
	stats := &Stats{HumanEdits: len(edits)}
	triples := make([]models.PreferenceTriple, 0, len(edits))

	for _, edit := range edits {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		parent, err := b.source.Get(ctx, edit.ParentID)
		if err != nil {
			if !errs.IsNotFound(err) && edit.ParentID != "" {
				return nil, nil, err
			}
			stats.SkippedMissingParent++
			b.logger.Debug("skipping edit: parent missing", zap.String("id", edit.ID), zap.String("parent_id", edit.ParentID))
			continue
		}
		root, err := b.walker.WalkToRoot(ctx, parent)
		switch {
		case err == nil:
		case errors.Is(err, lineage.ErrNoRoot):
			stats.SkippedNoRoot++
			b.logger.Debug("skipping edit: no root", zap.String("id", edit.ID), zap.Error(err))
			continue
		case errors.Is(err, errs.ErrCycleDetected):
			stats.SkippedCycle++
			b.logger.Warn("skipping edit: lineage cycle", zap.String("id", edit.ID), zap.Error(err))
			continue
		default:
			return nil, nil, err
		}
		triples = append(triples, models.PreferenceTriple{
			Prompt:   root.Text,
			Chosen:   edit.Text,
			Rejected: parent.Text,
		})
	}
	stats.Emitted = len(triples)

	b.metrics.SetDatasetSkipped(ReasonMissingParent, stats.SkippedMissingParent)
	b.metrics.SetDatasetSkipped(ReasonNoRoot, stats.SkippedNoRoot)
	b.metrics.SetDatasetSkipped(ReasonCycle, stats.SkippedCycle)
	b.logger.Info("preference dataset built",
		zap.Int("human_edits", stats.HumanEdits),
		zap.Int("emitted", stats.Emitted),
		zap.Int("skipped_missing_parent", stats.SkippedMissingParent),
		zap.Int("skipped_no_root", stats.SkippedNoRoot),
		zap.Int("skipped_cycle", stats.SkippedCycle),
	)
	return triples, stats, nil
}
