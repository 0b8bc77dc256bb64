// Package docstore is the typed façade over document persistence, the vector index
// and the keyword index. Every document version written by the pipeline, the
// editor endpoint or the CLI goes through Put, which enforces lineage invariants
// before anything is stored.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/bookflow/internal/embedding"
	"github.com/hyperjump/bookflow/internal/errs"
	"github.com/hyperjump/bookflow/internal/keyword"
	"github.com/hyperjump/bookflow/internal/lineage"
	"github.com/hyperjump/bookflow/internal/models"
	"github.com/hyperjump/bookflow/internal/storage"
	"github.com/hyperjump/bookflow/internal/vector"
)

const rebuildPageSize = 200

// Store persists document versions and keeps the search indices in step.
type Store struct {
	storage      storage.Storage
	embedder     embedding.Embedder
	vectorIndex  vector.VectorIndex
	keywordIndex keyword.KeywordIndex
	diskPaths    map[string]string
	logger       *zap.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// New creates a store over the given components. keywordIndex may be nil, in
// which case KeywordQuery returns no results.
func New(
	storage storage.Storage,
	embedder embedding.Embedder,
	vectorIndex vector.VectorIndex,
	keywordIndex keyword.KeywordIndex,
	opts ...Option,
) *Store {
	s := &Store{
		storage:      storage,
		embedder:     embedder,
		vectorIndex:  vectorIndex,
		keywordIndex: keywordIndex,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if ms, ok := vectorIndex.(interface{ SetModel(string) }); ok {
		ms.SetModel(embedder.Name())
	}
	return s
}

// Put validates doc against its parent, stores it, and indexes its text.
// Index failures after the write are logged, not returned: the document of
// record exists and Rebuild reconciles the indices on the next start.
func (s *Store) Put(ctx context.Context, doc *models.VersionedDocument) error {
	if err := s.validate(ctx, doc); err != nil {
		return err
	}
	if err := s.storage.CreateDocument(ctx, doc); err != nil {
		return fmt.Errorf("failed to store document: %w", err)
	}
	if err := s.index(ctx, doc); err != nil {
		s.logger.Warn("document stored but not indexed", zap.String("id", doc.ID), zap.Error(err))
	}
	s.logger.Info("document stored",
		zap.String("id", doc.ID),
		zap.String("status", string(doc.Status)),
		zap.Int("version", doc.Version),
		zap.String("parent_id", doc.ParentID),
	)
	return nil
}

func (s *Store) validate(ctx context.Context, doc *models.VersionedDocument) error {
	if doc.ID == "" {
		return errs.Validation("document id is required")
	}
	if !doc.Status.Valid() {
		return errs.Validation(fmt.Sprintf("document '%s' has unknown status %q", doc.ID, doc.Status))
	}
	if strings.TrimSpace(doc.Text) == "" {
		return errs.Validation(fmt.Sprintf("document '%s' has no text", doc.ID))
	}
	if doc.ParentID == "" {
		return lineage.CheckRoot(doc)
	}
	parent, err := s.storage.GetDocument(ctx, doc.ParentID)
	if err != nil {
		return err
	}
	return lineage.CheckChild(parent, doc)
}

func (s *Store) index(ctx context.Context, doc *models.VersionedDocument) error {
	emb, err := s.embedder.Embed(ctx, doc.Text)
	if err != nil {
		return fmt.Errorf("failed to generate embedding: %w", err)
	}
	if err := s.vectorIndex.Add(ctx, []string{doc.ID}, [][]float32{emb}); err != nil {
		return fmt.Errorf("failed to index vector: %w", err)
	}
	if s.keywordIndex != nil {
		if err := s.keywordIndex.Index(ctx, doc); err != nil {
			return fmt.Errorf("failed to index keywords: %w", err)
		}
	}
	return nil
}

// Get returns the document with id or an errs.ErrNotFound error.
func (s *Store) Get(ctx context.Context, id string) (*models.VersionedDocument, error) {
	return s.storage.GetDocument(ctx, id)
}

// Where returns all documents matching filter in store order.
func (s *Store) Where(ctx context.Context, filter models.DocumentFilter) ([]*models.VersionedDocument, error) {
	return s.storage.FindDocuments(ctx, filter)
}

// Query returns up to k documents nearest to text, closest first.
func (s *Store) Query(ctx context.Context, text string, k int) ([]*models.SearchHit, error) {
	emb, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding failed: %w", err)
	}
	results, err := s.vectorIndex.Search(ctx, emb, k)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	hits := make([]*models.SearchHit, 0, len(results))
	for _, r := range results {
		doc, err := s.storage.GetDocument(ctx, r.ID)
		if err != nil {
			s.logger.Debug("vector hit without document", zap.String("id", r.ID), zap.Error(err))
			continue
		}
		hits = append(hits, toHit(doc, r.Distance()))
	}
	s.logger.Debug("semantic search", zap.String("query", text), zap.Int("results", len(hits)))
	return hits, nil
}

// KeywordQuery returns up to k documents matching text by full-text search.
// Distance is 1 - score/topScore, so the best hit is 0.
func (s *Store) KeywordQuery(ctx context.Context, text string, k int, opts *keyword.SearchOptions) ([]*models.SearchHit, error) {
	if s.keywordIndex == nil {
		return nil, nil
	}
	results, err := s.keywordIndex.Search(ctx, text, k, opts)
	if err != nil {
		return nil, err
	}
	hits := make([]*models.SearchHit, 0, len(results))
	for _, r := range results {
		doc, err := s.storage.GetDocument(ctx, r.ID)
		if err != nil {
			continue
		}
		distance := 0.0
		if top := results[0].Score; top > 0 {
			distance = 1 - r.Score/top
		}
		hits = append(hits, toHit(doc, distance))
	}
	return hits, nil
}

func toHit(doc *models.VersionedDocument, distance float64) *models.SearchHit {
	return &models.SearchHit{
		ID:       doc.ID,
		Distance: distance,
		Metadata: doc.Metadata(),
		Document: doc.Text,
	}
}

// Stats summarizes the store contents.
type Stats struct {
	Documents       int64                   `json:"documents"`
	ByStatus        map[models.Status]int64 `json:"by_status"`
	VectorIndexSize int                     `json:"vector_index_size"`
	EmbeddingModel  string                  `json:"embedding_model"`
	// DiskUsage is bytes per part; empty unless WithDiskPaths was given.
	DiskUsage      map[string]int64 `json:"disk_usage,omitempty"`
	DiskUsageBytes int64            `json:"disk_usage_bytes"`
}

// Stats returns document counts and index sizes.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	total, err := s.storage.CountDocuments(ctx)
	if err != nil {
		return nil, err
	}
	byStatus, err := s.storage.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	parts, diskTotal := s.diskUsage()
	return &Stats{
		Documents:       total,
		ByStatus:        byStatus,
		VectorIndexSize: s.vectorIndex.Size(),
		EmbeddingModel:  s.embedder.Name(),
		DiskUsage:       parts,
		DiskUsageBytes:  diskTotal,
	}, nil
}

// LoadIndex restores the vector index from path. A stale or unreadable file is
// logged and ignored; Rebuild re-embeds whatever is missing.
func (s *Store) LoadIndex(path string) {
	if path == "" {
		return
	}
	if err := s.vectorIndex.Load(path); err != nil {
		level := s.logger.Warn
		if errors.Is(err, vector.ErrStaleIndex) {
			level = s.logger.Info
		}
		level("vector index load skipped, rebuilding", zap.String("path", path), zap.Error(err))
	}
}

// SaveIndex persists the vector index to path.
func (s *Store) SaveIndex(path string) error {
	return s.vectorIndex.Save(path)
}

// Rebuild indexes every stored document missing from the vector or keyword index.
// It returns the number of documents (re)indexed.
func (s *Store) Rebuild(ctx context.Context) (int, error) {
	indexed := 0
	for offset := 0; ; offset += rebuildPageSize {
		docs, err := s.storage.ListDocuments(ctx, offset, rebuildPageSize)
		if err != nil {
			return indexed, fmt.Errorf("failed to list documents: %w", err)
		}
		for _, doc := range docs {
			missing, err := s.missingFromIndex(doc.ID)
			if err != nil {
				return indexed, err
			}
			if !missing {
				continue
			}
			if err := s.index(ctx, doc); err != nil {
				return indexed, fmt.Errorf("failed to index %s: %w", doc.ID, err)
			}
			indexed++
		}
		if len(docs) < rebuildPageSize {
			break
		}
	}
	if indexed > 0 {
		s.logger.Info("indices rebuilt", zap.Int("documents", indexed))
	}
	return indexed, nil
}

func (s *Store) missingFromIndex(id string) (bool, error) {
	if !s.vectorIndex.Contains(id) {
		return true, nil
	}
	if s.keywordIndex == nil {
		return false, nil
	}
	ok, err := s.keywordIndex.Contains(id)
	if err != nil {
		return false, fmt.Errorf("keyword index lookup failed: %w", err)
	}
	return !ok, nil
}

// Close releases the underlying components.
func (s *Store) Close() error {
	var errList []error
	if s.keywordIndex != nil {
		errList = append(errList, s.keywordIndex.Close())
	}
	errList = append(errList, s.vectorIndex.Close(), s.embedder.Close(), s.storage.Close())
	return errors.Join(errList...)
}
