// Package pipeline drives a chapter through scrape, rewrite and review, storing
// each stage's output as a new version linked to the one before it.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/bookflow/internal/agent"
	"github.com/hyperjump/bookflow/internal/errs"
	"github.com/hyperjump/bookflow/internal/lineage"
	"github.com/hyperjump/bookflow/internal/metrics"
	"github.com/hyperjump/bookflow/internal/models"
	"github.com/hyperjump/bookflow/internal/scraper"
	"github.com/hyperjump/bookflow/pkg/utils"
)

// State is a pipeline state.
type State string

const (
	StateScraping           State = "scraping"
	StatePersistingRaw      State = "persisting_raw"
	StateSpinning           State = "spinning"
	StatePersistingSpun     State = "persisting_spun"
	StateReviewing          State = "reviewing"
	StatePersistingReviewed State = "persisting_reviewed"
	StateDone               State = "done"
	StateFailed             State = "failed"
)

// label is the stage name used in failure messages.
func (s State) label() string {
	switch s {
	case StateScraping:
		return "Scraping"
	case StatePersistingRaw:
		return "Saving raw version"
	case StateSpinning:
		return "AI spinning"
	case StatePersistingSpun:
		return "Saving spun version"
	case StateReviewing:
		return "AI reviewing"
	case StatePersistingReviewed:
		return "Saving reviewed version"
	}
	return string(s)
}

// StageError is a run failure attributed to the stage that produced it.
type StageError struct {
	Stage State
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage.label(), e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Store is the document persistence the pipeline needs.
type Store interface {
	Put(ctx context.Context, doc *models.VersionedDocument) error
	Get(ctx context.Context, id string) (*models.VersionedDocument, error)
}

// Writer rewrites a chapter.
type Writer interface {
	Spin(ctx context.Context, original string) agent.Result
}

// Reviewer refines a rewrite against its original.
type Reviewer interface {
	Review(ctx context.Context, original, spun string) agent.Result
}

// Config holds pipeline settings.
type Config struct {
	IDPrefix      string
	PreviewLength int
	EditorID      string
	ScrapeTimeout time.Duration
}

const (
	DefaultIDPrefix      = "chapter_1"
	DefaultPreviewLength = 150
	DefaultEditorID      = "human_01"
	DefaultScrapeTimeout = 90 * time.Second
)

func (c *Config) applyDefaults() {
	if c.IDPrefix == "" {
		c.IDPrefix = DefaultIDPrefix
	}
	if c.PreviewLength <= 0 {
		c.PreviewLength = DefaultPreviewLength
	}
	if c.EditorID == "" {
		c.EditorID = DefaultEditorID
	}
	if c.ScrapeTimeout <= 0 {
		c.ScrapeTimeout = DefaultScrapeTimeout
	}
}

// Outcome is returned by a completed run.
type Outcome struct {
	RawDocument      models.DocumentRef `json:"raw_document"`
	SpunDocument     models.DocumentRef `json:"spun_document"`
	ReviewedDocument models.DocumentRef `json:"reviewed_document"`
}

// Orchestrator runs the pipeline. At most one run per source URL is active.
type Orchestrator struct {
	cfg      Config
	scraper  scraper.Scraper
	writer   Writer
	reviewer Reviewer
	store    Store
	metrics  *metrics.Metrics
	logger   *zap.Logger

	mu      sync.Mutex
	running map[string]struct{}
}

// New creates an orchestrator. m and logger may be nil.
func New(cfg Config, s scraper.Scraper, w Writer, r Reviewer, store Store, m *metrics.Metrics, logger *zap.Logger) *Orchestrator {
	cfg.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		cfg:      cfg,
		scraper:  s,
		writer:   w,
		reviewer: r,
		store:    store,
		metrics:  m,
		logger:   logger,
		running:  make(map[string]struct{}),
	}
}

func (o *Orchestrator) acquire(source string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, busy := o.running[source]; busy {
		return false
	}
	o.running[source] = struct{}{}
	return true
}

func (o *Orchestrator) release(source string) {
	o.mu.Lock()
	delete(o.running, source)
	o.mu.Unlock()
}

// run holds the state of a single pipeline invocation.
type run struct {
	o       *Orchestrator
	logger  *zap.Logger
	state   State
	entered time.Time
}

func (r *run) enter(next State) {
	now := time.Now()
	if r.state != "" {
		r.o.metrics.ObserveStage(string(r.state), now.Sub(r.entered))
	}
	r.logger.Info("state transition", zap.String("from", string(r.state)), zap.String("to", string(next)))
	r.state = next
	r.entered = now
}

// fail moves the run to Failed and returns the error attributed to the current stage.
func (r *run) fail(err error) error {
	stage := r.state
	r.enter(StateFailed)
	r.logger.Error("pipeline failed", zap.String("stage", string(stage)), zap.Error(err))
	r.o.metrics.RunFinished(metrics.OutcomeFailed, string(stage))
	return &StageError{Stage: stage, Err: err}
}

// Run scrapes source, rewrites and reviews the text, and stores all three
// versions. A failure stops the run; documents stored before it are kept.
func (o *Orchestrator) Run(ctx context.Context, source string) (*Outcome, error) {
	if !o.acquire(source) {
		return nil, errs.RunInProgress(source)
	}
	defer o.release(source)

	r := &run{o: o, logger: o.logger.With(zap.String("run_id", uuid.NewString()), zap.String("source", source))}

	r.enter(StateScraping)
	scrapeCtx, cancel := context.WithTimeout(ctx, o.cfg.ScrapeTimeout)
	scraped := o.scraper.Scrape(scrapeCtx, source)
	timedOut := errors.Is(scrapeCtx.Err(), context.DeadlineExceeded)
	cancel()
	if timedOut && ctx.Err() == nil {
		return nil, r.fail(fmt.Errorf("no result within %s", o.cfg.ScrapeTimeout))
	}
	if !scraped.OK() {
		return nil, r.fail(errors.New(scraped.Error))
	}

	r.enter(StatePersistingRaw)
	raw := &models.VersionedDocument{
		ID:             o.newID("raw"),
		Text:           scraped.Text,
		Version:        0,
		Status:         models.StatusRaw,
		SourceURL:      scraped.SourceURL,
		ScreenshotPath: scraped.ScreenshotPath,
	}
	if raw.SourceURL == "" {
		raw.SourceURL = source
	}
	if err := o.store.Put(ctx, raw); err != nil {
		return nil, r.fail(err)
	}
	stored, err := o.store.Get(ctx, raw.ID)
	if err != nil {
		return nil, r.fail(err)
	}

	r.enter(StateSpinning)
	spin := o.writer.Spin(ctx, stored.Text)
	if !spin.OK() {
		return nil, r.fail(spin.Err)
	}

	r.enter(StatePersistingSpun)
	spun := o.child(stored, "spun", models.StatusSpun, spin.Text)
	spun.Model = spin.Model
	if err := o.store.Put(ctx, spun); err != nil {
		return nil, r.fail(err)
	}

	r.enter(StateReviewing)
	review := o.reviewer.Review(ctx, stored.Text, spun.Text)
	if !review.OK() {
		return nil, r.fail(review.Err)
	}

	r.enter(StatePersistingReviewed)
	reviewed := o.child(spun, "reviewed", models.StatusReviewed, review.Text)
	reviewed.Model = review.Model
	if err := o.store.Put(ctx, reviewed); err != nil {
		return nil, r.fail(err)
	}

	r.enter(StateDone)
	o.metrics.RunFinished(metrics.OutcomeDone, string(StateDone))
	r.logger.Info("pipeline completed",
		zap.String("raw_id", stored.ID),
		zap.String("spun_id", spun.ID),
		zap.String("reviewed_id", reviewed.ID),
	)
	return &Outcome{
		RawDocument:      o.ref(stored),
		SpunDocument:     o.ref(spun),
		ReviewedDocument: o.ref(reviewed),
	}, nil
}

// SubmitEdit stores text as a human edit of parentID. editor defaults to the
// configured editor id.
func (o *Orchestrator) SubmitEdit(ctx context.Context, parentID, text, editor string) (*models.VersionedDocument, error) {
	if parentID == "" {
		return nil, errs.Validation("parent_id is required")
	}
	if strings.TrimSpace(text) == "" {
		return nil, errs.Validation("new_text is required")
	}
	if editor == "" {
		editor = o.cfg.EditorID
	}
	o.logger.Info("received human edit", zap.String("parent_id", parentID))

	parent, err := o.store.Get(ctx, parentID)
	if err != nil {
		return nil, err
	}
	version := lineage.NextVersion(parent)
	doc := &models.VersionedDocument{
		ID:       o.newID(fmt.Sprintf("human_v%d", version)),
		Text:     text,
		Version:  version,
		Status:   models.StatusHumanEdited,
		ParentID: parent.ID,
		Editor:   editor,
	}
	if err := o.store.Put(ctx, doc); err != nil {
		return nil, err
	}
	o.logger.Info("human edit saved", zap.String("id", doc.ID), zap.Int("version", version))
	return doc, nil
}

func (o *Orchestrator) child(parent *models.VersionedDocument, stage string, status models.Status, text string) *models.VersionedDocument {
	return &models.VersionedDocument{
		ID:       o.newID(stage),
		Text:     text,
		Version:  lineage.NextVersion(parent),
		Status:   status,
		ParentID: parent.ID,
	}
}

func (o *Orchestrator) newID(stage string) string {
	return fmt.Sprintf("%s_%s_%s", o.cfg.IDPrefix, stage, uuid.New())
}

func (o *Orchestrator) ref(doc *models.VersionedDocument) models.DocumentRef {
	return models.DocumentRef{ID: doc.ID, Preview: utils.Truncate(doc.Text, o.cfg.PreviewLength)}
}
