package dataset

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/hyperjump/bookflow/internal/errs"
	"github.com/hyperjump/bookflow/internal/metrics"
	"github.com/hyperjump/bookflow/internal/models"
)

// memSource keeps documents in insertion order and, unlike the real store,
// accepts broken lineage.
type memSource struct {
	order []string
	docs  map[string]*models.VersionedDocument
}

func newMemSource(docs ...*models.VersionedDocument) *memSource {
	s := &memSource{docs: make(map[string]*models.VersionedDocument)}
	for _, d := range docs {
		s.order = append(s.order, d.ID)
		s.docs[d.ID] = d
	}
	return s
}

func (s *memSource) Get(ctx context.Context, id string) (*models.VersionedDocument, error) {
	d, ok := s.docs[id]
	if !ok {
		return nil, errs.NotFound("document", id)
	}
	return d, nil
}

func (s *memSource) Where(ctx context.Context, f models.DocumentFilter) ([]*models.VersionedDocument, error) {
	var out []*models.VersionedDocument
	for _, id := range s.order {
		if f.Matches(s.docs[id]) {
			out = append(out, s.docs[id])
		}
	}
	return out, nil
}

func doc(id string, status models.Status, version int, parent, text string) *models.VersionedDocument {
	return &models.VersionedDocument{ID: id, Status: status, Version: version, ParentID: parent, Text: text}
}

func TestBuild_EmitsTriple(t *testing.T) {
	src := newMemSource(
		doc("R", models.StatusRaw, 0, "", "raw text"),
		doc("S", models.StatusSpun, 1, "R", "spun text"),
		doc("H", models.StatusHumanEdited, 2, "S", "human text"),
	)
	triples, stats, err := NewBuilder(src, 0, nil, nil).Build(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	want := models.PreferenceTriple{Prompt: "raw text", Chosen: "human text", Rejected: "spun text"}
	if len(triples) != 1 || triples[0] != want {
		t.Fatalf("triples = %+v, want [%+v]", triples, want)
	}
	if stats.HumanEdits != 1 || stats.Emitted != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestBuild_EditOfRaw(t *testing.T) {
	src := newMemSource(
		doc("R", models.StatusRaw, 0, "", "raw text"),
		doc("H", models.StatusHumanEdited, 1, "R", "human text"),
	)
	triples, _, err := NewBuilder(src, 0, nil, nil).Build(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(triples) != 1 || triples[0].Prompt != "raw text" || triples[0].Rejected != "raw text" {
		t.Fatalf("triples = %+v", triples)
	}
}

func TestBuild_SkipsBrokenLineage(t *testing.T) {
	src := newMemSource(
		doc("R", models.StatusRaw, 0, "", "raw"),
		doc("S", models.StatusSpun, 1, "R", "spun"),
		// parent missing
		doc("H1", models.StatusHumanEdited, 2, "gone", "edit 1"),
		// parent present, grandparent missing
		doc("S2", models.StatusSpun, 1, "gone-raw", "orphan spun"),
		doc("H2", models.StatusHumanEdited, 2, "S2", "edit 2"),
		// cycle between A and B
		doc("A", models.StatusReviewed, 2, "B", "a"),
		doc("B", models.StatusSpun, 1, "A", "b"),
		doc("H3", models.StatusHumanEdited, 3, "A", "edit 3"),
		// intact
		doc("H4", models.StatusHumanEdited, 2, "S", "edit 4"),
	)
	m := metrics.New()
	triples, stats, err := NewBuilder(src, 0, m, nil).Build(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(triples) != 1 || triples[0].Chosen != "edit 4" {
		t.Fatalf("triples = %+v", triples)
	}
	want := Stats{HumanEdits: 4, Emitted: 1, SkippedMissingParent: 1, SkippedNoRoot: 1, SkippedCycle: 1}
	if *stats != want {
		t.Errorf("stats = %+v, want %+v", *stats, want)
	}
	if got := testutil.ToFloat64(m.DatasetSkipped.WithLabelValues(ReasonNoRoot)); got != 1 {
		t.Errorf("no_root gauge = %v", got)
	}
}

func TestBuild_Empty(t *testing.T) {
	src := newMemSource(doc("R", models.StatusRaw, 0, "", "raw"))
	triples, stats, err := NewBuilder(src, 0, nil, nil).Build(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(triples) != 0 || stats.HumanEdits != 0 {
		t.Errorf("expected empty dataset, got %+v %+v", triples, stats)
	}
}

func TestBuild_OrderFollowsStore(t *testing.T) {
	src := newMemSource(
		doc("R", models.StatusRaw, 0, "", "raw"),
		doc("H2", models.StatusHumanEdited, 1, "R", "second"),
		doc("H1", models.StatusHumanEdited, 1, "R", "first"),
	)
	triples, _, err := NewBuilder(src, 0, nil, nil).Build(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(triples) != 2 || triples[0].Chosen != "second" || triples[1].Chosen != "first" {
		t.Errorf("unexpected order %+v", triples)
	}
}
