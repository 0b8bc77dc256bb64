package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/hyperjump/bookflow/internal/dataset"
	"github.com/hyperjump/bookflow/internal/models"
	"github.com/hyperjump/bookflow/internal/pipeline"
)

func sampleHits() []*models.SearchHit {
	return []*models.SearchHit{
		{
			ID:       "chapter_1_reviewed_v2_abc",
			Distance: 0.125,
			Metadata: map[string]interface{}{"status": "reviewed_ai", "version": 2, "parent_id": "chapter_1_spun_v1_abc"},
			Document: "The sea was calm\nthat morning.",
		},
		{
			ID:       "chapter_1_raw_v0_abc",
			Distance: 0.5,
			Metadata: map[string]interface{}{"status": "raw", "version": 0},
			Document: "Original text",
		},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"text", OutputText, false},
		{"JSON", OutputJSON, false},
		{" compact ", OutputCompact, false},
		{"", OutputText, false},
		{"yaml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestWriteSearchHits_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSearchHits(&buf, "calm sea", sampleHits(), OutputJSON); err != nil {
		t.Fatalf("WriteSearchHits(json): %v", err)
	}
	var decoded searchOutput
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if decoded.Query != "calm sea" || len(decoded.Results) != 2 {
		t.Fatalf("decoded = %+v", decoded)
	}
	if decoded.Results[0].ID != "chapter_1_reviewed_v2_abc" || decoded.Results[0].Distance != 0.125 {
		t.Errorf("first result = %+v", decoded.Results[0])
	}
}

func TestWriteSearchHits_JSON_empty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSearchHits(&buf, "nothing", nil, OutputJSON); err != nil {
		t.Fatalf("WriteSearchHits: %v", err)
	}
	if !strings.Contains(buf.String(), `"results": []`) {
		t.Errorf("empty results should encode as [], got:\n%s", buf.String())
	}
}

func TestWriteSearchHits_text(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSearchHits(&buf, "calm sea", sampleHits(), OutputText); err != nil {
		t.Fatalf("WriteSearchHits: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		`Found 2 results for "calm sea"`,
		"Rank: 1 | Distance: 0.1250",
		"ID: chapter_1_reviewed_v2_abc",
		"Status: reviewed_ai | Version: 2",
		"Parent: chapter_1_spun_v1_abc",
		"Rank: 2 | Distance: 0.5000",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("text output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteSearchHits_textEmpty(t *testing.T) {
	var buf bytes.Buffer
	_ = WriteSearchHits(&buf, "q", nil, OutputText)
	if strings.TrimSpace(buf.String()) != "No relevant documents found." {
		t.Errorf("got %q", buf.String())
	}
}

func TestWriteSearchHits_compact(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSearchHits(&buf, "q", sampleHits(), OutputCompact); err != nil {
		t.Fatalf("WriteSearchHits: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("want 2 lines, got %d: %q", len(lines), buf.String())
	}
	want := "0.1250\tchapter_1_reviewed_v2_abc\treviewed_ai\tThe sea was calm that morning."
	if lines[0] != want {
		t.Errorf("line 0 = %q, want %q", lines[0], want)
	}
}

func TestWriteOutcome(t *testing.T) {
	out := &pipeline.Outcome{
		RawDocument:      models.DocumentRef{ID: "r1", Preview: "raw preview..."},
		SpunDocument:     models.DocumentRef{ID: "s1", Preview: "spun preview"},
		ReviewedDocument: models.DocumentRef{ID: "v1", Preview: "reviewed preview"},
	}

	var text bytes.Buffer
	if err := WriteOutcome(&text, out, OutputText); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Chapter processed and reviewed successfully!", "[raw] r1", "[spun] s1", "[reviewed] v1", "raw preview..."} {
		if !strings.Contains(text.String(), want) {
			t.Errorf("text output missing %q:\n%s", want, text.String())
		}
	}

	var compact bytes.Buffer
	_ = WriteOutcome(&compact, out, OutputCompact)
	if compact.String() != "raw\tr1\nspun\ts1\nreviewed\tv1\n" {
		t.Errorf("compact = %q", compact.String())
	}

	var js bytes.Buffer
	_ = WriteOutcome(&js, out, OutputJSON)
	var decoded pipeline.Outcome
	if err := json.Unmarshal(js.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if decoded != *out {
		t.Errorf("decoded = %+v, want %+v", decoded, *out)
	}
}

func TestWriteDataset(t *testing.T) {
	triples := []models.PreferenceTriple{
		{Prompt: "raw one", Chosen: "human one", Rejected: "ai one"},
		{Prompt: "raw two", Chosen: "human two", Rejected: "ai two"},
	}
	stats := &dataset.Stats{HumanEdits: 3, Emitted: 2, SkippedMissingParent: 1}

	var jsonl bytes.Buffer
	if err := WriteDataset(&jsonl, triples, stats, OutputCompact); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(jsonl.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("want 2 JSONL lines, got %q", jsonl.String())
	}
	var first models.PreferenceTriple
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil || first != triples[0] {
		t.Errorf("line 0 = %q (err %v)", lines[0], err)
	}

	var text bytes.Buffer
	_ = WriteDataset(&text, triples, stats, OutputText)
	for _, want := range []string{"human_edits:            3", "skipped_missing_parent: 1", "#2", "chosen:   human two"} {
		if !strings.Contains(text.String(), want) {
			t.Errorf("text output missing %q:\n%s", want, text.String())
		}
	}

	var empty bytes.Buffer
	_ = WriteDataset(&empty, nil, &dataset.Stats{}, OutputText)
	if !strings.Contains(empty.String(), "No human edits found to create a dataset.") {
		t.Errorf("empty text = %q", empty.String())
	}
}
