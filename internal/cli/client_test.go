package cli

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClient_Search(t *testing.T) {
	var gotPath, gotQuery, gotLimit string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query().Get("q")
		gotLimit = r.URL.Query().Get("limit")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"results": []map[string]interface{}{
				{"id": "d1", "distance": 0.2, "metadata": map[string]interface{}{"status": "raw"}, "document": "text"},
			},
		})
	}))
	defer srv.Close()

	hits, err := NewClient(srv.URL+"/", nil).Search(context.Background(), "the sea", 4)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if gotPath != "/search" || gotQuery != "the sea" || gotLimit != "4" {
		t.Errorf("request path=%q q=%q limit=%q", gotPath, gotQuery, gotLimit)
	}
	if len(hits) != 1 || hits[0].ID != "d1" || hits[0].Distance != 0.2 {
		t.Errorf("hits = %+v", hits)
	}
}

func TestClient_SearchNoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "No relevant documents found."})
	}))
	defer srv.Close()

	hits, err := NewClient(srv.URL, nil).KeywordSearch(context.Background(), "x", 0, "human_edited")
	if err != nil {
		t.Fatalf("KeywordSearch: %v", err)
	}
	if hits == nil || len(hits) != 0 {
		t.Errorf("want empty non-nil slice, got %#v", hits)
	}
}

func TestClient_ErrorDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"detail": "AI spinning failed: boom"})
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, nil).Process(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("want *APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusInternalServerError || apiErr.Detail != "AI spinning failed: boom" {
		t.Errorf("apiErr = %+v", apiErr)
	}
}

func TestClient_ProcessAndEdit(t *testing.T) {
	var editBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/process-chapter":
			if r.Method != http.MethodPost {
				t.Errorf("process method = %s", r.Method)
			}
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"message":           "Chapter processed and reviewed successfully!",
				"raw_document":      map[string]string{"id": "r", "preview": "p"},
				"spun_document":     map[string]string{"id": "s", "preview": "p"},
				"reviewed_document": map[string]string{"id": "v", "preview": "p"},
			})
		case "/edit-chapter":
			_ = json.NewDecoder(r.Body).Decode(&editBody)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"message":            "Human edit saved successfully!",
				"new_document_id":    "h1",
				"parent_document_id": editBody["parent_id"],
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil)
	out, err := c.Process(context.Background())
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if out.RawDocument.ID != "r" || out.ReviewedDocument.ID != "v" {
		t.Errorf("outcome = %+v", out)
	}

	id, err := c.Edit(context.Background(), "v", "better text", "")
	if err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if id != "h1" {
		t.Errorf("new id = %q", id)
	}
	if editBody["parent_id"] != "v" || editBody["new_text"] != "better text" {
		t.Errorf("edit body = %v", editBody)
	}
	if _, ok := editBody["editor"]; ok {
		t.Error("empty editor should be omitted")
	}
}

func TestClient_Dataset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"preference_dataset": []map[string]string{{"prompt": "p", "chosen": "c", "rejected": "r"}},
			"stats":              map[string]int{"human_edits": 1, "emitted": 1},
		})
	}))
	defer srv.Close()

	triples, stats, err := NewClient(srv.URL, nil).Dataset(context.Background())
	if err != nil {
		t.Fatalf("Dataset: %v", err)
	}
	if len(triples) != 1 || triples[0].Chosen != "c" {
		t.Errorf("triples = %+v", triples)
	}
	if stats == nil || stats.HumanEdits != 1 || stats.Emitted != 1 {
		t.Errorf("stats = %+v", stats)
	}
}
