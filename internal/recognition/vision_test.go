package recognition

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

func TestVisionBatchesPagesInOrder(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		if r.URL.Query().Get("key") != "test-key" {
			t.Errorf("expected api key in query, got %q", r.URL.RawQuery)
		}
		var req visionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		fileReq := req.Requests[0]
		if fileReq.Features[0].Type != "DOCUMENT_TEXT_DETECTION" || fileReq.InputConfig.MimeType != "application/pdf" {
			t.Errorf("unexpected request: %+v", fileReq.Features)
		}
		if len(fileReq.Pages) > visionPagesPerRequest {
			t.Errorf("batch too large: %v", fileReq.Pages)
		}

		pages := make([]map[string]any, 0, len(fileReq.Pages))
		for _, p := range fileReq.Pages {
			pages = append(pages, map[string]any{
				"fullTextAnnotation": map[string]any{"text": fmt.Sprintf("text %d", p)},
			})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"responses": []any{map[string]any{"responses": pages, "totalPages": 7}},
		})
	}))
	defer srv.Close()

	v, err := NewVision(context.Background(), "test-key", WithEndpoint(srv.URL), WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("NewVision: %v", err)
	}

	data := buildPDF(t, "1", "2", "3", "4", "5", "6", "7")
	text, err := v.Recognize(context.Background(), data)
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if requests.Load() != 2 {
		t.Fatalf("expected 2 batch requests, got %d", requests.Load())
	}
	for i := 1; i <= 7; i++ {
		want := fmt.Sprintf("### Page %d\ntext %d\n", i, i)
		if !strings.Contains(text, want) {
			t.Fatalf("missing %q in output:\n%s", want, text)
		}
	}
	if strings.Index(text, "### Page 6") < strings.Index(text, "### Page 5") {
		t.Fatalf("pages out of order:\n%s", text)
	}
}

func TestVisionSurfacesServerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":503,"message":"unavailable"}}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	v, err := NewVision(context.Background(), "k", WithEndpoint(srv.URL), WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("NewVision: %v", err)
	}
	_, err = v.Recognize(context.Background(), buildPDF(t, "1"))
	if err == nil || !strings.Contains(err.Error(), "http status 503") {
		t.Fatalf("expected 503 error, got %v", err)
	}
}

func TestVisionRejectsNonPDF(t *testing.T) {
	v, err := NewVision(context.Background(), "k", WithHTTPClient(http.DefaultClient))
	if err != nil {
		t.Fatalf("NewVision: %v", err)
	}
	if _, err := v.Recognize(context.Background(), []byte("plain text")); err == nil {
		t.Fatal("expected error for non-pdf payload")
	}
}
