package bootstrap_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-pdf/fpdf"

	"coi-backend/internal/bootstrap"
	"coi-backend/internal/documents"
	"coi-backend/internal/llm"
	"coi-backend/internal/recognition"
	"coi-backend/internal/shared/config"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	return config.Config{
		Port:                "0",
		Env:                 "dev",
		CORSAllowOrigin:     []string{"http://localhost:5173"},
		ArtifactStoreType:   "local",
		ArtifactDir:         filepath.Join(dir, "extracted_json"),
		CatalogBackend:      "file",
		CatalogPath:         filepath.Join(dir, "documents.json"),
		AllowReopenVerified: true,
		MaxUploadMB:         5,
		UploadRatePerMin:    2,
		CertificateIssuer:   "Acme Realty",
	}
}

func scannedPDF(t *testing.T) []byte {
	t.Helper()
	doc := fpdf.New("P", "mm", "Letter", "")
	doc.SetFont("Helvetica", "", 12)
	doc.AddPage()
	doc.Cell(40, 10, "Foo Corp")
	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		t.Fatalf("build pdf: %v", err)
	}
	return buf.Bytes()
}

func uploadRequest(t *testing.T, name string, data []byte) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	fw, err := writer.CreateFormFile("file", name)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write(data); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := writer.WriteField("tenant_code", "T100"); err != nil {
		t.Fatalf("write field: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func buildApp(t *testing.T) *bootstrap.App {
	t.Helper()
	gin.SetMode(gin.TestMode)
	app, err := bootstrap.Build(testConfig(t),
		bootstrap.WithRecognizer(recognition.Func(func(ctx context.Context, data []byte) (string, error) {
			return "### Page 1\nFoo Corp", nil
		})),
		bootstrap.WithExtractor(llm.Func(func(ctx context.Context, instruction, text string) (string, error) {
			return `{"insured":{"name":"Foo Corp"}}`, nil
		})),
	)
	if err != nil {
		t.Fatalf("bootstrap build: %v", err)
	}
	t.Cleanup(func() { _ = app.Close() })
	return app
}

func TestBuildServesUploadFlow(t *testing.T) {
	app := buildApp(t)

	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, uploadRequest(t, "claim1.pdf", scannedPDF(t)))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	resp = httptest.NewRecorder()
	app.Router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/get_documents", nil))
	var docs []struct {
		Filename   string `json:"filename"`
		TenantCode string `json:"tenant_code"`
		Status     string `json:"status"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &docs); err != nil {
		t.Fatalf("decode documents: %v", err)
	}
	if len(docs) != 1 || docs[0].Filename != "claim1.json" || docs[0].TenantCode != "T100" || docs[0].Status != "uploaded" {
		t.Fatalf("unexpected documents %+v", docs)
	}
}

func TestBuildRejectsNonPDFUpload(t *testing.T) {
	app := buildApp(t)

	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, uploadRequest(t, "notes.txt", []byte("plain text")))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestBuildRateLimitsUploads(t *testing.T) {
	app := buildApp(t)

	codes := make([]int, 0, 3)
	for _, name := range []string{"a.pdf", "b.pdf", "c.pdf"} {
		resp := httptest.NewRecorder()
		app.Router.ServeHTTP(resp, uploadRequest(t, name, scannedPDF(t)))
		codes = append(codes, resp.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("unexpected status sequence %v", codes)
	}

	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/get_processed_files", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("reads should not be rate limited, got %d", resp.Code)
	}
}

func TestBuildRejectsMissingQuestionsFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.QuestionsPath = filepath.Join(t.TempDir(), "missing.txt")
	if _, err := bootstrap.Build(cfg, bootstrap.WithExtractor(llm.Unconfigured{}), bootstrap.WithRecognizer(recognition.NewPDFText())); err == nil {
		t.Fatal("expected error for missing questions file")
	}
}

func TestBuildUsesInjectedCatalog(t *testing.T) {
	gin.SetMode(gin.TestMode)
	catalog := documents.NewMemoryCatalog()
	app, err := bootstrap.Build(testConfig(t),
		bootstrap.WithCatalog(catalog),
		bootstrap.WithRecognizer(recognition.Func(func(ctx context.Context, data []byte) (string, error) {
			return "### Page 1\nFoo Corp", nil
		})),
		bootstrap.WithExtractor(llm.Func(func(ctx context.Context, instruction, text string) (string, error) {
			return `{"insured":{"name":"Foo Corp"}}`, nil
		})),
	)
	if err != nil {
		t.Fatalf("bootstrap build: %v", err)
	}
	t.Cleanup(func() { _ = app.Close() })

	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, uploadRequest(t, "claim2.pdf", scannedPDF(t)))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	rec, err := catalog.Get(context.Background(), "claim2.json")
	if err != nil {
		t.Fatalf("expected record in injected catalog: %v", err)
	}
	if rec.Status != documents.StatusUploaded {
		t.Fatalf("expected uploaded status, got %s", rec.Status)
	}
}
