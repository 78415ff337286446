package documents

import (
	"context"
	"errors"
	"testing"
	"time"

	"coi-backend/internal/llm"
	"coi-backend/internal/prompt"
	"coi-backend/internal/recognition"
	"coi-backend/internal/shared/storage/object"
	"coi-backend/internal/shared/storage/object/local"
)

type testEnv struct {
	store    *local.Store
	catalog  *FileCatalog
	pipeline *Orchestrator
	review   *Workflow

	recognized []byte
	ocrText    string
	ocrErr     error
	llmOutput  string
	llmErr     error
	llmCalls   int
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store, err := local.New(t.TempDir())
	if err != nil {
		t.Fatalf("local.New: %v", err)
	}
	env := &testEnv{
		store:     store,
		catalog:   NewFileCatalog(t.TempDir() + "/documents.json"),
		ocrText:   "### Page 1\nFoo Corp",
		llmOutput: `{"insured":{"name":"Foo Corp"}}`,
	}
	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	env.pipeline = &Orchestrator{
		Recognizer: recognition.Func(func(ctx context.Context, data []byte) (string, error) {
			env.recognized = data
			return env.ocrText, env.ocrErr
		}),
		Prompt: prompt.Default(),
		Extractor: llm.Func(func(ctx context.Context, instruction, text string) (string, error) {
			env.llmCalls++
			return env.llmOutput, env.llmErr
		}),
		Artifacts: store,
		Catalog:   env.catalog,
		Now: func() time.Time {
			clock = clock.Add(time.Minute)
			return clock
		},
	}
	env.review = &Workflow{Artifacts: store, Catalog: env.catalog, AllowReopenVerified: true}
	return env
}

func (e *testEnv) artifactExists(t *testing.T, name string) bool {
	t.Helper()
	ok, err := e.store.Exists(context.Background(), name)
	if err != nil {
		t.Fatalf("Exists(%s): %v", name, err)
	}
	return ok
}

func (e *testEnv) record(t *testing.T, name string) (Record, bool) {
	t.Helper()
	rec, err := e.catalog.Get(context.Background(), name)
	if errors.Is(err, ErrNotFound) {
		return Record{}, false
	}
	if err != nil {
		t.Fatalf("Get(%s): %v", name, err)
	}
	return rec, true
}

// failingStore fails every write.
type failingStore struct {
	object.ArtifactStore
}

func (failingStore) Put(ctx context.Context, name string, data []byte) error {
	return errors.New("disk full")
}
