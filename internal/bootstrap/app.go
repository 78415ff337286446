package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/gin-gonic/gin"

	"coi-backend/internal/documents"
	"coi-backend/internal/llm"
	openai "coi-backend/internal/llm/openai"
	"coi-backend/internal/llm/vertex"
	"coi-backend/internal/prompt"
	"coi-backend/internal/recognition"
	"coi-backend/internal/shared/config"
	"coi-backend/internal/shared/retry"
	"coi-backend/internal/shared/server"
	"coi-backend/internal/shared/storage/db"
	"coi-backend/internal/shared/storage/object"
	gcsstore "coi-backend/internal/shared/storage/object/gcs"
	localstore "coi-backend/internal/shared/storage/object/local"
	s3store "coi-backend/internal/shared/storage/object/s3"
)

// App holds shared dependencies.
type App struct {
	Config     config.Config
	Router     *gin.Engine
	DB         *sql.DB
	Artifacts  object.ArtifactStore
	Catalog    documents.Catalog
	Recognizer recognition.Recognizer
	Extractor  llm.Extractor
	Prompt     *prompt.Assembler
	Pipeline   *documents.Orchestrator
	Review     *documents.Workflow
	Handler    *documents.Handler

	closers []func() error
}

// Option overrides a dependency, mainly for tests.
type Option func(*overrides)

type overrides struct {
	recognizer recognition.Recognizer
	extractor  llm.Extractor
	catalog    documents.Catalog
}

// WithRecognizer replaces the configured recognition backend.
func WithRecognizer(r recognition.Recognizer) Option {
	return func(o *overrides) { o.recognizer = r }
}

// WithExtractor replaces the configured language-model backend.
func WithExtractor(e llm.Extractor) Option {
	return func(o *overrides) { o.extractor = e }
}

// WithCatalog replaces the configured catalog backend.
func WithCatalog(c documents.Catalog) Option {
	return func(o *overrides) { o.catalog = c }
}

// Build prepares all dependencies and the router.
func Build(cfg config.Config, opts ...Option) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ArtifactStoreType) == "" {
		cfg.ArtifactStoreType = "local"
	}
	if strings.TrimSpace(cfg.CatalogBackend) == "" {
		cfg.CatalogBackend = "file"
	}
	var o overrides
	for _, opt := range opts {
		opt(&o)
	}
	ctx := context.Background()
	app := &App{Config: cfg}

	questions, err := prompt.Load(cfg.QuestionsPath)
	if err != nil {
		return nil, err
	}
	app.Prompt = questions
	log.Printf("bootstrap: prompt loaded from %s", questions.Source())

	if app.Artifacts, err = app.buildArtifacts(ctx); err != nil {
		app.Close()
		return nil, err
	}

	app.Catalog = o.catalog
	if app.Catalog == nil {
		if app.Catalog, err = app.buildCatalog(ctx); err != nil {
			app.Close()
			return nil, err
		}
	}

	policy := retry.Policy{
		Timeout:     cfg.BackendTimeout,
		MaxAttempts: cfg.BackendMaxAttempts,
		Base:        cfg.BackendRetryBase,
	}

	base := o.recognizer
	if base == nil {
		if base, err = app.buildRecognizer(ctx); err != nil {
			app.Close()
			return nil, err
		}
	}
	app.Recognizer = recognition.WithRetry(base, policy)

	extractor := o.extractor
	if extractor == nil {
		if extractor, err = app.buildExtractor(ctx); err != nil {
			app.Close()
			return nil, err
		}
	}
	app.Extractor = llm.WithRetry(extractor, policy)

	app.Pipeline = &documents.Orchestrator{
		Recognizer:   app.Recognizer,
		Prompt:       app.Prompt,
		Extractor:    app.Extractor,
		Artifacts:    app.Artifacts,
		Catalog:      app.Catalog,
		RequirePDF:   true,
		StrictSchema: cfg.StrictArtifactSchema,
	}
	app.Review = &documents.Workflow{
		Artifacts:           app.Artifacts,
		Catalog:             app.Catalog,
		AllowReopenVerified: cfg.AllowReopenVerified,
		StrictSchema:        cfg.StrictArtifactSchema,
	}
	app.Handler = documents.NewHandler(app.Pipeline, app.Review, cfg.CertificateIssuer, int64(cfg.MaxUploadMB)<<20)

	app.Router = server.NewRouter(server.RouterDeps{
		Config:          cfg,
		DocumentHandler: app.Handler,
	})
	return app, nil
}

// Close releases backend clients.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) buildArtifacts(ctx context.Context) (object.ArtifactStore, error) {
	cfg := a.Config
	switch cfg.ArtifactStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("ARTIFACT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	case "gcs":
		if strings.TrimSpace(cfg.GCSBucket) == "" {
			return nil, fmt.Errorf("ARTIFACT_STORE=gcs requires GCS_BUCKET")
		}
		store, err := gcsstore.New(ctx, cfg.GCSBucket, cfg.GCSPrefix)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, store.Close)
		return store, nil
	default:
		return localstore.New(cfg.ArtifactDir)
	}
}

func (a *App) buildCatalog(ctx context.Context) (documents.Catalog, error) {
	cfg := a.Config
	switch cfg.CatalogBackend {
	case "memory":
		return documents.NewMemoryCatalog(), nil
	case "postgres":
		sqlDB, err := buildDB(ctx, cfg)
		if err != nil {
			return nil, err
		}
		a.DB = sqlDB
		if !db.IsLambdaRuntime() {
			a.closers = append(a.closers, sqlDB.Close)
		}
		if err := db.RunMigrations(ctx, sqlDB); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		return &documents.PGCatalog{DB: sqlDB}, nil
	case "firestore":
		client, err := documents.NewFirestoreClient(ctx, cfg.GCPProject)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		return documents.NewFirestoreCatalog(client, cfg.FirestoreCollection), nil
	default:
		return documents.NewFileCatalog(cfg.CatalogPath), nil
	}
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		return nil, fmt.Errorf("CATALOG_BACKEND=postgres requires DATABASE_URL")
	}
	if db.IsLambdaRuntime() {
		return db.Shared(ctx, cfg.DatabaseURL, db.PoolOptions(db.ProfileLambda))
	}
	return db.Connect(ctx, cfg.DatabaseURL, db.PoolOptions(db.ProfileServer))
}

func (a *App) buildRecognizer(ctx context.Context) (recognition.Recognizer, error) {
	cfg := a.Config
	if cfg.OCRProvider == "pdftext" {
		return recognition.NewPDFText(), nil
	}
	vision, err := recognition.NewVision(ctx, cfg.VisionAPIKey)
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: vision unavailable; using PDF text layer: %v", err)
			return recognition.NewPDFText(), nil
		}
		return nil, err
	}
	return vision, nil
}

func (a *App) buildExtractor(ctx context.Context) (llm.Extractor, error) {
	cfg := a.Config
	var (
		extractor llm.Extractor
		err       error
	)
	switch cfg.LLMProvider {
	case "none":
		return llm.Unconfigured{}, nil
	case "vertex":
		model := cfg.LLMModel
		if strings.HasPrefix(model, "gpt") {
			model = vertex.DefaultModel
		}
		var client *vertex.Client
		client, err = vertex.NewClient(ctx, cfg.GCPProject, cfg.VertexLocation, model)
		if err == nil {
			a.closers = append(a.closers, client.Close)
			extractor = client
		}
	default:
		extractor, err = openai.NewClient(cfg.OpenAIAPIKey, cfg.LLMModel)
	}
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: %s extractor unavailable; uploads will fail extraction: %v", cfg.LLMProvider, err)
			return llm.Unconfigured{}, nil
		}
		return nil, err
	}
	return extractor, nil
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
