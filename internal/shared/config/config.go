package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	"coi-backend/internal/shared/telemetry"
)

// Config holds application configuration.
type Config struct {
	Port            string
	Env             string
	LogLevel        string
	CORSAllowOrigin []string

	ArtifactStoreType string
	ArtifactDir       string
	AWSRegion         string
	S3Bucket          string
	S3Prefix          string
	SSEKMSKeyID       string
	GCSBucket         string
	GCSPrefix         string

	CatalogBackend      string
	CatalogPath         string
	DatabaseURL         string
	GCPProject          string
	FirestoreCollection string

	OCRProvider  string
	VisionAPIKey string

	LLMProvider    string
	LLMModel       string
	OpenAIAPIKey   string
	VertexLocation string
	QuestionsPath  string

	BackendTimeout     time.Duration
	BackendMaxAttempts int
	BackendRetryBase   time.Duration

	AllowReopenVerified  bool
	StrictArtifactSchema bool
	MaxUploadMB          int
	UploadRatePerMin     int
	CertificateIssuer    string
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is read best-effort for dev convenience;
// real environment variables take precedence.
func Load() Config {
	return LoadFrom(".env", "cmd/.env")
}

// LoadFrom is Load with explicit candidate .env paths.
func LoadFrom(envFiles ...string) Config {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	for _, path := range envFiles {
		v.SetConfigFile(path)
		v.SetConfigType("env")
		if err := v.MergeInConfig(); err == nil {
			break
		}
	}

	env := normalizeEnv(v.GetString("ENV"))
	cfg := Config{
		Port:            v.GetString("PORT"),
		Env:             env,
		LogLevel:        v.GetString("LOG_LEVEL"),
		CORSAllowOrigin: splitAndTrim(v.GetString("CORS_ALLOW_ORIGINS")),

		ArtifactStoreType: normalizeStoreType(v.GetString("ARTIFACT_STORE")),
		ArtifactDir:       v.GetString("ARTIFACT_DIR"),
		AWSRegion:         v.GetString("AWS_REGION"),
		S3Bucket:          v.GetString("S3_BUCKET"),
		S3Prefix:          v.GetString("S3_PREFIX"),
		SSEKMSKeyID:       v.GetString("SSE_KMS_KEY_ID"),
		GCSBucket:         v.GetString("GCS_BUCKET"),
		GCSPrefix:         v.GetString("GCS_PREFIX"),

		CatalogBackend:      normalizeCatalogBackend(v.GetString("CATALOG_BACKEND")),
		CatalogPath:         v.GetString("CATALOG_PATH"),
		DatabaseURL:         v.GetString("DATABASE_URL"),
		GCPProject:          v.GetString("GCP_PROJECT"),
		FirestoreCollection: v.GetString("FIRESTORE_COLLECTION"),

		OCRProvider:  normalizeOCRProvider(v.GetString("OCR_PROVIDER")),
		VisionAPIKey: v.GetString("VISION_API_KEY"),

		LLMProvider:    normalizeLLMProvider(v.GetString("LLM_PROVIDER")),
		LLMModel:       v.GetString("LLM_MODEL"),
		OpenAIAPIKey:   v.GetString("OPENAI_API_KEY"),
		VertexLocation: v.GetString("VERTEX_LOCATION"),
		QuestionsPath:  v.GetString("QUESTIONS_PATH"),

		BackendTimeout:     v.GetDuration("BACKEND_TIMEOUT"),
		BackendMaxAttempts: v.GetInt("BACKEND_MAX_ATTEMPTS"),
		BackendRetryBase:   v.GetDuration("BACKEND_RETRY_BASE"),

		AllowReopenVerified:  v.GetBool("ALLOW_REOPEN_VERIFIED"),
		StrictArtifactSchema: v.GetBool("STRICT_ARTIFACT_SCHEMA"),
		MaxUploadMB:          v.GetInt("MAX_UPLOAD_MB"),
		UploadRatePerMin:     v.GetInt("UPLOAD_RATE_PER_MIN"),
		CertificateIssuer:    v.GetString("CERTIFICATE_ISSUER"),
	}

	if env == "production" && cfg.CatalogBackend == "memory" {
		telemetry.Warn("config.catalog_memory_in_production", map[string]any{"catalog_backend": cfg.CatalogBackend})
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "dev")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ALLOW_ORIGINS", "http://localhost:5173")
	v.SetDefault("ARTIFACT_STORE", "local")
	v.SetDefault("ARTIFACT_DIR", "./extracted_json")
	v.SetDefault("CATALOG_BACKEND", "file")
	v.SetDefault("CATALOG_PATH", "./documents.json")
	v.SetDefault("FIRESTORE_COLLECTION", "documents")
	v.SetDefault("OCR_PROVIDER", "vision")
	v.SetDefault("LLM_PROVIDER", "openai")
	v.SetDefault("LLM_MODEL", "gpt-4o")
	v.SetDefault("VERTEX_LOCATION", "us-central1")
	v.SetDefault("BACKEND_TIMEOUT", 120*time.Second)
	v.SetDefault("BACKEND_MAX_ATTEMPTS", 3)
	v.SetDefault("BACKEND_RETRY_BASE", 300*time.Millisecond)
	v.SetDefault("ALLOW_REOPEN_VERIFIED", true)
	v.SetDefault("STRICT_ARTIFACT_SCHEMA", false)
	v.SetDefault("MAX_UPLOAD_MB", 20)
	v.SetDefault("UPLOAD_RATE_PER_MIN", 30)
	v.SetDefault("CERTIFICATE_ISSUER", "Real Estate Company")
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	case "gcs":
		return "gcs"
	default:
		return "local"
	}
}

func normalizeCatalogBackend(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "memory":
		return "memory"
	case "postgres", "pg":
		return "postgres"
	case "firestore":
		return "firestore"
	default:
		return "file"
	}
}

func normalizeOCRProvider(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "pdftext", "pdf-text":
		return "pdftext"
	default:
		return "vision"
	}
}

func normalizeLLMProvider(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "vertex", "gemini":
		return "vertex"
	case "none":
		return "none"
	default:
		return "openai"
	}
}
