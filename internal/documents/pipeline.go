package documents

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"coi-backend/internal/llm"
	"coi-backend/internal/prompt"
	"coi-backend/internal/recognition"
	"coi-backend/internal/shared/metrics"
	"coi-backend/internal/shared/storage/object"
	"coi-backend/internal/shared/telemetry"
	"coi-backend/internal/shared/util"
)

// Orchestrator takes one upload from raw bytes to a cataloged artifact.
// Stages run strictly in order: recognize, extract, write artifact, index.
type Orchestrator struct {
	Recognizer   recognition.Recognizer
	Prompt       *prompt.Assembler
	Extractor    llm.Extractor
	Artifacts    object.ArtifactStore
	Catalog      Catalog
	// RequirePDF rejects uploads that are not readable PDFs before any
	// backend call.
	RequirePDF   bool
	// StrictSchema fails extraction when the model output does not match
	// the certificate schema.
	StrictSchema bool
	Now          func() time.Time
}

// Upload is one file submitted for processing.
type Upload struct {
	FileName string
	Data     []byte
	Meta     Metadata
}

// Process runs the pipeline and returns the artifact filename. No catalog
// record is written unless the artifact was stored first.
func (o *Orchestrator) Process(ctx context.Context, in Upload) (filename string, err error) {
	runID := uuid.NewString()
	start := time.Now()
	metrics.IncUploadStarted()
	defer func() {
		metrics.ObserveUploadDurationMs(metrics.SinceMillis(start))
		fields := map[string]any{
			"run_id":      runID,
			"upload_name": in.FileName,
			"filename":    filename,
			"duration_ms": metrics.SinceMillis(start),
		}
		if err != nil {
			metrics.IncUploadFailed()
			fields["error"] = err
			telemetry.Warn("pipeline.failed", fields)
			return
		}
		metrics.IncUploadCompleted()
		telemetry.Info("pipeline.completed", fields)
	}()

	if len(in.Data) == 0 || strings.TrimSpace(in.FileName) == "" {
		return "", fmt.Errorf("%w: file and file name are required", ErrValidation)
	}
	name, err := util.ArtifactName(in.FileName)
	if err != nil {
		return "", fmt.Errorf("%w: %q is not a usable file name", ErrValidation, in.FileName)
	}
	logStage(runID, "validated", name, "sha256", util.HashBytes(in.Data), "bytes", len(in.Data))

	switch _, err := o.Catalog.Get(ctx, name); {
	case err == nil:
		return "", fmt.Errorf("%w: %s", ErrDuplicate, name)
	case !errors.Is(err, ErrNotFound):
		return "", fmt.Errorf("%w: catalog lookup: %w", ErrStorage, err)
	}

	if o.RequirePDF {
		if _, err := recognition.PageCount(in.Data); err != nil {
			return "", fmt.Errorf("%w: %w", ErrValidation, err)
		}
	}

	text, err := o.Recognizer.Recognize(ctx, in.Data)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrRecognition, err)
	}
	logStage(runID, "recognized", name, "text_chars", len(text))

	raw, err := o.Extractor.Extract(ctx, o.Prompt.Build(), text)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrExtraction, err)
	}
	artifact, err := llm.NormalizeOutput(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrExtraction, err)
	}
	if err := schemaCheck(o.StrictSchema, name, "extraction", artifact); err != nil {
		return "", fmt.Errorf("%w: %w", ErrExtraction, err)
	}
	logStage(runID, "extracted", name, "artifact_bytes", len(artifact))

	if err := o.Artifacts.Put(ctx, name, artifact); err != nil {
		return "", fmt.Errorf("%w: write artifact: %w", ErrStorage, err)
	}
	logStage(runID, "stored", name)

	rec := Record{
		Filename:   name,
		CustomName: in.Meta.CustomName,
		ExternalID: in.Meta.ExternalID,
		TenantCode: in.Meta.TenantCode,
		PropertyNo: in.Meta.PropertyNo,
		Action:     in.Meta.Action,
		UploadDate: o.now(),
		Status:     StatusUploaded,
	}
	if err := o.Catalog.Insert(ctx, rec); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return "", fmt.Errorf("%w: %s", ErrDuplicate, name)
		}
		if derr := o.Artifacts.Delete(ctx, name); derr != nil {
			telemetry.Warn("pipeline.orphaned_artifact", map[string]any{"run_id": runID, "filename": name, "error": derr})
		}
		return "", fmt.Errorf("%w: catalog insert: %w", ErrStorage, err)
	}
	return name, nil
}

func (o *Orchestrator) now() time.Time {
	if o.Now != nil {
		return o.Now().UTC()
	}
	return time.Now().UTC()
}

func logStage(runID, stage, filename string, kv ...any) {
	fields := map[string]any{
		"run_id":   runID,
		"stage":    stage,
		"filename": filename,
	}
	for i := 0; i+1 < len(kv); i += 2 {
		if k, ok := kv[i].(string); ok {
			fields[k] = kv[i+1]
		}
	}
	telemetry.Info("pipeline.stage", fields)
}
