package documents

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"coi-backend/internal/llm"
	"coi-backend/internal/shared/storage/object"
	"coi-backend/internal/shared/telemetry"
	"coi-backend/internal/shared/util"
)

// Workflow exposes reviewer actions over the artifact store and catalog.
// Every operation fails before mutating anything when its input is rejected.
type Workflow struct {
	Artifacts           object.ArtifactStore
	Catalog             Catalog
	AllowReopenVerified bool
	// StrictSchema rejects edits that do not match the certificate schema
	// instead of logging them.
	StrictSchema bool
}

// GetArtifact returns the stored artifact bytes.
func (w *Workflow) GetArtifact(ctx context.Context, filename string) ([]byte, error) {
	if err := checkName(filename); err != nil {
		return nil, err
	}
	data, err := w.Artifacts.Get(ctx, filename)
	if errors.Is(err, object.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, filename)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read artifact: %w", ErrStorage, err)
	}
	return data, nil
}

// SaveEdits replaces the artifact with reviewer-edited JSON and moves the
// record to in_progress. The body must be a JSON object and the artifact must
// already exist.
func (w *Workflow) SaveEdits(ctx context.Context, filename string, body []byte) error {
	if err := checkName(filename); err != nil {
		return err
	}
	if err := llm.ValidateArtifact(body); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	if err := schemaCheck(w.StrictSchema, filename, "review", body); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}

	exists, err := w.Artifacts.Exists(ctx, filename)
	if err != nil {
		return fmt.Errorf("%w: stat artifact: %w", ErrStorage, err)
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, filename)
	}

	rec, err := w.Catalog.Get(ctx, filename)
	hasRecord := err == nil
	if err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("%w: catalog lookup: %w", ErrStorage, err)
	}
	if hasRecord {
		if !CanTransition(rec.Status, StatusInProgress, w.AllowReopenVerified) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, rec.Status, StatusInProgress)
		}
		if rec.Status == StatusVerified {
			telemetry.Warn("review.reopened", map[string]any{
				"filename": filename,
				"from":     string(rec.Status),
				"to":       string(StatusInProgress),
			})
		}
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, bytes.TrimSpace(body), "", "    "); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	if err := w.Artifacts.Put(ctx, filename, pretty.Bytes()); err != nil {
		return fmt.Errorf("%w: write artifact: %w", ErrStorage, err)
	}
	if !hasRecord {
		return nil
	}
	if err := w.Catalog.UpdateStatus(ctx, filename, StatusInProgress); err != nil {
		return fmt.Errorf("%w: update status: %w", ErrStorage, err)
	}
	return nil
}

// MarkVerified moves the record to verified without touching the artifact.
// A filename with no record is a no-op.
func (w *Workflow) MarkVerified(ctx context.Context, filename string) error {
	if err := checkName(filename); err != nil {
		return err
	}
	rec, err := w.Catalog.Get(ctx, filename)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: catalog lookup: %w", ErrStorage, err)
	}
	if !CanTransition(rec.Status, StatusVerified, w.AllowReopenVerified) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, rec.Status, StatusVerified)
	}
	if err := w.Catalog.UpdateStatus(ctx, filename, StatusVerified); err != nil {
		return fmt.Errorf("%w: update status: %w", ErrStorage, err)
	}
	return nil
}

// ListArtifactFilenames lists every artifact in storage, reverse lexical
// order. It does not consult the catalog.
func (w *Workflow) ListArtifactFilenames(ctx context.Context) ([]string, error) {
	names, err := w.Artifacts.List(ctx, util.ArtifactExt)
	if err != nil {
		return nil, fmt.Errorf("%w: list artifacts: %w", ErrStorage, err)
	}
	if names == nil {
		names = []string{}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}

// ListDocuments returns the catalog, newest upload first.
func (w *Workflow) ListDocuments(ctx context.Context) ([]Record, error) {
	records, err := w.Catalog.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: load catalog: %w", ErrStorage, err)
	}
	SortNewestFirst(records)
	return records, nil
}

// Delete removes the artifact and then the record. Both steps tolerate an
// already-absent target.
func (w *Workflow) Delete(ctx context.Context, filename string) error {
	if err := checkName(filename); err != nil {
		return err
	}
	if err := w.Artifacts.Delete(ctx, filename); err != nil {
		return fmt.Errorf("%w: delete artifact: %w", ErrStorage, err)
	}
	if err := w.Catalog.Delete(ctx, filename); err != nil {
		return fmt.Errorf("%w: delete record: %w", ErrStorage, err)
	}
	return nil
}

// schemaCheck logs artifacts that depart from the certificate schema.
// With strict set the mismatch is returned instead.
func schemaCheck(strict bool, filename, source string, data []byte) error {
	err := llm.CheckSchema(data)
	if err == nil || strict {
		return err
	}
	telemetry.Warn("artifact.schema_mismatch", map[string]any{
		"filename": filename,
		"source":   source,
		"error":    err,
	})
	return nil
}

func checkName(filename string) error {
	if err := util.ValidateArtifactName(filename); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return nil
}
