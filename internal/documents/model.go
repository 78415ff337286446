package documents

import (
	"encoding/json"
	"sort"
	"strings"
	"time"

	"coi-backend/internal/shared/telemetry"
)

// Status is the review state of a cataloged document.
type Status string

const (
	StatusUploaded   Status = "uploaded"
	StatusInProgress Status = "in_progress"
	StatusVerified   Status = "verified"
)

// Valid reports whether s is one of the known review states.
func (s Status) Valid() bool {
	switch s {
	case StatusUploaded, StatusInProgress, StatusVerified:
		return true
	default:
		return false
	}
}

// Record is one catalog entry. It references the artifact stored under
// Filename together with the uploader-supplied metadata.
type Record struct {
	Filename   string    `json:"filename"`
	CustomName *string   `json:"custom_name"`
	ExternalID *string   `json:"external_id"`
	TenantCode *string   `json:"tenant_code"`
	PropertyNo *string   `json:"property_no"`
	Action     *string   `json:"action"`
	UploadDate time.Time `json:"upload_date"`
	Status     Status    `json:"status"`
}

// Metadata is the optional uploader context attached to a new record.
type Metadata struct {
	CustomName *string
	ExternalID *string
	TenantCode *string
	PropertyNo *string
	Action     *string
}

// uploadDateLayouts covers RFC 3339 plus zone-less ISO timestamps written by
// older catalog files; the latter are read as UTC.
var uploadDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// UnmarshalJSON accepts upload dates with or without a zone offset. An
// unrecognized date decodes as the zero time so one bad entry does not
// take the rest of the catalog down with it.
func (r *Record) UnmarshalJSON(data []byte) error {
	type alias Record
	var raw struct {
		alias
		UploadDate json.RawMessage `json:"upload_date"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = Record(raw.alias)
	r.UploadDate = time.Time{}

	var text string
	if len(raw.UploadDate) > 0 && string(raw.UploadDate) != "null" {
		if err := json.Unmarshal(raw.UploadDate, &text); err != nil {
			text = string(raw.UploadDate)
		}
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if t, ok := parseUploadDate(text); ok {
		r.UploadDate = t
		return nil
	}
	telemetry.Warn("catalog.bad_upload_date", map[string]any{
		"filename":    r.Filename,
		"upload_date": text,
	})
	return nil
}

func parseUploadDate(s string) (time.Time, bool) {
	for _, layout := range uploadDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// SortNewestFirst orders records by upload date, newest first. Records with
// the same upload date keep their relative order.
func SortNewestFirst(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].UploadDate.After(records[j].UploadDate)
	})
}

// CanTransition reports whether a record may move from one status to
// another. Re-saving a verified document reopens it only when allowReopen
// is set.
func CanTransition(from, to Status, allowReopen bool) bool {
	if !to.Valid() {
		return false
	}
	switch from {
	case StatusUploaded, StatusInProgress:
		return to == StatusInProgress || to == StatusVerified
	case StatusVerified:
		if to == StatusVerified {
			return true
		}
		return to == StatusInProgress && allowReopen
	default:
		// unknown states written by hand are allowed to recover
		return to == StatusInProgress || to == StatusVerified
	}
}

func strPtr(s string) *string {
	return &s
}
