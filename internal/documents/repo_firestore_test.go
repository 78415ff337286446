package documents

import (
	"testing"
	"time"
)

func TestNewFirestoreCatalogDefaultsCollection(t *testing.T) {
	c := NewFirestoreCatalog(nil, "")
	if c.collection != "documents" {
		t.Fatalf("expected default collection, got %q", c.collection)
	}
	if got := NewFirestoreCatalog(nil, "certs").collection; got != "certs" {
		t.Fatalf("expected configured collection, got %q", got)
	}
}

func TestFirestoreRecordMapping(t *testing.T) {
	loc := time.FixedZone("EST", -5*60*60)
	rec := Record{
		Filename:   "claim1.json",
		TenantCode: strPtr("T100"),
		UploadDate: time.Date(2024, 5, 1, 7, 0, 0, 0, loc),
	}

	fr := toFirestoreRecord(rec)
	if fr.Status != string(StatusUploaded) {
		t.Fatalf("expected empty status to default to uploaded, got %q", fr.Status)
	}
	if fr.UploadDate.Location() != time.UTC || fr.UploadDate.Hour() != 12 {
		t.Fatalf("expected UTC upload date, got %v", fr.UploadDate)
	}

	back := fr.toRecord()
	if back.Filename != rec.Filename || back.Status != StatusUploaded {
		t.Fatalf("unexpected record %+v", back)
	}
	if back.TenantCode == nil || *back.TenantCode != "T100" || back.CustomName != nil {
		t.Fatalf("optional fields not preserved: %+v", back)
	}
	if !back.UploadDate.Equal(rec.UploadDate) {
		t.Fatalf("upload date changed: %v vs %v", back.UploadDate, rec.UploadDate)
	}
}
