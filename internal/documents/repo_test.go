package documents

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func catalogBackends(t *testing.T) map[string]func() Catalog {
	return map[string]func() Catalog{
		"file": func() Catalog {
			return NewFileCatalog(filepath.Join(t.TempDir(), "documents.json"))
		},
		"memory": func() Catalog {
			return NewMemoryCatalog()
		},
	}
}

func rec(name string, minute int) Record {
	return Record{
		Filename:   name,
		TenantCode: strPtr("T" + name),
		UploadDate: time.Date(2024, 5, 1, 12, minute, 0, 0, time.UTC),
		Status:     StatusUploaded,
	}
}

func TestCatalogInsertIsPresentExactlyOnce(t *testing.T) {
	for name, newCatalog := range catalogBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			c := newCatalog()
			for i, n := range []string{"a.json", "b.json"} {
				if err := c.Insert(ctx, rec(n, i)); err != nil {
					t.Fatalf("Insert(%s): %v", n, err)
				}
			}
			if err := c.Insert(ctx, rec("c.json", 5)); err != nil {
				t.Fatalf("Insert: %v", err)
			}

			all, err := c.LoadAll(ctx)
			if err != nil {
				t.Fatalf("LoadAll: %v", err)
			}
			if len(all) != 3 {
				t.Fatalf("expected 3 records, got %d", len(all))
			}
			count := 0
			for _, r := range all {
				if r.Filename == "c.json" {
					count++
				}
				if r.Filename == "a.json" && (r.TenantCode == nil || *r.TenantCode != "Ta.json" || r.Status != StatusUploaded) {
					t.Fatalf("existing record changed: %+v", r)
				}
			}
			if count != 1 {
				t.Fatalf("expected inserted record once, got %d", count)
			}
		})
	}
}

func TestCatalogInsertRejectsDuplicate(t *testing.T) {
	for name, newCatalog := range catalogBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			c := newCatalog()
			if err := c.Insert(ctx, rec("a.json", 0)); err != nil {
				t.Fatalf("Insert: %v", err)
			}
			if err := c.Insert(ctx, rec("a.json", 1)); !errors.Is(err, ErrDuplicate) {
				t.Fatalf("expected ErrDuplicate, got %v", err)
			}
			all, _ := c.LoadAll(ctx)
			if len(all) != 1 {
				t.Fatalf("expected 1 record, got %d", len(all))
			}
		})
	}
}

func TestCatalogUpdateStatus(t *testing.T) {
	for name, newCatalog := range catalogBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			c := newCatalog()
			_ = c.Insert(ctx, rec("a.json", 0))
			_ = c.Insert(ctx, rec("b.json", 1))

			if err := c.UpdateStatus(ctx, "a.json", StatusVerified); err != nil {
				t.Fatalf("UpdateStatus: %v", err)
			}
			got, err := c.Get(ctx, "a.json")
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if got.Status != StatusVerified {
				t.Fatalf("expected verified, got %s", got.Status)
			}

			before, _ := c.LoadAll(ctx)
			if err := c.UpdateStatus(ctx, "missing.json", StatusInProgress); err != nil {
				t.Fatalf("UpdateStatus on missing record: %v", err)
			}
			after, _ := c.LoadAll(ctx)
			if len(before) != len(after) {
				t.Fatalf("collection changed: %d -> %d", len(before), len(after))
			}
			for i := range before {
				if before[i].Filename != after[i].Filename || before[i].Status != after[i].Status {
					t.Fatalf("record %d changed: %+v -> %+v", i, before[i], after[i])
				}
			}
		})
	}
}

func TestCatalogDeleteIsIdempotent(t *testing.T) {
	for name, newCatalog := range catalogBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			c := newCatalog()
			_ = c.Insert(ctx, rec("a.json", 0))
			_ = c.Insert(ctx, rec("b.json", 1))

			for i := 0; i < 2; i++ {
				if err := c.Delete(ctx, "a.json"); err != nil {
					t.Fatalf("Delete #%d: %v", i+1, err)
				}
			}
			all, _ := c.LoadAll(ctx)
			for _, r := range all {
				if r.Filename == "a.json" {
					t.Fatal("deleted record still present")
				}
			}
			if len(all) != 1 {
				t.Fatalf("expected 1 record, got %d", len(all))
			}
			if _, err := c.Get(ctx, "a.json"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestCatalogSaveAllReplacesCollection(t *testing.T) {
	for name, newCatalog := range catalogBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			c := newCatalog()
			_ = c.Insert(ctx, rec("a.json", 0))
			if err := c.SaveAll(ctx, []Record{rec("x.json", 1), rec("y.json", 2)}); err != nil {
				t.Fatalf("SaveAll: %v", err)
			}
			all, _ := c.LoadAll(ctx)
			if len(all) != 2 || all[0].Filename != "x.json" || all[1].Filename != "y.json" {
				t.Fatalf("unexpected collection %+v", all)
			}
		})
	}
}

func TestSortNewestFirst(t *testing.T) {
	records := []Record{rec("old.json", 0), rec("new.json", 30), rec("mid.json", 10)}
	SortNewestFirst(records)
	want := []string{"new.json", "mid.json", "old.json"}
	for i, w := range want {
		if records[i].Filename != w {
			t.Fatalf("position %d: want %s, got %s", i, w, records[i].Filename)
		}
	}
}

func TestCanTransition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from, to    Status
		allowReopen bool
		want        bool
	}{
		{StatusUploaded, StatusInProgress, false, true},
		{StatusUploaded, StatusVerified, false, true},
		{StatusInProgress, StatusInProgress, false, true},
		{StatusInProgress, StatusVerified, false, true},
		{StatusVerified, StatusVerified, false, true},
		{StatusVerified, StatusInProgress, true, true},
		{StatusVerified, StatusInProgress, false, false},
		{StatusInProgress, StatusUploaded, true, false},
		{StatusUploaded, Status("archived"), true, false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			t.Parallel()
			if got := CanTransition(tt.from, tt.to, tt.allowReopen); got != tt.want {
				t.Fatalf("CanTransition(%s, %s, %v) = %v, want %v", tt.from, tt.to, tt.allowReopen, got, tt.want)
			}
		})
	}
}
