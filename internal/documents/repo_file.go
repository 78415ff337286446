package documents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"coi-backend/internal/shared/metrics"
	"coi-backend/internal/shared/telemetry"
)

// FileCatalog keeps the catalog as a JSON array in a single file. Every
// operation is a full load+save cycle under one mutex.
type FileCatalog struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

// NewFileCatalog returns a catalog backed by path. The file and its parent
// directory are created on first use.
func NewFileCatalog(path string) *FileCatalog {
	return &FileCatalog{path: path, now: time.Now}
}

// Path returns the backing file path.
func (c *FileCatalog) Path() string {
	return c.path
}

func (c *FileCatalog) LoadAll(ctx context.Context) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadLocked()
}

func (c *FileCatalog) SaveAll(ctx context.Context, records []Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saveLocked(records)
}

func (c *FileCatalog) Insert(ctx context.Context, rec Record) error {
	return c.update(ctx, func(records []Record) ([]Record, error) {
		if indexOf(records, rec.Filename) >= 0 {
			return nil, ErrDuplicate
		}
		return append(records, rec), nil
	})
}

func (c *FileCatalog) UpdateStatus(ctx context.Context, filename string, status Status) error {
	return c.update(ctx, func(records []Record) ([]Record, error) {
		i := indexOf(records, filename)
		if i < 0 {
			return nil, nil
		}
		records[i].Status = status
		return records, nil
	})
}

func (c *FileCatalog) Delete(ctx context.Context, filename string) error {
	return c.update(ctx, func(records []Record) ([]Record, error) {
		if indexOf(records, filename) < 0 {
			return nil, nil
		}
		return without(records, filename), nil
	})
}

func (c *FileCatalog) Get(ctx context.Context, filename string) (Record, error) {
	records, err := c.LoadAll(ctx)
	if err != nil {
		return Record{}, err
	}
	if i := indexOf(records, filename); i >= 0 {
		return records[i], nil
	}
	return Record{}, ErrNotFound
}

// update runs fn against the current collection and saves the result.
// A nil slice with a nil error means nothing changed.
func (c *FileCatalog) update(ctx context.Context, fn func([]Record) ([]Record, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	records, err := c.loadLocked()
	if err != nil {
		return err
	}
	next, err := fn(records)
	if err != nil || next == nil {
		return err
	}
	return c.saveLocked(next)
}

func (c *FileCatalog) loadLocked() ([]Record, error) {
	data, err := os.ReadFile(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		if err := c.saveLocked(nil); err != nil {
			return nil, err
		}
		return []Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		c.quarantine(err)
		return []Record{}, nil
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}

// quarantine moves an unparseable catalog aside so the next save does not
// overwrite it.
func (c *FileCatalog) quarantine(cause error) {
	metrics.IncCatalogCorrupt()
	dest := c.path + ".corrupt-" + strconv.FormatInt(c.now().Unix(), 10)
	fields := map[string]any{
		"path":  c.path,
		"error": cause,
	}
	if err := os.Rename(c.path, dest); err != nil {
		fields["quarantine_error"] = err
	} else {
		fields["quarantined_to"] = dest
	}
	telemetry.Error("catalog.corrupt", fields)
}

func (c *FileCatalog) saveLocked(records []Record) error {
	if records == nil {
		records = []Record{}
	}
	data, err := json.MarshalIndent(records, "", "    ")
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create catalog dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(c.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp catalog: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write catalog: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close catalog: %w", err)
	}
	if err := os.Rename(tmpName, c.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace catalog: %w", err)
	}
	return nil
}
