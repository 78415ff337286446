package documents

import (
	"context"
	"sync"
)

// MemoryCatalog is an in-memory Catalog, used in tests and for throwaway
// local runs.
type MemoryCatalog struct {
	mu      sync.RWMutex
	records []Record
}

// NewMemoryCatalog constructs an empty MemoryCatalog.
func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{records: []Record{}}
}

func (c *MemoryCatalog) LoadAll(ctx context.Context) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Record, len(c.records))
	copy(out, c.records)
	return out, nil
}

func (c *MemoryCatalog) SaveAll(ctx context.Context, records []Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = make([]Record, len(records))
	copy(c.records, records)
	return nil
}

func (c *MemoryCatalog) Insert(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if indexOf(c.records, rec.Filename) >= 0 {
		return ErrDuplicate
	}
	c.records = append(c.records, rec)
	return nil
}

func (c *MemoryCatalog) UpdateStatus(ctx context.Context, filename string, status Status) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := indexOf(c.records, filename); i >= 0 {
		c.records[i].Status = status
	}
	return nil
}

func (c *MemoryCatalog) Delete(ctx context.Context, filename string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = without(c.records, filename)
	return nil
}

func (c *MemoryCatalog) Get(ctx context.Context, filename string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i := indexOf(c.records, filename); i >= 0 {
		return c.records[i], nil
	}
	return Record{}, ErrNotFound
}

func indexOf(records []Record, filename string) int {
	for i := range records {
		if records[i].Filename == filename {
			return i
		}
	}
	return -1
}

// without returns records minus every entry named filename.
func without(records []Record, filename string) []Record {
	out := records[:0:0]
	for _, r := range records {
		if r.Filename != filename {
			out = append(out, r)
		}
	}
	if out == nil {
		out = []Record{}
	}
	return out
}
