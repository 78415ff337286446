package documents

import "context"

// Catalog is the durable set of document records. Implementations serialize
// their own writes; callers never need external locking.
type Catalog interface {
	// LoadAll returns every record. Order is backend-defined; use
	// SortNewestFirst for display order.
	LoadAll(ctx context.Context) ([]Record, error)
	// SaveAll replaces the whole collection.
	SaveAll(ctx context.Context, records []Record) error
	// Insert adds a record, failing with ErrDuplicate if the filename is taken.
	Insert(ctx context.Context, rec Record) error
	// UpdateStatus sets the status of the named record. A missing record is
	// not an error.
	UpdateStatus(ctx context.Context, filename string, status Status) error
	// Delete removes the named record. Deleting a missing record is not an error.
	Delete(ctx context.Context, filename string) error
	// Get returns the named record or ErrNotFound.
	Get(ctx context.Context, filename string) (Record, error)
}
