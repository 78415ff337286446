package documents

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreCatalog keeps one Firestore document per record, keyed by the
// artifact filename.
type FirestoreCatalog struct {
	client     *firestore.Client
	collection string
}

// firestoreRecord is the stored document shape.
type firestoreRecord struct {
	Filename   string    `firestore:"filename"`
	CustomName *string   `firestore:"custom_name"`
	ExternalID *string   `firestore:"external_id"`
	TenantCode *string   `firestore:"tenant_code"`
	PropertyNo *string   `firestore:"property_no"`
	Action     *string   `firestore:"action"`
	UploadDate time.Time `firestore:"upload_date"`
	Status     string    `firestore:"status"`
}

// NewFirestoreClient creates a Firestore client for projectID.
func NewFirestoreClient(ctx context.Context, projectID string) (*firestore.Client, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID must be provided to create a firestore client")
	}
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}
	return client, nil
}

// NewFirestoreCatalog returns a catalog stored in collection.
func NewFirestoreCatalog(client *firestore.Client, collection string) *FirestoreCatalog {
	if collection == "" {
		collection = "documents"
	}
	return &FirestoreCatalog{client: client, collection: collection}
}

func (c *FirestoreCatalog) doc(filename string) *firestore.DocumentRef {
	return c.client.Collection(c.collection).Doc(filename)
}

func (c *FirestoreCatalog) LoadAll(ctx context.Context) ([]Record, error) {
	snaps, err := c.client.Collection(c.collection).OrderBy("upload_date", firestore.Desc).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	records := make([]Record, 0, len(snaps))
	for _, snap := range snaps {
		var fr firestoreRecord
		if err := snap.DataTo(&fr); err != nil {
			return nil, fmt.Errorf("decode %s: %w", snap.Ref.ID, err)
		}
		records = append(records, fr.toRecord())
	}
	return records, nil
}

// SaveAll replaces the collection: records not in the new set are deleted
// and every given record is written.
func (c *FirestoreCatalog) SaveAll(ctx context.Context, records []Record) error {
	existing, err := c.client.Collection(c.collection).Documents(ctx).GetAll()
	if err != nil {
		return fmt.Errorf("list documents: %w", err)
	}
	keep := make(map[string]struct{}, len(records))
	for _, rec := range records {
		keep[rec.Filename] = struct{}{}
	}

	bw := c.client.BulkWriter(ctx)
	for _, snap := range existing {
		if _, ok := keep[snap.Ref.ID]; ok {
			continue
		}
		if _, err := bw.Delete(snap.Ref); err != nil {
			bw.End()
			return fmt.Errorf("delete %s: %w", snap.Ref.ID, err)
		}
	}
	jobs := make([]*firestore.BulkWriterJob, 0, len(records))
	for _, rec := range records {
		job, err := bw.Set(c.doc(rec.Filename), toFirestoreRecord(rec))
		if err != nil {
			bw.End()
			return fmt.Errorf("write %s: %w", rec.Filename, err)
		}
		jobs = append(jobs, job)
	}
	bw.End()
	for _, job := range jobs {
		if _, err := job.Results(); err != nil {
			return fmt.Errorf("write documents: %w", err)
		}
	}
	return nil
}

func (c *FirestoreCatalog) Insert(ctx context.Context, rec Record) error {
	_, err := c.doc(rec.Filename).Create(ctx, toFirestoreRecord(rec))
	if status.Code(err) == codes.AlreadyExists {
		return ErrDuplicate
	}
	return err
}

func (c *FirestoreCatalog) UpdateStatus(ctx context.Context, filename string, s Status) error {
	_, err := c.doc(filename).Update(ctx, []firestore.Update{{Path: "status", Value: string(s)}})
	if status.Code(err) == codes.NotFound {
		return nil
	}
	return err
}

func (c *FirestoreCatalog) Delete(ctx context.Context, filename string) error {
	_, err := c.doc(filename).Delete(ctx)
	if status.Code(err) == codes.NotFound {
		return nil
	}
	return err
}

func (c *FirestoreCatalog) Get(ctx context.Context, filename string) (Record, error) {
	snap, err := c.doc(filename).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}
	var fr firestoreRecord
	if err := snap.DataTo(&fr); err != nil {
		return Record{}, fmt.Errorf("decode %s: %w", filename, err)
	}
	return fr.toRecord(), nil
}

func toFirestoreRecord(rec Record) firestoreRecord {
	st := rec.Status
	if st == "" {
		st = StatusUploaded
	}
	return firestoreRecord{
		Filename:   rec.Filename,
		CustomName: rec.CustomName,
		ExternalID: rec.ExternalID,
		TenantCode: rec.TenantCode,
		PropertyNo: rec.PropertyNo,
		Action:     rec.Action,
		UploadDate: rec.UploadDate.UTC(),
		Status:     string(st),
	}
}

func (fr firestoreRecord) toRecord() Record {
	return Record{
		Filename:   fr.Filename,
		CustomName: fr.CustomName,
		ExternalID: fr.ExternalID,
		TenantCode: fr.TenantCode,
		PropertyNo: fr.PropertyNo,
		Action:     fr.Action,
		UploadDate: fr.UploadDate.UTC(),
		Status:     Status(fr.Status),
	}
}
