package documents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// PGCatalog implements Catalog on the documents table.
type PGCatalog struct {
	DB *sql.DB
}

const selectColumns = `filename, custom_name, external_id, tenant_code, property_no, action, upload_date, status`

const insertQuery = `
INSERT INTO documents (
    filename,
    custom_name,
    external_id,
    tenant_code,
    property_no,
    action,
    upload_date,
    status
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

type rowScanner interface {
	Scan(dest ...any) error
}

// LoadAll returns every record, newest first.
func (r *PGCatalog) LoadAll(ctx context.Context) ([]Record, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+selectColumns+` FROM documents ORDER BY upload_date DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// SaveAll replaces the table contents in one transaction.
func (r *PGCatalog) SaveAll(ctx context.Context, records []Record) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM documents`); err != nil {
		return err
	}
	for _, rec := range records {
		if _, err := tx.ExecContext(ctx, insertQuery, insertArgs(rec)...); err != nil {
			return fmt.Errorf("insert %s: %w", rec.Filename, err)
		}
	}
	return tx.Commit()
}

// Insert adds rec unless its filename already exists.
func (r *PGCatalog) Insert(ctx context.Context, rec Record) error {
	res, err := r.DB.ExecContext(ctx, insertQuery+` ON CONFLICT (filename) DO NOTHING`, insertArgs(rec)...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrDuplicate
	}
	return nil
}

func (r *PGCatalog) UpdateStatus(ctx context.Context, filename string, status Status) error {
	_, err := r.DB.ExecContext(ctx, `UPDATE documents SET status = $1 WHERE filename = $2`, string(status), filename)
	return err
}

func (r *PGCatalog) Delete(ctx context.Context, filename string) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM documents WHERE filename = $1`, filename)
	return err
}

func (r *PGCatalog) Get(ctx context.Context, filename string) (Record, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM documents WHERE filename = $1`, filename)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	return rec, err
}

func insertArgs(rec Record) []any {
	status := rec.Status
	if status == "" {
		status = StatusUploaded
	}
	uploaded := rec.UploadDate
	if uploaded.IsZero() {
		uploaded = time.Now().UTC()
	}
	return []any{
		rec.Filename,
		nullString(rec.CustomName),
		nullString(rec.ExternalID),
		nullString(rec.TenantCode),
		nullString(rec.PropertyNo),
		nullString(rec.Action),
		uploaded,
		string(status),
	}
}

func scanRecord(row rowScanner) (Record, error) {
	var rec Record
	var customName, externalID, tenantCode, propertyNo, action sql.NullString
	var status string
	if err := row.Scan(
		&rec.Filename,
		&customName,
		&externalID,
		&tenantCode,
		&propertyNo,
		&action,
		&rec.UploadDate,
		&status,
	); err != nil {
		return Record{}, err
	}
	rec.CustomName = fromNull(customName)
	rec.ExternalID = fromNull(externalID)
	rec.TenantCode = fromNull(tenantCode)
	rec.PropertyNo = fromNull(propertyNo)
	rec.Action = fromNull(action)
	rec.UploadDate = rec.UploadDate.UTC()
	rec.Status = Status(status)
	return rec, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func fromNull(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return strPtr(ns.String)
}
