// Package registry is a reference signature backend: per-person signature
// listings, multipart upload, delete and file serving.
package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when no signature matches.
var ErrNotFound = errors.New("registry: signature not found")

// Record is one stored signature.
type Record struct {
	ID          string
	NPP         string
	Key         string // blob key, also the last path segment of the locator
	ContentType string
	Size        int64
	CreatedAt   time.Time
}

// MetaStore keeps signature records in a SQL database. Both the modernc
// sqlite driver ("sqlite") and MySQL ("mysql") are supported.
type MetaStore struct {
	db     *sql.DB
	driver string
}

// OpenMeta opens driver/dsn and migrates the schema.
func OpenMeta(ctx context.Context, driver, dsn string) (*MetaStore, error) {
	switch driver {
	case "sqlite", "mysql":
	default:
		return nil, fmt.Errorf("registry: unsupported driver %q", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == "sqlite" {
		// one writer; avoids SQLITE_BUSY under concurrent uploads
		db.SetMaxOpenConns(1)
	}
	s := &MetaStore{db: db, driver: driver}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the database.
func (s *MetaStore) Close() error { return s.db.Close() }

func (s *MetaStore) migrate(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS signatures (
		id VARCHAR(64) PRIMARY KEY,
		npp VARCHAR(64) NOT NULL,
		blob_key VARCHAR(255) NOT NULL UNIQUE,
		content_type VARCHAR(64) NOT NULL,
		size BIGINT NOT NULL,
		created_at BIGINT NOT NULL
	)`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("migrate signatures: %w", err)
	}
	return nil
}

// Insert stores r.
func (s *MetaStore) Insert(ctx context.Context, r Record) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO signatures (id, npp, blob_key, content_type, size, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, r.NPP, r.Key, r.ContentType, r.Size, r.CreatedAt.UTC().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert signature: %w", err)
	}
	return nil
}

// List returns the signatures of npp, most recent first.
func (s *MetaStore) List(ctx context.Context, npp string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, npp, blob_key, content_type, size, created_at FROM signatures WHERE npp = ? ORDER BY created_at DESC, id DESC`, npp)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ByKey returns the record stored under key.
func (s *MetaStore) ByKey(ctx context.Context, key string) (Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, npp, blob_key, content_type, size, created_at FROM signatures WHERE blob_key = ?`, key)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	return r, err
}

// Delete removes the record of npp stored under key.
func (s *MetaStore) Delete(ctx context.Context, npp, key string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM signatures WHERE npp = ? AND blob_key = ?`, npp, key)
	if err != nil {
		return fmt.Errorf("delete signature: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type scanner interface{ Scan(dest ...any) error }

func scanRecord(sc scanner) (Record, error) {
	var (
		r       Record
		created int64
	)
	if err := sc.Scan(&r.ID, &r.NPP, &r.Key, &r.ContentType, &r.Size, &created); err != nil {
		return Record{}, err
	}
	r.CreatedAt = time.Unix(0, created).UTC()
	return r, nil
}
