package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cognicore/cvclass/pkg/cvclass/internalerr"
	"github.com/cognicore/cvclass/pkg/cvclass/store"
)

// sqliteStore implements the Store interface using SQLite
type sqliteStore struct {
	db *sql.DB
}

// OpenSQLite opens a SQLite database with WAL mode enabled.
func OpenSQLite(ctx context.Context, path string) (store.Store, error) {
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open %s: %v: %w", path, err, internalerr.ErrStoreUnavailable)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable wal: %v: %w", err, internalerr.ErrStoreUnavailable)
	}

	// Initialize schema
	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteStore{db: db}, nil
}

// dsn applies the per-connection pragmas. A PRAGMA executed on *sql.DB
// reaches only the pooled connection that ran it.
func dsn(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return "file:" + path + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS artifact_sets (
	id TEXT PRIMARY KEY,
	created_at TEXT NOT NULL,
	manifest TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS artifact_blobs (
	set_id TEXT NOT NULL,
	kind TEXT NOT NULL,
	codec TEXT NOT NULL,
	raw_size INTEGER NOT NULL DEFAULT 0,
	data BLOB NOT NULL,
	PRIMARY KEY(set_id, kind),
	FOREIGN KEY(set_id) REFERENCES artifact_sets(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS eval_reports (
	set_id TEXT PRIMARY KEY,
	body TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	FOREIGN KEY(set_id) REFERENCES artifact_sets(id) ON DELETE CASCADE
);
`
	_, err := db.ExecContext(ctx, schema)
	return err
}

// PutSet writes the set header and all blobs in one transaction.
func (s *sqliteStore) PutSet(ctx context.Context, rec store.SetRecord, blobs []store.Blob) error {
	if rec.ID == "" {
		return fmt.Errorf("put set: empty id: %w", internalerr.ErrInvalidInput)
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM artifact_sets WHERE id = ?`, rec.ID).Scan(&exists)
	if err != nil {
		return err
	}
	if exists > 0 {
		return fmt.Errorf("put set %s: already exists: %w", rec.ID, internalerr.ErrInvalidInput)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO artifact_sets(id, created_at, manifest) VALUES(?, ?, ?)`,
		rec.ID, rec.CreatedAt.UTC().Format(time.RFC3339Nano), string(rec.Manifest)); err != nil {
		return fmt.Errorf("insert set: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO artifact_blobs(set_id, kind, codec, raw_size, data) VALUES(?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, b := range blobs {
		if _, err := stmt.ExecContext(ctx, rec.ID, b.Kind, b.Codec, b.RawSize, b.Data); err != nil {
			return fmt.Errorf("insert blob %s: %w", b.Kind, err)
		}
	}

	return tx.Commit()
}

// GetSet returns a set header.
func (s *sqliteStore) GetSet(ctx context.Context, id string) (store.SetRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, created_at, manifest FROM artifact_sets WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return store.SetRecord{}, fmt.Errorf("set %s: %w", id, internalerr.ErrNotFound)
	}
	return rec, err
}

// GetBlobs returns all blobs of a set ordered by kind.
func (s *sqliteStore) GetBlobs(ctx context.Context, id string) ([]store.Blob, error) {
	if _, err := s.GetSet(ctx, id); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT kind, codec, raw_size, data FROM artifact_blobs WHERE set_id = ? ORDER BY kind`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var blobs []store.Blob
	for rows.Next() {
		var b store.Blob
		if err := rows.Scan(&b.Kind, &b.Codec, &b.RawSize, &b.Data); err != nil {
			return nil, err
		}
		blobs = append(blobs, b)
	}
	return blobs, rows.Err()
}

// LatestID returns the greatest set id.
func (s *sqliteStore) LatestID(ctx context.Context) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `SELECT id FROM artifact_sets ORDER BY id DESC LIMIT 1`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("latest set: %w", internalerr.ErrNotFound)
	}
	return id, err
}

// ListSets returns up to limit sets, newest first. limit <= 0 returns all.
func (s *sqliteStore) ListSets(ctx context.Context, limit int) ([]store.SetRecord, error) {
	query := `SELECT id, created_at, manifest FROM artifact_sets ORDER BY id DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.SetRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// DeleteSet removes a set with its blobs and report in one transaction.
// Children are deleted explicitly so the result does not depend on the
// foreign_keys setting of the connection.
func (s *sqliteStore) DeleteSet(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, q := range []string{
		`DELETE FROM artifact_blobs WHERE set_id = ?`,
		`DELETE FROM eval_reports WHERE set_id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			return fmt.Errorf("delete set %s: %w", id, err)
		}
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM artifact_sets WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("set %s: %w", id, internalerr.ErrNotFound)
	}
	return tx.Commit()
}

// PutReport stores or replaces the evaluation report of a set.
func (s *sqliteStore) PutReport(ctx context.Context, id string, body []byte) error {
	if _, err := s.GetSet(ctx, id); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO eval_reports(set_id, body, updated_at) VALUES(?, ?, ?)
		ON CONFLICT(set_id) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
		id, string(body), time.Now().UTC().Format(time.RFC3339Nano))
	return err
}

// GetReport returns the evaluation report of a set.
func (s *sqliteStore) GetReport(ctx context.Context, id string) ([]byte, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM eval_reports WHERE set_id = ?`, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("report for set %s: %w", id, internalerr.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return []byte(body), nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (store.SetRecord, error) {
	var rec store.SetRecord
	var created, manifest string
	if err := sc.Scan(&rec.ID, &created, &manifest); err != nil {
		return store.SetRecord{}, err
	}
	ts, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(created))
	if err != nil {
		return store.SetRecord{}, fmt.Errorf("set %s: created_at %q: %w", rec.ID, created, err)
	}
	rec.CreatedAt = ts
	rec.Manifest = []byte(manifest)
	return rec, nil
}
