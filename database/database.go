// Package database is the persistent record store for the media library:
// per-item metadata, the fingerprint field, and tag assignments, backed by
// SQLite.
package database

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"medialib/types"
)

// Store wraps the SQLite connection. All reads exclude items flagged
// unusable unless stated otherwise.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the library database at the given path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func initSchema(db *sql.DB) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS media (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		path TEXT NOT NULL UNIQUE,
		kind TEXT NOT NULL,
		size INTEGER NOT NULL DEFAULT 0,
		duration REAL NOT NULL DEFAULT 0,
		content_hash TEXT NOT NULL DEFAULT '',
		fingerprint TEXT NOT NULL DEFAULT '',
		excluded INTEGER NOT NULL DEFAULT 0,
		added_at TEXT NOT NULL,
		modified_at TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_media_fingerprint ON media(fingerprint);
	CREATE INDEX IF NOT EXISTS idx_media_content_hash ON media(content_hash);
	CREATE TABLE IF NOT EXISTS tags (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE
	);
	CREATE TABLE IF NOT EXISTS media_tags (
		media_id INTEGER NOT NULL,
		tag_id INTEGER NOT NULL,
		UNIQUE(media_id, tag_id)
	);
	CREATE INDEX IF NOT EXISTS idx_media_tags_tag ON media_tags(tag_id);`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

const mediaColumns = "id, path, kind, size, duration, content_hash, fingerprint, excluded, added_at, modified_at"

func scanRecord(row interface{ Scan(...any) error }) (types.MediaRecord, error) {
	var rec types.MediaRecord
	var kind string
	var excluded int
	err := row.Scan(&rec.ID, &rec.Path, &kind, &rec.Size, &rec.Duration,
		&rec.ContentHash, &rec.Fingerprint, &excluded, &rec.AddedAt, &rec.ModifiedAt)
	if err != nil {
		return rec, err
	}
	rec.Kind = types.MediaKind(kind)
	rec.Excluded = excluded != 0
	return rec, nil
}

// UpsertMedia inserts a media record or refreshes an existing one by path.
// The stored fingerprint survives a refresh unless clearFingerprint is set
// (a changed or force-rescanned file must be re-hashed). Returns the row id.
func (s *Store) UpsertMedia(rec types.MediaRecord, clearFingerprint bool) (int64, error) {
	if rec.AddedAt == "" {
		rec.AddedAt = time.Now().Format(time.RFC3339)
	}

	fingerprintExpr := "media.fingerprint"
	if clearFingerprint {
		fingerprintExpr = "''"
	}

	query := fmt.Sprintf(`
		INSERT INTO media (path, kind, size, duration, content_hash, fingerprint, excluded, added_at, modified_at)
		VALUES (?, ?, ?, ?, ?, '', 0, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			kind = excluded.kind,
			size = excluded.size,
			duration = excluded.duration,
			content_hash = excluded.content_hash,
			fingerprint = %s,
			modified_at = excluded.modified_at`, fingerprintExpr)

	if _, err := s.db.Exec(query, rec.Path, string(rec.Kind), rec.Size, rec.Duration,
		rec.ContentHash, rec.AddedAt, rec.ModifiedAt); err != nil {
		return 0, fmt.Errorf("upsert media %s: %w", rec.Path, err)
	}

	var id int64
	if err := s.db.QueryRow("SELECT id FROM media WHERE path = ?", rec.Path).Scan(&id); err != nil {
		return 0, fmt.Errorf("resolve media id for %s: %w", rec.Path, err)
	}
	return id, nil
}

// GetMediaByID returns the record or nil when the id is unknown.
func (s *Store) GetMediaByID(id int64) (*types.MediaRecord, error) {
	row := s.db.QueryRow("SELECT "+mediaColumns+" FROM media WHERE id = ?", id)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get media %d: %w", id, err)
	}
	return &rec, nil
}

// GetMediaByPath returns the record or nil when the path is not indexed.
func (s *Store) GetMediaByPath(path string) (*types.MediaRecord, error) {
	row := s.db.QueryRow("SELECT "+mediaColumns+" FROM media WHERE path = ?", path)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get media by path %s: %w", path, err)
	}
	return &rec, nil
}

func (s *Store) listRecords(query string, args ...any) ([]types.MediaRecord, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []types.MediaRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ListFingerprinted returns every usable item that has a fingerprint,
// most recently added first. This ordering is the stable scan key for
// corpus-wide clustering.
func (s *Store) ListFingerprinted() ([]types.MediaRecord, error) {
	records, err := s.listRecords("SELECT " + mediaColumns + ` FROM media
		WHERE excluded = 0 AND fingerprint != ''
		ORDER BY added_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list fingerprinted media: %w", err)
	}
	return records, nil
}

// ListMissingFingerprint returns up to limit usable items that still lack a
// fingerprint, most recently added first. A limit <= 0 means no limit.
func (s *Store) ListMissingFingerprint(limit int) ([]types.MediaRecord, error) {
	query := "SELECT " + mediaColumns + ` FROM media
		WHERE excluded = 0 AND fingerprint = ''
		ORDER BY added_at DESC, id DESC`
	var (
		records []types.MediaRecord
		err     error
	)
	if limit > 0 {
		records, err = s.listRecords(query+" LIMIT ?", limit)
	} else {
		records, err = s.listRecords(query)
	}
	if err != nil {
		return nil, fmt.Errorf("list media missing fingerprint: %w", err)
	}
	return records, nil
}

// ListContentHashed returns usable items that carry a strong content hash,
// ordered by hash so equal hashes sit adjacent for grouping.
func (s *Store) ListContentHashed() ([]types.MediaRecord, error) {
	records, err := s.listRecords("SELECT " + mediaColumns + ` FROM media
		WHERE excluded = 0 AND content_hash != ''
		ORDER BY content_hash, id`)
	if err != nil {
		return nil, fmt.Errorf("list content-hashed media: %w", err)
	}
	return records, nil
}

// SetFingerprint persists the perceptual hash for one item, overwriting any
// previous value.
func (s *Store) SetFingerprint(id int64, fingerprint string) error {
	res, err := s.db.Exec("UPDATE media SET fingerprint = ? WHERE id = ?", fingerprint, id)
	if err != nil {
		return fmt.Errorf("set fingerprint for media %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set fingerprint for media %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("media %d not found", id)
	}
	return nil
}

// SetExcluded flags or unflags an item as unusable. Excluded items drop out
// of every corpus scan; clearing the flag makes a failed item eligible for
// backfill again.
func (s *Store) SetExcluded(id int64, excluded bool) error {
	v := 0
	if excluded {
		v = 1
	}
	res, err := s.db.Exec("UPDATE media SET excluded = ? WHERE id = ?", v, id)
	if err != nil {
		return fmt.Errorf("set excluded for media %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set excluded for media %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("media %d not found", id)
	}
	return nil
}

// CountMedia counts usable items.
func (s *Store) CountMedia() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM media WHERE excluded = 0").Scan(&n); err != nil {
		return 0, fmt.Errorf("count media: %w", err)
	}
	return n, nil
}

// CountFingerprinted counts usable items that have a fingerprint.
func (s *Store) CountFingerprinted() (int, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM media WHERE excluded = 0 AND fingerprint != ''").Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count fingerprinted media: %w", err)
	}
	return n, nil
}
