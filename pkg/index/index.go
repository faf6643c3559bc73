// Package index provides the durable archive index.
//
// The index is the source of dedup truth: a media record proves its item was
// successfully downloaded at least once, and the recorded local path is
// authoritative and never recomputed. Records are append-only; the index
// exposes no update or delete operations.
//
// The backing store is a SQLite file in the archive root. The schema is
// stable across versions; first open creates two empty tables (media,
// albums), later opens use them unchanged.
package index

import (
	"database/sql"
	"fmt"
	"path/filepath"

	_ "modernc.org/sqlite" // SQLite driver
)

// Filename is the fixed name of the index database inside the archive root.
const Filename = "database.sqlite3"

const schema = `
CREATE TABLE IF NOT EXISTS media (
    uuid TEXT,
    path TEXT,
    album_uuid TEXT
);

CREATE INDEX IF NOT EXISTS idx_media_uuid ON media(uuid);

CREATE TABLE IF NOT EXISTS albums (
    uuid TEXT,
    path TEXT,
    title TEXT,
    is_shared INTEGER
);

CREATE INDEX IF NOT EXISTS idx_albums_uuid ON albums(uuid);
`

// MediaRecord is a persisted item record. AlbumID is empty for items that
// belong to the library or favorites rather than an album.
type MediaRecord struct {
	ItemID  string
	Path    string
	AlbumID string
}

// AlbumRecord is a persisted album record. The directory path is fixed at
// first encounter and reused on all later runs regardless of upstream title
// changes.
type AlbumRecord struct {
	AlbumID  string
	Path     string
	Title    string
	IsShared bool
}

// Index wraps the SQLite database holding media and album records.
type Index struct {
	db   *sql.DB
	path string
}

// Open opens (or creates) the index database inside the given archive root.
//
// The index receives writes from a single goroutine (the pool-draining loop),
// so a single connection is enough; SQLite's busy timeout covers the rare
// overlap with concurrent lookups.
func Open(rootDir string) (*Index, error) {
	path := filepath.Join(rootDir, Filename)

	db, err := sql.Open("sqlite", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open index database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize index schema: %w", err)
	}

	return &Index{db: db, path: path}, nil
}

// Close closes the underlying database.
func (ix *Index) Close() error {
	return ix.db.Close()
}

// Path returns the index database file path.
func (ix *Index) Path() string {
	return ix.path
}

// LookupItem returns the record for an item ID, or nil if the item has never
// been archived.
func (ix *Index) LookupItem(itemID string) (*MediaRecord, error) {
	var rec MediaRecord
	var albumID sql.NullString

	err := ix.db.QueryRow(
		`SELECT uuid, path, album_uuid FROM media WHERE uuid = ?`, itemID,
	).Scan(&rec.ItemID, &rec.Path, &albumID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query media record: %w", err)
	}

	if albumID.Valid {
		rec.AlbumID = albumID.String
	}
	return &rec, nil
}

// LookupAlbum returns the record for an album ID, or nil if the album has
// never been seen.
func (ix *Index) LookupAlbum(albumID string) (*AlbumRecord, error) {
	var rec AlbumRecord
	var shared int

	err := ix.db.QueryRow(
		`SELECT uuid, path, title, is_shared FROM albums WHERE uuid = ?`, albumID,
	).Scan(&rec.AlbumID, &rec.Path, &rec.Title, &shared)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query album record: %w", err)
	}

	rec.IsShared = shared != 0
	return &rec, nil
}

// RecordItem inserts a media record. Callers must have checked LookupItem
// first; the index does not enforce uniqueness itself.
func (ix *Index) RecordItem(itemID, path, albumID string) error {
	var album interface{}
	if albumID != "" {
		album = albumID
	}
	if _, err := ix.db.Exec(
		`INSERT INTO media (uuid, path, album_uuid) VALUES (?, ?, ?)`,
		itemID, path, album,
	); err != nil {
		return fmt.Errorf("failed to insert media record: %w", err)
	}
	return nil
}

// RecordAlbum inserts an album record. Callers must have checked LookupAlbum
// first.
func (ix *Index) RecordAlbum(albumID, path, title string, isShared bool) error {
	shared := 0
	if isShared {
		shared = 1
	}
	if _, err := ix.db.Exec(
		`INSERT INTO albums (uuid, path, title, is_shared) VALUES (?, ?, ?, ?)`,
		albumID, path, title, shared,
	); err != nil {
		return fmt.Errorf("failed to insert album record: %w", err)
	}
	return nil
}

// ItemCount returns the number of media records. Used for reporting.
func (ix *Index) ItemCount() (int, error) {
	var n int
	if err := ix.db.QueryRow(`SELECT COUNT(*) FROM media`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count media records: %w", err)
	}
	return n, nil
}

// AlbumCount returns the number of album records.
func (ix *Index) AlbumCount() (int, error) {
	var n int
	if err := ix.db.QueryRow(`SELECT COUNT(*) FROM albums`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count album records: %w", err)
	}
	return n, nil
}
