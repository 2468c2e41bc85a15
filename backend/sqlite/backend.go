package sqlite

import (
	"context"
	"database/sql"
	"sync"

	"github.com/henrlaas/medialib/backend"
	"github.com/henrlaas/medialib/data"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteBackend provides the metadata index on top of SQLite.
//
// Table media_metadata holds one row per uploaded object keyed by (bucket_id, file_path).
// Table media_favorites holds one row per (user_id, bucket_id, file_path) favorite mark.
type SQLiteBackend struct {
	mu sync.RWMutex
	db *sql.DB
}

// NewSQLiteBackend creates a new SQLite-backed metadata index.
// The dbPath can be ":memory:" for an in-memory database or a file path.
func NewSQLiteBackend(dbPath string) (*SQLiteBackend, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	// Every connection to ":memory:" opens its own database
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, err
	}

	backend := &SQLiteBackend{
		db: db,
	}

	if err := backend.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return backend, nil
}

// initSchema creates the database schema.
func (sb *SQLiteBackend) initSchema() error {
	schema := `
	-- Metadata index
	CREATE TABLE IF NOT EXISTS media_metadata (
		id TEXT NOT NULL,
		bucket_id TEXT NOT NULL,
		file_path TEXT NOT NULL,
		original_name TEXT NOT NULL,
		mime_type TEXT,
		file_size INTEGER NOT NULL DEFAULT 0,
		tags TEXT,
		uploaded_by TEXT,
		upload_date INTEGER NOT NULL,
		PRIMARY KEY (bucket_id, file_path)
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_media_metadata_id ON media_metadata(id);

	-- Favorite marks
	CREATE TABLE IF NOT EXISTS media_favorites (
		user_id TEXT NOT NULL,
		bucket_id TEXT NOT NULL,
		file_path TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		PRIMARY KEY (user_id, bucket_id, file_path)
	);
	CREATE INDEX IF NOT EXISTS idx_media_favorites_file ON media_favorites(bucket_id, file_path);
	`

	_, err := sb.db.Exec(schema)
	return err
}

// Name returns the identifier name defined for this backend
func (*SQLiteBackend) Name() string {
	return "sqlite"
}

// Open is part of the lifecycle behaviour and gets called when opening this backend.
func (sb *SQLiteBackend) Open(ctx context.Context) error {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	// Verify database connection
	if err := sb.db.PingContext(ctx); err != nil {
		return data.Unavailable(err, "ping")
	}

	return nil
}

// Close is part of the lifecycle behaviour and gets called when closing this backend.
func (sb *SQLiteBackend) Close(ctx context.Context) error {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	return sb.db.Close()
}

// GetCapabilities returns a list of capabilities supported by this backend.
func (sb *SQLiteBackend) GetCapabilities() *backend.BackendCapabilities {
	return &backend.BackendCapabilities{
		Capabilities: []backend.BackendCapability{
			backend.CapabilityMetadata,
		},
	}
}
