package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/henrlaas/medialib/data"
	sqlitedriver "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

func (sb *SQLiteBackend) UpsertMetadata(ctx context.Context, meta *data.MediaMetadata) error {
	if meta.UploadDate.IsZero() {
		meta.UploadDate = time.Now().UTC()
	}

	tags, err := json.Marshal(data.NormalizeTags(meta.Tags))
	if err != nil {
		return err
	}

	_, err = sb.db.ExecContext(ctx, `
		INSERT INTO media_metadata (id, bucket_id, file_path, original_name, mime_type, file_size, tags, uploaded_by, upload_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (bucket_id, file_path) DO UPDATE SET
			id = excluded.id,
			original_name = excluded.original_name,
			mime_type = excluded.mime_type,
			file_size = excluded.file_size,
			tags = excluded.tags,
			uploaded_by = excluded.uploaded_by,
			upload_date = excluded.upload_date
	`, meta.ID, meta.BucketID, meta.FilePath, meta.OriginalName,
		nullString(meta.MimeType), meta.FileSize, string(tags),
		nullString(meta.UploadedBy), meta.UploadDate.UnixMilli())

	return wrapError(err, "upsert metadata")
}

func (sb *SQLiteBackend) GetMetadata(ctx context.Context, bucket, filePath string) (*data.MediaMetadata, error) {
	row := sb.db.QueryRowContext(ctx, `
		SELECT id, bucket_id, file_path, original_name, mime_type, file_size, tags, uploaded_by, upload_date
		FROM media_metadata WHERE bucket_id = ? AND file_path = ?
	`, bucket, filePath)

	meta, err := scanMetadata(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, data.ErrNotExist
	}
	if err != nil {
		return nil, wrapError(err, "get metadata")
	}

	return meta, nil
}

func (sb *SQLiteBackend) DeleteMetadata(ctx context.Context, bucket, filePath string) error {
	_, err := sb.db.ExecContext(ctx, `
		DELETE FROM media_metadata WHERE bucket_id = ? AND file_path = ?
	`, bucket, filePath)

	return wrapError(err, "delete metadata")
}

func (sb *SQLiteBackend) RenameMetadata(ctx context.Context, bucket, srcPath, dstPath string) error {
	tx, err := sb.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapError(err, "rename metadata")
	}
	defer tx.Rollback()

	statements := []struct {
		query string
		args  []any
	}{
		// The id stays with the row, a stale row at dstPath would collide on the path key
		{`DELETE FROM media_metadata WHERE bucket_id = ? AND file_path = ?
			AND EXISTS (SELECT 1 FROM media_metadata WHERE bucket_id = ? AND file_path = ?)`,
			[]any{bucket, dstPath, bucket, srcPath}},
		{`UPDATE media_metadata SET file_path = ? WHERE bucket_id = ? AND file_path = ?`,
			[]any{dstPath, bucket, srcPath}},
		{`INSERT INTO media_favorites (user_id, bucket_id, file_path, created_at)
			SELECT user_id, bucket_id, ?, created_at FROM media_favorites WHERE bucket_id = ? AND file_path = ?
			ON CONFLICT (user_id, bucket_id, file_path) DO NOTHING`,
			[]any{dstPath, bucket, srcPath}},
		{`DELETE FROM media_favorites WHERE bucket_id = ? AND file_path = ?`,
			[]any{bucket, srcPath}},
	}

	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt.query, stmt.args...); err != nil {
			return wrapError(err, "rename metadata")
		}
	}

	return wrapError(tx.Commit(), "rename metadata")
}

func (sb *SQLiteBackend) ListMetadata(ctx context.Context, bucket, prefix string) ([]*data.MediaMetadata, error) {
	query := `
		SELECT id, bucket_id, file_path, original_name, mime_type, file_size, tags, uploaded_by, upload_date
		FROM media_metadata WHERE bucket_id = ?`
	args := []any{bucket}

	if prefix != "" {
		dirPrefix := data.DirPrefix(prefix)
		query += ` AND (file_path = ? OR substr(file_path, 1, length(?)) = ?)`
		args = append(args, prefix, dirPrefix, dirPrefix)
	}
	query += ` ORDER BY file_path`

	rows, err := sb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapError(err, "list metadata")
	}
	defer rows.Close()

	var result []*data.MediaMetadata
	for rows.Next() {
		meta, err := scanMetadata(rows)
		if err != nil {
			return nil, fmt.Errorf("list metadata: %w", err)
		}
		result = append(result, meta)
	}

	if err := rows.Err(); err != nil {
		return nil, wrapError(err, "list metadata")
	}
	return result, nil
}

func (sb *SQLiteBackend) UpsertFavorite(ctx context.Context, mark *data.FavoriteMark) error {
	createdAt := mark.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := sb.db.ExecContext(ctx, `
		INSERT INTO media_favorites (user_id, bucket_id, file_path, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id, bucket_id, file_path) DO NOTHING
	`, mark.UserID, mark.BucketID, mark.FilePath, createdAt.UnixMilli())

	return wrapError(err, "upsert favorite")
}

func (sb *SQLiteBackend) DeleteFavorite(ctx context.Context, userID, bucket, filePath string) error {
	_, err := sb.db.ExecContext(ctx, `
		DELETE FROM media_favorites WHERE user_id = ? AND bucket_id = ? AND file_path = ?
	`, userID, bucket, filePath)

	return wrapError(err, "delete favorite")
}

func (sb *SQLiteBackend) ListFavorites(ctx context.Context, userID, bucket string) ([]*data.FavoriteMark, error) {
	rows, err := sb.db.QueryContext(ctx, `
		SELECT user_id, bucket_id, file_path, created_at
		FROM media_favorites WHERE user_id = ? AND bucket_id = ?
		ORDER BY file_path
	`, userID, bucket)
	if err != nil {
		return nil, wrapError(err, "list favorites")
	}
	defer rows.Close()

	var result []*data.FavoriteMark
	for rows.Next() {
		var mark data.FavoriteMark
		var createdAt int64

		if err := rows.Scan(&mark.UserID, &mark.BucketID, &mark.FilePath, &createdAt); err != nil {
			return nil, fmt.Errorf("list favorites: %w", err)
		}

		mark.CreatedAt = time.UnixMilli(createdAt).UTC()
		result = append(result, &mark)
	}

	if err := rows.Err(); err != nil {
		return nil, wrapError(err, "list favorites")
	}
	return result, nil
}

func (sb *SQLiteBackend) DeleteFavorites(ctx context.Context, bucket, filePath string) error {
	_, err := sb.db.ExecContext(ctx, `
		DELETE FROM media_favorites WHERE bucket_id = ? AND file_path = ?
	`, bucket, filePath)

	return wrapError(err, "delete favorites")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMetadata(row rowScanner) (*data.MediaMetadata, error) {
	var meta data.MediaMetadata
	var mimeType, tags, uploadedBy sql.NullString
	var uploadDate int64

	if err := row.Scan(&meta.ID, &meta.BucketID, &meta.FilePath, &meta.OriginalName,
		&mimeType, &meta.FileSize, &tags, &uploadedBy, &uploadDate); err != nil {
		return nil, err
	}

	meta.MimeType = mimeType.String
	meta.UploadedBy = uploadedBy.String
	meta.UploadDate = time.UnixMilli(uploadDate).UTC()

	meta.Tags = make([]string, 0)
	if tags.Valid && tags.String != "" {
		if err := json.Unmarshal([]byte(tags.String), &meta.Tags); err != nil {
			return nil, fmt.Errorf("%w: tags of '%s': %v", data.ErrMetadataInconsistency, meta.FilePath, err)
		}
	}

	return &meta, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// wrapError reports driver and connection failures as data.ErrStoreUnavailable.
// Errors raised by the statement itself, such as constraint violations, are returned unwrapped.
func wrapError(err error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, data.ErrMetadataInconsistency) {
		return fmt.Errorf("%s: %w", op, err)
	}

	var serr *sqlitedriver.Error
	if errors.As(err, &serr) {
		switch serr.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED, sqlite3.SQLITE_IOERR, sqlite3.SQLITE_CANTOPEN,
			sqlite3.SQLITE_FULL, sqlite3.SQLITE_PROTOCOL, sqlite3.SQLITE_NOTADB, sqlite3.SQLITE_CORRUPT:
			return data.Unavailable(err, op)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	// database/sql failures such as a closed pool or a bad connection
	return data.Unavailable(err, op)
}
