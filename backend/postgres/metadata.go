package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/henrlaas/medialib/data"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const metadataColumns = `id, bucket_id, file_path, original_name, mime_type, file_size, tags, uploaded_by, upload_date`

func (pb *PostgresBackend) UpsertMetadata(ctx context.Context, meta *data.MediaMetadata) error {
	if meta.UploadDate.IsZero() {
		meta.UploadDate = time.Now().UTC()
	}

	_, err := pb.pool.Exec(ctx, `
		INSERT INTO media_metadata (`+metadataColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (bucket_id, file_path) DO UPDATE SET
			id = EXCLUDED.id,
			original_name = EXCLUDED.original_name,
			mime_type = EXCLUDED.mime_type,
			file_size = EXCLUDED.file_size,
			tags = EXCLUDED.tags,
			uploaded_by = EXCLUDED.uploaded_by,
			upload_date = EXCLUDED.upload_date
	`, meta.ID, meta.BucketID, meta.FilePath, meta.OriginalName,
		nullString(meta.MimeType), meta.FileSize, data.NormalizeTags(meta.Tags),
		nullString(meta.UploadedBy), meta.UploadDate)

	return wrapError(err, "upsert metadata")
}

func (pb *PostgresBackend) GetMetadata(ctx context.Context, bucket, filePath string) (*data.MediaMetadata, error) {
	row := pb.pool.QueryRow(ctx, `
		SELECT `+metadataColumns+`
		FROM media_metadata WHERE bucket_id = $1 AND file_path = $2
	`, bucket, filePath)

	meta, err := scanMetadata(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, data.ErrNotExist
	}
	if err != nil {
		return nil, wrapError(err, "get metadata")
	}

	return meta, nil
}

func (pb *PostgresBackend) DeleteMetadata(ctx context.Context, bucket, filePath string) error {
	_, err := pb.pool.Exec(ctx, `
		DELETE FROM media_metadata WHERE bucket_id = $1 AND file_path = $2
	`, bucket, filePath)

	return wrapError(err, "delete metadata")
}

func (pb *PostgresBackend) RenameMetadata(ctx context.Context, bucket, srcPath, dstPath string) error {
	err := pgx.BeginFunc(ctx, pb.pool, func(tx pgx.Tx) error {
		// The id stays with the row, a stale row at dstPath would collide on the path key
		if _, err := tx.Exec(ctx, `
			DELETE FROM media_metadata WHERE bucket_id = $1 AND file_path = $2
			AND EXISTS (SELECT 1 FROM media_metadata WHERE bucket_id = $1 AND file_path = $3)
		`, bucket, dstPath, srcPath); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			UPDATE media_metadata SET file_path = $1 WHERE bucket_id = $2 AND file_path = $3
		`, dstPath, bucket, srcPath); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO media_favorites (user_id, bucket_id, file_path, created_at)
			SELECT user_id, bucket_id, $1, created_at FROM media_favorites WHERE bucket_id = $2 AND file_path = $3
			ON CONFLICT (user_id, bucket_id, file_path) DO NOTHING
		`, dstPath, bucket, srcPath); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `
			DELETE FROM media_favorites WHERE bucket_id = $1 AND file_path = $2
		`, bucket, srcPath)
		return err
	})

	return wrapError(err, "rename metadata")
}

func (pb *PostgresBackend) ListMetadata(ctx context.Context, bucket, prefix string) ([]*data.MediaMetadata, error) {
	query := `SELECT ` + metadataColumns + ` FROM media_metadata WHERE bucket_id = $1`
	args := []any{bucket}

	if prefix != "" {
		query += ` AND (file_path = $2 OR starts_with(file_path, $3))`
		args = append(args, prefix, data.DirPrefix(prefix))
	}
	query += ` ORDER BY file_path`

	rows, err := pb.pool.Query(ctx, query, args...)
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

func (pb *PostgresBackend) UpsertFavorite(ctx context.Context, mark *data.FavoriteMark) error {
	createdAt := mark.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := pb.pool.Exec(ctx, `
		INSERT INTO media_favorites (user_id, bucket_id, file_path, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, bucket_id, file_path) DO NOTHING
	`, mark.UserID, mark.BucketID, mark.FilePath, createdAt)

	return wrapError(err, "upsert favorite")
}

func (pb *PostgresBackend) DeleteFavorite(ctx context.Context, userID, bucket, filePath string) error {
	_, err := pb.pool.Exec(ctx, `
		DELETE FROM media_favorites WHERE user_id = $1 AND bucket_id = $2 AND file_path = $3
	`, userID, bucket, filePath)

	return wrapError(err, "delete favorite")
}

func (pb *PostgresBackend) ListFavorites(ctx context.Context, userID, bucket string) ([]*data.FavoriteMark, error) {
	rows, err := pb.pool.Query(ctx, `
		SELECT user_id, bucket_id, file_path, created_at
		FROM media_favorites WHERE user_id = $1 AND bucket_id = $2
		ORDER BY file_path
	`, userID, bucket)
	if err != nil {
		return nil, wrapError(err, "list favorites")
	}
	defer rows.Close()

	var result []*data.FavoriteMark
	for rows.Next() {
		var mark data.FavoriteMark
		if err := rows.Scan(&mark.UserID, &mark.BucketID, &mark.FilePath, &mark.CreatedAt); err != nil {
			return nil, fmt.Errorf("list favorites: %w", err)
		}
		result = append(result, &mark)
	}

	if err := rows.Err(); err != nil {
		return nil, wrapError(err, "list favorites")
	}
	return result, nil
}

func (pb *PostgresBackend) DeleteFavorites(ctx context.Context, bucket, filePath string) error {
	_, err := pb.pool.Exec(ctx, `
		DELETE FROM media_favorites WHERE bucket_id = $1 AND file_path = $2
	`, bucket, filePath)

	return wrapError(err, "delete favorites")
}

func scanMetadata(row pgx.Row) (*data.MediaMetadata, error) {
	var meta data.MediaMetadata
	var mimeType, uploadedBy *string

	if err := row.Scan(&meta.ID, &meta.BucketID, &meta.FilePath, &meta.OriginalName,
		&mimeType, &meta.FileSize, &meta.Tags, &uploadedBy, &meta.UploadDate); err != nil {
		return nil, err
	}

	if mimeType != nil {
		meta.MimeType = *mimeType
	}
	if uploadedBy != nil {
		meta.UploadedBy = *uploadedBy
	}
	if meta.Tags == nil {
		meta.Tags = make([]string, 0)
	}
	meta.UploadDate = meta.UploadDate.UTC()

	return &meta, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// wrapError reports connection and pool failures as data.ErrStoreUnavailable.
// Errors the server raised for the statement itself, such as constraint violations,
// are returned unwrapped.
func wrapError(err error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// Class 08 connection exception, 53 insufficient resources, 57 operator intervention
		switch pgErr.Code[:2] {
		case "08", "53", "57":
			return data.Unavailable(err, op)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	return data.Unavailable(err, op)
}
