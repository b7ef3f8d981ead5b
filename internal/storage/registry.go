package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"metutor/internal/models"
	"metutor/internal/redis"
)

// ErrNotFound is returned when no upload is recorded under an id.
var ErrNotFound = errors.New("upload not found")

// Registry records stored uploads and when they may be removed.
type Registry interface {
	Record(ctx context.Context, file *models.UploadedFile) error
	Get(ctx context.Context, id string) (*models.UploadedFile, error)
	Expired(ctx context.Context, before time.Time) ([]*models.UploadedFile, error)
	Delete(ctx context.Context, id string) error
}

// SQLRegistry keeps upload records in the uploads table.
type SQLRegistry struct {
	db *sql.DB
}

func NewSQLRegistry(db *sql.DB) *SQLRegistry {
	return &SQLRegistry{db: db}
}

func (r *SQLRegistry) Record(ctx context.Context, file *models.UploadedFile) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO uploads (id, original_name, stored_path, mime_type, size, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		file.ID, file.OriginalName, file.StoredPath, file.MimeType, file.Size,
		file.CreatedAt.UTC(), file.ExpiresAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("record upload %s: %w", file.ID, err)
	}
	return nil
}

func (r *SQLRegistry) Get(ctx context.Context, id string) (*models.UploadedFile, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, original_name, stored_path, mime_type, size, created_at, expires_at
		 FROM uploads WHERE id = ?`, id)
	file, err := scanUpload(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get upload %s: %w", id, err)
	}
	return file, nil
}

func (r *SQLRegistry) Expired(ctx context.Context, before time.Time) ([]*models.UploadedFile, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, original_name, stored_path, mime_type, size, created_at, expires_at
		 FROM uploads WHERE expires_at <= ? ORDER BY expires_at`, before.UTC())
	if err != nil {
		return nil, fmt.Errorf("list expired uploads: %w", err)
	}
	defer rows.Close()

	var files []*models.UploadedFile
	for rows.Next() {
		file, err := scanUpload(rows)
		if err != nil {
			return nil, fmt.Errorf("scan upload: %w", err)
		}
		files = append(files, file)
	}
	return files, rows.Err()
}

func (r *SQLRegistry) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM uploads WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete upload %s: %w", id, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUpload(row rowScanner) (*models.UploadedFile, error) {
	var f models.UploadedFile
	if err := row.Scan(&f.ID, &f.OriginalName, &f.StoredPath, &f.MimeType, &f.Size, &f.CreatedAt, &f.ExpiresAt); err != nil {
		return nil, err
	}
	return &f, nil
}

const (
	redisExpiryIndex = "uploads:expiry"
	redisKeyPrefix   = "upload:"
)

// RedisRegistry stores one hash per upload plus a sorted set scored by expiry.
type RedisRegistry struct {
	client *redis.Client
}

func NewRedisRegistry(client *redis.Client) *RedisRegistry {
	return &RedisRegistry{client: client}
}

func (r *RedisRegistry) Record(ctx context.Context, file *models.UploadedFile) error {
	fields := map[string]string{
		"id":            file.ID,
		"original_name": file.OriginalName,
		"stored_path":   file.StoredPath,
		"mime_type":     file.MimeType,
		"size":          strconv.FormatInt(file.Size, 10),
		"created_at":    file.CreatedAt.UTC().Format(time.RFC3339Nano),
		"expires_at":    file.ExpiresAt.UTC().Format(time.RFC3339Nano),
	}
	score := float64(file.ExpiresAt.Unix())
	if err := r.client.PutIndexed(ctx, redisKeyPrefix+file.ID, fields, redisExpiryIndex, score); err != nil {
		return fmt.Errorf("record upload %s: %w", file.ID, err)
	}
	return nil
}

func (r *RedisRegistry) Get(ctx context.Context, id string) (*models.UploadedFile, error) {
	fields, err := r.client.HGetAll(ctx, redisKeyPrefix+id)
	if errors.Is(err, redis.ErrCacheMiss) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get upload %s: %w", id, err)
	}
	return uploadFromHash(fields)
}

func (r *RedisRegistry) Expired(ctx context.Context, before time.Time) ([]*models.UploadedFile, error) {
	keys, err := r.client.IndexedBefore(ctx, redisExpiryIndex, float64(before.Unix()))
	if err != nil {
		return nil, fmt.Errorf("list expired uploads: %w", err)
	}
	files := make([]*models.UploadedFile, 0, len(keys))
	for _, key := range keys {
		fields, err := r.client.HGetAll(ctx, key)
		if errors.Is(err, redis.ErrCacheMiss) {
			// hash gone but index entry left behind
			_ = r.client.DelIndexed(ctx, redisExpiryIndex, key)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load upload %s: %w", key, err)
		}
		file, err := uploadFromHash(fields)
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}
	return files, nil
}

func (r *RedisRegistry) Delete(ctx context.Context, id string) error {
	if err := r.client.DelIndexed(ctx, redisExpiryIndex, redisKeyPrefix+id); err != nil {
		return fmt.Errorf("delete upload %s: %w", id, err)
	}
	return nil
}

func uploadFromHash(fields map[string]string) (*models.UploadedFile, error) {
	size, err := strconv.ParseInt(fields["size"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse upload size: %w", err)
	}
	created, err := time.Parse(time.RFC3339Nano, fields["created_at"])
	if err != nil {
		return nil, fmt.Errorf("parse upload created_at: %w", err)
	}
	expires, err := time.Parse(time.RFC3339Nano, fields["expires_at"])
	if err != nil {
		return nil, fmt.Errorf("parse upload expires_at: %w", err)
	}
	return &models.UploadedFile{
		ID:           fields["id"],
		OriginalName: fields["original_name"],
		StoredPath:   fields["stored_path"],
		MimeType:     fields["mime_type"],
		Size:         size,
		CreatedAt:    created,
		ExpiresAt:    expires,
	}, nil
}

// MemoryRegistry is the in-process registry used when no backend is configured.
type MemoryRegistry struct {
	mu    sync.RWMutex
	files map[string]models.UploadedFile
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{files: make(map[string]models.UploadedFile)}
}

func (r *MemoryRegistry) Record(_ context.Context, file *models.UploadedFile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.files[file.ID] = *file
	return nil
}

func (r *MemoryRegistry) Get(_ context.Context, id string) (*models.UploadedFile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	file, ok := r.files[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &file, nil
}

func (r *MemoryRegistry) Expired(_ context.Context, before time.Time) ([]*models.UploadedFile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var files []*models.UploadedFile
	for _, file := range r.files {
		if file.Expired(before) {
			f := file
			files = append(files, &f)
		}
	}
	sort.Slice(files, func(i, j int) bool { return files[i].ExpiresAt.Before(files[j].ExpiresAt) })
	return files, nil
}

func (r *MemoryRegistry) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.files, id)
	return nil
}
