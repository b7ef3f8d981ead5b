// Package upload stores files received from the browser and extracts their text.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"metutor/internal/models"
	"metutor/internal/service/extract"
	"metutor/internal/storage"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var (
	ErrNoFile          = errors.New("no file uploaded")
	ErrFileTooLarge    = errors.New("file too large")
	ErrInvalidFileType = errors.New("unsupported file type")
)

const (
	DefaultMaxBytes = 50 << 20
	DefaultTTL      = 24 * time.Hour
)

var allowedTypes = map[string]struct{}{
	"application/pdf":    {},
	"text/plain":         {},
	"application/msword": {},
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": {},
	"image/jpeg":      {},
	"image/png":       {},
	"image/gif":       {},
	"video/mp4":       {},
	"video/avi":       {},
	"video/quicktime": {},
	"audio/mpeg":      {},
	"audio/wav":       {},
}

// Allowed reports whether mimeType is on the upload allow-list.
func Allowed(mimeType string) bool {
	_, ok := allowedTypes[baseType(mimeType)]
	return ok
}

// Extractor turns a stored file into text.
type Extractor interface {
	Extract(ctx context.Context, path, mimeType string) (*models.ExtractionResult, error)
	Supports(mimeType string) bool
}

type Options struct {
	Dir      string
	MaxBytes int64
	TTL      time.Duration
}

type Service struct {
	dir       string
	maxBytes  int64
	ttl       time.Duration
	registry  storage.Registry
	extractor Extractor
	now       func() time.Time
}

func NewService(opts Options, registry storage.Registry, extractor Extractor) *Service {
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxBytes
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	return &Service{
		dir:       opts.Dir,
		maxBytes:  opts.MaxBytes,
		ttl:       opts.TTL,
		registry:  registry,
		extractor: extractor,
		now:       time.Now,
	}
}

// MaxBytes is the largest accepted upload.
func (s *Service) MaxBytes() int64 { return s.maxBytes }

// Dir is where uploads are written.
func (s *Service) Dir() string { return s.dir }

type Result struct {
	File       *models.UploadedFile
	Extraction *models.ExtractionResult
}

// Process validates, stores, records and extracts one uploaded file.
// Size, type and extractor support are checked before anything touches the disk.
func (s *Service) Process(ctx context.Context, fh *multipart.FileHeader) (*Result, error) {
	if fh == nil {
		return nil, ErrNoFile
	}
	if fh.Size > s.maxBytes {
		return nil, fmt.Errorf("%w: %s exceeds the %s limit", ErrFileTooLarge,
			humanize.IBytes(uint64(fh.Size)), humanize.IBytes(uint64(s.maxBytes)))
	}

	mimeType, err := declaredOrSniffed(fh)
	if err != nil {
		return nil, err
	}
	if !Allowed(mimeType) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidFileType, mimeType)
	}
	// allowed types without an extractor (Word documents) are never stored
	if !s.extractor.Supports(mimeType) {
		return nil, fmt.Errorf("%w: %s", extract.ErrUnsupportedType, mimeType)
	}

	file, err := s.store(ctx, fh, mimeType)
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("file_id", file.ID).
		Str("mime", file.MimeType).
		Str("size", humanize.IBytes(uint64(file.Size))).
		Msg("upload stored")

	extraction, err := s.extractor.Extract(ctx, file.StoredPath, file.MimeType)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", file.ID, err)
	}
	return &Result{File: file, Extraction: extraction}, nil
}

func (s *Service) store(ctx context.Context, fh *multipart.FileHeader, mimeType string) (*models.UploadedFile, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	id := "file-" + uuid.NewString() + strings.ToLower(filepath.Ext(fh.Filename))
	dest := filepath.Join(s.dir, id)

	src, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()
	dst, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", id, err)
	}
	written, err := io.Copy(dst, src)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(dest)
		return nil, fmt.Errorf("write %s: %w", id, err)
	}

	now := s.now().UTC()
	file := &models.UploadedFile{
		ID:           id,
		OriginalName: filepath.Base(fh.Filename),
		StoredPath:   dest,
		MimeType:     mimeType,
		Size:         written,
		CreatedAt:    now,
		ExpiresAt:    now.Add(s.ttl),
	}
	if err := s.registry.Record(ctx, file); err != nil {
		_ = os.Remove(dest)
		return nil, err
	}
	return file, nil
}

// Get returns the metadata of a stored upload that has not expired yet.
func (s *Service) Get(ctx context.Context, id string) (*models.UploadedFile, error) {
	file, err := s.registry.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if file.Expired(s.now()) {
		return nil, storage.ErrNotFound
	}
	return file, nil
}

// declaredOrSniffed prefers the part's Content-Type and sniffs the bytes
// when the client sent none or a generic one.
func declaredOrSniffed(fh *multipart.FileHeader) (string, error) {
	declared := baseType(fh.Header.Get("Content-Type"))
	if declared != "" && declared != "application/octet-stream" {
		return declared, nil
	}
	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()
	mt, err := mimetype.DetectReader(f)
	if err != nil {
		return "", fmt.Errorf("detect content type: %w", err)
	}
	return baseType(mt.String()), nil
}

func baseType(mimeType string) string {
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}
