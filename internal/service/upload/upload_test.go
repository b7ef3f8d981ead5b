package upload

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"metutor/internal/models"
	"metutor/internal/service/extract"
	"metutor/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingExtractor struct {
	result *models.ExtractionResult
	err    error
	calls  []string
	// unsupported lists MIME types Supports rejects
	unsupported []string
}

func (r *recordingExtractor) Supports(mimeType string) bool {
	for _, mt := range r.unsupported {
		if mt == mimeType {
			return false
		}
	}
	return true
}

func (r *recordingExtractor) Extract(_ context.Context, path, mimeType string) (*models.ExtractionResult, error) {
	r.calls = append(r.calls, mimeType)
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	return r.result, r.err
}

func fileHeader(t *testing.T, name, contentType string, data []byte) *multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+name+`"`)
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&body, w.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })
	require.Len(t, form.File["file"], 1)
	return form.File["file"][0]
}

func newTestService(t *testing.T, max int64, ex Extractor) (*Service, *storage.MemoryRegistry) {
	t.Helper()
	reg := storage.NewMemoryRegistry()
	svc := NewService(Options{Dir: filepath.Join(t.TempDir(), "uploads"), MaxBytes: max, TTL: time.Hour}, reg, ex)
	return svc, reg
}

var storedName = regexp.MustCompile(`^file-[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}\.txt$`)

func TestProcessStoresRecordsAndExtracts(t *testing.T) {
	ex := &recordingExtractor{result: &models.ExtractionResult{ContentType: models.ContentText, Text: "F = ma"}}
	svc, reg := newTestService(t, 1024, ex)

	res, err := svc.Process(context.Background(), fileHeader(t, "Notes.TXT", "text/plain", []byte("F = ma")))
	require.NoError(t, err)

	assert.Regexp(t, storedName, res.File.ID)
	assert.Equal(t, "Notes.TXT", res.File.OriginalName)
	assert.Equal(t, int64(6), res.File.Size)
	assert.Equal(t, "text/plain", res.File.MimeType)
	assert.Equal(t, "F = ma", res.Extraction.Text)
	assert.FileExists(t, res.File.StoredPath)
	assert.Equal(t, svc.Dir(), filepath.Dir(res.File.StoredPath))

	recorded, err := reg.Get(context.Background(), res.File.ID)
	require.NoError(t, err)
	assert.Equal(t, res.File.StoredPath, recorded.StoredPath)
	assert.WithinDuration(t, recorded.CreatedAt.Add(time.Hour), recorded.ExpiresAt, time.Second)
}

func TestProcessGeneratesDistinctNames(t *testing.T) {
	ex := &recordingExtractor{result: &models.ExtractionResult{ContentType: models.ContentText, Text: "x"}}
	svc, _ := newTestService(t, 1024, ex)

	a, err := svc.Process(context.Background(), fileHeader(t, "same.txt", "text/plain", []byte("a")))
	require.NoError(t, err)
	b, err := svc.Process(context.Background(), fileHeader(t, "same.txt", "text/plain", []byte("b")))
	require.NoError(t, err)
	assert.NotEqual(t, a.File.ID, b.File.ID)
}

func TestProcessRejectsOversizeBeforeExtraction(t *testing.T) {
	ex := &recordingExtractor{}
	svc, _ := newTestService(t, 8, ex)

	_, err := svc.Process(context.Background(), fileHeader(t, "big.txt", "text/plain", bytes.Repeat([]byte("a"), 9)))
	assert.ErrorIs(t, err, ErrFileTooLarge)
	assert.Empty(t, ex.calls)
	assert.NoDirExists(t, svc.Dir())
}

func TestProcessRejectsDisallowedType(t *testing.T) {
	ex := &recordingExtractor{}
	svc, _ := newTestService(t, 1024, ex)

	_, err := svc.Process(context.Background(), fileHeader(t, "run.sh", "application/x-sh", []byte("#!/bin/sh")))
	assert.ErrorIs(t, err, ErrInvalidFileType)
	assert.Empty(t, ex.calls)
	assert.NoDirExists(t, svc.Dir())
}

func TestProcessRejectsTypeWithoutExtractor(t *testing.T) {
	ex := &recordingExtractor{unsupported: []string{"application/msword"}}
	svc, reg := newTestService(t, 1024, ex)

	_, err := svc.Process(context.Background(), fileHeader(t, "report.doc", "application/msword", []byte{0xD0, 0xCF, 0x11, 0xE0}))
	assert.ErrorIs(t, err, extract.ErrUnsupportedType)
	assert.Empty(t, ex.calls)
	assert.NoDirExists(t, svc.Dir())
	expired, err := reg.Expired(context.Background(), time.Now().Add(48*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, expired)
}

func TestProcessSniffsGenericContentType(t *testing.T) {
	ex := &recordingExtractor{result: &models.ExtractionResult{ContentType: models.ContentPDF, Text: "pdf text"}}
	svc, _ := newTestService(t, 1<<20, ex)

	pdf := []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\ntrailer\n<<>>\n%%EOF\n")
	res, err := svc.Process(context.Background(), fileHeader(t, "scan.pdf", "application/octet-stream", pdf))
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", res.File.MimeType)
	assert.Equal(t, []string{"application/pdf"}, ex.calls)
}

func TestProcessReportsExtractionFailure(t *testing.T) {
	boom := errors.New("parse failed")
	ex := &recordingExtractor{err: boom}
	svc, _ := newTestService(t, 1024, ex)

	_, err := svc.Process(context.Background(), fileHeader(t, "a.txt", "text/plain", []byte("x")))
	assert.ErrorIs(t, err, boom)
}

func TestProcessNilHeader(t *testing.T) {
	svc, _ := newTestService(t, 1024, &recordingExtractor{})
	_, err := svc.Process(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoFile)
}

func TestGetHidesExpiredUploads(t *testing.T) {
	svc, reg := newTestService(t, 1024, &recordingExtractor{})
	now := time.Now()
	require.NoError(t, reg.Record(context.Background(), &models.UploadedFile{ID: "file-old.txt", ExpiresAt: now.Add(-time.Minute)}))
	require.NoError(t, reg.Record(context.Background(), &models.UploadedFile{ID: "file-new.txt", ExpiresAt: now.Add(time.Minute)}))

	_, err := svc.Get(context.Background(), "file-old.txt")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	got, err := svc.Get(context.Background(), "file-new.txt")
	require.NoError(t, err)
	assert.Equal(t, "file-new.txt", got.ID)
}

func TestAllowed(t *testing.T) {
	assert.True(t, Allowed("audio/wav"))
	assert.True(t, Allowed("text/plain; charset=utf-8"))
	assert.True(t, Allowed("application/msword"))
	assert.False(t, Allowed("image/webp"))
	assert.False(t, Allowed(""))
}
