package extract

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"metutor/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDescriber struct {
	text        string
	err         error
	instruction string
	mimeType    string
	data        []byte
}

func (s *stubDescriber) DescribeImage(_ context.Context, instruction, mimeType string, data []byte) (string, error) {
	s.instruction, s.mimeType, s.data = instruction, mimeType, data
	return s.text, s.err
}

type stubTranscriber struct {
	text  string
	err   error
	paths []string
	// sawFile records whether the audio existed when transcription began
	sawFile bool
}

func (s *stubTranscriber) Transcribe(_ context.Context, path string) (string, error) {
	s.paths = append(s.paths, path)
	_, err := os.Stat(path)
	s.sawFile = err == nil
	return s.text, s.err
}

type stubTranscoder struct {
	err       error
	audioPath string
}

func (s *stubTranscoder) ExtractAudio(_ context.Context, _, audioPath string) error {
	s.audioPath = audioPath
	if err := os.WriteFile(audioPath, []byte("mp3"), 0o600); err != nil {
		return err
	}
	return s.err
}

func newTestExtractor(t *testing.T, d Describer, tr Transcriber, tc Transcoder) *Extractor {
	t.Helper()
	e, err := New(context.Background(), d, tr, tc)
	require.NoError(t, err)
	return e
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestExtractPlainText(t *testing.T) {
	e := newTestExtractor(t, nil, nil, nil)
	path := writeFile(t, "file-notes.txt", []byte("Hooke's law: F = k x"))

	res, err := e.Extract(context.Background(), path, "text/plain; charset=utf-8")
	require.NoError(t, err)
	assert.Equal(t, models.ContentText, res.ContentType)
	assert.Equal(t, "Hooke's law: F = k x", res.Text)
}

func TestExtractWhitespaceTextIsEmptyContent(t *testing.T) {
	e := newTestExtractor(t, nil, nil, nil)
	path := writeFile(t, "blank.txt", []byte(" \n\t "))

	_, err := e.Extract(context.Background(), path, "text/plain")
	assert.ErrorIs(t, err, ErrEmptyContent)
}

func TestExtractPDF(t *testing.T) {
	e := newTestExtractor(t, nil, nil, nil)

	res, err := e.Extract(context.Background(), filepath.Join("testdata", "hooke.pdf"), "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, models.ContentPDF, res.ContentType)
	assert.Contains(t, res.Text, "law relates stress and strain.")
}

func TestExtractInvalidPDF(t *testing.T) {
	e := newTestExtractor(t, nil, nil, nil)
	path := writeFile(t, "broken.pdf", []byte("this is not a pdf"))

	_, err := e.Extract(context.Background(), path, "application/pdf")
	assert.ErrorIs(t, err, ErrExtraction)
}

func TestExtractImageUsesVision(t *testing.T) {
	d := &stubDescriber{text: "A cantilever beam with a point load."}
	e := newTestExtractor(t, d, nil, nil)
	path := writeFile(t, "beam.png", []byte{0x89, 'P', 'N', 'G'})

	res, err := e.Extract(context.Background(), path, "image/png")
	require.NoError(t, err)
	assert.Equal(t, models.ContentImageAnalysis, res.ContentType)
	assert.Equal(t, "A cantilever beam with a point load.", res.Text)
	assert.Equal(t, imageInstruction, d.instruction)
	assert.Equal(t, "image/png", d.mimeType)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, d.data)
}

func TestExtractImagePropagatesUpstreamError(t *testing.T) {
	upstream := errors.New("vision down")
	e := newTestExtractor(t, &stubDescriber{err: upstream}, nil, nil)
	path := writeFile(t, "beam.jpg", []byte("jpg"))

	_, err := e.Extract(context.Background(), path, "image/jpeg")
	assert.ErrorIs(t, err, upstream)
}

func TestExtractAudioTranscribesDirectly(t *testing.T) {
	tr := &stubTranscriber{text: "today we cover torsion"}
	e := newTestExtractor(t, nil, tr, &stubTranscoder{})
	path := writeFile(t, "lecture.wav", []byte("RIFF"))

	res, err := e.Extract(context.Background(), path, "audio/wav")
	require.NoError(t, err)
	assert.Equal(t, models.ContentAudioTranscript, res.ContentType)
	assert.Equal(t, []string{path}, tr.paths)
}

func TestExtractVideoRemovesAudioOnSuccess(t *testing.T) {
	tr := &stubTranscriber{text: "welcome to thermodynamics"}
	tc := &stubTranscoder{}
	e := newTestExtractor(t, nil, tr, tc)
	path := writeFile(t, "file-lecture.mp4", []byte("mp4"))

	res, err := e.Extract(context.Background(), path, "video/mp4")
	require.NoError(t, err)
	assert.Equal(t, models.ContentVideoTranscript, res.ContentType)
	assert.Equal(t, "welcome to thermodynamics", res.Text)

	assert.Equal(t, filepath.Join(filepath.Dir(path), "file-lecture.mp3"), tc.audioPath)
	assert.True(t, tr.sawFile)
	assert.NoFileExists(t, tc.audioPath)
	assert.FileExists(t, path)
}

func TestExtractVideoRemovesAudioWhenTranscriptionFails(t *testing.T) {
	tr := &stubTranscriber{err: errors.New("whisper unavailable")}
	tc := &stubTranscoder{}
	e := newTestExtractor(t, nil, tr, tc)
	path := writeFile(t, "clip.mov", []byte("mov"))

	_, err := e.Extract(context.Background(), path, "video/quicktime")
	require.Error(t, err)
	assert.NoFileExists(t, tc.audioPath)
}

func TestExtractVideoRemovesAudioWhenTranscodeFails(t *testing.T) {
	tr := &stubTranscriber{text: "unused"}
	tc := &stubTranscoder{err: errors.New("no audio stream")}
	e := newTestExtractor(t, nil, tr, tc)
	path := writeFile(t, "clip.avi", []byte("avi"))

	_, err := e.Extract(context.Background(), path, "video/avi")
	assert.ErrorIs(t, err, ErrExtraction)
	assert.NoFileExists(t, tc.audioPath)
	assert.Empty(t, tr.paths)
}

func TestExtractUnsupportedType(t *testing.T) {
	e := newTestExtractor(t, nil, nil, nil)
	path := writeFile(t, "report.docx", []byte("PK"))

	_, err := e.Extract(context.Background(), path, "application/vnd.openxmlformats-officedocument.wordprocessingml.document")
	assert.ErrorIs(t, err, ErrUnsupportedType)
	assert.False(t, e.Supports("application/msword"))
	assert.True(t, e.Supports("IMAGE/GIF"))
}

func TestAudioPathFor(t *testing.T) {
	assert.Equal(t, "/u/file-a.mp3", audioPathFor("/u/file-a.mp4"))
	assert.Equal(t, "/u/noext.mp3", audioPathFor("/u/noext"))
	assert.Equal(t, "/u/a.mp3.audio.mp3", audioPathFor("/u/a.mp3"))
}
