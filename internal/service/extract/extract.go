// Package extract turns uploaded files into plain text, one strategy per format.
package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"metutor/internal/models"

	"github.com/cloudwego/eino-ext/components/document/loader/file"
	"github.com/cloudwego/eino/components/document/parser"
	"github.com/rs/zerolog/log"
)

var (
	ErrUnsupportedType = errors.New("unsupported file type for content extraction")
	ErrExtraction      = errors.New("content extraction failed")
	ErrEmptyContent    = errors.New("no readable content found")
)

// Describer answers a vision request about an inline image.
type Describer interface {
	DescribeImage(ctx context.Context, instruction, mimeType string, data []byte) (string, error)
}

// Transcriber converts an audio file to text.
type Transcriber interface {
	Transcribe(ctx context.Context, path string) (string, error)
}

// Transcoder pulls the audio track out of a video file.
type Transcoder interface {
	ExtractAudio(ctx context.Context, videoPath, audioPath string) error
}

type strategy func(ctx context.Context, path, mimeType string) (string, error)

type Extractor struct {
	describer   Describer
	transcriber Transcriber
	transcoder  Transcoder
	loader      *file.FileLoader
}

func New(ctx context.Context, describer Describer, transcriber Transcriber, transcoder Transcoder) (*Extractor, error) {
	extParser, err := parser.NewExtParser(ctx, &parser.ExtParserConfig{
		FallbackParser: parser.TextParser{},
	})
	if err != nil {
		return nil, fmt.Errorf("init text parser: %w", err)
	}
	loader, err := file.NewFileLoader(ctx, &file.FileLoaderConfig{
		UseNameAsID: true,
		Parser:      extParser,
	})
	if err != nil {
		return nil, fmt.Errorf("init file loader: %w", err)
	}
	return &Extractor{
		describer:   describer,
		transcriber: transcriber,
		transcoder:  transcoder,
		loader:      loader,
	}, nil
}

// Extract reads the file at path according to its declared MIME type.
func (e *Extractor) Extract(ctx context.Context, path, mimeType string) (*models.ExtractionResult, error) {
	mediaType := baseMediaType(mimeType)
	contentType, run, err := e.dispatch(mediaType)
	if err != nil {
		return nil, err
	}

	text, err := run(ctx, path, mediaType)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: %s", ErrEmptyContent, contentType.Label())
	}
	log.Debug().Str("content_type", string(contentType)).Int("chars", len(text)).Msg("content extracted")
	return &models.ExtractionResult{ContentType: contentType, Text: text}, nil
}

// dispatch picks the first matching strategy.
func (e *Extractor) dispatch(mediaType string) (models.ContentType, strategy, error) {
	switch {
	case mediaType == "application/pdf":
		return models.ContentPDF, e.extractPDF, nil
	case mediaType == "text/plain":
		return models.ContentText, e.extractText, nil
	case strings.HasPrefix(mediaType, "image/"):
		return models.ContentImageAnalysis, e.extractImage, nil
	case strings.HasPrefix(mediaType, "video/"):
		return models.ContentVideoTranscript, e.extractVideo, nil
	case strings.HasPrefix(mediaType, "audio/"):
		return models.ContentAudioTranscript, e.extractAudio, nil
	}
	return "", nil, fmt.Errorf("%w: %q", ErrUnsupportedType, mediaType)
}

// Supports reports whether some strategy handles mimeType.
func (e *Extractor) Supports(mimeType string) bool {
	_, _, err := e.dispatch(baseMediaType(mimeType))
	return err == nil
}

func baseMediaType(mimeType string) string {
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}
