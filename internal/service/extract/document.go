package extract

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cloudwego/eino/components/document"
	"github.com/ledongthuc/pdf"
)

func (e *Extractor) extractPDF(_ context.Context, path, _ string) (text string, err error) {
	// the pdf reader panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: parse pdf: %v", ErrExtraction, r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: open pdf: %w", ErrExtraction, err)
	}
	defer f.Close()

	reader, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("%w: extract pdf text: %w", ErrExtraction, err)
	}
	buf := new(strings.Builder)
	if _, err := io.Copy(buf, reader); err != nil {
		return "", fmt.Errorf("%w: read pdf text: %w", ErrExtraction, err)
	}
	return buf.String(), nil
}

func (e *Extractor) extractText(ctx context.Context, path, _ string) (string, error) {
	docs, err := e.loader.Load(ctx, document.Source{URI: path})
	if err != nil {
		return "", fmt.Errorf("%w: load text: %w", ErrExtraction, err)
	}
	var builder strings.Builder
	for _, doc := range docs {
		builder.WriteString(doc.Content)
	}
	return builder.String(), nil
}

const imageInstruction = "Analyze this image and extract any text, equations, diagrams, or educational content. " +
	"Describe what you see in detail, especially any engineering or mathematical content."

func (e *Extractor) extractImage(ctx context.Context, path, mimeType string) (string, error) {
	if e.describer == nil {
		return "", fmt.Errorf("%w: image analysis not configured", ErrExtraction)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: read image: %w", ErrExtraction, err)
	}
	return e.describer.DescribeImage(ctx, imageInstruction, mimeType, data)
}
