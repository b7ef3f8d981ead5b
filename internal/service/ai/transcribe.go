package ai

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"metutor/internal/config"

	openai "github.com/sashabaranov/go-openai"
)

// Transcriber turns audio files into text with the Whisper endpoint.
type Transcriber struct {
	client *openai.Client
	model  string
}

func NewTranscriber(cfg config.TranscriptionConfig) *Transcriber {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	modelName := cfg.Model
	if modelName == "" {
		modelName = openai.Whisper1
	}
	return &Transcriber{
		client: openai.NewClientWithConfig(clientCfg),
		model:  modelName,
	}
}

// Transcribe uploads the file at path and returns the recognized text.
func (t *Transcriber) Transcribe(ctx context.Context, path string) (string, error) {
	resp, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    t.model,
		FilePath: path,
	})
	if err != nil {
		return "", fmt.Errorf("%w: transcribe %s: %w", ErrUpstream, filepath.Base(path), err)
	}
	return resp.Text, nil
}
