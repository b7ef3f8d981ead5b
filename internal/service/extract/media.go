package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

func (e *Extractor) extractVideo(ctx context.Context, path, _ string) (string, error) {
	if e.transcoder == nil || e.transcriber == nil {
		return "", fmt.Errorf("%w: video transcription not configured", ErrExtraction)
	}
	audioPath := audioPathFor(path)
	// the intermediate track goes away on every exit path
	defer func() {
		if err := os.Remove(audioPath); err != nil && !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", audioPath).Msg("remove extracted audio")
		}
	}()

	if err := e.transcoder.ExtractAudio(ctx, path, audioPath); err != nil {
		return "", fmt.Errorf("%w: extract audio: %w", ErrExtraction, err)
	}
	return e.transcriber.Transcribe(ctx, audioPath)
}

func (e *Extractor) extractAudio(ctx context.Context, path, _ string) (string, error) {
	if e.transcriber == nil {
		return "", fmt.Errorf("%w: transcription not configured", ErrExtraction)
	}
	return e.transcriber.Transcribe(ctx, path)
}

// audioPathFor swaps the video extension for .mp3 in the same directory.
func audioPathFor(videoPath string) string {
	ext := filepath.Ext(videoPath)
	out := strings.TrimSuffix(videoPath, ext) + ".mp3"
	if out == videoPath {
		out = videoPath + ".audio.mp3"
	}
	return out
}
