package extract

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// CommandRunner runs an external program and returns its combined output.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// FFmpeg demuxes audio with the ffmpeg binary.
type FFmpeg struct {
	path   string
	runner CommandRunner
}

func NewFFmpeg(path string) *FFmpeg {
	return NewFFmpegWithRunner(path, execRunner{})
}

func NewFFmpegWithRunner(path string, runner CommandRunner) *FFmpeg {
	if path == "" {
		path = "ffmpeg"
	}
	return &FFmpeg{path: path, runner: runner}
}

// ExtractAudio writes the audio track of videoPath to audioPath as mp3.
func (f *FFmpeg) ExtractAudio(ctx context.Context, videoPath, audioPath string) error {
	out, err := f.runner.Run(ctx, f.path,
		"-y",
		"-i", videoPath,
		"-vn",
		"-acodec", "libmp3lame",
		audioPath,
	)
	if err != nil {
		return fmt.Errorf("ffmpeg: %w: %s", err, lastLine(out))
	}
	return nil
}

func lastLine(out []byte) string {
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
