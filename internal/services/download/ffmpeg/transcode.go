package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Transcoder wraps the ffmpeg binary for the encode and thumbnail stages.
type Transcoder struct {
	binary string
	// absoluteSizeCap is the hard -fs ceiling on the output file,
	// independent of any bitrate constraint.
	absoluteSizeCap string
}

func New(binary string, uploadLimitMB int64) *Transcoder {
	bin := strings.TrimSpace(binary)
	if bin == "" {
		bin = "ffmpeg"
	}
	return &Transcoder{
		binary:          bin,
		absoluteSizeCap: fmt.Sprintf("%dM", uploadLimitMB),
	}
}

// buildArgs composes the encode command. The crop filter forces even
// dimensions, required by yuv420p.
func (t *Transcoder) buildArgs(inputPath, outputPath string, targetKbps int) []string {
	args := []string{
		"-y",
		"-i", inputPath,
		"-c:v", "libx264",
		"-movflags", "+faststart",
		"-pix_fmt", "yuv420p",
		"-b:a", "128k",
		"-fs", t.absoluteSizeCap,
		"-vf", "crop=trunc(iw/2)*2:trunc(ih/2)*2",
	}
	if targetKbps > 0 {
		args = append(args, "-b:v", fmt.Sprintf("%dk", targetKbps))
	}
	return append(args, outputPath)
}

// Transcode re-encodes inputPath into a playable mp4 at outputPath. Any
// partial output is removed on failure.
func (t *Transcoder) Transcode(ctx context.Context, inputPath, outputPath string, targetKbps int) error {
	cmd := exec.CommandContext(ctx, t.binary, t.buildArgs(inputPath, outputPath, targetKbps)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		_ = os.Remove(outputPath)
		msg := lastLine(stderr.String())
		if msg == "" {
			return fmt.Errorf("ffmpeg: %w", err)
		}
		return fmt.Errorf("ffmpeg: %w: %s", err, msg)
	}
	return nil
}

// ExtractThumbnail captures a single frame next to the video. Best-effort:
// ok is false on any failure and the caller proceeds without a thumbnail.
func (t *Transcoder) ExtractThumbnail(ctx context.Context, videoPath string) (string, bool) {
	thumbPath := filepath.Join(filepath.Dir(videoPath), "thumbnail.jpg")

	cmd := exec.CommandContext(ctx, t.binary,
		"-y",
		"-i", videoPath,
		"-vframes", "1",
		"-q:v", "3",
		thumbPath,
	)
	if err := cmd.Run(); err != nil {
		_ = os.Remove(thumbPath)
		return "", false
	}
	return thumbPath, true
}

func lastLine(output string) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}
