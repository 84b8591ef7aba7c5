package extract

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"clipstream/internal/domain"
)

// YtDlp invokes the yt-dlp binary to fetch a video into a directory.
type YtDlp struct {
	binary string
}

func New(binary string) *YtDlp {
	bin := strings.TrimSpace(binary)
	if bin == "" {
		bin = "yt-dlp"
	}
	return &YtDlp{binary: bin}
}

// Extract downloads the video at url into outputDir, named by its opaque
// id. yt-dlp skips files over --max-filesize without failing the run, so
// the cap is detected from its output; an empty directory is caught by the
// caller's file-count check either way.
func (y *YtDlp) Extract(ctx context.Context, url, outputDir string, maxSizeMB int64) error {
	args := []string{
		"--no-playlist",
		"--max-filesize", fmt.Sprintf("%dM", maxSizeMB),
		"--output", filepath.Join(outputDir, "%(id)s.%(ext)s"),
		url,
	}

	cmd := exec.CommandContext(ctx, y.binary, args...)
	var combined bytes.Buffer
	cmd.Stdout = &combined
	cmd.Stderr = &combined

	runErr := cmd.Run()
	return classifyRun(url, maxSizeMB, combined.String(), runErr)
}

// classifyRun turns a yt-dlp invocation outcome into a typed error.
func classifyRun(url string, maxSizeMB int64, output string, runErr error) error {
	if strings.Contains(output, "max-filesize") {
		return &domain.ExtractionError{
			URL:             url,
			Reason:          fmt.Sprintf("source file exceeds the %d MB cap", maxSizeMB),
			ExceededSizeCap: true,
		}
	}
	if runErr != nil {
		return &domain.ExtractionError{
			URL:    url,
			Reason: fmt.Sprintf("yt-dlp failed: %v: %s", runErr, lastLine(output)),
		}
	}
	return nil
}

// lastLine extracts the final non-empty line of tool output, which is where
// yt-dlp puts its error message.
func lastLine(output string) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}
