package ffprobe

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"clipstream/internal/domain"
)

// Prober wraps the ffprobe binary.
type Prober struct {
	binary string
}

func New(binary string) *Prober {
	bin := strings.TrimSpace(binary)
	if bin == "" {
		bin = "ffprobe"
	}
	return &Prober{binary: bin}
}

const maxProbeTimeout = 30 * time.Second

// Probe reads duration, bitrate and dimensions from the file's first video
// stream. ok is false when ffprobe fails or no video stream is present;
// callers treat that as "unknown", not as an error.
func (p *Prober) Probe(ctx context.Context, filePath string) (domain.ProbeMetadata, bool) {
	path := strings.TrimSpace(filePath)
	if path == "" {
		return domain.ProbeMetadata{}, false
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, maxProbeTimeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, p.binary,
		"-v", "quiet",
		"-print_format", "json",
		"-show_streams",
		"-show_format",
		path,
	)

	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return domain.ProbeMetadata{}, false
	}

	return parseProbeOutput(stdout.Bytes())
}

// probePayload is the subset of ffprobe JSON output we parse.
type probePayload struct {
	Streams []probeStream `json:"streams"`
	Format  probeFormat   `json:"format"`
}

type probeStream struct {
	CodecType string `json:"codec_type"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
}

type probeFormat struct {
	Duration string `json:"duration"`
	BitRate  string `json:"bit_rate"`
}

// parseProbeOutput extracts metadata from raw ffprobe JSON. ok is false
// when the payload holds no video stream.
func parseProbeOutput(data []byte) (domain.ProbeMetadata, bool) {
	var payload probePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return domain.ProbeMetadata{}, false
	}

	var video *probeStream
	for i := range payload.Streams {
		if payload.Streams[i].CodecType == "video" {
			video = &payload.Streams[i]
			break
		}
	}
	if video == nil {
		return domain.ProbeMetadata{}, false
	}

	meta := domain.ProbeMetadata{
		Width:  video.Width,
		Height: video.Height,
	}

	// Format-level bitrate is bits per second as a string; kbps downstream.
	if payload.Format.BitRate != "" {
		if bps, err := strconv.Atoi(payload.Format.BitRate); err == nil && bps > 0 {
			meta.BitrateKbps = bps / 1000
		}
	}
	if payload.Format.Duration != "" {
		if d, err := strconv.ParseFloat(payload.Format.Duration, 64); err == nil && d > 0 {
			meta.DurationSeconds = int(math.Floor(d))
		}
	}

	return meta, true
}
