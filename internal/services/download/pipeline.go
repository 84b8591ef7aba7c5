package download

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"clipstream/internal/domain"
	"clipstream/internal/metrics"
)

// Extractor fetches the source video into outputDir, honoring maxSizeMB.
// It must write exactly one file and report distinctly when the size cap
// caused the failure.
type Extractor interface {
	Extract(ctx context.Context, url, outputDir string, maxSizeMB int64) error
}

// Prober reads duration/bitrate/width/height. ok is false when no decodable
// video stream was found.
type Prober interface {
	Probe(ctx context.Context, path string) (meta domain.ProbeMetadata, ok bool)
}

// Transcoder produces a playable file at outputPath. A non-positive
// targetKbps means encode without a bitrate constraint.
type Transcoder interface {
	Transcode(ctx context.Context, inputPath, outputPath string, targetKbps int) error
}

// Thumbnailer captures a single frame from the video, best-effort.
type Thumbnailer interface {
	ExtractThumbnail(ctx context.Context, videoPath string) (path string, ok bool)
}

// PipelineConfig carries the externally supplied size ceilings.
type PipelineConfig struct {
	// MaxFileSizeMB caps the fetched file in normal mode.
	MaxFileSizeMB int64
	// FallbackFileSizeMB caps it in fallback mode (larger by a fixed ratio).
	FallbackFileSizeMB int64
	// UploadLimitMB is the hard ceiling the transcoded artifact must fit.
	UploadLimitMB int64
}

// Pipeline runs the fetch → size-check → probe → bitrate decision →
// transcode → thumbnail sequence for one task.
type Pipeline struct {
	cfg         PipelineConfig
	extractor   Extractor
	prober      Prober
	transcoder  Transcoder
	thumbnailer Thumbnailer
	logger      *slog.Logger
}

func NewPipeline(cfg PipelineConfig, extractor Extractor, prober Prober, transcoder Transcoder, thumbnailer Thumbnailer, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		cfg:         cfg,
		extractor:   extractor,
		prober:      prober,
		transcoder:  transcoder,
		thumbnailer: thumbnailer,
		logger:      logger,
	}
}

// Run executes the pipeline. On success the returned output owns the temp
// directory; on any failure the directory is released before returning.
func (p *Pipeline) Run(ctx context.Context, task domain.Task) (*domain.TaskOutput, error) {
	dir, err := os.MkdirTemp("", "clipstream-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}

	output, err := p.process(ctx, task, dir)
	if err != nil {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			p.logger.Warn("temp dir cleanup failed",
				slog.String("dir", dir),
				slog.String("error", rmErr.Error()),
			)
		}
		return nil, err
	}
	return output, nil
}

func (p *Pipeline) process(ctx context.Context, task domain.Task, dir string) (*domain.TaskOutput, error) {
	capMB := p.cfg.MaxFileSizeMB
	if task.EnableFallback {
		capMB = p.cfg.FallbackFileSizeMB
	}

	// Fetch.
	if err := p.timed(ctx, "fetch", func(ctx context.Context) error {
		return p.extractor.Extract(ctx, task.URL, dir, capMB)
	}); err != nil {
		return nil, err
	}

	sourcePath, err := singleFile(dir, task.URL)
	if err != nil {
		return nil, err
	}

	// Size re-check: the extractor is not trusted to honor the cap
	// precisely. Decimal megabytes, matching the cap units.
	info, err := os.Stat(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("stat downloaded file: %w", err)
	}
	sizeMB := info.Size() / 1_000_000
	if sizeMB > capMB {
		return nil, &domain.SizeLimitError{SizeMB: sizeMB, LimitMB: capMB}
	}

	// Probe. Failure is not fatal: all-zero metadata degrades the bitrate
	// decision but the task proceeds.
	var meta domain.ProbeMetadata
	_ = p.timed(ctx, "probe", func(ctx context.Context) error {
		if m, ok := p.prober.Probe(ctx, sourcePath); ok {
			meta = m
		}
		return nil
	})

	decision, err := decideBitrate(meta, p.cfg.UploadLimitMB, task.EnableFallback)
	if err != nil {
		return nil, err
	}

	// Transcode.
	outputPath := filepath.Join(dir, uuid.NewString()+".mp4")
	targetKbps := 0
	if decision.Reduced {
		targetKbps = decision.TargetKbps
	}
	if err := p.timed(ctx, "transcode", func(ctx context.Context) error {
		return p.transcoder.Transcode(ctx, sourcePath, outputPath, targetKbps)
	}); err != nil {
		// Partial output must not outlive the failed attempt.
		_ = os.Remove(outputPath)
		return nil, &domain.TranscodeError{URL: task.URL, TargetKbps: targetKbps, Reason: err.Error()}
	}

	// Thumbnail, best-effort.
	thumbPath := ""
	_ = p.timed(ctx, "thumbnail", func(ctx context.Context) error {
		if path, ok := p.thumbnailer.ExtractThumbnail(ctx, outputPath); ok {
			thumbPath = path
		}
		return nil
	})

	output := &domain.TaskOutput{
		Dir:           dir,
		VideoPath:     outputPath,
		ThumbnailPath: thumbPath,
		Metadata:      meta,
		Reduced:       decision.Reduced,
	}
	if decision.Reduced {
		output.ReducedKbps = decision.TargetKbps
	}
	return output, nil
}

// timed runs a stage and records its duration.
func (p *Pipeline) timed(ctx context.Context, stage string, fn func(context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	return err
}

// singleFile returns the path of the only file in dir. A count of zero
// (extractor skipped an oversized file) or two-plus violates the
// one-artifact contract and fails the task.
func singleFile(dir, url string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("read temp dir: %w", err)
	}
	if len(entries) != 1 {
		return "", &domain.ExtractionError{
			URL:    url,
			Reason: fmt.Sprintf("%d files found, expected 1", len(entries)),
		}
	}
	return filepath.Join(dir, entries[0].Name()), nil
}
