package download

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"clipstream/internal/domain"
)

type fakeExtractor struct {
	files  int
	size   int
	err    error
	gotCap int64
	gotDir string
}

func (f *fakeExtractor) Extract(ctx context.Context, url, outputDir string, maxSizeMB int64) error {
	f.gotCap = maxSizeMB
	f.gotDir = outputDir
	if f.err != nil {
		return f.err
	}
	size := f.size
	if size == 0 {
		size = 16
	}
	for i := 0; i < f.files; i++ {
		name := filepath.Join(outputDir, fmt.Sprintf("source%d.mp4", i))
		if err := os.WriteFile(name, make([]byte, size), 0o644); err != nil {
			return err
		}
	}
	return nil
}

type fakeProber struct {
	meta domain.ProbeMetadata
	ok   bool
}

func (f *fakeProber) Probe(ctx context.Context, path string) (domain.ProbeMetadata, bool) {
	return f.meta, f.ok
}

type fakeTranscoder struct {
	err       error
	called    bool
	gotTarget int
}

func (f *fakeTranscoder) Transcode(ctx context.Context, inputPath, outputPath string, targetKbps int) error {
	f.called = true
	f.gotTarget = targetKbps
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(outputPath, []byte("encoded"), 0o644)
}

type fakeThumbnailer struct {
	ok bool
}

func (f *fakeThumbnailer) ExtractThumbnail(ctx context.Context, videoPath string) (string, bool) {
	if !f.ok {
		return "", false
	}
	return filepath.Join(filepath.Dir(videoPath), "thumbnail.jpg"), true
}

func testPipelineConfig() PipelineConfig {
	return PipelineConfig{
		MaxFileSizeMB:      200,
		FallbackFileSizeMB: 1000,
		UploadLimitMB:      50,
	}
}

func TestPipelineSuccessKeepsOriginalBitrate(t *testing.T) {
	extractor := &fakeExtractor{files: 1}
	transcoder := &fakeTranscoder{}
	p := NewPipeline(testPipelineConfig(), extractor,
		&fakeProber{meta: domain.ProbeMetadata{DurationSeconds: 60, BitrateKbps: 1000, Width: 1280, Height: 720}, ok: true},
		transcoder, &fakeThumbnailer{ok: true}, discardLogger())

	output, err := p.Run(context.Background(), domain.Task{ID: "t", URL: "https://example.com/v"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	defer output.Close()

	if extractor.gotCap != 200 {
		t.Fatalf("extract cap = %d, want the normal-mode cap 200", extractor.gotCap)
	}
	if transcoder.gotTarget != 0 {
		t.Fatalf("target = %d, want 0 (unconstrained)", transcoder.gotTarget)
	}
	if output.Reduced || output.ReducedKbps != 0 {
		t.Fatalf("output marked reduced: %+v", output)
	}
	if _, err := os.Stat(output.VideoPath); err != nil {
		t.Fatalf("artifact missing: %v", err)
	}
	if output.ThumbnailPath == "" {
		t.Fatal("thumbnail path not recorded")
	}
	if output.Metadata.Width != 1280 || output.Metadata.Height != 720 {
		t.Fatalf("metadata not propagated: %+v", output.Metadata)
	}
}

func TestPipelineFallbackRaisesCapAndReducesBitrate(t *testing.T) {
	extractor := &fakeExtractor{files: 1}
	transcoder := &fakeTranscoder{}
	p := NewPipeline(testPipelineConfig(), extractor,
		&fakeProber{meta: domain.ProbeMetadata{DurationSeconds: 600, BitrateKbps: 1000}, ok: true},
		transcoder, &fakeThumbnailer{}, discardLogger())

	output, err := p.Run(context.Background(), domain.Task{ID: "t", URL: "https://example.com/v", EnableFallback: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	defer output.Close()

	if extractor.gotCap != 1000 {
		t.Fatalf("extract cap = %d, want the fallback cap 1000", extractor.gotCap)
	}
	if !output.Reduced || output.ReducedKbps != 522 {
		t.Fatalf("Reduced=%v ReducedKbps=%d, want true/522", output.Reduced, output.ReducedKbps)
	}
	if transcoder.gotTarget != 522 {
		t.Fatalf("target = %d, want 522", transcoder.gotTarget)
	}
}

func TestPipelineRejectsSevereQualityLoss(t *testing.T) {
	transcoder := &fakeTranscoder{}
	extractor := &fakeExtractor{files: 1}
	p := NewPipeline(testPipelineConfig(), extractor,
		&fakeProber{meta: domain.ProbeMetadata{DurationSeconds: 600, BitrateKbps: 1000}, ok: true},
		transcoder, &fakeThumbnailer{}, discardLogger())

	_, err := p.Run(context.Background(), domain.Task{ID: "t", URL: "https://example.com/v"})
	var qualityErr *domain.QualityDegradationError
	if !errors.As(err, &qualityErr) {
		t.Fatalf("err = %v, want QualityDegradationError", err)
	}
	if transcoder.called {
		t.Fatal("transcoder must not run for a rejected task")
	}
	if _, statErr := os.Stat(extractor.gotDir); !os.IsNotExist(statErr) {
		t.Fatalf("temp dir not cleaned up after failure: %v", statErr)
	}
}

func TestPipelineRequiresExactlyOneDownloadedFile(t *testing.T) {
	for _, files := range []int{0, 2} {
		transcoder := &fakeTranscoder{}
		p := NewPipeline(testPipelineConfig(), &fakeExtractor{files: files},
			&fakeProber{}, transcoder, &fakeThumbnailer{}, discardLogger())

		_, err := p.Run(context.Background(), domain.Task{ID: "t", URL: "https://example.com/v"})
		var extractionErr *domain.ExtractionError
		if !errors.As(err, &extractionErr) {
			t.Fatalf("files=%d: err = %v, want ExtractionError", files, err)
		}
		if transcoder.called {
			t.Fatalf("files=%d: transcoder must not run", files)
		}
	}
}

func TestPipelineRechecksDownloadedSize(t *testing.T) {
	cfg := testPipelineConfig()
	cfg.MaxFileSizeMB = 1
	// 2 decimal MB and a byte: over the 1 MB cap even if the extractor
	// claimed success.
	p := NewPipeline(cfg, &fakeExtractor{files: 1, size: 2_000_001},
		&fakeProber{}, &fakeTranscoder{}, &fakeThumbnailer{}, discardLogger())

	_, err := p.Run(context.Background(), domain.Task{ID: "t", URL: "https://example.com/v"})
	var sizeErr *domain.SizeLimitError
	if !errors.As(err, &sizeErr) {
		t.Fatalf("err = %v, want SizeLimitError", err)
	}
	if sizeErr.SizeMB != 2 || sizeErr.LimitMB != 1 {
		t.Fatalf("SizeMB=%d LimitMB=%d, want 2/1", sizeErr.SizeMB, sizeErr.LimitMB)
	}
}

func TestPipelineProceedsWhenProbeFails(t *testing.T) {
	transcoder := &fakeTranscoder{}
	p := NewPipeline(testPipelineConfig(), &fakeExtractor{files: 1},
		&fakeProber{ok: false}, transcoder, &fakeThumbnailer{}, discardLogger())

	output, err := p.Run(context.Background(), domain.Task{ID: "t", URL: "https://example.com/v"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	defer output.Close()

	if output.Metadata != (domain.ProbeMetadata{}) {
		t.Fatalf("metadata = %+v, want all zero", output.Metadata)
	}
	if transcoder.gotTarget != 0 || output.Reduced {
		t.Fatal("unprobeable input must be encoded without a bitrate constraint")
	}
}

func TestPipelineTranscodeFailureCleansUp(t *testing.T) {
	extractor := &fakeExtractor{files: 1}
	p := NewPipeline(testPipelineConfig(), extractor,
		&fakeProber{meta: domain.ProbeMetadata{DurationSeconds: 60, BitrateKbps: 1000}, ok: true},
		&fakeTranscoder{err: errors.New("encoder crashed")}, &fakeThumbnailer{}, discardLogger())

	_, err := p.Run(context.Background(), domain.Task{ID: "t", URL: "https://example.com/v"})
	var transcodeErr *domain.TranscodeError
	if !errors.As(err, &transcodeErr) {
		t.Fatalf("err = %v, want TranscodeError", err)
	}
	if _, statErr := os.Stat(extractor.gotDir); !os.IsNotExist(statErr) {
		t.Fatalf("temp dir not cleaned up after failure: %v", statErr)
	}
}

func TestPipelineMissingThumbnailIsNotFatal(t *testing.T) {
	p := NewPipeline(testPipelineConfig(), &fakeExtractor{files: 1},
		&fakeProber{}, &fakeTranscoder{}, &fakeThumbnailer{ok: false}, discardLogger())

	output, err := p.Run(context.Background(), domain.Task{ID: "t", URL: "https://example.com/v"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	defer output.Close()

	if output.ThumbnailPath != "" {
		t.Fatalf("thumbnail path = %q, want empty", output.ThumbnailPath)
	}
}
