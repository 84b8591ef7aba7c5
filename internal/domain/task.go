package domain

import "os"

// ProbeMetadata describes the source video as reported by the prober.
// An all-zero value means the stream could not be probed; downstream
// decisions degrade gracefully instead of failing the task.
type ProbeMetadata struct {
	DurationSeconds int `json:"durationSeconds"`
	BitrateKbps     int `json:"bitrateKbps"`
	Width           int `json:"width"`
	Height          int `json:"height"`
}

// Unknown reports whether no usable metadata was obtained.
func (m ProbeMetadata) Unknown() bool {
	return m == ProbeMetadata{}
}

// TaskOutput is the product of a successfully processed task. It owns the
// backing temp directory: whoever consumes the artifact calls Close when the
// files are no longer needed.
type TaskOutput struct {
	// Dir is the scoped working directory holding the artifact files.
	Dir string
	// VideoPath is the transcoded, playable artifact inside Dir.
	VideoPath string
	// ThumbnailPath is empty when no thumbnail could be extracted.
	ThumbnailPath string
	// Metadata describes the original (pre-transcode) file.
	Metadata ProbeMetadata
	// ReducedKbps is the target bitrate the video was constrained to.
	// Only meaningful when Reduced is true.
	ReducedKbps int
	// Reduced marks that the source exceeded the computed safe bitrate
	// and was re-encoded at a lower rate.
	Reduced bool
}

// Close releases the backing directory and everything in it.
func (o *TaskOutput) Close() error {
	if o == nil || o.Dir == "" {
		return nil
	}
	return os.RemoveAll(o.Dir)
}

// TaskResult is delivered exactly once per task on its completion channel.
// Either Output is set or Err is set, never both.
type TaskResult struct {
	Output *TaskOutput
	Err    error
}

// Task is a single download request traveling from a requester to the
// worker. Ownership of the send half of Done transfers to the worker; the
// requester keeps the receive half. Done must be buffered with capacity 1
// so delivery never blocks the worker.
type Task struct {
	ID string
	// URL of the video to process.
	URL string
	// EnableFallback raises the size ceiling and waives the
	// quality-degradation rejection.
	EnableFallback bool
	// Done receives exactly zero or one TaskResult.
	Done chan TaskResult
}
