package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by repositories when a record does not exist.
var ErrNotFound = errors.New("not found")

// ExtractionError reports a failed fetch stage: the source exceeded the
// size cap, the extractor exited non-zero, or it produced a file count
// other than exactly one.
type ExtractionError struct {
	URL    string
	Reason string
	// ExceededSizeCap is set when the extractor reported the size cap as
	// the cause, as opposed to any other failure mode.
	ExceededSizeCap bool
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed for %s: %s", e.URL, e.Reason)
}

// SizeLimitError reports that the downloaded file failed the post-fetch
// size re-check.
type SizeLimitError struct {
	SizeMB  int64
	LimitMB int64
}

func (e *SizeLimitError) Error() string {
	return fmt.Sprintf("file size %d MB exceeds the %d MB limit", e.SizeMB, e.LimitMB)
}

// QualityDegradationError reports that fitting the upload budget would drop
// quality below the acceptable threshold and the caller did not opt into
// fallback mode. The caller may retry with fallback enabled.
type QualityDegradationError struct {
	OriginalKbps int
	MaxKbps      int
	CutoffKbps   int
}

func (e *QualityDegradationError) Error() string {
	return fmt.Sprintf("target bitrate %d kbps is below %d kbps (85%% of the %d kbps source); quality degradation too severe",
		e.MaxKbps, e.CutoffKbps, e.OriginalKbps)
}

// TranscodeError reports a failed encode attempt, carrying the source URL
// and the attempted bitrate for diagnostics.
type TranscodeError struct {
	URL        string
	TargetKbps int // 0 when the encode ran unconstrained
	Reason     string
}

func (e *TranscodeError) Error() string {
	if e.TargetKbps > 0 {
		return fmt.Sprintf("transcode failed for %s at %d kbps: %s", e.URL, e.TargetKbps, e.Reason)
	}
	return fmt.Sprintf("transcode failed for %s: %s", e.URL, e.Reason)
}
