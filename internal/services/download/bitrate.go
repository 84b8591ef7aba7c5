package download

import (
	"math"

	"clipstream/internal/domain"
)

const (
	// audioReserveKbps is held back from the capacity budget for the
	// 128 kbps audio track.
	audioReserveKbps = 128
	// containerMargin accounts for container/muxing overhead.
	containerMargin = 0.97
	// qualityCutoffRatio is the lowest acceptable fraction of the source
	// bitrate without fallback mode.
	qualityCutoffRatio = 0.85
)

// bitrateDecision is the outcome of the bitrate stage.
type bitrateDecision struct {
	// MaxKbps is the computed ceiling. Only valid when HasMax is true;
	// an unprobeable duration leaves the encode unconstrained.
	MaxKbps int
	HasMax  bool
	// TargetKbps is the bitrate to encode at when Reduced is true.
	TargetKbps int
	Reduced    bool
}

// decideBitrate computes the encoding constraint for a clip so the output
// fits uploadLimitMB over its duration.
//
// capacity_kbps = uploadLimitMB * 8000 / duration (8 bits/byte, MB→kb),
// minus the audio reserve, scaled by the container margin, floored.
// The task is rejected when the ceiling falls below 85% of the source
// bitrate, unless fallback is enabled. An unprobeable source bitrate
// (zero) never triggers the rejection: the ratio is undefined.
func decideBitrate(meta domain.ProbeMetadata, uploadLimitMB int64, enableFallback bool) (bitrateDecision, error) {
	var d bitrateDecision
	if meta.DurationSeconds == 0 {
		// No duration, no target; transcode without a bitrate constraint.
		return d, nil
	}

	capacity := float64(uploadLimitMB*8000) / float64(meta.DurationSeconds)
	withAudio := capacity - audioReserveKbps
	maxKbps := int(math.Floor(withAudio * containerMargin))
	if maxKbps < 0 {
		maxKbps = 0
	}
	d.HasMax = true
	d.MaxKbps = maxKbps

	if meta.BitrateKbps > 0 {
		cutoff := int(math.Floor(float64(meta.BitrateKbps) * qualityCutoffRatio))
		if maxKbps < cutoff && !enableFallback {
			return d, &domain.QualityDegradationError{
				OriginalKbps: meta.BitrateKbps,
				MaxKbps:      maxKbps,
				CutoffKbps:   cutoff,
			}
		}
	}

	if meta.BitrateKbps < maxKbps {
		// Source already fits under the cap; keep original quality.
		return d, nil
	}
	d.TargetKbps = maxKbps
	d.Reduced = true
	return d, nil
}
