package download

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"clipstream/internal/metrics"
)

// DiskGuard periodically checks available disk space on the directory that
// holds task workspaces and flips into a low state when free space drops
// below MinFreeBytes. New tasks are refused while low; the state clears once
// free space exceeds ResumeBytes (hysteresis prevents rapid flapping).
type DiskGuard struct {
	Dir          string
	MinFreeBytes int64
	// ResumeBytes defaults to twice MinFreeBytes when unset or too small.
	ResumeBytes int64
	Interval    time.Duration
	Logger      *slog.Logger

	mu  sync.Mutex
	low bool
}

// Low reports whether the guard currently refuses new tasks.
func (g *DiskGuard) Low() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.low
}

func (g *DiskGuard) setLow(low bool) {
	g.mu.Lock()
	g.low = low
	g.mu.Unlock()
}

// Run starts the periodic check loop. It blocks until ctx is cancelled.
func (g *DiskGuard) Run(ctx context.Context) {
	interval := g.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	resume := g.ResumeBytes
	if resume <= g.MinFreeBytes {
		resume = g.MinFreeBytes * 2
	}
	logger := g.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			free, err := diskFreeBytes(g.Dir)
			if err != nil {
				logger.Warn("disk space check failed",
					slog.String("path", g.Dir),
					slog.String("error", err.Error()),
				)
				continue
			}
			metrics.DiskFreeBytes.Set(float64(free))

			if !g.Low() && free < g.MinFreeBytes {
				logger.Warn("low disk space, refusing new tasks",
					slog.Int64("freeBytes", free),
					slog.Int64("thresholdBytes", g.MinFreeBytes),
				)
				g.setLow(true)
			} else if g.Low() && free >= resume {
				logger.Info("disk space recovered, accepting tasks again",
					slog.Int64("freeBytes", free),
					slog.Int64("resumeBytes", resume),
				)
				g.setLow(false)
			}
		}
	}
}
