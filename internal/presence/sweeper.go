package presence

import (
	"context"
	"log/slog"
	"time"

	"call-presence/internal/platform/metrics"
)

// DefaultRetention is how long a session may live before the sweeper drops it.
const DefaultRetention = 24 * time.Hour

// DefaultSweepInterval is how often the sweeper runs.
const DefaultSweepInterval = time.Hour

// Sweeper periodically discards sessions older than the retention window,
// regardless of completion state. This is leak prevention, not correctness:
// sessions that never complete are dropped and no report is sent for them.
type Sweeper struct {
	registry *Registry
	interval time.Duration
	maxAge   time.Duration
	log      *slog.Logger
	metrics  *metrics.Metrics
}

// NewSweeper returns a Sweeper over registry. Non-positive interval or maxAge
// fall back to the defaults. m may be nil to disable metric recording.
func NewSweeper(registry *Registry, interval, maxAge time.Duration, log *slog.Logger, m *metrics.Metrics) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if maxAge <= 0 {
		maxAge = DefaultRetention
	}
	return &Sweeper{
		registry: registry,
		interval: interval,
		maxAge:   maxAge,
		log:      log,
		metrics:  m,
	}
}

// Run sweeps on every interval tick until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *Sweeper) sweep() {
	swept := s.registry.SweepStale(s.maxAge)
	for _, room := range swept {
		s.log.Info("stale session swept", slog.String("room", string(room)))
	}
	if len(swept) > 0 && s.metrics != nil {
		s.metrics.AddSessionsSwept(len(swept))
	}
}
