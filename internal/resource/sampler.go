// Package resource runs a periodic CPU/memory sampler that feeds the
// metrics registry. It is purely observational: it never reads or
// mutates the topic table, the stats record, or the admission gate,
// and it never throttles or rejects connections.
package resource

import (
	"context"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"go.uber.org/zap"

	"psbroker/internal/metrics"
)

// Sampler periodically measures system-wide CPU usage and the
// process's allocated Go heap bytes.
type Sampler struct {
	registry *metrics.Registry
	interval time.Duration
	log      *zap.Logger
}

// New creates a sampler that reports into registry every interval.
func New(registry *metrics.Registry, interval time.Duration, log *zap.Logger) *Sampler {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Sampler{registry: registry, interval: interval, log: log}
}

// Run samples on a ticker until ctx is cancelled.
func (s *Sampler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sample()
		}
	}
}

func (s *Sampler) sample() {
	percent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		if s.log != nil {
			s.log.Debug("cpu sample failed", zap.Error(err))
		}
	} else if len(percent) > 0 {
		s.registry.CPUPercent.Set(percent[0])
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	s.registry.MemoryBytes.Set(float64(mem.Alloc))
}
