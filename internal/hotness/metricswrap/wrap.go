// Package metricswrap wraps a hotness tracker with Prometheus metrics and
// sampled logging of cells that cross a threshold.
package metricswrap

import (
	"github.com/rs/zerolog"

	xx "github.com/cespare/xxhash/v2"

	"github.com/mohammed-shakir/digipin-courier/internal/core/observability"
	"github.com/mohammed-shakir/digipin-courier/internal/hotness"
)

type Sizer interface{ Size() int }

type Options struct {
	Tier string
	// Threshold enables hot cell logging when > 0.
	Threshold float64
	// LogSample is the fraction of cells, chosen by hash, that get logged.
	LogSample float64
}

type WithMetrics struct {
	inner  hotness.Interface
	opts   Options
	logger zerolog.Logger
}

var _ hotness.Interface = (*WithMetrics)(nil)

func New(inner hotness.Interface, opts Options, logger zerolog.Logger) *WithMetrics {
	if opts.Tier == "" {
		opts.Tier = "pin"
	}
	return &WithMetrics{
		inner:  inner,
		opts:   opts,
		logger: logger.With().Str("component", "hotness").Logger(),
	}
}

func (w *WithMetrics) Inc(cell string) {
	w.inner.Inc(cell)
	if w.opts.Threshold > 0 {
		score := w.inner.Score(cell)
		if score >= w.opts.Threshold && shouldLog(w.opts.LogSample, cell) {
			w.logger.Info().
				Str("event", "hotness_threshold").
				Float64("score", score).
				Str("tier", w.opts.Tier).
				Str("cell", cell).
				Msg("hot cell above threshold")
		}
	}
	w.updateGauge()
}

func (w *WithMetrics) Score(cell string) float64 {
	return w.inner.Score(cell)
}

func (w *WithMetrics) Reset(cells ...string) {
	w.inner.Reset(cells...)
	w.updateGauge()
}

// Top forwards to the wrapped tracker when it can rank cells.
func (w *WithMetrics) Top(n int) []hotness.Entry {
	if rk, ok := w.inner.(hotness.Ranker); ok {
		return rk.Top(n)
	}
	return nil
}

// Prune forwards to the wrapped tracker and refreshes the gauge.
func (w *WithMetrics) Prune(floor float64) int {
	p, ok := w.inner.(interface{ Prune(float64) int })
	if !ok {
		return 0
	}
	n := p.Prune(floor)
	w.updateGauge()
	if n > 0 {
		w.logger.Debug().Int("removed", n).Msg("pruned cold cells")
	}
	return n
}

func (w *WithMetrics) updateGauge() {
	if s, ok := w.inner.(Sizer); ok {
		observability.SetHotCellsGauge(w.opts.Tier, s.Size())
	}
}

func shouldLog(sample float64, key string) bool {
	if sample <= 0 {
		return false
	}
	if sample >= 1 {
		return true
	}
	const denom = 10000 // 0.01 => 100/10000
	threshold := uint64(sample*denom + 0.5)
	if threshold == 0 {
		return false
	}
	h := xx.Sum64String(key)
	return (h % denom) < threshold
}
