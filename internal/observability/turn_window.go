package observability

import (
	"math"
	"sort"
	"sync"
	"time"
)

// TurnStats summarizes recent turn latencies for one mode.
type TurnStats struct {
	Mode    string  `json:"mode"`
	Samples int     `json:"samples"`
	LastMS  float64 `json:"last_ms"`
	AvgMS   float64 `json:"avg_ms"`
	P50MS   float64 `json:"p50_ms"`
	P95MS   float64 `json:"p95_ms"`
	P99MS   float64 `json:"p99_ms"`
}

type TurnSnapshot struct {
	GeneratedAt time.Time   `json:"generated_at"`
	WindowSize  int         `json:"window_size"`
	Modes       []TurnStats `json:"modes"`
}

// turnWindow keeps a fixed-size ring of latency samples per dialogue mode so
// the perf endpoint can report percentiles without scraping Prometheus.
type turnWindow struct {
	mu         sync.RWMutex
	maxSamples int
	modes      map[string]*turnBuffer
}

type turnBuffer struct {
	values []float64
	next   int
	filled bool
	last   float64
}

func newTurnWindow(maxSamples int) *turnWindow {
	if maxSamples <= 0 {
		maxSamples = 256
	}
	return &turnWindow{
		maxSamples: maxSamples,
		modes:      make(map[string]*turnBuffer),
	}
}

func (w *turnWindow) Observe(mode string, ms float64) {
	if mode == "" || ms < 0 {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	buf, ok := w.modes[mode]
	if !ok {
		buf = &turnBuffer{values: make([]float64, w.maxSamples)}
		w.modes[mode] = buf
	}
	buf.values[buf.next] = ms
	buf.last = ms
	buf.next++
	if buf.next >= len(buf.values) {
		buf.next = 0
		buf.filled = true
	}
}

func (w *turnWindow) Snapshot() TurnSnapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()

	keys := make([]string, 0, len(w.modes))
	for mode := range w.modes {
		keys = append(keys, mode)
	}
	sort.Strings(keys)

	modes := make([]TurnStats, 0, len(keys))
	for _, mode := range keys {
		buf := w.modes[mode]
		n := buf.next
		if buf.filled {
			n = len(buf.values)
		}
		if n <= 0 {
			continue
		}
		samples := make([]float64, n)
		copy(samples, buf.values[:n])
		sort.Float64s(samples)

		sum := 0.0
		for _, v := range samples {
			sum += v
		}

		modes = append(modes, TurnStats{
			Mode:    mode,
			Samples: n,
			LastMS:  round2(buf.last),
			AvgMS:   round2(sum / float64(n)),
			P50MS:   round2(quantile(samples, 0.50)),
			P95MS:   round2(quantile(samples, 0.95)),
			P99MS:   round2(quantile(samples, 0.99)),
		})
	}

	return TurnSnapshot{
		GeneratedAt: time.Now().UTC(),
		WindowSize:  w.maxSamples,
		Modes:       modes,
	}
}

func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	idx := q * float64(len(sorted)-1)
	lo := int(math.Floor(idx))
	hi := int(math.Ceil(idx))
	if lo == hi {
		return sorted[lo]
	}
	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
