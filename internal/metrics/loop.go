// Package metrics provides Prometheus metrics for the LED control loop and
// the rate input.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ledspin"

var (
	ticksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "loop",
		Name:      "ticks_total",
		Help:      "Control loop iterations completed",
	})

	position = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "loop",
		Name:      "position",
		Help:      "Index of the lit LED written on the last tick",
	})

	appliedRate = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "loop",
		Name:      "rate_milliseconds",
		Help:      "Clamped sleep applied on the last tick",
	})

	writeErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "led",
		Name:      "write_errors_total",
		Help:      "Failed LED register writes",
	})

	transitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "loop",
		Name:      "transitions_total",
		Help:      "Direction and mode changes",
	}, []string{"kind"})

	pointerSamples = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "pointer",
		Name:      "samples_total",
		Help:      "Ticks on which a pointer report was read",
	})

	rateInput = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "rate",
		Name:      "input_milliseconds",
		Help:      "Last raw rate value stored by a source",
	}, []string{"source"})

	rateInputErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "rate",
		Name:      "input_errors_total",
		Help:      "Rate tokens that could not be parsed",
	}, []string{"source"})

	// Local cache for SSE exporter access.
	loopCache   LoopMetrics
	loopCacheMu sync.RWMutex
)

// LoopMetrics holds current metric values for the control loop.
type LoopMetrics struct {
	Ticks           uint64
	Position        int
	RateMs          int64
	WriteErrors     uint64
	RateInputErrors uint64
}

// RecordTick updates the per-tick metrics.
func RecordTick(tick uint64, pos int, rateMs int64, sampled, writeFailed bool) {
	ticksTotal.Inc()
	position.Set(float64(pos))
	appliedRate.Set(float64(rateMs))
	if sampled {
		pointerSamples.Inc()
	}
	if writeFailed {
		writeErrors.Inc()
	}

	loopCacheMu.Lock()
	loopCache.Ticks = tick
	loopCache.Position = pos
	loopCache.RateMs = rateMs
	if writeFailed {
		loopCache.WriteErrors++
	}
	loopCacheMu.Unlock()
}

// RecordTransition counts a direction or mode change.
func RecordTransition(kind string) {
	transitions.WithLabelValues(kind).Inc()
}

// SetRateInput records the last raw value stored by source.
func SetRateInput(source string, value int64) {
	rateInput.WithLabelValues(source).Set(float64(value))
}

// RecordRateInputError counts an unparseable token from source.
func RecordRateInputError(source string) {
	rateInputErrors.WithLabelValues(source).Inc()

	loopCacheMu.Lock()
	loopCache.RateInputErrors++
	loopCacheMu.Unlock()
}

// GetLoopMetrics returns a copy of the current loop values.
func GetLoopMetrics() LoopMetrics {
	loopCacheMu.RLock()
	defer loopCacheMu.RUnlock()
	return loopCache
}

// Reset clears the cached values. Prometheus counters are not reset.
func Reset() {
	loopCacheMu.Lock()
	loopCache = LoopMetrics{}
	loopCacheMu.Unlock()
}
