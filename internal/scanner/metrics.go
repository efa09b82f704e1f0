package scanner

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes scan counters for the optional status server. A nil
// *Metrics disables collection, so the engine never branches on whether
// metrics are wired.
type Metrics struct {
	cellsVisited        prometheus.Counter
	itemsScanned        prometheus.Counter
	duplicatesDropped   prometheus.Counter
	scrollRetries       prometheus.Counter
	recognitionFailures *prometheus.CounterVec
	switchWait          prometheus.Histogram
}

// NewMetrics registers the scan collectors on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		cellsVisited: factory.NewCounter(prometheus.CounterOpts{
			Name: "scan_cells_visited_total",
			Help: "Grid cells visited by the controller.",
		}),
		itemsScanned: factory.NewCounter(prometheus.CounterOpts{
			Name: "scan_items_scanned_total",
			Help: "Unique items accepted by the worker.",
		}),
		duplicatesDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "scan_duplicates_dropped_total",
			Help: "Items dropped by content deduplication.",
		}),
		scrollRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: "scan_scroll_retries_total",
			Help: "Extra polling attempts spent confirming row scrolls.",
		}),
		recognitionFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "scan_recognition_failures_total",
			Help: "Field recognition failures by error kind.",
		}, []string{"kind"}),
		switchWait: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "scan_item_switch_wait_seconds",
			Help:    "Time spent waiting for the item-switch signal.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 10),
		}),
	}
}

func (m *Metrics) CellVisited() {
	if m == nil {
		return
	}
	m.cellsVisited.Inc()
}

func (m *Metrics) ItemScanned() {
	if m == nil {
		return
	}
	m.itemsScanned.Inc()
}

func (m *Metrics) DuplicateDropped() {
	if m == nil {
		return
	}
	m.duplicatesDropped.Inc()
}

func (m *Metrics) ScrollRetry() {
	if m == nil {
		return
	}
	m.scrollRetries.Inc()
}

func (m *Metrics) RecognitionFailure(kind string) {
	if m == nil {
		return
	}
	m.recognitionFailures.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObserveSwitchWait(d time.Duration) {
	if m == nil {
		return
	}
	m.switchWait.Observe(d.Seconds())
}
