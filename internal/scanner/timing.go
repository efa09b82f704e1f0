package scanner

import (
	"time"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"

	"github.com/anime-shed/grid-scanner-go/internal/logger"
)

const (
	adjustWindow    = 5 * time.Second
	shrinkThreshold = 0.95
	growThreshold   = 0.80
	shrinkFactor    = 0.9
	growFactor      = 1.2
)

// AdaptiveDelay adjusts the inter-item pacing delay from the rolling
// success ratio. High success rates shrink the delay toward half the
// base value; low rates grow it toward double. The delay never leaves
// [base/2, base*2].
type AdaptiveDelay struct {
	base    time.Duration
	current time.Duration

	successes int
	failures  int
	lastTick  time.Time

	now func() time.Time
}

// NewAdaptiveDelay starts at the base delay.
func NewAdaptiveDelay(base time.Duration) *AdaptiveDelay {
	d := &AdaptiveDelay{base: base, current: base, now: time.Now}
	d.lastTick = d.now()
	return d
}

// Record feeds one item outcome into the current window.
func (d *AdaptiveDelay) Record(success bool) {
	if success {
		d.successes++
	} else {
		d.failures++
	}
}

// Current returns the delay to apply before the next item, adjusting it
// first if the window has elapsed.
func (d *AdaptiveDelay) Current() time.Duration {
	if d.now().Sub(d.lastTick) >= adjustWindow {
		d.adjust()
	}
	return d.current
}

func (d *AdaptiveDelay) adjust() {
	total := d.successes + d.failures
	if total > 0 {
		rate := float64(d.successes) / float64(total)
		switch {
		case rate > shrinkThreshold:
			d.current = time.Duration(float64(d.current) * shrinkFactor)
			if d.current < d.base/2 {
				d.current = d.base / 2
			}
		case rate < growThreshold:
			d.current = time.Duration(float64(d.current) * growFactor)
			if d.current > d.base*2 {
				d.current = d.base * 2
			}
		}
	}
	d.successes = 0
	d.failures = 0
	d.lastTick = d.now()
}

// PerfMonitor collects wall-clock samples of the two latencies that
// dominate scan time and summarizes them at the end of a run.
type PerfMonitor struct {
	switchWaits  []float64 // seconds
	recognitions []float64 // seconds
	started      time.Time
}

// NewPerfMonitor starts the run clock.
func NewPerfMonitor() *PerfMonitor {
	return &PerfMonitor{started: time.Now()}
}

// RecordSwitchWait logs one item-switch wait.
func (p *PerfMonitor) RecordSwitchWait(d time.Duration) {
	p.switchWaits = append(p.switchWaits, d.Seconds())
}

// RecordRecognition logs one per-item recognition duration.
func (p *PerfMonitor) RecordRecognition(d time.Duration) {
	p.recognitions = append(p.recognitions, d.Seconds())
}

// Elapsed returns the run duration so far.
func (p *PerfMonitor) Elapsed() time.Duration {
	return time.Since(p.started)
}

// LogSummary reports mean latencies and throughput for the run.
func (p *PerfMonitor) LogSummary(items int) {
	elapsed := p.Elapsed()
	fields := logrus.Fields{
		"items":   items,
		"elapsed": elapsed.Round(time.Millisecond).String(),
	}
	if len(p.switchWaits) > 0 {
		fields["avg_switch_wait_ms"] = stat.Mean(p.switchWaits, nil) * 1000
	}
	if len(p.recognitions) > 0 {
		fields["avg_recognition_ms"] = stat.Mean(p.recognitions, nil) * 1000
	}
	if items > 0 && elapsed > 0 {
		fields["items_per_second"] = float64(items) / elapsed.Seconds()
	}
	logger.WithFields(fields).Info("scan performance")
}
