package scanner

import (
	"github.com/sirupsen/logrus"

	scanerrors "github.com/anime-shed/grid-scanner-go/internal/errors"
	"github.com/anime-shed/grid-scanner-go/internal/logger"
)

// systemicWarningRate is the success rate below which the run is
// flagged as having a systemic quality problem rather than isolated
// recognition noise.
const systemicWarningRate = 0.8

// ErrorStatistics aggregates per-kind error counts and the item success
// count for one run. It is owned by the worker and read only after the
// worker finishes.
type ErrorStatistics struct {
	counts    map[scanerrors.Kind]int
	successes int
	attempts  int

	qualitySum   float64
	qualityCount int
}

// NewErrorStatistics returns an empty tracker.
func NewErrorStatistics() *ErrorStatistics {
	return &ErrorStatistics{counts: make(map[scanerrors.Kind]int)}
}

// Record counts one error against its kind.
func (s *ErrorStatistics) Record(err error) {
	s.counts[scanerrors.KindOf(err)]++
}

// RecordItem counts one processed item, clean or not.
func (s *ErrorStatistics) RecordItem(clean bool) {
	s.attempts++
	if clean {
		s.successes++
	}
}

// RecordQuality feeds one recognition quality ratio into the run
// aggregate. Callers compare raw recognized text against the corrected
// form; a low mean means the corrector did a lot of work.
func (s *ErrorStatistics) RecordQuality(ratio float64) {
	s.qualitySum += ratio
	s.qualityCount++
}

// AvgQuality returns the mean recognition quality ratio, false before
// any sample was recorded.
func (s *ErrorStatistics) AvgQuality() (float64, bool) {
	if s.qualityCount == 0 {
		return 0, false
	}
	return s.qualitySum / float64(s.qualityCount), true
}

// SuccessRate returns clean items as a fraction of processed items,
// zero when nothing was processed.
func (s *ErrorStatistics) SuccessRate() float64 {
	if s.attempts == 0 {
		return 0
	}
	return float64(s.successes) / float64(s.attempts)
}

// TotalErrors returns the number of recorded errors across all kinds.
func (s *ErrorStatistics) TotalErrors() int {
	total := 0
	for _, n := range s.counts {
		total += n
	}
	return total
}

// Count returns the number of recorded errors of one kind.
func (s *ErrorStatistics) Count(kind scanerrors.Kind) int {
	return s.counts[kind]
}

// LogSummary reports the aggregate error picture at the end of a run.
// Per-item errors are never surfaced individually; this is the one
// place the user sees them, as counts by category.
func (s *ErrorStatistics) LogSummary() {
	fields := logrus.Fields{
		"items":        s.attempts,
		"clean":        s.successes,
		"errors":       s.TotalErrors(),
		"success_rate": s.SuccessRate(),
	}
	for kind, n := range s.counts {
		if n > 0 {
			fields[string(kind)] = n
		}
	}
	if avg, ok := s.AvgQuality(); ok {
		fields["recognition_quality"] = avg
	}

	entry := logger.WithFields(fields)
	if s.attempts > 0 && s.SuccessRate() < systemicWarningRate {
		entry.Warn("scan quality below threshold; results may need review")
		return
	}
	entry.Info("scan statistics")
}
