// Package recovery classifies scan failures, applies per-category retry
// strategies, and circuit-breaks when failures pile up.
package recovery

import (
	"sync"
	"time"

	scanerrors "github.com/anime-shed/grid-scanner-go/internal/errors"
)

// Category groups failures for policy lookup. The mapping from scan
// error kinds lives in Classify.
type Category string

const (
	CategoryOCR           Category = "ocr"
	CategoryCapture       Category = "capture"
	CategoryParsing       Category = "parsing"
	CategoryInput         Category = "input"
	CategoryResource      Category = "resource"
	CategoryConfiguration Category = "configuration"
	CategoryTemporary     Category = "temporary"
	CategoryPermanent     Category = "permanent"
	CategoryUnknown       Category = "unknown"
)

// Classify maps a scan error to its recovery category.
func Classify(err error) Category {
	switch scanerrors.KindOf(err) {
	case scanerrors.KindRecognition, scanerrors.KindStarAmbiguity:
		return CategoryOCR
	case scanerrors.KindCapture:
		return CategoryCapture
	case scanerrors.KindParsing:
		return CategoryParsing
	case scanerrors.KindModelLoad:
		return CategoryResource
	case scanerrors.KindWindowInfo:
		return CategoryConfiguration
	case scanerrors.KindInterrupted, scanerrors.KindDuplicateStreak:
		return CategoryPermanent
	default:
		return CategoryUnknown
	}
}

// StrategyKind enumerates the closed set of recovery strategies.
type StrategyKind int

const (
	ImmediateRetry StrategyKind = iota
	DelayedRetry
	ExponentialBackoff
	Skip
	UseDefault
	UseFallback
	Fail
)

// Strategy is one entry of the policy table. Delay applies to
// DelayedRetry; InitialDelay/MaxDelay/Multiplier to ExponentialBackoff.
type Strategy struct {
	Kind         StrategyKind
	Delay        time.Duration
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// Thresholds configures the circuit breaker.
type Thresholds struct {
	// ConsecutiveFailures trips the breaker once this many of the most
	// recent recorded errors share one category.
	ConsecutiveFailures int
	// ErrorRate trips the breaker once failed recoveries exceed this
	// fraction of recorded errors.
	ErrorRate float64
	// WindowErrorCount trips the breaker once this many errors land
	// inside Window.
	WindowErrorCount int
	Window           time.Duration
}

// Config is the static recovery policy, loaded once per run.
type Config struct {
	MaxRetries int
	Strategies map[Category]Strategy
	Thresholds Thresholds
}

// DefaultConfig mirrors the tuned production policy: OCR retries
// immediately, captures back off, parsing falls back to defaults, and
// configuration problems fail fast.
func DefaultConfig() Config {
	return Config{
		MaxRetries: 3,
		Strategies: map[Category]Strategy{
			CategoryOCR:   {Kind: ImmediateRetry},
			CategoryInput: {Kind: DelayedRetry, Delay: 500 * time.Millisecond},
			CategoryCapture: {
				Kind:         ExponentialBackoff,
				InitialDelay: 100 * time.Millisecond,
				MaxDelay:     10 * time.Second,
				Multiplier:   2.0,
			},
			CategoryParsing:       {Kind: UseDefault},
			CategoryResource:      {Kind: DelayedRetry, Delay: time.Second},
			CategoryConfiguration: {Kind: Fail},
			CategoryTemporary:     {Kind: ImmediateRetry},
			CategoryPermanent:     {Kind: Fail},
			CategoryUnknown:       {Kind: DelayedRetry, Delay: 200 * time.Millisecond},
		},
		Thresholds: Thresholds{
			ConsecutiveFailures: 5,
			ErrorRate:           0.3,
			WindowErrorCount:    10,
			Window:              time.Minute,
		},
	}
}

// Outcome is the closed result set of a recovery attempt.
type Outcome int

const (
	// OutcomeRecovered means a retry attempt succeeded.
	OutcomeRecovered Outcome = iota
	// OutcomeAborted means the circuit breaker or a Fail strategy
	// stopped recovery without retrying.
	OutcomeAborted
	// OutcomeSkipped means the operation should be dropped.
	OutcomeSkipped
	// OutcomeUseDefault means the caller should substitute a default value.
	OutcomeUseDefault
	// OutcomeUseFallback means the caller should try its fallback path.
	OutcomeUseFallback
	// OutcomeMaxRetries means every allowed attempt failed.
	OutcomeMaxRetries
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRecovered:
		return "recovered"
	case OutcomeAborted:
		return "aborted"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeUseDefault:
		return "use_default"
	case OutcomeUseFallback:
		return "use_fallback"
	case OutcomeMaxRetries:
		return "max_retries_exceeded"
	default:
		return "unknown"
	}
}

type recordedError struct {
	at       time.Time
	category Category
}

// Statistics tracks recovery activity. Retries may run under multiple
// goroutines, so all access goes through the mutex.
type Statistics struct {
	mu sync.Mutex

	totalErrors          int
	successfulRecoveries int
	failedRecoveries     int
	categoryCounts       map[Category]int
	recent               []recordedError

	now func() time.Time
}

// NewStatistics creates an empty statistics tracker.
func NewStatistics() *Statistics {
	return &Statistics{
		categoryCounts: make(map[Category]int),
		now:            time.Now,
	}
}

// RecordError counts one error of the given category.
func (s *Statistics) RecordError(category Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalErrors++
	s.categoryCounts[category]++
	s.recent = append(s.recent, recordedError{at: s.now(), category: category})

	// Bound the recent list so long runs do not grow without limit.
	if len(s.recent) > 1000 {
		s.recent = append(s.recent[:0], s.recent[100:]...)
	}
}

// RecordRecoverySuccess counts one successful recovery.
func (s *Statistics) RecordRecoverySuccess() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.successfulRecoveries++
}

// RecordRecoveryFailure counts one exhausted recovery.
func (s *Statistics) RecordRecoveryFailure() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failedRecoveries++
}

// ErrorRate returns failed recoveries as a fraction of recorded errors;
// zero when nothing was recorded.
func (s *Statistics) ErrorRate() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.totalErrors == 0 {
		return 0
	}
	return float64(s.failedRecoveries) / float64(s.totalErrors)
}

// RecoverySuccessRate returns successful recoveries as a fraction of
// recovery attempts; zero when no recovery ran.
func (s *Statistics) RecoverySuccessRate() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	attempts := s.successfulRecoveries + s.failedRecoveries
	if attempts == 0 {
		return 0
	}
	return float64(s.successfulRecoveries) / float64(attempts)
}

// ErrorCountInWindow returns how many errors landed within the window
// ending now.
func (s *Statistics) ErrorCountInWindow(window time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.countInWindowLocked(window)
}

func (s *Statistics) countInWindowLocked(window time.Duration) int {
	cutoff := s.now().Add(-window)
	count := 0
	for _, rec := range s.recent {
		if rec.at.After(cutoff) {
			count++
		}
	}
	return count
}

// Cleanup drops error records older than the window.
func (s *Statistics) Cleanup(window time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.now().Add(-window)
	kept := s.recent[:0]
	for _, rec := range s.recent {
		if rec.at.After(cutoff) {
			kept = append(kept, rec)
		}
	}
	s.recent = kept
}

func (s *Statistics) consecutiveSameCategory(category Category, limit int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for i := len(s.recent) - 1; i >= 0 && len(s.recent)-1-i < limit; i-- {
		if s.recent[i].category == category {
			count++
		}
	}
	return count
}

// Snapshot is a copy of the counters for reporting.
type Snapshot struct {
	TotalErrors          int              `json:"total_errors"`
	SuccessfulRecoveries int              `json:"successful_recoveries"`
	FailedRecoveries     int              `json:"failed_recoveries"`
	CategoryCounts       map[Category]int `json:"category_counts"`
}

// Snapshot returns a copy of the current counters.
func (s *Statistics) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[Category]int, len(s.categoryCounts))
	for k, v := range s.categoryCounts {
		counts[k] = v
	}
	return Snapshot{
		TotalErrors:          s.totalErrors,
		SuccessfulRecoveries: s.successfulRecoveries,
		FailedRecoveries:     s.failedRecoveries,
		CategoryCounts:       counts,
	}
}

// Manager applies the recovery policy. It is safe for concurrent use.
type Manager struct {
	cfg   Config
	stats *Statistics

	// sleep is swappable so tests can observe delays without waiting.
	sleep func(time.Duration)
}

// NewManager creates a manager with the given policy.
func NewManager(cfg Config) *Manager {
	return &Manager{cfg: cfg, stats: NewStatistics(), sleep: time.Sleep}
}

// NewDefaultManager creates a manager with DefaultConfig.
func NewDefaultManager() *Manager {
	return NewManager(DefaultConfig())
}

// Statistics exposes the shared statistics tracker.
func (m *Manager) Statistics() *Statistics {
	return m.stats
}

// Attempt records the triggering error, consults the circuit breaker,
// and applies the category's strategy. The operation is re-invoked only
// for retrying strategies, never more than MaxRetries times, and every
// inter-attempt delay is bounded.
func (m *Manager) Attempt(op func() error, category Category) Outcome {
	m.stats.RecordError(category)

	if !m.shouldAttempt(category) {
		return OutcomeAborted
	}

	strategy, ok := m.cfg.Strategies[category]
	if !ok {
		strategy = Strategy{Kind: DelayedRetry, Delay: 200 * time.Millisecond}
	}

	switch strategy.Kind {
	case Fail:
		return OutcomeAborted
	case Skip:
		return OutcomeSkipped
	case UseDefault:
		return OutcomeUseDefault
	case UseFallback:
		return OutcomeUseFallback
	case DelayedRetry:
		return m.retry(op, category, func(int) {
			m.sleep(strategy.Delay)
		})
	case ExponentialBackoff:
		delay := strategy.InitialDelay
		return m.retry(op, category, func(attempt int) {
			if attempt == 0 {
				return
			}
			m.sleep(delay)
			next := time.Duration(float64(delay) * strategy.Multiplier)
			if next > strategy.MaxDelay {
				next = strategy.MaxDelay
			}
			if next > delay {
				delay = next
			}
		})
	default: // ImmediateRetry
		return m.retry(op, category, func(int) {})
	}
}

// retry runs op up to MaxRetries times, calling pause before each
// attempt (pause decides whether attempt zero sleeps).
func (m *Manager) retry(op func() error, category Category, pause func(attempt int)) Outcome {
	for attempt := 0; attempt < m.cfg.MaxRetries; attempt++ {
		pause(attempt)

		err := op()
		if err == nil {
			m.stats.RecordRecoverySuccess()
			return OutcomeRecovered
		}

		if attempt == m.cfg.MaxRetries-1 {
			m.stats.RecordRecoveryFailure()
			return OutcomeMaxRetries
		}
		m.stats.RecordError(category)
	}
	return OutcomeMaxRetries
}

// shouldAttempt is the circuit breaker: recovery is refused once recent
// same-category failures, windowed error volume, or the overall error
// rate cross their thresholds.
func (m *Manager) shouldAttempt(category Category) bool {
	th := m.cfg.Thresholds

	if th.ConsecutiveFailures > 0 &&
		m.stats.consecutiveSameCategory(category, th.ConsecutiveFailures) >= th.ConsecutiveFailures {
		return false
	}
	if th.WindowErrorCount > 0 && m.stats.ErrorCountInWindow(th.Window) >= th.WindowErrorCount {
		return false
	}
	if th.ErrorRate > 0 && m.stats.ErrorRate() > th.ErrorRate {
		return false
	}
	return true
}
