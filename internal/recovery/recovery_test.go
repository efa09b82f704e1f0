package recovery

import (
	"errors"
	"testing"
	"time"

	scanerrors "github.com/anime-shed/grid-scanner-go/internal/errors"
)

// testManager returns a manager whose sleeps are recorded, not taken.
func testManager(cfg Config) (*Manager, *[]time.Duration) {
	m := NewManager(cfg)
	var slept []time.Duration
	m.sleep = func(d time.Duration) { slept = append(slept, d) }
	return m, &slept
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Category
	}{
		{"recognition", scanerrors.NewRecognitionError("title", "", nil), CategoryOCR},
		{"star ambiguity", scanerrors.NewStarAmbiguityError("c", 0.5), CategoryOCR},
		{"capture", scanerrors.NewCaptureError("panel", nil), CategoryCapture},
		{"parsing", scanerrors.NewParsingError("level", "x", "bad"), CategoryParsing},
		{"model load", scanerrors.NewModelLoadError("m", nil), CategoryResource},
		{"window info", scanerrors.NewWindowInfoError("r"), CategoryConfiguration},
		{"interrupted", scanerrors.NewInterruptedError("r", 1), CategoryPermanent},
		{"duplicate streak", scanerrors.NewDuplicateStreakError(8, 8), CategoryPermanent},
		{"plain", errors.New("boom"), CategoryUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestImmediateRetryRecovers(t *testing.T) {
	m, _ := testManager(DefaultConfig())

	calls := 0
	op := func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	}

	if got := m.Attempt(op, CategoryOCR); got != OutcomeRecovered {
		t.Fatalf("Attempt() = %v, want recovered", got)
	}
	if calls != 3 {
		t.Errorf("operation invoked %d times, want 3", calls)
	}
}

func TestMaxRetriesExceeded(t *testing.T) {
	m, _ := testManager(DefaultConfig())

	calls := 0
	op := func() error {
		calls++
		return errors.New("persistent")
	}

	if got := m.Attempt(op, CategoryOCR); got != OutcomeMaxRetries {
		t.Fatalf("Attempt() = %v, want max retries", got)
	}
	if calls != DefaultConfig().MaxRetries {
		t.Errorf("operation invoked %d times, want %d", calls, DefaultConfig().MaxRetries)
	}
}

func TestShortCircuitStrategies(t *testing.T) {
	tests := []struct {
		name     string
		category Category
		want     Outcome
	}{
		{"parsing uses default", CategoryParsing, OutcomeUseDefault},
		{"configuration fails", CategoryConfiguration, OutcomeAborted},
		{"permanent fails", CategoryPermanent, OutcomeAborted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ := testManager(DefaultConfig())
			invoked := false
			got := m.Attempt(func() error { invoked = true; return nil }, tt.category)
			if got != tt.want {
				t.Errorf("Attempt() = %v, want %v", got, tt.want)
			}
			if invoked {
				t.Error("short-circuit strategy must not invoke the operation")
			}
		})
	}
}

func TestSkipStrategy(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Strategies[CategoryUnknown] = Strategy{Kind: Skip}
	m, _ := testManager(cfg)

	if got := m.Attempt(func() error { return nil }, CategoryUnknown); got != OutcomeSkipped {
		t.Errorf("Attempt() = %v, want skipped", got)
	}
}

func TestDelayedRetrySleepsPerAttempt(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxRetries = 3
	cfg.Thresholds = Thresholds{}
	cfg.Strategies[CategoryCapture] = Strategy{
		Kind:  DelayedRetry,
		Delay: 500 * time.Millisecond,
	}
	m, slept := testManager(cfg)

	calls := 0
	m.Attempt(func() error { calls++; return errors.New("down") }, CategoryCapture)

	if calls != cfg.MaxRetries {
		t.Fatalf("operation invoked %d times, want %d", calls, cfg.MaxRetries)
	}
	if len(*slept) != cfg.MaxRetries {
		t.Fatalf("recorded %d delays, want one per attempt (%d)", len(*slept), cfg.MaxRetries)
	}
	for i, d := range *slept {
		if d != 500*time.Millisecond {
			t.Errorf("delay %d = %s, want 500ms", i, d)
		}
	}
}

func TestExponentialBackoffDelaysBoundedAndNonDecreasing(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxRetries = 6
	cfg.Thresholds = Thresholds{} // disable the breaker for this test
	cfg.Strategies[CategoryCapture] = Strategy{
		Kind:         ExponentialBackoff,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     400 * time.Millisecond,
		Multiplier:   2.0,
	}
	m, slept := testManager(cfg)

	m.Attempt(func() error { return errors.New("down") }, CategoryCapture)

	if len(*slept) != cfg.MaxRetries-1 {
		t.Fatalf("recorded %d delays, want %d", len(*slept), cfg.MaxRetries-1)
	}
	prev := time.Duration(0)
	for i, d := range *slept {
		if d < prev {
			t.Errorf("delay %d (%s) decreased from %s", i, d, prev)
		}
		if d > 400*time.Millisecond {
			t.Errorf("delay %d (%s) exceeds max delay", i, d)
		}
		prev = d
	}
	if (*slept)[len(*slept)-1] != 400*time.Millisecond {
		t.Errorf("final delay = %s, want capped 400ms", (*slept)[len(*slept)-1])
	}
}

func TestBackoffWithShrinkingMultiplierStaysNonDecreasing(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxRetries = 4
	cfg.Thresholds = Thresholds{}
	cfg.Strategies[CategoryCapture] = Strategy{
		Kind:         ExponentialBackoff,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   0.5,
	}
	m, slept := testManager(cfg)

	m.Attempt(func() error { return errors.New("down") }, CategoryCapture)

	prev := time.Duration(0)
	for i, d := range *slept {
		if d < prev {
			t.Errorf("delay %d (%s) decreased from %s", i, d, prev)
		}
		prev = d
	}
}

func TestCircuitBreakerConsecutiveFailures(t *testing.T) {
	cfg := DefaultConfig()
	m, _ := testManager(cfg)

	for i := 0; i < cfg.Thresholds.ConsecutiveFailures; i++ {
		m.stats.RecordError(CategoryOCR)
	}

	invoked := false
	got := m.Attempt(func() error { invoked = true; return nil }, CategoryOCR)
	if got != OutcomeAborted {
		t.Errorf("Attempt() = %v, want aborted", got)
	}
	if invoked {
		t.Error("circuit breaker must not invoke the operation")
	}
}

func TestCircuitBreakerWindowCount(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Thresholds.ConsecutiveFailures = 0
	cfg.Thresholds.ErrorRate = 0
	cfg.Thresholds.WindowErrorCount = 3
	cfg.Thresholds.Window = time.Minute
	m, _ := testManager(cfg)

	// Alternate categories so the consecutive check could not trip.
	m.stats.RecordError(CategoryOCR)
	m.stats.RecordError(CategoryCapture)
	m.stats.RecordError(CategoryOCR)

	if got := m.Attempt(func() error { return nil }, CategoryOCR); got != OutcomeAborted {
		t.Errorf("Attempt() = %v, want aborted once window count reached", got)
	}
}

func TestStatisticsRates(t *testing.T) {
	s := NewStatistics()

	if s.ErrorRate() != 0 {
		t.Errorf("ErrorRate() on empty stats = %f, want 0", s.ErrorRate())
	}
	if s.RecoverySuccessRate() != 0 {
		t.Errorf("RecoverySuccessRate() on empty stats = %f, want 0", s.RecoverySuccessRate())
	}

	s.RecordError(CategoryOCR)
	s.RecordRecoverySuccess()
	s.RecordError(CategoryCapture)
	s.RecordRecoveryFailure()

	if got := s.ErrorRate(); got != 0.5 {
		t.Errorf("ErrorRate() = %f, want 0.5", got)
	}
	if got := s.RecoverySuccessRate(); got != 0.5 {
		t.Errorf("RecoverySuccessRate() = %f, want 0.5", got)
	}
}

func TestErrorCountInWindowAndCleanup(t *testing.T) {
	s := NewStatistics()
	base := time.Now()
	s.now = func() time.Time { return base }

	s.recent = []recordedError{
		{at: base.Add(-2 * time.Minute), category: CategoryOCR},
		{at: base.Add(-30 * time.Second), category: CategoryCapture},
		{at: base, category: CategoryParsing},
	}

	if got := s.ErrorCountInWindow(time.Minute); got != 2 {
		t.Errorf("ErrorCountInWindow() = %d, want 2", got)
	}

	s.Cleanup(time.Minute)
	if len(s.recent) != 2 {
		t.Errorf("Cleanup kept %d records, want 2", len(s.recent))
	}
}

func TestSnapshotCopiesCounts(t *testing.T) {
	s := NewStatistics()
	s.RecordError(CategoryOCR)
	s.RecordError(CategoryOCR)
	s.RecordError(CategoryParsing)

	snap := s.Snapshot()
	if snap.TotalErrors != 3 || snap.CategoryCounts[CategoryOCR] != 2 {
		t.Errorf("unexpected snapshot: %+v", snap)
	}

	snap.CategoryCounts[CategoryOCR] = 99
	if s.Snapshot().CategoryCounts[CategoryOCR] != 2 {
		t.Error("snapshot must not alias internal state")
	}
}
