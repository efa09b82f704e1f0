package scanner

import (
	"errors"
	"testing"

	scanerrors "github.com/anime-shed/grid-scanner-go/internal/errors"
)

func sampleResult() ScanResult {
	r := NewScanResult()
	r.Title = "Hunter's Bow"
	r.MainStatName = "ATK"
	r.MainStatValue = "46.6%"
	r.SubStats = [4]string{"ATK+19", "CRIT Rate+3.9%", "DEF+23", "HP+269"}
	r.Level = 20
	r.Star = 5
	r.Lock = true
	return r
}

func TestFingerprintIgnoresNoise(t *testing.T) {
	a := sampleResult()
	b := sampleResult()
	b.AddError(scanerrors.NewRecognitionError("title", "x", errors.New("blur")), DefaultPenaltyTable())
	b.AddError(scanerrors.NewParsingError("level", "x", "bad"), DefaultPenaltyTable())

	if a.Fingerprint() != b.Fingerprint() {
		t.Error("identical content with different noise must fingerprint equal")
	}
}

func TestFingerprintSensitiveToContent(t *testing.T) {
	base := sampleResult()
	for name, mutate := range map[string]func(*ScanResult){
		"title":    func(r *ScanResult) { r.Title = "Other Bow" },
		"level":    func(r *ScanResult) { r.Level = 16 },
		"star":     func(r *ScanResult) { r.Star = 4 },
		"lock":     func(r *ScanResult) { r.Lock = false },
		"sub stat": func(r *ScanResult) { r.SubStats[2] = "DEF+19" },
	} {
		t.Run(name, func(t *testing.T) {
			other := sampleResult()
			mutate(&other)
			if base.Fingerprint() == other.Fingerprint() {
				t.Error("content change did not change the fingerprint")
			}
		})
	}
}

func TestFingerprintFieldBoundaries(t *testing.T) {
	a := sampleResult()
	a.Title = "AB"
	a.MainStatName = "C"
	b := sampleResult()
	b.Title = "A"
	b.MainStatName = "BC"
	if a.Fingerprint() == b.Fingerprint() {
		t.Error("adjacent fields must not concatenate into the same fingerprint")
	}
}

func TestAddErrorDegradesConfidence(t *testing.T) {
	r := NewScanResult()
	penalties := DefaultPenaltyTable()

	prev := r.Confidence
	for _, err := range []error{
		scanerrors.NewRecognitionError("title", "", nil),
		scanerrors.NewParsingError("level", "x", "bad"),
		scanerrors.NewStarAmbiguityError("c", 0.1),
		scanerrors.NewCaptureError("panel", nil),
	} {
		r.AddError(err, penalties)
		if r.Confidence > prev {
			t.Fatalf("confidence rose from %f to %f", prev, r.Confidence)
		}
		if r.Confidence < 0 || r.Confidence > 1 {
			t.Fatalf("confidence %f left [0,1]", r.Confidence)
		}
		prev = r.Confidence
	}
	// 0.8 * 0.7 * 0.9 * 0.95
	if want := 0.8 * 0.7 * 0.9 * 0.95; !closeTo(r.Confidence, want) {
		t.Errorf("confidence = %f, want %f", r.Confidence, want)
	}
	if len(r.Errors) != 4 {
		t.Errorf("recorded %d errors, want 4", len(r.Errors))
	}
}

func TestReliable(t *testing.T) {
	r := NewScanResult()
	if !r.Reliable(0.9) {
		t.Error("fresh result should be reliable")
	}
	r.AddError(scanerrors.NewParsingError("level", "x", "bad"), DefaultPenaltyTable())
	if r.Reliable(0.9) {
		t.Error("degraded result should fail a 0.9 threshold")
	}
	if !r.Reliable(0.5) {
		t.Error("single parsing error should still pass a 0.5 threshold")
	}
}

func closeTo(a, b float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < 1e-9
}
