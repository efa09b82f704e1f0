package scanner

import (
	"errors"
	"image/color"
	"testing"
	"time"

	scanerrors "github.com/anime-shed/grid-scanner-go/internal/errors"
	"github.com/anime-shed/grid-scanner-go/internal/recovery"
)

func TestParseItemCount(t *testing.T) {
	tests := []struct {
		raw     string
		want    int
		wantErr bool
	}{
		{"1234/2100", 1234, false},
		{" 982 /2100", 982, false},
		{"75", 75, false},
		{"abc", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := parseItemCount(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("parseItemCount(%q) error: %v", tt.raw, err)
			}
			if got != tt.want {
				t.Errorf("parseItemCount(%q) = %d, want %d", tt.raw, got, tt.want)
			}
		})
	}
}

func TestStarLevel(t *testing.T) {
	for i, c := range starColors {
		got, err := starLevel(c)
		if err != nil {
			t.Fatalf("starLevel(reference %d) error: %v", i, err)
		}
		if got != i+1 {
			t.Errorf("starLevel(reference %d) = %d, want %d", i, got, i+1)
		}
	}

	// A slightly drifted sample still matches.
	drifted := color.RGBA{R: 190, G: 103, B: 52, A: 255}
	if got, err := starLevel(drifted); err != nil || got != 5 {
		t.Errorf("starLevel(drifted) = (%d, %v), want (5, nil)", got, err)
	}

	// Black is nowhere near any reference color.
	if _, err := starLevel(color.RGBA{A: 255}); !scanerrors.IsKind(err, scanerrors.KindStarAmbiguity) {
		t.Errorf("starLevel(black) error = %v, want star ambiguity", err)
	}
}

func testScanner(caps *fakeCapturer, input *fakeInput, rec Recognizer, itemCount int, cancel *CancelToken) *ItemScanner {
	cfg := testConfig()
	cfg.ItemCount = itemCount
	s := New(caps, input, rec, cfg, DefaultLayout1080p(), cancel, nil, recovery.NewDefaultManager())
	s.sleep = func(time.Duration) {}
	return s
}

func TestScanEndToEnd(t *testing.T) {
	caps := &fakeCapturer{
		colorCycle: scrollFlagCycle(),
		starColor:  starColors[4],
	}
	rec := &scriptedRecognizer{
		batches: [][]TextResult{
			texts("First Bow", "ATK", "46.6%", "+20", ""),
			texts("Second Bow", "HP", "4780", "+16", ""),
		},
		singles: texts("ATK+19"),
	}
	s := testScanner(caps, &fakeInput{}, rec, 2, NewCancelToken())

	report, err := s.Scan()
	if err != nil {
		t.Fatalf("Scan() error: %v", err)
	}
	if report.Scanned != 2 {
		t.Errorf("Scanned = %d, want 2", report.Scanned)
	}
	if len(report.Results) != 2 {
		t.Fatalf("got %d results, want 2", len(report.Results))
	}
	if report.Results[0].Title != "First Bow" || report.Results[1].Title != "Second Bow" {
		t.Errorf("unexpected result order: %q, %q", report.Results[0].Title, report.Results[1].Title)
	}
	if report.Results[0].Star != 5 {
		t.Errorf("star = %d, want 5", report.Results[0].Star)
	}
	if report.Interrupted || report.StoppedEarly {
		t.Error("normal completion flagged as interrupted or early-stopped")
	}
}

func TestScanInterruptedKeepsPartialResults(t *testing.T) {
	caps := &fakeCapturer{colorCycle: scrollFlagCycle(), starColor: starColors[4]}
	rec := &scriptedRecognizer{
		batches: [][]TextResult{
			texts("First Bow", "ATK", "46.6%", "+20", ""),
			texts("Second Bow", "HP", "4780", "+16", ""),
		},
		singles: texts("ATK+19"),
	}
	cancel := NewCancelToken()
	cancel.Cancel()
	s := testScanner(caps, &fakeInput{}, rec, 8, cancel)

	report, err := s.Scan()
	if err != nil {
		t.Fatalf("interruption must not surface as an error: %v", err)
	}
	if !report.Interrupted {
		t.Error("report should be flagged interrupted")
	}
	if report.Scanned != 0 {
		t.Errorf("Scanned = %d, want 0 for a pre-tripped token", report.Scanned)
	}
}

func TestScanMinStarStopsProducer(t *testing.T) {
	caps := &fakeCapturer{colorCycle: scrollFlagCycle(), starColor: starColors[2]} // 3 star
	rec := &scriptedRecognizer{
		batches: [][]TextResult{texts("First Bow", "ATK", "46.6%", "+20", "")},
		singles: texts("ATK+19"),
	}
	s := testScanner(caps, &fakeInput{}, rec, 8, NewCancelToken())
	s.cfg.MinStar = 4

	report, err := s.Scan()
	if err != nil {
		t.Fatalf("Scan() error: %v", err)
	}
	if len(report.Results) != 0 {
		t.Errorf("got %d results, want none below the rarity gate", len(report.Results))
	}
}

func TestItemCountFallsBackToCap(t *testing.T) {
	caps := &fakeCapturer{}
	rec := &scriptedRecognizer{singles: texts("garbage")}
	s := testScanner(caps, &fakeInput{}, rec, 0, NewCancelToken())

	count, err := s.ItemCount()
	if err != nil {
		t.Fatalf("ItemCount() error: %v", err)
	}
	if count != MaxItemCount {
		t.Errorf("ItemCount() = %d, want the %d cap", count, MaxItemCount)
	}
}

func TestItemCountRecognized(t *testing.T) {
	caps := &fakeCapturer{}
	rec := &scriptedRecognizer{singles: texts("1234/2100")}
	s := testScanner(caps, &fakeInput{}, rec, 0, NewCancelToken())

	count, err := s.ItemCount()
	if err != nil {
		t.Fatalf("ItemCount() error: %v", err)
	}
	if count != 1234 {
		t.Errorf("ItemCount() = %d, want 1234", count)
	}
}

func TestItemCountCaptureFailure(t *testing.T) {
	caps := &fakeCapturer{rectErr: errors.New("window gone")}
	rec := &scriptedRecognizer{}
	s := testScanner(caps, &fakeInput{}, rec, 0, NewCancelToken())

	if _, err := s.ItemCount(); !scanerrors.IsKind(err, scanerrors.KindCapture) {
		t.Errorf("ItemCount() error = %v, want capture kind", err)
	}
}
