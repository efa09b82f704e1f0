package scanner

import (
	"errors"
	"testing"

	scanerrors "github.com/anime-shed/grid-scanner-go/internal/errors"
)

func TestSuccessRateZeroDivision(t *testing.T) {
	s := NewErrorStatistics()
	if got := s.SuccessRate(); got != 0 {
		t.Errorf("SuccessRate() with no items = %f, want 0", got)
	}
}

func TestSuccessRateFraction(t *testing.T) {
	s := NewErrorStatistics()
	for i := 0; i < 3; i++ {
		s.RecordItem(true)
	}
	s.RecordItem(false)
	if got := s.SuccessRate(); got != 0.75 {
		t.Errorf("SuccessRate() = %f, want 0.75", got)
	}
}

func TestAvgQuality(t *testing.T) {
	s := NewErrorStatistics()
	if _, ok := s.AvgQuality(); ok {
		t.Error("AvgQuality() with no samples must report absent")
	}
	s.RecordQuality(1)
	s.RecordQuality(0.5)
	if got, ok := s.AvgQuality(); !ok || got != 0.75 {
		t.Errorf("AvgQuality() = %f, %t, want 0.75", got, ok)
	}
}

func TestCountsByKind(t *testing.T) {
	s := NewErrorStatistics()
	s.Record(scanerrors.NewRecognitionError("title", "", nil))
	s.Record(scanerrors.NewRecognitionError("level", "", nil))
	s.Record(scanerrors.NewParsingError("level", "x", "bad"))
	s.Record(errors.New("plain"))

	if got := s.Count(scanerrors.KindRecognition); got != 2 {
		t.Errorf("recognition count = %d, want 2", got)
	}
	if got := s.Count(scanerrors.KindParsing); got != 1 {
		t.Errorf("parsing count = %d, want 1", got)
	}
	if got := s.Count(scanerrors.KindUnknown); got != 1 {
		t.Errorf("unknown count = %d, want 1", got)
	}
	if got := s.TotalErrors(); got != 4 {
		t.Errorf("TotalErrors() = %d, want 4", got)
	}
}
