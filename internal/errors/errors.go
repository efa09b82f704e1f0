// Package errors defines the closed set of scan failure kinds and the
// context each failure carries for retry policy and diagnostics.
package errors

import (
	"errors"
	"fmt"
)

// Kind tags a ScanError with its failure category.
type Kind string

const (
	KindRecognition     Kind = "recognition"
	KindCapture         Kind = "capture"
	KindParsing         Kind = "parsing"
	KindStarAmbiguity   Kind = "star_ambiguity"
	KindDuplicateStreak Kind = "duplicate_streak"
	KindModelLoad       Kind = "model_load"
	KindWindowInfo      Kind = "window_info"
	KindInterrupted     Kind = "interrupted"
	KindUnknown         Kind = "unknown"
)

// ScanError is a structured scan failure. Instances are immutable once
// constructed; only the fields relevant to the kind are populated.
type ScanError struct {
	ErrKind    Kind
	Field      string  // recognition/parsing: which field failed
	Region     string  // capture: which screen region failed
	RawText    string  // recognition/parsing: what the recognizer produced
	Confidence float64 // star ambiguity: match confidence estimate
	Count      int     // duplicate streak: current run length
	Threshold  int     // duplicate streak: abort threshold
	Scanned    int     // interruption: items processed before the stop
	Reason     string  // interruption and window info detail
	Cause      error
}

// Error implements the error interface
func (e *ScanError) Error() string {
	switch e.ErrKind {
	case KindRecognition:
		return fmt.Sprintf("recognition failed for field %q (raw %q): %v", e.Field, e.RawText, e.Cause)
	case KindCapture:
		return fmt.Sprintf("capture failed for region %q: %v", e.Region, e.Cause)
	case KindParsing:
		return fmt.Sprintf("parsing failed for field %q (raw %q): %s", e.Field, e.RawText, e.Reason)
	case KindStarAmbiguity:
		return fmt.Sprintf("ambiguous rarity color %s (confidence %.2f)", e.Reason, e.Confidence)
	case KindDuplicateStreak:
		return fmt.Sprintf("consecutive duplicate items: %d of %d allowed (likely a paging fault or a scan not started at the top)", e.Count, e.Threshold)
	case KindModelLoad:
		return fmt.Sprintf("recognition model load failed (%s): %v", e.Reason, e.Cause)
	case KindWindowInfo:
		return fmt.Sprintf("window geometry unavailable: %s", e.Reason)
	case KindInterrupted:
		return fmt.Sprintf("scan interrupted (%s) after %d items", e.Reason, e.Scanned)
	default:
		return fmt.Sprintf("unknown scan error: %v", e.Cause)
	}
}

// Unwrap returns the underlying error
func (e *ScanError) Unwrap() error {
	return e.Cause
}

// Kind returns the failure category.
func (e *ScanError) Kind() Kind {
	return e.ErrKind
}

// NewRecognitionError reports a failed text recognition for one field.
func NewRecognitionError(field, rawText string, cause error) *ScanError {
	return &ScanError{ErrKind: KindRecognition, Field: field, RawText: rawText, Cause: cause}
}

// NewCaptureError reports a failed screen capture of a named region.
func NewCaptureError(region string, cause error) *ScanError {
	return &ScanError{ErrKind: KindCapture, Region: region, Cause: cause}
}

// NewParsingError reports recognized text that could not be parsed.
func NewParsingError(field, rawText, reason string) *ScanError {
	return &ScanError{ErrKind: KindParsing, Field: field, RawText: rawText, Reason: reason}
}

// NewStarAmbiguityError reports a rarity color sample too far from every
// reference color.
func NewStarAmbiguityError(detectedColor string, confidence float64) *ScanError {
	return &ScanError{ErrKind: KindStarAmbiguity, Reason: detectedColor, Confidence: confidence}
}

// NewDuplicateStreakError reports a run of consecutive duplicate items.
func NewDuplicateStreakError(count, threshold int) *ScanError {
	return &ScanError{ErrKind: KindDuplicateStreak, Count: count, Threshold: threshold}
}

// NewModelLoadError reports a recognizer backend that failed to start.
func NewModelLoadError(detail string, cause error) *ScanError {
	return &ScanError{ErrKind: KindModelLoad, Reason: detail, Cause: cause}
}

// NewWindowInfoError reports missing or invalid window geometry.
func NewWindowInfoError(reason string) *ScanError {
	return &ScanError{ErrKind: KindWindowInfo, Reason: reason}
}

// NewInterruptedError reports a user-initiated or forced stop.
func NewInterruptedError(reason string, scanned int) *ScanError {
	return &ScanError{ErrKind: KindInterrupted, Reason: reason, Scanned: scanned}
}

// NewUnknownError wraps an unclassified failure.
func NewUnknownError(cause error) *ScanError {
	return &ScanError{ErrKind: KindUnknown, Cause: cause}
}

// KindOf extracts the failure kind from an error chain. Errors that are
// not ScanErrors classify as KindUnknown.
func KindOf(err error) Kind {
	var se *ScanError
	if errors.As(err, &se) {
		return se.ErrKind
	}
	return KindUnknown
}

// IsKind checks whether the error chain contains a ScanError of the
// given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Suggestion returns a user-facing hint for resolving the error.
func Suggestion(err error) string {
	switch KindOf(err) {
	case KindRecognition:
		return "check that the panel is fully visible and the window is not obscured"
	case KindCapture:
		return "check that the target window is visible and not minimized"
	case KindParsing:
		return "check the display language and text scale settings"
	case KindStarAmbiguity:
		return "check the display brightness; the rarity marker must be clearly visible"
	case KindDuplicateStreak:
		return "start the scan from the top of the list and do not page manually while scanning"
	case KindModelLoad:
		return "check that the recognition backend and its language data are installed"
	case KindWindowInfo:
		return "check that the window resolution matches a supported layout"
	case KindInterrupted:
		return "the scan was stopped; partial results were kept and it can be restarted"
	default:
		return "unexpected failure; check the environment and logs"
	}
}
