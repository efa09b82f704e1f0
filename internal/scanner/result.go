package scanner

import (
	"hash/fnv"
	"strconv"

	scanerrors "github.com/anime-shed/grid-scanner-go/internal/errors"
)

// PenaltyTable maps error kinds to multiplicative confidence penalties.
// The values are tuned policy, not derived constants, so they stay
// configurable instead of being baked into the result type.
type PenaltyTable struct {
	Recognition float64
	Parsing     float64
	Star        float64
	Level       float64
	Other       float64
}

// DefaultPenaltyTable returns the tuned production penalties. Parsing
// failures are penalized hardest because they indicate the recognizer
// produced confident garbage rather than a transient hiccup.
func DefaultPenaltyTable() PenaltyTable {
	return PenaltyTable{
		Recognition: 0.8,
		Parsing:     0.7,
		Star:        0.9,
		Level:       0.9,
		Other:       0.95,
	}
}

func (p PenaltyTable) factor(kind scanerrors.Kind) float64 {
	switch kind {
	case scanerrors.KindRecognition:
		return p.Recognition
	case scanerrors.KindParsing:
		return p.Parsing
	case scanerrors.KindStarAmbiguity:
		return p.Star
	default:
		return p.Other
	}
}

// ScanResult is one recognized item. Identity for deduplication is
// defined over the content fields only; the error list and confidence
// are recognition noise and never participate in equality.
type ScanResult struct {
	Title         string    `json:"title"`
	MainStatName  string    `json:"main_stat_name"`
	MainStatValue string    `json:"main_stat_value"`
	SubStats      [4]string `json:"sub_stats"`
	Level         int       `json:"level"`
	Star          int       `json:"star"`
	Lock          bool      `json:"lock"`
	Equipped      string    `json:"equipped,omitempty"`

	Errors     []string `json:"errors,omitempty"`
	Confidence float64  `json:"confidence"`
}

// NewScanResult returns an empty result with full confidence.
func NewScanResult() ScanResult {
	return ScanResult{Confidence: 1.0}
}

// AddError records a failure against the result and degrades its
// confidence by the kind's penalty. Confidence never leaves [0, 1].
func (r *ScanResult) AddError(err error, penalties PenaltyTable) {
	r.Errors = append(r.Errors, err.Error())
	r.Confidence *= penalties.factor(scanerrors.KindOf(err))
	if r.Confidence < 0 {
		r.Confidence = 0
	}
	if r.Confidence > 1 {
		r.Confidence = 1
	}
}

// Reliable reports whether the result's confidence meets the threshold.
func (r *ScanResult) Reliable(threshold float64) bool {
	return r.Confidence >= threshold
}

// Fingerprint hashes the content fields. Two visually identical items
// with different recognition noise produce the same fingerprint.
func (r *ScanResult) Fingerprint() uint64 {
	h := fnv.New64a()
	write := func(s string) {
		h.Write([]byte(s))
		h.Write([]byte{0})
	}
	write(r.Title)
	write(r.MainStatName)
	write(r.MainStatValue)
	for _, s := range r.SubStats {
		write(s)
	}
	write(strconv.Itoa(r.Level))
	write(strconv.Itoa(r.Star))
	write(strconv.FormatBool(r.Lock))
	write(r.Equipped)
	return h.Sum64()
}
