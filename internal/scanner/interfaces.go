// Package scanner contains the scan orchestration engine: the page
// navigation state machine, the recognition worker, and the pipeline
// connecting them. It depends only on narrow capability ports so the
// engine runs unchanged against any platform backend or a test fake.
package scanner

import (
	"image"
	"image/color"
	"sync/atomic"
	"time"

	"github.com/anime-shed/grid-scanner-go/pkg/geometry"
)

// Capturer samples the target window. Implementations must tolerate
// being called repeatedly at high frequency from one goroutine; the
// controller polls single pixels at millisecond intervals.
type Capturer interface {
	// CaptureRect samples a window-relative region.
	CaptureRect(region geometry.RectInt) (image.Image, error)
	// CaptureRelative samples a region offset by an explicit origin.
	CaptureRelative(region geometry.RectInt, origin geometry.PosInt) (image.Image, error)
	// CaptureColor samples a single window-relative pixel.
	CaptureColor(point geometry.PosInt) (color.RGBA, error)
}

// InputDriver injects pointer input into the target window.
type InputDriver interface {
	MoveTo(x, y int) error
	Click() error
	// Scroll scrolls by the given number of wheel notches; fast skips
	// the per-notch settle the driver would otherwise apply.
	Scroll(notches int, fast bool) error
}

// TextResult is one entry of a batch recognition response.
type TextResult struct {
	Text string
	Err  error
}

// Recognizer converts image regions to text.
type Recognizer interface {
	Recognize(img image.Image) (string, error)
	// BatchRecognize amortizes fixed per-call overhead over several
	// regions. The result slice always has one entry per input image.
	BatchRecognize(imgs []image.Image) []TextResult
	// AverageInferenceTime reports the rolling mean inference latency,
	// false until at least one call completed.
	AverageInferenceTime() (time.Duration, bool)
}

// CancelToken is a cooperative stop signal. The controller polls it at
// every yield point; it is safe to trip from any goroutine.
type CancelToken struct {
	flag atomic.Bool
}

// NewCancelToken returns an untripped token.
func NewCancelToken() *CancelToken {
	return &CancelToken{}
}

// Cancel trips the token. Idempotent.
func (t *CancelToken) Cancel() {
	t.flag.Store(true)
}

// Cancelled reports whether the token was tripped.
func (t *CancelToken) Cancelled() bool {
	return t != nil && t.flag.Load()
}
