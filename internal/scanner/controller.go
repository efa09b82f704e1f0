package scanner

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/anime-shed/grid-scanner-go/internal/config"
	scanerrors "github.com/anime-shed/grid-scanner-go/internal/errors"
	"github.com/anime-shed/grid-scanner-go/internal/logger"
	"github.com/anime-shed/grid-scanner-go/pkg/colorutil"
)

const (
	// scrollMaxAttempts bounds how many wheel notches a single row
	// scroll may take before the run is declared stuck.
	scrollMaxAttempts = 25

	// scrollColorThreshold is the squared color distance below which
	// two flag samples count as the same rendering state.
	scrollColorThreshold = 10

	// alignMaxPolls bounds the fine-alignment scrolls after an
	// estimated page scroll.
	alignMaxPolls = 10

	pollInterval     = 10 * time.Millisecond
	pollIntervalFast = 5 * time.Millisecond
)

// StepKind discriminates the two results a Resume call can produce.
type StepKind int

const (
	// StepVisited means one grid cell was selected and settled; the
	// caller should capture and process it before resuming.
	StepVisited StepKind = iota
	// StepFinished means the run is over; Err carries the terminal
	// failure, nil for normal completion.
	StepFinished
)

// Step is the discriminated result of one Resume call.
type Step struct {
	Kind StepKind

	// Visited-cell payload.
	Cell      GridAddress
	Index     int  // running item index, zero-based
	PageFirst bool // first cell of a freshly rendered page

	// Finished payload.
	Err error
}

// Controller walks the logical grid one cell per Resume call. It owns
// the scan counters exclusively; nothing here is safe for concurrent
// use, by design the caller drives it from a single goroutine.
type Controller struct {
	caps    Capturer
	input   InputDriver
	cfg     *config.Config
	layout  Layout
	state   *scanState
	cancel  *CancelToken
	metrics *Metrics
	perf    *PerfMonitor

	row, col    int
	pageFresh   bool
	needAdvance bool
	finished    bool

	log   *logrus.Entry
	sleep func(time.Duration)
}

// NewController prepares a run over itemCount items. Resume does the
// actual driving; nothing is touched until the first call.
func NewController(caps Capturer, input InputDriver, cfg *config.Config, layout Layout, itemCount int, cancel *CancelToken, metrics *Metrics, perf *PerfMonitor) *Controller {
	return &Controller{
		caps:      caps,
		input:     input,
		cfg:       cfg,
		layout:    layout,
		state:     newScanState(itemCount, cfg.Cols),
		cancel:    cancel,
		metrics:   metrics,
		perf:      perf,
		pageFresh: true,
		log:       logger.WithField("component", "controller"),
		sleep:     time.Sleep,
	}
}

// Scanned returns how many cells were visited so far.
func (c *Controller) Scanned() int {
	return c.state.scannedCount
}

// Resume advances the state machine to the next cell and returns once
// the cell has settled, or reports that the run is over. Cursor
// advancement and page scrolling happen lazily at the start of the
// call, so the caller observes the screen exactly as it was yielded.
func (c *Controller) Resume() Step {
	if c.finished {
		return Step{Kind: StepFinished}
	}

	if c.cancel.Cancelled() {
		return c.finish(scanerrors.NewInterruptedError("cancel requested", c.state.scannedCount))
	}

	if c.needAdvance {
		c.needAdvance = false
		if err := c.advance(); err != nil {
			return c.finish(err)
		}
	}

	if c.state.scannedCount >= c.state.itemCount {
		return c.finish(nil)
	}
	if c.cfg.MaxRow >= 0 && c.state.scannedRow >= c.cfg.MaxRow {
		c.log.WithField("rows", c.state.scannedRow).Info("row cap reached")
		return c.finish(nil)
	}

	if err := c.selectCell(); err != nil {
		return c.finish(err)
	}

	step := Step{
		Kind:      StepVisited,
		Cell:      GridAddress{Row: c.row, Col: c.col},
		Index:     c.state.scannedCount,
		PageFirst: c.pageFresh,
	}
	c.pageFresh = false
	c.state.scannedCount++
	c.needAdvance = true
	c.metrics.CellVisited()
	return step
}

func (c *Controller) finish(err error) Step {
	c.finished = true
	return Step{Kind: StepFinished, Err: err}
}

// advance moves the cursor to the next cell, scrolling in a fresh page
// at the boundary.
func (c *Controller) advance() error {
	c.col++
	if c.col < c.state.rowLength(c.state.scannedRow, c.cfg.Cols) {
		return nil
	}
	c.col = 0
	c.row++
	c.state.scannedRow++

	if c.row < c.cfg.Rows || c.state.scannedCount >= c.state.itemCount {
		return nil
	}

	scrollRow, startRow := c.state.remainingScanParams(c.cfg.Rows, c.cfg.Cols)
	if err := c.scrollPage(scrollRow); err != nil {
		return err
	}
	c.row = startRow
	c.pageFresh = true
	return nil
}

// selectCell moves the pointer to the cursor cell, clicks it, and
// blocks until the detail panel settled on the new selection.
func (c *Controller) selectCell() error {
	target := c.layout.CellCenter(c.row, c.col).ToInt()

	baseline, baselineOK := c.poolSample()

	if err := c.input.MoveTo(target.X, target.Y); err != nil {
		return scanerrors.NewUnknownError(fmt.Errorf("pointer move: %w", err))
	}
	if err := c.input.Click(); err != nil {
		return scanerrors.NewUnknownError(fmt.Errorf("pointer click: %w", err))
	}

	return c.waitUntilSwitched(baseline, baselineOK)
}

// waitUntilSwitched blocks until the flag region diverges from the
// pre-click baseline and re-stabilizes, the signal that the detail
// panel finished rendering. Cloud mode has no reliable flag pixel and
// uses a fixed settle sleep instead. Exhausting the wait ceiling is
// terminal; a cell that never settled would poison every capture after
// it.
func (c *Controller) waitUntilSwitched(baseline float64, baselineOK bool) error {
	start := time.Now()
	defer func() {
		waited := time.Since(start)
		c.perf.RecordSwitchWait(waited)
		c.metrics.ObserveSwitchWait(waited)
	}()

	if c.cfg.CloudMode {
		c.sleep(c.cfg.EffectiveCloudWait())
		return nil
	}
	if !baselineOK {
		// No baseline to compare against; wait out the ceiling and let
		// recognition surface any stale capture.
		c.sleep(c.cfg.EffectiveSwitchWait())
		return nil
	}

	interval := pollInterval
	if c.cfg.FastMode {
		interval = pollIntervalFast
	}
	deadline := start.Add(c.cfg.EffectiveSwitchWait())

	diverged := false
	last := baseline
	for time.Now().Before(deadline) {
		if c.cancel.Cancelled() {
			return scanerrors.NewInterruptedError("cancel requested", c.state.scannedCount)
		}
		cur, ok := c.poolSample()
		if ok {
			if !diverged {
				if cur != baseline {
					diverged = true
					last = cur
				}
			} else if cur == last {
				return nil
			} else {
				last = cur
			}
		}
		c.sleep(interval)
	}
	c.log.WithFields(logrus.Fields{
		"row": c.row, "col": c.col, "waited": c.cfg.EffectiveSwitchWait().String(),
	}).Error("item switch signal timed out")
	return scanerrors.NewCaptureError("item switch",
		errors.New("switch signal not observed within the wait ceiling"))
}

// poolSample sums the red channel over the flag region. The sum is a
// cheap fingerprint of the panel header's rendering state.
func (c *Controller) poolSample() (float64, bool) {
	img, err := c.caps.CaptureRect(c.layout.FlagPool)
	if err != nil {
		return 0, false
	}
	sum := 0.0
	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, _, _, _ := img.At(x, y).RGBA()
			sum += float64(r >> 8)
		}
	}
	return sum, true
}

// scrollPage scrolls scrollRow rows into view. Once enough row scrolls
// have been measured, a single estimated scroll replaces the row-by-row
// polling and only a short alignment pass remains.
func (c *Controller) scrollPage(scrollRow int) error {
	if avg, ok := c.state.avgNotchesPerRow(); ok {
		return c.scrollEstimated(avg, scrollRow)
	}
	for i := 0; i < scrollRow; i++ {
		notches, err := c.scrollOneRow()
		if err != nil {
			return err
		}
		c.state.recordScroll(notches)
	}
	return nil
}

// scrollOneRow scrolls until the flag pixel diverges from its pre-
// scroll color and stabilizes again, confirming exactly one row moved.
// Exhausting the attempt budget aborts the run; an unconfirmed scroll
// position would corrupt every subsequent cell address.
func (c *Controller) scrollOneRow() (int, error) {
	baseline, err := c.caps.CaptureColor(c.layout.FlagPool.Origin())
	if err != nil {
		return 0, scanerrors.NewCaptureError("scroll flag pixel", err)
	}

	notches := 0
	diverged := false
	var last color.RGBA
	for attempt := 0; attempt < scrollMaxAttempts; attempt++ {
		if c.cancel.Cancelled() {
			return notches, scanerrors.NewInterruptedError("cancel requested", c.state.scannedCount)
		}
		if attempt > 0 {
			c.metrics.ScrollRetry()
		}
		if err := c.input.Scroll(1, c.cfg.FastMode); err != nil {
			return notches, scanerrors.NewUnknownError(fmt.Errorf("scroll input: %w", err))
		}
		notches++
		c.sleep(c.cfg.EffectiveScrollDelay())

		cur, err := c.caps.CaptureColor(c.layout.FlagPool.Origin())
		if err != nil {
			continue
		}
		if !diverged {
			if colorutil.DistanceSq(cur, baseline) > scrollColorThreshold {
				diverged = true
				last = cur
			}
		} else if colorutil.DistanceSq(cur, last) <= scrollColorThreshold {
			return notches, nil
		} else {
			last = cur
		}
	}
	return notches, scanerrors.NewCaptureError("row scroll",
		errors.New("scroll not confirmed within attempt budget"))
}

// scrollEstimated issues one bulk scroll sized from the measured
// notches-per-row average, deliberately undershooting, then aligns on
// the flag pixel with single notches.
func (c *Controller) scrollEstimated(avg float64, scrollRow int) error {
	notches := int(math.Round(avg*float64(scrollRow))) - 2
	if notches > 0 {
		if err := c.input.Scroll(notches, true); err != nil {
			return scanerrors.NewUnknownError(fmt.Errorf("scroll input: %w", err))
		}
		c.sleep(c.cfg.EffectiveScrollDelay())
	}
	return c.alignRow()
}

// alignRow nudges the list a notch at a time until the flag pixel
// moves, landing the page on a row boundary after an estimated scroll.
func (c *Controller) alignRow() error {
	baseline, err := c.caps.CaptureColor(c.layout.FlagPool.Origin())
	if err != nil {
		return scanerrors.NewCaptureError("scroll flag pixel", err)
	}
	for i := 0; i < alignMaxPolls; i++ {
		if err := c.input.Scroll(1, false); err != nil {
			return scanerrors.NewUnknownError(fmt.Errorf("scroll input: %w", err))
		}
		c.sleep(c.cfg.EffectiveScrollDelay())
		cur, err := c.caps.CaptureColor(c.layout.FlagPool.Origin())
		if err != nil {
			continue
		}
		if colorutil.DistanceSq(cur, baseline) > scrollColorThreshold {
			return nil
		}
	}
	c.log.Warn("row alignment did not converge; continuing on the estimate")
	return nil
}
