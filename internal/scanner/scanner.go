package scanner

import (
	"fmt"
	"image"
	"image/color"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/anime-shed/grid-scanner-go/internal/config"
	scanerrors "github.com/anime-shed/grid-scanner-go/internal/errors"
	"github.com/anime-shed/grid-scanner-go/internal/logger"
	"github.com/anime-shed/grid-scanner-go/internal/recovery"
	"github.com/anime-shed/grid-scanner-go/pkg/colorutil"
)

// MaxItemCount caps the recognized item total. The target application
// cannot hold more; a larger recognized value is an OCR fault.
const MaxItemCount = 2100

// starColors are the rarity border colors, index order 1 through 5
// stars.
var starColors = []color.RGBA{
	{R: 113, G: 119, B: 139, A: 255},
	{R: 42, G: 143, B: 114, A: 255},
	{R: 81, G: 127, B: 203, A: 255},
	{R: 161, G: 86, B: 224, A: 255},
	{R: 188, G: 105, B: 50, A: 255},
}

// starAmbiguityThreshold is the squared distance beyond which a rarity
// sample matches no reference color.
const starAmbiguityThreshold = 10000

// DumpSink receives captured panel images for offline debugging. The
// scanner tolerates sink failures; dumping never affects the run.
type DumpSink interface {
	SaveCapture(name string, img image.Image) error
}

// ScanReport is the outcome of one full run. Partial results survive
// every abort path.
type ScanReport struct {
	Results      []ScanResult
	Stats        *ErrorStatistics
	Scanned      int
	Duration     time.Duration
	Interrupted  bool
	StoppedEarly bool
}

// ItemScanner drives a complete scan: item-count recognition, the
// controller/worker pipeline, and final reporting.
type ItemScanner struct {
	caps    Capturer
	input   InputDriver
	rec     Recognizer
	cfg     *config.Config
	layout  Layout
	cancel  *CancelToken
	metrics *Metrics
	recover *recovery.Manager
	dump    DumpSink

	log   *logrus.Entry
	sleep func(time.Duration)
}

// New wires a scanner against its ports. Metrics may be nil.
func New(caps Capturer, input InputDriver, rec Recognizer, cfg *config.Config, layout Layout, cancel *CancelToken, metrics *Metrics, mgr *recovery.Manager) *ItemScanner {
	return &ItemScanner{
		caps:    caps,
		input:   input,
		rec:     rec,
		cfg:     cfg,
		layout:  layout,
		cancel:  cancel,
		metrics: metrics,
		recover: mgr,
		log:     logger.WithField("component", "scanner"),
		sleep:   time.Sleep,
	}
}

// SetDumpSink enables capture dumping.
func (s *ItemScanner) SetDumpSink(d DumpSink) {
	s.dump = d
}

// ItemCount recognizes the "n/cap" counter above the grid. Recognition
// or parsing trouble falls back to the cap so a scan can still start;
// duplicate detection ends it at the true count.
func (s *ItemScanner) ItemCount() (int, error) {
	img, err := s.caps.CaptureRect(s.layout.ItemCount)
	if err != nil {
		return 0, scanerrors.NewCaptureError("item count", err)
	}
	text, err := s.rec.Recognize(img)
	if err != nil {
		s.log.WithError(err).Warn("item count not recognized; assuming a full inventory")
		return MaxItemCount, nil
	}
	count, err := parseItemCount(text)
	if err != nil || count <= 0 || count > MaxItemCount {
		s.log.WithField("raw", text).Warn("implausible item count; assuming a full inventory")
		return MaxItemCount, nil
	}
	return count, nil
}

// parseItemCount extracts the leading integer of "1234/2100"-style
// counter text.
func parseItemCount(text string) (int, error) {
	s := strings.TrimSpace(text)
	if i := strings.IndexByte(s, '/'); i >= 0 {
		s = s[:i]
	}
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
	if digits == "" {
		return 0, scanerrors.NewParsingError("item count", text, "no digits")
	}
	return strconv.Atoi(digits)
}

// starLevel maps a rarity sample to 1..5 stars. A sample too far from
// every reference color is ambiguous, not guessed.
func starLevel(c color.RGBA) (int, error) {
	idx, dist := colorutil.Nearest(starColors, c)
	if idx < 0 || dist > starAmbiguityThreshold {
		confidence := 0.0
		if dist > 0 {
			confidence = float64(starAmbiguityThreshold) / float64(dist)
		}
		return 0, scanerrors.NewStarAmbiguityError(
			fmt.Sprintf("RGB(%d, %d, %d)", c.R, c.G, c.B), confidence)
	}
	return idx + 1, nil
}

// Scan runs the full pipeline and blocks until it finishes. The worker
// report is the authoritative result set; the returned error is the
// terminal failure, nil for completion, early stop and interruption.
func (s *ItemScanner) Scan() (*ScanReport, error) {
	count := s.cfg.ItemCount
	if count <= 0 {
		recognized, err := s.ItemCount()
		if err != nil {
			return nil, err
		}
		count = recognized
	}
	s.log.WithFields(logrus.Fields{
		"items": count, "rows": s.cfg.Rows, "cols": s.cfg.Cols,
	}).Info("scan starting")

	perf := NewPerfMonitor()
	ctrl := NewController(s.caps, s.input, s.cfg, s.layout, count, s.cancel, s.metrics, perf)
	worker := NewWorker(s.rec, s.cfg, s.layout, s.recover, s.metrics, perf)

	// Buffered to the item total so the producer never blocks on the
	// worker; capture of item n+1 overlaps recognition of item n.
	items := make(chan SendItem, count)
	reportCh := worker.Run(items)

	s.sleep(s.cfg.SettleDelay)

	var terminal error
	for {
		step := ctrl.Resume()
		if step.Kind == StepFinished {
			terminal = step.Err
			break
		}

		item := s.captureItem(step)
		if item.StarErr == nil && item.Star < s.cfg.MinStar {
			s.log.WithFields(logrus.Fields{
				"star": item.Star, "min_star": s.cfg.MinStar,
			}).Info("minimum rarity reached; stopping early")
			break
		}
		items <- item
	}
	close(items)

	report := <-reportCh

	worker.Statistics().LogSummary()
	perf.LogSummary(len(report.Results))

	out := &ScanReport{
		Results:      report.Results,
		Stats:        worker.Statistics(),
		Scanned:      ctrl.Scanned(),
		Duration:     perf.Elapsed(),
		StoppedEarly: report.StoppedEarly,
	}

	if scanerrors.IsKind(terminal, scanerrors.KindInterrupted) {
		out.Interrupted = true
		s.log.WithField("scanned", out.Scanned).Warn("scan interrupted; partial results kept")
		return out, nil
	}
	if terminal != nil {
		return out, terminal
	}
	return out, report.Err
}

// captureItem samples everything the worker needs for one cell: the
// detail panel, the rarity pixel, and on page-first cells the list
// strip for lock sampling.
func (s *ItemScanner) captureItem(step Step) SendItem {
	item := SendItem{Cell: step.Cell, Index: step.Index}

	panel, err := s.caps.CaptureRect(s.layout.Panel)
	if err != nil {
		item.CaptureErr = scanerrors.NewCaptureError("panel", err)
	} else {
		item.Panel = panel
		if s.dump != nil {
			name := fmt.Sprintf("panel-%04d.png", step.Index)
			if dumpErr := s.dump.SaveCapture(name, panel); dumpErr != nil {
				s.log.WithError(dumpErr).Debug("capture dump failed")
			}
		}
	}

	sample, err := s.caps.CaptureColor(s.layout.StarSample)
	if err != nil {
		item.StarErr = scanerrors.NewCaptureError("star sample", err)
	} else {
		item.StarColor = sample
		item.Star, item.StarErr = starLevel(sample)
	}

	if step.PageFirst {
		strip, err := s.caps.CaptureRect(s.layout.ListStrip)
		if err != nil {
			s.log.WithError(err).Warn("list strip capture failed; lock flags stale for this page")
		} else {
			item.ListStrip = strip
		}
	}
	return item
}
