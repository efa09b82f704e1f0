package scanner

import (
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
	"github.com/anime-shed/grid-scanner-go/pkg/geometry"
)

// lockMarkerColor is the rendered color of the per-cell lock icon.
var lockMarkerColor = color.RGBA{R: 255, G: 138, B: 117, A: 255}

// lockColorThreshold is the squared distance radius around the marker
// color that still counts as locked (30 units per channel).
const lockColorThreshold = 900

// SendItem is one visited cell, handed from the controller goroutine to
// the worker. ListStrip is non-nil only on the first cell of a freshly
// rendered page; every other cell reuses the page's lock samples.
type SendItem struct {
	Panel      image.Image
	CaptureErr error // panel capture failure; Panel is nil
	StarColor  color.RGBA
	Star       int
	StarErr    error
	ListStrip  image.Image
	Cell       GridAddress
	Index      int
}

// WorkerReport is the worker's final output: the ordered unique results
// plus how the loop ended.
type WorkerReport struct {
	Results      []ScanResult
	StoppedEarly bool  // minimum-level gate fired
	Err          error // duplicate-streak abort
}

// Worker consumes visited cells, recognizes their fields, and builds
// deduplicated, confidence-scored results.
type Worker struct {
	rec       Recognizer
	cfg       *config.Config
	layout    Layout
	recover   *recovery.Manager
	stats     *ErrorStatistics
	delay     *AdaptiveDelay
	perf      *PerfMonitor
	metrics   *Metrics
	penalties PenaltyTable

	log   *logrus.Entry
	sleep func(time.Duration)
}

// NewWorker wires a worker against the recognizer and recovery policy.
func NewWorker(rec Recognizer, cfg *config.Config, layout Layout, mgr *recovery.Manager, metrics *Metrics, perf *PerfMonitor) *Worker {
	return &Worker{
		rec:       rec,
		cfg:       cfg,
		layout:    layout,
		recover:   mgr,
		stats:     NewErrorStatistics(),
		delay:     NewAdaptiveDelay(cfg.BaseItemDelay),
		perf:      perf,
		metrics:   metrics,
		penalties: DefaultPenaltyTable(),
		log:       logger.WithField("component", "worker"),
		sleep:     time.Sleep,
	}
}

// Statistics exposes the error counters; read them only after the
// report channel delivered.
func (w *Worker) Statistics() *ErrorStatistics {
	return w.stats
}

// Run starts the consuming goroutine. The items channel closing is the
// sole normal termination signal; the delivered report is the
// authoritative result set.
func (w *Worker) Run(items <-chan SendItem) <-chan WorkerReport {
	out := make(chan WorkerReport, 1)
	go func() {
		defer close(out)
		out <- w.consume(items)
	}()
	return out
}

func (w *Worker) consume(items <-chan SendItem) WorkerReport {
	var report WorkerReport
	seen := make(map[uint64]struct{})
	dupStreak := 0
	var pageLocks []bool

	for item := range items {
		if item.ListStrip != nil {
			pageLocks = w.sampleLocks(item.ListStrip)
		}

		result := w.scanItem(item, pageLocks)
		clean := len(result.Errors) == 0
		w.stats.RecordItem(clean)
		w.delay.Record(clean)

		fp := result.Fingerprint()
		if _, dup := seen[fp]; dup {
			dupStreak++
			w.metrics.DuplicateDropped()
			if !w.cfg.IgnoreDupStreak && dupStreak >= w.cfg.DupThreshold() {
				err := scanerrors.NewDuplicateStreakError(dupStreak, w.cfg.DupThreshold())
				w.stats.Record(err)
				w.log.WithError(err).Error("aborting: consecutive duplicates")
				report.Err = err
				return report
			}
		} else {
			dupStreak = 0
			seen[fp] = struct{}{}

			if result.Level < w.cfg.MinLevel {
				w.log.WithFields(logrus.Fields{
					"level": result.Level, "min_level": w.cfg.MinLevel,
				}).Info("minimum level reached; stopping early")
				report.StoppedEarly = true
				return report
			}

			report.Results = append(report.Results, result)
			w.metrics.ItemScanned()
			if w.cfg.Verbose {
				w.log.WithFields(logrus.Fields{
					"index": item.Index, "title": result.Title,
					"level": result.Level, "star": result.Star,
					"confidence": result.Confidence,
				}).Info("item scanned")
			}
		}

		w.sleep(w.delay.Current())
	}
	return report
}

// scanItem recognizes every field of one item. Field failures never
// abort the item; the field defaults and the error degrades confidence.
func (w *Worker) scanItem(item SendItem, pageLocks []bool) ScanResult {
	start := time.Now()
	defer func() { w.perf.RecordRecognition(time.Since(start)) }()

	result := NewScanResult()

	if item.CaptureErr != nil {
		// Nothing to recognize; the item stays as an all-default record
		// with its confidence degraded.
		w.recordFieldError(&result, item.CaptureErr)
		if item.StarErr != nil {
			w.recordFieldError(&result, item.StarErr)
		} else {
			result.Star = item.Star
		}
		return result
	}

	// The five primary fields share one batch call to amortize the
	// recognizer's fixed per-call overhead.
	fields := []struct {
		name string
		rect geometry.RectInt
	}{
		{"title", w.layout.Title},
		{"main stat name", w.layout.MainStatName},
		{"main stat value", w.layout.MainStatValue},
		{"level", w.layout.Level},
		{"equip", w.layout.Equip},
	}
	crops := make([]image.Image, len(fields))
	for i, f := range fields {
		crops[i] = cropImage(item.Panel, f.rect)
	}

	texts := make([]string, len(fields))
	for i, tr := range w.rec.BatchRecognize(crops) {
		if tr.Err != nil {
			w.recordFieldError(&result, scanerrors.NewRecognitionError(fields[i].name, tr.Text, tr.Err))
			continue
		}
		texts[i] = strings.TrimSpace(tr.Text)
	}

	result.Title = texts[0]
	result.Equipped = texts[4]

	markerDetected := texts[4] != ""
	mainName := CorrectStatName(texts[1], markerDetected, w.cfg.DisplayMode)
	if snapped, ok := NearestStatLabel(mainName); ok {
		mainName = snapped
	}
	if mainName != "" && texts[1] != "" {
		w.stats.RecordQuality(QualityRatio(mainName, texts[1]))
	}
	result.MainStatName = mainName
	result.MainStatValue = texts[2]

	if texts[3] != "" {
		level, err := parseLevel(texts[3])
		if err != nil {
			w.recordFieldError(&result, err)
		} else {
			result.Level = level
		}
	}

	// Sub-stats are short; batching buys nothing, but a transient
	// recognizer failure is worth a retry through the recovery policy.
	for i, rect := range w.layout.SubStats {
		name := "sub stat " + strconv.Itoa(i+1)
		text, err := w.recognizeWithRecovery(cropImage(item.Panel, rect), name)
		if err != nil {
			w.recordFieldError(&result, err)
			continue
		}
		result.SubStats[i] = strings.TrimSpace(text)
	}

	if item.StarErr != nil {
		w.recordFieldError(&result, item.StarErr)
	} else {
		result.Star = item.Star
	}

	if idx := item.Cell.Row*w.cfg.Cols + item.Cell.Col; idx >= 0 && idx < len(pageLocks) {
		result.Lock = pageLocks[idx]
	}

	return result
}

// recognizeWithRecovery runs one field recognition, retrying per the
// recovery policy on failure.
func (w *Worker) recognizeWithRecovery(img image.Image, field string) (string, error) {
	text, err := w.rec.Recognize(img)
	if err == nil {
		return text, nil
	}

	recErr := scanerrors.NewRecognitionError(field, text, err)
	outcome := w.recover.Attempt(func() error {
		t, opErr := w.rec.Recognize(img)
		if opErr == nil {
			text = t
		}
		return opErr
	}, recovery.Classify(recErr))

	if outcome == recovery.OutcomeRecovered {
		return text, nil
	}
	return "", recErr
}

func (w *Worker) recordFieldError(result *ScanResult, err error) {
	result.AddError(err, w.penalties)
	w.stats.Record(err)
	w.metrics.RecognitionFailure(string(scanerrors.KindOf(err)))
}

// sampleLocks reads the lock marker for every cell of the visible page
// from the page's list strip.
func (w *Worker) sampleLocks(strip image.Image) []bool {
	locks := make([]bool, 0, w.cfg.Rows*w.cfg.Cols)
	for row := 0; row < w.cfg.Rows; row++ {
		for col := 0; col < w.cfg.Cols; col++ {
			c := pixelAt(strip, w.layout.LockProbe(row, col))
			locks = append(locks, colorutil.DistanceSq(c, lockMarkerColor) < lockColorThreshold)
		}
	}
	return locks
}

// parseLevel accepts a bare integer or text with a '+' separator before
// the integer ("+15" renders on upgraded items).
func parseLevel(raw string) (int, error) {
	s := strings.TrimSpace(raw)
	if i := strings.IndexByte(s, '+'); i >= 0 {
		s = s[i+1:]
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, scanerrors.NewParsingError("level", raw, "not a number")
	}
	return n, nil
}

// cropImage extracts a field region from a captured panel. Capturers
// return images addressable from their own bounds origin.
func cropImage(img image.Image, r geometry.RectInt) image.Image {
	min := img.Bounds().Min
	rect := image.Rect(min.X+r.Left, min.Y+r.Top, min.X+r.Left+r.Width, min.Y+r.Top+r.Height)
	if sub, ok := img.(interface {
		SubImage(image.Rectangle) image.Image
	}); ok {
		return sub.SubImage(rect.Intersect(img.Bounds()))
	}
	return img
}

func pixelAt(img image.Image, p geometry.PosInt) color.RGBA {
	min := img.Bounds().Min
	r, g, b, a := img.At(min.X+p.X, min.Y+p.Y).RGBA()
	return color.RGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: uint8(a >> 8)}
}
