package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"github.com/sirupsen/logrus"

	"github.com/anime-shed/grid-scanner-go/internal/config"
	"github.com/anime-shed/grid-scanner-go/internal/container"
	scanerrors "github.com/anime-shed/grid-scanner-go/internal/errors"
	"github.com/anime-shed/grid-scanner-go/internal/history"
	"github.com/anime-shed/grid-scanner-go/internal/logger"
)

func main() {
	if err := run(); err != nil {
		logger.WithError(err).Error("scan failed")
		if hint := scanerrors.Suggestion(err); hint != "" {
			logger.WithField("hint", hint).Info("suggestion")
		}
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return err
	}

	fs := ff.NewFlagSet("grid-scanner")
	var (
		minStar     = fs.IntLong("min-star", cfg.MinStar, "stop once rarity drops below this")
		minLevel    = fs.IntLong("min-level", cfg.MinLevel, "stop once level drops below this")
		rows        = fs.IntLong("rows", cfg.Rows, "grid rows per page")
		cols        = fs.IntLong("cols", cfg.Cols, "grid columns per page")
		maxRow      = fs.IntLong("max-row", cfg.MaxRow, "cap on rows visited, -1 for none")
		itemCount   = fs.IntLong("item-count", cfg.ItemCount, "item total, 0 to recognize from screen")
		winHeight   = fs.IntLong("window-height", cfg.WindowHeight, "window height in pixels, layout scales from 1080")
		scrollDelay = fs.DurationLong("scroll-delay", cfg.ScrollDelay, "settle time per scroll notch")
		switchWait  = fs.DurationLong("switch-wait", cfg.MaxSwitchWait, "ceiling on item-switch polling")
		cloudWait   = fs.DurationLong("cloud-wait", cfg.CloudSwitchWait, "fixed settle sleep in cloud mode")
		fast        = fs.BoolLong("fast", "reduce delays for responsive setups")
		cloud       = fs.BoolLong("cloud", "cloud streaming mode: fixed sleeps instead of pixel polling")
		displayMode = fs.StringLong("display-mode", string(cfg.DisplayMode), "panel rendering: standard, compact or overlay")
		verbose     = fs.BoolLong("verbose", "log every scanned item")
		ignoreDups  = fs.BoolLong("ignore-dup-streak", "do not abort on consecutive duplicates")
		dupLimit    = fs.IntLong("dup-threshold", cfg.DupStreakThreshold, "consecutive-duplicate abort threshold, 0 for one row")
		statusAddr  = fs.StringLong("status-addr", cfg.StatusAddr, "diagnostics HTTP listen address, empty disables")
		historyPath = fs.StringLong("history", cfg.HistoryPath, "run history file, empty disables")
		output      = fs.StringLong("output", "results.json", "results JSON path, '-' for stdout")
	)

	if err := ff.Parse(fs, os.Args[1:]); err != nil {
		if errors.Is(err, ff.ErrHelp) {
			fmt.Fprintln(os.Stderr, ffhelp.Flags(fs))
			return nil
		}
		return err
	}

	cfg.MinStar = *minStar
	cfg.MinLevel = *minLevel
	cfg.Rows = *rows
	cfg.Cols = *cols
	cfg.MaxRow = *maxRow
	cfg.ItemCount = *itemCount
	cfg.WindowHeight = *winHeight
	cfg.ScrollDelay = *scrollDelay
	cfg.MaxSwitchWait = *switchWait
	cfg.CloudSwitchWait = *cloudWait
	cfg.FastMode = cfg.FastMode || *fast
	cfg.CloudMode = cfg.CloudMode || *cloud
	cfg.DisplayMode = config.DisplayMode(*displayMode)
	cfg.Verbose = cfg.Verbose || *verbose
	cfg.IgnoreDupStreak = cfg.IgnoreDupStreak || *ignoreDups
	cfg.DupStreakThreshold = *dupLimit
	cfg.StatusAddr = *statusAddr
	cfg.HistoryPath = *historyPath
	if err := cfg.Validate(); err != nil {
		return err
	}

	c, err := container.New(cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	if c.Status != nil {
		c.Status.Start(cfg.StatusAddr)
	}

	// First signal stops cooperatively at the next yield point; the
	// second one force-quits.
	signals := make(chan os.Signal, 2)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-signals
		logger.Warn("stop requested; finishing the current item")
		c.Cancel.Cancel()
		<-signals
		os.Exit(130)
	}()

	start := time.Now()
	report, scanErr := c.Scanner.Scan()
	if report == nil {
		return scanErr
	}

	if c.History != nil {
		saveErr := c.History.SaveRun(history.RunSummary{
			StartedAt:   start,
			Duration:    report.Duration,
			Items:       len(report.Results),
			Scanned:     report.Scanned,
			Errors:      report.Stats.TotalErrors(),
			SuccessRate: report.Stats.SuccessRate(),
			Interrupted: report.Interrupted,
		})
		if saveErr != nil {
			logger.WithError(saveErr).Warn("run history not saved")
		}
	}

	// Partial results are written on every outcome, aborts included.
	if err := writeResults(*output, report.Results); err != nil {
		if scanErr != nil {
			logger.WithError(err).Error("results not written")
			return scanErr
		}
		return err
	}

	logger.WithFields(logrus.Fields{
		"results":  len(report.Results),
		"scanned":  report.Scanned,
		"duration": report.Duration.Round(time.Millisecond).String(),
	}).Info("scan finished")
	return scanErr
}

func writeResults(path string, results interface{}) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("encode results: %w", err)
	}
	data = append(data, '\n')
	if path == "-" {
		_, err = os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
