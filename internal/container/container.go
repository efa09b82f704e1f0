// Package container wires the application graph: configuration, ports,
// the scan engine and the diagnostics surface.
package container

import (
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/anime-shed/grid-scanner-go/internal/config"
	"github.com/anime-shed/grid-scanner-go/internal/history"
	"github.com/anime-shed/grid-scanner-go/internal/logger"
	"github.com/anime-shed/grid-scanner-go/internal/platform"
	"github.com/anime-shed/grid-scanner-go/internal/recognizer"
	"github.com/anime-shed/grid-scanner-go/internal/recovery"
	"github.com/anime-shed/grid-scanner-go/internal/scanner"
	"github.com/anime-shed/grid-scanner-go/internal/storage"
	"github.com/anime-shed/grid-scanner-go/internal/transport"
)

// recognizerCacheSize bounds the memoized crop cache. Pages re-capture
// at most rows*cols cells, so a few hundred entries cover overlap.
const recognizerCacheSize = 512

// Container holds every wired component for one process lifetime.
type Container struct {
	Config   *config.Config
	Cancel   *scanner.CancelToken
	Registry *prometheus.Registry
	Recovery *recovery.Manager
	Scanner  *scanner.ItemScanner
	History  *history.Store
	Status   *transport.StatusServer

	tesseract *recognizer.Tesseract
}

// New builds the full graph from configuration and environment.
func New(cfg *config.Config) (*Container, error) {
	backend, err := platform.Default()
	if err != nil {
		return nil, err
	}
	logger.WithField("backend", backend.Name).Debug("platform backend selected")

	tess, err := recognizer.NewTesseract(os.Getenv("SCAN_OCR_LANG"))
	if err != nil {
		return nil, err
	}
	cached, err := recognizer.NewCached(tess, recognizerCacheSize)
	if err != nil {
		tess.Close()
		return nil, fmt.Errorf("recognizer cache: %w", err)
	}

	registry := prometheus.NewRegistry()
	metrics := scanner.NewMetrics(registry)
	mgr := recovery.NewDefaultManager()
	cancel := scanner.NewCancelToken()

	c := &Container{
		Config:    cfg,
		Cancel:    cancel,
		Registry:  registry,
		Recovery:  mgr,
		tesseract: tess,
	}

	layout := scanner.DefaultLayout1080p()
	if cfg.WindowHeight != 1080 {
		layout = layout.Scale(float64(cfg.WindowHeight) / 1080)
	}
	c.Scanner = scanner.New(backend.Capturer, backend.Input, cached, cfg,
		layout, cancel, metrics, mgr)

	if account := os.Getenv("SCAN_DUMP_ACCOUNT"); account != "" {
		dump, err := storage.NewAzureDumpStore(
			account,
			os.Getenv("SCAN_DUMP_KEY"),
			os.Getenv("SCAN_DUMP_CONTAINER"),
			time.Now().UTC().Format("20060102-150405"),
		)
		if err != nil {
			tess.Close()
			return nil, fmt.Errorf("dump store: %w", err)
		}
		c.Scanner.SetDumpSink(dump)
	}

	if cfg.HistoryPath != "" {
		store, err := history.Open(cfg.HistoryPath)
		if err != nil {
			tess.Close()
			return nil, err
		}
		c.History = store
	}

	if cfg.StatusAddr != "" {
		c.Status = transport.NewStatusServer(mgr.Statistics(), c.History, registry)
	}

	return c, nil
}

// Close releases the native recognizer and the history file.
func (c *Container) Close() {
	if c.tesseract != nil {
		if err := c.tesseract.Close(); err != nil {
			logger.WithError(err).Warn("recognizer close failed")
		}
	}
	if c.History != nil {
		if err := c.History.Close(); err != nil {
			logger.WithError(err).Warn("history close failed")
		}
	}
}
