// Package transport exposes the diagnostics HTTP surface: liveness,
// recovery statistics, run history and Prometheus metrics.
package transport

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/anime-shed/grid-scanner-go/internal/history"
	"github.com/anime-shed/grid-scanner-go/internal/logger"
	"github.com/anime-shed/grid-scanner-go/internal/recovery"
)

// recentRunLimit caps the /runs response size.
const recentRunLimit = 50

// StatusServer serves scan diagnostics while a scan runs.
type StatusServer struct {
	engine *gin.Engine
}

// NewStatusServer wires the endpoints. The history store may be nil,
// in which case /runs reports an empty list.
func NewStatusServer(stats *recovery.Statistics, runs *history.Store, gatherer prometheus.Gatherer) *StatusServer {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	engine.GET("/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, stats.Snapshot())
	})

	engine.GET("/runs", func(c *gin.Context) {
		if runs == nil {
			c.JSON(http.StatusOK, []history.RunSummary{})
			return
		}
		list, err := runs.RecentRuns(recentRunLimit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if list == nil {
			list = []history.RunSummary{}
		}
		c.JSON(http.StatusOK, list)
	})

	engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	return &StatusServer{engine: engine}
}

// Handler exposes the router, mainly for tests.
func (s *StatusServer) Handler() http.Handler {
	return s.engine
}

// Start serves in a background goroutine; the scan does not wait on it.
func (s *StatusServer) Start(addr string) {
	go func() {
		logger.WithField("addr", addr).Info("status server listening")
		if err := s.engine.Run(addr); err != nil {
			logger.WithError(err).Error("status server stopped")
		}
	}()
}
