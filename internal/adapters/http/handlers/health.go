// Package handlers holds the gin handlers of the service: the internal
// /-/ endpoints and the sample endpoints that fail on purpose.
package handlers

import (
	"net/http"
	"runtime"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// InternalPrefix groups the endpoints meant for operators and probes.
// Request logging skips it.
const InternalPrefix = "/-"

// BuildInfo describes the running binary. Version, Commit and BuildTime
// are set with -ldflags at build time.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
}

// NewBuildInfo fills GoVersion from the runtime.
func NewBuildInfo(version, commit, buildTime string) BuildInfo {
	return BuildInfo{Version: version, Commit: commit, BuildTime: buildTime, GoVersion: runtime.Version()}
}

// HealthHandler serves liveness, build info and the prometheus scrape.
type HealthHandler struct {
	build   BuildInfo
	metrics http.Handler
}

// NewHealthHandler creates a health handler scraping gatherer, or the
// default prometheus registry when gatherer is nil. The default registry
// holds exceptions_failures_total.
func NewHealthHandler(build BuildInfo, gatherer prometheus.Gatherer) *HealthHandler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	return &HealthHandler{
		build:   build,
		metrics: promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}),
	}
}

// Live handles GET /-/live. It checks nothing beyond the process serving.
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Build handles GET /-/build.
func (h *HealthHandler) Build(c *gin.Context) {
	c.JSON(http.StatusOK, h.build)
}

// RegisterRoutes registers live, build and metrics under InternalPrefix.
func (h *HealthHandler) RegisterRoutes(engine *gin.Engine) {
	internal := engine.Group(InternalPrefix)
	internal.GET("/live", h.Live)
	internal.GET("/build", h.Build)
	internal.GET("/metrics", gin.WrapH(h.metrics))
}
