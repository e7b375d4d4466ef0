// internal/api/server.go
package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/tamzrod/jsy-meter/internal/config"
	"github.com/tamzrod/jsy-meter/internal/sink"
	"github.com/tamzrod/jsy-meter/internal/status"
)

// StatusFunc returns the current device status. Must be safe to call from
// HTTP handler goroutines.
type StatusFunc func() status.Snapshot

// Server exposes metrics, health and the latest readings over HTTP.
type Server struct {
	router *gin.Engine
	server *http.Server
	log    *zap.Logger

	device string
	latest *sink.Latest
	status StatusFunc
}

func NewServer(
	cfg *config.PrometheusConfig,
	device string,
	gatherer prometheus.Gatherer,
	latest *sink.Latest,
	st StatusFunc,
	log *zap.Logger,
) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		router: gin.New(),
		log:    log,
		device: device,
		latest: latest,
		status: st,
	}

	s.router.Use(gin.Recovery())
	s.router.Use(LoggerMiddleware(log))

	s.router.GET("/health", s.healthCheck)
	s.router.GET(cfg.Path, gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/readings", s.getReadings)
		v1.GET("/status", s.getStatus)
	}

	s.server = &http.Server{
		Addr:         cfg.Listen,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the router (tests).
func (s *Server) Handler() http.Handler { return s.router }

// Start binds the listen address and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return err
	}

	s.log.Info("starting http server", zap.String("address", ln.Addr().String()))
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("http server failed", zap.Error(err))
		}
	}()
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}

// ---- handlers ----

func (s *Server) healthCheck(c *gin.Context) {
	snap := s.status()

	code := http.StatusOK
	if snap.Health == status.HealthError {
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":    healthName(snap.Health),
		"timestamp": time.Now().Unix(),
	})
}

func (s *Server) getStatus(c *gin.Context) {
	snap := s.status()

	c.JSON(http.StatusOK, gin.H{
		"device":           s.device,
		"health":           healthName(snap.Health),
		"last_error_code":  snap.LastErrorCode,
		"seconds_in_error": snap.SecondsInError,
		"direction":        snap.Direction,
	})
}

func (s *Server) getReadings(c *gin.Context) {
	values, updated := s.latest.Values()
	if updated.IsZero() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no reading yet"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"device":  s.device,
		"updated": updated.UTC().Format(time.RFC3339Nano),
		"values":  values,
	})
}

func healthName(h uint16) string {
	switch h {
	case status.HealthOK:
		return "ok"
	case status.HealthError:
		return "error"
	default:
		return "unknown"
	}
}
