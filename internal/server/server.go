package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/labrasa/salesdash/internal/metrics"
	"github.com/labrasa/salesdash/internal/models"
	"github.com/labrasa/salesdash/internal/oraculo"
	"github.com/labrasa/salesdash/internal/pipeline"
	"github.com/labrasa/salesdash/internal/report"
	"github.com/labrasa/salesdash/internal/store"
	"github.com/op/go-logging"
)

var log = logging.MustGetLogger("server")

const version = "0.3.0"

// OrderReader loads one store table.
type OrderReader interface {
	ReadOrders(ctx context.Context, t store.Table) ([]models.Order, error)
}

// Syncer runs one ETL run.
type Syncer interface {
	Run(ctx context.Context) (*pipeline.RunReport, error)
}

type Options struct {
	Store   OrderReader
	Locator report.Locator
	Oraculo *oraculo.Assistant
	// Syncer is optional; without it POST /api/sync answers 503.
	Syncer  Syncer
	Metrics *metrics.Recorder
	// HealthCheck is optional and probes the store backend.
	HealthCheck func(ctx context.Context) error
	// Location interprets the from/to filter dates.
	Location *time.Location
}

type Server struct {
	router *gin.Engine
	opts   Options
}

// NewServer creates a new server instance
func NewServer(opts Options) *Server {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	router := gin.Default()

	server := &Server{
		router: router,
		opts:   opts,
	}

	server.setupRoutes()
	return server
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	api := s.router.Group("/api")
	{
		api.GET("/health", s.healthCheck)

		api.GET("/channels", s.channels)
		api.GET("/summary", s.summary)
		api.GET("/trend", s.trend)
		api.GET("/weekdays", s.weekdays)
		api.GET("/heatmap", s.heatmap)
		api.GET("/delivery-map", s.deliveryMap)
		api.GET("/neighborhoods", s.neighborhoods)
		api.GET("/cancellations", s.cancellations)
		api.GET("/payments", s.payments)
		api.GET("/late-night", s.lateNight)

		api.GET("/oraculo", s.oraculoInfo)
		api.POST("/oraculo", s.ask)

		api.POST("/sync", s.sync)
	}

	if s.opts.Metrics != nil {
		s.router.GET("/metrics", gin.WrapH(s.opts.Metrics.Handler()))
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// healthCheck endpoint for monitoring
func (s *Server) healthCheck(c *gin.Context) {
	if s.opts.HealthCheck != nil {
		if err := s.opts.HealthCheck(c.Request.Context()); err != nil {
			log.Warningf("health check failed: %v", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "error",
				"error":  "store connection failed",
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "salesdash",
		"version": version,
	})
}

// Start serves on addr until ctx is cancelled, then drains in-flight requests.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		log.Infof("shutting down server on %s", addr)
		return srv.Shutdown(shutdownCtx)
	}
}
