// Package devserver serves the latest manifest of a watch build over HTTP,
// together with health and Prometheus endpoints.
package devserver

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/rs/zerolog/log"

	"github.com/fluxbase-eu/assetmanifest/internal/manifest"
	"github.com/fluxbase-eu/assetmanifest/internal/middleware"
	"github.com/fluxbase-eu/assetmanifest/internal/observability"
)

// Config contains dev server settings
type Config struct {
	Address string
	Debug   bool
	// Tracing creates a span per request through the global tracer provider
	Tracing bool
}

// Server exposes an emitter's manifests
type Server struct {
	app     *fiber.App
	config  Config
	emitter *manifest.Emitter
	metrics *observability.Metrics
	started time.Time
}

// New creates a dev server for emitter. metrics may be nil, in which case
// /metrics is not mounted.
func New(cfg Config, emitter *manifest.Emitter, metrics *observability.Metrics) *Server {
	app := fiber.New(fiber.Config{
		ServerHeader:          "assetmanifest",
		AppName:               "assetmanifest dev server",
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		DisableStartupMessage: !cfg.Debug,
		ErrorHandler:          errorHandler,
	})

	s := &Server{
		app:     app,
		config:  cfg,
		emitter: emitter,
		metrics: metrics,
		started: time.Now(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.app.Use(recover.New())
	s.app.Use(requestid.New())
	s.app.Use(middleware.TracingMiddleware(middleware.TracingConfig{
		Enabled:   s.config.Tracing,
		SkipPaths: []string{"/health", "/metrics"},
	}))
	s.app.Use(middleware.RequestLogger())
	if s.metrics != nil {
		s.app.Use(s.metrics.MetricsMiddleware())
		s.app.Get("/metrics", s.metrics.Handler())
	}

	s.app.Use(middleware.ETag())

	s.app.Get("/health", s.handleHealth)
	s.app.Get("/manifest", s.handleLatest)
	s.app.Get("/manifest/:id", s.handleArtifact)
}

// App returns the underlying Fiber app
func (s *Server) App() *fiber.App {
	return s.app
}

// Start listens on the configured address and blocks until shutdown
func (s *Server) Start() error {
	return s.app.Listen(s.config.Address)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// handleHealth reports the emitter state and the last compilation
func (s *Server) handleHealth(c *fiber.Ctx) error {
	body := fiber.Map{
		"status":    "ok",
		"state":     s.emitter.State().String(),
		"manifest":  s.emitter.AssetID(),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
		"timestamp": time.Now().UTC(),
	}
	if art, ok := s.emitter.Latest(); ok {
		body["compilation"] = art.CompilationID
		body["files"] = len(art.Files)
	}
	return c.JSON(body)
}

// handleLatest serves the bytes of the most recent pass
func (s *Server) handleLatest(c *fiber.Ctx) error {
	art, ok := s.emitter.Latest()
	if !ok {
		return fiber.NewError(fiber.StatusServiceUnavailable, "no manifest has been emitted yet")
	}
	return s.send(c, art)
}

func (s *Server) handleArtifact(c *fiber.Ctx) error {
	art, ok := s.emitter.Artifact(c.Params("id"))
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "manifest not found")
	}
	return s.send(c, art)
}

func (s *Server) send(c *fiber.Ctx, art *manifest.Artifact) error {
	c.Set(fiber.HeaderContentType, manifest.ContentType(art.FileName))
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set("X-Compilation-Id", art.CompilationID)
	return c.Send(art.Output)
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	if code >= 500 && code != fiber.StatusServiceUnavailable {
		log.Error().Err(err).Str("path", c.Path()).Msg("Server error")
	}

	return c.Status(code).JSON(fiber.Map{
		"error": message,
		"code":  code,
	})
}
