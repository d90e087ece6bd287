package api

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/custodia-labs/sercha-docs/internal/logger"
)

const (
	// DefaultAddr is the listen address when none is configured.
	DefaultAddr = ":8080"

	// DefaultBodyLimitMB caps request bodies, uploads included.
	DefaultBodyLimitMB = 64

	// DefaultShutdownTimeout bounds graceful shutdown.
	DefaultShutdownTimeout = 10 * time.Second
)

// Config configures the HTTP server.
type Config struct {
	Addr            string
	BodyLimitMB     int
	ShutdownTimeout time.Duration

	// IngestRoot is the directory POST /documents/ingest may read from.
	// Empty disables the route.
	IngestRoot string
}

func (c Config) withDefaults() Config {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.BodyLimitMB <= 0 {
		c.BodyLimitMB = DefaultBodyLimitMB
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = DefaultShutdownTimeout
	}
	return c
}

// Server is the REST API server.
type Server struct {
	app *fiber.App
	cfg Config
}

// NewServer builds the fiber app and registers every route.
func NewServer(ports *Ports, cfg Config) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("validating ports: %w", err)
	}
	cfg = cfg.withDefaults()

	app := fiber.New(fiber.Config{
		AppName:               "sercha-docs",
		ErrorHandler:          ErrorHandler,
		BodyLimit:             cfg.BodyLimitMB * 1024 * 1024,
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	app.Use(requestLogger)

	var (
		checkHandler    = NewCheckHandler(ports.Index, ports.Query)
		documentHandler = NewDocumentHandler(ports.Ingest, ports.Document, ports.Query, cfg.IngestRoot)
		queryHandler    = NewQueryHandler(ports.Query)
		adminHandler    = NewAdminHandler(ports.Admin)
		check           = app.Group("/check")
		apiv1           = app.Group("/api/v1")
		health          = apiv1.Group("/health")
		documents       = apiv1.Group("/documents")
		queries         = apiv1.Group("/queries")
		plugins         = apiv1.Group("/plugins")
	)

	check.Get("/health", checkHandler.HandleHealth)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	health.Get("/", checkHandler.HandleServices)
	health.Get("/readiness", checkHandler.HandleReadiness)

	documents.Post("/", documentHandler.HandleUpload)
	documents.Post("/upload", documentHandler.HandleUpload)
	documents.Post("/ingest", documentHandler.HandleIngest)
	documents.Get("/", documentHandler.HandleList)
	documents.Get("/:id", documentHandler.HandleGet)
	documents.Get("/:id/content", documentHandler.HandleContent)
	documents.Get("/:id/chunks", documentHandler.HandleChunks)
	documents.Delete("/:id", documentHandler.HandleDelete)
	documents.Post("/:id/resubmit", documentHandler.HandleResubmit)
	documents.Post("/:id/summarize", documentHandler.HandleSummary)
	documents.Post("/:id/summary", documentHandler.HandleSummary)
	documents.Post("/:id/qa", documentHandler.HandleQA)
	documents.Post("/:id/ask", documentHandler.HandleAsk)

	queries.Post("/", queryHandler.HandleQuery)
	queries.Post("/search", queryHandler.HandleSearch)
	apiv1.Post("/query", queryHandler.HandleQuery)
	apiv1.Post("/search", queryHandler.HandleSearch)

	plugins.Get("/", queryHandler.HandlePlugins)
	plugins.Get("/:name", queryHandler.HandlePlugin)
	apiv1.Get("/formats", queryHandler.HandleFormats)
	apiv1.Get("/parsers", queryHandler.HandleParsers)

	apiv1.Post("/admin/reset-stale", adminHandler.HandleResetStale)

	return &Server{app: app, cfg: cfg}, nil
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run listens on the configured address until ctx is cancelled,
// then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		if err := s.app.ShutdownWithTimeout(s.cfg.ShutdownTimeout); err != nil {
			logger.Warn("http shutdown: %v", err)
		}
	}()

	logger.Info("HTTP API listening on %s", s.cfg.Addr)
	if err := s.app.Listen(s.cfg.Addr); err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Addr, err)
	}
	return nil
}

func requestLogger(c *fiber.Ctx) error {
	start := time.Now()
	if err := c.Next(); err != nil {
		// Render now so the logged status is the one the client sees.
		if herr := c.App().ErrorHandler(c, err); herr != nil {
			return herr
		}
	}
	logger.With(
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Int("status", c.Response().StatusCode()),
		zap.Duration("elapsed", time.Since(start)),
	).Debugw("request")
	return nil
}
