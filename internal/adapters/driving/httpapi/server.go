package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/custodia-labs/regdocs/internal/logger"
)

// UserHeader identifies the calling user for history.
const UserHeader = "X-User-ID"

// DefaultMaxUploadBytes caps uploaded file size.
const DefaultMaxUploadBytes = 50 << 20

const shutdownTimeout = 10 * time.Second

// Server serves the JSON API.
type Server struct {
	echo     *echo.Echo
	ports    *Ports
	maxBytes int64
	log      logger.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithMaxUploadBytes caps uploaded file size.
func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBytes = n
		}
	}
}

// WithMount serves h under prefix, e.g. the MCP handler at /mcp.
func WithMount(prefix string, h http.Handler) Option {
	return func(s *Server) {
		s.echo.Any(prefix, echo.WrapHandler(h))
		s.echo.Any(prefix+"/*", echo.WrapHandler(h))
	}
}

// NewServer creates an API server with routes registered.
func NewServer(ports *Ports, opts ...Option) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:     e,
		ports:    ports,
		maxBytes: DefaultMaxUploadBytes,
		log:      logger.Component("http"),
	}
	e.HTTPErrorHandler = s.errorHandler
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(s.requestLogger)

	s.registerRoutes()
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/healthz", s.health)

	api := s.echo.Group("/api")

	api.POST("/documents", s.uploadDocument)
	api.GET("/documents", s.listDocuments)
	api.GET("/documents/:id", s.getDocument)
	api.GET("/documents/:id/status", s.documentStatus)
	api.DELETE("/documents/:id", s.deleteDocument)
	api.POST("/documents/:id/reprocess", s.reprocessDocument)

	api.POST("/search", s.search)

	if s.ports.History != nil {
		api.GET("/history/:user", s.history)
		api.POST("/history/:user/bookmarks", s.bookmark)
	}

	if s.ports.Reference != nil {
		api.GET("/reference/verticals", s.verticals)
		api.GET("/reference/document-types", s.documentTypes)
	}
}

func (s *Server) requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		s.log.Debug("%s %s %d %s", c.Request().Method, c.Request().URL.Path,
			c.Response().Status, time.Since(start).Round(time.Millisecond))
		return err
	}
}

// Handler returns the API as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening on %s", addr)
		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
