// Package api exposes the HTTP surface consumed by the browser frontend.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"

	"github.com/docuchat/internal/chat"
)

// Options configures the API server.
type Options struct {
	Port        int
	UploadDir   string // staging directory for multipart uploads
	StaticDir   string // browser frontend, served verbatim; empty disables
	MaxUploadMB int
}

// Server represents the API server
type Server struct {
	echo     *echo.Echo
	port     int
	chat     *chat.Service
	uploader *chat.Uploader
	opts     Options
}

// NewServer creates a new API server
func NewServer(chatSvc *chat.Service, uploader *chat.Uploader, opts Options) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	server := &Server{
		echo:     e,
		port:     opts.Port,
		chat:     chatSvc,
		uploader: uploader,
		opts:     opts,
	}

	e.HTTPErrorHandler = server.handleError

	// Setup routes
	server.setupRoutes()

	return server
}

// setupRoutes configures all API endpoints
func (s *Server) setupRoutes() {
	// Health check endpoint
	s.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status": "healthy",
		})
	})

	// API group; request logging covers API traffic only so static file
	// hits stay out of the logs.
	api := s.echo.Group("/api", requestLogger())

	api.POST("/start-chat", s.handleStartChat)
	api.POST("/chat", s.handleChat)
	api.GET("/history/:sessionId", s.handleHistory)

	maxUpload := s.opts.MaxUploadMB
	if maxUpload <= 0 {
		maxUpload = 50
	}
	api.POST("/upload-pdf", s.handleUploadPDF, middleware.BodyLimit(fmt.Sprintf("%dM", maxUpload)))

	// Any unmatched path under the API prefix
	api.Any("/*", func(c echo.Context) error {
		log.Debug().Str("method", c.Request().Method).Str("path", c.Request().URL.Path).
			Msg("Unmatched API route")
		return c.JSON(http.StatusNotFound, map[string]string{"error": "API Not Found"})
	})

	// Browser frontend
	if s.opts.StaticDir != "" {
		s.echo.Static("/", s.opts.StaticDir)
	}
}

// requestLogger logs API requests with method, path, status and latency.
func requestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			log.Info().
				Str("method", c.Request().Method).
				Str("path", c.Request().URL.Path).
				Int("status", c.Response().Status).
				Dur("latency", time.Since(start)).
				Msg("API request")
			return nil
		}
	}
}

// handleError renders every uncaught API error as a JSON body with a
// status drawn from the failure class (default 500).
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := chat.HTTPStatus(err)
	message := err.Error()

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		status = httpErr.Code
		message = fmt.Sprintf("%v", httpErr.Message)
	}

	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Request().URL.Path).Msg("API request failed")
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(status)
		return
	}
	_ = c.JSON(status, map[string]string{"error": message})
}

// Start begins the API server
func (s *Server) Start() error {
	// Start server in a goroutine
	go func() {
		addr := fmt.Sprintf(":%d", s.port)
		log.Info().Str("addr", addr).Msg("API server listening")
		if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("API server shut down unexpectedly")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return s.echo.Shutdown(ctx)
}
