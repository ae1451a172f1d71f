// Package server hosts the HTTP API
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/Ramsey-B/clover/pkg/health"
	"github.com/Ramsey-B/clover/pkg/middleware"
	"github.com/Ramsey-B/clover/pkg/routes"
)

// Config holds the listener and CORS settings
type Config struct {
	ServiceName       string
	Port              int
	ReadTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int
	AllowOrigins      []string
	AllowMethods      []string
	// ContainerID is the dependency container handlers resolve from
	ContainerID string
}

// Server is the echo instance and the http.Server that runs it
type Server struct {
	echo   *echo.Echo
	http   *http.Server
	logger ectologger.Logger
}

// New builds the server with the full middleware chain and every route
func New(cfg Config, checker *health.Checker, logger ectologger.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.Error(logger)

	e.Use(echomw.Recover())
	e.Use(otelecho.Middleware(cfg.ServiceName))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: cfg.AllowMethods,
	}))
	e.Use(middleware.Context(), middleware.Logger(logger), middleware.Container(cfg.ContainerID))

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	routes.Register(e, checker)

	return &Server{
		echo: e,
		http: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           e,
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: cfg.ReadHeaderTimeout,
			WriteTimeout:      cfg.WriteTimeout,
			IdleTimeout:       cfg.IdleTimeout,
			MaxHeaderBytes:    cfg.MaxHeaderBytes,
		},
		logger: logger,
	}
}

// Handler exposes the router for in-process callers and tests
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Serve accepts connections on l until the server is shut down
func (s *Server) Serve(l net.Listener) error {
	s.logger.Infof("HTTP server listening on %s", l.Addr())
	if err := s.http.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Run listens on the configured port and shuts down gracefully, within
// shutdownTimeout, once ctx is cancelled
func (s *Server) Run(ctx context.Context, shutdownTimeout time.Duration) error {
	l, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.http.Addr, err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Serve(l)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}
	return <-errCh
}
