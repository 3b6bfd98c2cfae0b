// Package server exposes a single workflow session over a JSON HTTP API.
package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/YuminosukeSato/stepml/pkg/errors"
	"github.com/YuminosukeSato/stepml/pkg/log"
	"github.com/YuminosukeSato/stepml/workflow"
)

const (
	maxUploadSize   = "32M"
	shutdownTimeout = 5 * time.Second
)

// Server serves one workflow session. Mutating requests are serialised so
// that compound steps, such as train followed by evaluate, are not
// interleaved.
type Server struct {
	mu                 sync.Mutex
	session            *workflow.Session
	defaultTestPercent int
	echo               *echo.Echo
	logger             log.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithDefaultTestPercent sets the test percent used when a train request
// omits it.
func WithDefaultTestPercent(pct int) Option {
	return func(s *Server) { s.defaultTestPercent = pct }
}

// New builds the server and its routes.
func New(session *workflow.Session, opts ...Option) *Server {
	s := &Server{
		session:            session,
		defaultTestPercent: workflow.DefaultTestPercent,
		logger:             log.GetLoggerWithName("server"),
	}
	for _, opt := range opts {
		opt(s)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		e.DefaultHTTPErrorHandler(err, c)
		var he *echo.HTTPError
		if errors.As(err, &he) && he.Code < http.StatusInternalServerError {
			return
		}
		s.logger.Error("Request failed", err, log.HTTPPathKey, c.Request().URL.Path)
	}
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit(maxUploadSize))
	e.Use(s.logRequests)

	e.GET("/state", s.handleState)
	e.DELETE("/session", s.handleReset)
	e.POST("/dataset", s.handleUpload)
	e.POST("/columns", s.handleColumns)
	e.GET("/nulls", s.handleGetNulls)
	e.POST("/nulls", s.handleResolveNulls)
	e.POST("/encode", s.handleEncode)
	e.GET("/correlation", s.handleCorrelation)
	e.GET("/correlation.png", s.handleCorrelationPNG)
	e.POST("/train", s.handleTrain)
	e.GET("/metrics", s.handleMetrics)
	e.GET("/confusion.png", s.handleConfusionPNG)

	s.echo = e
	return s
}

// ServeHTTP makes Server an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Start listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Listening", "http.addr", addr)
		errCh <- s.echo.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "server failed")
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.echo.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "shutdown failed")
		}
		return nil
	}
}

func (s *Server) logRequests(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)

		status := c.Response().Status
		var he *echo.HTTPError
		if errors.As(err, &he) {
			status = he.Code
		}
		s.logger.Info("Request handled",
			log.HTTPMethodKey, c.Request().Method,
			log.HTTPPathKey, c.Request().URL.Path,
			log.HTTPStatusKey, status,
			log.DurationMsKey, time.Since(start).Milliseconds(),
		)
		return err
	}
}
