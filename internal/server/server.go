// Package server provides the HTTP server and Echo setup for the kurv API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// BodyLimit caps every request body.
const BodyLimit = "1M"

// Server is the HTTP server (Echo) with the registered handlers.
type Server struct {
	echo   *echo.Echo
	addr   string
	logger *slog.Logger
}

// Handler registers routes on the Echo instance.
type Handler interface {
	Register(e *echo.Echo)
}

// Options tune the middleware stack.
type Options struct {
	Addr string
	// RateLimit is the sustained request rate per client IP; 0 disables limiting.
	RateLimit float64
}

// NewServer builds the Echo server with recovery, request logging, body and rate limits,
// the envelope error handler and the given handlers.
func NewServer(log *slog.Logger, opts Options, handlers ...Handler) *Server {
	if log == nil {
		log = slog.Default()
	}
	addr := opts.Addr
	if addr == "" {
		addr = ":8080"
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = NewValidator()
	e.HTTPErrorHandler = ErrorHandler(log)
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Info("request",
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("remote_ip", c.RealIP()),
			)
			return nil
		},
	}))
	e.Use(middleware.BodyLimit(BodyLimit))
	if opts.RateLimit > 0 {
		burst := int(opts.RateLimit * 2)
		if burst < 1 {
			burst = 1
		}
		store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
			Rate:  rate.Limit(opts.RateLimit),
			Burst: burst,
		})
		e.Use(middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
			Skipper: func(c echo.Context) bool {
				path := c.Request().URL.Path
				return path == "/ping" || path == "/health"
			},
			Store: store,
			DenyHandler: func(c echo.Context, _ string, _ error) error {
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			},
		}))
	}

	for _, h := range handlers {
		if h != nil {
			h.Register(e)
		}
	}

	return &Server{
		echo:   e,
		addr:   addr,
		logger: log.With(slog.String("component", "server")),
	}
}

// Echo exposes the router, mainly for tests.
func (s *Server) Echo() *echo.Echo { return s.echo }

// Start starts the HTTP server (blocks until shutdown).
func (s *Server) Start() error {
	s.logger.Info("listening", slog.String("addr", s.addr))
	return s.echo.Start(s.addr)
}

// Stop gracefully shuts down the server using the given context.
func (s *Server) Stop(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

type envelope struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// ErrorHandler renders every error as {"ok":false,"error":...}. Errors that are not
// *echo.HTTPError are logged and reported as a generic 500.
func ErrorHandler(log *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		code := http.StatusInternalServerError
		msg := http.StatusText(code)

		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			if he.Internal != nil && code >= http.StatusInternalServerError {
				log.Error("request failed",
					slog.String("method", c.Request().Method),
					slog.String("uri", c.Request().RequestURI),
					slog.Any("error", he.Internal),
				)
			}
			if m, ok := he.Message.(string); ok {
				msg = m
			} else if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		} else {
			log.Error("unhandled error",
				slog.String("method", c.Request().Method),
				slog.String("uri", c.Request().RequestURI),
				slog.Any("error", err),
			)
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(code)
		} else {
			err = c.JSON(code, envelope{OK: false, Error: msg})
		}
		if err != nil {
			log.Error("write error response", slog.Any("error", err))
		}
	}
}
