package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/polishtutor/polishtutor/internal/consts"
	"github.com/polishtutor/polishtutor/internal/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server answers liveness checks from the hosting platform and the bot's own
// keep-alive pings. It also exposes /metrics when a gatherer is given.
type Server struct {
	echo *echo.Echo
	addr string
}

func New(port int, gatherer prometheus.Gatherer) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod: true,
		LogURI:    true,
		LogStatus: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Debug("HTTP request", map[string]interface{}{
				"method": v.Method,
				"uri":    v.URI,
				"status": v.Status,
			})
			return nil
		},
	}))

	if gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
	e.GET("/*", hello)

	return &Server{echo: e, addr: fmt.Sprintf(":%d", port)}
}

func hello(c echo.Context) error {
	return c.HTML(http.StatusOK, consts.LivenessBody)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start blocks serving until Shutdown is called.
func (s *Server) Start() error {
	logger.Info("Liveness server listening", map[string]interface{}{
		"addr": s.addr,
	})
	if err := s.echo.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("liveness server failed: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
