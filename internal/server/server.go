package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/discourselab/cosmos/config"
	"github.com/discourselab/cosmos/internal/cosmos"
	"github.com/discourselab/cosmos/internal/telemetry"
	"github.com/discourselab/cosmos/provider"
	"github.com/discourselab/cosmos/repository"
	"github.com/discourselab/cosmos/session"
)

// Run wires the pipeline behind a thin HTTP surface and blocks serving.
// All semantics live in internal/cosmos; handlers only translate.
func Run(cfg *config.Config) error {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Content-Type"},
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	llm, err := provider.NewLLMProvider(cfg.LLM)
	if err != nil {
		return fmt.Errorf("building LLM provider: %w", err)
	}

	// The cache is a soft dependency: start serving even when it is down.
	cache, err := repository.NewResultCache(context.Background(), cfg.Storage, baseLogger)
	if err != nil {
		baseLogger.Printf("warning: running without result cache: %v", err)
		cache = nil
	}

	tele := telemetry.NewTelemetry(cfg.Telemetry, prometheus.DefaultRegisterer)
	pipeline := cosmos.NewPipeline(cfg.Pipeline, llm, cache, tele, nil)

	h := &handlers{
		pipeline:   pipeline,
		sessions:   session.NewInMemoryStore(),
		sessionTTL: 30 * time.Minute,
	}
	api := e.Group("/api")
	api.POST("/cosmos", h.runPipeline)
	api.GET("/cosmos/:source", h.lookup)
	api.POST("/cosmos/:source/classify", h.classify)
	api.GET("/cosmos/:source/narrator", h.narratorContext)
	api.GET("/cosmos/:source/status", h.runStatus)
	api.POST("/sessions", h.createSession)
	api.POST("/sessions/:id/swipes", h.addSwipe)
	api.PUT("/sessions/:id/position", h.setPosition)

	return e.Start(cfg.Server.Address)
}
