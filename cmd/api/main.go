package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"birdscout-go/internal/config"
	"birdscout-go/internal/function"
	"birdscout-go/internal/logger"
	"birdscout-go/internal/store"
	"birdscout-go/internal/trigger"
)

func main() {
	_ = godotenv.Load() // loads .env

	log := logger.New()
	log.WithField("service", "birdscout-go").Info("starting function host")

	cfg := config.FromEnv()
	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}

	// Wait for the store before accepting invocations; a cold environment
	// comes up in any order.
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 30 * time.Second
	if err := backoff.Retry(func() error { return store.New(cfg).Ping() }, bo); err != nil {
		log.WithError(err).Fatal("store endpoint unreachable")
	}
	log.Info("store endpoint reachable")

	h := function.NewHandler(cfg)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.GET("/healthz", func(c echo.Context) error {
		logger.New().WithRequest(c.Request()).Info("health check")
		return c.String(http.StatusOK, "ok")
	})

	// Every other route is one function invocation. The platform forwards
	// trigger metadata in headers; a direct curl carries none and counts
	// as an HTTP trigger.
	e.Any("/*", func(c echo.Context) error {
		req := c.Request()
		reqLog := logger.New().WithRequest(req)
		body, err := io.ReadAll(req.Body)
		if err != nil {
			reqLog.WithError(err).Warn("failed to read invocation body")
			body = nil
		}
		trig := trigger.New(
			req.Header.Get("x-appwrite-event"),
			req.Header.Get("x-appwrite-key"),
			body,
		)

		start := time.Now()
		resp, status := h.Handle(trig)
		reqLog.WithField("duration_ms", time.Since(start).Milliseconds()).
			WithField("status", status).
			WithField("success", resp.Success).
			Info("invocation finished")
		return c.JSON(status, resp)
	})

	addr := fmt.Sprintf(":%s", envOr("PORT", "8080"))
	e.Server.ReadTimeout = 15 * time.Second
	e.Server.WriteTimeout = 5 * time.Minute
	e.Server.IdleTimeout = 120 * time.Second
	log.WithField("addr", addr).Info("listening")
	if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
		log.WithError(err).Fatal("server terminated")
	}
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
