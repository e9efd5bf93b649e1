package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"evaluagent-relay-go/internal/config"
	"evaluagent-relay-go/internal/evaluagent"
	"evaluagent-relay-go/internal/httpserver"
	"evaluagent-relay-go/internal/logger"
	"evaluagent-relay-go/internal/recording"
	"evaluagent-relay-go/internal/relay"
)

func main() {
	_ = godotenv.Load() // loads .env

	cfg, err := config.Load()
	if err != nil {
		logger.New(logger.Options{}).WithError(err).Fatal("invalid configuration")
	}

	log := logger.New(logger.Options{Environment: cfg.Environment, Level: cfg.LogLevel})
	log.WithField("service", "evaluagent-relay-go").
		WithField("api_url", cfg.APIURL).
		Info("starting service")

	// one pooled client shared by every delivery
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	rl := relay.New(
		recording.NewFetcher(httpClient, cfg.RetryMax),
		evaluagent.NewClient(evaluagent.Options{
			BaseURL:     cfg.APIURL,
			AccessKeyID: cfg.AccessKeyID,
			SecretKey:   cfg.SecretKey,
			HTTPClient:  httpClient,
			Retries:     cfg.RetryMax,
		}),
	)

	gin.SetMode(gin.ReleaseMode)
	addr := fmt.Sprintf(":%s", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpserver.NewRouter(log, rl, cfg.ProcessTimeout),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.ProcessTimeout + 15*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("graceful shutdown failed")
		}
	}()

	log.WithField("addr", addr).Info("listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Fatal("server terminated")
	}
}
