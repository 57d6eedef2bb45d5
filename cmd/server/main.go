package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/gin-gonic/gin"

	"github.com/jjavieralv/x402-video/internal/app"
	"github.com/jjavieralv/x402-video/internal/config"
	"github.com/jjavieralv/x402-video/internal/logger"
)

var (
	version = "dev"
	cli     struct {
		Debug   bool `help:"Enable debug logging." env:"DEBUG"`
		Version kong.VersionFlag

		config.Config `embed:""`
	}
)

func main() {
	kong.Parse(&cli,
		kong.Name("x402-video"),
		kong.Description("Pay-per-view HLS server gated by x402 micropayments."),
		kong.Vars{
			"version": version,
		})

	log := logger.Setup(cli.Debug)

	if !cli.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	application, err := app.New(ctx, cli.Config, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize app")
	}

	go func() {
		if err := application.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	log.Info().
		Str("port", cli.Config.AppPort).
		Bool("demo_mode", cli.Config.DemoMode).
		Msg("pay-per-view server running")

	if cli.Config.DemoMode {
		log.Warn().Msg("DEMO MODE: payments disabled")
	}

	<-ctx.Done() // wait for Ctrl+C

	log.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		10*time.Second,
	)
	defer cancel()

	if err := application.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
