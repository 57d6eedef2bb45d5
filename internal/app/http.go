package app

import (
	"context"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/jjavieralv/x402-video/internal/catalog"
	"github.com/jjavieralv/x402-video/internal/config"
	"github.com/jjavieralv/x402-video/internal/facilitator"
	"github.com/jjavieralv/x402-video/internal/handler"
	"github.com/jjavieralv/x402-video/internal/paywall"
	"github.com/jjavieralv/x402-video/internal/session"
)

func setupHTTP(ctx context.Context, cfg config.Config, log zerolog.Logger) (*gin.Engine, func() error, error) {

	infra, err := setupInfra(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}

	// ----------------------------
	// Dependencies
	// ----------------------------

	var sessionStore session.Store
	switch cfg.SessionBackend {
	case "redis":
		sessionStore = session.NewRedisStore(infra.Redis.Client, cfg.SessionTTL)
	default:
		sessionStore = session.NewMemoryStore()
	}

	facilitatorClient := facilitator.New(facilitator.Config{
		BaseURL: cfg.FacilitatorURL,
		Timeout: cfg.FacilitatorTimeout,
		Network: cfg.PaymentNetwork,
		Price:   cfg.PricePerSegment,
		PayTo:   cfg.ReceiverAddress,
	})

	gate := paywall.New(facilitatorClient, cfg.DemoMode, log)
	cat := catalog.New(cfg.SegmentsDir)

	videoHandler := handler.NewHandler(
		cat,
		gate,
		facilitatorClient,
		cfg.PricePerSegment,
		log,
	)

	// ----------------------------
	// Router
	// ----------------------------

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(log))
	router.SetHTMLTemplate(handler.Templates())

	// Every request is bound to a session; resolution never fails a
	// request, so this sits in front of free and protected routes alike.
	router.Use(session.Resolve(sessionStore, session.CookieOptions{}, log))

	// ----------------------------
	// Routes
	// ----------------------------

	videoHandler.RegisterRoutes(router)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ----------------------------
	// Player frontend
	// ----------------------------

	router.GET("/", func(c *gin.Context) {
		c.File(filepath.Join(cfg.PublicDir, "index.html"))
	})

	router.NoRoute(gin.WrapH(http.FileServer(http.Dir(cfg.PublicDir))))

	// ----------------------------
	// Cleanup
	// ----------------------------

	return router, func() error {
		if infra.Redis != nil {
			return infra.Redis.Close()
		}
		return nil
	}, nil
}

// requestLogger emits one structured event per request.
func requestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()

		c.Next()

		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(started)).
			Msg("http request")
	}
}
