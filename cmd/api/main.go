package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	_ "github.com/jeovahfialho/papertrader/docs"
	"github.com/jeovahfialho/papertrader/internal/api"
	"github.com/jeovahfialho/papertrader/internal/bootstrap"
	"github.com/jeovahfialho/papertrader/internal/config"
	"github.com/jeovahfialho/papertrader/internal/events"
	"github.com/jeovahfialho/papertrader/internal/quote"
	"github.com/jeovahfialho/papertrader/internal/report"
	"github.com/jeovahfialho/papertrader/internal/scheduler"
	"github.com/jeovahfialho/papertrader/internal/service"
	"github.com/jeovahfialho/papertrader/internal/session"
	pkglogger "github.com/jeovahfialho/papertrader/pkg/logger"
)

// @title PaperTrader API
// @version 1.0
// @description JSON projections of the paper trading portfolio

// @BasePath /api/v1
// @schemes http https
func main() {
	cfg := config.Load()

	if err := pkglogger.Init(cfg.LogLevel, cfg.Development()); err != nil {
		log.Fatal("Erro ao inicializar logger:", err)
	}
	defer pkglogger.Close()

	store, err := bootstrap.OpenStore(cfg)
	if err != nil {
		pkglogger.Fatal("erro ao abrir banco", zap.Error(err))
	}
	defer store.Close()

	redisCache, err := bootstrap.ConnectRedis(cfg)
	if err != nil {
		pkglogger.Fatal("erro ao conectar Redis", zap.Error(err))
	}
	defer redisCache.Close()

	publisher := events.New(cfg.KafkaBrokers, cfg.KafkaTopic)
	defer publisher.Close()

	// Services
	quotes := bootstrap.Quotes(cfg, redisCache)
	authService := service.NewAuthService(store, cfg.StartingCash())
	tradeService := service.NewTradeService(store, quotes, publisher)
	portfolioService := service.NewPortfolioService(store, quotes, cfg.QuoteWorkers)
	historyService := service.NewHistoryService(store, report.NewXLSXGenerator())

	// Quote cache warm-up
	if cfg.QuoteWarmInterval > 0 {
		jobs, err := scheduler.New()
		if err != nil {
			pkglogger.Fatal("erro ao criar scheduler", zap.Error(err))
		}

		warmer := quote.NewWarmer(store, quotes, cfg.QuoteWorkers)
		if err := jobs.NewIntervalJob("quote-warmup", warmer.Run, cfg.QuoteWarmInterval, true); err != nil {
			pkglogger.Fatal("erro ao agendar aquecimento de cotações", zap.Error(err))
		}

		jobs.Start()
		defer func() { _ = jobs.Stop() }()
	}

	// Handler
	handler := api.NewHandler(
		authService,
		tradeService,
		portfolioService,
		historyService,
		quotes,
		session.NewRedisStore(redisCache.Client(), cfg.SessionTTL),
		api.CookieConfig{
			Name:   cfg.SessionCookie,
			TTL:    cfg.SessionTTL,
			Secure: !cfg.Development(),
		},
		api.HealthCheck{Name: "database", Check: store.HealthCheck},
		api.HealthCheck{Name: "redis", Check: redisCache.HealthCheck},
	)

	// Fiber app
	app := fiber.New(fiber.Config{
		Prefork:                 false,
		ServerHeader:            "PaperTrader",
		DisableStartupMessage:   false,
		AppName:                 "PaperTrader v1.0.0",
		Views:                   api.NewViews(),
		ErrorHandler:            api.ErrorHandler,
		ReadTimeout:             cfg.APIReadTimeout,
		WriteTimeout:            cfg.APIWriteTimeout,
		IdleTimeout:             120 * time.Second,
		ReadBufferSize:          8192,
		WriteBufferSize:         8192,
		ProxyHeader:             "X-Forwarded-For",
		EnableTrustedProxyCheck: true,
		BodyLimit:               1 * 1024 * 1024, // 1MB
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path} ${locals:requestID}\n",
	}))
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	// Setup routes
	api.SetupRoutes(app, handler, cfg.MetricsEnabled)

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		pkglogger.Info("encerrando servidor")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := app.ShutdownWithContext(ctx); err != nil {
			pkglogger.Error("erro ao encerrar servidor", zap.Error(err))
		}
	}()

	// Start server
	addr := fmt.Sprintf("%s:%s", cfg.APIHost, cfg.APIPort)
	pkglogger.Info("iniciando servidor", zap.String("addr", addr), zap.String("driver", cfg.DatabaseDriver))

	if err := app.Listen(addr); err != nil {
		pkglogger.Error("erro no servidor", zap.Error(err))
	}
}
