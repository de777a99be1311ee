package api

import (
	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func SetupRoutes(app *fiber.App, handler *Handler, metricsEnabled bool) {
	// Global middlewares
	app.Use(RequestID())
	app.Use(NoCache())

	// Health checks (sem sessão nem rate limiting)
	app.Get("/health", handler.HealthCheck)
	app.Get("/ready", handler.ReadinessCheck)

	if metricsEnabled {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	}

	app.Get("/swagger/*", swagger.HandlerDefault)

	app.Use(PrometheusMiddleware())
	app.Use(Sessions(handler.sessions, handler.cookie.Name))

	// Identity
	app.Get("/register", handler.RegisterForm)
	app.Post("/register", handler.Register)
	app.Get("/login", handler.LoginForm)
	app.Post("/login", handler.Login)
	app.Get("/logout", handler.Logout)

	// API v1 - JSON, rate limited
	v1 := app.Group("/api/v1", RateLimiter(), RequireAPIUser())
	v1.Get("/portfolio", handler.APIPortfolio)
	v1.Get("/history", handler.APIHistory)
	v1.Get("/quote/:symbol", handler.APIQuote)

	// Pages
	pages := app.Group("/", RequireUser())
	pages.Get("/", handler.Index)
	pages.Get("/buy", handler.BuyForm)
	pages.Post("/buy", handler.Buy)
	pages.Get("/sell", handler.SellForm)
	pages.Post("/sell", handler.Sell)
	pages.Get("/quote", handler.QuoteForm)
	pages.Post("/quote", handler.Quote)
	pages.Get("/deposit", handler.DepositForm)
	pages.Post("/deposit", handler.Deposit)
	pages.Get("/history", handler.History)
	pages.Get("/history/export", handler.ExportHistory)
}
