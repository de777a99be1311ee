package api

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/google/uuid"
	"github.com/jeovahfialho/papertrader/internal/session"
	"github.com/jeovahfialho/papertrader/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

const (
	localRequestID = "requestID"
	localUserID    = "userID"
	localSessionID = "sessionID"
	localSession   = "session"
)

var (
	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "http_duration_seconds",
		Help: "Duration of HTTP requests.",
	}, []string{"method", "route", "status_code"})

	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests.",
	}, []string{"method", "route", "status_code"})
)

func PrometheusMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := c.Response().StatusCode()

		httpDuration.WithLabelValues(
			c.Method(),
			c.Route().Path,
			fmt.Sprintf("%d", status),
		).Observe(duration)

		httpRequests.WithLabelValues(
			c.Method(),
			c.Route().Path,
			fmt.Sprintf("%d", status),
		).Inc()

		return err
	}
}

func RateLimiter() fiber.Handler {
	return limiter.New(limiter.Config{
		Max:               100,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests",
			})
		},
	})
}

// NoCache stops browsers and proxies from keeping any page, so balances are
// never shown stale.
func NoCache() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderCacheControl, "no-cache, no-store, must-revalidate")
		c.Set(fiber.HeaderExpires, "0")
		c.Set(fiber.HeaderPragma, "no-cache")
		return c.Next()
	}
}

func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		requestID := c.Get(fiber.HeaderXRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		c.Set(fiber.HeaderXRequestID, requestID)
		c.Locals(localRequestID, requestID)
		c.SetUserContext(logger.ContextWithRequestID(c.UserContext(), requestID))

		return c.Next()
	}
}

// Sessions resolves the session cookie. Requests without a live session
// continue anonymously.
func Sessions(store session.Store, cookieName string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Cookies(cookieName)
		if id == "" {
			return c.Next()
		}

		s, err := store.Get(c.UserContext(), id)
		switch {
		case errors.Is(err, session.ErrNotFound):
			c.ClearCookie(cookieName)
		case err != nil:
			logger.WithContext(c.UserContext()).Warn("erro ao carregar sessão", zap.Error(err))
		default:
			c.Locals(localSessionID, id)
			c.Locals(localSession, s)
			c.Locals(localUserID, s.UserID)
		}

		return c.Next()
	}
}

// RequireUser sends anonymous visitors to the login page.
func RequireUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := currentUser(c); !ok {
			return c.Redirect("/login")
		}
		return c.Next()
	}
}

// RequireAPIUser is RequireUser for JSON clients.
func RequireAPIUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := currentUser(c); !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
				Error:     "authentication required",
				Code:      fiber.StatusUnauthorized,
				RequestID: getRequestID(c),
				Timestamp: time.Now(),
			})
		}
		return c.Next()
	}
}

// ErrorHandler is the application wide fiber error handler. JSON routes get
// an ErrorResponse, pages get the apology template.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code, message := statusFor(err)

	if code >= fiber.StatusInternalServerError {
		logger.WithContext(c.UserContext()).Error("erro ao processar requisição",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", code),
			zap.Error(err))
	}

	if strings.HasPrefix(c.Path(), "/api/") {
		return c.Status(code).JSON(ErrorResponse{
			Error:     message,
			Code:      code,
			RequestID: getRequestID(c),
			Timestamp: time.Now(),
		})
	}

	return c.Status(code).Render("apology", fiber.Map{
		"Code":    code,
		"Message": message,
		"User":    isLoggedIn(c),
	}, layout)
}

func currentUser(c *fiber.Ctx) (int64, bool) {
	id, ok := c.Locals(localUserID).(int64)
	return id, ok && id > 0
}

func isLoggedIn(c *fiber.Ctx) bool {
	_, ok := currentUser(c)
	return ok
}

func getRequestID(c *fiber.Ctx) string {
	if id, ok := c.Locals(localRequestID).(string); ok {
		return id
	}
	return ""
}
