package api

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jeovahfialho/papertrader/internal/domain"
	"github.com/jeovahfialho/papertrader/internal/quote"
	"github.com/jeovahfialho/papertrader/internal/report"
	"github.com/jeovahfialho/papertrader/internal/service"
	"github.com/jeovahfialho/papertrader/internal/session"
	"github.com/jeovahfialho/papertrader/pkg/logger"
	"go.uber.org/zap"
)

const version = "1.0.0"

// HealthCheck is one dependency probed by /ready.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type CookieConfig struct {
	Name   string
	TTL    time.Duration
	Secure bool
}

type Handler struct {
	auth      *service.AuthService
	trades    *service.TradeService
	portfolio *service.PortfolioService
	history   *service.HistoryService
	quotes    quote.Provider
	sessions  session.Store
	cookie    CookieConfig
	checks    []HealthCheck
}

func NewHandler(
	auth *service.AuthService,
	trades *service.TradeService,
	portfolio *service.PortfolioService,
	history *service.HistoryService,
	quotes quote.Provider,
	sessions session.Store,
	cookie CookieConfig,
	checks ...HealthCheck,
) *Handler {
	return &Handler{
		auth:      auth,
		trades:    trades,
		portfolio: portfolio,
		history:   history,
		quotes:    quotes,
		sessions:  sessions,
		cookie:    cookie,
		checks:    checks,
	}
}

func (h *Handler) Index(c *fiber.Ctx) error {
	userID, _ := currentUser(c)

	p, err := h.portfolio.Portfolio(c.UserContext(), userID)
	if err != nil {
		return err
	}

	return h.page(c, "index", fiber.Map{
		"Portfolio": p,
		"Flash":     h.popFlash(c),
	})
}

func (h *Handler) BuyForm(c *fiber.Ctx) error {
	return h.page(c, "buy", fiber.Map{})
}

func (h *Handler) Buy(c *fiber.Ctx) error {
	var form BuyForm
	if err := c.BodyParser(&form); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid form")
	}

	symbol, shares, err := form.Validate()
	if err == nil {
		userID, _ := currentUser(c)
		var exec domain.Execution
		if exec, err = h.trades.Buy(c.UserContext(), userID, symbol, shares); err == nil {
			return h.redirectWithFlash(c, service.Describe(exec))
		}
	}

	return h.formError(c, "buy", err, fiber.Map{"Form": form})
}

func (h *Handler) SellForm(c *fiber.Ctx) error {
	userID, _ := currentUser(c)

	symbols, err := h.portfolio.HeldSymbols(c.UserContext(), userID)
	if err != nil {
		return err
	}

	return h.page(c, "sell", fiber.Map{"Symbols": symbols})
}

func (h *Handler) Sell(c *fiber.Ctx) error {
	userID, _ := currentUser(c)

	var form SellForm
	if err := c.BodyParser(&form); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid form")
	}

	symbol, shares, err := form.Validate()
	if err == nil {
		var exec domain.Execution
		if exec, err = h.trades.Sell(c.UserContext(), userID, symbol, shares); err == nil {
			return h.redirectWithFlash(c, service.Describe(exec))
		}
	}

	symbols, listErr := h.portfolio.HeldSymbols(c.UserContext(), userID)
	if listErr != nil {
		return listErr
	}

	return h.formError(c, "sell", err, fiber.Map{"Form": form, "Symbols": symbols})
}

func (h *Handler) QuoteForm(c *fiber.Ctx) error {
	return h.page(c, "quote", fiber.Map{})
}

func (h *Handler) Quote(c *fiber.Ctx) error {
	var form QuoteForm
	if err := c.BodyParser(&form); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid form")
	}

	symbol, err := form.Validate()
	if err == nil {
		var q domain.Quote
		if q, err = h.quotes.Lookup(c.UserContext(), symbol); err == nil {
			return h.page(c, "quoted", fiber.Map{"Quote": q})
		}
	}

	return h.formError(c, "quote", err, fiber.Map{"Form": form})
}

func (h *Handler) DepositForm(c *fiber.Ctx) error {
	return h.page(c, "deposit", fiber.Map{})
}

func (h *Handler) Deposit(c *fiber.Ctx) error {
	var form DepositForm
	if err := c.BodyParser(&form); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid form")
	}

	amount, err := form.Validate()
	if err == nil {
		userID, _ := currentUser(c)
		if _, err = h.trades.Deposit(c.UserContext(), userID, amount); err == nil {
			return h.redirectWithFlash(c, fmt.Sprintf("Deposited %s", service.FormatUSD(amount)))
		}
	}

	return h.formError(c, "deposit", err, fiber.Map{"Form": form})
}

func (h *Handler) History(c *fiber.Ctx) error {
	userID, _ := currentUser(c)

	entries, err := h.history.History(c.UserContext(), userID)
	if err != nil {
		return err
	}

	return h.page(c, "history", fiber.Map{"Entries": entries})
}

func (h *Handler) ExportHistory(c *fiber.Ctx) error {
	userID, _ := currentUser(c)

	data, err := h.history.Export(c.UserContext(), userID)
	if err != nil {
		return err
	}

	c.Attachment("history" + report.FileExtension)
	c.Set(fiber.HeaderContentType, report.ContentType)
	return c.Send(data)
}

// RegisterForm also forgets any current login.
func (h *Handler) RegisterForm(c *fiber.Ctx) error {
	h.endSession(c)
	return h.page(c, "register", fiber.Map{})
}

// Register creates the account and logs the new user in.
func (h *Handler) Register(c *fiber.Ctx) error {
	var form RegisterForm
	if err := c.BodyParser(&form); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid form")
	}

	err := form.Validate()
	if err == nil {
		var userID int64
		if userID, err = h.auth.Register(c.UserContext(), form.Username, form.Password); err == nil {
			if err := h.startSession(c, userID); err != nil {
				return err
			}
			return c.Redirect("/")
		}
	}

	return h.formError(c, "register", err, fiber.Map{"Form": RegisterForm{Username: form.Username}})
}

// LoginForm forgets any current login before showing the form.
func (h *Handler) LoginForm(c *fiber.Ctx) error {
	h.endSession(c)
	return h.page(c, "login", fiber.Map{})
}

func (h *Handler) Login(c *fiber.Ctx) error {
	h.endSession(c)

	var form LoginForm
	if err := c.BodyParser(&form); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid form")
	}

	err := form.Validate()
	if err == nil {
		var userID int64
		if userID, err = h.auth.Authenticate(c.UserContext(), form.Username, form.Password); err == nil {
			if err := h.startSession(c, userID); err != nil {
				return err
			}
			return c.Redirect("/")
		}
	}

	return h.formError(c, "login", err, fiber.Map{"Form": LoginForm{Username: form.Username}})
}

func (h *Handler) Logout(c *fiber.Ctx) error {
	h.endSession(c)
	return c.Redirect("/")
}

// APIPortfolio godoc
// @Summary Current portfolio
// @Tags portfolio
// @Produce json
// @Success 200 {object} PortfolioResponse
// @Failure 401 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /portfolio [get]
func (h *Handler) APIPortfolio(c *fiber.Ctx) error {
	userID, _ := currentUser(c)

	p, err := h.portfolio.Portfolio(c.UserContext(), userID)
	if err != nil {
		return err
	}

	return c.JSON(PortfolioResponse{
		Positions:    p.Positions,
		Cash:         p.Cash,
		CashDisplay:  service.FormatUSD(p.Cash),
		Total:        p.Total,
		TotalDisplay: service.FormatUSD(p.Total),
	})
}

// APIHistory godoc
// @Summary Trade history, most recent first
// @Tags history
// @Produce json
// @Success 200 {array} service.HistoryEntry
// @Failure 401 {object} ErrorResponse
// @Router /history [get]
func (h *Handler) APIHistory(c *fiber.Ctx) error {
	userID, _ := currentUser(c)

	entries, err := h.history.History(c.UserContext(), userID)
	if err != nil {
		return err
	}

	return c.JSON(entries)
}

// APIQuote godoc
// @Summary Current quote of a symbol
// @Tags quote
// @Produce json
// @Param symbol path string true "Ticker symbol"
// @Success 200 {object} QuoteResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /quote/{symbol} [get]
func (h *Handler) APIQuote(c *fiber.Ctx) error {
	symbol, err := QuoteForm{Symbol: c.Params("symbol")}.Validate()
	if err != nil {
		return err
	}

	q, err := h.quotes.Lookup(c.UserContext(), symbol)
	if err != nil {
		return err
	}

	return c.JSON(QuoteResponse{
		Symbol:       q.Symbol,
		Name:         q.Name,
		Price:        q.Price,
		PriceDisplay: service.FormatUSD(q.Price),
	})
}

func (h *Handler) HealthCheck(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status:    "healthy",
		Version:   version,
		Timestamp: time.Now(),
	})
}

func (h *Handler) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	services := make(map[string]ServiceHealth, len(h.checks))
	status := "ready"

	for _, check := range h.checks {
		start := time.Now()
		if err := check.Check(ctx); err != nil {
			services[check.Name] = ServiceHealth{
				Status: "unhealthy",
				Error:  err.Error(),
			}
			status = "not_ready"
			continue
		}
		services[check.Name] = ServiceHealth{
			Status:  "healthy",
			Latency: time.Since(start).String(),
		}
	}

	response := HealthResponse{
		Status:    status,
		Version:   version,
		Timestamp: time.Now(),
		Services:  services,
	}

	if status != "ready" {
		return c.Status(fiber.StatusServiceUnavailable).JSON(response)
	}

	return c.JSON(response)
}

func (h *Handler) page(c *fiber.Ctx, name string, data fiber.Map) error {
	data["User"] = isLoggedIn(c)
	return c.Render(name, data, layout)
}

// formError re-renders a form with the message and status of err.
func (h *Handler) formError(c *fiber.Ctx, name string, err error, data fiber.Map) error {
	code, message := statusFor(err)
	if code >= fiber.StatusInternalServerError && code != fiber.StatusServiceUnavailable {
		return err
	}

	data["Error"] = message
	c.Status(code)
	return h.page(c, name, data)
}

func (h *Handler) startSession(c *fiber.Ctx, userID int64) error {
	id, err := h.sessions.Create(c.UserContext(), session.Session{UserID: userID})
	if err != nil {
		return err
	}

	c.Cookie(&fiber.Cookie{
		Name:     h.cookie.Name,
		Value:    id,
		Path:     "/",
		Expires:  time.Now().Add(h.cookie.TTL),
		HTTPOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	c.Locals(localSessionID, id)
	c.Locals(localUserID, userID)

	return nil
}

func (h *Handler) endSession(c *fiber.Ctx) {
	if id, ok := c.Locals(localSessionID).(string); ok {
		if err := h.sessions.Delete(c.UserContext(), id); err != nil {
			logger.WithContext(c.UserContext()).Warn("erro ao remover sessão", zap.Error(err))
		}
	}

	c.ClearCookie(h.cookie.Name)
	c.Locals(localSessionID, nil)
	c.Locals(localSession, nil)
	c.Locals(localUserID, nil)
}

func (h *Handler) redirectWithFlash(c *fiber.Ctx, message string) error {
	id, _ := c.Locals(localSessionID).(string)
	s, _ := c.Locals(localSession).(session.Session)

	s.Flash = message
	if err := h.sessions.Save(c.UserContext(), id, s); err != nil {
		logger.WithContext(c.UserContext()).Warn("erro ao salvar flash", zap.Error(err))
	}

	return c.Redirect("/")
}

func (h *Handler) popFlash(c *fiber.Ctx) string {
	id, _ := c.Locals(localSessionID).(string)
	s, ok := c.Locals(localSession).(session.Session)
	if !ok || s.Flash == "" {
		return ""
	}

	flash := s.Flash
	s.Flash = ""
	if err := h.sessions.Save(c.UserContext(), id, s); err != nil {
		logger.WithContext(c.UserContext()).Warn("erro ao limpar flash", zap.Error(err))
	}

	return flash
}
