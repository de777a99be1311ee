package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jeovahfialho/papertrader/internal/domain"
	"github.com/jeovahfialho/papertrader/internal/report"
	"github.com/jeovahfialho/papertrader/internal/service"
	"github.com/jeovahfialho/papertrader/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cookieName = "papertrader_session"

type testApp struct {
	app      *fiber.App
	quotes   *testutil.StaticQuotes
	sessions *testutil.MemorySessions
}

func setupTestApp(t *testing.T) *testApp {
	t.Helper()

	store := testutil.NewSQLiteStore(t)
	quotes := testutil.NewStaticQuotes().Set("AAPL", "Apple Inc.", "150.00")
	sessions := testutil.NewMemorySessions()

	handler := NewHandler(
		service.NewAuthService(store, decimal.RequireFromString("10000.00")),
		service.NewTradeService(store, quotes, &testutil.RecordingPublisher{}),
		service.NewPortfolioService(store, quotes, 2),
		service.NewHistoryService(store, report.NewXLSXGenerator()),
		quotes,
		sessions,
		CookieConfig{Name: cookieName, TTL: time.Hour},
		HealthCheck{Name: "database", Check: store.HealthCheck},
	)

	app := fiber.New(fiber.Config{
		Views:        NewViews(),
		ErrorHandler: ErrorHandler,
	})
	SetupRoutes(app, handler, true)

	return &testApp{app: app, quotes: quotes, sessions: sessions}
}

func (a *testApp) do(t *testing.T, method, target string, form url.Values, cookie *http.Cookie) *http.Response {
	t.Helper()

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}

	resp, err := a.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

// register signs up a user and returns the session cookie.
func (a *testApp) register(t *testing.T, username string) *http.Cookie {
	t.Helper()

	resp := a.do(t, http.MethodPost, "/register", url.Values{
		"username":     {username},
		"password":     {"hunter2"},
		"confirmation": {"hunter2"},
	}, nil)
	require.Equal(t, fiber.StatusFound, resp.StatusCode)

	for _, c := range resp.Cookies() {
		if c.Name == cookieName && c.Value != "" {
			return c
		}
	}
	t.Fatal("no session cookie")
	return nil
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(data)
}

func TestIndexRequiresLogin(t *testing.T) {
	a := setupTestApp(t)

	for _, path := range []string{"/", "/buy", "/sell", "/quote", "/deposit", "/history"} {
		resp := a.do(t, http.MethodGet, path, nil, nil)
		assert.Equal(t, fiber.StatusFound, resp.StatusCode, path)
		assert.Equal(t, "/login", resp.Header.Get(fiber.HeaderLocation), path)
	}
}

func TestResponsesAreNeverCached(t *testing.T) {
	a := setupTestApp(t)

	for _, path := range []string{"/", "/login", "/health", "/api/v1/portfolio"} {
		resp := a.do(t, http.MethodGet, path, nil, nil)
		assert.Equal(t, "no-cache, no-store, must-revalidate", resp.Header.Get(fiber.HeaderCacheControl), path)
		assert.Equal(t, "0", resp.Header.Get(fiber.HeaderExpires), path)
		assert.Equal(t, "no-cache", resp.Header.Get(fiber.HeaderPragma), path)
	}
}

func TestRegisterLogsIn(t *testing.T) {
	a := setupTestApp(t)
	cookie := a.register(t, "alice")

	resp := a.do(t, http.MethodGet, "/", nil, cookie)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "$10,000.00")
}

func TestRegisterValidation(t *testing.T) {
	a := setupTestApp(t)
	a.register(t, "alice")

	tests := []struct {
		name    string
		form    url.Values
		status  int
		message string
	}{
		{"missing username", url.Values{"password": {"x"}, "confirmation": {"x"}}, fiber.StatusBadRequest, "must provide username"},
		{"mismatch", url.Values{"username": {"bob"}, "password": {"x"}, "confirmation": {"y"}}, fiber.StatusBadRequest, "passwords do not match"},
		{"duplicate", url.Values{"username": {"alice"}, "password": {"x"}, "confirmation": {"x"}}, fiber.StatusConflict, "username already exists"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := a.do(t, http.MethodPost, "/register", tt.form, nil)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Contains(t, readBody(t, resp), tt.message)
		})
	}
}

func TestRegisterFormEndsSession(t *testing.T) {
	a := setupTestApp(t)
	cookie := a.register(t, "alice")
	require.Equal(t, 1, a.sessions.Len())

	resp := a.do(t, http.MethodGet, "/register", nil, cookie)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Zero(t, a.sessions.Len())

	resp = a.do(t, http.MethodGet, "/", nil, cookie)
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get(fiber.HeaderLocation))
}

func TestLoginAndLogout(t *testing.T) {
	a := setupTestApp(t)
	a.register(t, "alice")

	resp := a.do(t, http.MethodPost, "/login", url.Values{"username": {"alice"}, "password": {"wrong"}}, nil)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "invalid username and/or password")

	resp = a.do(t, http.MethodPost, "/login", url.Values{"username": {"alice"}, "password": {"hunter2"}}, nil)
	require.Equal(t, fiber.StatusFound, resp.StatusCode)

	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == cookieName && c.Value != "" {
			cookie = c
		}
	}
	require.NotNil(t, cookie)

	resp = a.do(t, http.MethodGet, "/", nil, cookie)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = a.do(t, http.MethodGet, "/logout", nil, cookie)
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)

	resp = a.do(t, http.MethodGet, "/", nil, cookie)
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get(fiber.HeaderLocation))
}

func TestBuyFlashAndPortfolio(t *testing.T) {
	a := setupTestApp(t)
	cookie := a.register(t, "alice")

	resp := a.do(t, http.MethodPost, "/buy", url.Values{"symbol": {"aapl"}, "shares": {"10"}}, cookie)
	require.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get(fiber.HeaderLocation))

	resp = a.do(t, http.MethodGet, "/", nil, cookie)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body := readBody(t, resp)
	assert.Contains(t, body, "Bought 10 shares of AAPL for $1,500.00")
	assert.Contains(t, body, "$8,500.00")
	assert.Contains(t, body, "Apple Inc.")

	// flash is shown once
	resp = a.do(t, http.MethodGet, "/", nil, cookie)
	assert.NotContains(t, readBody(t, resp), "Bought 10 shares")
}

func TestBuyRejectsBadInput(t *testing.T) {
	a := setupTestApp(t)
	cookie := a.register(t, "alice")

	tests := []struct {
		name    string
		form    url.Values
		status  int
		message string
	}{
		{"missing symbol", url.Values{"shares": {"1"}}, fiber.StatusBadRequest, "must provide symbol"},
		{"non numeric", url.Values{"symbol": {"AAPL"}, "shares": {"abc"}}, fiber.StatusBadRequest, "positive integer"},
		{"fractional", url.Values{"symbol": {"AAPL"}, "shares": {"1.5"}}, fiber.StatusBadRequest, "positive integer"},
		{"zero", url.Values{"symbol": {"AAPL"}, "shares": {"0"}}, fiber.StatusBadRequest, "positive integer"},
		{"unknown symbol", url.Values{"symbol": {"ZZZZ"}, "shares": {"1"}}, fiber.StatusBadRequest, "symbol not found"},
		{"too expensive", url.Values{"symbol": {"AAPL"}, "shares": {"1000"}}, fiber.StatusBadRequest, "insufficient funds"},
		{"over order limit", url.Values{"symbol": {"AAPL"}, "shares": {"1000000001"}}, fiber.StatusBadRequest, "shares per order"},
		{"beyond int64", url.Values{"symbol": {"AAPL"}, "shares": {"9223372036854775808"}}, fiber.StatusBadRequest, "positive integer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := a.do(t, http.MethodPost, "/buy", tt.form, cookie)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Contains(t, readBody(t, resp), tt.message)
		})
	}

	resp := a.do(t, http.MethodGet, "/history", nil, cookie)
	assert.NotContains(t, readBody(t, resp), "AAPL")
}

func TestBuyQuoteUnavailable(t *testing.T) {
	a := setupTestApp(t)
	cookie := a.register(t, "alice")
	a.quotes.Fail("AAPL", domain.ErrQuoteUnavailable)

	resp := a.do(t, http.MethodPost, "/buy", url.Values{"symbol": {"AAPL"}, "shares": {"1"}}, cookie)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}

func TestSellFormListsHeldSymbols(t *testing.T) {
	a := setupTestApp(t)
	cookie := a.register(t, "alice")
	a.quotes.Set("MSFT", "Microsoft Corporation", "400.00")

	for _, symbol := range []string{"AAPL", "MSFT"} {
		resp := a.do(t, http.MethodPost, "/buy", url.Values{"symbol": {symbol}, "shares": {"2"}}, cookie)
		require.Equal(t, fiber.StatusFound, resp.StatusCode)
	}
	resp := a.do(t, http.MethodPost, "/sell", url.Values{"symbol": {"MSFT"}, "shares": {"2"}}, cookie)
	require.Equal(t, fiber.StatusFound, resp.StatusCode)

	resp = a.do(t, http.MethodGet, "/sell", nil, cookie)
	body := readBody(t, resp)
	assert.Contains(t, body, `<option value="AAPL">`)
	assert.NotContains(t, body, `<option value="MSFT">`)

	resp = a.do(t, http.MethodPost, "/sell", url.Values{"symbol": {"AAPL"}, "shares": {"3"}}, cookie)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "insufficient shares")
}

func TestDeposit(t *testing.T) {
	a := setupTestApp(t)
	cookie := a.register(t, "alice")

	resp := a.do(t, http.MethodPost, "/deposit", url.Values{"amount": {"-5"}}, cookie)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp = a.do(t, http.MethodPost, "/deposit", url.Values{"amount": {"250.50"}}, cookie)
	require.Equal(t, fiber.StatusFound, resp.StatusCode)

	resp = a.do(t, http.MethodGet, "/", nil, cookie)
	body := readBody(t, resp)
	assert.Contains(t, body, "Deposited $250.50")
	assert.Contains(t, body, "$10,250.50")
}

func TestDepositLimits(t *testing.T) {
	a := setupTestApp(t)
	cookie := a.register(t, "alice")

	for _, amount := range []string{"100000000000000000000", "1000000000.01"} {
		resp := a.do(t, http.MethodPost, "/deposit", url.Values{"amount": {amount}}, cookie)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode, amount)
		assert.Contains(t, readBody(t, resp), "must not exceed", amount)
	}

	resp := a.do(t, http.MethodPost, "/deposit", url.Values{"amount": {"1000000000"}}, cookie)
	require.Equal(t, fiber.StatusFound, resp.StatusCode)

	resp = a.do(t, http.MethodGet, "/", nil, cookie)
	body := readBody(t, resp)
	assert.Contains(t, body, "Deposited $1,000,000,000.00")
	assert.Contains(t, body, "$1,000,010,000.00")
}

func TestQuote(t *testing.T) {
	a := setupTestApp(t)
	cookie := a.register(t, "alice")

	resp := a.do(t, http.MethodPost, "/quote", url.Values{"symbol": {"aapl"}}, cookie)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "$150.00")

	resp = a.do(t, http.MethodPost, "/quote", url.Values{"symbol": {"nope"}}, cookie)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestHistoryExport(t *testing.T) {
	a := setupTestApp(t)
	cookie := a.register(t, "alice")

	resp := a.do(t, http.MethodPost, "/buy", url.Values{"symbol": {"AAPL"}, "shares": {"1"}}, cookie)
	require.Equal(t, fiber.StatusFound, resp.StatusCode)

	resp = a.do(t, http.MethodGet, "/history/export", nil, cookie)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, report.ContentType, resp.Header.Get(fiber.HeaderContentType))
	assert.Contains(t, resp.Header.Get(fiber.HeaderContentDisposition), "history.xlsx")
}

func TestAPIRequiresSession(t *testing.T) {
	a := setupTestApp(t)

	resp := a.do(t, http.MethodGet, "/api/v1/portfolio", nil, nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	var errResp ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&errResp))
	assert.Equal(t, fiber.StatusUnauthorized, errResp.Code)
}

func TestAPIPortfolioAndQuote(t *testing.T) {
	a := setupTestApp(t)
	cookie := a.register(t, "alice")

	resp := a.do(t, http.MethodPost, "/buy", url.Values{"symbol": {"AAPL"}, "shares": {"10"}}, cookie)
	require.Equal(t, fiber.StatusFound, resp.StatusCode)
	a.quotes.Set("AAPL", "Apple Inc.", "162.35")

	resp = a.do(t, http.MethodGet, "/api/v1/portfolio", nil, cookie)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var p PortfolioResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&p))
	assert.Equal(t, "$10,123.50", p.TotalDisplay)
	require.Len(t, p.Positions, 1)
	assert.Equal(t, int64(10), p.Positions[0].Shares)

	resp = a.do(t, http.MethodGet, "/api/v1/quote/ZZZZ", nil, cookie)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	a.quotes.Fail("AAPL", domain.ErrQuoteUnavailable)
	resp = a.do(t, http.MethodGet, "/api/v1/portfolio", nil, cookie)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}

func TestReadiness(t *testing.T) {
	a := setupTestApp(t)

	resp := a.do(t, http.MethodGet, "/ready", nil, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var health HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "ready", health.Status)
	assert.Equal(t, "healthy", health.Services["database"].Status)
}
