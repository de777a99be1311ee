package quote

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jeovahfialho/papertrader/internal/config"
	"github.com/jeovahfialho/papertrader/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestServer(t *testing.T, handler http.HandlerFunc) (*Client, *int32) {
	t.Helper()

	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	client := NewClient(&config.Config{
		QuoteAPIURL:    srv.URL,
		QuoteAPIKey:    "test-token",
		QuoteTimeout:   2 * time.Second,
		QuoteRetries:   2,
		QuoteRateLimit: 1000,
		QuoteRateBurst: 10,
	})

	return client, &hits
}

func TestClientLookup(t *testing.T) {
	client, hits := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/stable/stock/AAPL/quote", r.URL.Path)
		assert.Equal(t, "test-token", r.URL.Query().Get("token"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"symbol":"AAPL","companyName":"Apple Inc.","latestPrice":150.12}`))
	})

	q, err := client.Lookup(context.Background(), " aapl ")
	require.NoError(t, err)

	assert.Equal(t, "AAPL", q.Symbol)
	assert.Equal(t, "Apple Inc.", q.Name)
	assert.Equal(t, "150.12", q.Price.String())
	assert.Equal(t, int32(1), atomic.LoadInt32(hits))
}

func TestClientLookupRoundsPriceToStoredScale(t *testing.T) {
	tests := []struct {
		latest string
		want   string
	}{
		{"162.35125", "162.3513"},
		{"33.33333", "33.3333"},
		{"0.00005", "0.0001"},
		{"12", "12"},
	}

	for _, tt := range tests {
		t.Run(tt.latest, func(t *testing.T) {
			client, _ := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"symbol":"XYZ","companyName":"XYZ Corp","latestPrice":` + tt.latest + `}`))
			})

			q, err := client.Lookup(context.Background(), "XYZ")
			require.NoError(t, err)
			assert.Equal(t, tt.want, q.Price.String())
			assert.LessOrEqual(t, -q.Price.Exponent(), domain.PriceScale)
		})
	}
}

func TestClientLookupPriceBelowScale(t *testing.T) {
	client, _ := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"symbol":"XYZ","companyName":"XYZ Corp","latestPrice":0.00004}`))
	})

	_, err := client.Lookup(context.Background(), "XYZ")
	assert.ErrorIs(t, err, domain.ErrQuoteUnavailable)
}

func TestClientLookupUnknownSymbol(t *testing.T) {
	client, hits := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Unknown symbol", http.StatusNotFound)
	})

	_, err := client.Lookup(context.Background(), "ZZZZ")
	assert.ErrorIs(t, err, domain.ErrUnknownSymbol)
	assert.Equal(t, int32(1), atomic.LoadInt32(hits))
}

func TestClientLookupInvalidSymbolSkipsRequest(t *testing.T) {
	client, hits := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("unexpected request")
	})

	for _, symbol := range []string{"", "   ", "AA PL", "$$$", "TOOLONGSYMBOL"} {
		_, err := client.Lookup(context.Background(), symbol)
		assert.ErrorIs(t, err, domain.ErrUnknownSymbol, symbol)
	}
	assert.Zero(t, atomic.LoadInt32(hits))
}

func TestClientLookupRetriesServerErrors(t *testing.T) {
	var calls int32
	client, hits := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"symbol":"MSFT","companyName":"Microsoft Corporation","latestPrice":"410.5"}`))
	})

	q, err := client.Lookup(context.Background(), "MSFT")
	require.NoError(t, err)
	assert.Equal(t, "410.5", q.Price.String())
	assert.Equal(t, int32(3), atomic.LoadInt32(hits))
}

func TestClientLookupUnavailable(t *testing.T) {
	client, hits := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.Lookup(context.Background(), "AAPL")
	assert.ErrorIs(t, err, domain.ErrQuoteUnavailable)
	assert.Equal(t, int32(3), atomic.LoadInt32(hits))
}

func TestClientLookupMissingPrice(t *testing.T) {
	client, _ := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"symbol":"AAPL","companyName":"Apple Inc.","latestPrice":0}`))
	})

	_, err := client.Lookup(context.Background(), "AAPL")
	assert.ErrorIs(t, err, domain.ErrQuoteUnavailable)
}

func TestClientLookupTimeout(t *testing.T) {
	client, _ := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(500 * time.Millisecond):
		}
	})
	client.timeout = 50 * time.Millisecond
	client.retries = 0

	start := time.Now()
	_, err := client.Lookup(context.Background(), "AAPL")

	assert.ErrorIs(t, err, domain.ErrQuoteUnavailable)
	assert.Less(t, time.Since(start), 400*time.Millisecond)
}
