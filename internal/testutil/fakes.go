// Package testutil holds in-memory stand-ins for redis, the quote API and
// the event broker, plus helpers to build a throwaway SQLite store.
package testutil

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jeovahfialho/papertrader/internal/domain"
	"github.com/jeovahfialho/papertrader/internal/session"
	"github.com/jeovahfialho/papertrader/internal/storage/cache"
	"github.com/jeovahfialho/papertrader/internal/storage/sqlite"
	"github.com/shopspring/decimal"
)

func NewSQLiteStore(t testing.TB) *sqlite.Store {
	t.Helper()

	store, err := sqlite.Open(filepath.Join(t.TempDir(), "finance.db"))
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	return store
}

// StaticQuotes is a quote provider backed by a fixed price table.
type StaticQuotes struct {
	mu     sync.Mutex
	quotes map[string]domain.Quote
	errs   map[string]error
	calls  map[string]int
}

func NewStaticQuotes() *StaticQuotes {
	return &StaticQuotes{
		quotes: make(map[string]domain.Quote),
		errs:   make(map[string]error),
		calls:  make(map[string]int),
	}
}

func (s *StaticQuotes) Set(symbol, name, price string) *StaticQuotes {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.quotes[symbol] = domain.Quote{Symbol: symbol, Name: name, Price: decimal.RequireFromString(price)}
	delete(s.errs, symbol)
	return s
}

func (s *StaticQuotes) Fail(symbol string, err error) *StaticQuotes {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.errs[symbol] = err
	return s
}

func (s *StaticQuotes) Calls(symbol string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.calls[symbol]
}

func (s *StaticQuotes) Lookup(_ context.Context, symbol string) (domain.Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls[symbol]++
	if err, ok := s.errs[symbol]; ok {
		return domain.Quote{}, err
	}
	q, ok := s.quotes[symbol]
	if !ok {
		return domain.Quote{}, domain.ErrUnknownSymbol
	}
	return q, nil
}

// MemoryCache mimics cache.RedisCache, JSON encoding included.
type MemoryCache struct {
	mu    sync.Mutex
	items map[string][]byte
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{items: make(map[string][]byte)}
}

func (m *MemoryCache) Get(_ context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, ok := m.items[key]
	if !ok {
		return cache.ErrCacheMiss
	}
	return json.Unmarshal(data, dest)
}

func (m *MemoryCache) Set(_ context.Context, key string, value interface{}, _ ...time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.items[key] = data
	return nil
}

func (m *MemoryCache) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.items)
}

var _ session.Store = (*MemorySessions)(nil)

type MemorySessions struct {
	mu       sync.Mutex
	sessions map[string]session.Session
}

func NewMemorySessions() *MemorySessions {
	return &MemorySessions{sessions: make(map[string]session.Session)}
}

func (m *MemorySessions) Create(_ context.Context, s session.Session) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.NewString()
	m.sessions[id] = s
	return id, nil
}

func (m *MemorySessions) Get(_ context.Context, id string) (session.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return session.Session{}, session.ErrNotFound
	}
	return s, nil
}

func (m *MemorySessions) Save(_ context.Context, id string, s session.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return session.ErrNotFound
	}
	m.sessions[id] = s
	return nil
}

func (m *MemorySessions) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, id)
	return nil
}

func (m *MemorySessions) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.sessions)
}

// RecordingPublisher collects published trades instead of sending them.
type RecordingPublisher struct {
	mu     sync.Mutex
	Trades []domain.Trade
	Err    error
}

func (p *RecordingPublisher) PublishTrade(_ context.Context, trade domain.Trade) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.Err != nil {
		return p.Err
	}
	p.Trades = append(p.Trades, trade)
	return nil
}

func (p *RecordingPublisher) Published() []domain.Trade {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]domain.Trade(nil), p.Trades...)
}

func (p *RecordingPublisher) Close() error {
	return nil
}
