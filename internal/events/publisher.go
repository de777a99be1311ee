// Package events announces committed trades to the rest of the platform.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/jeovahfialho/papertrader/internal/domain"
	"github.com/jeovahfialho/papertrader/pkg/logger"
	"github.com/jeovahfialho/papertrader/pkg/metrics"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const TypeTradeExecuted = "trade.executed"

type Publisher interface {
	PublishTrade(ctx context.Context, trade domain.Trade) error
	Close() error
}

type TradeExecuted struct {
	Type      string          `json:"type"`
	TradeID   int64           `json:"trade_id"`
	UserID    int64           `json:"user_id"`
	Symbol    string          `json:"symbol"`
	Side      domain.Side     `json:"side"`
	Shares    int64           `json:"shares"`
	Price     decimal.Decimal `json:"price"`
	Amount    decimal.Decimal `json:"amount"`
	Timestamp time.Time       `json:"timestamp"`
}

func NewTradeExecuted(trade domain.Trade) TradeExecuted {
	return TradeExecuted{
		Type:      TypeTradeExecuted,
		TradeID:   trade.ID,
		UserID:    trade.UserID,
		Symbol:    trade.Symbol,
		Side:      trade.Side(),
		Shares:    trade.Shares,
		Price:     trade.Price,
		Amount:    trade.Amount(),
		Timestamp: trade.Timestamp,
	}
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

var _ Publisher = (*KafkaPublisher)(nil)

type KafkaPublisher struct {
	writer messageWriter
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 10 * time.Millisecond,
			RequiredAcks: kafka.RequireOne,
		},
	}
}

func (p *KafkaPublisher) PublishTrade(ctx context.Context, trade domain.Trade) error {
	payload, err := json.Marshal(NewTradeExecuted(trade))
	if err != nil {
		return fmt.Errorf("erro ao serializar evento: %w", err)
	}

	// keyed by user so one user's trades stay ordered within a partition
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatInt(trade.UserID, 10)),
		Value: payload,
	})
	metrics.EventsPublished.WithLabelValues(metrics.StatusLabel(err)).Inc()
	if err != nil {
		return fmt.Errorf("erro ao publicar evento: %w", err)
	}

	logger.WithContext(ctx).Debug("evento publicado",
		zap.Int64("trade_id", trade.ID),
		zap.String("symbol", trade.Symbol))

	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishTrade(context.Context, domain.Trade) error { return nil }

func (NopPublisher) Close() error { return nil }

func New(brokers []string, topic string) Publisher {
	if len(brokers) == 0 {
		return NopPublisher{}
	}
	return NewKafkaPublisher(brokers, topic)
}
