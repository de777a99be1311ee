package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jeovahfialho/papertrader/internal/domain"
	"github.com/jeovahfialho/papertrader/internal/storage"
	"github.com/jeovahfialho/papertrader/pkg/logger"
	"github.com/jeovahfialho/papertrader/pkg/metrics"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type AuthService struct {
	store        storage.Store
	startingCash decimal.Decimal
	cost         int
}

func NewAuthService(store storage.Store, startingCash decimal.Decimal) *AuthService {
	return &AuthService{store: store, startingCash: startingCash, cost: bcrypt.DefaultCost}
}

// Register creates an account credited with the starting cash.
func (s *AuthService) Register(ctx context.Context, username, password string) (int64, error) {
	id, err := s.register(ctx, username, password)
	metrics.Registrations.WithLabelValues(metrics.StatusLabel(err)).Inc()
	return id, err
}

func (s *AuthService) register(ctx context.Context, username, password string) (int64, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return 0, domain.NewValidationError("username", "must provide username")
	}
	if password == "" {
		return 0, domain.NewValidationError("password", "must provide password")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return 0, fmt.Errorf("erro ao gerar hash de senha: %w", err)
	}

	id, err := s.store.CreateUser(ctx, username, string(hash), s.startingCash)
	if err != nil {
		return 0, err
	}

	logger.WithContext(ctx).Info("usuário registrado",
		zap.Int64("user_id", id),
		zap.String("username", username))

	return id, nil
}

// Authenticate never reveals whether the username or the password was wrong.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (int64, error) {
	id, err := s.authenticate(ctx, username, password)
	metrics.Logins.WithLabelValues(metrics.StatusLabel(err)).Inc()
	return id, err
}

func (s *AuthService) authenticate(ctx context.Context, username, password string) (int64, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return 0, domain.NewValidationError("username", "must provide username")
	}
	if password == "" {
		return 0, domain.NewValidationError("password", "must provide password")
	}

	user, err := s.store.UserByUsername(ctx, username)
	if errors.Is(err, domain.ErrUserNotFound) {
		return 0, domain.ErrInvalidCredentials
	}
	if err != nil {
		return 0, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return 0, domain.ErrInvalidCredentials
	}

	return user.ID, nil
}
