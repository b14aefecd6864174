package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/layer-3/pulselink/core"
	"github.com/layer-3/pulselink/ports"
)

// AuthService turns proven wallet addresses into application sessions
type AuthService struct {
	tokenizer ports.Tokenizer
	store     ports.Store
	eventPub  ports.EventPublisher
	log       *logrus.Logger

	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewAuthService creates a new authentication service. eventPub may be nil.
func NewAuthService(
	tokenizer ports.Tokenizer,
	store ports.Store,
	eventPub ports.EventPublisher,
	logger *logrus.Logger,
) *AuthService {
	if logger == nil {
		logger = logrus.New()
	}
	return &AuthService{
		tokenizer:  tokenizer,
		store:      store,
		eventPub:   eventPub,
		log:        logger,
		accessTTL:  5 * time.Minute,
		refreshTTL: 5 * 24 * time.Hour, // 5 days
	}
}

// AccessTTL is the lifetime of issued access tokens.
func (s *AuthService) AccessTTL() time.Duration {
	return s.accessTTL
}

// SignInWithWallet issues tokens for an address recovered by the handshake
func (s *AuthService) SignInWithWallet(ctx context.Context, walletAddress string) (string, string, error) {
	address := strings.TrimSpace(walletAddress)
	if address == "" {
		return "", "", core.ErrInvalidAddress
	}

	accessToken, refreshToken, err := s.issue(address, core.ProviderWallet)
	if err != nil {
		return "", "", err
	}

	s.log.WithField("address", address).Info("wallet signed in")
	return accessToken, refreshToken, nil
}

func (s *AuthService) issue(address, provider string) (string, string, error) {
	now := time.Now()
	session := &core.Session{
		ID:            uuid.New().String(),
		Address:       address,
		Provider:      provider,
		IssuedAt:      now,
		RefreshExpiry: now.Add(s.refreshTTL),
		AccessExpiry:  now.Add(s.accessTTL),
		RefreshID:     uuid.New().String(),
	}

	accessToken, err := s.tokenizer.SessionToAccessToken(session)
	if err != nil {
		return "", "", fmt.Errorf("failed to create access token: %w", err)
	}

	refreshToken, err := s.tokenizer.SessionToRefreshToken(session)
	if err != nil {
		return "", "", fmt.Errorf("failed to create refresh token: %w", err)
	}

	return accessToken, refreshToken, nil
}

// Refresh rotates the refresh token and issues new access and refresh tokens
func (s *AuthService) Refresh(ctx context.Context, refreshTokenStr string) (string, string, error) {
	session, err := s.tokenizer.RefreshTokenToSession(refreshTokenStr)
	if err != nil {
		return "", "", fmt.Errorf("invalid refresh token: %w", err)
	}

	if time.Now().After(session.RefreshExpiry) {
		return "", "", core.ErrTokenExpired
	}

	invalidated, err := s.store.IsTokenInvalidated(ctx, session.RefreshID)
	if err != nil {
		return "", "", fmt.Errorf("failed to check token invalidation: %w", err)
	}
	if invalidated {
		return "", "", core.ErrTokenInvalidated
	}

	// The invalidation record only needs to outlive the old token
	if err := s.store.InvalidateToken(ctx, session.RefreshID, time.Until(session.RefreshExpiry)); err != nil {
		return "", "", fmt.Errorf("failed to invalidate old token: %w", err)
	}

	return s.issue(session.Address, session.Provider)
}

// Logout invalidates a refresh token
func (s *AuthService) Logout(ctx context.Context, refreshTokenStr string) error {
	session, err := s.tokenizer.RefreshTokenToSession(refreshTokenStr)
	if err != nil {
		return fmt.Errorf("invalid refresh token: %w", err)
	}

	// Expired tokens still get a record, with a short TTL to cover clock skew
	remainingTime := time.Hour
	if time.Now().Before(session.RefreshExpiry) {
		remainingTime = time.Until(session.RefreshExpiry)
	}

	if err := s.store.InvalidateToken(ctx, session.RefreshID, remainingTime); err != nil {
		return fmt.Errorf("failed to invalidate token: %w", err)
	}

	if s.eventPub != nil {
		if err := s.eventPub.PublishLogout(ctx, session.Address, session.RefreshID); err != nil {
			// The token is already invalidated in the store, which is the critical part
			s.log.WithError(err).Warn("failed to publish logout event")
		}
	}

	return nil
}

func (s *AuthService) ValidateAccessToken(ctx context.Context, accessToken string) (*core.Session, error) {
	session, err := s.tokenizer.AccessTokenToSession(accessToken)
	if err != nil {
		return nil, fmt.Errorf("invalid access token: %w", err)
	}

	if time.Now().After(session.AccessExpiry) {
		return nil, core.ErrTokenExpired
	}

	// Access tokens die with the refresh token they were issued alongside
	if session.RefreshID != "" {
		invalidated, err := s.store.IsTokenInvalidated(ctx, session.RefreshID)
		if err != nil {
			return nil, fmt.Errorf("failed to check token invalidation: %w", err)
		}
		if invalidated {
			return nil, core.ErrTokenInvalidated
		}
	}

	return session, nil
}
