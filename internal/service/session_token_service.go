package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/qcom/otpd/internal/config"
	"github.com/sirupsen/logrus"
)

var ErrInvalidSessionToken = errors.New("invalid session token")

// SessionTokenService signs and verifies the cookie that carries a caller's
// session id.
type SessionTokenService struct {
	secretKey []byte
	lifetime  time.Duration
	logger    *logrus.Logger
}

func NewSessionTokenService(cfg *config.SessionConfig, logger *logrus.Logger) (*SessionTokenService, error) {
	secretKey := []byte(cfg.SecretKey)
	if len(secretKey) < 32 {
		return nil, fmt.Errorf("secret key must be at least 32 bytes")
	}

	return &SessionTokenService{
		secretKey: secretKey,
		lifetime:  cfg.Lifetime,
		logger:    logger,
	}, nil
}

type SessionClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

func (s *SessionTokenService) Lifetime() time.Duration {
	return s.lifetime
}

// Issue starts a new session and returns its signed token and id.
func (s *SessionTokenService) Issue() (string, string, error) {
	now := time.Now()
	sessionID := uuid.New().String()

	claims := &SessionClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.lifetime)),
			ID:        uuid.New().String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secretKey)
	if err != nil {
		s.logger.WithError(err).Error("Failed to sign session token")
		return "", "", fmt.Errorf("failed to sign session token: %w", err)
	}

	return signed, sessionID, nil
}

func (s *SessionTokenService) Verify(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secretKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSessionToken, err)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid || claims.SessionID == "" {
		return nil, ErrInvalidSessionToken
	}

	if _, err := uuid.Parse(claims.SessionID); err != nil {
		return nil, fmt.Errorf("%w: malformed session id", ErrInvalidSessionToken)
	}

	return claims, nil
}
