package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/qcom/otpd/internal/config"
	"github.com/qcom/otpd/internal/models"
	"github.com/qcom/otpd/internal/repository"
	"github.com/sirupsen/logrus"
)

// ErrGenerationFailure is the only error Create returns to callers; the
// underlying cause stays in the chain for logging.
var ErrGenerationFailure = errors.New("failed to create one-time password")

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

// OTPService issues and validates one-time passwords. It holds no record
// state of its own; everything lives in the repository.
type OTPService struct {
	repo      repository.OTPRepository
	cfg       config.OTPConfig
	generator PasswordGenerator
	hasher    PasswordHasher
	clock     Clock
	logger    *logrus.Logger
}

type Option func(*OTPService)

func WithClock(c Clock) Option {
	return func(s *OTPService) { s.clock = c }
}

func WithGenerator(g PasswordGenerator) Option {
	return func(s *OTPService) { s.generator = g }
}

func WithHasher(h PasswordHasher) Option {
	return func(s *OTPService) { s.hasher = h }
}

func NewOTPService(repo repository.OTPRepository, cfg *config.OTPConfig, logger *logrus.Logger, opts ...Option) *OTPService {
	s := &OTPService{
		repo:      repo,
		cfg:       *cfg,
		generator: NewGenerator(),
		hasher:    NewArgon2Hasher(cfg.Salt),
		clock:     systemClock{},
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create issues a new password for userID, replacing any outstanding one.
// The plaintext is returned once and never stored.
func (s *OTPService) Create(ctx context.Context, userID int64) (string, error) {
	password, err := s.generator.Generate(s.cfg.Length, s.cfg.Alphabet)
	if err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Error("Failed to generate OTP")
		return "", fmt.Errorf("%w: %w", ErrGenerationFailure, err)
	}

	rec := &models.OTPRecord{
		UserID:    userID,
		Value:     s.hasher.Hash(password),
		CreatedAt: s.clock.Now().Unix(),
	}

	if err := s.repo.Put(ctx, userID, rec); err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Error("Failed to store OTP")
		return "", fmt.Errorf("%w: %w", ErrGenerationFailure, err)
	}

	s.logger.WithField("user_id", userID).Debug("OTP created")
	return password, nil
}

// Validate reports whether candidate is the outstanding password for userID
// and consumes it if so. Absent, expired and mismatched passwords all yield
// false. A record is valid up to and including createdAt+lifetime; an
// expired one is purged on access, a mismatch leaves it in place. Only the
// record that was read is ever deleted, so a password issued in between
// survives.
func (s *OTPService) Validate(ctx context.Context, userID int64, candidate string) bool {
	log := s.logger.WithField("user_id", userID)

	// Hash first so an unknown user costs the same as a known one.
	candidateHash := s.hasher.Hash(candidate)

	rec, err := s.repo.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, repository.ErrOTPNotFound) {
			log.WithError(err).Warn("Failed to read OTP")
		}
		return false
	}

	now := s.clock.Now().Unix()
	expiresAt := rec.ExpiresAt(s.cfg.Lifetime)

	if expiresAt >= now && s.hasher.Equal(rec.Value, candidateHash) {
		consumed, err := s.repo.Delete(ctx, userID, rec)
		if err != nil {
			log.WithError(err).Warn("Failed to consume OTP")
			return false
		}
		if !consumed {
			log.Debug("OTP consumed or replaced by a concurrent request")
		}
		return consumed
	}

	if expiresAt <= now {
		if _, err := s.repo.Delete(ctx, userID, rec); err != nil {
			log.WithError(err).Warn("Failed to purge expired OTP")
		} else {
			log.Debug("Expired OTP purged")
		}
	}

	return false
}
