package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/qcom/otpd/internal/models"
	"github.com/qcom/otpd/internal/session"
	"github.com/sirupsen/logrus"
)

// SessionOTPRepository keeps OTP records in the caller's session, which it
// takes from the request context. A record is only visible to the session
// that stored it.
type SessionOTPRepository struct {
	logger *logrus.Logger
}

func NewSessionOTPRepository(logger *logrus.Logger) *SessionOTPRepository {
	return &SessionOTPRepository{logger: logger}
}

func sessionKey(userID int64) string {
	return fmt.Sprintf("otp-%d", userID)
}

func encodeRecord(userID int64, rec *models.OTPRecord) ([]byte, error) {
	stored := *rec
	stored.UserID = userID
	return json.Marshal(stored)
}

func (r *SessionOTPRepository) Put(ctx context.Context, userID int64, rec *models.OTPRecord) error {
	s, ok := session.FromContext(ctx)
	if !ok {
		return fmt.Errorf("%w: no session bound to request", ErrStorageUnavailable)
	}

	data, err := encodeRecord(userID, rec)
	if err != nil {
		return fmt.Errorf("%w: failed to marshal OTP record: %w", ErrStorageUnavailable, err)
	}

	if err := s.Set(ctx, sessionKey(userID), data); err != nil {
		r.logger.WithError(err).Error("Failed to store OTP in session")
		return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	return nil
}

func (r *SessionOTPRepository) Get(ctx context.Context, userID int64) (*models.OTPRecord, error) {
	s, ok := session.FromContext(ctx)
	if !ok {
		return nil, ErrOTPNotFound
	}

	data, err := s.Get(ctx, sessionKey(userID))
	if errors.Is(err, session.ErrKeyNotFound) {
		return nil, ErrOTPNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	var rec models.OTPRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal OTP record: %w", ErrStorageUnavailable, err)
	}

	return &rec, nil
}

// Delete compares against the encoded form Put writes; encoding a record
// is deterministic, so an unchanged record matches byte for byte.
func (r *SessionOTPRepository) Delete(ctx context.Context, userID int64, rec *models.OTPRecord) (bool, error) {
	s, ok := session.FromContext(ctx)
	if !ok {
		return false, nil
	}

	expected, err := encodeRecord(userID, rec)
	if err != nil {
		return false, fmt.Errorf("%w: failed to marshal OTP record: %w", ErrStorageUnavailable, err)
	}

	removed, err := s.CompareAndDelete(ctx, sessionKey(userID), expected)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	return removed, nil
}
