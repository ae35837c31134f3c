package repository

import (
	"context"
	"errors"

	"github.com/qcom/otpd/internal/models"
)

var (
	// ErrOTPNotFound is returned by Get when no record exists for the user.
	ErrOTPNotFound = errors.New("otp not found")
	// ErrStorageUnavailable wraps every backend I/O failure.
	ErrStorageUnavailable = errors.New("otp storage unavailable")
)

// OTPRepository stores at most one OTP record per user id.
type OTPRepository interface {
	// Put stores rec for userID, replacing any previous record.
	Put(ctx context.Context, userID int64, rec *models.OTPRecord) error
	// Get returns ErrOTPNotFound when nothing is stored for userID.
	Get(ctx context.Context, userID int64) (*models.OTPRecord, error)
	// Delete removes the record for userID only while it still equals rec
	// (same Value and CreatedAt) and reports whether this call removed it.
	// A record replaced since it was read is left alone, and of several
	// concurrent calls for the same record at most one observes true.
	Delete(ctx context.Context, userID int64, rec *models.OTPRecord) (bool, error)
}
