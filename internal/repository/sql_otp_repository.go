package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/qcom/otpd/internal/models"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SQLOTPRepository stores records in the one_time_password table, one row
// per user id.
type SQLOTPRepository struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewSQLOTPRepository(db *gorm.DB, logger *logrus.Logger) *SQLOTPRepository {
	return &SQLOTPRepository{
		db:     db,
		logger: logger,
	}
}

func (r *SQLOTPRepository) AutoMigrate() error {
	return r.db.AutoMigrate(&models.OTPRecord{})
}

// Put upserts on the user_id primary key.
func (r *SQLOTPRepository) Put(ctx context.Context, userID int64, rec *models.OTPRecord) error {
	row := models.OTPRecord{
		UserID:    userID,
		Value:     rec.Value,
		CreatedAt: rec.CreatedAt,
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "created_at"}),
	}).Create(&row).Error
	if err != nil {
		r.logger.WithError(err).Error("Failed to store OTP in database")
		return fmt.Errorf("%w: failed to store OTP: %w", ErrStorageUnavailable, err)
	}

	return nil
}

func (r *SQLOTPRepository) Get(ctx context.Context, userID int64) (*models.OTPRecord, error) {
	var rec models.OTPRecord
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOTPNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get OTP: %w", ErrStorageUnavailable, err)
	}

	return &rec, nil
}

// Delete matches on the full row so a record replaced since it was read
// is not removed.
func (r *SQLOTPRepository) Delete(ctx context.Context, userID int64, rec *models.OTPRecord) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND value = ? AND created_at = ?", userID, rec.Value, rec.CreatedAt).
		Delete(&models.OTPRecord{})
	if result.Error != nil {
		return false, fmt.Errorf("%w: failed to delete OTP: %w", ErrStorageUnavailable, result.Error)
	}

	return result.RowsAffected > 0, nil
}
