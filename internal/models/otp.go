package models

// OTPRecord is the stored half of a one-time password. Value holds the
// salted hash, never the plaintext.
type OTPRecord struct {
	UserID    int64  `json:"user_id" dynamodbav:"UserID" gorm:"column:user_id;primaryKey;autoIncrement:false"`
	Value     string `json:"value" dynamodbav:"Value" gorm:"column:value;type:varchar(255);not null"`
	CreatedAt int64  `json:"created_at" dynamodbav:"CreatedAt" gorm:"column:created_at;not null"`
}

func (OTPRecord) TableName() string {
	return "one_time_password"
}

// ExpiresAt is the last Unix second at which the record is still valid.
func (r *OTPRecord) ExpiresAt(lifetime int64) int64 {
	return r.CreatedAt + lifetime
}
