package config

import (
	"testing"
	"time"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("PASSWORD_SALT", "some-shared-salt")
	t.Setenv("SESSION_SECRET_KEY", "0123456789abcdef0123456789abcdef")
}

func TestFromEnvDefaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv failed: %v", err)
	}

	if cfg.OTP.Length != 6 || cfg.OTP.Alphabet != "0123456789" || cfg.OTP.Lifetime != 120 {
		t.Errorf("unexpected OTP defaults: %+v", cfg.OTP)
	}
	if cfg.Storage.Mode != StorageModeEphemeral {
		t.Errorf("expected ephemeral mode by default, got %q", cfg.Storage.Mode)
	}
	if cfg.Session.Lifetime != 24*time.Hour || cfg.Session.Store != SessionStoreRedis {
		t.Errorf("unexpected session defaults: %+v", cfg.Session)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("PASSWORD_LENGTH", "8")
	t.Setenv("PASSWORD_ALPHABET", "ABCDEF")
	t.Setenv("PASSWORD_LIFETIME", "300")
	t.Setenv("STORAGE_MODE", "DURABLE")
	t.Setenv("DURABLE_DRIVER", "sqlite")
	t.Setenv("DATABASE_DSN", "/tmp/otp.db")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv failed: %v", err)
	}

	if cfg.OTP.Length != 8 || cfg.OTP.Alphabet != "ABCDEF" || cfg.OTP.Lifetime != 300 {
		t.Errorf("overrides not applied: %+v", cfg.OTP)
	}
	if cfg.Storage.Mode != StorageModeDurable || cfg.Storage.DurableDriver != DriverSQLite {
		t.Errorf("unexpected storage config: %+v", cfg.Storage)
	}
}

func TestFromEnvInvalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing salt", map[string]string{"PASSWORD_SALT": ""}},
		{"short salt", map[string]string{"PASSWORD_SALT": "abc"}},
		{"negative length", map[string]string{"PASSWORD_LENGTH": "-1"}},
		{"zero lifetime", map[string]string{"PASSWORD_LIFETIME": "0"}},
		{"non UTF-8 alphabet", map[string]string{"PASSWORD_ALPHABET": "01\xff"}},
		{"unknown mode", map[string]string{"STORAGE_MODE": "cloud"}},
		{"unknown driver", map[string]string{"DURABLE_DRIVER": "oracle"}},
		{"unknown session store", map[string]string{"SESSION_STORE": "file"}},
		{"short session secret", map[string]string{"SESSION_SECRET_KEY": "too-short"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setBaseEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			if _, err := FromEnv(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestSessionSecretOnlyRequiredForEphemeral(t *testing.T) {
	t.Setenv("PASSWORD_SALT", "some-shared-salt")
	t.Setenv("SESSION_SECRET_KEY", "")
	t.Setenv("STORAGE_MODE", "durable")

	if _, err := FromEnv(); err != nil {
		t.Errorf("durable mode should not need a session secret: %v", err)
	}
}
