package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	StorageModeEphemeral = "ephemeral"
	StorageModeDurable   = "durable"

	DriverDynamoDB = "dynamodb"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	SessionStoreRedis  = "redis"
	SessionStoreMemory = "memory"
)

type Config struct {
	Server   ServerConfig
	Log      LogConfig
	OTP      OTPConfig
	Storage  StorageConfig
	DynamoDB DynamoDBConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Session  SessionConfig
}

type ServerConfig struct {
	Port         string        `validate:"required,numeric"`
	ReadTimeout  time.Duration `validate:"gt=0"`
	WriteTimeout time.Duration `validate:"gt=0"`
}

type LogConfig struct {
	Level string `validate:"oneof=trace debug info warn warning error fatal panic"`
}

// OTPConfig is the password policy handed to the OTP service at construction.
type OTPConfig struct {
	Length   int    `validate:"gt=0"`
	Alphabet string `validate:"required"`
	Salt     string `validate:"required,min=8"`
	Lifetime int64  `validate:"gt=0"` // seconds
}

type StorageConfig struct {
	Mode          string `validate:"oneof=ephemeral durable"`
	DurableDriver string `validate:"oneof=dynamodb postgres sqlite"`
}

type DynamoDBConfig struct {
	Endpoint  string
	Region    string `validate:"required"`
	TableName string `validate:"required"`
}

type DatabaseConfig struct {
	DSN string
}

type RedisConfig struct {
	Endpoint string `validate:"required"`
	Password string
	DB       int `validate:"gte=0"`
}

type SessionConfig struct {
	Store      string        `validate:"oneof=redis memory"`
	SecretKey  string
	Lifetime   time.Duration `validate:"gt=0"`
	CookieName string        `validate:"required"`
}

var validate = validator.New()

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	// A missing .env is fine; the environment may be set directly.
	_ = godotenv.Load()

	return FromEnv()
}

// FromEnv builds the configuration from the process environment only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
		},
		Log: LogConfig{
			Level: strings.ToLower(getEnv("LOG_LEVEL", "info")),
		},
		OTP: OTPConfig{
			Length:   getEnvAsInt("PASSWORD_LENGTH", 6),
			Alphabet: getEnv("PASSWORD_ALPHABET", "0123456789"),
			Salt:     getEnv("PASSWORD_SALT", ""),
			Lifetime: int64(getEnvAsInt("PASSWORD_LIFETIME", 120)),
		},
		Storage: StorageConfig{
			Mode:          strings.ToLower(getEnv("STORAGE_MODE", StorageModeEphemeral)),
			DurableDriver: strings.ToLower(getEnv("DURABLE_DRIVER", DriverDynamoDB)),
		},
		DynamoDB: DynamoDBConfig{
			Endpoint:  getEnv("DYNAMODB_ENDPOINT", ""),
			Region:    getEnv("DYNAMODB_REGION", "us-east-1"),
			TableName: getEnv("DYNAMODB_TABLE_NAME", "OTPTable"),
		},
		Database: DatabaseConfig{
			DSN: getEnv("DATABASE_DSN", "otp.db"),
		},
		Redis: RedisConfig{
			Endpoint: getEnv("REDIS_ENDPOINT", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Session: SessionConfig{
			Store:      strings.ToLower(getEnv("SESSION_STORE", SessionStoreRedis)),
			SecretKey:  getEnv("SESSION_SECRET_KEY", ""),
			Lifetime:   getEnvAsDuration("SESSION_LIFETIME", 24*time.Hour),
			CookieName: getEnv("SESSION_COOKIE_NAME", "OTPSESSID"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks every section of the configuration.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if !utf8.ValidString(c.OTP.Alphabet) {
		return fmt.Errorf("PASSWORD_ALPHABET must be valid UTF-8")
	}

	if c.Storage.Mode == StorageModeDurable && c.Storage.DurableDriver != DriverDynamoDB && c.Database.DSN == "" {
		return fmt.Errorf("DATABASE_DSN is required for the %s driver", c.Storage.DurableDriver)
	}

	if c.Storage.Mode == StorageModeEphemeral && len(c.Session.SecretKey) < 32 {
		return fmt.Errorf("SESSION_SECRET_KEY must be at least 32 bytes (256 bits)")
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
