package repository

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/qcom/otpd/internal/config"
	"github.com/sirupsen/logrus"
)

// New builds the backend selected by cfg.Storage. The returned close
// function releases any connection the backend opened.
func New(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (OTPRepository, func() error, error) {
	noop := func() error { return nil }

	if cfg.Storage.Mode == config.StorageModeEphemeral {
		logger.Info("Using session storage for OTPs")
		return NewSessionOTPRepository(logger), noop, nil
	}

	switch cfg.Storage.DurableDriver {
	case config.DriverDynamoDB:
		client, err := NewDynamoDBClient(ctx, &cfg.DynamoDB)
		if err != nil {
			return nil, nil, err
		}
		logger.WithField("table", cfg.DynamoDB.TableName).Info("Using DynamoDB storage for OTPs")
		return NewDynamoOTPRepository(client, cfg.DynamoDB.TableName, logger), noop, nil

	default:
		db, err := OpenDatabase(cfg.Storage.DurableDriver, cfg.Database.DSN)
		if err != nil {
			return nil, nil, err
		}

		repo := NewSQLOTPRepository(db, logger)
		if err := repo.AutoMigrate(); err != nil {
			return nil, nil, fmt.Errorf("migration failed: %w", err)
		}

		sqlDB, err := db.DB()
		if err != nil {
			return nil, nil, err
		}
		logger.WithField("driver", cfg.Storage.DurableDriver).Info("Using database storage for OTPs")
		return repo, sqlDB.Close, nil
	}
}

// NewDynamoDBClient loads AWS configuration, pointing the client at a custom
// endpoint (e.g. DynamoDB Local) when one is configured.
func NewDynamoDBClient(ctx context.Context, cfg *config.DynamoDBConfig) (*dynamodb.Client, error) {
	var awsCfg aws.Config
	var err error

	if cfg.Endpoint != "" {
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(cfg.Region),
			awsconfig.WithEndpointResolverWithOptions(aws.EndpointResolverWithOptionsFunc(
				func(service, region string, options ...interface{}) (aws.Endpoint, error) {
					return aws.Endpoint{
						URL:           cfg.Endpoint,
						SigningRegion: cfg.Region,
					}, nil
				})),
		)
	} else {
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return dynamodb.NewFromConfig(awsCfg), nil
}
