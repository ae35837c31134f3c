package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/qcom/otpd/internal/models"
	"github.com/sirupsen/logrus"
)

// DynamoDBAPI is the part of *dynamodb.Client the repository uses.
type DynamoDBAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

type DynamoOTPRepository struct {
	client    DynamoDBAPI
	tableName string
	logger    *logrus.Logger
}

func NewDynamoOTPRepository(client DynamoDBAPI, tableName string, logger *logrus.Logger) *DynamoOTPRepository {
	return &DynamoOTPRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

func otpKey(userID int64) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: fmt.Sprintf("OTP#%d", userID)},
		"SK": &types.AttributeValueMemberS{Value: "METADATA"},
	}
}

// Put writes the record; PutItem replaces any existing item with the same key.
func (r *DynamoOTPRepository) Put(ctx context.Context, userID int64, rec *models.OTPRecord) error {
	item := otpKey(userID)
	item["UserID"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(userID, 10)}
	item["Value"] = &types.AttributeValueMemberS{Value: rec.Value}
	item["CreatedAt"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(rec.CreatedAt, 10)}

	_, err := r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	if err != nil {
		r.logger.WithError(err).Error("Failed to store OTP in DynamoDB")
		return fmt.Errorf("%w: failed to store OTP: %w", ErrStorageUnavailable, err)
	}

	return nil
}

func (r *DynamoOTPRepository) Get(ctx context.Context, userID int64) (*models.OTPRecord, error) {
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            otpKey(userID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get OTP: %w", ErrStorageUnavailable, err)
	}

	if len(result.Item) == 0 {
		return nil, ErrOTPNotFound
	}

	var rec models.OTPRecord
	if err := attributevalue.UnmarshalMap(result.Item, &rec); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal OTP data: %w", ErrStorageUnavailable, err)
	}

	return &rec, nil
}

// Delete is conditional on the item still holding the Value and CreatedAt
// that were read; a failed condition means the record was consumed or
// replaced in between.
func (r *DynamoOTPRepository) Delete(ctx context.Context, userID int64, rec *models.OTPRecord) (bool, error) {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 otpKey(userID),
		ConditionExpression: aws.String("#value = :value AND #created_at = :created_at"),
		ExpressionAttributeNames: map[string]string{
			"#value":      "Value",
			"#created_at": "CreatedAt",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":value":      &types.AttributeValueMemberS{Value: rec.Value},
			":created_at": &types.AttributeValueMemberN{Value: strconv.FormatInt(rec.CreatedAt, 10)},
		},
	})
	if err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			return false, nil
		}
		return false, fmt.Errorf("%w: failed to delete OTP: %w", ErrStorageUnavailable, err)
	}

	return true, nil
}
