// Package store provides DynamoDB persistence for decoded sensor readings.
package store

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog/log"
)

// DynamoAPI is the subset of the DynamoDB client the store uses.
type DynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// Reading is one decoded sensor sample. Timestamp and Value are kept as the
// decimal strings read from the source row; they are written to DynamoDB as
// number attributes without being parsed in between.
type Reading struct {
	SensorID  string `dynamodbav:"sensor_id"`
	Timestamp string `dynamodbav:"-"`
	Value     string `dynamodbav:"-"`
}

// ReadingStore writes readings to a DynamoDB table, one PutItem per reading.
type ReadingStore struct {
	client    DynamoAPI
	tableName string
}

// NewReadingStore creates a ReadingStore for the given table.
// The client should be initialized from the shared AWS config.
func NewReadingStore(client DynamoAPI, tableName string) *ReadingStore {
	return &ReadingStore{
		client:    client,
		tableName: tableName,
	}
}

// PutReading writes a single reading. The struct is marshaled for its string
// attributes, then the numeric attributes are set explicitly — attributevalue
// would encode string fields as S, and timestamp/value must be N.
func (s *ReadingStore) PutReading(ctx context.Context, r Reading) error {
	item, err := attributevalue.MarshalMap(r)
	if err != nil {
		return fmt.Errorf("marshal reading: %w", err)
	}
	item["timestamp"] = &types.AttributeValueMemberN{Value: r.Timestamp}
	item["value"] = &types.AttributeValueMemberN{Value: r.Value}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: &s.tableName,
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("PutItem sensor_id=%s timestamp=%s: %w", r.SensorID, r.Timestamp, err)
	}

	log.Debug().
		Str("sensorId", r.SensorID).
		Str("timestamp", r.Timestamp).
		Str("value", r.Value).
		Msg("Reading persisted to DynamoDB")
	return nil
}
