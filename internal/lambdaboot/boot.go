// Package lambdaboot provides shared Lambda cold-start bootstrap logic.
//
// Both pipeline Lambdas need some subset of: AWS config, S3, DynamoDB, Step
// Functions, SES, and startup logging. This package extracts the common init
// patterns so each Lambda's init() is a short composition of helpers.
package lambdaboot

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sfn"
	"github.com/rs/zerolog/log"

	"github.com/fpang/sensor-pipeline/internal/logging"
	"github.com/fpang/sensor-pipeline/internal/store"
)

// InitAWS loads the default AWS config. Fatals if the chain cannot resolve.
func InitAWS() aws.Config {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load AWS config")
	}
	log.Debug().Str("region", cfg.Region).Msg("AWS config loaded")
	return cfg
}

// InitS3 creates an S3 client from the shared config.
func InitS3(cfg aws.Config) *s3.Client {
	return s3.NewFromConfig(cfg)
}

// InitSFN creates a Step Functions client from the shared config.
func InitSFN(cfg aws.Config) *sfn.Client {
	return sfn.NewFromConfig(cfg)
}

// InitSES creates an SES v2 client from the shared config.
func InitSES(cfg aws.Config) *sesv2.Client {
	return sesv2.NewFromConfig(cfg)
}

// InitReadings creates the readings store. Fatals on an empty table name so a
// misdeployed Lambda fails at cold start, not on first write.
func InitReadings(cfg aws.Config, tableName string) *store.ReadingStore {
	if tableName == "" {
		log.Fatal().Msg("Readings table name is required")
	}
	return store.NewReadingStore(dynamodb.NewFromConfig(cfg), tableName)
}

// StartupLog is a convenience wrapper for the startup logger.
func StartupLog(name string, initStart time.Time) *logging.StartupLogger {
	return logging.NewStartupLogger(name).InitDuration(time.Since(initStart))
}
