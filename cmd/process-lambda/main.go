// Package main provides the Lambda entry point for per-file sensor data
// processing.
//
// This Lambda is invoked by a Step Functions task state with a flat file
// event. For the referenced object it:
//
//  1. Streams the CSV body into the readings DynamoDB table
//  2. Relocates the object under processed/ in the target bucket
//  3. Emails the completion notification
//
// Memory: 256 MB
// Timeout: 5 minutes
package main

import (
	"context"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog/log"

	"github.com/fpang/sensor-pipeline/internal/config"
	"github.com/fpang/sensor-pipeline/internal/event"
	"github.com/fpang/sensor-pipeline/internal/ingest"
	"github.com/fpang/sensor-pipeline/internal/lambdaboot"
	"github.com/fpang/sensor-pipeline/internal/logging"
	"github.com/fpang/sensor-pipeline/internal/notify"
	"github.com/fpang/sensor-pipeline/internal/relocate"
	"github.com/fpang/sensor-pipeline/internal/runner"
)

var coldStart = true

// Initialized at cold start.
var process *runner.Process

func init() {
	initStart := time.Now()
	logging.Init()

	cfg := config.Load()
	if err := cfg.RequireProcess(); err != nil {
		log.Fatal().Err(err).Msg("Invalid processing configuration")
	}

	awsCfg := lambdaboot.InitAWS()
	s3Client := lambdaboot.InitS3(awsCfg)
	readings := lambdaboot.InitReadings(awsCfg, cfg.ReadingsTable)

	process = runner.NewProcess(
		s3Client,
		ingest.NewIngester(readings, ingest.DefaultWorkers),
		relocate.NewRelocator(s3Client, cfg.TargetBucket),
		notify.NewNotifier(lambdaboot.InitSES(awsCfg), cfg.DestinationEmail, cfg.SenderEmail),
	)

	lambdaboot.StartupLog("process-lambda", initStart).
		S3Bucket("target", cfg.TargetBucket).
		DynamoTable("readings", cfg.ReadingsTable).
		EmailIdentity("destination", cfg.DestinationEmail).
		EmailIdentity("sender", cfg.SenderEmail).
		Log()
}

func main() {
	lambda.Start(handler)
}

// Response is returned to the calling state machine on success.
type Response struct {
	BucketName  string `json:"bucketName"`
	ObjectKey   string `json:"objectKey"`
	NewLocation string `json:"newLocation"`
}

func handler(ctx context.Context, fileEvent event.FileEvent) (Response, error) {
	if coldStart {
		coldStart = false
		log.Info().Str("function", "process-lambda").Msg("Cold start — first invocation")
	}

	ref, err := fileEvent.Ref()
	if err != nil {
		log.Error().Err(err).Msg("Rejecting malformed trigger event")
		return Response{}, err
	}

	moved, err := process.Run(ctx, ref)
	if err != nil {
		log.Error().Err(err).Str("bucket", ref.Bucket).Str("key", ref.Key).Msg("Failed to process file")
		return Response{}, err
	}

	return Response{
		BucketName:  moved.BucketName,
		ObjectKey:   moved.ObjectKey,
		NewLocation: moved.NewLocation,
	}, nil
}
