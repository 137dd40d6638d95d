// Package main provides the Lambda entry point that dispatches uploaded
// objects to the processing workflow.
//
// This Lambda is triggered by S3 ObjectCreated events on the upload bucket.
// For each record it resolves the configured Step Functions state machine by
// name and starts one execution carrying {objectKey, bucketName}.
//
// Memory: 128 MB
// Timeout: 30 seconds
package main

import (
	"context"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog/log"

	"github.com/fpang/sensor-pipeline/internal/config"
	"github.com/fpang/sensor-pipeline/internal/event"
	"github.com/fpang/sensor-pipeline/internal/lambdaboot"
	"github.com/fpang/sensor-pipeline/internal/logging"
	"github.com/fpang/sensor-pipeline/internal/runner"
)

var coldStart = true

// Initialized at cold start.
var dispatch *runner.Dispatch

func init() {
	initStart := time.Now()
	logging.Init()

	cfg := config.Load()
	if err := cfg.RequireDispatch(); err != nil {
		log.Fatal().Err(err).Msg("Invalid dispatch configuration")
	}

	awsCfg := lambdaboot.InitAWS()
	dispatch = runner.NewDispatch(lambdaboot.InitSFN(awsCfg), cfg.WorkflowName)

	lambdaboot.StartupLog("dispatch-lambda", initStart).
		StateMachine("processing", cfg.WorkflowName).
		Log()
}

func main() {
	lambda.Start(handler)
}

// handler starts one workflow execution per uploaded object. Every record is
// attempted; the first failure is reported after the batch so the hosting
// runtime can route the event to its dead-letter path.
func handler(ctx context.Context, s3Event events.S3Event) error {
	if coldStart {
		coldStart = false
		log.Info().Str("function", "dispatch-lambda").Msg("Cold start — first invocation")
	}

	refs, err := event.Refs(s3Event)
	if err != nil {
		log.Error().Err(err).Msg("Rejecting malformed trigger event")
		return err
	}

	var firstErr error
	for _, ref := range refs {
		arn, err := dispatch.Run(ctx, ref)
		if err != nil {
			log.Error().Err(err).Str("bucket", ref.Bucket).Str("key", ref.Key).Msg("Failed to dispatch object")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		log.Info().Str("key", ref.Key).Str("executionArn", arn).Msg("Object dispatched")
	}
	return firstErr
}
