// Package runner assembles the two pipeline entry points from their stages so
// the Lambda handlers and the local CLI share one implementation.
package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"

	"github.com/fpang/sensor-pipeline/internal/event"
	"github.com/fpang/sensor-pipeline/internal/ingest"
	"github.com/fpang/sensor-pipeline/internal/metrics"
	"github.com/fpang/sensor-pipeline/internal/notify"
	"github.com/fpang/sensor-pipeline/internal/pipeline"
	"github.com/fpang/sensor-pipeline/internal/relocate"
	"github.com/fpang/sensor-pipeline/internal/workflow"
)

// Dispatch runs the upload entry point: resolve the configured workflow by
// name, then start one execution per uploaded object.
type Dispatch struct {
	dispatcher   *workflow.Dispatcher
	workflowName string
}

// NewDispatch creates the dispatch pipeline for the given workflow name.
func NewDispatch(client workflow.SFNAPI, workflowName string) *Dispatch {
	return &Dispatch{
		dispatcher:   workflow.NewDispatcher(client),
		workflowName: workflowName,
	}
}

// dispatchState carries the resolved descriptor between the two stages.
type dispatchState struct {
	ref  event.ObjectRef
	desc workflow.Descriptor
}

// Run executes [resolve → start] for one object and returns the execution ARN.
func (d *Dispatch) Run(ctx context.Context, ref event.ObjectRef) (string, error) {
	runStart := time.Now()

	result, err := pipeline.Run(ctx, ref,
		pipeline.Step{Name: "resolve-workflow", Run: func(ctx context.Context, prev any) (any, error) {
			ref := prev.(event.ObjectRef)
			desc, err := d.dispatcher.Resolve(ctx, d.workflowName)
			if err != nil {
				return nil, err
			}
			return dispatchState{ref: ref, desc: desc}, nil
		}},
		pipeline.Step{Name: "start-execution", Run: func(ctx context.Context, prev any) (any, error) {
			state := prev.(dispatchState)
			return d.dispatcher.Start(ctx, state.desc, workflow.Input{
				ObjectKey:  state.ref.Key,
				BucketName: state.ref.Bucket,
			})
		}},
	)
	if err != nil {
		metrics.New().
			Dimension("Operation", "dispatch").
			Count("DispatchErrors").
			Property("objectKey", ref.Key).
			Flush()
		return "", err
	}

	metrics.New().
		Dimension("Operation", "dispatch").
		Count("ExecutionsStarted").
		Metric("DispatchMs", float64(time.Since(runStart).Milliseconds()), metrics.UnitMilliseconds).
		Property("objectKey", ref.Key).
		Flush()

	return result.(string), nil
}

// S3GetAPI is the subset of the S3 client used to open the object stream.
type S3GetAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Process runs the processing entry point: stream the object's rows into the
// readings table, relocate the object, and send the notification.
type Process struct {
	s3        S3GetAPI
	ingester  *ingest.Ingester
	relocator *relocate.Relocator
	notifier  *notify.Notifier
}

// NewProcess wires the processing pipeline's stages.
func NewProcess(s3Client S3GetAPI, ingester *ingest.Ingester, relocator *relocate.Relocator, notifier *notify.Notifier) *Process {
	return &Process{
		s3:        s3Client,
		ingester:  ingester,
		relocator: relocator,
		notifier:  notifier,
	}
}

// ingestState carries the ingest summary alongside the object reference.
type ingestState struct {
	ref  event.ObjectRef
	rows ingest.Result
}

// Run executes [ingest → relocate → notify] for one object. Earlier stages'
// side effects stand when a later stage fails: rows already written stay
// written, and a half-finished move is reported through the stage error.
func (p *Process) Run(ctx context.Context, ref event.ObjectRef) (relocate.Result, error) {
	runStart := time.Now()
	var rows ingest.Result

	result, err := pipeline.Run(ctx, ref,
		pipeline.Step{Name: "ingest-readings", Run: func(ctx context.Context, prev any) (any, error) {
			ref := prev.(event.ObjectRef)
			obj, err := p.s3.GetObject(ctx, &s3.GetObjectInput{
				Bucket: aws.String(ref.Bucket),
				Key:    aws.String(ref.Key),
			})
			if err != nil {
				return nil, fmt.Errorf("S3 GetObject %s/%s: %w", ref.Bucket, ref.Key, err)
			}
			defer obj.Body.Close()

			ingested, err := p.ingester.Ingest(ctx, obj.Body)
			rows = ingested
			if err != nil {
				return nil, err
			}
			return ingestState{ref: ref, rows: ingested}, nil
		}},
		pipeline.Step{Name: "relocate-object", Run: func(ctx context.Context, prev any) (any, error) {
			state := prev.(ingestState)
			moved, err := p.relocator.Move(ctx, state.ref.Bucket, state.ref.Key)
			if err != nil {
				return nil, err
			}
			return moved, nil
		}},
		pipeline.Step{Name: "send-notification", Run: func(ctx context.Context, prev any) (any, error) {
			moved := prev.(relocate.Result)
			if err := p.notifier.FileProcessed(ctx, moved.ObjectKey, moved.NewLocation); err != nil {
				return nil, err
			}
			return moved, nil
		}},
	)

	elapsed := time.Since(runStart)
	rec := metrics.New().
		Dimension("Operation", "process").
		Metric("ProcessMs", float64(elapsed.Milliseconds()), metrics.UnitMilliseconds).
		Metric("RowsWritten", float64(rows.RowsWritten), metrics.UnitCount).
		Property("bucket", ref.Bucket).
		Property("objectKey", ref.Key)

	if err != nil {
		rec.Count("ProcessErrors").Flush()
		return relocate.Result{}, err
	}
	rec.Count("FilesProcessed").Flush()

	moved := result.(relocate.Result)
	log.Info().
		Str("key", ref.Key).
		Str("newLocation", moved.NewLocation).
		Int("rowsWritten", rows.RowsWritten).
		Dur("elapsed", elapsed).
		Msg("File pipeline complete")

	return moved, nil
}
