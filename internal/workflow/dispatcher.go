// Package workflow resolves named Step Functions state machines and starts
// executions against them.
package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sfn"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ErrWorkflowNotFound is returned when no state machine matches the configured
// workflow name. Retrying an unresolvable name is futile, so callers should
// abort rather than retry.
var ErrWorkflowNotFound = errors.New("workflow not found")

// SFNAPI is the subset of the Step Functions client the dispatcher uses.
type SFNAPI interface {
	ListStateMachines(ctx context.Context, params *sfn.ListStateMachinesInput, optFns ...func(*sfn.Options)) (*sfn.ListStateMachinesOutput, error)
	StartExecution(ctx context.Context, params *sfn.StartExecutionInput, optFns ...func(*sfn.Options)) (*sfn.StartExecutionOutput, error)
}

// Descriptor is a resolved state machine handle.
type Descriptor struct {
	Name string
	ARN  string
}

// Input is the payload handed to a started execution.
type Input struct {
	ObjectKey  string `json:"objectKey"`
	BucketName string `json:"bucketName"`
}

// Dispatcher resolves workflows by name and starts executions. Descriptors are
// not cached; every invocation re-resolves against the live listing.
type Dispatcher struct {
	client SFNAPI
}

// NewDispatcher creates a Dispatcher backed by the given Step Functions client.
func NewDispatcher(client SFNAPI) *Dispatcher {
	return &Dispatcher{client: client}
}

// Resolve fetches the state machine listing and scans it for an exact name
// match. Only the first page is scanned; with more state machines than one
// page holds, a match beyond it is reported as not found.
func (d *Dispatcher) Resolve(ctx context.Context, name string) (Descriptor, error) {
	result, err := d.client.ListStateMachines(ctx, &sfn.ListStateMachinesInput{})
	if err != nil {
		return Descriptor{}, fmt.Errorf("ListStateMachines: %w", err)
	}

	for _, sm := range result.StateMachines {
		if sm.Name != nil && *sm.Name == name && sm.StateMachineArn != nil {
			log.Debug().
				Str("workflow", name).
				Str("arn", *sm.StateMachineArn).
				Msg("Workflow resolved")
			return Descriptor{Name: name, ARN: *sm.StateMachineArn}, nil
		}
	}

	return Descriptor{}, fmt.Errorf("%w: %q (scanned %d state machines)", ErrWorkflowNotFound, name, len(result.StateMachines))
}

// Start begins an execution of the resolved state machine with the serialized
// input. The execution name is random: starting twice with the same input
// creates two independent executions, so at-most-once dispatch per event is
// the caller's responsibility.
func (d *Dispatcher) Start(ctx context.Context, desc Descriptor, input Input) (string, error) {
	payload, err := json.Marshal(input)
	if err != nil {
		return "", fmt.Errorf("marshal workflow input: %w", err)
	}

	executionName := uuid.NewString()
	result, err := d.client.StartExecution(ctx, &sfn.StartExecutionInput{
		StateMachineArn: aws.String(desc.ARN),
		Input:           aws.String(string(payload)),
		Name:            aws.String(executionName),
	})
	if err != nil {
		return "", fmt.Errorf("StartExecution %s: %w", desc.Name, err)
	}

	executionArn := ""
	if result.ExecutionArn != nil {
		executionArn = *result.ExecutionArn
	}
	log.Info().
		Str("workflow", desc.Name).
		Str("executionArn", executionArn).
		Str("bucket", input.BucketName).
		Str("key", input.ObjectKey).
		Msg("Workflow execution started")

	return executionArn, nil
}
