// Package config holds the process-wide pipeline configuration.
//
// Every tunable the pipeline needs is read from the environment exactly once
// at cold start and carried in an explicit Config value, so each component
// receives its settings at construction time instead of reaching into the
// environment itself.
package config

import (
	"fmt"
	"os"
)

// Environment variable names recognised by Load.
const (
	EnvWorkflowName     = "WORKFLOW_NAME"
	EnvTargetBucket     = "TARGET_BUCKET_NAME"
	EnvReadingsTable    = "READINGS_TABLE_NAME"
	EnvDestinationEmail = "DEST_EMAIL"
	EnvSenderEmail      = "SOURCE_EMAIL"
)

// Config carries the pipeline's external configuration.
type Config struct {
	// WorkflowName is the Step Functions state machine name the dispatch
	// Lambda resolves and starts for each uploaded object.
	WorkflowName string

	// TargetBucket is the bucket processed objects are relocated into.
	TargetBucket string

	// ReadingsTable is the DynamoDB table sensor readings are written to.
	ReadingsTable string

	// DestinationEmail receives the completion notification.
	DestinationEmail string

	// SenderEmail is the verified SES identity notifications are sent from.
	SenderEmail string
}

// Load reads every recognised environment variable. Missing values are not an
// error here; callers validate the subset they actually need.
func Load() Config {
	return Config{
		WorkflowName:     os.Getenv(EnvWorkflowName),
		TargetBucket:     os.Getenv(EnvTargetBucket),
		ReadingsTable:    os.Getenv(EnvReadingsTable),
		DestinationEmail: os.Getenv(EnvDestinationEmail),
		SenderEmail:      os.Getenv(EnvSenderEmail),
	}
}

// RequireDispatch validates the fields the dispatch Lambda needs.
func (c Config) RequireDispatch() error {
	if c.WorkflowName == "" {
		return fmt.Errorf("%s environment variable is required", EnvWorkflowName)
	}
	return nil
}

// RequireProcess validates the fields the processing Lambda needs.
func (c Config) RequireProcess() error {
	for _, f := range []struct {
		envVar string
		value  string
	}{
		{EnvTargetBucket, c.TargetBucket},
		{EnvReadingsTable, c.ReadingsTable},
		{EnvDestinationEmail, c.DestinationEmail},
		{EnvSenderEmail, c.SenderEmail},
	} {
		if f.value == "" {
			return fmt.Errorf("%s environment variable is required", f.envVar)
		}
	}
	return nil
}
