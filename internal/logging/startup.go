package logging

import (
	"os"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// StartupLogger collects Lambda identity, configuration, and AWS resources,
// then emits a single structured zerolog event summarising the cold-start
// state. This makes it easy to see exactly how a Lambda was configured when
// troubleshooting from CloudWatch logs.
type StartupLogger struct {
	name         string
	initDuration time.Duration

	s3Buckets       map[string]string
	dynamoTables    map[string]string
	stateMachines   map[string]string
	emailIdentities map[string]string
	config          map[string]string
}

// NewStartupLogger creates a StartupLogger for the given Lambda name
// (e.g. "dispatch-lambda", "process-lambda").
func NewStartupLogger(name string) *StartupLogger {
	return &StartupLogger{
		name:            name,
		s3Buckets:       make(map[string]string),
		dynamoTables:    make(map[string]string),
		stateMachines:   make(map[string]string),
		emailIdentities: make(map[string]string),
		config:          make(map[string]string),
	}
}

// S3Bucket registers an S3 bucket used by this Lambda.
func (s *StartupLogger) S3Bucket(label, name string) *StartupLogger {
	s.s3Buckets[label] = name
	return s
}

// DynamoTable registers a DynamoDB table used by this Lambda.
func (s *StartupLogger) DynamoTable(label, name string) *StartupLogger {
	s.dynamoTables[label] = name
	return s
}

// StateMachine registers a Step Functions state machine used by this Lambda.
// The workflow name is logged rather than the ARN because the ARN is only
// resolved per invocation.
func (s *StartupLogger) StateMachine(label, name string) *StartupLogger {
	s.stateMachines[label] = name
	return s
}

// EmailIdentity registers an SES identity used by this Lambda.
func (s *StartupLogger) EmailIdentity(label, address string) *StartupLogger {
	s.emailIdentities[label] = address
	return s
}

// Config registers a non-sensitive configuration key-value pair.
func (s *StartupLogger) Config(key, value string) *StartupLogger {
	s.config[key] = value
	return s
}

// InitDuration records how long the init() function took to complete.
func (s *StartupLogger) InitDuration(d time.Duration) *StartupLogger {
	s.initDuration = d
	return s
}

// Log emits a single structured INFO log event with all collected information.
func (s *StartupLogger) Log() {
	evt := log.Info()

	// Lambda identity — auto-collected from the runtime environment.
	evt = evt.Dict("lambda", zerolog.Dict().
		Str("name", s.name).
		Str("functionName", os.Getenv("AWS_LAMBDA_FUNCTION_NAME")).
		Str("version", os.Getenv("AWS_LAMBDA_FUNCTION_VERSION")).
		Str("region", os.Getenv("AWS_REGION")).
		Str("memoryMB", os.Getenv("AWS_LAMBDA_FUNCTION_MEMORY_SIZE")).
		Str("goVersion", runtime.Version()).
		Str("arch", runtime.GOARCH).
		Str("logLevel", os.Getenv("PIPELINE_LOG_LEVEL")))

	// Resources — only non-empty maps are attached.
	resources := zerolog.Dict()
	hasResources := false

	if len(s.s3Buckets) > 0 {
		resources = resources.Dict("s3Buckets", dictFromMap(s.s3Buckets))
		hasResources = true
	}
	if len(s.dynamoTables) > 0 {
		resources = resources.Dict("dynamoTables", dictFromMap(s.dynamoTables))
		hasResources = true
	}
	if len(s.stateMachines) > 0 {
		resources = resources.Dict("stateMachines", dictFromMap(s.stateMachines))
		hasResources = true
	}
	if len(s.emailIdentities) > 0 {
		resources = resources.Dict("emailIdentities", dictFromMap(s.emailIdentities))
		hasResources = true
	}

	if hasResources {
		evt = evt.Dict("resources", resources)
	}

	if len(s.config) > 0 {
		evt = evt.Dict("config", dictFromMap(s.config))
	}

	if s.initDuration > 0 {
		evt = evt.Dur("initDuration", s.initDuration)
	}

	evt.Msg("Lambda cold start complete")
}

// dictFromMap converts a map[string]string into a zerolog.Event (Dict).
func dictFromMap(m map[string]string) *zerolog.Event {
	d := zerolog.Dict()
	for k, v := range m {
		d = d.Str(k, v)
	}
	return d
}
