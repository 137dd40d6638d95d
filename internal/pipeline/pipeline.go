// Package pipeline provides the stage executor: a small waterfall runner that
// executes named steps strictly in order, feeding each step's result to the
// next and stopping at the first failure.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// Step is one asynchronous unit of work in a sequential pipeline. Run receives
// the previous step's result (the pipeline's initial value for the first step)
// and returns the value handed to the next step.
type Step struct {
	Name string
	Run  func(ctx context.Context, prev any) (any, error)
}

// StageError reports which step failed. Later steps never ran.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Run executes the steps in order. A step starts only after the previous step
// has returned; on the first error the remaining steps are skipped and a
// *StageError wrapping it is returned. Side effects of steps that already ran
// are not rolled back. On success the last step's result is returned.
//
// A panicking step does not take down the invocation: the panic payload is
// captured and routed through the same failure path as a returned error, so
// callers always observe exactly one terminal outcome.
func Run(ctx context.Context, initial any, steps ...Step) (any, error) {
	value := initial

	for _, step := range steps {
		stepStart := time.Now()
		log.Debug().Str("stage", step.Name).Msg("Stage starting")

		next, err := runStep(ctx, step, value)
		if err != nil {
			log.Error().Err(err).Str("stage", step.Name).Msg("Stage failed — aborting pipeline")
			return nil, &StageError{Stage: step.Name, Err: err}
		}

		log.Debug().
			Str("stage", step.Name).
			Dur("elapsed", time.Since(stepStart)).
			Msg("Stage complete")
		value = next
	}

	return value, nil
}

// runStep invokes a single step, converting panics into errors. Panic payloads
// are arbitrary values, not necessarily errors, hence the %v fallback.
func runStep(ctx context.Context, step Step, prev any) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			if rErr, ok := r.(error); ok {
				err = fmt.Errorf("panic in stage: %w", rErr)
				return
			}
			err = fmt.Errorf("panic in stage: %v", r)
		}
	}()
	return step.Run(ctx, prev)
}
