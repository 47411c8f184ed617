package domain

import (
	"errors"
	"fmt"
)

// Common domain errors raised by the question-answering pipeline.
var (
	// ErrEmptyQuery indicates that a question was blank.
	ErrEmptyQuery = errors.New("empty query")

	// ErrEmptyCorpus indicates that ingestion produced no usable chunks.
	ErrEmptyCorpus = errors.New("no usable text in corpus")

	// ErrEvaluationParse indicates that a grader reply could not be parsed.
	// It is logged and replaced by neutral scores, never returned to callers.
	ErrEvaluationParse = errors.New("evaluation reply could not be parsed")

	// ErrInvalidConfiguration indicates that configuration is invalid or incomplete.
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// Stage names a step of the pipeline state machine.
type Stage string

const (
	StageCheckInput  Stage = "check_input"
	StageRetrieve    Stage = "retrieve"
	StageEvaluate    Stage = "evaluate"
	StageRefine      Stage = "refine"
	StageGenerate    Stage = "generate"
	StageCheckOutput Stage = "check_output"
	StageDone        Stage = "done"
)

// StageError records which pipeline stage failed and at which ladder rung.
type StageError struct {
	// Stage is the step that was running when the error occurred.
	Stage Stage

	// Level is the retrieval rung active at the time.
	Level RetrievalLevel

	// Err is the underlying error.
	Err error
}

// Error implements the error interface for StageError.
func (e *StageError) Error() string {
	return fmt.Sprintf("stage error: stage=%s, level=%s, err=%v", e.Stage, e.Level, e.Err)
}

// Unwrap returns the underlying error.
func (e *StageError) Unwrap() error { return e.Err }

// NewStageError creates a new StageError with the given details.
func NewStageError(stage Stage, level RetrievalLevel, err error) *StageError {
	return &StageError{
		Stage: stage,
		Level: level,
		Err:   err,
	}
}

// ValidationError represents an error that occurred during validation.
// It can contain multiple validation failures.
type ValidationError struct {
	// Entity is the name of the entity that failed validation.
	Entity string

	// Errors contains the list of validation error messages.
	Errors []string
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation error for %s: %s", e.Entity, e.Errors[0])
	}
	return fmt.Sprintf("validation errors for %s: %v", e.Entity, e.Errors)
}

// Is lets errors.Is match ErrInvalidConfiguration.
func (e *ValidationError) Is(target error) bool { return target == ErrInvalidConfiguration }

// AddError adds a new error message to the validation error.
func (e *ValidationError) AddError(msg string) { e.Errors = append(e.Errors, msg) }

// HasErrors returns true if there are any validation errors.
func (e *ValidationError) HasErrors() bool { return len(e.Errors) > 0 }

// NewValidationError creates a new ValidationError for the given entity.
func NewValidationError(entity string) *ValidationError {
	return &ValidationError{
		Entity: entity,
		Errors: make([]string, 0),
	}
}
