package transcribe

import (
	"fmt"

	"yt-transcriber/internal/domain"
)

// Pipeline stages reported in PipelineError.Stage.
const (
	stageModel         = "model"
	stagePreprocessing = "preprocessing"
	stageTranscribing  = "transcribing"
	stageParsing       = "parsing"
)

// CommandLog captures one external command invocation result.
type CommandLog struct {
	Command  string   `json:"command"`
	Args     []string `json:"args"`
	ExitCode int      `json:"exitCode"`
	Stdout   string   `json:"stdout"`
	Stderr   string   `json:"stderr"`
}

// PipelineError is a stage-aware error with optional command context.
type PipelineError struct {
	Stage      string             `json:"stage"`
	Kind       domain.FailureKind `json:"kind"`
	Message    string             `json:"message"`
	CommandLog CommandLog         `json:"commandLog"`
	Err        error              `json:"-"`
}

// Error formats pipeline failures for logs and the CLI.
func (e *PipelineError) Error() string {
	if e == nil {
		return ""
	}
	if e.CommandLog.Command == "" {
		if e.Err != nil {
			return fmt.Sprintf("%s: %s: %v", e.Stage, e.Message, e.Err)
		}
		return fmt.Sprintf("%s: %s", e.Stage, e.Message)
	}

	return fmt.Sprintf(
		"%s: %s (cmd=%s exit=%d)",
		e.Stage,
		e.Message,
		e.CommandLog.Command,
		e.CommandLog.ExitCode,
	)
}

// Unwrap exposes underlying error for errors.Is / errors.As.
func (e *PipelineError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// FailureKind classifies the error; unset kinds count as transcription failures.
func (e *PipelineError) FailureKind() domain.FailureKind {
	if e == nil || e.Kind == "" {
		return domain.FailureTranscriptionFailed
	}
	return e.Kind
}
