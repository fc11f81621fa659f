package domain

import (
	"errors"
	"fmt"
)

// FailureKind classifies terminal acquisition failures.
type FailureKind string

const (
	FailureInvalidURL          FailureKind = "invalid_url"
	FailureVideoUnavailable    FailureKind = "video_unavailable"
	FailureNoHostedTranscript  FailureKind = "no_hosted_transcript"
	FailureDownloadFailed      FailureKind = "download_failed"
	FailureTranscriptionFailed FailureKind = "transcription_failed"
	FailureResourceExhausted   FailureKind = "resource_exhausted"
)

// Failure is a stage-aware acquisition error with its classification.
type Failure struct {
	Kind    FailureKind
	Stage   Stage
	Message string
	Err     error
}

// NewFailure builds a failure wrapping an optional cause.
func NewFailure(kind FailureKind, stage Stage, message string, err error) *Failure {
	return &Failure{Kind: kind, Stage: stage, Message: message, Err: err}
}

// Error formats the failure for logs and the CLI.
func (f *Failure) Error() string {
	if f == nil {
		return ""
	}
	if f.Err == nil {
		return fmt.Sprintf("%s: %s", f.Stage, f.Message)
	}
	return fmt.Sprintf("%s: %s: %v", f.Stage, f.Message, f.Err)
}

// Unwrap exposes the underlying cause for errors.Is / errors.As.
func (f *Failure) Unwrap() error {
	if f == nil {
		return nil
	}
	return f.Err
}

// FailureKind lets Failure satisfy the classifier interface used by KindOf.
func (f *Failure) FailureKind() FailureKind {
	return f.Kind
}

// classified is implemented by every component error that carries a kind.
type classified interface {
	FailureKind() FailureKind
}

// KindOf returns the first failure kind found in err's chain, or "".
func KindOf(err error) FailureKind {
	var c classified
	if errors.As(err, &c) {
		return c.FailureKind()
	}
	return ""
}

// Hint returns a one-line actionable suggestion for a failure kind.
func Hint(kind FailureKind) string {
	switch kind {
	case FailureInvalidURL:
		return "pass a youtube.com/watch?v=, youtu.be/ or youtube.com/embed/ URL"
	case FailureVideoUnavailable:
		return "the video is private, deleted or region-restricted; local transcription cannot help"
	case FailureNoHostedTranscript:
		return "no hosted transcript; re-run without --no-local to use local AI transcription"
	case FailureDownloadFailed:
		return "audio download failed; check your network connection and try again"
	case FailureTranscriptionFailed:
		return "local transcription failed; run `yt-transcriber doctor` to check ffmpeg and whisper.cpp"
	case FailureResourceExhausted:
		return "not enough memory for this model; try a smaller --model (e.g. base or tiny)"
	default:
		return ""
	}
}
