package domain

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
)

type kindedError struct{}

func (kindedError) Error() string            { return "kinded" }
func (kindedError) FailureKind() FailureKind { return FailureResourceExhausted }

// TestKindOfFindsWrappedKinds checks classification through wrapping.
func TestKindOfFindsWrappedKinds(t *testing.T) {
	failure := NewFailure(FailureDownloadFailed, StageDownloading, "download audio", io.ErrUnexpectedEOF)

	tests := []struct {
		name string
		err  error
		want FailureKind
	}{
		{name: "failure", err: failure, want: FailureDownloadFailed},
		{name: "wrapped failure", err: fmt.Errorf("run: %w", failure), want: FailureDownloadFailed},
		{name: "custom classified", err: fmt.Errorf("run: %w", kindedError{}), want: FailureResourceExhausted},
		{name: "plain", err: errors.New("plain"), want: ""},
		{name: "nil", err: nil, want: ""},
	}
	for _, tc := range tests {
		if got := KindOf(tc.err); got != tc.want {
			t.Fatalf("%s: KindOf = %q, want %q", tc.name, got, tc.want)
		}
	}
}

// TestFailureErrorAndUnwrap checks message layout and cause exposure.
func TestFailureErrorAndUnwrap(t *testing.T) {
	failure := NewFailure(FailureDownloadFailed, StageDownloading, "download audio", io.ErrUnexpectedEOF)
	if got := failure.Error(); got != "downloading: download audio: unexpected EOF" {
		t.Fatalf("Error() = %q", got)
	}
	if !errors.Is(failure, io.ErrUnexpectedEOF) {
		t.Fatal("expected errors.Is to reach the cause")
	}

	bare := NewFailure(FailureInvalidURL, StageResolvingURL, "not a YouTube URL", nil)
	if got := bare.Error(); got != "resolving_url: not a YouTube URL" {
		t.Fatalf("Error() = %q", got)
	}
	if bare.Unwrap() != nil {
		t.Fatal("expected nil cause")
	}
}

// TestHintCoversEveryKind checks each failure kind has an actionable hint.
func TestHintCoversEveryKind(t *testing.T) {
	kinds := []FailureKind{
		FailureInvalidURL, FailureVideoUnavailable, FailureNoHostedTranscript,
		FailureDownloadFailed, FailureTranscriptionFailed, FailureResourceExhausted,
	}
	for _, kind := range kinds {
		if Hint(kind) == "" {
			t.Fatalf("no hint for %q", kind)
		}
	}
	if !strings.Contains(Hint(FailureResourceExhausted), "--model") {
		t.Fatalf("resource hint = %q", Hint(FailureResourceExhausted))
	}
	if Hint("") != "" {
		t.Fatal("expected empty hint for unknown kind")
	}
}

// TestParseModelSize checks normalization and rejection of unknown sizes.
func TestParseModelSize(t *testing.T) {
	for _, raw := range []string{"tiny", " Base ", "SMALL", "medium", "large"} {
		if _, err := ParseModelSize(raw); err != nil {
			t.Fatalf("ParseModelSize(%q): %v", raw, err)
		}
	}
	if size, _ := ParseModelSize(" Base "); size != ModelBase {
		t.Fatalf("size = %q, want base", size)
	}
	for _, raw := range []string{"", "huge", "large-v3"} {
		if _, err := ParseModelSize(raw); err == nil {
			t.Fatalf("ParseModelSize(%q) succeeded", raw)
		}
	}
}

// TestSourceKindLabel checks operator-facing source names.
func TestSourceKindLabel(t *testing.T) {
	if SourceHosted.Label() != "YouTube" || SourceLocal.Label() != "Local AI" {
		t.Fatalf("labels = %q, %q", SourceHosted.Label(), SourceLocal.Label())
	}
}

// TestProgressFuncEmitNil checks a nil sink is safe.
func TestProgressFuncEmitNil(t *testing.T) {
	var sink ProgressFunc
	sink.Emit(Progress{Stage: StageDownloading})

	var got []Progress
	sink = func(p Progress) { got = append(got, p) }
	sink.Emit(Progress{Stage: StageTranscribing, Current: 1})
	if len(got) != 1 || got[0].Current != 1 {
		t.Fatalf("got = %+v", got)
	}
}
