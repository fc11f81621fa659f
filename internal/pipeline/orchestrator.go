// Package pipeline runs the transcript acquisition state machine: URL
// resolution, hosted transcript lookup, local fallback and formatting.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"yt-transcriber/internal/domain"
	"yt-transcriber/internal/format"
	"yt-transcriber/internal/jobs"
	"yt-transcriber/internal/media"
	"yt-transcriber/internal/transcribe"
	"yt-transcriber/internal/youtube"
)

// HostedFetcher retrieves platform-hosted transcripts.
type HostedFetcher interface {
	Fetch(ctx context.Context, videoID string, langs []string) (youtube.HostedTranscript, error)
}

// MediaDownloader fetches audio into a caller-owned directory.
type MediaDownloader interface {
	Download(ctx context.Context, videoID, dir string, sink domain.ProgressFunc) (*media.Handle, error)
}

// LocalTranscriber runs speech recognition over downloaded media.
type LocalTranscriber interface {
	Transcribe(ctx context.Context, req transcribe.Request) (transcribe.Result, error)
}

// Options are the per-request switches supplied by the CLI shell.
type Options struct {
	IncludeTimestamps bool
	LocalOnly         bool
	AllowFallback     bool
	ModelSize         domain.ModelSize
	Languages         []string
	ASRLanguage       string
}

// Outcome is the rendered transcript of a successful request.
type Outcome struct {
	RequestID string
	VideoID   string
	Text      string
	Result    domain.TranscriptResult
}

// Config wires the orchestrator collaborators.
type Config struct {
	Hosted      HostedFetcher
	Downloader  MediaDownloader
	Transcriber LocalTranscriber
	Events      *jobs.EventBus
	// TempRoot is where per-request media directories are created; empty means os.TempDir.
	TempRoot string
}

// Orchestrator sequences the acquisition stages for one request at a time.
type Orchestrator struct {
	hosted      HostedFetcher
	downloader  MediaDownloader
	transcriber LocalTranscriber
	jobs        *jobs.Manager
	events      *jobs.EventBus
	tempRoot    string
	newID       func() string
	mkdirTemp   func(dir, pattern string) (string, error)
}

// New creates an orchestrator from cfg.
func New(cfg Config) *Orchestrator {
	events := cfg.Events
	if events == nil {
		events = jobs.NewEventBus(0)
	}
	return &Orchestrator{
		hosted:      cfg.Hosted,
		downloader:  cfg.Downloader,
		transcriber: cfg.Transcriber,
		jobs:        jobs.NewManager(),
		events:      events,
		tempRoot:    cfg.TempRoot,
		newID:       uuid.NewString,
		mkdirTemp:   os.MkdirTemp,
	}
}

// Events exposes the bus progress and status events are published to.
func (o *Orchestrator) Events() *jobs.EventBus {
	return o.events
}

// Run acquires and renders the transcript for rawURL. Failures are returned
// as *domain.Failure carrying the kind and the stage that produced them.
func (o *Orchestrator) Run(ctx context.Context, rawURL string, opts Options) (Outcome, error) {
	id := o.newID()
	if err := o.jobs.Start(id); err != nil {
		return Outcome{}, err
	}
	started := time.Now()
	logger := slog.With(slog.String("request_id", id))

	o.enter(logger, id, domain.StageResolvingURL, "resolving URL")
	videoID, err := youtube.ResolveVideoID(rawURL)
	if err != nil {
		return Outcome{}, o.fail(logger, id, ensureFailure(err, domain.FailureInvalidURL, domain.StageResolvingURL, "resolve URL"))
	}
	logger = logger.With(slog.String("video_id", videoID))

	req := domain.TranscriptRequest{
		VideoID:           videoID,
		IncludeTimestamps: opts.IncludeTimestamps,
		LocalOnly:         opts.LocalOnly,
		AllowFallback:     opts.AllowFallback,
		ModelSize:         opts.ModelSize,
		Languages:         opts.Languages,
		ASRLanguage:       opts.ASRLanguage,
	}
	if req.ModelSize == "" {
		req.ModelSize = domain.DefaultModelSize
	}

	result, failure := o.acquire(ctx, logger, id, req)
	if failure != nil {
		return Outcome{}, o.fail(logger, id, failure)
	}

	o.enter(logger, id, domain.StageFormatting, "formatting transcript")
	text := format.Render(result, req.IncludeTimestamps)

	o.enter(logger, id, domain.StageDone, "done")
	o.events.Publish(jobs.Event{
		JobID:    id,
		Type:     jobs.EventTypeResult,
		Stage:    domain.StageDone,
		Source:   result.Source,
		Segments: len(result.Segments),
		Message:  "transcript ready",
	})
	logger.Info("transcript ready",
		slog.String("source", string(result.Source)),
		slog.String("language", result.Language),
		slog.Int("segments", len(result.Segments)),
		slog.Duration("elapsed", time.Since(started).Round(time.Millisecond)))

	return Outcome{RequestID: id, VideoID: videoID, Text: text, Result: result}, nil
}

// acquire applies the strategy order: hosted first unless local-only, and the
// single fallback edge from a hosted miss to local transcription.
func (o *Orchestrator) acquire(ctx context.Context, logger *slog.Logger, id string, req domain.TranscriptRequest) (domain.TranscriptResult, *domain.Failure) {
	if !req.LocalOnly {
		o.enter(logger, id, domain.StageFetchingHosted, "looking for a hosted transcript")
		hosted, err := o.hosted.Fetch(ctx, req.VideoID, req.Languages)
		if err == nil {
			return domain.TranscriptResult{
				Segments: hosted.Segments,
				Source:   domain.SourceHosted,
				Language: hosted.Language,
			}, nil
		}

		if domain.KindOf(err) == domain.FailureVideoUnavailable {
			return domain.TranscriptResult{}, ensureFailure(err, domain.FailureVideoUnavailable, domain.StageFetchingHosted, "fetch hosted transcript")
		}
		miss := ensureFailure(err, domain.FailureNoHostedTranscript, domain.StageFetchingHosted, "fetch hosted transcript")
		if !req.AllowFallback {
			return domain.TranscriptResult{}, miss
		}
		logger.Info("no hosted transcript, falling back to local transcription", slog.String("reason", miss.Error()))
	}

	return o.transcribeLocally(ctx, logger, id, req)
}

func (o *Orchestrator) transcribeLocally(ctx context.Context, logger *slog.Logger, id string, req domain.TranscriptRequest) (domain.TranscriptResult, *domain.Failure) {
	o.enter(logger, id, domain.StageDownloading, "downloading audio")
	dir, err := o.mkdirTemp(o.tempRoot, "yt-transcriber-"+id+"-*")
	if err != nil {
		return domain.TranscriptResult{}, domain.NewFailure(domain.FailureDownloadFailed, domain.StageDownloading, "create temporary media directory", err)
	}

	handle, err := o.downloader.Download(ctx, req.VideoID, dir, o.progressSink(id))
	if err != nil {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			logger.Warn("temporary media cleanup failed", slog.String("dir", dir), slog.Any("error", rmErr))
		}
		if domain.KindOf(err) == domain.FailureVideoUnavailable {
			return domain.TranscriptResult{}, ensureFailure(err, domain.FailureVideoUnavailable, domain.StageDownloading, "download audio")
		}
		return domain.TranscriptResult{}, ensureFailure(err, domain.FailureDownloadFailed, domain.StageDownloading, "download audio")
	}
	logger.Debug("audio downloaded", slog.String("path", handle.Path), slog.Int64("bytes", handle.Bytes))

	o.enter(logger, id, domain.StageTranscribing, "transcribing with the "+string(req.ModelSize)+" model")
	return o.runTranscriber(ctx, logger, id, handle, req)
}

// runTranscriber owns handle for the duration of the transcribing stage and
// releases it on every exit path.
func (o *Orchestrator) runTranscriber(ctx context.Context, logger *slog.Logger, id string, handle *media.Handle, req domain.TranscriptRequest) (domain.TranscriptResult, *domain.Failure) {
	defer func() {
		if err := handle.Release(); err != nil {
			logger.Warn("temporary media cleanup failed", slog.String("dir", handle.Dir), slog.Any("error", err))
		}
	}()

	res, err := o.transcriber.Transcribe(ctx, transcribe.Request{
		MediaPath: handle.Path,
		ModelSize: req.ModelSize,
		Language:  req.ASRLanguage,
		Progress:  o.progressSink(id),
		OnLog: func(log transcribe.CommandLog) {
			o.events.Publish(jobs.Event{
				JobID:    id,
				Type:     jobs.EventTypeLog,
				Stage:    domain.StageTranscribing,
				Command:  log.Command,
				Args:     log.Args,
				ExitCode: log.ExitCode,
				Stderr:   tail(log.Stderr, 2048),
			})
		},
	})
	if err != nil {
		if domain.KindOf(err) == domain.FailureResourceExhausted {
			return domain.TranscriptResult{}, ensureFailure(err, domain.FailureResourceExhausted, domain.StageTranscribing, "local transcription")
		}
		return domain.TranscriptResult{}, ensureFailure(err, domain.FailureTranscriptionFailed, domain.StageTranscribing, "local transcription")
	}

	return domain.TranscriptResult{
		Segments: res.Segments,
		Source:   domain.SourceLocal,
		Language: res.Language,
	}, nil
}

func (o *Orchestrator) progressSink(id string) domain.ProgressFunc {
	return func(p domain.Progress) {
		o.events.Publish(jobs.ProgressEvent(id, p))
	}
}

// enter moves the request to stage and announces it.
func (o *Orchestrator) enter(logger *slog.Logger, id string, stage domain.Stage, message string) {
	if err := o.jobs.Transition(stage); err != nil {
		logger.Error("stage transition rejected", slog.String("stage", string(stage)), slog.Any("error", err))
		return
	}
	logger.Debug("stage", slog.String("stage", string(stage)))
	o.events.Publish(jobs.Event{JobID: id, Type: jobs.EventTypeStatus, Stage: stage, Message: message})
}

func (o *Orchestrator) fail(logger *slog.Logger, id string, failure *domain.Failure) error {
	o.enter(logger, id, domain.StageFailed, failure.Message)
	o.events.Publish(jobs.Event{
		JobID:   id,
		Type:    jobs.EventTypeError,
		Stage:   failure.Stage,
		Kind:    failure.Kind,
		Message: failure.Error(),
	})
	logger.Debug("request failed",
		slog.String("kind", string(failure.Kind)),
		slog.String("stage", string(failure.Stage)),
		slog.Any("error", failure.Err))
	return failure
}

// ensureFailure returns err as a failure of kind, wrapping it when it is not
// already one.
func ensureFailure(err error, kind domain.FailureKind, stage domain.Stage, message string) *domain.Failure {
	var f *domain.Failure
	if errors.As(err, &f) && f.Kind == kind {
		return f
	}
	return domain.NewFailure(kind, stage, message, err)
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
