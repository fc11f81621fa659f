// Package bootstrap wires configuration, the acquisition pipeline and the
// command-line shell.
package bootstrap

import (
	"context"
	"fmt"
	"net/http"

	"yt-transcriber/internal/config"
	"yt-transcriber/internal/diagnostics"
	"yt-transcriber/internal/domain"
	"yt-transcriber/internal/jobs"
	"yt-transcriber/internal/media"
	"yt-transcriber/internal/pipeline"
	"yt-transcriber/internal/transcribe"
	"yt-transcriber/internal/youtube"
)

// App wires configuration, the orchestrator and diagnostics for one CLI invocation.
type App struct {
	Settings domain.Settings
	Store    config.Store
	Pipeline pipelineRunner
	Models   modelLister
	Checker  diagnosticsRunner
	Events   *jobs.EventBus
}

// pipelineRunner isolates the orchestrator behind an interface.
type pipelineRunner interface {
	Run(ctx context.Context, rawURL string, opts pipeline.Options) (pipeline.Outcome, error)
}

// modelLister reports the whisper model catalog and its cache location.
type modelLister interface {
	Models() []domain.WhisperModelOption
	Dir() string
}

// diagnosticsRunner checks local transcription prerequisites.
type diagnosticsRunner interface {
	Run(settings domain.Settings) domain.DiagnosticReport
}

// New loads settings from configPath (the default location when empty),
// applies environment overrides and builds the production collaborators.
func New(configPath string) (*App, error) {
	if configPath == "" {
		configPath = config.DefaultPath()
	}
	config.LoadDotEnv()

	store := config.NewYAMLStore(configPath)
	settings, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	settings = config.ApplyEnv(settings)

	events := jobs.NewEventBus(1000)
	models := transcribe.NewModelCache(settings.ModelDir, nil)
	orchestrator := pipeline.New(pipeline.Config{
		Hosted: youtube.NewCaptionClient(
			youtube.WithHTTPClient(&http.Client{Timeout: settings.HTTPTimeout}),
			youtube.WithUserAgent(settings.UserAgent),
			youtube.WithRetries(settings.HTTPRetries),
		),
		// Audio streams can legitimately outlast the request timeout.
		Downloader: media.NewDownloader(&http.Client{}),
		Transcriber: transcribe.New(transcribe.Options{
			FFmpegPath:  settings.FFmpegPath,
			FFprobePath: settings.FFprobePath,
			WhisperPath: settings.WhisperPath,
			Threads:     settings.Threads,
			Models:      models,
		}),
		Events: events,
	})

	return &App{
		Settings: settings,
		Store:    store,
		Pipeline: orchestrator,
		Models:   models,
		Checker:  diagnostics.NewChecker(),
		Events:   events,
	}, nil
}

// SaveSettings normalizes and persists settings.
func (a *App) SaveSettings(settings domain.Settings) (domain.Settings, error) {
	normalized := config.Normalize(settings)
	if err := a.Store.Save(normalized); err != nil {
		return domain.Settings{}, fmt.Errorf("save settings: %w", err)
	}
	a.Settings = normalized
	return normalized, nil
}

// requestOptions merges command-line choices over the loaded settings.
func (a *App) requestOptions(flags transcribeFlags) (pipeline.Options, error) {
	model := a.Settings.DefaultModel
	if flags.model != "" {
		size, err := domain.ParseModelSize(flags.model)
		if err != nil {
			return pipeline.Options{}, err
		}
		model = size
	}

	languages := a.Settings.Languages
	if len(flags.languages) > 0 {
		languages = flags.languages
	}
	asrLanguage := a.Settings.ASRLanguage
	if flags.asrLanguage != "" {
		asrLanguage = flags.asrLanguage
	}

	return pipeline.Options{
		IncludeTimestamps: flags.timestamps && !flags.noTimestamps,
		LocalOnly:         flags.localOnly,
		AllowFallback:     !flags.noLocal,
		ModelSize:         model,
		Languages:         languages,
		ASRLanguage:       asrLanguage,
	}, nil
}
