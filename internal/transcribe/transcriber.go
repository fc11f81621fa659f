// Package transcribe runs local speech recognition with ffmpeg and whisper.cpp.
package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"yt-transcriber/internal/domain"
)

// Request describes one local transcription run.
type Request struct {
	MediaPath string
	ModelSize domain.ModelSize
	Language  string
	Progress  domain.ProgressFunc
	OnLog     func(log CommandLog)
}

// Result contains ordered segments and the command logs of the run.
type Result struct {
	Segments []domain.TimedSegment
	Language string
	Duration time.Duration
	Logs     []CommandLog
}

// Options configures external tools used by the Transcriber.
type Options struct {
	FFmpegPath  string
	FFprobePath string
	WhisperPath string
	Threads     int
	Models      *ModelCache
}

// Transcriber converts media to 16 kHz mono WAV and runs whisper.cpp over it.
type Transcriber struct {
	ffmpegPath  string
	ffprobePath string
	whisperPath string
	threads     int
	models      *ModelCache
	runner      commandRunner
	probe       func(ctx context.Context, path string) (time.Duration, error)
	mkdirTemp   func(dir, pattern string) (string, error)
	removeAll   func(path string) error
	stat        func(name string) (os.FileInfo, error)
	readFile    func(name string) ([]byte, error)
}

// New constructs the production transcriber with OS dependencies.
func New(opts Options) *Transcriber {
	t := newTranscriber(opts, &execRunner{})
	t.probe = t.probeDuration
	return t
}

// NewTranscriberForTests constructs a transcriber with injectable dependencies.
func NewTranscriberForTests(
	opts Options,
	runner commandRunner,
	probe func(ctx context.Context, path string) (time.Duration, error),
	mkdirTemp func(dir, pattern string) (string, error),
	removeAll func(path string) error,
) *Transcriber {
	t := newTranscriber(opts, runner)
	t.probe = probe
	if mkdirTemp != nil {
		t.mkdirTemp = mkdirTemp
	}
	if removeAll != nil {
		t.removeAll = removeAll
	}
	return t
}

func newTranscriber(opts Options, runner commandRunner) *Transcriber {
	return &Transcriber{
		ffmpegPath:  orDefault(opts.FFmpegPath, "ffmpeg"),
		ffprobePath: orDefault(opts.FFprobePath, "ffprobe"),
		whisperPath: orDefault(opts.WhisperPath, "whisper-cli"),
		threads:     opts.Threads,
		models:      opts.Models,
		runner:      runner,
		mkdirTemp:   os.MkdirTemp,
		removeAll:   os.RemoveAll,
		stat:        os.Stat,
		readFile:    os.ReadFile,
	}
}

// Transcribe runs preprocessing and whisper inference over req.MediaPath.
// The temporary workspace is removed before returning.
func (t *Transcriber) Transcribe(ctx context.Context, req Request) (Result, error) {
	if strings.TrimSpace(req.MediaPath) == "" {
		return Result{}, &PipelineError{
			Stage:   stagePreprocessing,
			Message: "input media path is required",
		}
	}
	if _, err := t.stat(req.MediaPath); err != nil {
		return Result{}, &PipelineError{
			Stage:   stagePreprocessing,
			Message: fmt.Sprintf("cannot access input media: %s", req.MediaPath),
			Err:     err,
		}
	}
	if t.models == nil {
		return Result{}, &PipelineError{
			Stage:   stageModel,
			Message: "model cache is not configured",
		}
	}

	modelPath, err := t.models.Resolve(ctx, req.ModelSize, req.Progress)
	if err != nil {
		return Result{}, err
	}

	tempDir, err := t.mkdirTemp("", "yt-transcriber-asr-*")
	if err != nil {
		return Result{}, &PipelineError{
			Stage:   stagePreprocessing,
			Message: "failed to create temporary workspace",
			Err:     err,
		}
	}
	defer func() {
		if err := t.removeAll(tempDir); err != nil {
			slog.Warn("transcribe: workspace cleanup failed", slog.String("dir", tempDir), slog.Any("error", err))
		}
	}()

	wavPath := filepath.Join(tempDir, "preprocessed-16k-mono.wav")
	args := buildFFmpegArgs(req.MediaPath, wavPath)
	cmdResult, runErr := t.runner.Run(ctx, nil, t.ffmpegPath, args...)
	log := commandLog(t.ffmpegPath, args, cmdResult)
	emitLog(req.OnLog, log)
	if runErr != nil {
		return Result{}, &PipelineError{
			Stage:      stagePreprocessing,
			Kind:       classifyFailure(ctx, cmdResult),
			Message:    "ffmpeg audio conversion failed",
			CommandLog: log,
			Err:        runErr,
		}
	}
	if _, err := t.stat(wavPath); err != nil {
		return Result{}, &PipelineError{
			Stage:      stagePreprocessing,
			Message:    "ffmpeg completed but output file is missing",
			CommandLog: log,
			Err:        err,
		}
	}

	var duration time.Duration
	if t.probe != nil {
		if d, err := t.probe(ctx, wavPath); err != nil {
			slog.Debug("transcribe: duration probe failed", slog.Any("error", err))
		} else {
			duration = d
		}
	}

	outBase := filepath.Join(tempDir, "transcript")
	whisperArgs := buildWhisperArgs(modelPath, wavPath, outBase, req.Language, t.threads)
	tracker := &progressTracker{sink: req.Progress, duration: duration}
	tracker.start()
	whisperResult, runErr := t.runner.Run(ctx, tracker.line, t.whisperPath, whisperArgs...)
	whisperLog := commandLog(t.whisperPath, whisperArgs, whisperResult)
	emitLog(req.OnLog, whisperLog)
	if runErr != nil {
		kind := classifyFailure(ctx, whisperResult)
		message := "whisper.cpp transcription failed"
		if kind == domain.FailureResourceExhausted {
			message = fmt.Sprintf("whisper.cpp ran out of memory with the %s model", req.ModelSize)
		}
		return Result{}, &PipelineError{
			Stage:      stageTranscribing,
			Kind:       kind,
			Message:    message,
			CommandLog: whisperLog,
			Err:        runErr,
		}
	}

	jsonPath := outBase + ".json"
	content, err := t.readFile(jsonPath)
	if err != nil {
		return Result{}, &PipelineError{
			Stage:      stageParsing,
			Message:    "whisper.cpp completed but transcript .json file is missing",
			CommandLog: whisperLog,
			Err:        err,
		}
	}

	segments, language, err := parseWhisperJSON(content)
	if err != nil {
		return Result{}, &PipelineError{
			Stage:      stageParsing,
			Message:    "cannot parse whisper.cpp JSON output",
			CommandLog: whisperLog,
			Err:        err,
		}
	}
	tracker.finish()

	if language == "" {
		language = normalizeLanguage(req.Language)
	}
	return Result{
		Segments: segments,
		Language: language,
		Duration: duration,
		Logs:     []CommandLog{log, whisperLog},
	}, nil
}

func commandLog(name string, args []string, res commandResult) CommandLog {
	return CommandLog{
		Command:  name,
		Args:     args,
		ExitCode: res.ExitCode,
		Stdout:   res.Stdout,
		Stderr:   res.Stderr,
	}
}

// emitLog forwards command logs when callback is configured.
func emitLog(cb func(log CommandLog), log CommandLog) {
	if cb != nil {
		cb(log)
	}
}

// oomMarkers are stderr fragments whisper.cpp and ggml print on allocation failure.
var oomMarkers = []string{
	"out of memory",
	"failed to allocate",
	"bad_alloc",
	"insufficient memory",
	"cannot allocate memory",
	"cudamalloc failed",
}

// classifyFailure decides between a resource problem and a plain failure.
// A kill by signal that the caller did not request is treated as the OOM killer.
func classifyFailure(ctx context.Context, res commandResult) domain.FailureKind {
	stderr := strings.ToLower(res.Stderr)
	for _, marker := range oomMarkers {
		if strings.Contains(stderr, marker) {
			return domain.FailureResourceExhausted
		}
	}
	if res.Signaled && ctx.Err() == nil {
		return domain.FailureResourceExhausted
	}
	return domain.FailureTranscriptionFailed
}

// normalizeLanguage maps "auto" and empty language to no CLI override.
func normalizeLanguage(raw string) string {
	lang := strings.TrimSpace(raw)
	if lang == "" || strings.EqualFold(lang, "auto") {
		return ""
	}
	return lang
}

// buildFFmpegArgs builds preprocessing CLI args for mono 16k PCM WAV output.
func buildFFmpegArgs(inputPath, outPath string) []string {
	return ffmpeg.Input(inputPath).
		Output(outPath, ffmpeg.KwArgs{
			"vn":  "",
			"ac":  "1",
			"ar":  "16000",
			"c:a": "pcm_s16le",
		}).
		GlobalArgs("-hide_banner", "-nostdin").
		OverWriteOutput().
		GetArgs()
}

// buildWhisperArgs builds whisper.cpp args for JSON transcript export with progress.
func buildWhisperArgs(modelPath, audioPath, outBase, language string, threads int) []string {
	args := []string{
		"-m", modelPath,
		"-f", audioPath,
		"-of", outBase,
		"-oj",
		"-pp",
	}

	if lang := normalizeLanguage(language); lang != "" {
		args = append(args, "-l", lang)
	}
	if threads > 0 {
		args = append(args, "-t", strconv.Itoa(threads))
	}

	return args
}

type whisperOutput struct {
	Result struct {
		Language string `json:"language"`
	} `json:"result"`
	Transcription []struct {
		Offsets struct {
			From int64 `json:"from"`
			To   int64 `json:"to"`
		} `json:"offsets"`
		Text string `json:"text"`
	} `json:"transcription"`
}

// parseWhisperJSON converts whisper.cpp -oj output into ordered segments.
func parseWhisperJSON(data []byte) ([]domain.TimedSegment, string, error) {
	var out whisperOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, "", err
	}

	segments := make([]domain.TimedSegment, 0, len(out.Transcription))
	for _, item := range out.Transcription {
		text := strings.TrimSpace(item.Text)
		if text == "" || isNonSpeechMarker(text) {
			continue
		}
		start := float64(item.Offsets.From) / 1000
		if start < 0 {
			start = 0
		}
		segments = append(segments, domain.TimedSegment{Start: start, Text: text})
	}
	sort.SliceStable(segments, func(i, j int) bool {
		return segments[i].Start < segments[j].Start
	})
	return segments, strings.TrimSpace(out.Result.Language), nil
}

// isNonSpeechMarker matches whisper's bracketed placeholders such as [BLANK_AUDIO].
func isNonSpeechMarker(text string) bool {
	return text == "[BLANK_AUDIO]" || text == "[ Silence ]" || text == "(silence)"
}

var progressPattern = regexp.MustCompile(`progress\s*=\s*(\d+)%`)

// progressTracker turns whisper.cpp "-pp" output into percentage updates.
type progressTracker struct {
	sink     domain.ProgressFunc
	duration time.Duration
	last     int64
}

func (p *progressTracker) start() {
	message := "transcribing audio"
	if p.duration > 0 {
		message = fmt.Sprintf("transcribing %s of audio", p.duration.Round(time.Second))
	}
	p.sink.Emit(domain.Progress{Stage: domain.StageTranscribing, Current: 0, Total: 100, Message: message})
}

func (p *progressTracker) line(line string) {
	m := progressPattern.FindStringSubmatch(line)
	if m == nil {
		return
	}
	pct, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil || pct <= p.last {
		return
	}
	if pct > 100 {
		pct = 100
	}
	p.last = pct
	p.sink.Emit(domain.Progress{Stage: domain.StageTranscribing, Current: pct, Total: 100, Message: "transcribing audio"})
}

func (p *progressTracker) finish() {
	if p.last >= 100 {
		return
	}
	p.last = 100
	p.sink.Emit(domain.Progress{Stage: domain.StageTranscribing, Current: 100, Total: 100, Message: "transcribing audio"})
}

func orDefault(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}
