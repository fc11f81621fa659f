package domain

import (
	"fmt"
	"strings"
	"time"
)

// Stage tracks each acquisition step for a single transcript request.
type Stage string

const (
	StageStart          Stage = "start"
	StageResolvingURL   Stage = "resolving_url"
	StageFetchingHosted Stage = "fetching_hosted"
	StageDownloading    Stage = "downloading"
	StageTranscribing   Stage = "transcribing"
	StageFormatting     Stage = "formatting"
	StageDone           Stage = "done"
	StageFailed         Stage = "failed"
)

// ModelSize selects the whisper model used for local transcription.
type ModelSize string

const (
	ModelTiny   ModelSize = "tiny"
	ModelBase   ModelSize = "base"
	ModelSmall  ModelSize = "small"
	ModelMedium ModelSize = "medium"
	ModelLarge  ModelSize = "large"
)

// DefaultModelSize is used when neither flags nor settings pick a model.
const DefaultModelSize = ModelSmall

// ModelSizes lists accepted sizes from smallest to largest.
var ModelSizes = []ModelSize{ModelTiny, ModelBase, ModelSmall, ModelMedium, ModelLarge}

// ParseModelSize validates a user-supplied model size token.
func ParseModelSize(raw string) (ModelSize, error) {
	size := ModelSize(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range ModelSizes {
		if size == known {
			return size, nil
		}
	}
	return "", fmt.Errorf("unknown model size %q (want tiny, base, small, medium or large)", raw)
}

// SourceKind records which acquisition strategy produced a transcript.
type SourceKind string

const (
	SourceHosted SourceKind = "hosted"
	SourceLocal  SourceKind = "local"
)

// Label returns the operator-facing source name.
func (k SourceKind) Label() string {
	switch k {
	case SourceHosted:
		return "YouTube"
	case SourceLocal:
		return "Local AI"
	default:
		return string(k)
	}
}

// TranscriptRequest is one validated acquisition request built by the CLI shell.
type TranscriptRequest struct {
	VideoID           string
	IncludeTimestamps bool
	LocalOnly         bool
	AllowFallback     bool
	ModelSize         ModelSize
	Languages         []string
	ASRLanguage       string
}

// TimedSegment is one unit of transcript text with its start offset in seconds.
type TimedSegment struct {
	Start float64 `json:"start"`
	Text  string  `json:"text"`
}

// TranscriptResult is the terminal artifact handed to the formatter.
type TranscriptResult struct {
	Segments []TimedSegment `json:"segments"`
	Source   SourceKind     `json:"source"`
	Language string         `json:"language,omitempty"`
}

// Progress reports advancement of a long-running stage.
// Total is zero when the stage cannot estimate its size.
type Progress struct {
	Stage   Stage
	Current int64
	Total   int64
	Message string
}

// ProgressFunc receives progress updates. Implementations must not block.
type ProgressFunc func(Progress)

// Emit forwards p when the callback is configured.
func (f ProgressFunc) Emit(p Progress) {
	if f != nil {
		f(p)
	}
}

// Settings contains operator configuration persisted between runs.
type Settings struct {
	ModelDir     string        `yaml:"model_dir"`
	DefaultModel ModelSize     `yaml:"default_model"`
	Languages    []string      `yaml:"languages,omitempty"`
	ASRLanguage  string        `yaml:"asr_language"`
	WhisperPath  string        `yaml:"whisper_path"`
	FFmpegPath   string        `yaml:"ffmpeg_path"`
	FFprobePath  string        `yaml:"ffprobe_path"`
	Threads      int           `yaml:"threads,omitempty"`
	HTTPTimeout  time.Duration `yaml:"http_timeout"`
	HTTPRetries  int           `yaml:"http_retries"`
	UserAgent    string        `yaml:"user_agent,omitempty"`
}

// Job stores the current request identity and its acquisition stage.
type Job struct {
	ID    string `json:"id"`
	Stage Stage  `json:"stage"`
}
