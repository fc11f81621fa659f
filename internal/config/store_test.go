package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"yt-transcriber/internal/domain"
)

// TestDefaultSettings verifies baseline defaults are present.
func TestDefaultSettings(t *testing.T) {
	cfg := DefaultSettings()
	if cfg.ASRLanguage != "auto" {
		t.Fatalf("asr language = %q, want auto", cfg.ASRLanguage)
	}
	if cfg.DefaultModel != domain.ModelSmall {
		t.Fatalf("default model = %q, want small", cfg.DefaultModel)
	}
	if cfg.ModelDir == "" {
		t.Fatal("expected non-empty model dir")
	}
	if cfg.HTTPTimeout <= 0 {
		t.Fatal("expected positive http timeout")
	}
}

// TestYAMLStoreLoadMissingReturnsDefaults checks first-run behavior.
func TestYAMLStoreLoadMissingReturnsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "config.yaml")
	store := NewYAMLStore(path)

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !reflect.DeepEqual(got, DefaultSettings()) {
		t.Fatalf("settings = %+v, want defaults", got)
	}
}

// TestYAMLStoreSaveAndLoadRoundTrip checks persisted settings fidelity.
func TestYAMLStoreSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg", "config.yaml")
	store := NewYAMLStore(path)
	want := domain.Settings{
		ModelDir:     "/models",
		DefaultModel: domain.ModelBase,
		Languages:    []string{"en", "de"},
		ASRLanguage:  "en",
		WhisperPath:  "/opt/whisper/whisper-cli",
		FFmpegPath:   "ffmpeg",
		FFprobePath:  "ffprobe",
		Threads:      4,
		HTTPTimeout:  45 * time.Second,
		HTTPRetries:  1,
	}

	if err := store.Save(want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("settings = %+v, want %+v", got, want)
	}
}

// TestYAMLStoreLoadPartialFileKeepsDefaults checks unspecified fields.
func TestYAMLStoreLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("default_model: medium\nhttp_timeout: 5s\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := NewYAMLStore(path).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.DefaultModel != domain.ModelMedium {
		t.Fatalf("default model = %q, want medium", got.DefaultModel)
	}
	if got.HTTPTimeout != 5*time.Second {
		t.Fatalf("http timeout = %v, want 5s", got.HTTPTimeout)
	}
	if got.WhisperPath != "whisper-cli" {
		t.Fatalf("whisper path = %q, want default", got.WhisperPath)
	}
}

// TestYAMLStoreLoadInvalidYAML checks parse error handling.
func TestYAMLStoreLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg", "config.yaml")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("model_dir: [unterminated"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	store := NewYAMLStore(path)
	if _, err := store.Load(); err == nil {
		t.Fatal("expected yaml parse error")
	}
}

// TestNormalizeRestoresInvalidModel checks model size validation.
func TestNormalizeRestoresInvalidModel(t *testing.T) {
	got := Normalize(domain.Settings{DefaultModel: "huge", HTTPRetries: -3, Languages: []string{" en ", ""}})
	if got.DefaultModel != domain.DefaultModelSize {
		t.Fatalf("default model = %q, want %q", got.DefaultModel, domain.DefaultModelSize)
	}
	if got.HTTPRetries != 0 {
		t.Fatalf("http retries = %d, want 0", got.HTTPRetries)
	}
	if !reflect.DeepEqual(got.Languages, []string{"en"}) {
		t.Fatalf("languages = %v, want [en]", got.Languages)
	}
}

// TestApplyEnvOverridesSettings checks YTT_* overrides.
func TestApplyEnvOverridesSettings(t *testing.T) {
	t.Setenv("YTT_MODEL", "tiny")
	t.Setenv("YTT_WHISPER_PATH", "/usr/local/bin/whisper-cli")
	t.Setenv("YTT_HTTP_RETRIES", "0")

	got := ApplyEnv(DefaultSettings())
	if got.DefaultModel != domain.ModelTiny {
		t.Fatalf("default model = %q, want tiny", got.DefaultModel)
	}
	if got.WhisperPath != "/usr/local/bin/whisper-cli" {
		t.Fatalf("whisper path = %q", got.WhisperPath)
	}
	if got.HTTPRetries != 0 {
		t.Fatalf("http retries = %d, want 0", got.HTTPRetries)
	}
}
