package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"yt-transcriber/internal/domain"
)

// Store defines persistence operations for settings.
type Store interface {
	Load() (domain.Settings, error)
	Save(domain.Settings) error
}

// YAMLStore persists settings in a single YAML file on disk.
type YAMLStore struct {
	path string
}

// NewYAMLStore creates a YAML-backed settings store.
func NewYAMLStore(path string) *YAMLStore {
	return &YAMLStore{path: path}
}

// Path returns the backing file location.
func (s *YAMLStore) Path() string {
	return s.path
}

// Load reads settings from disk or returns defaults when missing.
// Fields absent from the file keep their default values.
func (s *YAMLStore) Load() (domain.Settings, error) {
	cfg := DefaultSettings()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return domain.Settings{}, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return domain.Settings{}, fmt.Errorf("parse %s: %w", s.path, err)
	}

	return Normalize(cfg), nil
}

// Save writes settings as YAML and creates parent directories.
func (s *YAMLStore) Save(cfg domain.Settings) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(s.path, data, 0o644)
}

// Normalize trims user inputs and restores defaults for empty fields.
func Normalize(cfg domain.Settings) domain.Settings {
	defaults := DefaultSettings()

	cfg.ModelDir = strings.TrimSpace(cfg.ModelDir)
	if cfg.ModelDir == "" {
		cfg.ModelDir = defaults.ModelDir
	}
	if _, err := domain.ParseModelSize(string(cfg.DefaultModel)); err != nil {
		cfg.DefaultModel = defaults.DefaultModel
	}
	cfg.ASRLanguage = strings.TrimSpace(cfg.ASRLanguage)
	if cfg.ASRLanguage == "" {
		cfg.ASRLanguage = defaults.ASRLanguage
	}
	cfg.WhisperPath = orDefault(cfg.WhisperPath, defaults.WhisperPath)
	cfg.FFmpegPath = orDefault(cfg.FFmpegPath, defaults.FFmpegPath)
	cfg.FFprobePath = orDefault(cfg.FFprobePath, defaults.FFprobePath)
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = defaults.HTTPTimeout
	}
	if cfg.HTTPRetries < 0 {
		cfg.HTTPRetries = 0
	}
	if cfg.Threads < 0 {
		cfg.Threads = 0
	}

	langs := make([]string, 0, len(cfg.Languages))
	for _, lang := range cfg.Languages {
		if lang = strings.TrimSpace(lang); lang != "" {
			langs = append(langs, lang)
		}
	}
	cfg.Languages = langs

	return cfg
}

func orDefault(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}
