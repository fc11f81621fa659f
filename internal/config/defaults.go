package config

import (
	"os"
	"path/filepath"
	"time"

	"yt-transcriber/internal/domain"
)

const appDirName = ".yt-transcriber"

// AppDir returns the per-user directory holding settings and model weights.
func AppDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	return filepath.Join(homeDir, appDirName)
}

// DefaultPath is the settings file location used when --config is not given.
func DefaultPath() string {
	return filepath.Join(AppDir(), "config.yaml")
}

// DefaultSettings returns baseline configuration for first launch.
func DefaultSettings() domain.Settings {
	return domain.Settings{
		ModelDir:     filepath.Join(AppDir(), "models"),
		DefaultModel: domain.DefaultModelSize,
		ASRLanguage:  "auto",
		WhisperPath:  "whisper-cli",
		FFmpegPath:   "ffmpeg",
		FFprobePath:  "ffprobe",
		HTTPTimeout:  30 * time.Second,
		HTTPRetries:  2,
	}
}
