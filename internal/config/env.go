package config

import (
	"log/slog"

	"github.com/anatolykoptev/go-kit/env"
	"github.com/joho/godotenv"

	"yt-transcriber/internal/domain"
)

// LoadDotEnv loads an optional .env file from the working directory.
func LoadDotEnv() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", slog.Any("error", err))
	}
}

// ApplyEnv overlays YTT_* environment variables on top of file settings.
func ApplyEnv(cfg domain.Settings) domain.Settings {
	cfg.ModelDir = env.Str("YTT_MODEL_DIR", cfg.ModelDir)
	cfg.DefaultModel = domain.ModelSize(env.Str("YTT_MODEL", string(cfg.DefaultModel)))
	cfg.ASRLanguage = env.Str("YTT_ASR_LANGUAGE", cfg.ASRLanguage)
	cfg.WhisperPath = env.Str("YTT_WHISPER_PATH", cfg.WhisperPath)
	cfg.FFmpegPath = env.Str("YTT_FFMPEG_PATH", cfg.FFmpegPath)
	cfg.FFprobePath = env.Str("YTT_FFPROBE_PATH", cfg.FFprobePath)
	cfg.UserAgent = env.Str("YTT_USER_AGENT", cfg.UserAgent)
	cfg.Threads = env.Int("YTT_THREADS", cfg.Threads)
	cfg.HTTPTimeout = env.Duration("YTT_HTTP_TIMEOUT", cfg.HTTPTimeout)
	cfg.HTTPRetries = env.Int("YTT_HTTP_RETRIES", cfg.HTTPRetries)
	if langs := env.List("YTT_LANGUAGES", ""); len(langs) > 0 {
		cfg.Languages = langs
	}
	return Normalize(cfg)
}
