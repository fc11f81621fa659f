package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

type probeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// probeDuration reads the media duration with ffprobe. The ffmpeg-go helper
// resolves ffprobe from PATH, so a custom binary goes through the runner.
func (t *Transcriber) probeDuration(ctx context.Context, path string) (time.Duration, error) {
	var raw string
	if t.ffprobePath == "ffprobe" {
		out, err := ffmpeg.Probe(path)
		if err != nil {
			return 0, fmt.Errorf("ffprobe: %w", err)
		}
		raw = out
	} else {
		args := []string{"-show_format", "-of", "json", path}
		res, err := t.runner.Run(ctx, nil, t.ffprobePath, args...)
		if err != nil {
			return 0, fmt.Errorf("ffprobe: %w", err)
		}
		raw = res.Stdout
	}
	return parseProbeDuration(raw)
}

func parseProbeDuration(raw string) (time.Duration, error) {
	var out probeOutput
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return 0, fmt.Errorf("decode ffprobe output: %w", err)
	}
	value := strings.TrimSpace(out.Format.Duration)
	if value == "" || value == "N/A" {
		return 0, fmt.Errorf("ffprobe reported no duration")
	}
	seconds, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", value, err)
	}
	return time.Duration(seconds * float64(time.Second)), nil
}
