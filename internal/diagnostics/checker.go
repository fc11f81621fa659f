// Package diagnostics checks the local prerequisites for AI transcription.
package diagnostics

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"yt-transcriber/internal/domain"
)

// Checker validates external tools and the model directory.
type Checker struct {
	lookPath   func(string) (string, error)
	stat       func(string) (os.FileInfo, error)
	readDir    func(string) ([]os.DirEntry, error)
	mkdirAll   func(string, os.FileMode) error
	createTemp func(string, string) (*os.File, error)
	remove     func(string) error
}

// NewChecker builds a checker using real OS dependencies.
func NewChecker() *Checker {
	return &Checker{
		lookPath:   exec.LookPath,
		stat:       os.Stat,
		readDir:    os.ReadDir,
		mkdirAll:   os.MkdirAll,
		createTemp: os.CreateTemp,
		remove:     os.Remove,
	}
}

// Run executes all checks and returns a combined report.
func (c *Checker) Run(settings domain.Settings) domain.DiagnosticReport {
	items := []domain.DiagnosticItem{
		c.checkTool("ffmpeg", settings.FFmpegPath, "Install ffmpeg (e.g. `brew install ffmpeg` or `apt install ffmpeg`)."),
		c.checkTool("ffprobe", settings.FFprobePath, "ffprobe ships with ffmpeg; install ffmpeg or set ffprobe_path."),
		c.checkTool("whisper", settings.WhisperPath, "Build whisper.cpp and put whisper-cli on PATH, or set whisper_path / YTT_WHISPER_PATH."),
		c.checkModelDir(settings.ModelDir, settings.DefaultModel),
	}

	hasFailures := false
	for _, item := range items {
		if item.Status == domain.DiagnosticStatusFail {
			hasFailures = true
			break
		}
	}

	return domain.DiagnosticReport{
		GeneratedAt: time.Now().UTC(),
		HasFailures: hasFailures,
		Items:       items,
	}
}

// checkTool verifies a required CLI executable resolves, by name on PATH or by path.
func (c *Checker) checkTool(id, configured, hint string) domain.DiagnosticItem {
	name := strings.TrimSpace(configured)
	if name == "" {
		name = id
	}
	path, err := c.lookPath(name)
	if err != nil {
		return domain.DiagnosticItem{
			ID:      "tool_" + id,
			Name:    id,
			Status:  domain.DiagnosticStatusFail,
			Message: fmt.Sprintf("Tool not found: %s", name),
			Hint:    hint,
		}
	}

	return domain.DiagnosticItem{
		ID:      "tool_" + id,
		Name:    id,
		Status:  domain.DiagnosticStatusPass,
		Message: fmt.Sprintf("Found at %s", path),
	}
}

// checkModelDir validates the model cache directory is writable and reports
// which weight files it already holds.
func (c *Checker) checkModelDir(modelDir string, defaultModel domain.ModelSize) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   "model_dir",
		Name: "Model directory",
	}

	if strings.TrimSpace(modelDir) == "" {
		item.Status = domain.DiagnosticStatusFail
		item.Message = "Model directory is empty."
		item.Hint = "Set model_dir in the config file or YTT_MODEL_DIR."
		return item
	}

	if info, err := c.stat(modelDir); err == nil && !info.IsDir() {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Model directory path is a file: %s", modelDir)
		item.Hint = "Point model_dir at a directory; weight files are stored inside it."
		return item
	}

	if err := c.mkdirAll(modelDir, 0o755); err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Cannot create model directory: %s", modelDir)
		item.Hint = "Choose a writable location or adjust filesystem permissions."
		return item
	}

	tmpFile, err := c.createTemp(modelDir, ".write-check-*")
	if err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Model directory is not writable: %s", modelDir)
		item.Hint = "Models are downloaded here on first use; choose a writable directory."
		return item
	}
	tmpPath := tmpFile.Name()
	_ = tmpFile.Close()
	_ = c.remove(tmpPath)

	cached := c.cachedModels(modelDir)
	item.Status = domain.DiagnosticStatusPass
	if len(cached) == 0 {
		item.Message = fmt.Sprintf("Writable directory: %s (no models cached yet)", modelDir)
	} else {
		item.Message = fmt.Sprintf("Writable directory: %s (cached: %s)", modelDir, strings.Join(cached, ", "))
	}
	if defaultModel != "" && !containsModel(cached, defaultModel) {
		item.Hint = fmt.Sprintf("The %s model will be downloaded on first local transcription.", defaultModel)
	}
	return item
}

func (c *Checker) cachedModels(modelDir string) []string {
	entries, err := c.readDir(modelDir)
	if err != nil {
		return nil
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, "ggml-") && strings.ToLower(filepath.Ext(name)) == ".bin" {
			names = append(names, name)
		}
	}
	return names
}

func containsModel(files []string, size domain.ModelSize) bool {
	for _, f := range files {
		trimmed := strings.TrimSuffix(strings.TrimPrefix(f, "ggml-"), ".bin")
		if trimmed == string(size) || strings.HasPrefix(trimmed, string(size)+"-") {
			return true
		}
	}
	return false
}

// NewCheckerForTests creates checker with injectable dependencies.
func NewCheckerForTests(
	lookPath func(string) (string, error),
	stat func(string) (os.FileInfo, error),
	readDir func(string) ([]os.DirEntry, error),
	mkdirAll func(string, os.FileMode) error,
	createTemp func(string, string) (*os.File, error),
	remove func(string) error,
) *Checker {
	return &Checker{
		lookPath:   lookPath,
		stat:       stat,
		readDir:    readDir,
		mkdirAll:   mkdirAll,
		createTemp: createTemp,
		remove:     remove,
	}
}
