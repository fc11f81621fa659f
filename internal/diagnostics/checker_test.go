package diagnostics

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"yt-transcriber/internal/domain"
)

func newOSChecker(lookPath func(string) (string, error)) *Checker {
	return NewCheckerForTests(lookPath, os.Stat, os.ReadDir, os.MkdirAll, os.CreateTemp, os.Remove)
}

// TestCheckerRunAllPass validates happy-path diagnostics report.
func TestCheckerRunAllPass(t *testing.T) {
	root := t.TempDir()
	modelDir := filepath.Join(root, "models")
	if err := os.MkdirAll(modelDir, 0o755); err != nil {
		t.Fatalf("mkdir models: %v", err)
	}
	if err := os.WriteFile(filepath.Join(modelDir, "ggml-small.bin"), []byte("stub"), 0o644); err != nil {
		t.Fatalf("write model: %v", err)
	}

	var looked []string
	checker := newOSChecker(func(name string) (string, error) {
		looked = append(looked, name)
		return "/usr/local/bin/" + filepath.Base(name), nil
	})

	report := checker.Run(domain.Settings{
		ModelDir:     modelDir,
		DefaultModel: domain.ModelSmall,
		FFmpegPath:   "ffmpeg",
		FFprobePath:  "/opt/ff/ffprobe",
		WhisperPath:  "whisper-cli",
	})

	if report.HasFailures {
		t.Fatalf("expected no failures, got %+v", report.Items)
	}
	if strings.Join(looked, ",") != "ffmpeg,/opt/ff/ffprobe,whisper-cli" {
		t.Fatalf("looked up %v", looked)
	}
	item := itemByID(t, report, "model_dir")
	if !strings.Contains(item.Message, "ggml-small.bin") {
		t.Fatalf("model_dir message = %q", item.Message)
	}
	if item.Hint != "" {
		t.Fatalf("no hint expected when default model is cached, got %q", item.Hint)
	}
}

// TestCheckerRunMissingToolsAndPaths validates failure reporting.
func TestCheckerRunMissingToolsAndPaths(t *testing.T) {
	checker := newOSChecker(func(string) (string, error) { return "", errors.New("not found") })

	report := checker.Run(domain.Settings{ModelDir: ""})

	if !report.HasFailures {
		t.Fatal("expected failures")
	}

	assertStatusByID(t, report, "tool_ffmpeg", domain.DiagnosticStatusFail)
	assertStatusByID(t, report, "tool_ffprobe", domain.DiagnosticStatusFail)
	assertStatusByID(t, report, "tool_whisper", domain.DiagnosticStatusFail)
	assertStatusByID(t, report, "model_dir", domain.DiagnosticStatusFail)
}

// TestCheckerRunCreatesEmptyModelDirectory validates a fresh model dir passes with a hint.
func TestCheckerRunCreatesEmptyModelDirectory(t *testing.T) {
	modelDir := filepath.Join(t.TempDir(), "nested", "models")
	checker := newOSChecker(func(name string) (string, error) { return "/usr/bin/" + name, nil })

	report := checker.Run(domain.Settings{ModelDir: modelDir, DefaultModel: domain.ModelBase})

	item := itemByID(t, report, "model_dir")
	if item.Status != domain.DiagnosticStatusPass {
		t.Fatalf("status = %s, message = %s", item.Status, item.Message)
	}
	if !strings.Contains(item.Hint, "base") {
		t.Fatalf("hint = %q, want mention of base model", item.Hint)
	}
	if info, err := os.Stat(modelDir); err != nil || !info.IsDir() {
		t.Fatalf("model dir should be created, err = %v", err)
	}
	entries, _ := os.ReadDir(modelDir)
	if len(entries) != 0 {
		t.Fatalf("write check file should be removed, got %d entries", len(entries))
	}
}

// TestCheckerRunModelDirIsFile validates a file path is rejected.
func TestCheckerRunModelDirIsFile(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "models")
	if err := os.WriteFile(filePath, []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	checker := newOSChecker(func(name string) (string, error) { return name, nil })

	report := checker.Run(domain.Settings{ModelDir: filePath})
	assertStatusByID(t, report, "model_dir", domain.DiagnosticStatusFail)
}

func itemByID(t *testing.T, report domain.DiagnosticReport, id string) domain.DiagnosticItem {
	t.Helper()
	for _, item := range report.Items {
		if item.ID == id {
			return item
		}
	}
	t.Fatalf("diagnostic item not found: %s", id)
	return domain.DiagnosticItem{}
}

// assertStatusByID checks status for one diagnostic item by ID.
func assertStatusByID(t *testing.T, report domain.DiagnosticReport, id string, want domain.DiagnosticStatus) {
	t.Helper()
	if got := itemByID(t, report, id).Status; got != want {
		t.Fatalf("item %s: got %s, want %s", id, got, want)
	}
}
