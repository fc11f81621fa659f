package bootstrap

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"yt-transcriber/internal/domain"
	"yt-transcriber/internal/jobs"
)

// TestProgressModelFollowsEvents checks stage, message and percentage rendering.
func TestProgressModelFollowsEvents(t *testing.T) {
	bus := jobs.NewEventBus(100)
	bus.Publish(jobs.Event{Type: jobs.EventTypeStatus, Stage: domain.StageResolvingURL, Message: "stale"})

	m := newProgressModel(bus)
	bus.Publish(jobs.Event{Type: jobs.EventTypeStatus, Stage: domain.StageDownloading, Message: "downloading audio"})
	bus.Publish(jobs.ProgressEvent("job", domain.Progress{Stage: domain.StageDownloading, Current: 50, Total: 100}))

	updated, cmd := m.Update(tickMsg{Time: time.Now()})
	if cmd == nil {
		t.Fatal("expected another tick while the request runs")
	}
	view := updated.View()
	for _, want := range []string{"downloading", "downloading audio", "50%"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view %q missing %q", view, want)
		}
	}
	if strings.Contains(view, "stale") {
		t.Fatalf("view %q rendered an event published before the model", view)
	}
}

// TestProgressModelUnknownTotal checks byte counts render without a bar.
func TestProgressModelUnknownTotal(t *testing.T) {
	bus := jobs.NewEventBus(100)
	m := newProgressModel(bus)
	bus.Publish(jobs.ProgressEvent("job", domain.Progress{Stage: domain.StageDownloading, Current: 3 * 1024 * 1024}))

	updated, _ := m.Update(tickMsg{Time: time.Now()})
	view := updated.View()
	if !strings.Contains(view, "3.0 MiB") || strings.Contains(view, "[") {
		t.Fatalf("view = %q", view)
	}
}

// TestProgressModelClearsOnTerminalStage checks the display clears once the request ends
// while the program keeps running until the caller finishes.
func TestProgressModelClearsOnTerminalStage(t *testing.T) {
	bus := jobs.NewEventBus(100)
	m := newProgressModel(bus)
	bus.Publish(jobs.Event{Type: jobs.EventTypeStatus, Stage: domain.StageTranscribing, Message: "transcribing"})
	bus.Publish(jobs.Event{Type: jobs.EventTypeStatus, Stage: domain.StageDone, Message: "done"})

	updated, cmd := m.Update(tickMsg{Time: time.Now()})
	if cmd == nil {
		t.Fatal("expected polling to continue until the caller finishes")
	}
	if view := updated.View(); view != "" {
		t.Fatalf("view = %q, want empty after done", view)
	}
}

// TestWithProgressReturnsResult checks the renderer never swallows the run outcome.
func TestWithProgressReturnsResult(t *testing.T) {
	bus := jobs.NewEventBus(100)
	var out bytes.Buffer
	wantErr := errors.New("boom")

	got, err := withProgress(&out, bus, slog.LevelInfo, func() (int, error) {
		bus.Publish(jobs.Event{Type: jobs.EventTypeStatus, Stage: domain.StageDownloading, Message: "downloading audio"})
		time.Sleep(150 * time.Millisecond)
		return 7, wantErr
	})
	if got != 7 || !errors.Is(err, wantErr) {
		t.Fatalf("withProgress = (%d, %v), want (7, %v)", got, err, wantErr)
	}
}

// TestWithProgressRoutesLogsAboveDisplay checks log records go through the
// program while it runs and the previous logger is restored afterwards.
func TestWithProgressRoutesLogsAboveDisplay(t *testing.T) {
	bus := jobs.NewEventBus(100)
	var out bytes.Buffer
	previous := slog.Default()

	var during *slog.Logger
	_, err := withProgress(&out, bus, slog.LevelInfo, func() (struct{}, error) {
		during = slog.Default()
		slog.Debug("hidden detail")
		slog.Info("no hosted transcript, falling back to local transcription")
		return struct{}{}, nil
	})
	if err != nil {
		t.Fatalf("withProgress: %v", err)
	}
	if during == previous {
		t.Fatal("expected a program-backed logger while the display runs")
	}
	if slog.Default() != previous {
		t.Fatal("expected the previous logger to be restored")
	}
	if !strings.Contains(out.String(), "falling back to local transcription") {
		t.Fatalf("output %q missing the log line", out.String())
	}
	if strings.Contains(out.String(), "hidden detail") {
		t.Fatalf("output %q contains a record below the level", out.String())
	}
}

// TestHumanBytes checks unit scaling.
func TestHumanBytes(t *testing.T) {
	tests := map[int64]string{
		512:             "512 B",
		2048:            "2.0 KiB",
		5 * 1024 * 1024: "5.0 MiB",
	}
	for in, want := range tests {
		if got := humanBytes(in); got != want {
			t.Fatalf("humanBytes(%d) = %q, want %q", in, got, want)
		}
	}
}
