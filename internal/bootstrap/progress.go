package bootstrap

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"yt-transcriber/internal/domain"
	"yt-transcriber/internal/jobs"
)

const progressBarWidth = 24

// tickMsg drives event-bus polling.
type tickMsg struct {
	Time time.Time
}

// finishedMsg tells the renderer the request returned.
type finishedMsg struct{}

// progressModel renders the current stage and progress of one request from
// the event bus.
type progressModel struct {
	events  *jobs.EventBus
	seq     int64
	stage   domain.Stage
	message string
	current int64
	total   int64
	done    bool
}

func newProgressModel(events *jobs.EventBus) progressModel {
	return progressModel{events: events, seq: events.LastSeq()}
}

func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg{Time: t}
	})
}

// Init implements tea.Model.
func (m progressModel) Init() tea.Cmd {
	return tickCmd()
}

// Update implements tea.Model.
func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg.(type) {
	case tickMsg:
		m = m.drain()
		return m, tickCmd()
	case finishedMsg:
		m = m.drain()
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

// drain applies every event published since the last poll.
func (m progressModel) drain() progressModel {
	for _, event := range m.events.Since(m.seq) {
		m.seq = event.Seq
		switch event.Type {
		case jobs.EventTypeStatus:
			m.stage = event.Stage
			m.message = event.Message
			m.current, m.total = 0, 0
			if jobs.IsTerminal(event.Stage) {
				m.done = true
			}
		case jobs.EventTypeProgress:
			m.stage = event.Stage
			if event.Message != "" {
				m.message = event.Message
			}
			m.current, m.total = event.Current, event.Total
		}
	}
	return m
}

// View implements tea.Model.
func (m progressModel) View() string {
	if m.done || m.stage == "" {
		return ""
	}
	line := stageStyle.Render(stageLabel(m.stage)) + " " + m.message
	if bar := m.bar(); bar != "" {
		line += " " + infoStyle.Render(bar)
	}
	return line + "\n"
}

func (m progressModel) bar() string {
	switch {
	case m.total > 0:
		ratio := float64(m.current) / float64(m.total)
		if ratio > 1 {
			ratio = 1
		}
		filled := int(ratio * progressBarWidth)
		return fmt.Sprintf("[%s%s] %3.0f%%", strings.Repeat("#", filled), strings.Repeat(".", progressBarWidth-filled), ratio*100)
	case m.current > 0:
		return humanBytes(m.current)
	}
	return ""
}

func stageLabel(stage domain.Stage) string {
	return strings.ReplaceAll(string(stage), "_", " ")
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// programWriter prints each write above the running program, or straight
// to out once the program has stopped.
type programWriter struct {
	program *tea.Program
	out     io.Writer
	stopped <-chan struct{}
}

func (w programWriter) Write(p []byte) (int, error) {
	select {
	case <-w.stopped:
		return w.out.Write(p)
	default:
	}
	w.program.Send(tea.Println(strings.TrimRight(string(p), "\n"))())
	return len(p), nil
}

// withProgress runs fn while a bubbletea program renders bus events to out.
// The program runs until fn returns; log records at level or above are
// printed above the progress line meanwhile.
func withProgress[T any](out io.Writer, events *jobs.EventBus, level slog.Level, fn func() (T, error)) (T, error) {
	program := tea.NewProgram(newProgressModel(events),
		tea.WithOutput(out),
		tea.WithInput(nil),
		tea.WithoutSignalHandler(),
	)

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		if _, err := program.Run(); err != nil {
			fmt.Fprintf(out, "progress display stopped: %v\n", err)
		}
	}()

	previous := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(programWriter{program: program, out: out, stopped: stopped}, &slog.HandlerOptions{Level: level})))
	result, err := fn()
	slog.SetDefault(previous)

	program.Send(finishedMsg{})
	<-stopped
	return result, err
}
