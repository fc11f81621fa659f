package jobs

import (
	"errors"
	"fmt"
	"sync"

	"yt-transcriber/internal/domain"
)

// ErrJobAlreadyRunning is returned when starting a second active request.
var ErrJobAlreadyRunning = errors.New("job already running")

// Manager tracks the single active transcript request and its stage.
type Manager struct {
	mu      sync.RWMutex
	current domain.Job
}

// NewManager creates a manager with no active request.
func NewManager() *Manager {
	return &Manager{}
}

// Start registers a new request in the start stage.
func (m *Manager) Start(jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if isRunning(m.current) {
		return ErrJobAlreadyRunning
	}

	m.current = domain.Job{
		ID:    jobID,
		Stage: domain.StageStart,
	}
	return nil
}

// Transition validates and applies a stage change for the current request.
func (m *Manager) Transition(stage domain.Stage) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current.ID == "" {
		return fmt.Errorf("cannot transition without an active job")
	}
	if stage == m.current.Stage {
		return nil
	}
	if !isValidTransition(m.current.Stage, stage) {
		return fmt.Errorf("invalid transition: %s -> %s", m.current.Stage, stage)
	}

	m.current.Stage = stage
	return nil
}

// Current returns a snapshot of the current request.
func (m *Manager) Current() domain.Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// IsRunning reports whether a request is between start and a terminal stage.
func (m *Manager) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return isRunning(m.current)
}

func isRunning(job domain.Job) bool {
	if job.ID == "" {
		return false
	}
	return !IsTerminal(job.Stage)
}

// IsTerminal reports whether stage ends a request.
func IsTerminal(stage domain.Stage) bool {
	return stage == domain.StageDone || stage == domain.StageFailed
}

// isValidTransition enforces the acquisition state machine edges.
func isValidTransition(from, to domain.Stage) bool {
	switch from {
	case domain.StageStart:
		return to == domain.StageResolvingURL
	case domain.StageResolvingURL:
		return to == domain.StageFetchingHosted || to == domain.StageDownloading || to == domain.StageFailed
	case domain.StageFetchingHosted:
		return to == domain.StageFormatting || to == domain.StageDownloading || to == domain.StageFailed
	case domain.StageDownloading:
		return to == domain.StageTranscribing || to == domain.StageFailed
	case domain.StageTranscribing:
		return to == domain.StageFormatting || to == domain.StageFailed
	case domain.StageFormatting:
		return to == domain.StageDone
	default:
		return false
	}
}
