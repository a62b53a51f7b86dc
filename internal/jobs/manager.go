package jobs

import (
	"errors"
	"fmt"
	"sync"

	"media-transcoder/internal/domain"
)

var (
	// ErrJobAlreadyRunning is returned when a transcode is started while an
	// engine call is still outstanding.
	ErrJobAlreadyRunning = errors.New("job already running")
	// ErrInvalidJobState is returned when an operation is not valid in the
	// current state. The job is left untouched.
	ErrInvalidJobState = errors.New("invalid job state")
	// ErrNoResult is returned when exporting without a completed result.
	ErrNoResult = errors.New("no processed file available")
)

// Manager holds the single job and enforces its state machine. Result and
// error are kept consistent with the status: a result exists only while
// Completed and an error only while Failed.
type Manager struct {
	mu      sync.RWMutex
	current domain.Job
	input   []byte
}

// NewManager creates a manager in idle state.
func NewManager() *Manager {
	return &Manager{
		current: domain.Job{
			Status: domain.JobStatusIdle,
		},
	}
}

// Begin starts a new job for fileName in Loading, dropping all data of the
// previous one. It is valid from every state.
func (m *Manager) Begin(jobID, fileName string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.current = domain.Job{
		ID:       jobID,
		FileName: fileName,
		Status:   domain.JobStatusLoading,
	}
	m.input = nil
}

// Load stores the input bytes and moves Loading to Ready.
func (m *Manager) Load(input []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.transitionLocked(domain.JobStatusReady); err != nil {
		return err
	}
	if input == nil {
		input = []byte{}
	}
	m.input = input
	m.current.InputSize = len(input)
	return nil
}

// Start moves a loaded Ready job to Transcoding at 0%.
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.input == nil && m.current.Status == domain.JobStatusReady {
		return fmt.Errorf("%w: no input loaded", ErrInvalidJobState)
	}
	if err := m.transitionLocked(domain.JobStatusTranscoding); err != nil {
		return err
	}
	m.current.Progress = 0
	return nil
}

// SetProgress records progress while Transcoding.
func (m *Manager) SetProgress(percent float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current.Status != domain.JobStatusTranscoding {
		return fmt.Errorf("%w: progress while %s", ErrInvalidJobState, m.current.Status)
	}
	m.current.Progress = percent
	return nil
}

// Complete stores the artifact and moves Transcoding to Completed at 100%.
func (m *Manager) Complete(artifact domain.ResultArtifact) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.transitionLocked(domain.JobStatusCompleted); err != nil {
		return err
	}
	m.current.Progress = 100
	m.current.Result = &artifact
	return nil
}

// Fail stores the normalized error and moves Transcoding to Failed.
func (m *Manager) Fail(jobErr domain.JobError) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.transitionLocked(domain.JobStatusFailed); err != nil {
		return err
	}
	m.current.Error = &jobErr
	return nil
}

// Rearm returns a Completed or Failed job to Ready, keeping its input.
func (m *Manager) Rearm() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.transitionLocked(domain.JobStatusReady); err != nil {
		return err
	}
	m.current.Progress = 0
	m.current.Result = nil
	m.current.Error = nil
	return nil
}

// Reset clears job metadata and returns manager to idle.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = domain.Job{Status: domain.JobStatusIdle}
	m.input = nil
}

// Current returns a snapshot of the current job.
func (m *Manager) Current() domain.Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job := m.current
	if job.Result != nil {
		result := *job.Result
		job.Result = &result
	}
	if job.Error != nil {
		jobErr := *job.Error
		job.Error = &jobErr
	}
	return job
}

// Status returns the current lifecycle state.
func (m *Manager) Status() domain.JobStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current.Status
}

// Input returns the loaded input bytes. Callers must not modify them.
func (m *Manager) Input() []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.input
}

// IsRunning reports whether the job is waiting on a file read or the engine.
func (m *Manager) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return isRunning(m.current.Status)
}

func (m *Manager) transitionLocked(status domain.JobStatus) error {
	if !isValidTransition(m.current.Status, status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidJobState, m.current.Status, status)
	}
	m.current.Status = status
	return nil
}

// isRunning checks if a status waits on asynchronous work.
func isRunning(status domain.JobStatus) bool {
	switch status {
	case domain.JobStatusLoading, domain.JobStatusTranscoding:
		return true
	default:
		return false
	}
}

// isValidTransition enforces the allowed job state machine edges. Entering
// Loading is handled by Begin and is valid from every state.
func isValidTransition(from, to domain.JobStatus) bool {
	switch from {
	case domain.JobStatusLoading:
		return to == domain.JobStatusReady || to == domain.JobStatusIdle
	case domain.JobStatusReady:
		return to == domain.JobStatusTranscoding
	case domain.JobStatusTranscoding:
		return to == domain.JobStatusCompleted || to == domain.JobStatusFailed
	case domain.JobStatusCompleted, domain.JobStatusFailed:
		return to == domain.JobStatusReady
	default:
		return false
	}
}
