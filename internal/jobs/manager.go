package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gcbaptista/go-document-repository/internal/errors"
	"github.com/gcbaptista/go-document-repository/model"
)

// JobFunc is the body of a background job. It should honour ctx cancellation
// and may report progress through the manager.
type JobFunc func(ctx context.Context, job *model.Job) error

// Manager handles background job execution and tracking
type Manager struct {
	mu       sync.RWMutex
	jobs     map[string]*model.Job
	workers  chan struct{} // Limits concurrent jobs
	stopChan chan struct{}
	stopOnce sync.Once
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	metrics  *metrics
	logger   *slog.Logger
}

// NewManager creates a new job manager with specified worker count
func NewManager(maxWorkers int, logger *slog.Logger) *Manager {
	if maxWorkers <= 0 {
		maxWorkers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		jobs:     make(map[string]*model.Job),
		workers:  make(chan struct{}, maxWorkers),
		stopChan: make(chan struct{}),
		ctx:      ctx,
		cancel:   cancel,
		metrics:  newMetrics(),
		logger:   logger,
	}
}

// Start begins the job manager and starts background cleanup
func (m *Manager) Start() {
	m.logger.Info("job manager started", "max_workers", cap(m.workers))
	go m.cleanupRoutine()
}

// Stop cancels running jobs and waits for them to return.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopChan)
		m.cancel()
		m.wg.Wait()
		m.logger.Info("job manager stopped")
	})
}

// CreateJob creates a new job and returns its ID
func (m *Manager) CreateJob(jobType model.JobType, ownerID string, metadata map[string]string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	job := &model.Job{
		ID:        uuid.New().String(),
		Type:      jobType,
		Status:    model.JobStatusPending,
		OwnerID:   ownerID,
		CreatedAt: time.Now(),
		Metadata:  metadata,
	}

	m.jobs[job.ID] = job
	m.metrics.jobCreated(jobType)
	m.logger.Info("created job", "job_id", job.ID, "type", job.Type, "owner_id", ownerID)
	return job.ID
}

// Submit creates a job and starts executing it.
func (m *Manager) Submit(jobType model.JobType, ownerID string, metadata map[string]string, fn JobFunc) (string, error) {
	jobID := m.CreateJob(jobType, ownerID, metadata)
	if err := m.ExecuteJob(jobID, fn); err != nil {
		return jobID, err
	}
	return jobID, nil
}

// GetJob retrieves a job by ID
func (m *Manager) GetJob(jobID string) (*model.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	job, exists := m.jobs[jobID]
	if !exists {
		return nil, errors.NewJobNotFoundError(jobID)
	}

	// Return a copy to avoid race conditions
	jobCopy := *job
	if job.Progress != nil {
		progressCopy := *job.Progress
		jobCopy.Progress = &progressCopy
	}
	return &jobCopy, nil
}

// ListJobs returns all jobs of an owner, optionally filtered by status, oldest first
func (m *Manager) ListJobs(ownerID string, status *model.JobStatus) []*model.Job {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*model.Job, 0)
	for _, job := range m.jobs {
		if job.OwnerID == ownerID {
			if status == nil || job.Status == *status {
				// Return a copy
				jobCopy := *job
				if job.Progress != nil {
					progressCopy := *job.Progress
					jobCopy.Progress = &progressCopy
				}
				result = append(result, &jobCopy)
			}
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

// ExecuteJob marks a pending job running and executes it in a goroutine once
// a worker slot is free. It does not wait for the job.
func (m *Manager) ExecuteJob(jobID string, jobFunc JobFunc) error {
	select {
	case <-m.stopChan:
		m.updateJobStatus(jobID, model.JobStatusCancelled, "job manager shutting down")
		return fmt.Errorf("job manager is shutting down")
	default:
	}

	m.mu.Lock()
	job, exists := m.jobs[jobID]
	if !exists {
		m.mu.Unlock()
		return errors.NewJobNotFoundError(jobID)
	}
	if job.Status != model.JobStatusPending {
		m.mu.Unlock()
		return fmt.Errorf("job with ID '%s' is not in pending status (current: %s)", jobID, job.Status)
	}

	oldStatus := job.Status
	job.Status = model.JobStatusRunning
	now := time.Now()
	job.StartedAt = &now
	m.metrics.statusChanged(oldStatus, job.Status)
	jobCopy := *job
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		// Acquire worker slot
		select {
		case m.workers <- struct{}{}:
		case <-m.stopChan:
			m.updateJobStatus(jobID, model.JobStatusCancelled, "job manager shutting down")
			return
		}
		defer func() { <-m.workers }()

		startTime := time.Now()
		err := m.run(jobFunc, jobCopy)
		executionTime := time.Since(startTime)

		switch {
		case err != nil && m.ctx.Err() != nil:
			m.updateJobStatus(jobID, model.JobStatusCancelled, err.Error())
			m.metrics.jobFinished(jobCopy.Type, model.JobStatusCancelled, executionTime)
			m.logger.Warn("job cancelled", "job_id", jobID, "duration", executionTime)
		case err != nil:
			m.updateJobStatus(jobID, model.JobStatusFailed, err.Error())
			m.metrics.jobFinished(jobCopy.Type, model.JobStatusFailed, executionTime)
			m.logger.Error("job failed", "job_id", jobID, "duration", executionTime, "error", err)
		default:
			m.updateJobStatus(jobID, model.JobStatusCompleted, "")
			m.metrics.jobFinished(jobCopy.Type, model.JobStatusCompleted, executionTime)
			m.logger.Info("job completed", "job_id", jobID, "duration", executionTime)
		}
	}()

	return nil
}

// run executes fn, turning a panic into an error.
func (m *Manager) run(fn JobFunc, job model.Job) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("job panicked: %v", rec)
		}
	}()
	return fn(m.ctx, &job)
}

// UpdateJobProgress updates the progress of a running job
func (m *Manager) UpdateJobProgress(jobID string, current, total int, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, exists := m.jobs[jobID]
	if !exists {
		return
	}

	if job.Progress == nil {
		job.Progress = &model.JobProgress{}
	}

	job.Progress.Current = current
	job.Progress.Total = total
	job.Progress.Message = message
}

// updateJobStatus updates the status of a job (internal method)
func (m *Manager) updateJobStatus(jobID string, status model.JobStatus, errorMsg string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, exists := m.jobs[jobID]
	if !exists {
		return
	}

	oldStatus := job.Status
	job.Status = status
	if errorMsg != "" {
		job.Error = errorMsg
	}

	if status.IsFinished() {
		now := time.Now()
		job.CompletedAt = &now
	}

	m.metrics.statusChanged(oldStatus, status)
}

// cleanupRoutine runs periodic job cleanup
func (m *Manager) cleanupRoutine() {
	ticker := time.NewTicker(1 * time.Hour) // Cleanup every hour
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			// Clean up completed jobs older than 24 hours
			m.CleanupOldJobs(24 * time.Hour)
		case <-m.stopChan:
			return
		}
	}
}

// CleanupOldJobs removes completed jobs older than the specified duration
func (m *Manager) CleanupOldJobs(maxAge time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	cleaned := 0

	for jobID, job := range m.jobs {
		if job.CompletedAt != nil && job.CompletedAt.Before(cutoff) {
			delete(m.jobs, jobID)
			cleaned++
		}
	}

	if cleaned > 0 {
		m.logger.Info("cleaned up old jobs", "count", cleaned)
	}
}

// GetMetrics returns current job performance metrics
func (m *Manager) GetMetrics() MetricsSnapshot {
	return m.metrics.snapshot()
}

// GetJobSuccessRate returns the overall job success rate
func (m *Manager) GetJobSuccessRate() float64 {
	return m.metrics.successRate()
}

// GetCurrentWorkload returns the number of currently active jobs
func (m *Manager) GetCurrentWorkload() int64 {
	return m.metrics.workload()
}
