package jobs

import (
	"sync"
	"time"

	"github.com/gcbaptista/go-document-repository/model"
)

// recentDurationsPerType bounds the per-type duration history.
const recentDurationsPerType = 100

// MetricsSnapshot is a point-in-time copy of the job counters.
type MetricsSnapshot struct {
	JobsCreated   int64 `json:"jobs_created"`
	JobsCompleted int64 `json:"jobs_completed"`
	JobsFailed    int64 `json:"jobs_failed"`
	JobsCancelled int64 `json:"jobs_cancelled"`

	TotalExecutionMs   int64            `json:"total_execution_ms"`
	AverageExecutionMs int64            `json:"average_execution_ms"`
	AverageByTypeMs    map[string]int64 `json:"average_by_type_ms"`

	JobsByType   map[model.JobType]int64   `json:"jobs_by_type"`
	JobsByStatus map[model.JobStatus]int64 `json:"jobs_by_status"`
	LastUpdated  time.Time                 `json:"last_updated"`
}

// metrics aggregates job outcomes for the /jobs/metrics endpoint.
type metrics struct {
	mu sync.RWMutex

	created, completed, failed, cancelled int64
	totalExecution                        time.Duration

	byType    map[model.JobType]int64
	byStatus  map[model.JobStatus]int64
	durations map[model.JobType][]time.Duration // completed runs only, newest last

	lastUpdated time.Time
	now         func() time.Time
}

func newMetrics() *metrics {
	return &metrics{
		byType:    make(map[model.JobType]int64),
		byStatus:  make(map[model.JobStatus]int64),
		durations: make(map[model.JobType][]time.Duration),
		now:       time.Now,
	}
}

func (m *metrics) jobCreated(jobType model.JobType) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.created++
	m.byType[jobType]++
	m.byStatus[model.JobStatusPending]++
	m.lastUpdated = m.now()
}

// statusChanged moves one job between status buckets.
func (m *metrics) statusChanged(from, to model.JobStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if from != "" && m.byStatus[from] > 0 {
		m.byStatus[from]--
	}
	m.byStatus[to]++
	m.lastUpdated = m.now()
}

// jobFinished records the outcome of a job that left the running state.
func (m *metrics) jobFinished(jobType model.JobType, status model.JobStatus, took time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch status {
	case model.JobStatusCompleted:
		m.completed++
		m.totalExecution += took
		d := append(m.durations[jobType], took)
		if len(d) > recentDurationsPerType {
			d = d[len(d)-recentDurationsPerType:]
		}
		m.durations[jobType] = d
	case model.JobStatusFailed:
		m.failed++
	case model.JobStatusCancelled:
		m.cancelled++
	}
	m.lastUpdated = m.now()
}

func (m *metrics) snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := MetricsSnapshot{
		JobsCreated:      m.created,
		JobsCompleted:    m.completed,
		JobsFailed:       m.failed,
		JobsCancelled:    m.cancelled,
		TotalExecutionMs: m.totalExecution.Milliseconds(),
		AverageByTypeMs:  make(map[string]int64, len(m.durations)),
		JobsByType:       make(map[model.JobType]int64, len(m.byType)),
		JobsByStatus:     make(map[model.JobStatus]int64, len(m.byStatus)),
		LastUpdated:      m.lastUpdated,
	}
	if m.completed > 0 {
		s.AverageExecutionMs = (m.totalExecution / time.Duration(m.completed)).Milliseconds()
	}
	for jobType, runs := range m.durations {
		var total time.Duration
		for _, d := range runs {
			total += d
		}
		s.AverageByTypeMs[string(jobType)] = (total / time.Duration(len(runs))).Milliseconds()
	}
	for k, v := range m.byType {
		s.JobsByType[k] = v
	}
	for k, v := range m.byStatus {
		s.JobsByStatus[k] = v
	}
	return s
}

// successRate is completed / (completed + failed); cancelled jobs do not count.
// With no finished jobs it reports 1.
func (m *metrics) successRate() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	finished := m.completed + m.failed
	if finished == 0 {
		return 1.0
	}
	return float64(m.completed) / float64(finished)
}

// workload counts pending and running jobs.
func (m *metrics) workload() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.byStatus[model.JobStatusPending] + m.byStatus[model.JobStatusRunning]
}
