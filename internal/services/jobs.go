package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nexconsult/nif-lookup/internal/models"
	"github.com/sirupsen/logrus"
)

// BatchRunner is the part of NIFServiceInterface the job manager needs
type BatchRunner interface {
	RunBatch(ctx context.Context, queries []models.CompanyQuery, sink RecordSink) ([]models.CompanyResult, error)
}

type job struct {
	id         string
	queries    []models.CompanyQuery
	status     models.JobStatus
	createdAt  time.Time
	startedAt  *time.Time
	finishedAt *time.Time
	results    []models.CompanyResult
	err        string
}

// JobManager runs submitted batches on a single worker goroutine. Finished
// jobs stay readable for retention, then are dropped.
type JobManager struct {
	runner    BatchRunner
	logger    *logrus.Logger
	queue     chan *job
	retention time.Duration
	now       func() time.Time

	mu   sync.RWMutex
	jobs map[string]*job

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// NewJobManager starts the worker. queueSize bounds pending jobs; a
// retention of 0 keeps finished jobs until Close.
func NewJobManager(runner BatchRunner, queueSize int, retention time.Duration, logger *logrus.Logger) *JobManager {
	if queueSize < 1 {
		queueSize = 1
	}
	ctx, cancel := context.WithCancel(context.Background())

	m := &JobManager{
		runner:    runner,
		logger:    logger,
		queue:     make(chan *job, queueSize),
		retention: retention,
		now:       time.Now,
		jobs:      make(map[string]*job),
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	go m.worker()
	return m
}

// Submit enqueues a batch; ErrQueueFull when the queue has no room
func (m *JobManager) Submit(names []string) (*models.JobResponse, error) {
	queries := models.NewCompanyQueries(names)
	if len(queries) == 0 {
		return nil, fmt.Errorf("no company names to process")
	}

	m.mu.Lock()
	if m.ctx.Err() != nil {
		m.mu.Unlock()
		return nil, ErrJobsClosed
	}
	m.pruneFinished()

	j := &job{
		id:        uuid.New().String(),
		queries:   queries,
		status:    models.JobQueued,
		createdAt: m.now(),
	}

	select {
	case m.queue <- j:
		m.jobs[j.id] = j
	default:
		m.mu.Unlock()
		return nil, ErrQueueFull
	}
	resp := j.response(false)
	m.mu.Unlock()

	m.logger.WithFields(logrus.Fields{
		"job_id":    j.id,
		"companies": len(queries),
	}).Info("Batch job queued")
	return resp, nil
}

// Get returns the job state; finished jobs include their results
func (m *JobManager) Get(id string) (*models.JobResponse, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	j, ok := m.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	return j.response(true), nil
}

// Results returns the results recorded so far
func (m *JobManager) Results(id string) ([]models.CompanyResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	j, ok := m.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	return append([]models.CompanyResult(nil), j.results...), nil
}

// Health reports queue depth and jobs per status. A full queue is degraded
// because new submissions are refused.
func (m *JobManager) Health() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	counts := make(map[models.JobStatus]int)
	for _, j := range m.jobs {
		counts[j.status]++
	}

	status := "healthy"
	if len(m.queue) == cap(m.queue) {
		status = "degraded"
	}

	return map[string]interface{}{
		"status":         status,
		"queued":         len(m.queue),
		"queue_capacity": cap(m.queue),
		"running":        counts[models.JobRunning],
		"completed":      counts[models.JobCompleted],
		"failed":         counts[models.JobFailed],
	}
}

// Close cancels the running job and waits for the worker to exit. Jobs
// that never started are marked failed.
func (m *JobManager) Close() error {
	m.once.Do(func() {
		m.mu.Lock()
		m.cancel()
		m.mu.Unlock()
		<-m.done

		m.mu.Lock()
		finished := m.now()
		abandoned := 0
		for _, j := range m.jobs {
			if j.status != models.JobQueued {
				continue
			}
			j.status = models.JobFailed
			j.err = ErrJobsClosed.Error()
			j.finishedAt = &finished
			abandoned++
		}
		m.mu.Unlock()

		if abandoned > 0 {
			m.logger.WithField("jobs", abandoned).Warn("Queued batch jobs dropped at shutdown")
		}
	})
	return nil
}

// pruneFinished drops jobs finished longer than retention ago. Callers hold mu.
func (m *JobManager) pruneFinished() {
	if m.retention <= 0 {
		return
	}
	cutoff := m.now().Add(-m.retention)
	for id, j := range m.jobs {
		if j.finishedAt != nil && j.finishedAt.Before(cutoff) {
			delete(m.jobs, id)
		}
	}
}

func (m *JobManager) worker() {
	defer close(m.done)

	for {
		select {
		case <-m.ctx.Done():
			return
		case j := <-m.queue:
			m.runJob(j)
		}
	}
}

func (m *JobManager) runJob(j *job) {
	logger := m.logger.WithField("job_id", j.id)

	m.mu.Lock()
	if m.ctx.Err() != nil {
		m.mu.Unlock()
		return
	}
	m.pruneFinished()
	now := m.now()
	j.status = models.JobRunning
	j.startedAt = &now
	m.mu.Unlock()

	logger.WithField("companies", len(j.queries)).Info("Batch job started")

	sink := NewMemorySink(func(results []models.CompanyResult) {
		m.mu.Lock()
		j.results = results
		m.mu.Unlock()
	})
	results, err := m.runner.RunBatch(m.ctx, j.queries, sink)

	m.mu.Lock()
	finished := m.now()
	j.finishedAt = &finished
	if results != nil {
		j.results = results
	}
	if err != nil {
		j.status = models.JobFailed
		j.err = err.Error()
	} else {
		j.status = models.JobCompleted
	}
	m.mu.Unlock()

	entry := logger.WithFields(logrus.Fields{
		"status":   j.status,
		"duration": finished.Sub(now).String(),
	})
	if err != nil {
		entry.WithError(err).Error("Batch job failed")
		return
	}
	entry.Info("Batch job completed")
}

// response must be called with mu held
func (j *job) response(withResults bool) *models.JobResponse {
	resp := &models.JobResponse{
		ID:         j.id,
		Status:     j.status,
		Total:      len(j.queries),
		Completed:  len(j.results),
		CreatedAt:  j.createdAt,
		StartedAt:  j.startedAt,
		FinishedAt: j.finishedAt,
		Error:      j.err,
	}

	if j.status == models.JobCompleted || j.status == models.JobFailed {
		summary := models.Summarize(j.results)
		if j.startedAt != nil && j.finishedAt != nil {
			summary.Duration = j.finishedAt.Sub(*j.startedAt)
		}
		resp.Summary = &summary
	}
	if withResults {
		resp.Results = append([]models.CompanyResult(nil), j.results...)
	}
	return resp
}
