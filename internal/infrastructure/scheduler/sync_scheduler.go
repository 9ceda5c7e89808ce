package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bizpulse/backend/internal/domain/erp"
)

// ---------------------------------------------------------------------------
// Sync Job Types
// ---------------------------------------------------------------------------

// SyncJobStatus represents the status of a scheduled sync job
type SyncJobStatus string

const (
	SyncJobStatusPending SyncJobStatus = "PENDING"
	SyncJobStatusRunning SyncJobStatus = "RUNNING"
	SyncJobStatusSuccess SyncJobStatus = "SUCCESS"
	SyncJobStatusFailed  SyncJobStatus = "FAILED"
)

// SyncJob represents one scheduled sync of a connection
type SyncJob struct {
	ID           uuid.UUID
	ConnectionID uuid.UUID
	CustomerID   uuid.UUID
	ProviderType erp.ProviderType
	Domains      []string
	Status       SyncJobStatus
	Error        string
	StartedAt    *time.Time
	CompletedAt  *time.Time

	// Sync results
	RecordsProcessed int
	RecordsSkipped   int
}

// NewSyncJob creates a new sync job for a connection
func NewSyncJob(conn *erp.ERPConnection) *SyncJob {
	domains := conn.DataDomains
	if len(domains) == 0 {
		// A connection that never synced gets the full domain set.
		domains = erp.AllDataDomains()
	}
	tags := make([]string, len(domains))
	for i, d := range domains {
		tags[i] = d.String()
	}
	return &SyncJob{
		ID:           uuid.New(),
		ConnectionID: conn.ID,
		CustomerID:   conn.CustomerID,
		ProviderType: conn.ProviderType,
		Domains:      tags,
		Status:       SyncJobStatusPending,
	}
}

// Start marks the job as running
func (j *SyncJob) Start() {
	now := time.Now()
	j.Status = SyncJobStatusRunning
	j.StartedAt = &now
	j.Error = ""
}

// Complete marks the job as successful and records the counts
func (j *SyncJob) Complete(processed, skipped int) {
	now := time.Now()
	j.Status = SyncJobStatusSuccess
	j.RecordsProcessed = processed
	j.RecordsSkipped = skipped
	j.CompletedAt = &now
}

// Fail marks the job as failed
func (j *SyncJob) Fail(err string) {
	now := time.Now()
	j.Status = SyncJobStatusFailed
	j.CompletedAt = &now
	j.Error = err
}

// SyncExecutor runs one scheduled sync job
type SyncExecutor interface {
	Execute(ctx context.Context, job *SyncJob) error
}

// ConnectionSource lists connections eligible for scheduled syncing
type ConnectionSource interface {
	FindConnected(ctx context.Context) ([]erp.ERPConnection, error)
}

// ---------------------------------------------------------------------------
// SyncSchedulerConfig
// ---------------------------------------------------------------------------

// SyncSchedulerConfig holds configuration for the scheduled sync runner
type SyncSchedulerConfig struct {
	// Enabled indicates if the scheduler is enabled
	Enabled bool
	// ScanInterval is how often connected connections are scanned for due syncs
	ScanInterval time.Duration
	// SyncInterval is the minimum age of a connection's last sync before a new run
	SyncInterval time.Duration
	// MaxConcurrentJobs is the maximum number of concurrent sync jobs
	MaxConcurrentJobs int
	// JobTimeout is the maximum time one connection's sync can run
	JobTimeout time.Duration
}

// DefaultSyncSchedulerConfig returns default configuration
func DefaultSyncSchedulerConfig() SyncSchedulerConfig {
	return SyncSchedulerConfig{
		Enabled:           true,
		ScanInterval:      5 * time.Minute,
		SyncInterval:      6 * time.Hour,
		MaxConcurrentJobs: 3,
		JobTimeout:        30 * time.Minute,
	}
}

// Validate validates the configuration
func (c *SyncSchedulerConfig) Validate() error {
	if c.ScanInterval <= 0 {
		return ErrInvalidConfig
	}
	if c.SyncInterval <= 0 {
		return ErrInvalidConfig
	}
	if c.MaxConcurrentJobs <= 0 {
		return ErrInvalidConfig
	}
	if c.JobTimeout <= 0 {
		return ErrInvalidConfig
	}
	return nil
}

// ---------------------------------------------------------------------------
// SyncScheduler
// ---------------------------------------------------------------------------

// SyncScheduler periodically scans connected ERP connections and runs a
// background sync for every connection whose last sync is older than the
// configured interval. One connection maps to at most one queued job per
// scan; the orchestrator's own locking protects against overlap with
// manually triggered syncs.
type SyncScheduler struct {
	config      SyncSchedulerConfig
	connections ConnectionSource
	executor    SyncExecutor
	logger      *zap.Logger

	jobs      chan *SyncJob
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewSyncScheduler creates a new scheduled sync runner
func NewSyncScheduler(config SyncSchedulerConfig, connections ConnectionSource, executor SyncExecutor, logger *zap.Logger) (*SyncScheduler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &SyncScheduler{
		config:      config,
		connections: connections,
		executor:    executor,
		logger:      logger,
		jobs:        make(chan *SyncJob, 100),
	}, nil
}

// Start starts the scan loop and the worker pool
func (s *SyncScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	for i := 0; i < s.config.MaxConcurrentJobs; i++ {
		s.wg.Add(1)
		go s.worker(ctx, i)
	}

	s.wg.Add(1)
	go s.scanLoop(ctx)

	s.logger.Info("Sync scheduler started",
		zap.Int("workers", s.config.MaxConcurrentJobs),
		zap.Duration("scan_interval", s.config.ScanInterval),
		zap.Duration("sync_interval", s.config.SyncInterval),
	)
	return nil
}

// Stop gracefully stops the scheduler
func (s *SyncScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	// Closed under the same lock that guards SubmitJob's send, so no send
	// can be in flight when the channel closes.
	close(s.jobs)
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Sync scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Sync scheduler stop timed out")
		return ctx.Err()
	}
}

// SubmitJob submits a job for execution
func (s *SyncScheduler) SubmitJob(job *SyncJob) error {
	// The lock is held across the send so Stop cannot close the channel
	// between the running check and the enqueue.
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isRunning {
		return ErrSchedulerNotRunning
	}

	select {
	case s.jobs <- job:
		s.logger.Debug("Sync job submitted",
			zap.String("job_id", job.ID.String()),
			zap.String("connection_id", job.ConnectionID.String()),
			zap.String("provider_type", job.ProviderType.String()),
		)
		return nil
	default:
		return ErrJobQueueFull
	}
}

// scanLoop periodically scans for due connections. The first scan happens
// one full interval after startup so a deploy never stampedes providers.
func (s *SyncScheduler) scanLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.ScanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.scanOnce(ctx)
		}
	}
}

// scanOnce enqueues a sync job for every connected connection that is due
func (s *SyncScheduler) scanOnce(ctx context.Context) {
	conns, err := s.connections.FindConnected(ctx)
	if err != nil {
		s.logger.Error("Sync scan failed to list connections", zap.Error(err))
		return
	}

	due := 0
	for i := range conns {
		if !s.isDue(&conns[i]) {
			continue
		}
		due++
		if err := s.SubmitJob(NewSyncJob(&conns[i])); err != nil {
			// A full queue means the previous scan is still draining.
			// The connection stays due and the next scan picks it up.
			s.logger.Warn("Failed to enqueue scheduled sync",
				zap.String("connection_id", conns[i].ID.String()),
				zap.Error(err))
		}
	}

	if due > 0 {
		s.logger.Info("Sync scan completed",
			zap.Int("connected", len(conns)),
			zap.Int("due", due))
	}
}

// isDue reports whether a connection's last sync is old enough for a new run
func (s *SyncScheduler) isDue(conn *erp.ERPConnection) bool {
	if conn.LastSyncDate == nil {
		return true
	}
	return time.Since(*conn.LastSyncDate) >= s.config.SyncInterval
}

// worker processes jobs from the queue
func (s *SyncScheduler) worker(ctx context.Context, workerID int) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-s.jobs:
			if !ok {
				return
			}
			s.processJob(ctx, job, workerID)
		}
	}
}

// processJob executes a single sync job with the configured timeout
func (s *SyncScheduler) processJob(ctx context.Context, job *SyncJob, workerID int) {
	job.Start()
	s.logger.Info("Running scheduled sync",
		zap.Int("worker_id", workerID),
		zap.String("job_id", job.ID.String()),
		zap.String("connection_id", job.ConnectionID.String()),
		zap.Strings("domains", job.Domains),
	)

	jobCtx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	defer cancel()

	if err := s.executor.Execute(jobCtx, job); err != nil {
		job.Fail(err.Error())
		s.logger.Error("Scheduled sync failed",
			zap.Int("worker_id", workerID),
			zap.String("job_id", job.ID.String()),
			zap.String("connection_id", job.ConnectionID.String()),
			zap.Error(err),
		)
		return
	}

	s.logger.Info("Scheduled sync completed",
		zap.Int("worker_id", workerID),
		zap.String("job_id", job.ID.String()),
		zap.String("connection_id", job.ConnectionID.String()),
		zap.Int("records_processed", job.RecordsProcessed),
	)
}
