package services

import (
	"context"
	"log"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/hoaportal/backend/internal/metrics"
	"github.com/hoaportal/backend/internal/models"
)

const (
	defaultSweepInterval   = 1 * time.Minute
	defaultStaleProcessing = 15 * time.Minute
	defaultRedispatchAfter = 5 * time.Minute
	sweepBatchSize         = 50
)

// SweepResult summarizes one sweep
type SweepResult struct {
	StaleFailed  int       `json:"stale_failed"`
	Redispatched int       `json:"redispatched"`
	SweptAt      time.Time `json:"swept_at"`
}

// TranslationSweeper repairs jobs whose events were lost: processing jobs that
// stopped making progress are failed, old pending jobs are dispatched again.
type TranslationSweeper struct {
	db              *gorm.DB
	jobs            *TranslationJobService
	dispatcher      TranslationDispatcher
	interval        time.Duration
	staleProcessing time.Duration
	redispatchAfter time.Duration
	now             func() time.Time

	stopCh chan struct{}
	wg     sync.WaitGroup

	mu        sync.Mutex
	lastSweep SweepResult
}

// NewTranslationSweeper creates a sweeper; zero durations use defaults
func NewTranslationSweeper(db *gorm.DB, jobs *TranslationJobService, dispatcher TranslationDispatcher, interval, staleProcessing, redispatchAfter time.Duration) *TranslationSweeper {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	if staleProcessing <= 0 {
		staleProcessing = defaultStaleProcessing
	}
	if redispatchAfter <= 0 {
		redispatchAfter = defaultRedispatchAfter
	}
	return &TranslationSweeper{
		db:              db,
		jobs:            jobs,
		dispatcher:      dispatcher,
		interval:        interval,
		staleProcessing: staleProcessing,
		redispatchAfter: redispatchAfter,
		now:             time.Now,
		stopCh:          make(chan struct{}),
	}
}

// Start begins the background sweep loop
func (s *TranslationSweeper) Start() {
	s.wg.Add(1)
	go s.sweepLoop()
}

// Stop shuts down the loop and waits for an in-flight sweep
func (s *TranslationSweeper) Stop() {
	close(s.stopCh)
	s.wg.Wait()
}

func (s *TranslationSweeper) sweepLoop() {
	defer s.wg.Done()

	log.Printf("Translation sweeper started (interval=%v, stale=%v, redispatch=%v)", s.interval, s.staleProcessing, s.redispatchAfter)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			log.Println("Translation sweeper stopping...")
			return
		case <-ticker.C:
			s.Sweep(context.Background())
		}
	}
}

// Sweep runs one pass and refreshes the job gauges
func (s *TranslationSweeper) Sweep(ctx context.Context) SweepResult {
	result := SweepResult{SweptAt: s.now()}
	result.StaleFailed = s.failStaleJobs(ctx)
	result.Redispatched = s.redispatchPendingJobs(ctx)

	metrics.UpdateTranslationMetrics(s.db)

	if result.StaleFailed > 0 || result.Redispatched > 0 {
		log.Printf("Translation sweeper: failed %d stale jobs, redispatched %d pending jobs", result.StaleFailed, result.Redispatched)
	}

	s.mu.Lock()
	s.lastSweep = result
	s.mu.Unlock()
	return result
}

// LastSweep returns the result of the most recent sweep
func (s *TranslationSweeper) LastSweep() SweepResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSweep
}

func (s *TranslationSweeper) failStaleJobs(ctx context.Context) int {
	cutoff := s.now().Add(-s.staleProcessing)

	var jobs []models.TranslationJob
	if err := s.db.WithContext(ctx).
		Where("status = ? AND started_at < ?", models.TranslationStatusProcessing, cutoff).
		Limit(sweepBatchSize).
		Find(&jobs).Error; err != nil {
		log.Printf("Translation sweeper: failed to query stale jobs: %v", err)
		return 0
	}

	failed := 0
	for _, job := range jobs {
		if err := s.jobs.Fail(ctx, job.ID, "translation timed out"); err != nil {
			// Lost the race with the runner; that outcome stands
			continue
		}
		failed++
	}
	return failed
}

func (s *TranslationSweeper) redispatchPendingJobs(ctx context.Context) int {
	if s.dispatcher == nil {
		return 0
	}
	cutoff := s.now().Add(-s.redispatchAfter)

	var jobs []models.TranslationJob
	if err := s.db.WithContext(ctx).
		Where("status = ? AND updated_at < ? AND attempts < max_attempts", models.TranslationStatusPending, cutoff).
		Order("created_at ASC").
		Limit(sweepBatchSize).
		Find(&jobs).Error; err != nil {
		log.Printf("Translation sweeper: failed to query pending jobs: %v", err)
		return 0
	}

	dispatched := 0
	for _, job := range jobs {
		select {
		case <-s.stopCh:
			return dispatched
		default:
		}

		event := TranslationEvent{
			DocumentID:     job.DocumentID,
			TargetLanguage: string(job.TargetLanguage),
			UserID:         job.UserID,
			JobID:          job.ID,
		}
		if err := s.dispatcher.Dispatch(ctx, event); err != nil {
			log.Printf("Translation sweeper: failed to redispatch job %s: %v", job.ID, err)
			continue
		}

		// Push the next redispatch out by a full period
		if err := s.db.WithContext(ctx).Model(&models.TranslationJob{}).
			Where("id = ? AND status = ?", job.ID, models.TranslationStatusPending).
			Update("updated_at", s.now()).Error; err != nil {
			log.Printf("Translation sweeper: failed to bump job %s after redispatch: %v", job.ID, err)
		}
		dispatched++
	}
	return dispatched
}
