package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hoaportal/backend/internal/models"
)

var (
	// ErrJobTerminal is returned when a transition is attempted on a completed or failed job
	ErrJobTerminal = errors.New("translation job already finished")
	// ErrAttemptsExhausted is returned when a job may not be started again
	ErrAttemptsExhausted = errors.New("translation job attempts exhausted")
	// ErrJobNotProcessing is returned when completing a job that was never started
	ErrJobNotProcessing = errors.New("translation job is not processing")
)

// TranslationJobService persists translation job records. Every status change
// is a conditional update on the current status so terminal jobs never move.
type TranslationJobService struct {
	db          *gorm.DB
	maxAttempts int
	now         func() time.Time
}

// NewTranslationJobService creates a job service
func NewTranslationJobService(db *gorm.DB, maxAttempts int) *TranslationJobService {
	if maxAttempts <= 0 {
		maxAttempts = models.DefaultMaxAttempts
	}
	return &TranslationJobService{
		db:          db,
		maxAttempts: maxAttempts,
		now:         time.Now,
	}
}

// CreateJob creates a pending job
func (s *TranslationJobService) CreateJob(ctx context.Context, documentID string, lang models.Language, userID string) (*models.TranslationJob, error) {
	now := s.now()
	job := &models.TranslationJob{
		ID:             uuid.New().String(),
		DocumentID:     documentID,
		TargetLanguage: lang,
		UserID:         userID,
		Status:         models.TranslationStatusPending,
		MaxAttempts:    s.maxAttempts,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.db.WithContext(ctx).Create(job).Error; err != nil {
		return nil, fmt.Errorf("failed to create translation job: %w", err)
	}
	return job, nil
}

// GetJob retrieves a job by ID
func (s *TranslationJobService) GetJob(ctx context.Context, jobID string) (*models.TranslationJob, error) {
	var job models.TranslationJob
	if err := s.db.WithContext(ctx).First(&job, "id = ?", jobID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "translation job", ID: jobID}
		}
		return nil, err
	}
	return &job, nil
}

// FindActiveJob returns the newest pending or processing job for the pair, or nil
func (s *TranslationJobService) FindActiveJob(ctx context.Context, documentID string, lang models.Language) (*models.TranslationJob, error) {
	var job models.TranslationJob
	err := s.db.WithContext(ctx).
		Where("document_id = ? AND target_language = ? AND status IN ?", documentID, lang, models.ActiveTranslationStatuses()).
		Order("created_at DESC").
		First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// Begin moves a job to processing and counts the attempt. A job already in
// processing may be begun again (redelivery after a crash) while attempts remain.
func (s *TranslationJobService) Begin(ctx context.Context, jobID string) (*models.TranslationJob, error) {
	now := s.now()
	result := s.db.WithContext(ctx).Model(&models.TranslationJob{}).
		Where("id = ? AND status IN ? AND attempts < max_attempts", jobID, models.ActiveTranslationStatuses()).
		Updates(map[string]interface{}{
			"status":     models.TranslationStatusProcessing,
			"attempts":   gorm.Expr("attempts + 1"),
			"started_at": now,
			"updated_at": now,
		})
	if result.Error != nil {
		return nil, fmt.Errorf("failed to start translation job: %w", result.Error)
	}

	job, err := s.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if result.RowsAffected == 0 {
		if job.Status.IsTerminal() {
			return job, ErrJobTerminal
		}
		return job, ErrAttemptsExhausted
	}
	return job, nil
}

// Complete marks a processing job completed with its translated document
func (s *TranslationJobService) Complete(ctx context.Context, jobID, translatedDocumentID string) error {
	now := s.now()
	result := s.db.WithContext(ctx).Model(&models.TranslationJob{}).
		Where("id = ? AND status = ?", jobID, models.TranslationStatusProcessing).
		Updates(map[string]interface{}{
			"status":                 models.TranslationStatusCompleted,
			"translated_document_id": translatedDocumentID,
			"error_message":          "",
			"completed_at":           now,
			"updated_at":             now,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to complete translation job: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return s.transitionError(ctx, jobID, ErrJobNotProcessing)
	}
	return nil
}

// Fail marks a pending or processing job failed with message
func (s *TranslationJobService) Fail(ctx context.Context, jobID, message string) error {
	now := s.now()
	result := s.db.WithContext(ctx).Model(&models.TranslationJob{}).
		Where("id = ? AND status IN ?", jobID, models.ActiveTranslationStatuses()).
		Updates(map[string]interface{}{
			"status":        models.TranslationStatusFailed,
			"error_message": message,
			"completed_at":  now,
			"updated_at":    now,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to fail translation job: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return s.transitionError(ctx, jobID, ErrJobTerminal)
	}
	return nil
}

func (s *TranslationJobService) transitionError(ctx context.Context, jobID string, fallback error) error {
	job, err := s.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status.IsTerminal() {
		return ErrJobTerminal
	}
	return fallback
}

// GetTranslationStatus reports the state of translating documentID into lang.
// An existing translation document counts as completed even without a job record.
func (s *TranslationJobService) GetTranslationStatus(ctx context.Context, documentID string, lang models.Language) (*models.TranslationStatus, error) {
	status := &models.TranslationStatus{
		DocumentID:     documentID,
		TargetLanguage: lang,
	}

	var job models.TranslationJob
	err := s.db.WithContext(ctx).
		Where("document_id = ? AND target_language = ?", documentID, lang).
		Order("created_at DESC").
		First(&job).Error
	switch {
	case err == nil:
		status.Requested = true
		status.JobID = job.ID
		status.Status = job.Status
		status.ErrorMessage = job.ErrorMessage
		if job.TranslatedDocumentID != nil {
			status.TranslatedDocumentID = *job.TranslatedDocumentID
		}
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}

	var doc models.Document
	err = s.db.WithContext(ctx).
		Select("id").
		Where("translated_document_id = ? AND language = ?", documentID, lang).
		First(&doc).Error
	switch {
	case err == nil:
		status.Requested = true
		status.TranslatedDocumentID = doc.ID
		if status.Status == "" {
			status.Status = models.TranslationStatusCompleted
		}
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}

	return status, nil
}

// ListJobs returns recent jobs for a document, newest first
func (s *TranslationJobService) ListJobs(ctx context.Context, documentID string, limit int) ([]models.TranslationJob, error) {
	if limit <= 0 {
		limit = 50
	}
	var jobs []models.TranslationJob
	err := s.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("created_at DESC").
		Limit(limit).
		Find(&jobs).Error
	return jobs, err
}
