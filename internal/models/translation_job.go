package models

import (
	"time"
)

// TranslationJobStatus represents the status of a translation job
type TranslationJobStatus string

const (
	TranslationStatusPending    TranslationJobStatus = "pending"
	TranslationStatusProcessing TranslationJobStatus = "processing"
	TranslationStatusCompleted  TranslationJobStatus = "completed"
	TranslationStatusFailed     TranslationJobStatus = "failed"
)

// IsTerminal returns true for completed and failed; no transition leaves these states
func (s TranslationJobStatus) IsTerminal() bool {
	return s == TranslationStatusCompleted || s == TranslationStatusFailed
}

// ActiveTranslationStatuses are the statuses of jobs that may still make progress
func ActiveTranslationStatuses() []string {
	return []string{
		string(TranslationStatusPending),
		string(TranslationStatusProcessing),
	}
}

// DefaultMaxAttempts is used when a job is created without an explicit limit
const DefaultMaxAttempts = 3

// TranslationJob is one request to translate a document into a target language.
// Attempts never exceeds MaxAttempts. StartedAt is set no earlier than CreatedAt,
// CompletedAt no earlier than StartedAt.
type TranslationJob struct {
	ID                   string               `json:"id" gorm:"primaryKey;size:36"`
	DocumentID           string               `json:"document_id" gorm:"not null;size:36;index:idx_job_document_language"`
	TargetLanguage       Language             `json:"target_language" gorm:"not null;size:5;index:idx_job_document_language"`
	UserID               string               `json:"user_id" gorm:"size:36"`
	Status               TranslationJobStatus `json:"status" gorm:"not null;default:'pending';index"`
	ErrorMessage         string               `json:"error_message,omitempty"`
	TranslatedDocumentID *string              `json:"translated_document_id,omitempty" gorm:"size:36"`
	Attempts             int                  `json:"attempts" gorm:"not null;default:0"`
	MaxAttempts          int                  `json:"max_attempts" gorm:"not null;default:3"`
	CreatedAt            time.Time            `json:"created_at"`
	StartedAt            *time.Time           `json:"started_at,omitempty"`
	CompletedAt          *time.Time           `json:"completed_at,omitempty"`
	UpdatedAt            time.Time            `json:"updated_at"`
}

// AttemptsExhausted returns true if the job may not be started again
func (j *TranslationJob) AttemptsExhausted() bool {
	return j.Attempts >= j.MaxAttempts
}

// TranslationStatus is the polled view of a (document, language) translation.
// Requested is false when no job and no translation exist; pollers must not poll then.
type TranslationStatus struct {
	DocumentID           string               `json:"document_id"`
	TargetLanguage       Language             `json:"target_language"`
	Status               TranslationJobStatus `json:"status,omitempty"`
	Requested            bool                 `json:"requested"`
	JobID                string               `json:"job_id,omitempty"`
	TranslatedDocumentID string               `json:"translated_document_id,omitempty"`
	ErrorMessage         string               `json:"error_message,omitempty"`
}

// IsDone returns true once the status is terminal or the translation document exists
func (s *TranslationStatus) IsDone() bool {
	return s.Status.IsTerminal() || s.TranslatedDocumentID != ""
}

// RequestTranslationRequest is the body of POST /api/documents/:id/translations
type RequestTranslationRequest struct {
	TargetLanguage string `json:"targetLanguage" binding:"required"`
	UserID         string `json:"userId" binding:"required"`
}

// RequestTranslationResponse is returned when a translation is requested
type RequestTranslationResponse struct {
	JobID                string               `json:"job_id,omitempty"`
	Status               TranslationJobStatus `json:"status"`
	TranslatedDocumentID string               `json:"translated_document_id,omitempty"`
	Message              string               `json:"message"`
}
