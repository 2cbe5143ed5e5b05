package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/hoaportal/backend/internal/metrics"
	"github.com/hoaportal/backend/internal/models"
)

// Step names reported by the runner
const (
	StepTranslateDocument = "translate-document"
	StepLogComplete       = "log-complete"
	StepLogError          = "log-error"
)

const (
	runSucceededMessage = "Document translation completed successfully"
	runFailedMessage    = "Document translation failed"
)

// TranslationEvent is the payload of a document/translate event.
// JobID is empty when the event was emitted without a job record.
type TranslationEvent struct {
	DocumentID     string `json:"documentId" validate:"required"`
	TargetLanguage string `json:"targetLanguage" validate:"required,oneof=fr en ar"`
	UserID         string `json:"userId" validate:"required"`
	JobID          string `json:"jobId,omitempty"`
}

// RunResult is the outcome of one runner invocation. Exactly one of
// DocumentID (on success) and Error (on failure) is set.
type RunResult struct {
	Success    bool   `json:"success"`
	DocumentID string `json:"documentId,omitempty"`
	Error      string `json:"error,omitempty"`
	Message    string `json:"message"`
}

// StepFunc is one unit of runner work
type StepFunc func(ctx context.Context) error

// StepRunner executes named steps in order
type StepRunner interface {
	Run(ctx context.Context, name string, fn StepFunc) error
}

// SequentialSteps runs each step inline, turning panics into errors
type SequentialSteps struct{}

// Run executes fn and records its outcome
func (SequentialSteps) Run(ctx context.Context, name string, fn StepFunc) (err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("step %s panicked: %v", name, r)
		}
		result := "ok"
		if err != nil {
			result = "error"
		}
		metrics.TranslationStepsTotal.WithLabelValues(name, result).Inc()
		debugLog("Step %s finished in %v (%s)", name, time.Since(start), result)
	}()
	return fn(ctx)
}

// TranslatedDocumentSource produces the translated document for an original
type TranslatedDocumentSource interface {
	GetOrCreateTranslatedDocument(ctx context.Context, originalID string, lang models.Language) (*models.Document, error)
}

// TranslationRunner executes translation events against the job record and materializer
type TranslationRunner struct {
	jobs      *TranslationJobService
	documents TranslatedDocumentSource
	validate  *validator.Validate
}

// NewTranslationRunner creates a runner
func NewTranslationRunner(jobs *TranslationJobService, documents TranslatedDocumentSource) *TranslationRunner {
	return &TranslationRunner{
		jobs:      jobs,
		documents: documents,
		validate:  validator.New(),
	}
}

// TranslateDocument handles one event in two steps: the translation itself,
// then recording the outcome on the job. It never returns an error or panics;
// failures are reported in the result.
func (r *TranslationRunner) TranslateDocument(ctx context.Context, event TranslationEvent, steps StepRunner) (result RunResult) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			infoLog("Runner panic for document %s: %v", event.DocumentID, rec)
			result = failedResult(fmt.Errorf("unexpected error: %v", rec))
		}
		outcome := "success"
		if !result.Success {
			outcome = "failure"
		}
		metrics.TranslationJobsTotal.WithLabelValues(outcome).Inc()
		metrics.TranslationJobDuration.Observe(time.Since(start).Seconds())
	}()

	jobID := event.JobID
	var (
		doc      *models.Document
		finished *models.TranslationJob
		// set when the job row belongs to another delivery and must not be written
		leaveJob bool
	)

	workErr := steps.Run(ctx, StepTranslateDocument, func(ctx context.Context) error {
		if err := r.validate.Struct(event); err != nil {
			return &ValidationError{Message: "invalid translation event: " + err.Error()}
		}
		lang, _ := models.ParseLanguage(event.TargetLanguage)

		if jobID == "" {
			job, err := r.jobs.CreateJob(ctx, event.DocumentID, lang, event.UserID)
			if err != nil {
				return err
			}
			jobID = job.ID
		} else {
			job, err := r.jobs.GetJob(ctx, jobID)
			if err != nil {
				leaveJob = true
				return err
			}
			if job.DocumentID != event.DocumentID || job.TargetLanguage != lang {
				leaveJob = true
				return &ValidationError{Message: fmt.Sprintf(
					"translation event for document %s (%s) does not match job %s for document %s (%s)",
					event.DocumentID, lang, job.ID, job.DocumentID, job.TargetLanguage)}
			}
		}

		job, err := r.jobs.Begin(ctx, jobID)
		if errors.Is(err, ErrJobTerminal) {
			// Redelivered event; report what already happened
			finished = job
			return nil
		}
		if errors.Is(err, ErrAttemptsExhausted) {
			// Another delivery still holds the job; the sweeper fails it if that run dies
			leaveJob = true
			return err
		}
		if err != nil {
			return err
		}

		infoLog("Job %s: translating document %s into %s (attempt %d/%d)",
			jobID, event.DocumentID, lang, job.Attempts, job.MaxAttempts)

		doc, err = r.documents.GetOrCreateTranslatedDocument(ctx, event.DocumentID, lang)
		return err
	})

	// Outcome is recorded even if the caller's context was cancelled mid-translation
	recordCtx := context.WithoutCancel(ctx)

	if finished != nil {
		return r.reportFinished(recordCtx, finished, steps)
	}

	if workErr != nil {
		if err := steps.Run(recordCtx, StepLogError, func(ctx context.Context) error {
			infoLog("Job %s: translation of document %s failed: %v", jobID, event.DocumentID, workErr)
			if jobID == "" || leaveJob {
				return nil
			}
			if err := r.jobs.Fail(ctx, jobID, workErr.Error()); err != nil && !errors.Is(err, ErrJobTerminal) {
				return err
			}
			return nil
		}); err != nil {
			infoLog("Warning: job %s: failed to record failure: %v", jobID, err)
		}
		return failedResult(workErr)
	}

	if err := steps.Run(recordCtx, StepLogComplete, func(ctx context.Context) error {
		infoLog("Job %s: document %s translated as %s", jobID, event.DocumentID, doc.ID)
		return r.jobs.Complete(ctx, jobID, doc.ID)
	}); err != nil {
		// The document exists; status queries see it even if the job row lags
		infoLog("Warning: job %s: failed to record completion: %v", jobID, err)
	}

	return RunResult{
		Success:    true,
		DocumentID: doc.ID,
		Message:    runSucceededMessage,
	}
}

// reportFinished reports a job that reached a terminal state in an earlier delivery
func (r *TranslationRunner) reportFinished(ctx context.Context, job *models.TranslationJob, steps StepRunner) RunResult {
	if job.Status == models.TranslationStatusCompleted && job.TranslatedDocumentID != nil {
		_ = steps.Run(ctx, StepLogComplete, func(context.Context) error {
			infoLog("Job %s already completed; skipping", job.ID)
			return nil
		})
		return RunResult{
			Success:    true,
			DocumentID: *job.TranslatedDocumentID,
			Message:    runSucceededMessage,
		}
	}

	_ = steps.Run(ctx, StepLogError, func(context.Context) error {
		infoLog("Job %s already %s; skipping", job.ID, job.Status)
		return nil
	})
	msg := job.ErrorMessage
	if msg == "" {
		msg = "translation job already " + string(job.Status)
	}
	return RunResult{
		Success: false,
		Error:   msg,
		Message: runFailedMessage,
	}
}

func failedResult(err error) RunResult {
	return RunResult{
		Success: false,
		Error:   err.Error(),
		Message: runFailedMessage,
	}
}
