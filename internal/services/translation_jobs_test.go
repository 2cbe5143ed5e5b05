package services

import (
	"context"
	"errors"
	"testing"

	"github.com/hoaportal/backend/internal/models"
)

func TestTranslationJobService_Lifecycle(t *testing.T) {
	db := newTestDB(t)
	svc := NewTranslationJobService(db, 3)
	ctx := context.Background()

	job, err := svc.CreateJob(ctx, "doc-1", models.LanguageFrench, "user-1")
	if err != nil {
		t.Fatalf("CreateJob() returned error: %v", err)
	}
	if job.Status != models.TranslationStatusPending || job.MaxAttempts != 3 {
		t.Errorf("New job = status %s, max attempts %d", job.Status, job.MaxAttempts)
	}

	started, err := svc.Begin(ctx, job.ID)
	if err != nil {
		t.Fatalf("Begin() returned error: %v", err)
	}
	if started.Status != models.TranslationStatusProcessing || started.Attempts != 1 {
		t.Errorf("Begun job = status %s, attempts %d", started.Status, started.Attempts)
	}
	if started.StartedAt == nil || started.StartedAt.Before(started.CreatedAt) {
		t.Errorf("StartedAt = %v, want >= CreatedAt %v", started.StartedAt, started.CreatedAt)
	}

	if err := svc.Complete(ctx, job.ID, "doc-1-fr"); err != nil {
		t.Fatalf("Complete() returned error: %v", err)
	}

	done, _ := svc.GetJob(ctx, job.ID)
	if done.Status != models.TranslationStatusCompleted {
		t.Errorf("Status = %s, want completed", done.Status)
	}
	if done.TranslatedDocumentID == nil || *done.TranslatedDocumentID != "doc-1-fr" {
		t.Errorf("TranslatedDocumentID = %v", done.TranslatedDocumentID)
	}
	if done.CompletedAt == nil || done.CompletedAt.Before(*done.StartedAt) {
		t.Errorf("CompletedAt = %v, want >= StartedAt %v", done.CompletedAt, done.StartedAt)
	}
	if done.ErrorMessage != "" {
		t.Errorf("ErrorMessage = %q on completed job", done.ErrorMessage)
	}
}

func TestTranslationJobService_TerminalStatesAreFinal(t *testing.T) {
	db := newTestDB(t)
	svc := NewTranslationJobService(db, 3)
	ctx := context.Background()

	job, _ := svc.CreateJob(ctx, "doc-1", models.LanguageArabic, "user-1")
	svc.Begin(ctx, job.ID)
	if err := svc.Fail(ctx, job.ID, "model unavailable"); err != nil {
		t.Fatalf("Fail() returned error: %v", err)
	}

	if _, err := svc.Begin(ctx, job.ID); !errors.Is(err, ErrJobTerminal) {
		t.Errorf("Begin() on failed job = %v, want ErrJobTerminal", err)
	}
	if err := svc.Complete(ctx, job.ID, "doc-x"); !errors.Is(err, ErrJobTerminal) {
		t.Errorf("Complete() on failed job = %v, want ErrJobTerminal", err)
	}
	if err := svc.Fail(ctx, job.ID, "again"); !errors.Is(err, ErrJobTerminal) {
		t.Errorf("Fail() on failed job = %v, want ErrJobTerminal", err)
	}

	got, _ := svc.GetJob(ctx, job.ID)
	if got.Status != models.TranslationStatusFailed || got.ErrorMessage != "model unavailable" {
		t.Errorf("Job changed after terminal state: status %s, message %q", got.Status, got.ErrorMessage)
	}
}

func TestTranslationJobService_AttemptsBounded(t *testing.T) {
	db := newTestDB(t)
	svc := NewTranslationJobService(db, 2)
	ctx := context.Background()

	job, _ := svc.CreateJob(ctx, "doc-1", models.LanguageEnglish, "user-1")
	for i := 0; i < 2; i++ {
		if _, err := svc.Begin(ctx, job.ID); err != nil {
			t.Fatalf("Begin() #%d returned error: %v", i+1, err)
		}
	}

	got, err := svc.Begin(ctx, job.ID)
	if !errors.Is(err, ErrAttemptsExhausted) {
		t.Errorf("Begin() past max attempts = %v, want ErrAttemptsExhausted", err)
	}
	if got.Attempts != 2 {
		t.Errorf("Attempts = %d, want 2", got.Attempts)
	}
}

func TestTranslationJobService_CompleteRequiresProcessing(t *testing.T) {
	db := newTestDB(t)
	svc := NewTranslationJobService(db, 3)
	ctx := context.Background()

	job, _ := svc.CreateJob(ctx, "doc-1", models.LanguageEnglish, "user-1")
	if err := svc.Complete(ctx, job.ID, "doc-2"); !errors.Is(err, ErrJobNotProcessing) {
		t.Errorf("Complete() on pending job = %v, want ErrJobNotProcessing", err)
	}
	if _, err := svc.GetJob(ctx, "missing"); !IsNotFound(err) {
		t.Errorf("GetJob(missing) = %v, want NotFoundError", err)
	}
}

func TestTranslationJobService_GetTranslationStatus(t *testing.T) {
	db := newTestDB(t)
	svc := NewTranslationJobService(db, 3)
	ctx := context.Background()

	status, err := svc.GetTranslationStatus(ctx, "doc-1", models.LanguageFrench)
	if err != nil {
		t.Fatalf("GetTranslationStatus() returned error: %v", err)
	}
	if status.Requested || status.IsDone() {
		t.Errorf("Expected unrequested status, got %+v", status)
	}

	job, _ := svc.CreateJob(ctx, "doc-1", models.LanguageFrench, "user-1")
	status, _ = svc.GetTranslationStatus(ctx, "doc-1", models.LanguageFrench)
	if !status.Requested || status.Status != models.TranslationStatusPending || status.JobID != job.ID {
		t.Errorf("Expected pending status for job %s, got %+v", job.ID, status)
	}

	active, _ := svc.FindActiveJob(ctx, "doc-1", models.LanguageFrench)
	if active == nil || active.ID != job.ID {
		t.Errorf("FindActiveJob() = %v, want %s", active, job.ID)
	}

	// A translation that predates job records still reports completed
	if err := db.Create(&models.Document{
		ID: "doc-1-ar", Title: "x (Arabic)", Language: models.LanguageArabic, TranslatedDocumentID: strPtr("doc-1"),
	}).Error; err != nil {
		t.Fatalf("failed to seed translation: %v", err)
	}
	status, _ = svc.GetTranslationStatus(ctx, "doc-1", models.LanguageArabic)
	if status.Status != models.TranslationStatusCompleted || status.TranslatedDocumentID != "doc-1-ar" || !status.IsDone() {
		t.Errorf("Expected completed status from existing translation, got %+v", status)
	}
}
