package handlers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/hoaportal/backend/internal/models"
	"github.com/hoaportal/backend/internal/services"
)

// TranslationHandler triggers document translations and reports their progress
type TranslationHandler struct {
	documents  *services.DocumentService
	jobs       *services.TranslationJobService
	dispatcher services.TranslationDispatcher
}

func NewTranslationHandler(documents *services.DocumentService, jobs *services.TranslationJobService, dispatcher services.TranslationDispatcher) *TranslationHandler {
	return &TranslationHandler{
		documents:  documents,
		jobs:       jobs,
		dispatcher: dispatcher,
	}
}

// RequestTranslation asks for a document to be translated.
// Returns the existing translation (200), the job already working on it (202),
// or a newly created and dispatched job (202).
// POST /api/documents/:id/translations
func (h *TranslationHandler) RequestTranslation(c *gin.Context) {
	var req models.RequestTranslationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	lang, ok := models.ParseLanguage(req.TargetLanguage)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "targetLanguage must be one of fr, en, ar"})
		return
	}

	ctx := c.Request.Context()
	doc, err := h.documents.GetDocument(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if doc.IsTranslation() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot translate a translation; request the original document"})
		return
	}
	if doc.Language == lang {
		c.JSON(http.StatusBadRequest, gin.H{"error": "document is already in " + lang.DisplayName()})
		return
	}

	status, err := h.jobs.GetTranslationStatus(ctx, doc.ID, lang)
	if err != nil {
		respondError(c, err)
		return
	}
	if status.TranslatedDocumentID != "" {
		c.JSON(http.StatusOK, models.RequestTranslationResponse{
			JobID:                status.JobID,
			Status:               models.TranslationStatusCompleted,
			TranslatedDocumentID: status.TranslatedDocumentID,
			Message:              "Translation already exists",
		})
		return
	}

	active, err := h.jobs.FindActiveJob(ctx, doc.ID, lang)
	if err != nil {
		respondError(c, err)
		return
	}
	if active != nil {
		c.JSON(http.StatusAccepted, models.RequestTranslationResponse{
			JobID:   active.ID,
			Status:  active.Status,
			Message: "Translation already in progress",
		})
		return
	}

	job, err := h.jobs.CreateJob(ctx, doc.ID, lang, req.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	event := services.TranslationEvent{
		DocumentID:     doc.ID,
		TargetLanguage: string(lang),
		UserID:         req.UserID,
		JobID:          job.ID,
	}
	if err := h.dispatcher.Dispatch(ctx, event); err != nil {
		log.Printf("Failed to dispatch translation job %s: %v", job.ID, err)
		if ferr := h.jobs.Fail(ctx, job.ID, "dispatch failed: "+err.Error()); ferr != nil {
			log.Printf("Failed to mark job %s as failed: %v", job.ID, ferr)
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":  "translation queue unavailable, please retry later",
			"job_id": job.ID,
		})
		return
	}

	c.JSON(http.StatusAccepted, models.RequestTranslationResponse{
		JobID:   job.ID,
		Status:  job.Status,
		Message: "Translation started",
	})
}

// GetTranslationStatus reports the state of one (document, language) translation
// GET /api/documents/:id/translations/:lang/status
func (h *TranslationHandler) GetTranslationStatus(c *gin.Context) {
	lang, ok := models.ParseLanguage(c.Param("lang"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported language: " + c.Param("lang")})
		return
	}

	status, err := h.jobs.GetTranslationStatus(c.Request.Context(), c.Param("id"), lang)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// ListJobs returns recent translation jobs for a document
// GET /api/documents/:id/translation-jobs?limit=
func (h *TranslationHandler) ListJobs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	jobs, err := h.jobs.ListJobs(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

// GetJob returns a translation job record
// GET /api/translation-jobs/:id
func (h *TranslationHandler) GetJob(c *gin.Context) {
	job, err := h.jobs.GetJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}
