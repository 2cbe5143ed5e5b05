package handlers

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"

	"github.com/hoaportal/backend/internal/models"
	"github.com/hoaportal/backend/internal/services"
)

const maxDocumentSize = 50 * 1024 * 1024 // 50MB

// DocumentHandler serves the community document library
type DocumentHandler struct {
	documents *services.DocumentService
}

func NewDocumentHandler(documents *services.DocumentService) *DocumentHandler {
	return &DocumentHandler{documents: documents}
}

// UploadDocument stores a new original document
// POST /api/documents
func (h *DocumentHandler) UploadDocument(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxDocumentSize+1024*1024)
	if err := c.Request.ParseMultipartForm(maxDocumentSize); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to parse form: " + err.Error()})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	if fileHeader.Size > maxDocumentSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large (max 50MB)"})
		return
	}

	lang, ok := models.ParseLanguage(c.PostForm("language"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "language must be one of fr, en, ar"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to open file"})
		return
	}
	defer file.Close()

	// Trust content over the client-supplied header
	detected, err := mimetype.DetectReader(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read file"})
		return
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read file"})
		return
	}

	published, _ := strconv.ParseBool(c.DefaultPostForm("is_published", "false"))
	doc := &models.Document{
		Title:       strings.TrimSpace(c.PostForm("title")),
		Description: c.PostForm("description"),
		Category:    models.DocumentCategory(c.PostForm("category")),
		Language:    lang,
		FileName:    fileHeader.Filename,
		FileType:    detected.String(),
		FileSize:    fileHeader.Size,
		AuthorID:    c.PostForm("author_id"),
		CommunityID: c.PostForm("community_id"),
		IsPublished: published,
	}

	if err := h.documents.CreateDocument(c.Request.Context(), doc, file); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, doc)
}

// ListDocuments returns documents matching the query filters
// GET /api/documents?category=&language=&originals=true&limit=&offset=
func (h *DocumentHandler) ListDocuments(c *gin.Context) {
	filter := models.DocumentListFilter{
		OriginalsOnly: c.Query("originals") == "true",
	}
	if category := c.Query("category"); category != "" {
		filter.Category = models.NormalizeCategory(category)
	}
	if language := c.Query("language"); language != "" {
		lang, ok := models.ParseLanguage(language)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported language: " + language})
			return
		}
		filter.Language = lang
	}
	filter.Limit, _ = strconv.Atoi(c.Query("limit"))
	filter.Offset, _ = strconv.Atoi(c.Query("offset"))

	docs, total, err := h.documents.ListDocuments(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"documents": docs,
		"total":     total,
	})
}

// GetDocument returns a document with its translations
// GET /api/documents/:id
func (h *DocumentHandler) GetDocument(c *gin.Context) {
	doc, err := h.documents.GetDocumentWithTranslations(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

// DownloadDocument returns a short-lived URL for the document's file
// GET /api/documents/:id/download
func (h *DocumentHandler) DownloadDocument(c *gin.Context) {
	url, expiresAt, err := h.documents.DownloadURL(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"url":        url,
		"expires_at": expiresAt,
	})
}
