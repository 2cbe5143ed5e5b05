package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hoaportal/backend/internal/models"
)

const (
	defaultDocumentPageSize = 50
	maxDocumentPageSize     = 200
	defaultSignedURLTTL     = 15 * time.Minute
)

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// DocumentService manages community documents and their stored files
type DocumentService struct {
	db     *gorm.DB
	files  FileStore
	urlTTL time.Duration
}

// NewDocumentService creates a document service
func NewDocumentService(db *gorm.DB, files FileStore, urlTTL time.Duration) *DocumentService {
	if urlTTL <= 0 {
		urlTTL = defaultSignedURLTTL
	}
	return &DocumentService{db: db, files: files, urlTTL: urlTTL}
}

// CreateDocument stores body and inserts doc. ID and FileKey are assigned here.
func (s *DocumentService) CreateDocument(ctx context.Context, doc *models.Document, body io.Reader) error {
	if strings.TrimSpace(doc.Title) == "" {
		return &ValidationError{Message: "title is required"}
	}
	if !doc.Language.IsValid() {
		return &ValidationError{Message: fmt.Sprintf("unsupported language: %q", doc.Language)}
	}
	// Uploads are always originals
	doc.TranslatedDocumentID = nil
	doc.IsTranslated = false
	doc.Category = models.NormalizeCategory(string(doc.Category))

	doc.ID = uuid.New().String()
	doc.FileKey = fmt.Sprintf("documents/%s/%s", doc.ID, safeFileName(doc.FileName))

	if err := s.files.Put(ctx, doc.FileKey, body, doc.FileType); err != nil {
		return fmt.Errorf("failed to store file: %w", err)
	}

	if err := s.db.WithContext(ctx).Create(doc).Error; err != nil {
		if delErr := s.files.Delete(context.WithoutCancel(ctx), doc.FileKey); delErr != nil {
			infoLog("Warning: failed to remove orphaned upload %s: %v", doc.FileKey, delErr)
		}
		return fmt.Errorf("failed to save document: %w", err)
	}
	return nil
}

// GetDocument retrieves a document by ID
func (s *DocumentService) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	var doc models.Document
	if err := s.db.WithContext(ctx).First(&doc, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "document", ID: id}
		}
		return nil, err
	}
	return &doc, nil
}

// GetDocumentWithTranslations retrieves a document and, for originals, its translations
func (s *DocumentService) GetDocumentWithTranslations(ctx context.Context, id string) (*models.Document, error) {
	doc, err := s.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.IsTranslation() {
		return doc, nil
	}

	if err := s.db.WithContext(ctx).
		Where("translated_document_id = ?", doc.ID).
		Order("language ASC").
		Find(&doc.Translations).Error; err != nil {
		return nil, err
	}
	return doc, nil
}

// ListDocuments returns a page of documents matching filter and the total match count
func (s *DocumentService) ListDocuments(ctx context.Context, filter models.DocumentListFilter) ([]models.Document, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Document{})
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.Language != "" {
		query = query.Where("language = ?", filter.Language)
	}
	if filter.OriginalsOnly {
		query = query.Where("translated_document_id IS NULL")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultDocumentPageSize
	}
	if limit > maxDocumentPageSize {
		limit = maxDocumentPageSize
	}

	var docs []models.Document
	if err := query.Order("created_at DESC").Limit(limit).Offset(filter.Offset).Find(&docs).Error; err != nil {
		return nil, 0, err
	}
	return docs, total, nil
}

// DownloadURL returns a signed URL for a document's file
func (s *DocumentService) DownloadURL(ctx context.Context, id string) (string, time.Time, error) {
	doc, err := s.GetDocument(ctx, id)
	if err != nil {
		return "", time.Time{}, err
	}
	if doc.FileKey == "" {
		return "", time.Time{}, &NotFoundError{Resource: "file", ID: id}
	}

	expiresAt := time.Now().Add(s.urlTTL)
	signed, err := s.files.SignedURL(ctx, doc.FileKey, s.urlTTL)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// safeFileName keeps the extension and a filesystem-safe base name
func safeFileName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = unsafeFileChars.ReplaceAllString(name, "_")
	for strings.Contains(name, "..") {
		name = strings.ReplaceAll(name, "..", ".")
	}
	name = strings.Trim(name, "._")
	if name == "" {
		return "file"
	}
	return name
}
