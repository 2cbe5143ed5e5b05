package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hoaportal/backend/internal/models"
)

const (
	// maxDocumentFetchSize bounds how much of an original file is downloaded for extraction
	maxDocumentFetchSize = 50 << 20
	documentFetchTimeout = 2 * time.Minute
	fetchURLExpiry       = 5 * time.Minute
)

// DocumentMaterializer produces the translated document for an original in a
// target language, creating it at most once per (original, language).
type DocumentMaterializer struct {
	db         *gorm.DB
	files      FileStore
	translator TextTranslator
	httpClient *http.Client
}

// NewDocumentMaterializer creates a materializer
func NewDocumentMaterializer(db *gorm.DB, files FileStore, translator TextTranslator) *DocumentMaterializer {
	return &DocumentMaterializer{
		db:         db,
		files:      files,
		translator: translator,
		httpClient: &http.Client{Timeout: documentFetchTimeout},
	}
}

// GetOrCreateTranslatedDocument returns the translation of originalID into lang,
// creating it if it does not exist yet
func (m *DocumentMaterializer) GetOrCreateTranslatedDocument(ctx context.Context, originalID string, lang models.Language) (*models.Document, error) {
	return m.CreateTranslatedDocument(ctx, originalID, lang)
}

// CreateTranslatedDocument materializes the translation of originalID into lang.
// Calling it again for the same pair returns the existing translation unchanged.
// Documents whose text cannot be extracted get a metadata-only placeholder that
// shares the original's file.
func (m *DocumentMaterializer) CreateTranslatedDocument(ctx context.Context, originalID string, lang models.Language) (*models.Document, error) {
	if !lang.IsValid() {
		return nil, &ValidationError{Message: fmt.Sprintf("unsupported target language: %q", lang)}
	}

	var original models.Document
	if err := m.db.WithContext(ctx).First(&original, "id = ?", originalID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "document", ID: originalID}
		}
		return nil, fmt.Errorf("failed to load document: %w", err)
	}

	if original.IsTranslation() {
		return nil, &ValidationError{Message: fmt.Sprintf("document %s is a translation of %s; translate the original instead", original.ID, *original.TranslatedDocumentID)}
	}
	if original.Language == lang {
		return nil, &ValidationError{Message: fmt.Sprintf("document %s is already in %s", original.ID, lang.DisplayName())}
	}

	existing, err := m.findTranslation(ctx, original.ID, lang)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		debugLog("Translation of %s into %s already exists: %s", original.ID, lang, existing.ID)
		return existing, nil
	}

	format := classifyFormat(original.FileType, original.FileName)
	if format == formatUnsupported || original.FileKey == "" {
		infoLog("Document %s (%s) has no extractable text; creating placeholder in %s", original.ID, original.FileType, lang)
		return m.persist(ctx, &original, m.placeholderFor(&original, lang), false)
	}

	data, err := m.fetch(ctx, original.FileKey)
	if err != nil {
		return nil, newTranslationError(err, "failed to fetch document content")
	}

	if format == formatUnknown {
		format = sniffFormat(data)
		if format == formatUnsupported {
			infoLog("Document %s content is not extractable; creating placeholder in %s", original.ID, lang)
			return m.persist(ctx, &original, m.placeholderFor(&original, lang), false)
		}
	}

	text, err := extractText(format, data)
	if err != nil {
		return nil, newTranslationError(err, "failed to extract document text")
	}

	infoLog("Translating document %s (%s, %d chars) %s -> %s", original.ID, format, len([]rune(text)), original.Language, lang)

	translated, err := m.translator.Translate(ctx, text, original.Language, lang)
	if err != nil {
		if IsTranslationError(err) {
			return nil, err
		}
		return nil, newTranslationError(err, "translation call failed")
	}

	doc := m.translationFor(&original, lang, translated)
	if err := m.files.Put(ctx, doc.FileKey, strings.NewReader(translated), doc.FileType); err != nil {
		return nil, newTranslationError(err, "failed to store translated content")
	}

	return m.persist(ctx, &original, doc, true)
}

// findTranslation returns the translation of originalID in lang, or nil
func (m *DocumentMaterializer) findTranslation(ctx context.Context, originalID string, lang models.Language) (*models.Document, error) {
	var doc models.Document
	err := m.db.WithContext(ctx).
		Where("translated_document_id = ? AND language = ?", originalID, lang).
		First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up translation: %w", err)
	}
	return &doc, nil
}

// persist creates doc and flags original as translated in one transaction.
// If another worker created the same translation first, theirs is returned and
// any object uploaded for doc is removed.
func (m *DocumentMaterializer) persist(ctx context.Context, original, doc *models.Document, ownsFile bool) (*models.Document, error) {
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(doc).Error; err != nil {
			return err
		}
		return tx.Model(&models.Document{}).
			Where("id = ?", original.ID).
			Update("is_translated", true).Error
	})
	if err == nil {
		infoLog("Created %s translation %s of document %s", doc.Language.DisplayName(), doc.ID, original.ID)
		return doc, nil
	}

	if ownsFile {
		if delErr := m.files.Delete(context.WithoutCancel(ctx), doc.FileKey); delErr != nil {
			infoLog("Warning: failed to remove orphaned object %s: %v", doc.FileKey, delErr)
		}
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		existing, findErr := m.findTranslation(ctx, original.ID, doc.Language)
		if findErr == nil && existing != nil {
			debugLog("Lost creation race for %s/%s; using %s", original.ID, doc.Language, existing.ID)
			return existing, nil
		}
	}
	return nil, fmt.Errorf("failed to save translated document: %w", err)
}

func (m *DocumentMaterializer) translationFor(original *models.Document, lang models.Language, text string) *models.Document {
	id := uuid.New().String()
	originalID := original.ID
	return &models.Document{
		ID:                   id,
		CommunityID:          original.CommunityID,
		Title:                models.TranslatedTitle(original.Title, lang),
		Description:          original.Description,
		Category:             original.Category,
		Language:             lang,
		FileKey:              fmt.Sprintf("documents/%s/%s.txt", id, lang),
		FileName:             translatedFileName(original.FileName, lang),
		FileType:             "text/plain; charset=utf-8",
		FileSize:             int64(len(text)),
		IsPublished:          original.IsPublished,
		AuthorID:             original.AuthorID,
		TranslatedDocumentID: &originalID,
		IsTranslated:         true,
	}
}

// placeholderFor builds a metadata-only translation pointing at the original's file
func (m *DocumentMaterializer) placeholderFor(original *models.Document, lang models.Language) *models.Document {
	originalID := original.ID
	note := "Original in " + original.Language.DisplayName()
	description := note
	if original.Description != "" {
		description = original.Description + "\n\n" + note
	}

	return &models.Document{
		ID:                   uuid.New().String(),
		CommunityID:          original.CommunityID,
		Title:                models.TranslatedTitle(original.Title, lang),
		Description:          description,
		Category:             original.Category,
		Language:             lang,
		FileKey:              original.FileKey,
		FileName:             original.FileName,
		FileType:             original.FileType,
		FileSize:             original.FileSize,
		IsPublished:          original.IsPublished,
		AuthorID:             original.AuthorID,
		TranslatedDocumentID: &originalID,
		IsTranslated:         true,
	}
}

// fetch downloads an object through its signed URL
func (m *DocumentMaterializer) fetch(ctx context.Context, key string) ([]byte, error) {
	signed, err := m.files.SignedURL(ctx, key, fetchURLExpiry)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, signed, nil)
	if err != nil {
		return nil, err
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("storage returned status %d", resp.StatusCode)
	}

	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(resp.Body, maxDocumentFetchSize+1))
	if err != nil {
		return nil, err
	}
	if n > maxDocumentFetchSize {
		return nil, fmt.Errorf("document exceeds %d bytes", maxDocumentFetchSize)
	}
	return buf.Bytes(), nil
}

// translatedFileName turns "bylaws.pdf" into "bylaws.fr.txt"
func translatedFileName(name string, lang models.Language) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	if base == "" {
		base = "document"
	}
	return base + "." + string(lang) + ".txt"
}
