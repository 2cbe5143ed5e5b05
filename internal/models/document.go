package models

import (
	"strings"
	"time"
)

// Language is a document language supported by the portal
type Language string

const (
	LanguageFrench  Language = "fr"
	LanguageEnglish Language = "en"
	LanguageArabic  Language = "ar"
)

var languageNames = map[Language]string{
	LanguageFrench:  "French",
	LanguageEnglish: "English",
	LanguageArabic:  "Arabic",
}

// SupportedLanguages returns all languages a document can be translated into
func SupportedLanguages() []Language {
	return []Language{LanguageFrench, LanguageEnglish, LanguageArabic}
}

// IsValid returns true if the language is one of the supported languages
func (l Language) IsValid() bool {
	_, ok := languageNames[l]
	return ok
}

// DisplayName returns the English name of the language (e.g. "French")
func (l Language) DisplayName() string {
	if name, ok := languageNames[l]; ok {
		return name
	}
	return string(l)
}

// ParseLanguage accepts either a code ("fr") or an English name ("French")
func ParseLanguage(s string) (Language, bool) {
	s = strings.TrimSpace(s)
	if l := Language(strings.ToLower(s)); l.IsValid() {
		return l, true
	}
	for code, name := range languageNames {
		if strings.EqualFold(name, s) {
			return code, true
		}
	}
	return "", false
}

// DocumentCategory groups community documents
type DocumentCategory string

const (
	CategoryGeneral   DocumentCategory = "general"
	CategoryMinutes   DocumentCategory = "minutes"
	CategoryBylaws    DocumentCategory = "bylaws"
	CategoryFinancial DocumentCategory = "financial"
	CategoryNotice    DocumentCategory = "notice"
	CategoryForm      DocumentCategory = "form"
)

// NormalizeCategory maps free-form input to a known category, defaulting to general
func NormalizeCategory(s string) DocumentCategory {
	switch c := DocumentCategory(strings.ToLower(strings.TrimSpace(s))); c {
	case CategoryMinutes, CategoryBylaws, CategoryFinancial, CategoryNotice, CategoryForm:
		return c
	default:
		return CategoryGeneral
	}
}

// Document is a stored community file with its metadata.
//
// Translations form a tree of depth 1: an original has a nil TranslatedDocumentID,
// a translation points at exactly one original and never at another translation.
// IsTranslated on an original is informational; the authoritative state is the
// set of rows pointing back at it.
type Document struct {
	ID                   string           `json:"id" gorm:"primaryKey;size:36"`
	CommunityID          string           `json:"community_id,omitempty" gorm:"size:36;index"`
	Title                string           `json:"title" gorm:"not null"`
	Description          string           `json:"description"`
	Category             DocumentCategory `json:"category" gorm:"not null;default:'general';index"`
	Language             Language         `json:"language" gorm:"not null;size:5;uniqueIndex:idx_translation_language,priority:2"`
	FileKey              string           `json:"file_key"`  // Storage object key
	FileName             string           `json:"file_name"` // Original upload filename
	FileType             string           `json:"file_type"` // MIME type
	FileSize             int64            `json:"file_size"`
	IsPublished          bool             `json:"is_published" gorm:"default:false"`
	AuthorID             string           `json:"author_id" gorm:"size:36;index"`
	TranslatedDocumentID *string          `json:"translated_document_id" gorm:"size:36;uniqueIndex:idx_translation_language,priority:1"`
	IsTranslated         bool             `json:"is_translated" gorm:"default:false"`
	CreatedAt            time.Time        `json:"created_at"`
	UpdatedAt            time.Time        `json:"updated_at"`

	// Transient, populated by handlers
	Translations []Document `json:"translations,omitempty" gorm:"-"`
}

// IsTranslation returns true if this document is a translation of another document
func (d *Document) IsTranslation() bool {
	return d.TranslatedDocumentID != nil && *d.TranslatedDocumentID != ""
}

// TranslatedTitle builds the title used for a translation, e.g. "Bylaws 2024 (French)"
func TranslatedTitle(originalTitle string, lang Language) string {
	return originalTitle + " (" + lang.DisplayName() + ")"
}

// DocumentListFilter narrows document listings
type DocumentListFilter struct {
	Category      DocumentCategory
	Language      Language
	OriginalsOnly bool
	Limit         int
	Offset        int
}
