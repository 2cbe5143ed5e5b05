package services

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/hoaportal/backend/internal/models"
)

func TestCreateTranslatedDocument_TextDocument(t *testing.T) {
	db := newTestDB(t)
	files := newMemFileStore(t)
	translator := &fakeTranslator{}
	m := NewDocumentMaterializer(db, files, translator)

	seedDocument(t, db, files, models.Document{
		ID:          "doc-1",
		CommunityID: "community-1",
		Title:       "Règlement intérieur",
		Description: "Règles de la copropriété",
		Category:    models.CategoryBylaws,
		Language:    models.LanguageFrench,
		FileName:    "reglement.txt",
		FileType:    "text/plain",
		IsPublished: true,
		AuthorID:    "user-1",
	}, "Article 1\n\n- Pas de bruit après 22h")

	doc, err := m.CreateTranslatedDocument(context.Background(), "doc-1", models.LanguageEnglish)
	if err != nil {
		t.Fatalf("CreateTranslatedDocument() returned error: %v", err)
	}

	if doc.Title != "Règlement intérieur (English)" {
		t.Errorf("Title = %q", doc.Title)
	}
	if doc.TranslatedDocumentID == nil || *doc.TranslatedDocumentID != "doc-1" {
		t.Errorf("TranslatedDocumentID = %v, want doc-1", doc.TranslatedDocumentID)
	}
	if !doc.IsTranslated || doc.Language != models.LanguageEnglish {
		t.Errorf("Expected translated English document, got IsTranslated=%v Language=%s", doc.IsTranslated, doc.Language)
	}
	if doc.CommunityID != "community-1" || doc.Category != models.CategoryBylaws || !doc.IsPublished {
		t.Error("Expected metadata to be copied from the original")
	}
	if translator.calls.Load() != 1 {
		t.Errorf("Expected 1 translator call, got %d", translator.calls.Load())
	}

	stored, ok := files.object(doc.FileKey)
	if !ok {
		t.Fatalf("Expected translated content stored at %s", doc.FileKey)
	}
	if string(stored) != "[en] Article 1\n\n- Pas de bruit après 22h" {
		t.Errorf("Stored content = %q", stored)
	}
	if doc.FileSize != int64(len(stored)) {
		t.Errorf("FileSize = %d, want %d", doc.FileSize, len(stored))
	}

	var original models.Document
	db.First(&original, "id = ?", "doc-1")
	if !original.IsTranslated {
		t.Error("Expected original to be flagged as translated")
	}
}

func TestCreateTranslatedDocument_Idempotent(t *testing.T) {
	db := newTestDB(t)
	files := newMemFileStore(t)
	translator := &fakeTranslator{}
	m := NewDocumentMaterializer(db, files, translator)

	seedDocument(t, db, files, models.Document{
		ID: "doc-1", Title: "Minutes", Language: models.LanguageEnglish,
		FileName: "minutes.md", FileType: "text/markdown",
	}, "# Minutes\nQuorum reached.")

	ctx := context.Background()
	first, err := m.CreateTranslatedDocument(ctx, "doc-1", models.LanguageArabic)
	if err != nil {
		t.Fatalf("first call returned error: %v", err)
	}
	second, err := m.GetOrCreateTranslatedDocument(ctx, "doc-1", models.LanguageArabic)
	if err != nil {
		t.Fatalf("second call returned error: %v", err)
	}

	if first.ID != second.ID {
		t.Errorf("Expected the same translation, got %s and %s", first.ID, second.ID)
	}
	if translator.calls.Load() != 1 {
		t.Errorf("Expected translator to be called once, got %d", translator.calls.Load())
	}

	var count int64
	db.Model(&models.Document{}).Where("translated_document_id = ?", "doc-1").Count(&count)
	if count != 1 {
		t.Errorf("Expected 1 translation row, got %d", count)
	}
}

func TestCreateTranslatedDocument_PlaceholderForImages(t *testing.T) {
	db := newTestDB(t)
	files := newMemFileStore(t)
	translator := &fakeTranslator{}
	m := NewDocumentMaterializer(db, files, translator)

	seedDocument(t, db, files, models.Document{
		ID: "doc-img", Title: "Plan du parking", Language: models.LanguageFrench,
		FileKey: "documents/doc-img/plan.png", FileName: "plan.png", FileType: "image/png", FileSize: 2048,
	}, "")

	doc, err := m.CreateTranslatedDocument(context.Background(), "doc-img", models.LanguageEnglish)
	if err != nil {
		t.Fatalf("CreateTranslatedDocument() returned error: %v", err)
	}

	if translator.calls.Load() != 0 {
		t.Errorf("Expected translator not to be called, got %d calls", translator.calls.Load())
	}
	if !strings.Contains(doc.Description, "Original in French") {
		t.Errorf("Description = %q, want it to mention the original language", doc.Description)
	}
	if doc.FileKey != "documents/doc-img/plan.png" || doc.FileType != "image/png" || doc.FileSize != 2048 {
		t.Error("Expected placeholder to share the original's file")
	}
	if doc.Title != "Plan du parking (English)" {
		t.Errorf("Title = %q", doc.Title)
	}
	if doc.TranslatedDocumentID == nil || *doc.TranslatedDocumentID != "doc-img" {
		t.Errorf("TranslatedDocumentID = %v", doc.TranslatedDocumentID)
	}
}

func TestCreateTranslatedDocument_SniffsUnknownType(t *testing.T) {
	db := newTestDB(t)
	files := newMemFileStore(t)
	translator := &fakeTranslator{}
	m := NewDocumentMaterializer(db, files, translator)

	seedDocument(t, db, files, models.Document{
		ID: "doc-bin", Title: "Notice", Language: models.LanguageEnglish,
		FileName: "notice", FileType: "application/octet-stream",
	}, "Water will be shut off on Monday.")

	if _, err := m.CreateTranslatedDocument(context.Background(), "doc-bin", models.LanguageFrench); err != nil {
		t.Fatalf("CreateTranslatedDocument() returned error: %v", err)
	}
	if translator.calls.Load() != 1 {
		t.Errorf("Expected sniffed text content to be translated, got %d calls", translator.calls.Load())
	}
}

func TestCreateTranslatedDocument_PDF(t *testing.T) {
	db := newTestDB(t)
	files := newMemFileStore(t)
	translator := &fakeTranslator{}
	m := NewDocumentMaterializer(db, files, translator)

	seedDocument(t, db, files, models.Document{
		ID: "doc-pdf", Title: "Minutes", Language: models.LanguageEnglish,
		FileName: "minutes.pdf", FileType: "application/pdf",
	}, string(minimalPDF("Hello neighbors")))

	doc, err := m.CreateTranslatedDocument(context.Background(), "doc-pdf", models.LanguageFrench)
	if err != nil {
		t.Fatalf("CreateTranslatedDocument() returned error: %v", err)
	}
	if translator.calls.Load() != 1 {
		t.Errorf("Expected 1 translator call, got %d", translator.calls.Load())
	}

	stored, ok := files.object(doc.FileKey)
	if !ok {
		t.Fatalf("Expected translated content stored at %s", doc.FileKey)
	}
	if !strings.Contains(string(stored), "[fr] Hello neighbors") {
		t.Errorf("Stored content = %q, want the extracted PDF text translated", stored)
	}
}

func TestCreateTranslatedDocument_Rejections(t *testing.T) {
	db := newTestDB(t)
	files := newMemFileStore(t)
	m := NewDocumentMaterializer(db, files, &fakeTranslator{})

	seedDocument(t, db, files, models.Document{
		ID: "orig", Title: "Budget", Language: models.LanguageEnglish, FileName: "budget.txt", FileType: "text/plain",
	}, "Budget 2026")
	seedDocument(t, db, files, models.Document{
		ID: "orig-fr", Title: "Budget (French)", Language: models.LanguageFrench,
		FileName: "budget.fr.txt", FileType: "text/plain", TranslatedDocumentID: strPtr("orig"),
	}, "Budget 2026")

	tests := []struct {
		name      string
		id        string
		lang      models.Language
		wantCheck func(error) bool
	}{
		{"missing original", "nope", models.LanguageFrench, IsNotFound},
		{"translation of a translation", "orig-fr", models.LanguageArabic, IsValidationError},
		{"same language", "orig", models.LanguageEnglish, IsValidationError},
		{"unsupported language", "orig", models.Language("de"), IsValidationError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.CreateTranslatedDocument(context.Background(), tt.id, tt.lang)
			if err == nil {
				t.Fatal("Expected error")
			}
			if !tt.wantCheck(err) {
				t.Errorf("Unexpected error type %T: %v", err, err)
			}
		})
	}
}

func TestCreateTranslatedDocument_TranslatorFailureWritesNothing(t *testing.T) {
	db := newTestDB(t)
	files := newMemFileStore(t)
	m := NewDocumentMaterializer(db, files, &fakeTranslator{err: errModelDown})

	seedDocument(t, db, files, models.Document{
		ID: "doc-1", Title: "AGM", Language: models.LanguageEnglish, FileName: "agm.txt", FileType: "text/plain",
	}, "Annual general meeting")

	_, err := m.CreateTranslatedDocument(context.Background(), "doc-1", models.LanguageFrench)
	if !IsTranslationError(err) {
		t.Fatalf("Expected TranslationError, got %v", err)
	}

	var count int64
	db.Model(&models.Document{}).Where("translated_document_id IS NOT NULL").Count(&count)
	if count != 0 {
		t.Errorf("Expected no translation rows, got %d", count)
	}

	var original models.Document
	db.First(&original, "id = ?", "doc-1")
	if original.IsTranslated {
		t.Error("Expected original not to be flagged after a failure")
	}
}

func TestCreateTranslatedDocument_MissingContentIsTranslationError(t *testing.T) {
	db := newTestDB(t)
	files := newMemFileStore(t)
	m := NewDocumentMaterializer(db, files, &fakeTranslator{})

	seedDocument(t, db, files, models.Document{
		ID: "doc-1", Title: "Lost", Language: models.LanguageEnglish,
		FileKey: "documents/doc-1/lost.pdf", FileName: "lost.pdf", FileType: "application/pdf",
	}, "")

	_, err := m.CreateTranslatedDocument(context.Background(), "doc-1", models.LanguageFrench)
	if !IsTranslationError(err) {
		t.Fatalf("Expected TranslationError for missing object, got %v", err)
	}
}

func TestCreateTranslatedDocument_ConcurrentCreatorWins(t *testing.T) {
	db := newTestDB(t)
	files := newMemFileStore(t)

	seedDocument(t, db, files, models.Document{
		ID: "doc-1", Title: "Notice", Language: models.LanguageEnglish, FileName: "notice.txt", FileType: "text/plain",
	}, "Pool closed")

	// Another worker commits the same translation while this one waits on the model
	translator := &fakeTranslator{}
	translator.before = func() {
		other := models.Document{
			ID: uuid.New().String(), Title: "Notice (French)", Language: models.LanguageFrench,
			TranslatedDocumentID: strPtr("doc-1"), IsTranslated: true,
		}
		if err := db.Create(&other).Error; err != nil {
			t.Errorf("failed to insert competing translation: %v", err)
		}
	}
	m := NewDocumentMaterializer(db, files, translator)

	doc, err := m.CreateTranslatedDocument(context.Background(), "doc-1", models.LanguageFrench)
	if err != nil {
		t.Fatalf("CreateTranslatedDocument() returned error: %v", err)
	}

	var winner models.Document
	db.Where("translated_document_id = ? AND language = ?", "doc-1", models.LanguageFrench).First(&winner)
	if doc.ID != winner.ID {
		t.Errorf("Expected the committed translation %s, got %s", winner.ID, doc.ID)
	}
	if len(files.deleted) != 1 {
		t.Errorf("Expected the losing upload to be removed, got deletions %v", files.deleted)
	}
}

func TestTranslatedFileName(t *testing.T) {
	tests := []struct {
		name string
		lang models.Language
		want string
	}{
		{"bylaws.pdf", models.LanguageFrench, "bylaws.fr.txt"},
		{"minutes", models.LanguageArabic, "minutes.ar.txt"},
		{"", models.LanguageEnglish, "document.en.txt"},
	}
	for _, tt := range tests {
		if got := translatedFileName(tt.name, tt.lang); got != tt.want {
			t.Errorf("translatedFileName(%q, %s) = %q, want %q", tt.name, tt.lang, got, tt.want)
		}
	}
}
