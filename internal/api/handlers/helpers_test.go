package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/hoaportal/backend/internal/database"
	"github.com/hoaportal/backend/internal/models"
	"github.com/hoaportal/backend/internal/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testBaseURL = "http://portal.test"

// recordingDispatcher records dispatched events instead of running them
type recordingDispatcher struct {
	mu     sync.Mutex
	events []services.TranslationEvent
	err    error
}

func (d *recordingDispatcher) Dispatch(_ context.Context, event services.TranslationEvent) error {
	if d.err != nil {
		return d.err
	}
	d.mu.Lock()
	d.events = append(d.events, event)
	d.mu.Unlock()
	return nil
}

func (d *recordingDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.events)
}

var errQueueDown = errors.New("redis: connection refused")

type testEnv struct {
	db         *gorm.DB
	store      *services.LocalFileStore
	documents  *services.DocumentService
	jobs       *services.TranslationJobService
	dispatcher *recordingDispatcher
	router     *gin.Engine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.Open(":memory:", "silent")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	env := &testEnv{
		db:         db,
		store:      services.NewLocalFileStore(t.TempDir(), testBaseURL, "test-secret"),
		dispatcher: &recordingDispatcher{},
	}
	env.documents = services.NewDocumentService(db, env.store, 15*time.Minute)
	env.jobs = services.NewTranslationJobService(db, models.DefaultMaxAttempts)

	docs := NewDocumentHandler(env.documents)
	translations := NewTranslationHandler(env.documents, env.jobs, env.dispatcher)
	files := NewFileHandler(env.store)

	router := gin.New()
	router.POST("/api/documents", docs.UploadDocument)
	router.GET("/api/documents", docs.ListDocuments)
	router.GET("/api/documents/:id", docs.GetDocument)
	router.GET("/api/documents/:id/download", docs.DownloadDocument)
	router.POST("/api/documents/:id/translations", translations.RequestTranslation)
	router.GET("/api/documents/:id/translations/:lang/status", translations.GetTranslationStatus)
	router.GET("/api/documents/:id/translation-jobs", translations.ListJobs)
	router.GET("/api/translation-jobs/:id", translations.GetJob)
	router.GET("/files/*key", files.ServeFile)
	env.router = router
	return env
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) postJSON(path string, body interface{}) *httptest.ResponseRecorder {
	data, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return e.do(req)
}

func (e *testEnv) get(path string) *httptest.ResponseRecorder {
	return e.do(httptest.NewRequest(http.MethodGet, path, nil))
}

// upload posts a multipart document with the given form fields
func (e *testEnv) upload(t *testing.T, fields map[string]string, fileName, content string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	if fileName != "" {
		fw, err := mw.CreateFormFile("file", fileName)
		if err != nil {
			t.Fatalf("failed to create form file: %v", err)
		}
		fw.Write([]byte(content))
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/documents", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return e.do(req)
}

// seedOriginal inserts an English original document row
func (e *testEnv) seedOriginal(t *testing.T, id string) models.Document {
	t.Helper()
	doc := models.Document{
		ID:       id,
		Title:    "Bylaws 2024",
		Category: models.CategoryBylaws,
		Language: models.LanguageEnglish,
		FileKey:  "documents/" + id + "/bylaws.txt",
		FileName: "bylaws.txt",
		FileType: "text/plain",
	}
	if err := e.store.Put(context.Background(), doc.FileKey, strings.NewReader("Article 1"), doc.FileType); err != nil {
		t.Fatalf("failed to store file: %v", err)
	}
	if err := e.db.Create(&doc).Error; err != nil {
		t.Fatalf("failed to seed document: %v", err)
	}
	return doc
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to decode response %q: %v", w.Body.String(), err)
	}
}
