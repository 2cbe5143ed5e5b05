package api

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/hoaportal/backend/internal/api/handlers"
	"github.com/hoaportal/backend/internal/config"
	"github.com/hoaportal/backend/internal/database"
	"github.com/hoaportal/backend/internal/middleware"
	"github.com/hoaportal/backend/internal/models"
	"github.com/hoaportal/backend/internal/services"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.Open(":memory:", "silent")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	store := services.NewLocalFileStore(t.TempDir(), "http://portal.test", "secret")
	documents := services.NewDocumentService(db, store, time.Minute)
	jobs := services.NewTranslationJobService(db, models.DefaultMaxAttempts)
	// No API key: runs fail without network access
	translator := services.NewLLMTranslationService(config.TranslationConfig{}, nil)
	runner := services.NewTranslationRunner(jobs, services.NewDocumentMaterializer(db, store, translator))
	dispatcher := services.NewInlineDispatcher(runner, 1)
	t.Cleanup(dispatcher.Wait)

	router := gin.New()
	SetupRoutes(router, Routes{
		Documents:        handlers.NewDocumentHandler(documents),
		Translations:     handlers.NewTranslationHandler(documents, jobs, dispatcher),
		Admin:            handlers.NewAdminHandler(services.NewTranslationCache(10, time.Hour), nil),
		Files:            handlers.NewFileHandler(store),
		AdminAuth:        middleware.NewAdminAuth("admin-key", false),
		TranslateLimiter: middleware.NewRateLimiter(rate.Limit(1), 1),
	})
	return router
}

func TestSetupRoutes_AdminRoutesRequireKey(t *testing.T) {
	router := newTestRouter(t)

	tests := []struct {
		name       string
		method     string
		path       string
		authHeader string
		wantCode   int
	}{
		{"public document list", http.MethodGet, "/api/documents", "", http.StatusOK},
		{"auth status", http.MethodGet, "/api/auth/status", "", http.StatusOK},
		{"cache stats without key", http.MethodGet, "/api/admin/translation-cache", "", http.StatusUnauthorized},
		{"cache stats with key", http.MethodGet, "/api/admin/translation-cache", "Bearer admin-key", http.StatusOK},
		{"upload without key", http.MethodPost, "/api/documents", "", http.StatusUnauthorized},
		{"files without signature", http.MethodGet, "/files/documents/x/a.txt", "", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			if w.Code != tt.wantCode {
				t.Errorf("expected status %d, got %d: %s", tt.wantCode, w.Code, w.Body.String())
			}
		})
	}
}

func TestSetupRoutes_TranslationRequestsAreRateLimited(t *testing.T) {
	router := newTestRouter(t)

	send := func() int {
		body := bytes.NewBufferString(`{"targetLanguage":"fr","userId":"user-1"}`)
		req := httptest.NewRequest(http.MethodPost, "/api/documents/missing/translations", body)
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	if code := send(); code != http.StatusNotFound {
		t.Fatalf("first request: expected status %d, got %d", http.StatusNotFound, code)
	}
	if code := send(); code != http.StatusTooManyRequests {
		t.Errorf("second request: expected status %d, got %d", http.StatusTooManyRequests, code)
	}
}
