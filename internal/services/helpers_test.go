package services

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/hoaportal/backend/internal/database"
	"github.com/hoaportal/backend/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(":memory:", "silent")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	return db
}

// memFileStore keeps objects in memory and serves them over an httptest server
type memFileStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
	putErr  error
	srv     *httptest.Server
}

func newMemFileStore(t *testing.T) *memFileStore {
	t.Helper()
	s := &memFileStore{objects: make(map[string][]byte)}
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		data, ok := s.objects[strings.TrimPrefix(r.URL.Path, "/")]
		s.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Write(data)
	}))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *memFileStore) Put(_ context.Context, key string, body io.Reader, _ string) error {
	if s.putErr != nil {
		return s.putErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.objects[key] = data
	s.mu.Unlock()
	return nil
}

func (s *memFileStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.objects, key)
	s.deleted = append(s.deleted, key)
	s.mu.Unlock()
	return nil
}

func (s *memFileStore) SignedURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return s.srv.URL + "/" + key, nil
}

func (s *memFileStore) object(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	return data, ok
}

// fakeTranslator prefixes text with the target language code
type fakeTranslator struct {
	calls  atomic.Int32
	err    error
	before func()
}

func (f *fakeTranslator) Translate(_ context.Context, text string, _, target models.Language) (string, error) {
	f.calls.Add(1)
	if f.before != nil {
		f.before()
	}
	if f.err != nil {
		return "", f.err
	}
	return "[" + string(target) + "] " + text, nil
}

var errModelDown = errors.New("model unavailable")

// seedDocument inserts an original document, storing content under its file key when given
func seedDocument(t *testing.T, db *gorm.DB, files *memFileStore, doc models.Document, content string) models.Document {
	t.Helper()
	if doc.FileKey == "" && content != "" {
		doc.FileKey = "documents/" + doc.ID + "/" + doc.FileName
	}
	if content != "" {
		files.Put(context.Background(), doc.FileKey, strings.NewReader(content), doc.FileType)
	}
	if err := db.Create(&doc).Error; err != nil {
		t.Fatalf("failed to seed document %s: %v", doc.ID, err)
	}
	return doc
}

func strPtr(s string) *string { return &s }
