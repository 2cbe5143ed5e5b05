package services

import (
	"context"
	"errors"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"
)

func TestLocalFileStore_PutDelete(t *testing.T) {
	store := NewLocalFileStore(t.TempDir(), "http://localhost:8080", "secret")
	ctx := context.Background()

	if err := store.Put(ctx, "documents/doc-1/bylaws.txt", strings.NewReader("hello"), "text/plain"); err != nil {
		t.Fatalf("Put() returned error: %v", err)
	}

	path, _ := store.Path("documents/doc-1/bylaws.txt")
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "hello" {
		t.Fatalf("ReadFile() = (%q, %v)", data, err)
	}

	if err := store.Delete(ctx, "documents/doc-1/bylaws.txt"); err != nil {
		t.Fatalf("Delete() returned error: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Expected file to be removed")
	}

	// Deleting twice is fine
	if err := store.Delete(ctx, "documents/doc-1/bylaws.txt"); err != nil {
		t.Errorf("Second Delete() returned error: %v", err)
	}
}

func TestLocalFileStore_RejectsTraversal(t *testing.T) {
	store := NewLocalFileStore(t.TempDir(), "http://localhost:8080", "secret")

	for _, key := range []string{"", "/", "../etc/passwd", "documents/../../x"} {
		if _, err := store.Path(key); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("Path(%q) = %v, want ErrInvalidKey", key, err)
		}
	}
}

func TestLocalFileStore_SignedURL(t *testing.T) {
	store := NewLocalFileStore(t.TempDir(), "http://portal.example/", "secret")
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	signed, err := store.SignedURL(context.Background(), "documents/doc-1/a.pdf", 15*time.Minute)
	if err != nil {
		t.Fatalf("SignedURL() returned error: %v", err)
	}

	u, err := url.Parse(signed)
	if err != nil {
		t.Fatalf("invalid URL %q: %v", signed, err)
	}
	if u.Host != "portal.example" || u.Path != "/files/documents/doc-1/a.pdf" {
		t.Errorf("SignedURL() = %s", signed)
	}

	expires, sig := u.Query().Get("expires"), u.Query().Get("sig")
	if err := store.Verify("documents/doc-1/a.pdf", expires, sig); err != nil {
		t.Errorf("Verify() = %v, want nil", err)
	}
	if err := store.Verify("documents/doc-2/a.pdf", expires, sig); !errors.Is(err, ErrSignatureInvalid) {
		t.Errorf("Verify(other key) = %v, want ErrSignatureInvalid", err)
	}
	if err := store.Verify("documents/doc-1/a.pdf", "9999999999", sig); !errors.Is(err, ErrSignatureInvalid) {
		t.Errorf("Verify(tampered expiry) = %v, want ErrSignatureInvalid", err)
	}

	now = now.Add(16 * time.Minute)
	if err := store.Verify("documents/doc-1/a.pdf", expires, sig); !errors.Is(err, ErrSignatureExpired) {
		t.Errorf("Verify(after expiry) = %v, want ErrSignatureExpired", err)
	}
}
