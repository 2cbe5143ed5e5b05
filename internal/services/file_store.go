package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// FileStore stores document files and hands out time-limited download URLs
type FileStore interface {
	Put(ctx context.Context, key string, body io.Reader, contentType string) error
	Delete(ctx context.Context, key string) error
	SignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}

var (
	// ErrSignatureExpired is returned for a signed URL past its expiry
	ErrSignatureExpired = errors.New("signed URL expired")
	// ErrSignatureInvalid is returned for a signed URL that does not match its key
	ErrSignatureInvalid = errors.New("invalid signature")
	// ErrInvalidKey is returned for object keys that escape the storage directory
	ErrInvalidKey = errors.New("invalid object key")
)

// LocalFileStore keeps files on disk and signs download URLs with HMAC-SHA256.
// Signed URLs point at the server's /files route which verifies them.
type LocalFileStore struct {
	storageDir string
	baseURL    string
	secret     []byte
	now        func() time.Time
}

// NewLocalFileStore creates a file store rooted at storageDir
func NewLocalFileStore(storageDir, publicBaseURL, signingSecret string) *LocalFileStore {
	if storageDir == "" {
		storageDir = "./data/documents"
	}

	if err := os.MkdirAll(storageDir, 0755); err != nil {
		// Not fatal here; writes will report the error
		log.Printf("Warning: could not create document storage directory: %v", err)
	}

	return &LocalFileStore{
		storageDir: storageDir,
		baseURL:    strings.TrimRight(publicBaseURL, "/"),
		secret:     []byte(signingSecret),
		now:        time.Now,
	}
}

// Put writes body to the object key, creating parent directories
func (s *LocalFileStore) Put(ctx context.Context, key string, body io.Reader, _ string) error {
	path, err := s.Path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("failed to write file: %w", err)
	}
	return f.Close()
}

// Delete removes the object; deleting a missing object is not an error
func (s *LocalFileStore) Delete(_ context.Context, key string) error {
	if key == "" {
		return nil
	}
	path, err := s.Path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// SignedURL returns a URL for key valid until now+expiry
func (s *LocalFileStore) SignedURL(_ context.Context, key string, expiry time.Duration) (string, error) {
	if _, err := s.Path(key); err != nil {
		return "", err
	}
	expires := s.now().Add(expiry).Unix()

	q := url.Values{}
	q.Set("expires", strconv.FormatInt(expires, 10))
	q.Set("sig", s.sign(key, expires))
	return s.baseURL + "/files/" + key + "?" + q.Encode(), nil
}

// Verify checks a signature produced by SignedURL
func (s *LocalFileStore) Verify(key, expires, sig string) error {
	exp, err := strconv.ParseInt(expires, 10, 64)
	if err != nil {
		return ErrSignatureInvalid
	}
	if !hmac.Equal([]byte(sig), []byte(s.sign(key, exp))) {
		return ErrSignatureInvalid
	}
	if s.now().Unix() > exp {
		return ErrSignatureExpired
	}
	return nil
}

// Path returns the on-disk path of key, rejecting keys outside the storage directory
func (s *LocalFileStore) Path(key string) (string, error) {
	clean := filepath.Clean("/" + key)
	if key == "" || clean == "/" || strings.Contains(key, "..") {
		return "", ErrInvalidKey
	}
	return filepath.Join(s.storageDir, clean), nil
}

func (s *LocalFileStore) sign(key string, expires int64) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(key))
	mac.Write([]byte{'\n'})
	mac.Write([]byte(strconv.FormatInt(expires, 10)))
	return hex.EncodeToString(mac.Sum(nil))
}
