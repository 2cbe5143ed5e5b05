// Package poller waits for a document translation to finish by polling its status.
package poller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hoaportal/backend/internal/models"
)

// DefaultInterval is the time between status queries
const DefaultInterval = 5 * time.Second

// ErrNotRequested is returned when the snapshot shows no translation was ever requested
var ErrNotRequested = errors.New("translation was not requested")

// StatusFunc fetches the current translation status
type StatusFunc func(ctx context.Context) (*models.TranslationStatus, error)

// Poller repeatedly fetches a translation status until it is done
type Poller struct {
	Interval time.Duration
	// MaxConsecutiveErrors stops polling after this many failed fetches in a row; 0 means never
	MaxConsecutiveErrors int
	// OnUpdate, if set, is called with every fetched status
	OnUpdate func(*models.TranslationStatus)
}

// Wait polls fetch until the status is completed, failed or has a translated
// document, the context ends, or fetch fails too often. A status that was never
// requested returns ErrNotRequested without polling.
func (p *Poller) Wait(ctx context.Context, fetch StatusFunc) (*models.TranslationStatus, error) {
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	consecutiveErrors := 0
	for {
		status, err := fetch(ctx)
		switch {
		case err != nil:
			consecutiveErrors++
			log.Printf("[POLLER] status query failed (%d in a row): %v", consecutiveErrors, err)
			if p.MaxConsecutiveErrors > 0 && consecutiveErrors >= p.MaxConsecutiveErrors {
				return nil, fmt.Errorf("giving up after %d failed status queries: %w", consecutiveErrors, err)
			}
		case !status.Requested:
			return status, ErrNotRequested
		default:
			consecutiveErrors = 0
			if p.OnUpdate != nil {
				p.OnUpdate(status)
			}
			if status.IsDone() {
				return status, nil
			}
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// HTTPStatus returns a StatusFunc querying the portal API for a document and language
func HTTPStatus(client *http.Client, baseURL, documentID string, lang models.Language) StatusFunc {
	if client == nil {
		client = http.DefaultClient
	}
	endpoint := fmt.Sprintf("%s/api/documents/%s/translations/%s/status",
		strings.TrimRight(baseURL, "/"), url.PathEscape(documentID), url.PathEscape(string(lang)))

	return func(ctx context.Context) (*models.TranslationStatus, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}

		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return nil, fmt.Errorf("status query returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		}

		var status models.TranslationStatus
		if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
			return nil, fmt.Errorf("failed to decode status: %w", err)
		}
		return &status, nil
	}
}
