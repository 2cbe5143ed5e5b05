package services

import (
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/hoaportal/backend/internal/metrics"
	"github.com/hoaportal/backend/internal/models"
)

const (
	// DefaultCacheTTL bounds how long a cached translation is served
	DefaultCacheTTL = 24 * time.Hour

	// DefaultCacheCapacity bounds the number of entries held in memory
	DefaultCacheCapacity = 10000

	// cacheKeyPrefixLen is the number of source runes that make up a cache key.
	// Texts sharing this prefix and target language share a slot.
	cacheKeyPrefixLen = 100
)

type cacheEntry struct {
	translated string
	storedAt   time.Time
}

// TranslationCache is a process-local cache of model translations.
// Entries older than the TTL are treated as absent on read but are never purged
// actively; a later Put for the same key overwrites them. The LRU capacity bound
// evicts least recently used entries once full.
type TranslationCache struct {
	entries *lru.Cache[string, cacheEntry]
	ttl     time.Duration
	now     func() time.Time
	hits    atomic.Int64
}

// NewTranslationCache creates a cache holding at most capacity entries for ttl each
func NewTranslationCache(capacity int, ttl time.Duration) *TranslationCache {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}

	// lru.New only fails for a non-positive size
	entries, _ := lru.New[string, cacheEntry](capacity)

	return &TranslationCache{
		entries: entries,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the cached translation of text into lang, if present and fresh
func (c *TranslationCache) Get(text string, lang models.Language) (string, bool) {
	if c == nil {
		return "", false
	}

	key := cacheKey(text, lang)
	entry, ok := c.entries.Get(key)
	if !ok {
		metrics.TranslationCacheMisses.Inc()
		return "", false
	}

	if c.now().Sub(entry.storedAt) > c.ttl {
		metrics.TranslationCacheMisses.Inc()
		debugLog("Cache entry expired for key=%q (age=%v)", truncateText(key, 30), c.now().Sub(entry.storedAt))
		return "", false
	}

	c.hits.Add(1)
	metrics.TranslationCacheHits.Inc()
	debugLog("Cache hit for key=%q", truncateText(key, 30))
	return entry.translated, true
}

// Put stores a translation, overwriting any entry in the same slot
func (c *TranslationCache) Put(text string, lang models.Language, translated string) {
	if c == nil {
		return
	}

	c.entries.Add(cacheKey(text, lang), cacheEntry{
		translated: translated,
		storedAt:   c.now(),
	})
	metrics.TranslationCacheEntries.Set(float64(c.entries.Len()))
}

// GetStats returns the number of stored entries (fresh or not) and total hits
func (c *TranslationCache) GetStats() (entries int, hits int64) {
	if c == nil {
		return 0, 0
	}
	return c.entries.Len(), c.hits.Load()
}

// cacheKey is the first cacheKeyPrefixLen runes of text joined with the language
func cacheKey(text string, lang models.Language) string {
	runes := []rune(text)
	if len(runes) > cacheKeyPrefixLen {
		runes = runes[:cacheKeyPrefixLen]
	}
	return string(runes) + "_" + string(lang)
}

// truncateText truncates text to maxLen runes with ellipsis.
// Counts runes rather than bytes so Arabic text is cut on character boundaries.
func truncateText(text string, maxLen int) string {
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	return string(runes[:maxLen]) + "..."
}
