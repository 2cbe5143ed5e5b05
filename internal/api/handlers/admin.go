package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hoaportal/backend/internal/services"
)

type AdminHandler struct {
	cache   *services.TranslationCache
	sweeper *services.TranslationSweeper
}

func NewAdminHandler(cache *services.TranslationCache, sweeper *services.TranslationSweeper) *AdminHandler {
	return &AdminHandler{
		cache:   cache,
		sweeper: sweeper,
	}
}

// GetCacheStats returns translation cache occupancy
// GET /api/admin/translation-cache
func (h *AdminHandler) GetCacheStats(c *gin.Context) {
	if h.cache == nil {
		c.JSON(http.StatusOK, gin.H{"enabled": false})
		return
	}

	entries, hits := h.cache.GetStats()
	c.JSON(http.StatusOK, gin.H{
		"enabled": true,
		"entries": entries,
		"hits":    hits,
	})
}

// SweepTranslationJobs runs a sweep now and waits for it
// POST /api/admin/translation-jobs/sweep
func (h *AdminHandler) SweepTranslationJobs(c *gin.Context) {
	if h.sweeper == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "sweeper not available"})
		return
	}

	result := h.sweeper.Sweep(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"message": "Sweep completed",
		"result":  result,
	})
}

// GetLastSweep returns the outcome of the most recent sweep
// GET /api/admin/translation-jobs/sweep
func (h *AdminHandler) GetLastSweep(c *gin.Context) {
	if h.sweeper == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "sweeper not available"})
		return
	}

	last := h.sweeper.LastSweep()
	if last.SweptAt.IsZero() {
		c.JSON(http.StatusOK, gin.H{"message": "No sweep has run yet"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": last})
}
