package handlers

import (
	"errors"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/hoaportal/backend/internal/services"
)

// FileHandler serves locally stored files behind signed URLs
type FileHandler struct {
	store *services.LocalFileStore
}

func NewFileHandler(store *services.LocalFileStore) *FileHandler {
	return &FileHandler{store: store}
}

// ServeFile streams a stored file after checking its signature
// GET /files/*key?expires=&sig=
func (h *FileHandler) ServeFile(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("key"), "/")

	if err := h.store.Verify(key, c.Query("expires"), c.Query("sig")); err != nil {
		status := http.StatusForbidden
		if errors.Is(err, services.ErrSignatureExpired) {
			status = http.StatusGone
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	path, err := h.store.Path(key)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if _, err := os.Stat(path); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
		return
	}

	c.Header("Cache-Control", "private, max-age=300")
	c.File(path)
}
