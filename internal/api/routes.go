package api

import (
	"github.com/gin-gonic/gin"

	"github.com/hoaportal/backend/internal/api/handlers"
	"github.com/hoaportal/backend/internal/middleware"
)

// Routes holds the handlers mounted by SetupRoutes.
// Files is nil when documents are not stored on local disk.
type Routes struct {
	Documents        *handlers.DocumentHandler
	Translations     *handlers.TranslationHandler
	Admin            *handlers.AdminHandler
	Files            *handlers.FileHandler
	AdminAuth        *middleware.AdminAuth
	TranslateLimiter *middleware.RateLimiter
}

// SetupRoutes configures all API routes
func SetupRoutes(r *gin.Engine, routes Routes) {
	api := r.Group("/api")

	// Auth endpoints (public)
	api.GET("/auth/status", routes.AdminAuth.Status)
	api.GET("/auth/verify", routes.AdminAuth.Verify)

	// Document endpoints
	api.GET("/documents", routes.Documents.ListDocuments)
	api.GET("/documents/:id", routes.Documents.GetDocument)
	api.GET("/documents/:id/download", routes.Documents.DownloadDocument)

	// Translation endpoints
	translate := []gin.HandlerFunc{}
	if routes.TranslateLimiter != nil {
		translate = append(translate, routes.TranslateLimiter.Middleware())
	}
	translate = append(translate, routes.Translations.RequestTranslation)
	api.POST("/documents/:id/translations", translate...)
	api.GET("/documents/:id/translations/:lang/status", routes.Translations.GetTranslationStatus)
	api.GET("/documents/:id/translation-jobs", routes.Translations.ListJobs)
	api.GET("/translation-jobs/:id", routes.Translations.GetJob)

	// Protected endpoints
	protected := api.Group("")
	protected.Use(routes.AdminAuth.Middleware())
	protected.POST("/documents", routes.Documents.UploadDocument)

	admin := protected.Group("/admin")
	admin.GET("/translation-cache", routes.Admin.GetCacheStats)
	admin.POST("/translation-jobs/sweep", routes.Admin.SweepTranslationJobs)
	admin.GET("/translation-jobs/sweep", routes.Admin.GetLastSweep)

	if routes.Files != nil {
		r.GET("/files/*key", routes.Files.ServeFile)
	}
}
