package metrics

import (
	"log"

	"gorm.io/gorm"

	"github.com/hoaportal/backend/internal/models"
)

// UpdateTranslationMetrics queries the database and refreshes the document and
// job gauges. Called by the job sweeper on every tick.
func UpdateTranslationMetrics(db *gorm.DB) {
	if db == nil {
		return
	}

	type statusCount struct {
		Status string
		Count  int64
	}
	var counts []statusCount
	if err := db.Model(&models.TranslationJob{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&counts).Error; err != nil {
		log.Printf("Metrics: failed to count translation jobs: %v", err)
	} else {
		// Reset so statuses with no rows drop to zero
		for _, s := range []models.TranslationJobStatus{
			models.TranslationStatusPending,
			models.TranslationStatusProcessing,
			models.TranslationStatusCompleted,
			models.TranslationStatusFailed,
		} {
			TranslationJobsByStatus.WithLabelValues(string(s)).Set(0)
		}
		for _, c := range counts {
			TranslationJobsByStatus.WithLabelValues(c.Status).Set(float64(c.Count))
		}
	}

	var originals int64
	if err := db.Model(&models.Document{}).Where("translated_document_id IS NULL").Count(&originals).Error; err != nil {
		log.Printf("Metrics: failed to count documents: %v", err)
	} else {
		DocumentsTotal.Set(float64(originals))
	}

	var translations int64
	if err := db.Model(&models.Document{}).Where("translated_document_id IS NOT NULL").Count(&translations).Error; err != nil {
		log.Printf("Metrics: failed to count translated documents: %v", err)
	} else {
		TranslatedDocumentsTotal.Set(float64(translations))
	}
}
