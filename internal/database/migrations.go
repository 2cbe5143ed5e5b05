package database

import (
	"fmt"
	"log"
	"strings"

	"gorm.io/gorm"
)

// RunMigrations runs data repairs after schema changes. Safe to run on every start.
func RunMigrations(db *gorm.DB) error {
	if err := flattenTranslationChains(db); err != nil {
		return err
	}
	if err := backfillTranslatedFlags(db); err != nil {
		return err
	}
	return nil
}

const maxChainRepairRounds = 10

// chainedRow is a translation whose parent is itself a translation
type chainedRow struct {
	ID       string
	RootID   string
	Language string
}

// flattenTranslationChains re-points translations of translations at the root
// original so translated_document_id never references another translation.
// Older imports created such chains. A chained row whose language the root
// already has is a duplicate and is dropped; its own children move to its parent
// and are flattened in the next round. Chains that cannot be repaired (cycles)
// fail the migration.
func flattenTranslationChains(db *gorm.DB) error {
	for round := 0; round < maxChainRepairRounds; round++ {
		if err := flattenPasses(db); err != nil {
			return err
		}
		dropped, err := dropChainDuplicates(db)
		if err != nil {
			return err
		}
		if dropped == 0 {
			break
		}
	}

	var remaining []string
	if err := db.Raw(`
		SELECT id FROM documents
		WHERE translated_document_id IN (
			SELECT id FROM documents WHERE translated_document_id IS NOT NULL
		)
		ORDER BY id
	`).Scan(&remaining).Error; err != nil {
		return err
	}
	if len(remaining) > 0 {
		return fmt.Errorf("translation chains remain after repair: %s", strings.Join(remaining, ", "))
	}
	return nil
}

// flattenPasses moves chained rows one level up per pass. Rows that would
// collide with an existing translation in the same language are skipped here.
func flattenPasses(db *gorm.DB) error {
	for pass := 0; pass < maxChainRepairRounds; pass++ {
		result := db.Exec(`
			UPDATE OR IGNORE documents
			SET translated_document_id = (
				SELECT parent.translated_document_id FROM documents parent
				WHERE parent.id = documents.translated_document_id
			)
			WHERE translated_document_id IN (
				SELECT id FROM documents WHERE translated_document_id IS NOT NULL
			)
		`)
		if result.Error != nil {
			log.Printf("Warning: failed to flatten translation chains: %v", result.Error)
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}
		log.Printf("Flattened %d chained translation rows", result.RowsAffected)
	}
	return nil
}

// dropChainDuplicates deletes chained rows whose root already has a translation
// in their language. Jobs pointing at a dropped row are moved to the kept one.
func dropChainDuplicates(db *gorm.DB) (int, error) {
	var rows []chainedRow
	if err := db.Raw(`
		SELECT child.id AS id, parent.translated_document_id AS root_id, child.language AS language
		FROM documents child
		JOIN documents parent ON parent.id = child.translated_document_id
		WHERE parent.translated_document_id IS NOT NULL
		  AND EXISTS (
			SELECT 1 FROM documents sibling
			WHERE sibling.translated_document_id = parent.translated_document_id
			  AND sibling.language = child.language
			  AND sibling.id <> child.id
		  )
	`).Scan(&rows).Error; err != nil {
		return 0, err
	}

	dropped := 0
	for _, row := range rows {
		removed := false
		err := db.Transaction(func(tx *gorm.DB) error {
			// An earlier drop in this round may have moved the row
			var parentID string
			if err := tx.Raw(`SELECT translated_document_id FROM documents WHERE id = ?`, row.ID).
				Scan(&parentID).Error; err != nil {
				return err
			}
			var keptID string
			if err := tx.Raw(`
				SELECT id FROM documents
				WHERE translated_document_id = ? AND language = ? AND id <> ?
				LIMIT 1
			`, row.RootID, row.Language, row.ID).Scan(&keptID).Error; err != nil {
				return err
			}
			if parentID == "" || keptID == "" {
				return nil
			}

			if err := tx.Exec(`UPDATE documents SET translated_document_id = ? WHERE translated_document_id = ?`,
				parentID, row.ID).Error; err != nil {
				return err
			}
			if err := tx.Exec(`UPDATE translation_jobs SET translated_document_id = ? WHERE translated_document_id = ?`,
				keptID, row.ID).Error; err != nil {
				return err
			}
			if err := tx.Exec(`DELETE FROM documents WHERE id = ?`, row.ID).Error; err != nil {
				return err
			}
			removed = true
			return nil
		})
		if err != nil {
			log.Printf("Warning: failed to drop duplicate translation %s: %v", row.ID, err)
			return dropped, err
		}
		if !removed {
			continue
		}
		log.Printf("Dropped duplicate %s translation %s (root %s already translated)",
			row.Language, row.ID, row.RootID)
		dropped++
	}
	return dropped, nil
}

// backfillTranslatedFlags sets is_translated on originals that have at least one
// translation pointing at them. The flag is informational only.
func backfillTranslatedFlags(db *gorm.DB) error {
	result := db.Exec(`
		UPDATE documents
		SET is_translated = 1
		WHERE translated_document_id IS NULL
		  AND is_translated = 0
		  AND id IN (SELECT translated_document_id FROM documents WHERE translated_document_id IS NOT NULL)
	`)
	if result.Error != nil {
		log.Printf("Warning: failed to backfill is_translated: %v", result.Error)
		return result.Error
	}
	if result.RowsAffected > 0 {
		log.Printf("Backfilled is_translated on %d documents", result.RowsAffected)
	}
	return nil
}
