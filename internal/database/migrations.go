package database

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/clide7029/MagicProxyAPp/internal/models"
)

// cleanupDuplicateIdeaVersions removes duplicate (deck_card_id, version) proxy ideas
// before the unique index is added. This runs BEFORE AutoMigrate.
func cleanupDuplicateIdeaVersions(db *gorm.DB, log *zap.Logger) error {
	if !db.Migrator().HasTable("proxy_ideas") {
		return nil
	}
	if db.Migrator().HasIndex("proxy_ideas", "idx_card_version") {
		return nil
	}

	result := db.Exec(`
		DELETE FROM proxy_ideas
		WHERE id NOT IN (
			SELECT MIN(id)
			FROM proxy_ideas
			GROUP BY deck_card_id, version
		)
	`)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		log.Info("cleaned up duplicate proxy idea versions", zap.Int64("rows", result.RowsAffected))
	}
	return nil
}

// RunMigrations runs any custom data migrations after schema changes
func RunMigrations(db *gorm.DB, log *zap.Logger) error {
	return canonicalizeIdeaParts(db, log)
}

// canonicalizeIdeaParts rewrites face and token writeups stored with the old
// camelCase keys (thematicName) in snake_case. Reading them back through
// models.PartIdea accepts both spellings, so a load and save is enough.
// Safe to run multiple times.
func canonicalizeIdeaParts(db *gorm.DB, log *zap.Logger) error {
	var ideas []models.ProxyIdea
	err := db.Where("card_faces LIKE ? OR tokens LIKE ?", "%thematicName%", "%thematicName%").
		Find(&ideas).Error
	if err != nil {
		return err
	}

	migrated := 0
	for i := range ideas {
		err := db.Model(&ideas[i]).Select("CardFaces", "Tokens").Updates(&ideas[i]).Error
		if err != nil {
			log.Warn("failed to canonicalize proxy idea", zap.String("id", ideas[i].ID), zap.Error(err))
			continue
		}
		migrated++
	}
	if migrated > 0 {
		log.Info("canonicalized legacy proxy idea keys", zap.Int("rows", migrated))
	}
	return nil
}
