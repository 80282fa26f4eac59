package database

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm/logger"

	"github.com/clide7029/MagicProxyAPp/internal/models"
)

func memoryConfig(t *testing.T) Config {
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	return Config{
		Driver:   DriverSQLite,
		Path:     fmt.Sprintf("file:%s?mode=memory&cache=shared", name),
		LogLevel: logger.Silent,
	}
}

func TestOpen_MigratesSchema(t *testing.T) {
	db, err := Open(memoryConfig(t), zap.NewNop())
	require.NoError(t, err)

	for _, table := range []string{"decks", "deck_cards", "proxy_ideas", "cache_cards"} {
		assert.True(t, db.Migrator().HasTable(table), "missing table %s", table)
	}
	assert.True(t, db.Migrator().HasIndex(&models.ProxyIdea{}, "idx_card_version"))
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "oracle"}, zap.NewNop())
	assert.ErrorContains(t, err, `unsupported database driver "oracle"`)

	_, err = Open(Config{Driver: DriverPostgres}, zap.NewNop())
	assert.ErrorContains(t, err, "DATABASE_URL")
}

func TestRunMigrations_CanonicalizesLegacyIdeaKeys(t *testing.T) {
	db, err := Open(memoryConfig(t), zap.NewNop())
	require.NoError(t, err)

	legacy := `[{"thematicName":"Night Watch","thematicFlavorText":"They never sleep.","midjourneyPrompt":"guards --ar 3:5 --v 6"}]`
	err = db.Exec(
		`INSERT INTO proxy_ideas (id, deck_card_id, version, tokens, created_at) VALUES (?, ?, ?, ?, ?)`,
		"idea-1", "card-1", 1, legacy, time.Now(),
	).Error
	require.NoError(t, err)

	require.NoError(t, RunMigrations(db, zap.NewNop()))

	var raw string
	require.NoError(t, db.Raw(`SELECT tokens FROM proxy_ideas WHERE id = ?`, "idea-1").Scan(&raw).Error)
	assert.Contains(t, raw, `"thematic_name":"Night Watch"`)
	assert.NotContains(t, raw, "thematicName")

	var idea models.ProxyIdea
	require.NoError(t, db.First(&idea, "id = ?", "idea-1").Error)
	require.Len(t, idea.Tokens, 1)
	assert.Equal(t, "They never sleep.", idea.Tokens[0].ThematicFlavorText)
}
