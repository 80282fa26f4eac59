package database

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/clide7029/MagicProxyAPp/internal/models"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var DB *gorm.DB

// Config selects the database. Path is the sqlite file (or a file: URI),
// URL the postgres DSN.
type Config struct {
	Driver   string
	Path     string
	URL      string
	LogLevel logger.LogLevel
}

// Initialize opens the configured database into DB and migrates it
func Initialize(cfg Config, log *zap.Logger) error {
	db, err := Open(cfg, log)
	if err != nil {
		return err
	}
	DB = db
	return nil
}

// Open connects, auto-migrates the schema and runs data migrations
func Open(cfg Config, log *zap.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case DriverSQLite, "":
		dialector = sqlite.Open(cfg.Path)
	case DriverPostgres:
		if cfg.URL == "" {
			return nil, fmt.Errorf("postgres driver needs DATABASE_URL")
		}
		dialector = postgres.Open(cfg.URL)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	level := cfg.LogLevel
	if level == 0 {
		level = logger.Warn
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(level),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s database: %w", cfg.Driver, err)
	}
	log.Info("database connected", zap.String("driver", dialector.Name()))

	if err := cleanupDuplicateIdeaVersions(db, log); err != nil {
		return nil, fmt.Errorf("failed to clean up duplicate idea versions: %w", err)
	}

	// Auto-migrate the schema
	err = db.AutoMigrate(&models.Deck{}, &models.DeckCard{}, &models.ProxyIdea{}, &models.CacheCard{})
	if err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	if err := RunMigrations(db, log); err != nil {
		return nil, fmt.Errorf("failed to run data migrations: %w", err)
	}

	log.Info("database migration completed")
	return db, nil
}

func GetDB() *gorm.DB {
	return DB
}
