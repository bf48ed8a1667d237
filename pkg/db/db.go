package db

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"cxdaemon/pkg/common"
	"cxdaemon/pkg/models"
)

type DB struct {
	Conn *gorm.DB
}

// Open connects the dialector, runs migrations and applies the sqlite
// pragmas. Constructed once at startup and passed down explicitly;
// there is no package-level instance.
func Open(dialector gorm.Dialector) (*DB, error) {
	logger := common.GetLogger()

	conn, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	logger.Info("Connected to database with dialector:", zap.String("dialector", dialector.Name()))

	instance := &DB{Conn: conn}

	if err := instance.Conn.AutoMigrate(&models.AlertRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	logger.Info("Database migration completed")

	if err := instance.Conn.Exec("PRAGMA journal_mode = WAL").Error; err != nil {
		return nil, fmt.Errorf("failed to set sqlite journal mode: %w", err)
	}

	return instance, nil
}

// UseSqliteDialector opens the alert database at path, creating parent
// directories as needed.
func UseSqliteDialector(dbPath string) (gorm.Dialector, error) {
	if dbPath == "" {
		dbPath = common.AlertDbPath()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	return sqlite.Open(dbPath), nil
}

func UseMemorySqliteDialector() gorm.Dialector {
	return sqlite.Open("file::memory:?cache=shared")
}

// UseNamedMemorySqliteDialector gives each caller its own in-memory
// database, isolated from other names. Tests use this with a random
// name so they do not see each other's rows.
func UseNamedMemorySqliteDialector(name string) gorm.Dialector {
	return sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
}
