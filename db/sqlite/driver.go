package sqlite

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open creates a GORM *DB backed by a SQLite file.
func Open(path string) (*gorm.DB, error) {
	return gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
}

// OpenMemory creates a named in-memory SQLite DB. The name is unique per
// call, so the DB is shared across the connection pool but isolated from
// every other OpenMemory caller. Used by tests; needs no files or services.
func OpenMemory() (*gorm.DB, error) {
	dsn := fmt.Sprintf("file:mem-%s?mode=memory&cache=shared", uuid.NewString())
	return Open(dsn)
}
