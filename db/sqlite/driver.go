package sqlite

import (
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

// OpenMemory creates an in-memory SQLite DB. The shared cache keeps the
// database alive across the pooled connections of one process.
func OpenMemory() (*gorm.DB, error) {
	return Open("file::memory:?cache=shared")
}
