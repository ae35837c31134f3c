package repository

import (
	"fmt"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DialectorOpener returns a gorm.Dialector for a DSN.
type DialectorOpener = func(string) gorm.Dialector

var (
	dialectorsMu sync.RWMutex
	dialectors   = map[string]DialectorOpener{
		"postgres": postgres.Open,
		"sqlite":   sqlite.Open,
	}
)

// RegisterDialector makes another SQL driver available to OpenDatabase.
func RegisterDialector(name string, opener DialectorOpener) {
	dialectorsMu.Lock()
	defer dialectorsMu.Unlock()
	dialectors[name] = opener
}

// OpenDatabase connects to the named driver and sizes the connection pool.
func OpenDatabase(driver, dsn string) (*gorm.DB, error) {
	dialectorsMu.RLock()
	opener, ok := dialectors[driver]
	dialectorsMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown database driver %q", driver)
	}

	db, err := gorm.Open(opener(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying DB object: %w", err)
	}

	if driver == "sqlite" {
		// SQLite allows a single writer.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(50)
		sqlDB.SetMaxIdleConns(50)
	}
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	return db, nil
}
