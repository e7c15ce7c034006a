package database

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/AzielCF/az-fleet/core/config"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// GlobalDB holds the singleton database connection
var GlobalDB *gorm.DB

// GetSQLDB returns the underlying *sql.DB, mainly for health probes.
func GetSQLDB() (*sql.DB, error) {
	if GlobalDB == nil {
		return nil, fmt.Errorf("global database not initialized")
	}
	return GlobalDB.DB()
}

// NewDatabase initializes the database connection from DATABASE_URL and
// stores it as the process-wide singleton.
func NewDatabase(cfg *config.Config) (*gorm.DB, error) {
	db, err := NewDatabaseWithURL(cfg, cfg.Database.URL)
	if err == nil {
		GlobalDB = db
	}
	return db, err
}

// NewDatabaseWithURL opens a connection to the given URL with the same
// global settings. Postgres URLs get the resolved sslmode appended when
// they do not already pin one; anything else is treated as a sqlite DSN.
func NewDatabaseWithURL(cfg *config.Config, url string) (*gorm.DB, error) {
	var dialector gorm.Dialector

	isPostgres := strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://")
	if isPostgres {
		dialector = postgres.Open(applySSLMode(url, cfg.Database.SSLMode))
	} else {
		dsn := url
		if !strings.Contains(dsn, "?") {
			dsn = fmt.Sprintf("%s?_journal_mode=WAL&_foreign_keys=on", dsn)
		}
		dialector = sqlite.Open(dsn)
	}

	logLevel := logger.Warn
	if cfg.App.Debug {
		logLevel = logger.Info
	}
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB instance: %w", err)
	}

	if isPostgres {
		sqlDB.SetMaxOpenConns(cfg.Database.MaxConnections)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxLifetime(time.Hour)
	} else {
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	return db, nil
}

// applySSLMode appends the resolved sslmode to a postgres URL unless the
// caller already pinned one in the URL itself.
func applySSLMode(url, sslMode string) string {
	if sslMode == "" || strings.Contains(url, "sslmode=") {
		return url
	}
	sep := "?"
	if strings.Contains(url, "?") {
		sep = "&"
	}
	return url + sep + "sslmode=" + sslMode
}
