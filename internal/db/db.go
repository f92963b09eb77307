// Package db opens the gorm connection backing internal/sessionstore,
// generalized from the teacher's single-purpose Postgres-only Init into a
// Postgres-or-SQLite opener selected by which DSN is configured, so
// cmd/research-server can run against a shared Postgres instance or an
// embedded SQLite file. cmd/research-cli does not use this package; its
// local history lives in sessionstore.BoltStore.
package db

import (
	"errors"
	"log"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"go-deep-research/internal/config"
	"go-deep-research/internal/sessionstore"
)

// DB is the process-wide gorm handle, set once by Init.
var DB *gorm.DB

// Init opens the configured database and migrates the research-session
// schema. Postgres.DSN takes priority; otherwise SQLite.Path is used, so a
// deployment with only RESEARCH_SQLITE_PATH set runs with zero external
// dependencies.
func Init(cfg *config.Config) error {
	var dialector gorm.Dialector
	switch {
	case cfg.Postgres.DSN != "":
		dialector = postgres.Open(cfg.Postgres.DSN)
	case cfg.SQLite.Path != "":
		dialector = sqlite.Open(cfg.SQLite.Path)
	default:
		return errors.New("db: neither postgres.dsn nor sqlite.path configured")
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return err
	}

	if err := gdb.AutoMigrate(&sessionstore.SessionRecord{}); err != nil {
		return err
	}

	DB = gdb
	log.Printf("[db] connected and migrated research_session schema")
	return nil
}
