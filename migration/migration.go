package migration

import (
	"context"
	"crypto-collector/config"
	"crypto-collector/database"
	"crypto-collector/utility/logger"
	"database/sql"
	"time"

	"github.com/pressly/goose"
)

// RunDbMigrations ... applies the registered Go migrations to the ledger database
func RunDbMigrations(cfg config.Data) error {
	db, err := sql.Open("mysql", database.ConnectionString(cfg))
	if err != nil {
		logger.Error("Error creating db connection for migration : %s", err)
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err = db.PingContext(ctx); err != nil {
		logger.Error("Database connection interrupted : %s", err)
		return err
	}
	return Up(db, "mysql", cfg.DBMigrationPath)
}

// Up ... migrates db up to the latest registered version
func Up(db *sql.DB, dialect, dir string) error {
	if err := goose.SetDialect(dialect); err != nil {
		return err
	}
	if dir == "" {
		dir = "."
	}
	if err := goose.Up(db, dir); err != nil {
		logger.Error("Error with DB Migration : %s", err)
		return err
	}
	logger.Info("Database migrations applied")
	return nil
}
