package database

import (
	"context"
	"crypto-collector/config"
	"crypto-collector/utility/logger"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jinzhu/gorm"

	_ "github.com/jinzhu/gorm/dialects/mysql"
)

//Database : database struct
type Database struct {
	Config config.Data
	DB     *gorm.DB
}

var (
	once sync.Once
)

// ConnectionString ... mysql DSN built from config
func ConnectionString(cfg config.Data) string {
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true&multiStatements=true", cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBName)
}

// LoadDBInstance ... opens the shared ledger connection once; later calls reuse it
func (database *Database) LoadDBInstance() error {
	var err error
	once.Do(func() {
		var db *gorm.DB
		db, err = gorm.Open("mysql", ConnectionString(database.Config))
		if err != nil {
			logger.Error("Error creating database connection %s", err)
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err = db.DB().PingContext(ctx); err != nil {
			logger.Error("Database connection closed. Error > %s", err)
			db.Close()
			return
		}

		db.DB().SetMaxIdleConns(database.Config.MaxIdleConns)
		db.DB().SetMaxOpenConns(database.Config.MaxOpenConns)
		db.DB().SetConnMaxLifetime(time.Second * time.Duration(database.Config.ConnMaxLifetime))
		db.LogMode(database.Config.LogLevel == "DEBUG")
		database.DB = db
		logger.Info("Database connection successful!")
	})
	if err == nil && database.DB == nil {
		err = errors.New("database connection was not established")
	}
	return err
}

// CloseDBInstance ...
func (database *Database) CloseDBInstance() {
	if database.DB != nil {
		database.DB.Close()
	}
}
