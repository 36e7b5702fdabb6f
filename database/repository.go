package database

import (
	"crypto-collector/utility/appError"
	"crypto-collector/utility/errorcode"
	"crypto-collector/utility/logger"
	"net/http"

	"github.com/jinzhu/gorm"
)

// IRepository ... generic reads and inserts shared by the ledger stores
type IRepository interface {
	GetByFieldName(field interface{}, model interface{}) error
	Create(model interface{}) error
	Db() *gorm.DB
}

// BaseRepository ... Model definition for database base repository
type BaseRepository struct {
	Database
}

// GetByFieldName ... Retrieves a record for the specified model from the database for a given field name
func (repo *BaseRepository) GetByFieldName(field interface{}, model interface{}) error {
	if err := repo.DB.Where(field).First(model).Error; err != nil {
		if !gorm.IsRecordNotFoundError(err) {
			logger.Error("Error with repository GetByFieldName : %+v", err)
		}
		return repoError(err)
	}
	return nil
}

// Create ... inserts model; unique violations surface as SERVER_ERR carrying the driver message
func (repo *BaseRepository) Create(model interface{}) error {
	if err := repo.DB.Create(model).Error; err != nil {
		logger.Error("Error with repository Create : %s", err)
		return repoError(err)
	}
	return nil
}

// Db ...
func (repo *BaseRepository) Db() *gorm.DB {
	return repo.DB
}

// TX chains writes inside one transaction, stopping at the first failure
type TX struct {
	tx  *gorm.DB
	err error
}

// NewTx ...
func NewTx(db *gorm.DB) *TX {
	tx := db.Begin()
	return &TX{tx: tx, err: wrapErr(tx.Error)}
}

// Create ...
func (db *TX) Create(model interface{}) *TX {
	if db.err != nil {
		return db
	}
	return db.fail(db.tx.Create(model).Error)
}

// Update ... applies only the non zero fields of update to the row model points at
func (db *TX) Update(model, update interface{}) *TX {
	if db.err != nil {
		return db
	}
	return db.fail(db.tx.Model(model).Updates(update).Error)
}

// Commit ... returns the first error of the chain, the transaction is already rolled back then
func (db *TX) Commit() error {
	if db.err != nil {
		return db.err
	}
	return wrapErr(db.tx.Commit().Error)
}

func (db *TX) fail(err error) *TX {
	if err == nil {
		return db
	}
	db.tx.Rollback()
	return &TX{tx: db.tx, err: repoError(err)}
}

func wrapErr(err error) error {
	if err == nil {
		return nil
	}
	return repoError(err)
}

func repoError(err error) error {
	if gorm.IsRecordNotFoundError(err) {
		return appError.Err{
			ErrType: errorcode.RECORD_NOT_FOUND,
			ErrCode: http.StatusNotFound,
			Err:     err,
		}
	}
	return appError.Err{
		ErrType: errorcode.SERVER_ERR,
		ErrCode: http.StatusInternalServerError,
		Err:     err,
		ErrData: appError.GetSQLErr(err),
	}
}
