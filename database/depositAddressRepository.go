package database

import (
	"crypto-collector/model"
	"crypto-collector/utility/appError"
	"crypto-collector/utility/constants"
	"crypto-collector/utility/errorcode"
	"crypto-collector/utility/logger"
	"fmt"
	"net/http"
	"time"

	"github.com/jinzhu/gorm"
)

// IDepositAddressRepository ... ledger store for generated deposit addresses
type IDepositAddressRepository interface {
	IRepository
	FindByPaymentID(paymentID string, record *model.DepositAddress) error
	FindByAddress(address string, record *model.DepositAddress) error
	AppendDeposit(record *model.DepositAddress, entry model.DepositEntry) error
	Touch(record *model.DepositAddress, at time.Time) error
	MaxDerivationIndex(network, group string) (int64, bool, error)
	ReserveDerivationIndex(network, group string) (int64, error)
	FetchActive(now time.Time, records *[]model.DepositAddress) error
	SaveWatch(watch *model.WatchedAddress) error
	CloseWatch(address, reason string, at time.Time) error
}

// DepositAddressRepository ...
type DepositAddressRepository struct {
	BaseRepository
}

// NewDepositAddressRepository ...
func NewDepositAddressRepository(db Database) *DepositAddressRepository {
	return &DepositAddressRepository{BaseRepository{Database: db}}
}

// FindByPaymentID ... the record issued for a payment, with its deposits in append order
func (repo *DepositAddressRepository) FindByPaymentID(paymentID string, record *model.DepositAddress) error {
	if err := repo.DB.Preload("Deposits", orderedDeposits).Where(model.DepositAddress{PaymentID: paymentID}).First(record).Error; err != nil {
		if !gorm.IsRecordNotFoundError(err) {
			logger.Error("Error with repository FindByPaymentID %s : %s", paymentID, err)
		}
		return repoError(err)
	}
	return nil
}

// FindByAddress ...
func (repo *DepositAddressRepository) FindByAddress(address string, record *model.DepositAddress) error {
	if err := repo.DB.Preload("Deposits", orderedDeposits).Where(model.DepositAddress{WalletAddress: address}).First(record).Error; err != nil {
		if !gorm.IsRecordNotFoundError(err) {
			logger.Error("Error with repository FindByAddress %s : %s", address, err)
		}
		return repoError(err)
	}
	return nil
}

// AppendDeposit ... inserts a deposit entry and refreshes lastChecked in one transaction
func (repo *DepositAddressRepository) AppendDeposit(record *model.DepositAddress, entry model.DepositEntry) error {
	entry.DepositAddressID = record.ID
	if err := NewTx(repo.DB).
		Create(&entry).
		Update(byID(record), map[string]interface{}{"last_checked": entry.Timestamp}).
		Commit(); err != nil {
		logger.Error("Error with repository AppendDeposit %s for %s : %s", entry.TxHash, record.WalletAddress, err)
		return err
	}
	record.Deposits = append(record.Deposits, entry)
	record.LastChecked = entry.Timestamp
	return nil
}

// Touch ... refreshes lastChecked without touching deposits
func (repo *DepositAddressRepository) Touch(record *model.DepositAddress, at time.Time) error {
	if err := repo.DB.Model(byID(record)).Updates(map[string]interface{}{"last_checked": at}).Error; err != nil {
		logger.Error("Error with repository Touch for %s : %s", record.WalletAddress, err)
		return repoError(err)
	}
	record.LastChecked = at
	return nil
}

// MaxDerivationIndex ... highest index ever issued in the group, soft deleted rows included
func (repo *DepositAddressRepository) MaxDerivationIndex(network, group string) (int64, bool, error) {
	last := model.DepositAddress{}
	err := repo.DB.Unscoped().
		Where(model.DepositAddress{Network: network, CurrencyGroup: group}).
		Order("derivation_index desc").
		First(&last).Error
	if gorm.IsRecordNotFoundError(err) {
		return 0, false, nil
	}
	if err != nil {
		logger.Error("Error with repository MaxDerivationIndex %s/%s : %s", network, group, err)
		return 0, false, repoError(err)
	}
	return last.DerivationIndex, true, nil
}

// ReserveDerivationIndex ... atomically claims the next index of the group with a compare-and-swap on its sequence row
func (repo *DepositAddressRepository) ReserveDerivationIndex(network, group string) (int64, error) {
	for attempt := 0; attempt < constants.MAX_RESERVE_ATTEMPTS; attempt++ {
		sequence := model.DerivationSequence{}
		err := repo.DB.Where(model.DerivationSequence{Network: network, CurrencyGroup: group}).First(&sequence).Error
		if gorm.IsRecordNotFoundError(err) {
			if sequence, err = repo.seedSequence(network, group); err != nil {
				// another caller seeded the row first
				continue
			}
		} else if err != nil {
			logger.Error("Error with repository ReserveDerivationIndex %s/%s : %s", network, group, err)
			return -1, repoError(err)
		}

		result := repo.DB.Model(&model.DerivationSequence{}).
			Where("network = ? AND currency_group = ? AND next_index = ?", network, group, sequence.NextIndex).
			Updates(map[string]interface{}{"next_index": sequence.NextIndex + 1})
		if result.Error != nil {
			logger.Error("Error with repository ReserveDerivationIndex %s/%s : %s", network, group, result.Error)
			return -1, repoError(result.Error)
		}
		if result.RowsAffected == 1 {
			return sequence.NextIndex, nil
		}
		logger.Debug("Derivation index %d for %s/%s taken, retrying", sequence.NextIndex, network, group)
	}
	return -1, appError.Err{
		ErrType: errorcode.INDEX_CONTENTION,
		ErrCode: http.StatusServiceUnavailable,
		Err:     fmt.Errorf("could not reserve a derivation index for %s/%s after %d attempts", network, group, constants.MAX_RESERVE_ATTEMPTS),
	}
}

// seedSequence creates the group's sequence row starting after the highest issued index
func (repo *DepositAddressRepository) seedSequence(network, group string) (model.DerivationSequence, error) {
	max, found, err := repo.MaxDerivationIndex(network, group)
	if err != nil {
		return model.DerivationSequence{}, err
	}
	next := int64(0)
	if found {
		next = max + 1
	}
	sequence := model.DerivationSequence{Network: network, CurrencyGroup: group, NextIndex: next}
	if err := repo.DB.Create(&sequence).Error; err != nil {
		return model.DerivationSequence{}, err
	}
	return sequence, nil
}

// FetchActive ... every record that has not expired yet
func (repo *DepositAddressRepository) FetchActive(now time.Time, records *[]model.DepositAddress) error {
	if err := repo.DB.Preload("Deposits", orderedDeposits).Where("expires_at > ?", now).Order("created_at").Find(records).Error; err != nil {
		logger.Error("Error with repository FetchActive : %s", err)
		return repoError(err)
	}
	return nil
}

// SaveWatch ... marks an address as watched by a worker, reusing its row across restarts
func (repo *DepositAddressRepository) SaveWatch(watch *model.WatchedAddress) error {
	update := map[string]interface{}{
		"network":            watch.Network,
		"currency":           watch.Currency,
		"deposit_address_id": watch.DepositAddressID,
		"worker_id":          watch.WorkerID,
		"active":             true,
		"registered_at":      watch.RegisteredAt,
		"deregistered_at":    nil,
		"reason":             "",
	}
	if err := repo.DB.Where(model.WatchedAddress{Address: watch.Address}).Assign(update).FirstOrCreate(watch).Error; err != nil {
		logger.Error("Error with repository SaveWatch for %s : %s", watch.Address, err)
		return repoError(err)
	}
	return nil
}

// CloseWatch ... records why and when an address stopped being watched
func (repo *DepositAddressRepository) CloseWatch(address, reason string, at time.Time) error {
	if err := repo.DB.Model(&model.WatchedAddress{}).
		Where("address = ?", address).
		Updates(map[string]interface{}{"active": false, "deregistered_at": at, "reason": reason}).Error; err != nil {
		logger.Error("Error with repository CloseWatch for %s : %s", address, err)
		return repoError(err)
	}
	return nil
}

// byID scopes an update to the record row alone so its loaded deposits are never re-saved
func byID(record *model.DepositAddress) *model.DepositAddress {
	return &model.DepositAddress{BaseModel: model.BaseModel{ID: record.ID}}
}

func orderedDeposits(db *gorm.DB) *gorm.DB {
	return db.Order("deposit_entries.id")
}
