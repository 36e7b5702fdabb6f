package model

import (
	"time"

	uuid "github.com/satori/go.uuid"
	"github.com/shopspring/decimal"
)

// DepositAddress ... one generated receiving address per payment, the audit trail for custodial funds
type DepositAddress struct {
	BaseModel
	PaymentID       string         `gorm:"type:VARCHAR(100);not null;unique_index" json:"paymentId"`
	Network         string         `gorm:"type:VARCHAR(20);not null;unique_index:uix_deposit_addresses_derivation" json:"network"`
	Currency        string         `gorm:"type:VARCHAR(20);not null" json:"currency"`
	CurrencyGroup   string         `gorm:"type:VARCHAR(20);not null;unique_index:uix_deposit_addresses_derivation" json:"currencyGroup"`
	WalletAddress   string         `gorm:"type:VARCHAR(100);not null;unique_index" json:"walletAddress"`
	DerivationPath  string         `gorm:"type:VARCHAR(100);not null" json:"derivationPath"`
	DerivationIndex int64          `gorm:"not null;unique_index:uix_deposit_addresses_derivation" json:"derivationIndex"`
	RequestedAmount string         `gorm:"type:VARCHAR(100);not null" json:"requestedAmount"`
	EstimatedGasFee string         `gorm:"type:VARCHAR(100);not null" json:"estimatedGasFee"`
	TotalRequested  string         `gorm:"type:VARCHAR(100);not null" json:"totalRequested"`
	PrefundTxHash   string         `gorm:"type:VARCHAR(100)" json:"prefundTxHash,omitempty"`
	Deposits        []DepositEntry `gorm:"foreignkey:DepositAddressID;association_autoupdate:false" json:"deposits"`
	LastChecked     time.Time      `json:"lastChecked"`
	ExpiresAt       time.Time      `gorm:"index" json:"expiresAt"`
}

// DepositEntry ... a swept deposit, appended and never rewritten
type DepositEntry struct {
	ID               uint      `gorm:"primary_key" json:"-"`
	DepositAddressID uuid.UUID `gorm:"type:VARCHAR(36);not null;index" json:"-"`
	TxHash           string    `gorm:"type:VARCHAR(100);not null;unique_index" json:"txHash"`
	Amount           string    `gorm:"type:VARCHAR(100);not null" json:"amount"`
	GasFee           string    `gorm:"type:VARCHAR(100);not null" json:"gasFee"`
	Timestamp        time.Time `json:"timestamp"`
	Processed        bool      `json:"processed"`
}

// IsExpired ...
func (record DepositAddress) IsExpired(now time.Time) bool {
	return !now.Before(record.ExpiresAt)
}

// TotalDeposited sums every swept amount on the record
func (record DepositAddress) TotalDeposited() decimal.Decimal {
	total := decimal.Zero
	for _, deposit := range record.Deposits {
		amount, err := decimal.NewFromString(deposit.Amount)
		if err != nil {
			continue
		}
		total = total.Add(amount)
	}
	return total
}

// IsSettled reports whether swept deposits cover the requested amount
func (record DepositAddress) IsSettled() bool {
	requested, err := decimal.NewFromString(record.RequestedAmount)
	if err != nil {
		return false
	}
	return record.TotalDeposited().GreaterThanOrEqual(requested)
}

// IsActive ... a record stops being active once it expires or is settled; the row persists either way
func (record DepositAddress) IsActive(now time.Time) bool {
	return !record.IsExpired(now) && !record.IsSettled()
}
