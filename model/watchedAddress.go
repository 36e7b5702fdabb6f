package model

import (
	"time"

	uuid "github.com/satori/go.uuid"
)

// WatchedAddress ... persisted watch list entry owned by one worker
type WatchedAddress struct {
	BaseModel
	Address          string     `gorm:"type:VARCHAR(100);not null;unique_index" json:"address"`
	Network          string     `gorm:"type:VARCHAR(20);not null" json:"network"`
	Currency         string     `gorm:"type:VARCHAR(20);not null" json:"currency"`
	DepositAddressID uuid.UUID  `gorm:"type:VARCHAR(36);not null" json:"depositAddressId"`
	WorkerID         string     `gorm:"type:VARCHAR(100)" json:"workerId"`
	Active           bool       `json:"active"`
	RegisteredAt     time.Time  `json:"registeredAt"`
	DeregisteredAt   *time.Time `json:"deregisteredAt,omitempty"`
	Reason           string     `gorm:"type:VARCHAR(50)" json:"reason,omitempty"`
}
