package model

// DerivationSequence ... next unissued derivation index for a network currency group
type DerivationSequence struct {
	BaseModel
	Network       string `gorm:"type:VARCHAR(20);not null;unique_index:uix_derivation_sequences_group"`
	CurrencyGroup string `gorm:"type:VARCHAR(20);not null;unique_index:uix_derivation_sequences_group"`
	NextIndex     int64  `gorm:"not null"`
}
