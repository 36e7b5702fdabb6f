package dto

import "time"

// PaymentRequest ... the payment a wallet is issued for
type PaymentRequest struct {
	ID       string `json:"id" validate:"required,max=100"`
	Amount   string `json:"amount" validate:"required,amount"`
	Currency string `json:"currency" validate:"required,currency"`
}

// PaymentWallet ... receiving address and what the payer must send to it
type PaymentWallet struct {
	Address      string    `json:"address"`
	Amount       string    `json:"amount"`
	Currency     string    `json:"currency"`
	Network      string    `json:"network"`
	Instructions string    `json:"instructions"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// GasFeeResponse ...
type GasFeeResponse struct {
	Currency string `json:"currency"`
	Fee      string `json:"fee"`
}

// SupportedCurrencyResponse ...
type SupportedCurrencyResponse struct {
	Currency  string `json:"currency"`
	Supported bool   `json:"supported"`
}

// RecheckResponse ... outcome of an operator triggered sweep attempt
type RecheckResponse struct {
	Address string `json:"address"`
	TxHash  string `json:"txHash,omitempty"`
	Swept   bool   `json:"swept"`
}
