package dto

// RateResponse ... payload served by the exchange rate source, prices quoted against Base
type RateResponse struct {
	Base  string            `json:"base"`
	Rates map[string]string `json:"rates"`
}
