package controllers

import (
	"context"
	"crypto-collector/config"
	"crypto-collector/dto"
	"crypto-collector/model"
	"crypto-collector/utility/appError"
	"crypto-collector/utility/constants"
	"crypto-collector/utility/errorcode"
	"crypto-collector/utility/logger"
	Response "crypto-collector/utility/response"
	"crypto-collector/utility/validator"
	"encoding/json"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// WalletFactory ... the processors the operator surface drives
type WalletFactory interface {
	IsSupportedCurrency(currency string) bool
	EstimateGasFee(ctx context.Context, currency string) (decimal.Decimal, error)
	GeneratePaymentWallet(ctx context.Context, payment dto.PaymentRequest) (dto.PaymentWallet, error)
	Recheck(ctx context.Context, network, address string) (string, error)
}

// AddressLookup ...
type AddressLookup interface {
	FindByAddress(address string, record *model.DepositAddress) error
}

//Controller : Controller struct
type Controller struct {
	Config     config.Data
	Validator  *validator.Validator
	Factory    WalletFactory
	Repository AddressLookup
}

// NewController ... Create a new base controller instance
func NewController(configData config.Data, validator *validator.Validator, factory WalletFactory, repository AddressLookup) *Controller {
	return &Controller{
		Config:     configData,
		Validator:  validator,
		Factory:    factory,
		Repository: repository,
	}
}

//Ping : Ping function
func (c *Controller) Ping(responseWriter http.ResponseWriter, requestReader *http.Request) {
	apiResponse := Response.New()
	logger.Info("Ping request successful! Server is up and listening")
	writeJSON(responseWriter, http.StatusOK, apiResponse.PlainSuccess("SUCCESS", "Ping request successful! Server is up and listening"))
}

// IssueTimeout ... how long issuing a wallet may take, prefund confirmation included
func IssueTimeout(cfg config.Data) time.Duration {
	return config.Seconds(cfg.RequestTimeout, time.Minute) + config.Seconds(cfg.PrefundTimeout, constants.DEFAULT_PREFUND_TIMEOUT)
}

// RecheckTimeout ... how long an operator recheck may take, transfer confirmation included
func RecheckTimeout(cfg config.Data) time.Duration {
	return config.Seconds(cfg.RequestTimeout, time.Minute) + config.Seconds(cfg.SweepTimeout, constants.DEFAULT_SWEEP_TIMEOUT)
}

// detached keeps the request values but not its cancellation: once funds may move on chain
// the work runs to the end of its own limit even if the caller goes away
func detached(requestReader *http.Request, limit time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(requestReader.Context()), limit)
}

// ReturnError ... logs err and writes its transport code with a body the caller can act on
func ReturnError(responseWriter http.ResponseWriter, handler string, err error) {
	apiResponse := Response.New()
	code := appError.Code(err)
	errType := appError.Type(err)
	message := err.Error()
	logger.Error("Outgoing response to %s request %d : %s", handler, code, err)
	if code >= http.StatusInternalServerError {
		if errType == errorcode.SERVER_ERR {
			message = errorcode.SYSTEM_ERR
		}
		writeJSON(responseWriter, code, apiResponse.PlainError(errType, message))
		return
	}
	if data := appError.Data(err); data != nil {
		writeJSON(responseWriter, code, apiResponse.Error(errType, message, data))
		return
	}
	writeJSON(responseWriter, code, apiResponse.PlainError(errType, message))
}

func writeJSON(responseWriter http.ResponseWriter, status int, body interface{}) {
	responseWriter.Header().Set("Content-Type", "application/json")
	responseWriter.WriteHeader(status)
	_ = json.NewEncoder(responseWriter).Encode(body)
}
