package controllers

import (
	"crypto-collector/dto"
	"crypto-collector/model"
	"crypto-collector/utility/errorcode"
	"crypto-collector/utility/logger"
	Response "crypto-collector/utility/response"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
)

// GeneratePaymentWallet ... issues (or returns the already issued) deposit address of a payment
func (c *Controller) GeneratePaymentWallet(responseWriter http.ResponseWriter, requestReader *http.Request) {
	apiResponse := Response.New()
	request := dto.PaymentRequest{}
	if err := json.NewDecoder(requestReader.Body).Decode(&request); err != nil {
		logger.Error("Outgoing response to GeneratePaymentWallet request %d : %s", http.StatusBadRequest, err)
		writeJSON(responseWriter, http.StatusBadRequest, apiResponse.PlainError(errorcode.INPUT_ERR_CODE, errorcode.INPUT_ERR))
		return
	}
	if validationErrors := c.Validator.Struct(request); validationErrors != nil {
		logger.Error("Outgoing response to GeneratePaymentWallet request %d : %v", http.StatusBadRequest, validationErrors)
		writeJSON(responseWriter, http.StatusBadRequest, apiResponse.ValidateError(errorcode.INPUT_ERR_CODE, errorcode.VALIDATION_ERR, validationErrors))
		return
	}

	logger.Info("Incoming request details for GeneratePaymentWallet : %+v", request)
	ctx, cancel := detached(requestReader, IssueTimeout(c.Config))
	defer cancel()
	wallet, err := c.Factory.GeneratePaymentWallet(ctx, request)
	if err != nil {
		ReturnError(responseWriter, "GeneratePaymentWallet", err)
		return
	}
	logger.Info("Outgoing response to GeneratePaymentWallet request %+v", wallet)
	writeJSON(responseWriter, http.StatusOK, apiResponse.Successful("SUCCESS", errorcode.SUCCESS, wallet))
}

// GetGasFee ... outbound fee of a currency, expressed in that currency
func (c *Controller) GetGasFee(responseWriter http.ResponseWriter, requestReader *http.Request) {
	apiResponse := Response.New()
	currency := strings.ToUpper(mux.Vars(requestReader)["currency"])

	fee, err := c.Factory.EstimateGasFee(requestReader.Context(), currency)
	if err != nil {
		ReturnError(responseWriter, "GetGasFee", err)
		return
	}
	writeJSON(responseWriter, http.StatusOK, apiResponse.Successful("SUCCESS", errorcode.SUCCESS, dto.GasFeeResponse{Currency: currency, Fee: fee.String()}))
}

// IsSupportedCurrency ...
func (c *Controller) IsSupportedCurrency(responseWriter http.ResponseWriter, requestReader *http.Request) {
	apiResponse := Response.New()
	currency := strings.ToUpper(mux.Vars(requestReader)["currency"])
	writeJSON(responseWriter, http.StatusOK, apiResponse.Successful("SUCCESS", errorcode.SUCCESS,
		dto.SupportedCurrencyResponse{Currency: currency, Supported: c.Factory.IsSupportedCurrency(currency)}))
}

// GetDepositAddress ... the ledger record of an address, deposits included
func (c *Controller) GetDepositAddress(responseWriter http.ResponseWriter, requestReader *http.Request) {
	apiResponse := Response.New()
	record := model.DepositAddress{}
	if err := c.Repository.FindByAddress(mux.Vars(requestReader)["address"], &record); err != nil {
		ReturnError(responseWriter, "GetDepositAddress", err)
		return
	}
	writeJSON(responseWriter, http.StatusOK, apiResponse.Successful("SUCCESS", errorcode.SUCCESS, record))
}

// RecheckDepositAddress ... one guarded sweep attempt, for deposits that arrived while nothing was watching
func (c *Controller) RecheckDepositAddress(responseWriter http.ResponseWriter, requestReader *http.Request) {
	apiResponse := Response.New()
	address := mux.Vars(requestReader)["address"]
	record := model.DepositAddress{}
	if err := c.Repository.FindByAddress(address, &record); err != nil {
		ReturnError(responseWriter, "RecheckDepositAddress", err)
		return
	}

	ctx, cancel := detached(requestReader, RecheckTimeout(c.Config))
	defer cancel()
	txHash, err := c.Factory.Recheck(ctx, record.Network, address)
	if err != nil {
		ReturnError(responseWriter, "RecheckDepositAddress", err)
		return
	}
	logger.Info("Outgoing response to RecheckDepositAddress request for %s : %q", address, txHash)
	writeJSON(responseWriter, http.StatusOK, apiResponse.Successful("SUCCESS", errorcode.SUCCESS,
		dto.RecheckResponse{Address: address, TxHash: txHash, Swept: txHash != ""}))
}
