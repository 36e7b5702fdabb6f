package routes

import (
	"crypto-collector/config"
	"crypto-collector/controllers"
	"crypto-collector/middlewares"
	"crypto-collector/utility/logger"
	"crypto-collector/utility/metrics"
	"crypto-collector/utility/validator"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

// Register ... Adds router handle to general handler function
func Register(router *mux.Router, validator *validator.Validator, config config.Data, factory controllers.WalletFactory, repository controllers.AddressLookup) {
	controller := controllers.NewController(config, validator, factory, repository)
	requestTimeout := time.Duration(config.RequestTimeout) * time.Second
	issueTimeout := controllers.IssueTimeout(config)
	recheckTimeout := controllers.RecheckTimeout(config)

	apiRouter := router.PathPrefix("").Subrouter()

	// General Routes
	apiRouter.HandleFunc("/ping", controller.Ping).Methods(http.MethodGet)
	apiRouter.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	// Payment wallet Routes
	apiRouter.HandleFunc("/payment-wallets", middlewares.NewMiddleware(controller.GeneratePaymentWallet).LogAPIRequests().Timeout(issueTimeout).Build()).Methods(http.MethodPost)
	apiRouter.HandleFunc("/currencies/{currency}/gas-fee", middlewares.NewMiddleware(controller.GetGasFee).LogAPIRequests().Timeout(requestTimeout).Build()).Methods(http.MethodGet)
	apiRouter.HandleFunc("/currencies/{currency}/supported", middlewares.NewMiddleware(controller.IsSupportedCurrency).LogAPIRequests().Build()).Methods(http.MethodGet)

	// Deposit address Routes
	apiRouter.HandleFunc("/deposit-addresses/{address}", middlewares.NewMiddleware(controller.GetDepositAddress).LogAPIRequests().Timeout(requestTimeout).Build()).Methods(http.MethodGet)
	apiRouter.HandleFunc("/deposit-addresses/{address}/recheck", middlewares.NewMiddleware(controller.RecheckDepositAddress).LogAPIRequests().Timeout(recheckTimeout).Build()).Methods(http.MethodPost)

	logger.Info("App routes registered successfully!")
}
