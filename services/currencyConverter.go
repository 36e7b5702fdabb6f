package services

import (
	"context"
	"crypto-collector/config"
	"crypto-collector/dto"
	"crypto-collector/utility/apiClient"
	"crypto-collector/utility/appError"
	"crypto-collector/utility/cache"
	"crypto-collector/utility/constants"
	"crypto-collector/utility/errorcode"
	"crypto-collector/utility/logger"
	"net/http"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

const defaultRateTimeout = 10 * time.Second

// CurrencyConverter ... converts an amount between two currency codes
type CurrencyConverter interface {
	Convert(amount decimal.Decimal, from, to string) (decimal.Decimal, error)
}

// RateService ... converter backed by periodically refreshed exchange rates
type RateService struct {
	Cache  *cache.Memory
	Config config.Data
	client *apiClient.Client

	refreshMu sync.Mutex
}

// NewRateService ...
func NewRateService(memoryCache *cache.Memory, cfg config.Data, httpClient *http.Client) (*RateService, error) {
	client, err := apiClient.New(httpClient, cfg, cfg.RateSourceURL)
	if err != nil {
		return nil, appError.Configuration("rate source: %s", err)
	}
	return &RateService{Cache: memoryCache, Config: cfg, client: client}, nil
}

// Refresh ... pulls the latest rates; cached rates expire after expireCacheDuration
func (service *RateService) Refresh(ctx context.Context) error {
	service.refreshMu.Lock()
	defer service.refreshMu.Unlock()

	request, err := service.client.NewRequest(ctx, http.MethodGet, "", nil)
	if err != nil {
		return err
	}
	response := dto.RateResponse{}
	if _, err := service.client.Do(request, &response); err != nil {
		logger.Error("Could not refresh exchange rates : %s", err)
		return appError.New(http.StatusBadGateway, errorcode.RATE_UNAVAILABLE, "refresh rates: %s", err)
	}

	for symbol, value := range response.Rates {
		rate, err := decimal.NewFromString(value)
		if err != nil || !rate.IsPositive() {
			logger.Warning("Ignoring rate %q for %s", value, symbol)
			continue
		}
		service.Cache.Set(constants.RATE_CACHE_PREFIX+symbol, rate, true)
	}
	if response.Base != "" {
		service.Cache.Set(constants.RATE_CACHE_PREFIX+response.Base, decimal.NewFromInt(1), true)
	}
	logger.Debug("Refreshed %d exchange rates against %s", len(response.Rates), response.Base)
	return nil
}

// Convert ... amount in `from` expressed in `to`, through the common quote currency
func (service *RateService) Convert(amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	fromSymbol, toSymbol := constants.RateSymbol(from), constants.RateSymbol(to)
	if fromSymbol == toSymbol {
		return amount, nil
	}
	fromRate, err := service.rate(fromSymbol)
	if err != nil {
		return decimal.Zero, err
	}
	toRate, err := service.rate(toSymbol)
	if err != nil {
		return decimal.Zero, err
	}
	return amount.Mul(fromRate).DivRound(toRate, 18), nil
}

func (service *RateService) rate(symbol string) (decimal.Decimal, error) {
	if rate, ok := service.Cache.Get(constants.RATE_CACHE_PREFIX + symbol).(decimal.Decimal); ok {
		return rate, nil
	}
	// a cold or expired cache gets one synchronous refresh
	ctx, cancel := context.WithTimeout(context.Background(), config.Seconds(service.Config.RequestTimeout, defaultRateTimeout))
	defer cancel()
	if err := service.Refresh(ctx); err != nil {
		return decimal.Zero, err
	}
	if rate, ok := service.Cache.Get(constants.RATE_CACHE_PREFIX + symbol).(decimal.Decimal); ok {
		return rate, nil
	}
	return decimal.Zero, appError.New(http.StatusBadRequest, errorcode.RATE_UNAVAILABLE, "no exchange rate for %s", symbol)
}
