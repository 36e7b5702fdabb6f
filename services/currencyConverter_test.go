package services

import (
	"crypto-collector/config"
	"crypto-collector/utility/appError"
	"crypto-collector/utility/cache"
	"crypto-collector/utility/errorcode"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rateServer(t *testing.T, hits *int32) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(map[string]interface{}{
			"base": "USD",
			"rates": map[string]string{
				"ETH":  "2000",
				"TRX":  "0.25",
				"USDT": "1",
				"BAD":  "not-a-number",
			},
		}))
	}))
}

func newTestRateService(t *testing.T, url string) *RateService {
	service, err := NewRateService(cache.Initialize(time.Minute, time.Minute), config.Data{RateSourceURL: url, RequestTimeout: 5}, nil)
	require.NoError(t, err)
	return service
}

func TestConvertThroughQuoteCurrency(t *testing.T) {
	var hits int32
	server := rateServer(t, &hits)
	defer server.Close()
	service := newTestRateService(t, server.URL)

	usdt, err := service.Convert(decimal.RequireFromString("0.002"), "ETH", "USDT_ERC20")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(4).Equal(usdt), usdt.String())

	trx, err := service.Convert(decimal.NewFromInt(1), "USDT_TRC20", "TRX")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(4).Equal(trx), trx.String())

	// the first lookup refreshed the cache, later lookups are served from it
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestConvertSameSymbolIsIdentity(t *testing.T) {
	service := newTestRateService(t, "http://127.0.0.1:1")

	amount, err := service.Convert(decimal.RequireFromString("12.5"), "USDT_ERC20", "USDT_TRC20")
	require.NoError(t, err)
	assert.Equal(t, "12.5", amount.String())
}

func TestConvertUnknownCurrency(t *testing.T) {
	var hits int32
	server := rateServer(t, &hits)
	defer server.Close()
	service := newTestRateService(t, server.URL)

	_, err := service.Convert(decimal.NewFromInt(1), "DOGE", "ETH")
	require.Error(t, err)
	assert.True(t, appError.Is(err, errorcode.RATE_UNAVAILABLE))

	_, err = service.Convert(decimal.NewFromInt(1), "ETH", "BAD")
	assert.True(t, appError.Is(err, errorcode.RATE_UNAVAILABLE))
}

func TestRefreshFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()
	service := newTestRateService(t, server.URL)

	_, err := service.Convert(decimal.NewFromInt(1), "ETH", "TRX")
	assert.True(t, appError.Is(err, errorcode.RATE_UNAVAILABLE))
}
