package utility

import (
	"math/big"
	"net"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
)

// NativeValue scales a display amount up to base units (wei, sun, token units)
func NativeValue(denominationDecimal int, rawValue decimal.Decimal) decimal.Decimal {
	conversionDecimal := decimal.NewFromInt(int64(denominationDecimal))
	baseExp := decimal.NewFromInt(10)
	return rawValue.Mul(baseExp.Pow(conversionDecimal))
}

// DisplayValue scales base units down to a display amount
func DisplayValue(denominationDecimal int, baseUnits *big.Int) decimal.Decimal {
	if baseUnits == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(baseUnits, -int32(denominationDecimal))
}

// BaseUnits converts a display amount into an integer amount of base units, truncating dust
func BaseUnits(denominationDecimal int, rawValue decimal.Decimal) *big.Int {
	return NativeValue(denominationDecimal, rawValue).Truncate(0).BigInt()
}

// GetIPAddress ... best effort client address for request logging
func GetIPAddress(request *http.Request) string {
	if forwarded := request.Header.Get("X-Forwarded-For"); forwarded != "" {
		return strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}
	if realIP := request.Header.Get("X-Real-Ip"); realIP != "" {
		return realIP
	}
	host, _, err := net.SplitHostPort(request.RemoteAddr)
	if err != nil {
		return request.RemoteAddr
	}
	return host
}
