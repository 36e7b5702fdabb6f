package constants

import "time"

const (
	NETWORK_ETHEREUM = "ETHEREUM"
	NETWORK_TRON     = "TRON"

	COIN_ETH        = "ETH"
	COIN_TRX        = "TRX"
	COIN_USDT       = "USDT"
	COIN_USDT_ERC20 = "USDT_ERC20"
	COIN_USDT_TRC20 = "USDT_TRC20"

	GROUP_ETH   = "ETH"
	GROUP_ERC20 = "ERC20"
	GROUP_TRX   = "TRX"
	GROUP_TRC20 = "TRC20"

	ETH_COINTYPE = 60
	TRX_COINTYPE = 195

	ETH_DECIMALS  = 18
	TRX_DECIMALS  = 6
	USDT_DECIMALS = 6

	PAYMENT_WINDOW          = 24 * time.Hour
	DEFAULT_WATCH_GRACE     = time.Hour
	DEFAULT_SWEEP_LOCK_TTL  = 2 * time.Minute
	DEFAULT_SWEEP_TIMEOUT   = 90 * time.Second
	DEFAULT_PREFUND_TIMEOUT = 3 * time.Minute
	TRON_POLL_INTERVAL      = 10 * time.Second
	RECEIPT_POLL_INTERVAL   = 2 * time.Second
	MAX_RESERVE_ATTEMPTS    = 10

	SWEEP_LOCK_PREFIX   = "sweep:"
	PAYMENT_LOCK_PREFIX = "payment:"
	RATE_CACHE_PREFIX   = "rate:"

	LOCKER_MEMORY = "memory"
	LOCKER_REDIS  = "redis"

	WATCH_REASON_RECORD_MISSING = "RECORD_NOT_FOUND"
	WATCH_REASON_EXPIRED        = "EXPIRED"
	WATCH_REASON_SHUTDOWN       = "SHUTDOWN"

	SWEEP_RESULT_SUCCESS = "success"
	SWEEP_RESULT_SKIPPED = "skipped"
	SWEEP_RESULT_FAILED  = "failed"
	SWEEP_RESULT_BUSY    = "busy"
)

// Currency ... catalogue entry for a settlement currency
type Currency struct {
	Code     string
	Network  string
	Group    string
	Account  uint32
	Decimals int
	IsToken  bool
}

// Currencies ... every currency the collector can settle, keyed by code
var Currencies = map[string]Currency{
	COIN_ETH:        {Code: COIN_ETH, Network: NETWORK_ETHEREUM, Group: GROUP_ETH, Account: 0, Decimals: ETH_DECIMALS},
	COIN_USDT_ERC20: {Code: COIN_USDT_ERC20, Network: NETWORK_ETHEREUM, Group: GROUP_ERC20, Account: 1, Decimals: USDT_DECIMALS, IsToken: true},
	COIN_TRX:        {Code: COIN_TRX, Network: NETWORK_TRON, Group: GROUP_TRX, Account: 0, Decimals: TRX_DECIMALS},
	COIN_USDT_TRC20: {Code: COIN_USDT_TRC20, Network: NETWORK_TRON, Group: GROUP_TRC20, Account: 1, Decimals: USDT_DECIMALS, IsToken: true},
}

// Lookup ...
func Lookup(code string) (Currency, bool) {
	currency, ok := Currencies[code]
	return currency, ok
}

// RateSymbol maps a settlement currency to the symbol priced by the rate source
func RateSymbol(code string) string {
	switch code {
	case COIN_USDT_ERC20, COIN_USDT_TRC20:
		return COIN_USDT
	}
	return code
}

// GroupAccount ... BIP44 account number reserved for a currency group
func GroupAccount(group string) (uint32, bool) {
	for _, currency := range Currencies {
		if currency.Group == group {
			return currency.Account, true
		}
	}
	return 0, false
}
