package errorcode

// Error types carried in appError.Err.ErrType
const (
	SERVER_ERR           = "SERVER_ERR"
	SERVER_ERR_CODE      = "SERVER_ERR"
	RECORD_NOT_FOUND     = "RECORD_NOT_FOUND"
	INPUT_ERR_CODE       = "INPUT_ERR"
	CONFIGURATION_ERR    = "CONFIGURATION_ERR"
	UNSUPPORTED_CURRENCY = "UNSUPPORTED_CURRENCY"
	RATE_UNAVAILABLE     = "RATE_UNAVAILABLE"
	PREFUND_FAILED       = "PREFUND_FAILED"
	INDEX_CONTENTION     = "INDEX_CONTENTION"
	CHAIN_ERR            = "CHAIN_ERR"
	LOCK_ERR             = "LOCK_ERR"
	PAYMENT_IN_PROGRESS  = "PAYMENT_IN_PROGRESS"
)

// Messages returned to API consumers
const (
	SUCCESS                  = "Request Processed Successfully"
	INPUT_ERR                = "Invalid Input Supplied. See documentation"
	SYSTEM_ERR               = "Request Could Not Be Processed. Server encountered an error"
	VALIDATION_ERR           = "Validation Failed For Some Fields"
	UNSUPPORTED_CURRENCY_MSG = "Currency (%s) is currently not supported"
	CONFIGURATION_ERR_MSG    = "Service is not configured to settle this currency"
	RECORD_NOT_FOUND_MSG     = "No deposit address found for %s"
	PREFUND_FAILED_MSG       = "Could not fund the payment address, retry later"
	PAYMENT_IN_PROGRESS_MSG  = "Payment %s is already being issued, retry shortly"
)
