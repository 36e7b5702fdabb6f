package processors

import (
	"context"
	"crypto-collector/dto"
	"crypto-collector/utility/appError"
	"crypto-collector/utility/constants"
	"crypto-collector/utility/errorcode"
	"net/http"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Factory ... routes a currency to the processor of its network
type Factory struct {
	processors map[string]NetworkProcessor
}

// NewFactory ...
func NewFactory() *Factory {
	return &Factory{processors: map[string]NetworkProcessor{}}
}

// Register ... processor serving network
func (factory *Factory) Register(network string, processor NetworkProcessor) {
	factory.processors[network] = processor
}

// Networks ... registered network names, sorted
func (factory *Factory) Networks() []string {
	networks := make([]string, 0, len(factory.processors))
	for network := range factory.processors {
		networks = append(networks, network)
	}
	sort.Strings(networks)
	return networks
}

// GetProcessorFromNetwork ...
func (factory *Factory) GetProcessorFromNetwork(network string) (NetworkProcessor, error) {
	processor, ok := factory.processors[network]
	if !ok {
		return nil, appError.Configuration("no processor registered for network %s", network)
	}
	return processor, nil
}

// GetProcessorFromCurrency ... a currency outside the catalogue or on an unregistered network is a deployment error
func (factory *Factory) GetProcessorFromCurrency(currency string) (NetworkProcessor, error) {
	entry, ok := constants.Lookup(strings.ToUpper(currency))
	if !ok {
		return nil, appError.Configuration("currency %s is not mapped to a network", currency)
	}
	return factory.GetProcessorFromNetwork(entry.Network)
}

// IsSupportedCurrency ...
func (factory *Factory) IsSupportedCurrency(currency string) bool {
	processor, err := factory.GetProcessorFromCurrency(currency)
	if err != nil {
		return false
	}
	return processor.IsSupportedCurrency(strings.ToUpper(currency))
}

// EstimateGasFee ...
func (factory *Factory) EstimateGasFee(ctx context.Context, currency string) (decimal.Decimal, error) {
	processor, err := factory.GetProcessorFromCurrency(currency)
	if err != nil {
		return decimal.Zero, err
	}
	return processor.EstimateGasFee(ctx, strings.ToUpper(currency))
}

// GeneratePaymentWallet ...
func (factory *Factory) GeneratePaymentWallet(ctx context.Context, payment dto.PaymentRequest) (dto.PaymentWallet, error) {
	payment.Currency = strings.ToUpper(payment.Currency)
	processor, err := factory.GetProcessorFromCurrency(payment.Currency)
	if err != nil {
		return dto.PaymentWallet{}, err
	}
	return processor.GeneratePaymentWallet(ctx, payment)
}

// Recheck ... one sweep attempt for address on whichever network issued it
func (factory *Factory) Recheck(ctx context.Context, network, address string) (string, error) {
	processor, err := factory.GetProcessorFromNetwork(strings.ToUpper(network))
	if err != nil {
		return "", appError.New(http.StatusBadRequest, errorcode.INPUT_ERR_CODE, "unknown network %s", network)
	}
	return processor.Recheck(ctx, address)
}
