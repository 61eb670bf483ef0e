package httphandler

import (
	"github.com/carbon-ledger/token-sync/modules/tokensync/usecase"
	"github.com/carbon-ledger/token-sync/pkg/decimals"
	"github.com/gaze-network/uint128"
	"github.com/shopspring/decimal"
)

type HttpHandler struct {
	usecase        *usecase.Usecase
	amountDecimals uint16
}

// New creates the HTTP handler. Amounts are displayed with amountDecimals decimals.
func New(usecase *usecase.Usecase, amountDecimals uint16) *HttpHandler {
	return &HttpHandler{
		usecase:        usecase,
		amountDecimals: amountDecimals,
	}
}

type HttpResponse[T any] struct {
	Error  *string `json:"error"`
	Result *T      `json:"result,omitempty"`
}

// amount is a raw token amount with its display value.
type amount struct {
	Raw     uint128.Uint128 `json:"raw"`
	Display decimal.Decimal `json:"display"`
}

func (h *HttpHandler) amount(value uint128.Uint128) amount {
	return amount{
		Raw:     value,
		Display: decimals.ToDecimal(value, h.amountDecimals),
	}
}
