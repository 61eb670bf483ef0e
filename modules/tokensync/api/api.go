package api

import (
	"github.com/carbon-ledger/token-sync/modules/tokensync/api/httphandler"
	"github.com/carbon-ledger/token-sync/modules/tokensync/usecase"
)

func NewHTTPHandler(usecase *usecase.Usecase, amountDecimals uint16) *httphandler.HttpHandler {
	return httphandler.New(usecase, amountDecimals)
}
