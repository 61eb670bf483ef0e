package httphandler

import (
	"github.com/gofiber/fiber/v2"
)

func (h *HttpHandler) Mount(router fiber.Router) error {
	r := router.Group("/v1")

	r.Get("/sync/status", h.GetSyncStatus)
	r.Get("/tokens/:id", h.GetToken)
	r.Get("/balances/:address", h.GetBalances)
	r.Get("/wallets/:address", h.GetWallet)
	return nil
}
