package httphandler

import (
	"github.com/carbon-ledger/token-sync/common/errs"
	"github.com/cockroachdb/errors"
	"github.com/gofiber/fiber/v2"
)

type getWalletRequest = getBalancesRequest

type getWalletResult struct {
	Address string   `json:"address"`
	Roles   []string `json:"roles"`
}

type getWalletResponse = HttpResponse[getWalletResult]

func (h *HttpHandler) GetWallet(ctx *fiber.Ctx) (err error) {
	var req getWalletRequest
	if err := ctx.ParamsParser(&req); err != nil {
		return errors.WithStack(err)
	}
	if err := req.Validate(); err != nil {
		return errors.WithStack(err)
	}

	wallet, err := h.usecase.GetWallet(ctx.UserContext(), req.Address)
	if err != nil {
		if errors.Is(err, errs.NotFound) {
			return errs.WithPublicMessage(errs.NotFound, "wallet")
		}
		return errors.Wrap(err, "error during GetWallet")
	}

	return errors.WithStack(ctx.JSON(getWalletResponse{
		Result: &getWalletResult{
			Address: wallet.Address,
			Roles:   wallet.Roles,
		},
	}))
}
