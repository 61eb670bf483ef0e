package httphandler

import (
	"github.com/carbon-ledger/token-sync/common"
	"github.com/carbon-ledger/token-sync/common/errs"
	"github.com/carbon-ledger/token-sync/modules/tokensync/internal/entity"
	"github.com/cockroachdb/errors"
	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"
)

type getBalancesRequest struct {
	Address string `params:"address"`
}

func (r getBalancesRequest) Validate() error {
	if !common.IsValidAddress(r.Address) {
		return errs.NewPublicError("address is not a valid hex address")
	}
	return nil
}

type balance struct {
	TokenId     uint64 `json:"tokenId"`
	Available   amount `json:"available"`
	Retired     amount `json:"retired"`
	Transferred amount `json:"transferred"`
}

type getBalancesResult struct {
	Address  string    `json:"address"`
	Balances []balance `json:"balances"`
}

type getBalancesResponse = HttpResponse[getBalancesResult]

func (h *HttpHandler) GetBalances(ctx *fiber.Ctx) (err error) {
	var req getBalancesRequest
	if err := ctx.ParamsParser(&req); err != nil {
		return errors.WithStack(err)
	}
	if err := req.Validate(); err != nil {
		return errors.WithStack(err)
	}

	balances, err := h.usecase.GetBalancesByHolder(ctx.UserContext(), req.Address)
	if err != nil {
		return errors.Wrap(err, "error during GetBalancesByHolder")
	}

	return errors.WithStack(ctx.JSON(getBalancesResponse{
		Result: &getBalancesResult{
			Address: common.NormalizeAddress(req.Address),
			Balances: lo.Map(balances, func(b *entity.Balance, _ int) balance {
				return balance{
					TokenId:     b.TokenId,
					Available:   h.amount(b.Available),
					Retired:     h.amount(b.Retired),
					Transferred: h.amount(b.Transferred),
				}
			}),
		},
	}))
}
