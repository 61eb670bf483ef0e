package httphandler

import (
	"github.com/carbon-ledger/token-sync/common/errs"
	"github.com/cockroachdb/errors"
	"github.com/gofiber/fiber/v2"
)

type getTokenRequest struct {
	Id uint64 `params:"id"`
}

func (r getTokenRequest) Validate() error {
	if r.Id == 0 {
		return errs.NewPublicError("id must be a positive token id")
	}
	return nil
}

type getTokenResult struct {
	TokenId       uint64         `json:"tokenId"`
	TokenTypeId   uint8          `json:"tokenTypeId"`
	TokenTypeName string         `json:"tokenTypeName"`
	IssuedBy      string         `json:"issuedBy"`
	IssuedFrom    string         `json:"issuedFrom"`
	IssuedTo      string         `json:"issuedTo"`
	FromDate      uint64         `json:"fromDate"`
	ThruDate      uint64         `json:"thruDate"`
	DateCreated   uint64         `json:"dateCreated"`
	Metadata      map[string]any `json:"metadata"`
	Manifest      map[string]any `json:"manifest"`
	Description   string         `json:"description"`
	Scope         string         `json:"scope"`
	Type          string         `json:"type"`
	TotalIssued   amount         `json:"totalIssued"`
	TotalRetired  amount         `json:"totalRetired"`
}

type getTokenResponse = HttpResponse[getTokenResult]

func (h *HttpHandler) GetToken(ctx *fiber.Ctx) (err error) {
	var req getTokenRequest
	if err := ctx.ParamsParser(&req); err != nil {
		return errs.NewPublicError("id must be a positive token id")
	}
	if err := req.Validate(); err != nil {
		return errors.WithStack(err)
	}

	token, err := h.usecase.GetToken(ctx.UserContext(), req.Id)
	if err != nil {
		if errors.Is(err, errs.NotFound) {
			return errs.WithPublicMessage(errs.NotFound, "token")
		}
		return errors.Wrap(err, "error during GetToken")
	}

	return errors.WithStack(ctx.JSON(getTokenResponse{
		Result: &getTokenResult{
			TokenId:       token.TokenId,
			TokenTypeId:   uint8(token.TokenTypeId),
			TokenTypeName: token.TokenTypeId.String(),
			IssuedBy:      token.IssuedBy,
			IssuedFrom:    token.IssuedFrom,
			IssuedTo:      token.IssuedTo,
			FromDate:      token.FromDate,
			ThruDate:      token.ThruDate,
			DateCreated:   token.DateCreated,
			Metadata:      token.Metadata,
			Manifest:      token.Manifest,
			Description:   token.Description,
			Scope:         token.Scope,
			Type:          token.Type,
			TotalIssued:   h.amount(token.TotalIssued),
			TotalRetired:  h.amount(token.TotalRetired),
		},
	}))
}
