package postgres

import (
	"context"
	"time"

	"github.com/carbon-ledger/token-sync/common"
	"github.com/carbon-ledger/token-sync/common/errs"
	"github.com/carbon-ledger/token-sync/modules/tokensync/internal/entity"
	"github.com/carbon-ledger/token-sync/modules/tokensync/repository/postgres/gen"
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/uint128"
	"github.com/jackc/pgx/v5"
)

func (r *Repository) GetBalance(ctx context.Context, holder string, tokenId uint64) (*entity.Balance, error) {
	holder = common.NormalizeAddress(holder)
	model, err := r.queries.GetBalance(ctx, gen.GetBalanceParams{
		Holder:  holder,
		TokenID: int64(tokenId),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.Wrapf(errs.NotFound, "balance of %s for token %d not found", holder, tokenId)
		}
		return nil, errors.Wrap(err, "error during query")
	}
	balance, err := mapBalanceModelToType(model)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &balance, nil
}

func (r *Repository) GetBalancesByHolder(ctx context.Context, holder string) ([]*entity.Balance, error) {
	models, err := r.queries.GetBalancesByHolder(ctx, common.NormalizeAddress(holder))
	if err != nil {
		return nil, errors.Wrap(err, "error during query")
	}

	balances := make([]*entity.Balance, 0, len(models))
	for _, model := range models {
		balance, err := mapBalanceModelToType(model)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		balances = append(balances, &balance)
	}
	return balances, nil
}

func (r *Repository) CreateBalance(ctx context.Context, balance entity.Balance) error {
	params, err := mapBalanceTypeToParams(balance)
	if err != nil {
		return errors.WithStack(err)
	}
	if err := r.queries.CreateBalance(ctx, params); err != nil {
		if isUniqueViolation(err) {
			return errors.Wrapf(errs.Conflict, "balance of %s for token %d already exists", params.Holder, balance.TokenId)
		}
		return errors.Wrap(err, "error during exec")
	}
	return nil
}

func (r *Repository) AddAvailable(ctx context.Context, holder string, tokenId uint64, amount uint128.Uint128) error {
	holder = common.NormalizeAddress(holder)
	numeric, err := numericFromUint128(amount)
	if err != nil {
		return errors.Wrap(err, "failed to convert amount")
	}
	available, err := r.queries.AddAvailable(ctx, gen.AddAvailableParams{
		Amount:  numeric,
		Holder:  holder,
		TokenID: int64(tokenId),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return errors.Wrapf(errs.NotFound, "balance of %s for token %d not found", holder, tokenId)
		}
		return errors.Wrap(err, "error during exec")
	}
	if _, err := uint128FromNumeric(available); err != nil {
		return errors.Wrapf(err, "available balance of %s for token %d", holder, tokenId)
	}
	return nil
}

func (r *Repository) RetireBalance(ctx context.Context, holder string, tokenId uint64, amount uint128.Uint128) error {
	holder = common.NormalizeAddress(holder)
	numeric, err := numericFromUint128(amount)
	if err != nil {
		return errors.Wrap(err, "failed to convert amount")
	}
	rows, err := r.queries.RetireBalance(ctx, gen.RetireBalanceParams{
		Amount:  numeric,
		Holder:  holder,
		TokenID: int64(tokenId),
	})
	return errors.WithStack(checkDebit(holder, tokenId, amount, rows, err))
}

func (r *Repository) TransferOutBalance(ctx context.Context, holder string, tokenId uint64, amount uint128.Uint128) error {
	holder = common.NormalizeAddress(holder)
	numeric, err := numericFromUint128(amount)
	if err != nil {
		return errors.Wrap(err, "failed to convert amount")
	}
	rows, err := r.queries.TransferOutBalance(ctx, gen.TransferOutBalanceParams{
		Amount:  numeric,
		Holder:  holder,
		TokenID: int64(tokenId),
	})
	return errors.WithStack(checkDebit(holder, tokenId, amount, rows, err))
}

// checkDebit maps the result of a guarded debit: no updated row means the available balance is short.
func checkDebit(holder string, tokenId uint64, amount uint128.Uint128, rows int64, err error) error {
	if err != nil {
		return errors.Wrap(err, "error during exec")
	}
	if rows == 0 {
		return errors.Wrapf(errs.InsufficientBalance, "available balance of %s for token %d is lower than %s", holder, tokenId, amount)
	}
	return nil
}

func (r *Repository) GetWallet(ctx context.Context, address string) (*entity.Wallet, error) {
	address = common.NormalizeAddress(address)
	model, err := r.queries.GetWallet(ctx, address)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.Wrapf(errs.NotFound, "wallet %s not found", address)
		}
		return nil, errors.Wrap(err, "error during query")
	}
	wallet := mapWalletModelToType(model)
	return &wallet, nil
}

func (r *Repository) UpsertWallet(ctx context.Context, wallet entity.Wallet) error {
	if err := r.queries.UpsertWallet(ctx, mapWalletTypeToParams(wallet, time.Now().UTC())); err != nil {
		return errors.Wrap(err, "error during exec")
	}
	return nil
}

func (r *Repository) ClearWalletRoles(ctx context.Context) error {
	if err := r.queries.ClearWalletRoles(ctx, timestamp(time.Now().UTC())); err != nil {
		return errors.Wrap(err, "error during exec")
	}
	return nil
}
