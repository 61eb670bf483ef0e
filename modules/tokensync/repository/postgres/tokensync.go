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
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

const pgUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func (r *Repository) GetCheckpoint(ctx context.Context, network common.Network, contract string) (entity.Checkpoint, error) {
	model, err := r.queries.GetCheckpoint(ctx)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return entity.Checkpoint{}, errors.Wrap(errs.NotFound, "checkpoint not found")
		}
		return entity.Checkpoint{}, errors.Wrap(err, "error during query")
	}
	checkpoint := mapCheckpointModelToType(model)
	if !checkpoint.Matches(network, contract) {
		return checkpoint, errors.Wrapf(errs.Conflict, "checkpoint belongs to %s/%s", checkpoint.Network, checkpoint.Contract)
	}
	return checkpoint, nil
}

func (r *Repository) SaveCheckpoint(ctx context.Context, checkpoint entity.Checkpoint) error {
	if checkpoint.UpdatedAt.IsZero() {
		checkpoint.UpdatedAt = time.Now().UTC()
	}
	if err := r.queries.SaveCheckpoint(ctx, mapCheckpointTypeToParams(checkpoint)); err != nil {
		return errors.Wrap(err, "error during exec")
	}
	return nil
}

func (r *Repository) GetToken(ctx context.Context, tokenId uint64) (*entity.Token, error) {
	model, err := r.queries.GetToken(ctx, int64(tokenId))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.Wrapf(errs.NotFound, "token %d not found", tokenId)
		}
		return nil, errors.Wrap(err, "error during query")
	}
	token, err := mapTokenModelToType(model)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse token %d", tokenId)
	}
	return &token, nil
}

func (r *Repository) TokenExists(ctx context.Context, tokenId uint64) (bool, error) {
	exists, err := r.queries.TokenExists(ctx, int64(tokenId))
	if err != nil {
		return false, errors.Wrap(err, "error during query")
	}
	return exists, nil
}

func (r *Repository) CountTokens(ctx context.Context) (uint64, error) {
	count, err := r.queries.CountTokens(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "error during query")
	}
	return uint64(count), nil
}

func (r *Repository) CreateToken(ctx context.Context, token entity.Token) error {
	params, err := mapTokenTypeToParams(token)
	if err != nil {
		return errors.WithStack(err)
	}
	if err := r.queries.CreateToken(ctx, params); err != nil {
		if isUniqueViolation(err) {
			return errors.Wrapf(errs.Conflict, "token %d already exists", token.TokenId)
		}
		return errors.Wrap(err, "error during exec")
	}
	return nil
}

func (r *Repository) IncrementTotalIssued(ctx context.Context, tokenId uint64, amount uint128.Uint128) error {
	numeric, err := numericFromUint128(amount)
	if err != nil {
		return errors.Wrap(err, "failed to convert amount")
	}
	total, err := r.queries.IncrementTotalIssued(ctx, gen.IncrementTotalIssuedParams{
		Amount:  numeric,
		TokenID: int64(tokenId),
	})
	return errors.WithStack(checkTotal(tokenId, total, err))
}

func (r *Repository) IncrementTotalRetired(ctx context.Context, tokenId uint64, amount uint128.Uint128) error {
	numeric, err := numericFromUint128(amount)
	if err != nil {
		return errors.Wrap(err, "failed to convert amount")
	}
	total, err := r.queries.IncrementTotalRetired(ctx, gen.IncrementTotalRetiredParams{
		Amount:  numeric,
		TokenID: int64(tokenId),
	})
	return errors.WithStack(checkTotal(tokenId, total, err))
}

// checkTotal maps the result of a total increment. Totals must stay representable.
func checkTotal(tokenId uint64, total pgtype.Numeric, err error) error {
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return errors.Wrapf(errs.NotFound, "token %d not found", tokenId)
		}
		return errors.Wrap(err, "error during exec")
	}
	if _, err := uint128FromNumeric(total); err != nil {
		return errors.Wrapf(err, "total of token %d", tokenId)
	}
	return nil
}

func (r *Repository) ClearTokens(ctx context.Context) error {
	if err := r.queries.ClearTokens(ctx); err != nil {
		return errors.Wrap(err, "error during exec")
	}
	return nil
}
