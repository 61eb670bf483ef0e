// Package memory is an in-memory TokenSyncDataGateway for development networks and tests.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/carbon-ledger/token-sync/common"
	"github.com/carbon-ledger/token-sync/common/errs"
	"github.com/carbon-ledger/token-sync/modules/tokensync/datagateway"
	"github.com/carbon-ledger/token-sync/modules/tokensync/internal/entity"
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/uint128"
)

var _ datagateway.TokenSyncDataGatewayWithTx = (*Repository)(nil)

var ErrTxAlreadyExists = errors.New("Transaction already exists. Call Commit() or Rollback() first.")

type balanceKey struct {
	holder  string
	tokenId uint64
}

type state struct {
	checkpoint *entity.Checkpoint
	tokens     map[uint64]entity.Token
	balances   map[balanceKey]entity.Balance
	wallets    map[string]entity.Wallet
}

func newState() *state {
	return &state{
		tokens:   make(map[uint64]entity.Token),
		balances: make(map[balanceKey]entity.Balance),
		wallets:  make(map[string]entity.Wallet),
	}
}

func (s *state) clone() *state {
	c := &state{
		tokens:   maps.Clone(s.tokens),
		balances: maps.Clone(s.balances),
		wallets:  maps.Clone(s.wallets),
	}
	if s.checkpoint != nil {
		checkpoint := *s.checkpoint
		c.checkpoint = &checkpoint
	}
	return c
}

type store struct {
	// writeMu serializes writers. A transaction holds it until Commit or Rollback.
	writeMu sync.Mutex
	mu      sync.RWMutex
	state   *state
}

// Repository keeps the synced ledger in memory. Transactions work on a copy of
// the state that replaces the shared state on commit.
type Repository struct {
	store *store
	tx    *state
}

func NewRepository() *Repository {
	return &Repository{
		store: &store{state: newState()},
	}
}

func (r *Repository) BeginTokenSyncTx(ctx context.Context) (datagateway.TokenSyncDataGatewayWithTx, error) {
	if r.tx != nil {
		return nil, errors.WithStack(ErrTxAlreadyExists)
	}
	r.store.writeMu.Lock()
	r.store.mu.RLock()
	tx := r.store.state.clone()
	r.store.mu.RUnlock()
	return &Repository{store: r.store, tx: tx}, nil
}

func (r *Repository) Commit(context.Context) error {
	if r.tx == nil {
		return nil
	}
	r.store.mu.Lock()
	r.store.state = r.tx
	r.store.mu.Unlock()
	r.tx = nil
	r.store.writeMu.Unlock()
	return nil
}

func (r *Repository) Rollback(context.Context) error {
	if r.tx == nil {
		return nil
	}
	r.tx = nil
	r.store.writeMu.Unlock()
	return nil
}

func (r *Repository) read(fn func(s *state) error) error {
	if r.tx != nil {
		return fn(r.tx)
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return fn(r.store.state)
}

// write applies fn to the transaction state, or atomically to the shared state outside a transaction.
func (r *Repository) write(fn func(s *state) error) error {
	if r.tx != nil {
		return fn(r.tx)
	}
	r.store.writeMu.Lock()
	defer r.store.writeMu.Unlock()
	r.store.mu.RLock()
	next := r.store.state.clone()
	r.store.mu.RUnlock()
	if err := fn(next); err != nil {
		return err
	}
	r.store.mu.Lock()
	r.store.state = next
	r.store.mu.Unlock()
	return nil
}

func (r *Repository) GetCheckpoint(_ context.Context, network common.Network, contract string) (entity.Checkpoint, error) {
	var checkpoint entity.Checkpoint
	err := r.read(func(s *state) error {
		if s.checkpoint == nil {
			return errors.Wrap(errs.NotFound, "checkpoint not found")
		}
		checkpoint = *s.checkpoint
		return nil
	})
	if err != nil {
		return entity.Checkpoint{}, err
	}
	if !checkpoint.Matches(network, contract) {
		return checkpoint, errors.Wrapf(errs.Conflict, "checkpoint belongs to %s/%s", checkpoint.Network, checkpoint.Contract)
	}
	return checkpoint, nil
}

func (r *Repository) SaveCheckpoint(_ context.Context, checkpoint entity.Checkpoint) error {
	checkpoint.Contract = common.NormalizeAddress(checkpoint.Contract)
	if checkpoint.UpdatedAt.IsZero() {
		checkpoint.UpdatedAt = time.Now().UTC()
	}
	return r.write(func(s *state) error {
		s.checkpoint = &checkpoint
		return nil
	})
}

func (r *Repository) GetToken(_ context.Context, tokenId uint64) (*entity.Token, error) {
	var token entity.Token
	err := r.read(func(s *state) error {
		t, ok := s.tokens[tokenId]
		if !ok {
			return errors.Wrapf(errs.NotFound, "token %d not found", tokenId)
		}
		token = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &token, nil
}

func (r *Repository) TokenExists(_ context.Context, tokenId uint64) (bool, error) {
	var exists bool
	_ = r.read(func(s *state) error {
		_, exists = s.tokens[tokenId]
		return nil
	})
	return exists, nil
}

func (r *Repository) CountTokens(context.Context) (uint64, error) {
	var count uint64
	_ = r.read(func(s *state) error {
		count = uint64(len(s.tokens))
		return nil
	})
	return count, nil
}

func (r *Repository) GetBalance(_ context.Context, holder string, tokenId uint64) (*entity.Balance, error) {
	key := balanceKey{common.NormalizeAddress(holder), tokenId}
	var balance entity.Balance
	err := r.read(func(s *state) error {
		b, ok := s.balances[key]
		if !ok {
			return errors.Wrapf(errs.NotFound, "balance of %s for token %d not found", key.holder, tokenId)
		}
		balance = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &balance, nil
}

func (r *Repository) GetBalancesByHolder(_ context.Context, holder string) ([]*entity.Balance, error) {
	holder = common.NormalizeAddress(holder)
	var balances []*entity.Balance
	_ = r.read(func(s *state) error {
		for key, balance := range s.balances {
			if key.holder == holder {
				balance := balance
				balances = append(balances, &balance)
			}
		}
		return nil
	})
	slices.SortFunc(balances, func(a, b *entity.Balance) int {
		switch {
		case a.TokenId < b.TokenId:
			return -1
		case a.TokenId > b.TokenId:
			return 1
		}
		return 0
	})
	return balances, nil
}

func (r *Repository) GetWallet(_ context.Context, address string) (*entity.Wallet, error) {
	address = common.NormalizeAddress(address)
	var wallet entity.Wallet
	err := r.read(func(s *state) error {
		w, ok := s.wallets[address]
		if !ok {
			return errors.Wrapf(errs.NotFound, "wallet %s not found", address)
		}
		wallet = entity.Wallet{Address: w.Address, Roles: slices.Clone(w.Roles)}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (r *Repository) CreateToken(_ context.Context, token entity.Token) error {
	return r.write(func(s *state) error {
		if _, ok := s.tokens[token.TokenId]; ok {
			return errors.Wrapf(errs.Conflict, "token %d already exists", token.TokenId)
		}
		s.tokens[token.TokenId] = token
		return nil
	})
}

func (r *Repository) incrementTotal(tokenId uint64, amount uint128.Uint128, retired bool) error {
	return r.write(func(s *state) error {
		token, ok := s.tokens[tokenId]
		if !ok {
			return errors.Wrapf(errs.NotFound, "token %d not found", tokenId)
		}
		total := &token.TotalIssued
		if retired {
			total = &token.TotalRetired
		}
		sum, overflow := total.AddOverflow(amount)
		if overflow {
			return errors.Wrapf(errs.OverflowUint128, "total of token %d", tokenId)
		}
		*total = sum
		s.tokens[tokenId] = token
		return nil
	})
}

func (r *Repository) IncrementTotalIssued(_ context.Context, tokenId uint64, amount uint128.Uint128) error {
	return r.incrementTotal(tokenId, amount, false)
}

func (r *Repository) IncrementTotalRetired(_ context.Context, tokenId uint64, amount uint128.Uint128) error {
	return r.incrementTotal(tokenId, amount, true)
}

func (r *Repository) CreateBalance(_ context.Context, balance entity.Balance) error {
	balance.Holder = common.NormalizeAddress(balance.Holder)
	key := balanceKey{balance.Holder, balance.TokenId}
	return r.write(func(s *state) error {
		if _, ok := s.balances[key]; ok {
			return errors.Wrapf(errs.Conflict, "balance of %s for token %d already exists", key.holder, key.tokenId)
		}
		s.balances[key] = balance
		return nil
	})
}

func (r *Repository) AddAvailable(_ context.Context, holder string, tokenId uint64, amount uint128.Uint128) error {
	key := balanceKey{common.NormalizeAddress(holder), tokenId}
	return r.write(func(s *state) error {
		balance, ok := s.balances[key]
		if !ok {
			return errors.Wrapf(errs.NotFound, "balance of %s for token %d not found", key.holder, tokenId)
		}
		sum, overflow := balance.Available.AddOverflow(amount)
		if overflow {
			return errors.Wrapf(errs.OverflowUint128, "available balance of %s for token %d", key.holder, tokenId)
		}
		balance.Available = sum
		s.balances[key] = balance
		return nil
	})
}

func (r *Repository) debit(holder string, tokenId uint64, amount uint128.Uint128, retire bool) error {
	key := balanceKey{common.NormalizeAddress(holder), tokenId}
	return r.write(func(s *state) error {
		balance, ok := s.balances[key]
		if !ok || balance.Available.Cmp(amount) < 0 {
			return errors.Wrapf(errs.InsufficientBalance, "available balance of %s for token %d is lower than %s", key.holder, tokenId, amount)
		}
		target := &balance.Transferred
		if retire {
			target = &balance.Retired
		}
		sum, overflow := target.AddOverflow(amount)
		if overflow {
			return errors.Wrapf(errs.OverflowUint128, "balance of %s for token %d", key.holder, tokenId)
		}
		balance.Available = balance.Available.Sub(amount)
		*target = sum
		s.balances[key] = balance
		return nil
	})
}

func (r *Repository) RetireBalance(_ context.Context, holder string, tokenId uint64, amount uint128.Uint128) error {
	return r.debit(holder, tokenId, amount, true)
}

func (r *Repository) TransferOutBalance(_ context.Context, holder string, tokenId uint64, amount uint128.Uint128) error {
	return r.debit(holder, tokenId, amount, false)
}

func (r *Repository) UpsertWallet(_ context.Context, wallet entity.Wallet) error {
	wallet.Address = common.NormalizeAddress(wallet.Address)
	wallet.Roles = slices.Clone(wallet.Roles)
	return r.write(func(s *state) error {
		s.wallets[wallet.Address] = wallet
		return nil
	})
}

func (r *Repository) ClearTokens(context.Context) error {
	return r.write(func(s *state) error {
		s.tokens = make(map[uint64]entity.Token)
		s.balances = make(map[balanceKey]entity.Balance)
		return nil
	})
}

func (r *Repository) ClearWalletRoles(context.Context) error {
	return r.write(func(s *state) error {
		for address, wallet := range s.wallets {
			wallet.Roles = nil
			s.wallets[address] = wallet
		}
		return nil
	})
}
