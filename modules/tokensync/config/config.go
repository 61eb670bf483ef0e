package config

import (
	"time"

	"github.com/carbon-ledger/token-sync/internal/postgres"
)

type Config struct {
	Database    string          `mapstructure:"database"` // Database to store synced ledger data. e.g. `postgres` | `memory`
	Postgres    postgres.Config `mapstructure:"postgres"`
	APIHandlers []string        `mapstructure:"api_handlers"` // List of API handlers to enable. (e.g. `http`)
	Scheduler   SchedulerConfig `mapstructure:"scheduler"`

	// MaxPendingTokens bounds the number of distinct unknown token ids buffered
	// from live transfers. Zero means unbounded.
	MaxPendingTokens int `mapstructure:"max_pending_tokens"`

	// FillConcurrency is the number of concurrent token detail lookups when filling missing tokens.
	FillConcurrency int `mapstructure:"fill_concurrency"`

	// AmountDecimals is the number of decimals of token amounts, used to display balances.
	AmountDecimals uint16 `mapstructure:"amount_decimals"`
}

// SchedulerConfig overrides the scan scheduler timings. Zero values use the network defaults.
type SchedulerConfig struct {
	RunInterval   time.Duration `mapstructure:"run_interval"`
	RetryInterval time.Duration `mapstructure:"retry_interval"`
	MinBlockDiff  *int64        `mapstructure:"min_block_diff"`
}
