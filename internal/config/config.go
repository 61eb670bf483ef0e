package config

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/carbon-ledger/token-sync/common"
	tokensyncconfig "github.com/carbon-ledger/token-sync/modules/tokensync/config"
	"github.com/carbon-ledger/token-sync/pkg/logger"
	"github.com/carbon-ledger/token-sync/pkg/logger/slogx"
	"github.com/carbon-ledger/token-sync/pkg/middleware/requestlogger"
	"github.com/cockroachdb/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var (
	isInit bool
	mu     sync.Mutex
	config = &Config{
		Logger: logger.Config{
			Output: "TEXT",
		},
		HTTPServer: HTTPServerConfig{
			Port: 8080,
		},
		Ledger: LedgerConfig{
			Network:             common.NetworkHardhat,
			EventsBlockInterval: 2048,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
)

type Config struct {
	Logger        logger.Config    `mapstructure:"logger"`
	HTTPServer    HTTPServerConfig `mapstructure:"http_server"`
	Ledger        LedgerConfig     `mapstructure:"ledger"`
	Metrics       MetricsConfig    `mapstructure:"metrics"`
	Modules       Modules          `mapstructure:"modules"`
	EnableModules []string         `mapstructure:"enable_modules"`
	APIOnly       bool             `mapstructure:"api_only"`
}

type Modules struct {
	TokenSync tokensyncconfig.Config `mapstructure:"tokensync"`
}

type HTTPServerConfig struct {
	Port   int                  `mapstructure:"port"`
	Logger requestlogger.Config `mapstructure:"logger"`
}

// LedgerConfig is the connection to the ledger node and the contract being mirrored.
type LedgerConfig struct {
	Network         common.Network `mapstructure:"network"`
	RPCURL          string         `mapstructure:"rpc_url"`
	WSURL           string         `mapstructure:"ws_url"`
	ContractAddress string         `mapstructure:"contract_address"`

	// FirstBlock is the contract deployment block, the first block of interest.
	FirstBlock uint64 `mapstructure:"first_block"`

	// EventsBlockInterval is the size of a catch-up scan window.
	EventsBlockInterval uint64 `mapstructure:"events_block_interval"`

	// Subscription overrides whether live subscriptions are used on this network.
	// Empty means the network default.
	Subscription string `mapstructure:"subscription"`

	RequestTimeout time.Duration `mapstructure:"request_timeout"`

	Archive ArchiveConfig `mapstructure:"archive"`
}

// ArchiveConfig is an optional S3 bucket of parquet log exports used to backfill
// historical windows without hitting the node.
type ArchiveConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Bucket   string `mapstructure:"bucket"`
	Region   string `mapstructure:"region"`
	Prefix   string `mapstructure:"prefix"`
	Endpoint string `mapstructure:"endpoint"`
	// Anonymous uses unsigned requests, for public buckets.
	Anonymous bool `mapstructure:"anonymous"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// UseSubscription reports whether live event subscriptions are enabled.
func (c LedgerConfig) UseSubscription() bool {
	switch strings.ToLower(c.Subscription) {
	case "true", "on", "enabled":
		return true
	case "false", "off", "disabled":
		return false
	}
	return c.Network.SupportsSubscription()
}

// Parse parse the configuration from environment variables
func Parse(configFile ...string) Config {
	mu.Lock()
	defer mu.Unlock()
	return parse(configFile...)
}

// Load returns the loaded configuration
func Load() Config {
	mu.Lock()
	defer mu.Unlock()
	if isInit {
		return *config
	}
	return parse()
}

// BindPFlag binds a specific key to a pflag (as used by cobra).
// Example (where serverCmd is a Cobra instance):
//
//	serverCmd.Flags().Int("port", 1138, "Port to run Application server on")
//	Viper.BindPFlag("port", serverCmd.Flags().Lookup("port"))
func BindPFlag(key string, flag *pflag.Flag) {
	if err := viper.BindPFlag(key, flag); err != nil {
		logger.Panic("Something went wrong, failed to bind flag for config", slog.String("package", "config"), slogx.Error(err))
	}
}

// SetDefault sets the default value for this key.
// SetDefault is case-insensitive for a key.
// Default only used when no value is provided by the user via flag, config or ENV.
func SetDefault(key string, value any) { viper.SetDefault(key, value) }

func parse(configFile ...string) Config {
	ctx := logger.WithContext(context.Background(), slog.String("package", "config"))

	if len(configFile) > 0 && configFile[0] != "" {
		viper.SetConfigFile(configFile[0])
	} else {
		viper.AddConfigPath("./")
		viper.SetConfigName("config")
	}

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// legacy environment names of the ledger settings
	_ = viper.BindEnv("ledger.first_block", "LEDGER_FIRST_BLOCK")
	_ = viper.BindEnv("ledger.events_block_interval", "LEDGER_EVENTS_BLOCK_INTERVAL")
	_ = viper.BindEnv("ledger.network", "LEDGER_ETH_NETWORK")
	_ = viper.BindEnv("ledger.ws_url", "LEDGER_ETH_WS_URL")
	_ = viper.BindEnv("ledger.contract_address", "LEDGER_EMISSIONS_TOKEN_CONTRACT_ADDRESS")

	if err := viper.ReadInConfig(); err != nil {
		var errNotfound viper.ConfigFileNotFoundError
		if errors.As(err, &errNotfound) {
			logger.WarnContext(ctx, "Config file not found, use default config value", slogx.Error(err))
		} else {
			logger.PanicContext(ctx, "Invalid config file", slogx.Error(err))
		}
	}

	if err := viper.Unmarshal(&config); err != nil {
		logger.PanicContext(ctx, "Something went wrong, failed to unmarshal config", slogx.Error(err))
	}

	isInit = true
	return *config
}
