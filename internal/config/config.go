package config

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/minterscan/mint-indexer/modules/mints/config"
	"github.com/minterscan/mint-indexer/pkg/evmclient"
	"github.com/minterscan/mint-indexer/pkg/logger"
	"github.com/minterscan/mint-indexer/pkg/logger/slogx"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var (
	configOnce sync.Once
	conf       = &Config{
		Logger: logger.Config{
			Output: "TEXT",
		},
		Modules: Modules{
			Mints: config.Config{
				Database:        "postgres",
				PollInterval:    15 * time.Second,
				RefreshInterval: 10 * time.Minute,
				JobBatchSize:    10,
			},
		},
	}
)

type Config struct {
	Logger  logger.Config    `mapstructure:"logger"`
	EvmNode evmclient.Config `mapstructure:"evm_node"`
	Modules Modules          `mapstructure:"modules"`
}

type Modules struct {
	Mints config.Config `mapstructure:"mints"`
}

// BindPFlag binds a cobra flag to a configuration key, so flags override both
// the config file and environment variables.
func BindPFlag(key string, flag *pflag.Flag) {
	if err := viper.BindPFlag(key, flag); err != nil {
		logger.Panic("Failed to bind flag to configuration", slogx.Error(err), slogx.String("key", key))
	}
}

// Parse loads the configuration from the given file (or ./config.yaml when
// empty) with environment variable overrides. Subsequent calls return the
// first result.
func Parse(configFile string) Config {
	ctx := logger.WithContext(context.Background(), slog.String("package", "config"))
	configOnce.Do(func() {
		if configFile != "" {
			viper.SetConfigFile(configFile)
		} else {
			viper.AddConfigPath("./")
			viper.SetConfigName("config")
		}

		viper.AutomaticEnv()
		viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		if err := viper.ReadInConfig(); err != nil {
			var errNotfound viper.ConfigFileNotFoundError
			if errors.As(err, &errNotfound) {
				logger.WarnContext(ctx, "config file not found, use default value", slogx.Error(err))
			} else {
				logger.PanicContext(ctx, "invalid config file", slogx.Error(err))
			}
		}

		if err := viper.Unmarshal(&conf); err != nil {
			logger.PanicContext(ctx, "failed to unmarshal config", slogx.Error(err))
		}
	})

	return *conf
}

// Load returns the parsed configuration. Parse must run first (the root
// command does this on initialize); otherwise defaults are returned.
func Load() Config {
	return Parse("")
}
