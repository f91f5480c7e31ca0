package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. TRANSFERFLOW_BACKEND_ADDRESS
const EnvPrefix = "TRANSFERFLOW"

// Config holds application configuration.
type Config struct {
	Backend  BackendConfig
	Breaker  BreakerConfig
	Transfer TransferConfig
	Receipt  ReceiptConfig
	Log      LogConfig
}

// BackendConfig holds Backend API connection settings.
type BackendConfig struct {
	Address       string
	Token         string
	Insecure      bool
	VerifyTimeout time.Duration `mapstructure:"verify_timeout"`
	SubmitTimeout time.Duration `mapstructure:"submit_timeout"`
}

// BreakerConfig holds circuit breaker settings.
type BreakerConfig struct {
	ConsecutiveFailures uint32 `mapstructure:"consecutive_failures"`
	Timeout             time.Duration
}

// TransferConfig holds transfer form rules.
type TransferConfig struct {
	AccountLength int `mapstructure:"account_length"`
}

// ReceiptConfig holds receipt rendering and storage settings.
type ReceiptConfig struct {
	Dir            string
	Institution    string
	CurrencySymbol string `mapstructure:"currency_symbol"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level       string
	Development bool
}

// Validate rejects settings the client cannot run with.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Backend.Address) == "" {
		return errors.New("backend address cannot be empty")
	}
	if c.Transfer.AccountLength <= 0 {
		return errors.New("transfer account length must be positive")
	}
	if c.Backend.VerifyTimeout < 0 || c.Backend.SubmitTimeout < 0 {
		return errors.New("backend timeouts cannot be negative")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("backend.address", "localhost:8080")
	v.SetDefault("backend.token", "")
	v.SetDefault("backend.insecure", false)
	v.SetDefault("backend.verify_timeout", 15*time.Second)
	v.SetDefault("backend.submit_timeout", 60*time.Second)
	v.SetDefault("breaker.consecutive_failures", 5)
	v.SetDefault("breaker.timeout", 30*time.Second)
	v.SetDefault("transfer.account_length", 10)
	v.SetDefault("receipt.dir", "")
	v.SetDefault("receipt.institution", "TransferFlow")
	v.SetDefault("receipt.currency_symbol", "₦")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

// Load reads configuration from file, env and flags, in increasing precedence.
// Env var overrides use prefix TRANSFERFLOW_. flags may be nil; only flags
// whose names match a config key ("backend.address") are bound.
func Load(flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("toml")

	cfgPath := os.Getenv(EnvPrefix + "_CONFIG")
	if flags != nil {
		if f := flags.Lookup("config"); f != nil && f.Value.String() != "" {
			cfgPath = f.Value.String()
		}
	}
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "transferflow"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// An explicit config file must exist; the default location is optional
		if cfgPath != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	if flags != nil {
		var bindErr error
		flags.VisitAll(func(f *pflag.Flag) {
			if bindErr == nil && strings.Contains(f.Name, ".") {
				bindErr = v.BindPFlag(f.Name, f)
			}
		})
		if bindErr != nil {
			return Config{}, fmt.Errorf("bind flags: %w", bindErr)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}
