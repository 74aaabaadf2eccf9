package stsdk

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/quatton/skintwin/pkg/kv"
	"github.com/spf13/viper"
)

type Config struct {
	BaseURL          string          `mapstructure:"baseUrl"`
	Timeout          time.Duration   `mapstructure:"timeout"`
	Store            string          `mapstructure:"store"`
	Valkey           kv.ValkeyConfig `mapstructure:"valkey"`
	CoalesceRenewals bool            `mapstructure:"coalesceRenewals"`

	v *viper.Viper // instance-specific viper
}

const (
	EnvPrefix  = "SKINTWIN"
	ConfigName = "skintwin"
	ConfigRoot = ".skintwin"

	BaseUrlKey          = "baseUrl"
	TimeoutKey          = "timeout"
	StoreKey            = "store"
	ValkeyAddrKey       = "valkey.addr"
	ValkeyPasswordKey   = "valkey.password"
	ValkeyDBKey         = "valkey.db"
	CoalesceRenewalsKey = "coalesceRenewals"

	StoreKeyring = "keyring"
	StoreMemory  = "memory"
	StoreValkey  = "valkey"

	DefaultBaseURL = "http://127.0.0.1:8000/api"
)

// LoadConfig creates a new Config instance with its own viper.
// Sources, lowest precedence first: defaults, skintwin.yaml in the working
// directory, .skintwin/config.yaml, SKINTWIN_* environment variables.
// An explicit cfgFile replaces both files.
func LoadConfig(cfgFile string) (*Config, error) {
	v := viper.New()

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", cfgFile, err)
		}
	} else {
		// Project config (tracked)
		for _, name := range []string{"skintwin.yaml", "skintwin.yml", ".skintwin.yaml"} {
			if _, err := os.Stat(name); err == nil {
				v.SetConfigFile(name)
				if err := v.ReadInConfig(); err == nil {
					break
				}
			}
		}

		// Local overrides (untracked)
		localConfigPath := filepath.Join(ConfigRoot, "config.yaml")
		if _, err := os.Stat(localConfigPath); err == nil {
			v.SetConfigFile(localConfigPath)
			if err := v.MergeInConfig(); err != nil {
				return nil, fmt.Errorf("merging local config: %w", err)
			}
		}
	}

	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	cfg.v = v
	return &cfg, nil
}

// Get returns a value from the underlying viper instance
func (c *Config) Get(key string) interface{} {
	if c.v == nil {
		return nil
	}
	return c.v.Get(key)
}

// GetString returns a string value from the underlying viper instance
func (c *Config) GetString(key string) string {
	if c.v == nil {
		return ""
	}
	return c.v.GetString(key)
}

// Viper returns the underlying viper instance, for flag binding.
func (c *Config) Viper() *viper.Viper {
	return c.v
}

// ConfigFileUsed returns the config file that was used (if any)
func (c *Config) ConfigFileUsed() string {
	if c.v == nil {
		return ""
	}
	return c.v.ConfigFileUsed()
}

// Reload re-reads values from the viper instance, e.g. after flags were bound.
func (c *Config) Reload() error {
	if c.v == nil {
		return nil
	}
	setDefaults(c.v)
	var next Config
	if err := c.v.Unmarshal(&next); err != nil {
		return fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := next.validate(); err != nil {
		return err
	}
	next.v = c.v
	*c = next
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(BaseUrlKey, DefaultBaseURL)
	v.SetDefault(TimeoutKey, DefaultTimeout)
	v.SetDefault(StoreKey, StoreKeyring)
	v.SetDefault(ValkeyAddrKey, "localhost:6379")
	v.SetDefault(ValkeyPasswordKey, "")
	v.SetDefault(ValkeyDBKey, 0)
	v.SetDefault(CoalesceRenewalsKey, true)
}

// validate normalizes the base URL and checks the remaining values.
func (c *Config) validate() error {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}

	switch c.Store {
	case StoreKeyring, StoreMemory, StoreValkey:
	default:
		return fmt.Errorf("unknown credential store %q (want %s, %s or %s)", c.Store, StoreKeyring, StoreMemory, StoreValkey)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	return nil
}
