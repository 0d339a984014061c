package commands

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/KarpelesLab/remotetag"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds the settings of the run command.
type Config struct {
	PrefixSize int64         `mapstructure:"prefix_size"`
	SuffixSize int64         `mapstructure:"suffix_size"`
	Timeout    time.Duration `mapstructure:"timeout"`
	Quiet      bool          `mapstructure:"quiet"`
	LogQueue   int           `mapstructure:"log_queue"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("prefix_size", remotetag.DefaultPrefixSize)
	v.SetDefault("suffix_size", remotetag.DefaultSuffixSize)
	v.SetDefault("timeout", 30*time.Second)
	v.SetDefault("quiet", false)
	v.SetDefault("log_queue", 1024)
}

// loadConfig merges defaults, the config file, REMOTETAG_* environment
// variables and command line flags, in increasing order of precedence.
func loadConfig(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// Example: REMOTETAG_PREFIX_SIZE=131072
	v.SetEnvPrefix("REMOTETAG")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	if flags != nil {
		for _, name := range []string{"prefix_size", "suffix_size", "timeout", "quiet", "log_queue"} {
			if f := flags.Lookup(strings.ReplaceAll(name, "_", "-")); f != nil {
				if err := v.BindPFlag(name, f); err != nil {
					return nil, err
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.PrefixSize < 0 {
		return fmt.Errorf("prefix_size must not be negative, got %d", c.PrefixSize)
	}
	if c.SuffixSize < 0 {
		return fmt.Errorf("suffix_size must not be negative, got %d", c.SuffixSize)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %s", c.Timeout)
	}
	return nil
}
