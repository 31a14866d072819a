// Package config resolves the runtime configuration from, in order of
// precedence: command-line flags, FINBOOK_* environment variables and
// an optional YAML config file.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/finbook-app/finbook/pkg/categorize"
)

// Config is the resolved runtime configuration.
type Config struct {
	ListenAddr string `mapstructure:"listen_addr"`
	DBPath     string `mapstructure:"db_path"`
	AIModel    string `mapstructure:"ai_model"`
	AIKey      string `mapstructure:"ai_key"`
	UserName   string `mapstructure:"user_name"`
	Currency   string `mapstructure:"currency"`
}

// Build loads the configuration. cfgFile may be empty, in which case
// config.yaml in the working directory is used when present. flags may
// be nil; bound flags override both file and environment values.
func Build(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	v.SetDefault("listen_addr", "0.0.0.0:3000")
	v.SetDefault("db_path", "finbook.db")
	v.SetDefault("ai_model", categorize.DefaultModel)
	v.SetDefault("user_name", "default")
	v.SetDefault("currency", "€")

	v.SetEnvPrefix("FINBOOK")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	// Flags use dashes, config keys use underscores, so each flag is
	// bound under its underscored name.
	if flags != nil {
		var bindErr error
		flags.VisitAll(func(f *pflag.Flag) {
			key := strings.ReplaceAll(f.Name, "-", "_")
			if err := v.BindPFlag(key, f); err != nil && bindErr == nil {
				bindErr = err
			}
		})
		if bindErr != nil {
			return nil, bindErr
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}
