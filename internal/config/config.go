package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// RunConfig holds configuration for the run command, loaded from flags,
// env, or config file.
type RunConfig struct {
	Script    string
	Out       string
	Snapshots string
	PgDSN     string
	LogLevel  string
}

// LoadRun merges config file, environment variables, and flags into RunConfig.
func LoadRun(cfgFile string, flags *pflag.FlagSet) (RunConfig, error) {
	v := viper.New()
	v.SetEnvPrefix("AMM")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("out", "./data/events.jsonl")
	v.SetDefault("snapshots", "./data/pools.jsonl")
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return RunConfig{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return RunConfig{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return RunConfig{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := RunConfig{
		Script:    v.GetString("script"),
		Out:       v.GetString("out"),
		Snapshots: v.GetString("snapshots"),
		PgDSN:     v.GetString("pg-dsn"),
		LogLevel:  v.GetString("log-level"),
	}

	return cfg, nil
}
