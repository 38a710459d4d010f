package config

import (
	"github.com/spf13/pflag"
)

// TrendingConfig holds configuration for the trending command.
type TrendingConfig struct {
	PGDSN    string
	LogLevel string
}

// LoadTrending merges config file, environment variables, and flags into
// TrendingConfig.
func LoadTrending(cfgFile string, flags *pflag.FlagSet) (TrendingConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"log-level": "info",
	})
	if err != nil {
		return TrendingConfig{}, err
	}

	cfg := TrendingConfig{
		PGDSN:    v.GetString("pg-dsn"),
		LogLevel: v.GetString("log-level"),
	}

	return cfg, nil
}
