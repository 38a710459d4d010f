package config

import (
	"github.com/spf13/pflag"
)

// RecomputeConfig holds configuration for the recompute command.
type RecomputeConfig struct {
	In                 string
	Out                string
	PGDSN              string
	ReferenceToken     string
	StableToken        string
	CommonTokens       []string
	ReferenceFiatPrice string
	FiatAnchorPrice    string
	StateFile          string
	LogLevel           string
}

// LoadRecompute merges config file, environment variables, and flags into
// RecomputeConfig.
func LoadRecompute(cfgFile string, flags *pflag.FlagSet) (RecomputeConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"fiat-anchor-price": "1",
		"log-level":         "info",
	})
	if err != nil {
		return RecomputeConfig{}, err
	}

	cfg := RecomputeConfig{
		In:                 v.GetString("in"),
		Out:                v.GetString("out"),
		PGDSN:              v.GetString("pg-dsn"),
		ReferenceToken:     v.GetString("reference-token"),
		StableToken:        v.GetString("stable-token"),
		CommonTokens:       getStringSlice(v, "common-token"),
		ReferenceFiatPrice: v.GetString("reference-fiat-price"),
		FiatAnchorPrice:    v.GetString("fiat-anchor-price"),
		StateFile:          v.GetString("state-file"),
		LogLevel:           v.GetString("log-level"),
	}

	return cfg, nil
}
