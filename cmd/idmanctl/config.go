// Config loading for idmanctl.
package main

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Supported backend names.
const (
	backendMem      = "mem"
	backendPostgres = "postgres"
)

// Config keys.
const (
	cfgKeyBackend            = "backend"
	cfgKeyPostgresDSN        = "postgres_dsn"
	cfgKeyTokenSecret        = "token_secret"
	cfgKeyTokenTTL           = "token_ttl"
	cfgKeyTokenRatePerSecond = "token_rate_per_second"
	cfgKeyTokenRateBurst     = "token_rate_burst"
)

// config holds the resolved CLI configuration.
type config struct {
	Backend            string
	PostgresDSN        string
	TokenSecret        string
	TokenTTL           time.Duration
	TokenRatePerSecond float64
	TokenRateBurst     int
}

// loadConfig reads idmanctl.yaml (or the --config path) with environment
// overrides under the IDMAN prefix, e.g. IDMAN_POSTGRES_DSN. A missing
// config file is not an error; defaults and environment carry the rest.
func loadConfig(path string) (config, error) {
	v := viper.New()
	v.SetDefault(cfgKeyBackend, backendMem)
	v.SetDefault(cfgKeyTokenSecret, "idmanctl-dev-secret")
	v.SetDefault(cfgKeyTokenTTL, "15m")
	v.SetDefault(cfgKeyTokenRatePerSecond, 50.0)
	v.SetDefault(cfgKeyTokenRateBurst, 100)

	v.SetEnvPrefix("IDMAN")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("idmanctl")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return config{}, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := config{
		Backend:            v.GetString(cfgKeyBackend),
		PostgresDSN:        v.GetString(cfgKeyPostgresDSN),
		TokenSecret:        v.GetString(cfgKeyTokenSecret),
		TokenTTL:           v.GetDuration(cfgKeyTokenTTL),
		TokenRatePerSecond: v.GetFloat64(cfgKeyTokenRatePerSecond),
		TokenRateBurst:     v.GetInt(cfgKeyTokenRateBurst),
	}
	if cfg.Backend == backendPostgres && cfg.PostgresDSN == "" {
		return config{}, fmt.Errorf("%s is required for the %s backend", cfgKeyPostgresDSN, backendPostgres)
	}
	return cfg, nil
}
