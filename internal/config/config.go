// Package config loads process configuration from the environment and an
// optional YAML file. Secrets come from DISCORD_TOKEN and SMM_API_KEY;
// the file adds the catalog and the panel URL.
package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/smmvend/vendbot/internal/catalog"
	"github.com/smmvend/vendbot/internal/smm"
)

// ErrMissingToken indicates the Discord session token is not configured.
// This is fatal at startup.
var ErrMissingToken = errors.New("DISCORD_TOKEN is not set")

// CatalogEntry is one product as configured, price kept as a string until
// the catalog parses it.
type CatalogEntry struct {
	Label     string `mapstructure:"label" validate:"required"`
	ServiceID string `mapstructure:"service_id" validate:"required"`
	UnitPrice string `mapstructure:"unit_price" validate:"required"`
}

// Config holds everything the process needs at startup. Both secrets are
// injected into their consumers at construction; nothing reads them from
// the environment afterwards.
type Config struct {
	DiscordToken string `validate:"required"`
	SMMAPIKey    string
	SMMAPIURL    string         `validate:"omitempty,url"`
	ListenAddr   string         `validate:"required"`
	Catalog      []CatalogEntry `validate:"min=1,dive"`
}

// Load reads configuration. filePath may be empty, in which case only the
// environment and defaults apply.
func Load(filePath string) (*Config, error) {
	v := viper.New()

	_ = v.BindEnv("discord_token", "DISCORD_TOKEN")
	_ = v.BindEnv("smm_api_key", "SMM_API_KEY")
	_ = v.BindEnv("smm_api_url", "SMM_API_URL")
	_ = v.BindEnv("port", "PORT")

	v.SetDefault("smm_api_url", smm.DefaultAPIURL)
	v.SetDefault("port", "5000")

	if filePath != "" {
		v.SetConfigFile(filePath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := &Config{
		DiscordToken: v.GetString("discord_token"),
		SMMAPIKey:    v.GetString("smm_api_key"),
		SMMAPIURL:    v.GetString("smm_api_url"),
		ListenAddr:   ":" + v.GetString("port"),
	}

	if err := v.UnmarshalKey("catalog", &cfg.Catalog); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(cfg.Catalog) == 0 {
		cfg.Catalog = defaultCatalog()
	}

	if cfg.DiscordToken == "" {
		return nil, ErrMissingToken
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// defaultCatalog is the built-in single-product listing used when the
// file configures none.
func defaultCatalog() []CatalogEntry {
	return []CatalogEntry{{
		Label:     "Instagram Likes x100",
		ServiceID: "1",
		UnitPrice: "1.50",
	}}
}

// Entries converts the configured catalog into catalog entries, parsing
// prices.
func (c *Config) Entries() ([]catalog.Entry, error) {
	entries := make([]catalog.Entry, 0, len(c.Catalog))
	for _, e := range c.Catalog {
		price, err := decimal.NewFromString(e.UnitPrice)
		if err != nil {
			return nil, fmt.Errorf("entry %q: bad unit price %q: %w", e.Label, e.UnitPrice, err)
		}
		entries = append(entries, catalog.Entry{
			Label:     e.Label,
			ServiceID: e.ServiceID,
			UnitPrice: price,
		})
	}
	return entries, nil
}
