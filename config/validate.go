package config

import (
	"fmt"
	"net/url"
)

// Validate checks runtime config for obvious operator mistakes.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	switch cfg.Network {
	case Mainnet, Testnet, Signet:
	default:
		return fmt.Errorf("network must be %q, %q or %q", Mainnet, Testnet, Signet)
	}

	if cfg.Indexer.Endpoint == "" {
		return fmt.Errorf("indexer.endpoint is required")
	}
	if err := validateURL(cfg.Indexer.Endpoint, "indexer.endpoint"); err != nil {
		return err
	}
	if cfg.Indexer.TimeoutSeconds < 0 {
		return fmt.Errorf("indexer.timeout must not be negative")
	}

	if len(cfg.Fees.Endpoints) == 0 {
		return fmt.Errorf("fees.endpoints requires at least one endpoint")
	}
	for i, ep := range cfg.Fees.Endpoints {
		if err := validateURL(ep, fmt.Sprintf("fees.endpoints[%d]", i)); err != nil {
			return err
		}
	}
	if cfg.Fees.Floor <= 0 {
		return fmt.Errorf("fees.floor must be positive")
	}
	if cfg.Fees.CacheSeconds < 0 {
		return fmt.Errorf("fees.cache must not be negative")
	}

	if cfg.Reconcile.IntervalSeconds <= 0 {
		return fmt.Errorf("reconcile.interval must be positive")
	}
	if cfg.Reconcile.StaleMinutes <= 0 {
		return fmt.Errorf("reconcile.stale must be positive")
	}

	return nil
}

func validateURL(raw, field string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s must be an absolute URL", field)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must use http or https", field)
	}
	return nil
}
