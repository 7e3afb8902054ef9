// Package config handles engine configuration.
//
// Everything here is operator-tunable runtime behavior. Protocol
// constants (dust thresholds, envelope limits, size models) are
// hardcoded where they are used and never configurable.
package config

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/btcsuite/btcd/chaincfg"
)

// NetworkType identifies the Bitcoin network the engine mints on.
type NetworkType string

const (
	Mainnet NetworkType = "mainnet"
	Testnet NetworkType = "testnet"
	Signet  NetworkType = "signet"
)

// ChainParams returns the btcd chain parameters for the network.
func (n NetworkType) ChainParams() *chaincfg.Params {
	switch n {
	case Testnet:
		return &chaincfg.TestNet3Params
	case Signet:
		return &chaincfg.SigNetParams
	default:
		return &chaincfg.MainNetParams
	}
}

// Config holds engine runtime configuration.
type Config struct {
	// Core
	Network NetworkType `conf:"network"`
	DataDir string      `conf:"datadir"`

	// Indexer is the chain indexer the engine polls.
	Indexer IndexerConfig

	// Fees is the fee oracle configuration.
	Fees FeesConfig

	// Reconcile tunes the background reconciliation monitor.
	Reconcile ReconcileConfig

	// Content is where mintable assets are loaded from.
	Content ContentConfig

	// Logging
	Log LogConfig
}

// IndexerConfig holds chain indexer settings.
type IndexerConfig struct {
	Endpoint       string `conf:"indexer.endpoint"`
	TimeoutSeconds int    `conf:"indexer.timeout"`
}

// FeesConfig holds fee oracle settings.
type FeesConfig struct {
	// Endpoints are fee-recommendation APIs, tried in order.
	Endpoints []string `conf:"fees.endpoints"`
	// Floor is the minimum fee rate in sat/vB; all tiers are clamped
	// to it and it is the fallback when every endpoint is down.
	Floor float64 `conf:"fees.floor"`
	// CacheSeconds is how long a fee recommendation is reused.
	CacheSeconds int `conf:"fees.cache"`
}

// ReconcileConfig holds reconciliation monitor settings.
type ReconcileConfig struct {
	// IntervalSeconds is how often the monitor sweeps pending mints.
	IntervalSeconds int `conf:"reconcile.interval"`
	// StaleMinutes bounds how long a mint may sit in one state before
	// it is forced to failed.
	StaleMinutes int `conf:"reconcile.stale"`
}

// ContentConfig holds asset source settings.
type ContentConfig struct {
	Dir string `conf:"content.dir"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `conf:"log.level"`
	File  string `conf:"log.file"`
	JSON  bool   `conf:"log.json"`
}

// DefaultDataDir returns the platform-specific default data directory.
//
//	Linux:   ~/.ordforge
//	macOS:   ~/Library/Application Support/Ordforge
//	Windows: %APPDATA%\Ordforge
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".ordforge"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Ordforge")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "Ordforge")
		}
		return filepath.Join(home, "AppData", "Roaming", "Ordforge")
	default:
		return filepath.Join(home, ".ordforge")
	}
}

// NetworkDataDir returns the network-specific data directory.
func (c *Config) NetworkDataDir() string {
	return filepath.Join(c.DataDir, string(c.Network))
}

// LedgerDir returns the mint ledger database directory.
func (c *Config) LedgerDir() string {
	return filepath.Join(c.NetworkDataDir(), "ledger")
}

// KeystoreDir returns the keystore directory.
func (c *Config) KeystoreDir() string {
	return filepath.Join(c.NetworkDataDir(), "keystore")
}

// LogsDir returns the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// ConfigFile returns the config file path.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.DataDir, "ordforge.conf")
}
