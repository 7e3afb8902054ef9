package config

import (
	"flag"
	"fmt"
	"os"
	"strings"
)

// Flags holds parsed command-line flags.
type Flags struct {
	// Commands
	Help    bool
	Version bool

	// Core
	Network string
	DataDir string
	Config  string

	// Indexer
	IndexerEndpoint string
	IndexerTimeout  int

	// Fees
	FeeEndpoints string
	FeeFloor     float64
	FeeCache     int

	// Reconcile
	ReconcileInterval int
	ReconcileStale    int

	// Content
	ContentDir string

	// Logging
	LogLevel string
	LogFile  string
	LogJSON  bool

	// Remaining args
	Args []string

	// Explicitly-set bool flags (for true/false overrides).
	SetLogJSON bool
}

// ParseFlags parses command-line flags.
func ParseFlags() *Flags {
	f := &Flags{}
	fs := flag.NewFlagSet("ordforge", flag.ContinueOnError)

	// Commands
	fs.BoolVar(&f.Help, "help", false, "Show help message")
	fs.BoolVar(&f.Help, "h", false, "Show help message (shorthand)")
	fs.BoolVar(&f.Version, "version", false, "Show version information")
	fs.BoolVar(&f.Version, "v", false, "Show version (shorthand)")

	// Core
	fs.StringVar(&f.Network, "network", "", "Network type (mainnet, testnet or signet)")
	fs.StringVar(&f.DataDir, "datadir", "", "Data directory path")
	fs.StringVar(&f.Config, "config", "", "Config file path")
	fs.StringVar(&f.Config, "c", "", "Config file path (shorthand)")

	// Indexer
	fs.StringVar(&f.IndexerEndpoint, "indexer", "", "Chain indexer base URL")
	fs.IntVar(&f.IndexerTimeout, "indexer-timeout", 0, "Indexer request timeout in seconds")

	// Fees
	fs.StringVar(&f.FeeEndpoints, "fee-endpoints", "", "Fee recommendation APIs, comma-separated, tried in order")
	fs.Float64Var(&f.FeeFloor, "fee-floor", 0, "Fee floor in sat/vB")
	fs.IntVar(&f.FeeCache, "fee-cache", 0, "Fee recommendation cache lifetime in seconds")

	// Reconcile
	fs.IntVar(&f.ReconcileInterval, "reconcile-interval", 0, "Reconciliation sweep interval in seconds")
	fs.IntVar(&f.ReconcileStale, "reconcile-stale", 0, "Minutes before an in-flight mint is failed as stale")

	// Content
	fs.StringVar(&f.ContentDir, "content-dir", "", "Directory of mintable assets")

	// Logging
	fs.StringVar(&f.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.StringVar(&f.LogFile, "log-file", "", "Log file path")
	fs.BoolVar(&f.LogJSON, "log-json", false, "Output logs as JSON")

	fs.Usage = func() {
		printUsage()
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	f.SetLogJSON = isFlagSet(fs, "log-json")
	f.Args = fs.Args()

	// Detect unparsed flags caused by positional arguments stopping the
	// parser.
	for _, arg := range f.Args {
		if strings.HasPrefix(arg, "-") {
			fmt.Fprintf(os.Stderr, "Error: flag %q was not parsed (positional argument stopped parsing)\n", arg)
			os.Exit(1)
		}
	}

	return f
}

// ApplyFlags applies command-line flags to a Config struct.
func ApplyFlags(cfg *Config, f *Flags) {
	// Core
	if f.Network != "" {
		cfg.Network = NetworkType(f.Network)
	}
	if f.DataDir != "" {
		cfg.DataDir = f.DataDir
	}

	// Indexer
	if f.IndexerEndpoint != "" {
		cfg.Indexer.Endpoint = f.IndexerEndpoint
	}
	if f.IndexerTimeout != 0 {
		cfg.Indexer.TimeoutSeconds = f.IndexerTimeout
	}

	// Fees
	if f.FeeEndpoints != "" {
		cfg.Fees.Endpoints = parseStringList(f.FeeEndpoints)
	}
	if f.FeeFloor != 0 {
		cfg.Fees.Floor = f.FeeFloor
	}
	if f.FeeCache != 0 {
		cfg.Fees.CacheSeconds = f.FeeCache
	}

	// Reconcile
	if f.ReconcileInterval != 0 {
		cfg.Reconcile.IntervalSeconds = f.ReconcileInterval
	}
	if f.ReconcileStale != 0 {
		cfg.Reconcile.StaleMinutes = f.ReconcileStale
	}

	// Content
	if f.ContentDir != "" {
		cfg.Content.Dir = f.ContentDir
	}

	// Logging
	if f.LogLevel != "" {
		cfg.Log.Level = f.LogLevel
	}
	if f.LogFile != "" {
		cfg.Log.File = f.LogFile
	}
	if f.SetLogJSON {
		cfg.Log.JSON = f.LogJSON
	}
}

// isFlagSet checks if a flag was explicitly set.
func isFlagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

// Load builds the effective configuration: defaults, then config file,
// then command-line flags.
func Load() (*Config, *Flags, error) {
	flags := ParseFlags()

	if flags.Help {
		printUsage()
		os.Exit(0)
	}
	if flags.Version {
		fmt.Println("ordforged version 0.1.0")
		os.Exit(0)
	}

	// Determine network first (needed for defaults)
	network := Mainnet
	switch strings.ToLower(flags.Network) {
	case "testnet":
		network = Testnet
	case "signet":
		network = Signet
	}

	cfg := Default(network)
	if flags.DataDir != "" {
		cfg.DataDir = flags.DataDir
	}

	// Auto-create data directories and default config on first start.
	if err := EnsureDataDirs(cfg); err != nil {
		return nil, nil, fmt.Errorf("ensuring data dirs: %w", err)
	}

	configPath := flags.Config
	if configPath == "" {
		configPath = cfg.ConfigFile()
	}

	fileValues, err := LoadFile(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config file: %w", err)
	}
	if err := ApplyFileConfig(cfg, fileValues); err != nil {
		return nil, nil, fmt.Errorf("applying config file: %w", err)
	}

	// Flags take highest precedence.
	ApplyFlags(cfg, flags)
	if err := Validate(cfg); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, flags, nil
}

// EnsureDataDirs creates the data directory structure and a default
// config file if they don't already exist. Idempotent.
func EnsureDataDirs(cfg *Config) error {
	dirs := []string{
		cfg.DataDir,
		cfg.NetworkDataDir(),
		cfg.LedgerDir(),
		cfg.KeystoreDir(),
		cfg.LogsDir(),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}

	configPath := cfg.ConfigFile()
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := WriteDefaultConfig(configPath, cfg.Network); err != nil {
			return fmt.Errorf("writing config file: %w", err)
		}
	}
	return nil
}

func printUsage() {
	usage := `Ordforge - commit/reveal inscription minting engine

Usage:
  ordforged [options]
  ordforged --help

Commands:
  --help, -h      Show this help message
  --version, -v   Show version information

Core Options:
  --network            Network: mainnet (default), testnet or signet
  --datadir            Data directory (default: ~/.ordforge)
  --config, -c         Config file path (default: <datadir>/ordforge.conf)

Indexer Options:
  --indexer            Chain indexer base URL
  --indexer-timeout    Indexer request timeout, seconds (default: 10)

Fee Options:
  --fee-endpoints      Fee APIs, comma-separated, tried in order
  --fee-floor          Fee floor in sat/vB (default: 1)
  --fee-cache          Fee cache lifetime, seconds (default: 60)

Reconciliation Options:
  --reconcile-interval Sweep interval, seconds (default: 45)
  --reconcile-stale    Stale bound, minutes (default: 10)

Content Options:
  --content-dir        Directory of mintable assets

Logging Options:
  --log-level          Log level: debug, info, warn, error (default: info)
  --log-file           Also write logs to this file
  --log-json           Output logs as JSON
`
	fmt.Print(usage)
}
