package config

// DefaultMainnet returns the default engine configuration for mainnet.
func DefaultMainnet() *Config {
	return &Config{
		Network: Mainnet,
		DataDir: DefaultDataDir(),
		Indexer: IndexerConfig{
			Endpoint:       "https://mempool.space/api",
			TimeoutSeconds: 10,
		},
		Fees: FeesConfig{
			Endpoints: []string{
				"https://mempool.space/api/v1/fees/recommended",
			},
			Floor:        1,
			CacheSeconds: 60,
		},
		Reconcile: ReconcileConfig{
			IntervalSeconds: 45,
			StaleMinutes:    10,
		},
		Log: LogConfig{
			Level: "info",
			JSON:  false,
		},
	}
}

// DefaultTestnet returns the default engine configuration for testnet.
func DefaultTestnet() *Config {
	cfg := DefaultMainnet()
	cfg.Network = Testnet
	cfg.Indexer.Endpoint = "https://mempool.space/testnet/api"
	cfg.Fees.Endpoints = []string{"https://mempool.space/testnet/api/v1/fees/recommended"}
	return cfg
}

// DefaultSignet returns the default engine configuration for signet.
func DefaultSignet() *Config {
	cfg := DefaultMainnet()
	cfg.Network = Signet
	cfg.Indexer.Endpoint = "https://mempool.space/signet/api"
	cfg.Fees.Endpoints = []string{"https://mempool.space/signet/api/v1/fees/recommended"}
	return cfg
}

// Default returns the default engine configuration for the network.
func Default(network NetworkType) *Config {
	switch network {
	case Testnet:
		return DefaultTestnet()
	case Signet:
		return DefaultSignet()
	default:
		return DefaultMainnet()
	}
}
