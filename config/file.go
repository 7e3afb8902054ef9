package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// LoadFile loads engine configuration from a .conf file.
// Format: key = value (one per line, # for comments)
func LoadFile(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, err
	}
	defer file.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("line %d: invalid format (expected key = value)", lineNum)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Remove quotes if present
		if len(value) >= 2 {
			if (value[0] == '"' && value[len(value)-1] == '"') ||
				(value[0] == '\'' && value[len(value)-1] == '\'') {
				value = value[1 : len(value)-1]
			}
		}

		values[key] = value
	}

	return values, scanner.Err()
}

// ApplyFileConfig applies file configuration to a Config struct.
func ApplyFileConfig(cfg *Config, values map[string]string) error {
	for key, value := range values {
		if err := setConfigValue(cfg, key, value); err != nil {
			return fmt.Errorf("config key %q: %w", key, err)
		}
	}
	return nil
}

func setConfigValue(cfg *Config, key, value string) error {
	switch key {
	// Core
	case "network":
		cfg.Network = NetworkType(value)
	case "datadir":
		cfg.DataDir = value

	// Indexer
	case "indexer.endpoint":
		cfg.Indexer.Endpoint = value
	case "indexer.timeout":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.Indexer.TimeoutSeconds = n

	// Fees
	case "fees.endpoints":
		cfg.Fees.Endpoints = parseStringList(value)
	case "fees.floor":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		cfg.Fees.Floor = f
	case "fees.cache":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.Fees.CacheSeconds = n

	// Reconcile
	case "reconcile.interval":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.Reconcile.IntervalSeconds = n
	case "reconcile.stale":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.Reconcile.StaleMinutes = n

	// Content
	case "content.dir":
		cfg.Content.Dir = value

	// Logging
	case "log.level":
		cfg.Log.Level = value
	case "log.file":
		cfg.Log.File = value
	case "log.json":
		cfg.Log.JSON = parseBool(value)

	default:
		// Unknown keys are ignored
	}
	return nil
}

func parseBool(s string) bool {
	s = strings.ToLower(s)
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

// parseStringList parses a comma-separated list.
func parseStringList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// WriteDefaultConfig writes a default engine configuration file.
func WriteDefaultConfig(path string, network NetworkType) error {
	def := Default(network)
	content := `# Ordforge Minting Engine Configuration
#
# Operational settings only. Consensus-level constants (dust
# thresholds, envelope limits) are fixed in the binary.

# Network: mainnet, testnet, or signet
network = ` + string(network) + `

# Data directory (default: ~/.ordforge)
# datadir = ~/.ordforge

# ============================================================================
# Chain Indexer
# ============================================================================

indexer.endpoint = ` + def.Indexer.Endpoint + `
indexer.timeout = 10

# ============================================================================
# Fee Oracle
# ============================================================================

# Fee recommendation APIs, tried in order (comma-separated)
fees.endpoints = ` + strings.Join(def.Fees.Endpoints, ",") + `

# Fee floor in sat/vB; also the fallback when every endpoint is down
fees.floor = 1

# Recommendation cache lifetime, seconds
fees.cache = 60

# ============================================================================
# Reconciliation
# ============================================================================

# Sweep interval, seconds
reconcile.interval = 45

# Stale bound: minutes a mint may sit in one state before it fails
reconcile.stale = 10

# ============================================================================
# Content
# ============================================================================

# Directory of mintable assets
# content.dir = ~/assets

# ============================================================================
# Logging
# ============================================================================

log.level = info
# log.file =
log.json = false
`
	return os.WriteFile(path, []byte(content), 0644)
}
