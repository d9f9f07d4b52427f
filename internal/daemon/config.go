// Package daemon holds the service configuration and startup wiring.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/funmoney-network/pplp/internal/domain"
)

// Config is the full daemon configuration, loaded from config.toml.
type Config struct {
	API        APIConfig        `toml:"api"`
	Chain      ChainConfig      `toml:"chain"`
	Policy     PolicyConfig     `toml:"policy"`
	Governance GovernanceConfig `toml:"governance"`
	Ledger     LedgerConfig     `toml:"ledger"`
	Events     EventsConfig     `toml:"events"`
}

// APIConfig configures the HTTP server.
type APIConfig struct {
	Host    string `toml:"host"`
	Port    int    `toml:"port"`
	Metrics bool   `toml:"metrics"`
}

// ChainConfig configures the JSON-RPC connection and target contract.
type ChainConfig struct {
	RPCURL        string `toml:"rpc_url"`
	Contract      string `toml:"contract"`
	ChainID       uint64 `toml:"chain_id"`
	EpochDuration int64  `toml:"epoch_duration"` // seconds; 0 reads it from the contract
}

// PolicyConfig locates the action policy bundles.
type PolicyConfig struct {
	BundleDir string `toml:"bundle_dir"`
}

// GovernanceConfig lists attester addresses per governance group.
// Every group must be non-empty and no address may appear twice.
type GovernanceConfig struct {
	Will   []string `toml:"will"`
	Wisdom []string `toml:"wisdom"`
	Love   []string `toml:"love"`
}

// LedgerConfig configures the off-chain wallet store.
type LedgerConfig struct {
	DBPath       string `toml:"db_path"`
	AuditLogPath string `toml:"audit_log_path"`
}

// EventsConfig bounds analytics ingestion.
type EventsConfig struct {
	MaxBatchSize  int `toml:"max_batch_size"`
	RatePerMinute int `toml:"rate_per_minute"`
}

// DefaultConfig returns the configuration used when no config.toml exists.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			Host:    "127.0.0.1",
			Port:    8090,
			Metrics: true,
		},
		Chain: ChainConfig{
			RPCURL:  "https://data-seed-prebsc-1-s1.binance.org:8545",
			ChainID: 97,
		},
		Policy: PolicyConfig{
			BundleDir: "policies",
		},
		Ledger: LedgerConfig{
			DBPath: filepath.Join(defaultHome(), "ledger.db"),
		},
		Events: EventsConfig{
			MaxBatchSize:  50,
			RatePerMinute: 200,
		},
	}
}

// defaultHome returns the state directory, creating nothing.
func defaultHome() string {
	if home := os.Getenv("PPLP_HOME"); home != "" {
		return home
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(userHome, ".pplp")
}

// Load reads a TOML config file, layering it over the defaults.
// A missing file is not an error; the defaults apply.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		path = filepath.Join(defaultHome(), "config.toml")
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("daemon: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects configurations the daemon cannot start with.
func (c Config) Validate() error {
	if c.API.Port < 1 || c.API.Port > 65535 {
		return fmt.Errorf("daemon: api.port %d out of range", c.API.Port)
	}
	if c.Events.MaxBatchSize < 1 {
		return fmt.Errorf("daemon: events.max_batch_size must be positive")
	}
	if c.Events.RatePerMinute < 1 {
		return fmt.Errorf("daemon: events.rate_per_minute must be positive")
	}
	return nil
}

// ListenAddr returns the host:port the HTTP server binds.
func (c Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.API.Host, c.API.Port)
}

// Groups returns the governance group membership map keyed by group ID.
func (c GovernanceConfig) Groups() map[domain.GroupID][]string {
	return map[domain.GroupID][]string{
		domain.GroupWill:   c.Will,
		domain.GroupWisdom: c.Wisdom,
		domain.GroupLove:   c.Love,
	}
}
