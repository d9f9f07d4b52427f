package daemon

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/funmoney-network/pplp/internal/domain"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.API.Host != "127.0.0.1" {
		t.Errorf("API.Host = %q, want %q", cfg.API.Host, "127.0.0.1")
	}
	if cfg.API.Port != 8090 {
		t.Errorf("API.Port = %d, want %d", cfg.API.Port, 8090)
	}
	if !cfg.API.Metrics {
		t.Error("API.Metrics should be true by default")
	}
	if cfg.Chain.ChainID != 97 {
		t.Errorf("Chain.ChainID = %d, want 97", cfg.Chain.ChainID)
	}
	if cfg.Events.MaxBatchSize != 50 {
		t.Errorf("Events.MaxBatchSize = %d, want 50", cfg.Events.MaxBatchSize)
	}
	if cfg.Events.RatePerMinute != 200 {
		t.Errorf("Events.RatePerMinute = %d, want 200", cfg.Events.RatePerMinute)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.API.Port != DefaultConfig().API.Port {
		t.Errorf("missing file should yield defaults, got port %d", cfg.API.Port)
	}
}

func TestLoadLayersOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
[api]
port = 9999

[chain]
rpc_url = "http://localhost:8545"
contract = "0x1111111111111111111111111111111111111111"
chain_id = 56

[governance]
will = ["0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"]
wisdom = ["0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"]
love = ["0xcccccccccccccccccccccccccccccccccccccccc"]
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.API.Port != 9999 {
		t.Errorf("API.Port = %d, want 9999", cfg.API.Port)
	}
	if cfg.API.Host != "127.0.0.1" {
		t.Errorf("API.Host should keep default, got %q", cfg.API.Host)
	}
	if cfg.Chain.ChainID != 56 {
		t.Errorf("Chain.ChainID = %d, want 56", cfg.Chain.ChainID)
	}

	groups := cfg.Governance.Groups()
	if len(groups[domain.GroupWill]) != 1 || len(groups[domain.GroupWisdom]) != 1 || len(groups[domain.GroupLove]) != 1 {
		t.Errorf("Groups() = %v, want one member per group", groups)
	}
}

func TestValidateRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port zero", func(c *Config) { c.API.Port = 0 }},
		{"port too high", func(c *Config) { c.API.Port = 70000 }},
		{"zero batch size", func(c *Config) { c.Events.MaxBatchSize = 0 }},
		{"zero rate", func(c *Config) { c.Events.RatePerMinute = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() should fail")
			}
		})
	}
}
