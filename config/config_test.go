package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"vaultchain/crypto"
	"vaultchain/storage"
)

func testAddress(b byte) crypto.Address {
	return crypto.NewAddress(crypto.VaultPrefix, bytes.Repeat([]byte{b}, crypto.AddressLength))
}

func TestLoadCreatesDefault(t *testing.T) {
	t.Setenv(EnvEnvironment, "")
	t.Setenv(EnvDataDir, "")
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config not written: %v", err)
	}
	if cfg.StorageBackend != storage.BackendLevelDB || cfg.Environment != "dev" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.JournalPath != filepath.Join(cfg.DataDir, "journal.db") {
		t.Fatalf("unexpected journal path %q", cfg.JournalPath)
	}

	again, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if again.DataDir != cfg.DataDir || again.Logging.MaxSizeMB != 100 {
		t.Fatalf("reload mismatch: %+v", again)
	}
}

func TestLoadParsesSections(t *testing.T) {
	t.Setenv(EnvEnvironment, "")
	t.Setenv(EnvDataDir, "")
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	contents := `Environment = "prod"
DataDir = "/var/lib/vault"
StorageBackend = "bolt"
GenesisFile = "genesis.yaml"

[engine]
MaxPriceAgeSeconds = 300

[engine.oracle_quota]
MaxRequestsPerEpoch = 10
EpochSeconds = 60

[logging]
Level = "debug"
File = "/var/log/vault.log"

[telemetry]
OTLPEndpoint = "collector:4318"
Insecure = true
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Environment != "prod" || cfg.StorageBackend != storage.BackendBolt {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.Engine.MaxPriceAgeSeconds != 300 || cfg.Engine.OracleQuota.MaxRequestsPerEpoch != 10 {
		t.Fatalf("unexpected engine section %+v", cfg.Engine)
	}
	if cfg.GenesisFile != filepath.Join(dir, "genesis.yaml") {
		t.Fatalf("genesis path not resolved: %q", cfg.GenesisFile)
	}
	if cfg.StatePath() != filepath.Join("/var/lib/vault", "state.db") {
		t.Fatalf("unexpected state path %q", cfg.StatePath())
	}
	if !cfg.Telemetry.Insecure || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected telemetry/logging %+v %+v", cfg.Telemetry, cfg.Logging)
	}
}

func TestLoadRejectsUnknownKeysAndBackends(t *testing.T) {
	dir := t.TempDir()
	unknown := filepath.Join(dir, "unknown.toml")
	if err := os.WriteFile(unknown, []byte("ListenAddress = \":6001\"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(unknown); err == nil || !strings.Contains(err.Error(), "ListenAddress") {
		t.Fatalf("expected unknown key error, got %v", err)
	}
	backend := filepath.Join(dir, "backend.toml")
	if err := os.WriteFile(backend, []byte("StorageBackend = \"rocks\"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(backend); err == nil {
		t.Fatalf("expected unsupported backend error")
	}
}

func TestEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	t.Setenv(EnvEnvironment, "staging")
	t.Setenv(EnvDataDir, "/tmp/override")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Environment != "staging" || cfg.DataDir != "/tmp/override" {
		t.Fatalf("env overrides ignored: %+v", cfg)
	}
}

func TestGenesisRoundTrip(t *testing.T) {
	gov := testAddress(0xAA)
	doc := DefaultGenesis(gov)
	doc.Oracles = []string{testAddress(0x01).String(), testAddress(0x01).String()}
	doc.Params.MintFeeBps = 30
	doc.Pauses.Redeem = true

	path := filepath.Join(t.TempDir(), "genesis.yaml")
	if err := WriteGenesis(path, doc); err != nil {
		t.Fatalf("write genesis: %v", err)
	}
	state, err := LoadGenesis(path)
	if err != nil {
		t.Fatalf("load genesis: %v", err)
	}
	if !state.Governance.Equal(gov) {
		t.Fatalf("governance mismatch")
	}
	if len(state.Oracles) != 1 {
		t.Fatalf("expected duplicate oracle collapsed, got %d", len(state.Oracles))
	}
	if state.Params.MintFeeBps != 30 || state.Params.CollateralizationRatio != 150 || !state.Pauses.Redeem {
		t.Fatalf("unexpected genesis state %+v", state)
	}
}

func TestGenesisValidation(t *testing.T) {
	gov := testAddress(0xAA)
	cases := map[string]Genesis{
		"missing governance": {},
		"governance oracle":  {Governance: gov.String(), Oracles: []string{gov.String()}},
		"bad threshold":      {Governance: gov.String(), Params: GenesisParams{CollateralizationRatio: 120, LiquidationThreshold: 130}},
		"bad limit":          {Governance: gov.String(), Params: GenesisParams{MaxMintLimit: "lots"}},
		"bad address":        {Governance: "vlt1notanaddress"},
	}
	for name, doc := range cases {
		if _, err := doc.Resolve(); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}
