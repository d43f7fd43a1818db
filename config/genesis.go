package config

import (
	"fmt"
	"math/big"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"vaultchain/crypto"
	"vaultchain/native/params"
)

// Genesis is the YAML document that seeds a fresh store.
type Genesis struct {
	Governance string        `yaml:"governance"`
	Oracles    []string      `yaml:"oracles"`
	Params     GenesisParams `yaml:"params"`
	Pauses     params.Pauses `yaml:"pauses"`
}

// GenesisParams mirrors params.RiskParameters with the mint cap as a decimal
// string so values above 2^64 survive YAML.
type GenesisParams struct {
	CollateralizationRatio uint64 `yaml:"collateralization_ratio"`
	LiquidationThreshold   uint64 `yaml:"liquidation_threshold"`
	MintFeeBps             uint64 `yaml:"mint_fee_bps"`
	RedemptionFeeBps       uint64 `yaml:"redemption_fee_bps"`
	MaxMintLimit           string `yaml:"max_mint_limit"`
}

// GenesisState is the decoded, validated genesis.
type GenesisState struct {
	Governance crypto.Address
	Oracles    []crypto.Address
	Params     params.RiskParameters
	Pauses     params.Pauses
}

// LoadGenesis reads and resolves a genesis file.
func LoadGenesis(path string) (*GenesisState, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read genesis: %w", err)
	}
	var doc Genesis
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode genesis: %w", err)
	}
	return doc.Resolve()
}

// Resolve decodes addresses, fills unset parameters with defaults and
// validates the result.
func (g Genesis) Resolve() (*GenesisState, error) {
	gov, err := parseAddress(g.Governance)
	if err != nil {
		return nil, fmt.Errorf("genesis governance: %w", err)
	}
	out := &GenesisState{Governance: gov, Pauses: g.Pauses}
	seen := make(map[string]struct{}, len(g.Oracles))
	for _, raw := range g.Oracles {
		addr, err := parseAddress(raw)
		if err != nil {
			return nil, fmt.Errorf("genesis oracle %q: %w", raw, err)
		}
		if addr.Equal(gov) {
			return nil, fmt.Errorf("genesis oracle %q: governance cannot be an oracle", raw)
		}
		key := string(addr.Bytes())
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out.Oracles = append(out.Oracles, addr)
	}

	risk := params.DefaultRiskParameters()
	if g.Params.CollateralizationRatio != 0 {
		risk.CollateralizationRatio = g.Params.CollateralizationRatio
	}
	if g.Params.LiquidationThreshold != 0 {
		risk.LiquidationThreshold = g.Params.LiquidationThreshold
	}
	risk.MintFeeBps = g.Params.MintFeeBps
	risk.RedemptionFeeBps = g.Params.RedemptionFeeBps
	if limit := strings.TrimSpace(g.Params.MaxMintLimit); limit != "" {
		parsed, ok := new(big.Int).SetString(limit, 10)
		if !ok {
			return nil, fmt.Errorf("genesis max_mint_limit %q is not an integer", limit)
		}
		risk.MaxMintLimit = parsed
	}
	if err := risk.Validate(); err != nil {
		return nil, fmt.Errorf("genesis params: %w", err)
	}
	out.Params = risk
	return out, nil
}

// DefaultGenesis returns a genesis document naming governance and no oracles.
func DefaultGenesis(governance crypto.Address) Genesis {
	def := params.DefaultRiskParameters()
	return Genesis{
		Governance: governance.String(),
		Oracles:    []string{},
		Params: GenesisParams{
			CollateralizationRatio: def.CollateralizationRatio,
			LiquidationThreshold:   def.LiquidationThreshold,
			MaxMintLimit:           def.MaxMintLimit.String(),
		},
	}
}

// WriteGenesis stores the document as YAML.
func WriteGenesis(path string, g Genesis) error {
	encoded, err := yaml.Marshal(g)
	if err != nil {
		return fmt.Errorf("encode genesis: %w", err)
	}
	return os.WriteFile(path, encoded, 0o644)
}

func parseAddress(raw string) (crypto.Address, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return crypto.Address{}, fmt.Errorf("address required")
	}
	addr, err := crypto.DecodeAddress(trimmed)
	if err != nil {
		return crypto.Address{}, err
	}
	if addr.IsZero() {
		return crypto.Address{}, fmt.Errorf("zero address")
	}
	return addr, nil
}
