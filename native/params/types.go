package params

import (
	"fmt"
	"math/big"
	"sort"
	"strings"
)

const (
	// MinRatio and MaxRatio bound the collateralization ratio, in percent.
	MinRatio uint64 = 100
	MaxRatio uint64 = 300
	// MinLiquidationThreshold is the lowest threshold accepted. The upper
	// bound is the collateralization ratio, exclusive.
	MinLiquidationThreshold uint64 = 1
	// MaxFeeBps caps mint and redemption fees at 10%.
	MaxFeeBps uint64 = 1000

	DefaultCollateralizationRatio uint64 = 150
	DefaultLiquidationThreshold   uint64 = 125
)

var (
	// MaxMintLimitCap is the largest representable mint cap (2^256 - 1).
	MaxMintLimitCap = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	// DefaultMaxMintLimit applies until governance sets a cap (10^24 base units).
	DefaultMaxMintLimit = new(big.Int).Exp(big.NewInt(10), big.NewInt(24), nil)
)

// RiskParameters holds the protocol-wide tunables consumed by the mint,
// redeem and liquidation paths.
type RiskParameters struct {
	CollateralizationRatio uint64
	LiquidationThreshold   uint64
	MintFeeBps             uint64
	RedemptionFeeBps       uint64
	MaxMintLimit           *big.Int
}

// DefaultRiskParameters returns the parameter set used before governance
// writes any value.
func DefaultRiskParameters() RiskParameters {
	return RiskParameters{
		CollateralizationRatio: DefaultCollateralizationRatio,
		LiquidationThreshold:   DefaultLiquidationThreshold,
		MaxMintLimit:           new(big.Int).Set(DefaultMaxMintLimit),
	}
}

// Clone returns a deep copy of the parameters.
func (p RiskParameters) Clone() RiskParameters {
	out := p
	if p.MaxMintLimit != nil {
		out.MaxMintLimit = new(big.Int).Set(p.MaxMintLimit)
	}
	return out
}

// Validate checks every field bound as well as the ordering between the
// liquidation threshold and the collateralization ratio.
func (p RiskParameters) Validate() error {
	if err := checkRatio(NameCollateralizationRatio, p.CollateralizationRatio); err != nil {
		return err
	}
	if err := checkThreshold(p.LiquidationThreshold, p.CollateralizationRatio); err != nil {
		return err
	}
	if err := checkFee(NameMintFeeBps, p.MintFeeBps); err != nil {
		return err
	}
	if err := checkFee(NameRedemptionFeeBps, p.RedemptionFeeBps); err != nil {
		return err
	}
	return checkMintLimit(p.MaxMintLimit)
}

func checkRatio(name string, value uint64) error {
	if value < MinRatio || value > MaxRatio {
		return fmt.Errorf("%s %d outside [%d,%d]", name, value, MinRatio, MaxRatio)
	}
	return nil
}

func checkThreshold(value, ratio uint64) error {
	if value < MinLiquidationThreshold {
		return fmt.Errorf("%s %d below %d", NameLiquidationThreshold, value, MinLiquidationThreshold)
	}
	if value >= ratio {
		return fmt.Errorf("liquidation threshold %d must be below collateralization ratio %d", value, ratio)
	}
	return nil
}

func checkFee(name string, value uint64) error {
	if value > MaxFeeBps {
		return fmt.Errorf("%s %d exceeds %d", name, value, MaxFeeBps)
	}
	return nil
}

func checkMintLimit(value *big.Int) error {
	if value == nil || value.Sign() <= 0 {
		return fmt.Errorf("%s must be positive", NameMaxMintLimit)
	}
	if value.Cmp(MaxMintLimitCap) > 0 {
		return fmt.Errorf("%s exceeds 2^256-1", NameMaxMintLimit)
	}
	return nil
}

type storedRiskParameters struct {
	CollateralizationRatio uint64
	LiquidationThreshold   uint64
	MintFeeBps             uint64
	RedemptionFeeBps       uint64
	MaxMintLimit           *big.Int
}

func newStoredRiskParameters(p RiskParameters) storedRiskParameters {
	limit := big.NewInt(0)
	if p.MaxMintLimit != nil {
		limit = new(big.Int).Set(p.MaxMintLimit)
	}
	return storedRiskParameters{
		CollateralizationRatio: p.CollateralizationRatio,
		LiquidationThreshold:   p.LiquidationThreshold,
		MintFeeBps:             p.MintFeeBps,
		RedemptionFeeBps:       p.RedemptionFeeBps,
		MaxMintLimit:           limit,
	}
}

func (s storedRiskParameters) toParameters() RiskParameters {
	limit := big.NewInt(0)
	if s.MaxMintLimit != nil {
		limit = new(big.Int).Set(s.MaxMintLimit)
	}
	return RiskParameters{
		CollateralizationRatio: s.CollateralizationRatio,
		LiquidationThreshold:   s.LiquidationThreshold,
		MintFeeBps:             s.MintFeeBps,
		RedemptionFeeBps:       s.RedemptionFeeBps,
		MaxMintLimit:           limit,
	}
}

// Action names used by the pause guard.
const (
	ActionMint      = "mint"
	ActionRedeem    = "redeem"
	ActionLiquidate = "liquidate"
	ActionWithdraw  = "withdraw"
)

// Pauses toggles individual engine actions. A paused action is rejected before
// any state is read.
type Pauses struct {
	Mint      bool `json:"mint" yaml:"mint" toml:"mint"`
	Redeem    bool `json:"redeem" yaml:"redeem" toml:"redeem"`
	Liquidate bool `json:"liquidate" yaml:"liquidate" toml:"liquidate"`
	Withdraw  bool `json:"withdraw" yaml:"withdraw" toml:"withdraw"`
}

// IsPaused implements common.PauseView.
func (p Pauses) IsPaused(action string) bool {
	switch strings.ToLower(strings.TrimSpace(action)) {
	case ActionMint:
		return p.Mint
	case ActionRedeem:
		return p.Redeem
	case ActionLiquidate:
		return p.Liquidate
	case ActionWithdraw:
		return p.Withdraw
	default:
		return false
	}
}

// Active lists the paused actions in sorted order.
func (p Pauses) Active() []string {
	out := make([]string, 0, 4)
	for _, action := range []string{ActionMint, ActionRedeem, ActionLiquidate, ActionWithdraw} {
		if p.IsPaused(action) {
			out = append(out, action)
		}
	}
	sort.Strings(out)
	return out
}

// ParsePauses builds a pause set from action names. Unknown names are rejected.
func ParsePauses(actions []string) (Pauses, error) {
	var p Pauses
	for _, raw := range actions {
		switch strings.ToLower(strings.TrimSpace(raw)) {
		case "":
			continue
		case ActionMint:
			p.Mint = true
		case ActionRedeem:
			p.Redeem = true
		case ActionLiquidate:
			p.Liquidate = true
		case ActionWithdraw:
			p.Withdraw = true
		default:
			return Pauses{}, fmt.Errorf("params: unknown action %q", raw)
		}
	}
	return p, nil
}
