package events

import (
	"math/big"
	"strings"

	"vaultchain/core/types"
)

const (
	// TypeLiabilitySupply is emitted whenever the global liability supply changes.
	TypeLiabilitySupply = "liability.supply"

	// SupplyReasonMint identifies mint driven supply increases.
	SupplyReasonMint = "mint"
	// SupplyReasonRedeem identifies redemption driven supply decreases.
	SupplyReasonRedeem = "redeem"
	// SupplyReasonLiquidation identifies supply burnt when a vault is seized.
	SupplyReasonLiquidation = "liquidation"
)

// LiabilitySupply captures a delta of the global liability supply. Delta is
// signed: negative values are decreases.
type LiabilitySupply struct {
	Total  *big.Int
	Delta  *big.Int
	Reason string
}

func (LiabilitySupply) EventType() string { return TypeLiabilitySupply }

// Event renders the structured supply change event for downstream consumers.
func (e LiabilitySupply) Event() *types.Event {
	attrs := map[string]string{}

	total := big.NewInt(0)
	if e.Total != nil {
		total = new(big.Int).Set(e.Total)
	}
	attrs["total"] = total.String()

	if e.Delta != nil {
		attrs["delta"] = new(big.Int).Set(e.Delta).String()
	}

	reason := strings.TrimSpace(e.Reason)
	if reason != "" {
		attrs["reason"] = reason
	}

	return &types.Event{Type: TypeLiabilitySupply, Attributes: attrs}
}
