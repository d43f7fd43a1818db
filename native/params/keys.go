package params

const (
	// ParamsKeyRisk stores the protocol-wide risk parameters.
	ParamsKeyRisk = "cdp/params/risk"
	// ParamsKeyPauses stores the action pause configuration.
	ParamsKeyPauses = "cdp/params/pauses"
)

// Parameter names accepted by Store.Set and rendered in update events.
const (
	NameCollateralizationRatio = "collateralization_ratio"
	NameLiquidationThreshold   = "liquidation_threshold"
	NameMintFeeBps             = "mint_fee_bps"
	NameRedemptionFeeBps       = "redemption_fee_bps"
	NameMaxMintLimit           = "max_mint_limit"
)

// Names lists every tunable in a stable order.
func Names() []string {
	return []string{
		NameCollateralizationRatio,
		NameLiquidationThreshold,
		NameMintFeeBps,
		NameRedemptionFeeBps,
		NameMaxMintLimit,
	}
}
