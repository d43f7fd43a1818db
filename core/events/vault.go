package events

import (
	"math/big"

	"vaultchain/core/types"
	"vaultchain/crypto"
)

const (
	TypeVaultCreated        = "vault.created"
	TypeCollateralDeposited = "vault.collateral_deposited"
	TypeCollateralWithdrawn = "vault.collateral_withdrawn"
	TypeLiabilityMinted     = "vault.minted"
	TypeLiabilityRedeemed   = "vault.redeemed"
	TypeVaultLiquidated     = "vault.liquidated"
)

type VaultCreated struct {
	Owner      crypto.Address
	VaultID    uint64
	Collateral *big.Int
	CreatedAt  uint64
}

func (VaultCreated) EventType() string { return TypeVaultCreated }

func (e VaultCreated) Event() *types.Event {
	return &types.Event{
		Type: TypeVaultCreated,
		Attributes: map[string]string{
			"owner":      formatAddress(e.Owner),
			"vaultId":    uintToString(e.VaultID),
			"collateral": formatAmount(e.Collateral),
			"createdAt":  uintToString(e.CreatedAt),
		},
	}
}

// CollateralMoved covers both deposits and withdrawals; Withdrawal selects the
// event type.
type CollateralMoved struct {
	Owner      crypto.Address
	VaultID    uint64
	Amount     *big.Int
	Collateral *big.Int
	Withdrawal bool
}

func (e CollateralMoved) EventType() string {
	if e.Withdrawal {
		return TypeCollateralWithdrawn
	}
	return TypeCollateralDeposited
}

func (e CollateralMoved) Event() *types.Event {
	return &types.Event{
		Type: e.EventType(),
		Attributes: map[string]string{
			"owner":      formatAddress(e.Owner),
			"vaultId":    uintToString(e.VaultID),
			"amount":     formatAmount(e.Amount),
			"collateral": formatAmount(e.Collateral),
		},
	}
}

type LiabilityMinted struct {
	Owner     crypto.Address
	VaultID   uint64
	Amount    *big.Int
	Fee       *big.Int
	Liability *big.Int
	Price     *big.Int
}

func (LiabilityMinted) EventType() string { return TypeLiabilityMinted }

func (e LiabilityMinted) Event() *types.Event {
	return &types.Event{
		Type: TypeLiabilityMinted,
		Attributes: map[string]string{
			"owner":     formatAddress(e.Owner),
			"vaultId":   uintToString(e.VaultID),
			"amount":    formatAmount(e.Amount),
			"fee":       formatAmount(e.Fee),
			"liability": formatAmount(e.Liability),
			"price":     formatAmount(e.Price),
		},
	}
}

type LiabilityRedeemed struct {
	Owner     crypto.Address
	VaultID   uint64
	Amount    *big.Int
	Fee       *big.Int
	Liability *big.Int
}

func (LiabilityRedeemed) EventType() string { return TypeLiabilityRedeemed }

func (e LiabilityRedeemed) Event() *types.Event {
	return &types.Event{
		Type: TypeLiabilityRedeemed,
		Attributes: map[string]string{
			"owner":     formatAddress(e.Owner),
			"vaultId":   uintToString(e.VaultID),
			"amount":    formatAmount(e.Amount),
			"fee":       formatAmount(e.Fee),
			"liability": formatAmount(e.Liability),
		},
	}
}

type VaultLiquidated struct {
	Owner      crypto.Address
	Liquidator crypto.Address
	VaultID    uint64
	Seized     *big.Int
	Burned     *big.Int
	Ratio      *big.Int
	Price      *big.Int
}

func (VaultLiquidated) EventType() string { return TypeVaultLiquidated }

func (e VaultLiquidated) Event() *types.Event {
	return &types.Event{
		Type: TypeVaultLiquidated,
		Attributes: map[string]string{
			"owner":      formatAddress(e.Owner),
			"liquidator": formatAddress(e.Liquidator),
			"vaultId":    uintToString(e.VaultID),
			"seized":     formatAmount(e.Seized),
			"burned":     formatAmount(e.Burned),
			"ratio":      formatAmount(e.Ratio),
			"price":      formatAmount(e.Price),
		},
	}
}
