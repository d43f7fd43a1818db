package cdp

import (
	"math/big"

	"vaultchain/crypto"
)

// MintReceipt summarises an accepted mint. Fee is reported for the external
// token ledger; the liability and supply grow by the full Amount.
type MintReceipt struct {
	VaultID     uint64
	Owner       crypto.Address
	Amount      *big.Int
	Fee         *big.Int
	Liability   *big.Int
	MaxMintable *big.Int
	Price       *big.Int
	Supply      *big.Int
}

// RedeemReceipt summarises an accepted redemption.
type RedeemReceipt struct {
	VaultID   uint64
	Owner     crypto.Address
	Amount    *big.Int
	Fee       *big.Int
	Liability *big.Int
	Supply    *big.Int
}

// LiquidationReceipt describes a seized vault.
type LiquidationReceipt struct {
	VaultID    uint64
	Owner      crypto.Address
	Liquidator crypto.Address
	Seized     *big.Int
	Burned     *big.Int
	Ratio      *big.Int
	Price      *big.Int
	Supply     *big.Int
}

// Health reports a vault's position against the latest price. Ratio is nil
// for vaults without liability.
type Health struct {
	VaultID        uint64
	Owner          crypto.Address
	Collateral     *big.Int
	Liability      *big.Int
	Price          *big.Int
	PriceTimestamp uint64
	Ratio          *big.Int
	MaxMintable    *big.Int
	Headroom       *big.Int
	Liquidatable   bool
}

// AuditReport compares the stored global supply with the sum of live vault
// liabilities.
type AuditReport struct {
	Supply         *big.Int
	LiabilitySum   *big.Int
	CollateralSum  *big.Int
	Vaults         int
	Liquidatable   int
	Balanced       bool
	PriceAvailable bool
}
