package cdp

import (
	"fmt"
	"math/big"

	cdperrors "vaultchain/core/errors"
	"vaultchain/core/events"
	"vaultchain/crypto"
	"vaultchain/native/params"
)

// Liquidate seizes a vault whose collateral ratio has fallen below the
// liquidation threshold. The whole liability is burnt from the global supply
// and the vault record is removed; its collateral does not return to the
// owner. Owners cannot liquidate their own vaults.
func (e *Engine) Liquidate(caller, owner crypto.Address, id uint64) (*LiquidationReceipt, error) {
	var receipt *LiquidationReceipt
	err := e.execute(OpLiquidate, func(t *txn) error {
		v, err := t.loadVault(owner, id)
		if err != nil {
			return err
		}
		if caller.Equal(v.Owner) {
			return cdperrors.ErrUnauthorizedVaultAction
		}
		if caller.IsZero() {
			return cdperrors.ErrNotAuthorized
		}
		if err := t.guard(params.ActionLiquidate); err != nil {
			return err
		}
		obs, err := t.latestPrice(e.cfg.MaxPriceAge)
		if err != nil {
			return err
		}
		// Vaults without liability pose no solvency risk.
		if v.Liability.Sign() == 0 {
			return fmt.Errorf("%w: vault %d has no liability", cdperrors.ErrLiquidationNotAllowed, v.ID)
		}
		risk, err := t.params.Params()
		if err != nil {
			return err
		}
		ratio := collateralRatio(v.Collateral, obs.Price, v.Liability)
		if ratio.Cmp(new(big.Int).SetUint64(risk.LiquidationThreshold)) >= 0 {
			return fmt.Errorf("%w: ratio %s at or above threshold %d", cdperrors.ErrLiquidationNotAllowed, ratio, risk.LiquidationThreshold)
		}
		if err := t.decreaseSupply(v.Liability, events.SupplyReasonLiquidation); err != nil {
			return err
		}
		if err := t.ledger.Remove(v.Owner, v.ID); err != nil {
			return err
		}
		t.events.Emit(events.VaultLiquidated{
			Owner:      v.Owner,
			Liquidator: caller,
			VaultID:    v.ID,
			Seized:     v.Collateral,
			Burned:     v.Liability,
			Ratio:      ratio,
			Price:      obs.Price,
		})
		receipt = &LiquidationReceipt{
			VaultID:    v.ID,
			Owner:      v.Owner,
			Liquidator: caller,
			Seized:     cloneAmount(v.Collateral),
			Burned:     cloneAmount(v.Liability),
			Ratio:      ratio,
			Price:      cloneAmount(obs.Price),
			Supply:     cloneAmount(t.supply),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// Health evaluates a vault against the latest price without mutating state.
func (e *Engine) Health(owner crypto.Address, id uint64) (*Health, error) {
	var out *Health
	err := e.view(func(t *txn) error {
		v, err := t.loadVault(owner, id)
		if err != nil {
			return err
		}
		obs, err := t.latestPrice(e.cfg.MaxPriceAge)
		if err != nil {
			return err
		}
		risk, err := t.params.Params()
		if err != nil {
			return err
		}
		out = assess(v.Collateral, v.Liability, obs.Price, risk)
		out.VaultID = v.ID
		out.Owner = v.Owner
		out.PriceTimestamp = obs.Timestamp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func assess(collateral, liability, price *big.Int, risk params.RiskParameters) *Health {
	limit := maxMintable(collateral, price, risk.CollateralizationRatio)
	headroom := new(big.Int).Sub(limit, liability)
	if headroom.Sign() < 0 {
		headroom.SetInt64(0)
	}
	h := &Health{
		Collateral:  cloneAmount(collateral),
		Liability:   cloneAmount(liability),
		Price:       cloneAmount(price),
		MaxMintable: limit,
		Headroom:    headroom,
	}
	if ratio := collateralRatio(collateral, price, liability); ratio != nil {
		h.Ratio = ratio
		h.Liquidatable = ratio.Cmp(new(big.Int).SetUint64(risk.LiquidationThreshold)) < 0
	}
	return h
}
