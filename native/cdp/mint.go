package cdp

import (
	"fmt"
	"math/big"

	cdperrors "vaultchain/core/errors"
	"vaultchain/core/events"
	"vaultchain/crypto"
	"vaultchain/native/params"
	"vaultchain/native/vault"
)

// CreateVault opens a vault for owner holding collateral and no liability.
// The id is the next value of the protocol-wide sequence.
func (e *Engine) CreateVault(owner crypto.Address, collateral *big.Int) (uint64, error) {
	var id uint64
	err := e.execute(OpCreateVault, func(t *txn) error {
		if owner.IsZero() {
			return cdperrors.ErrNotAuthorized
		}
		if collateral == nil || collateral.Sign() <= 0 {
			return cdperrors.ErrInvalidCollateral
		}
		if err := vault.CheckAmount(collateral); err != nil {
			return err
		}
		next, err := t.ledger.NextID()
		if err != nil {
			return err
		}
		record := &vault.Vault{
			Owner:      owner,
			ID:         next,
			Collateral: new(big.Int).Set(collateral),
			Liability:  big.NewInt(0),
			CreatedAt:  t.now,
		}
		if err := t.ledger.Insert(record); err != nil {
			return err
		}
		t.events.Emit(events.VaultCreated{
			Owner:      owner,
			VaultID:    next,
			Collateral: record.Collateral,
			CreatedAt:  record.CreatedAt,
		})
		id = next
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// ownedVault validates the id, loads the vault and checks the caller owns it.
func (t *txn) ownedVault(caller, owner crypto.Address, id uint64) (*vault.Vault, error) {
	v, err := t.loadVault(owner, id)
	if err != nil {
		return nil, err
	}
	if caller.IsZero() || !caller.Equal(v.Owner) {
		return nil, cdperrors.ErrUnauthorizedVaultAction
	}
	return v, nil
}

// DepositCollateral adds collateral to an existing vault.
func (e *Engine) DepositCollateral(caller, owner crypto.Address, id uint64, amount *big.Int) (*vault.Vault, error) {
	var out *vault.Vault
	err := e.execute(OpDeposit, func(t *txn) error {
		v, err := t.ownedVault(caller, owner, id)
		if err != nil {
			return err
		}
		if err := requirePositive(amount); err != nil {
			return err
		}
		v.Collateral = new(big.Int).Add(v.Collateral, amount)
		if err := t.ledger.Update(v); err != nil {
			return err
		}
		t.events.Emit(events.CollateralMoved{Owner: v.Owner, VaultID: v.ID, Amount: amount, Collateral: v.Collateral})
		out = v.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// WithdrawCollateral releases collateral to the owner. A vault with liability
// must still satisfy the collateralization ratio afterwards.
func (e *Engine) WithdrawCollateral(caller, owner crypto.Address, id uint64, amount *big.Int) (*vault.Vault, error) {
	var out *vault.Vault
	err := e.execute(OpWithdraw, func(t *txn) error {
		v, err := t.ownedVault(caller, owner, id)
		if err != nil {
			return err
		}
		if err := t.guard(params.ActionWithdraw); err != nil {
			return err
		}
		if err := requirePositive(amount); err != nil {
			return err
		}
		if amount.Cmp(v.Collateral) > 0 {
			return fmt.Errorf("%w: withdraw %s exceeds collateral %s", cdperrors.ErrInsufficientBalance, amount, v.Collateral)
		}
		remaining := new(big.Int).Sub(v.Collateral, amount)
		if v.Liability.Sign() > 0 {
			obs, err := t.latestPrice(e.cfg.MaxPriceAge)
			if err != nil {
				return err
			}
			risk, err := t.params.Params()
			if err != nil {
				return err
			}
			if maxMintable(remaining, obs.Price, risk.CollateralizationRatio).Cmp(v.Liability) < 0 {
				return cdperrors.ErrUndercollateralized
			}
		}
		v.Collateral = remaining
		if err := t.ledger.Update(v); err != nil {
			return err
		}
		t.events.Emit(events.CollateralMoved{Owner: v.Owner, VaultID: v.ID, Amount: amount, Collateral: v.Collateral, Withdrawal: true})
		out = v.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Mint increases the vault's liability and the global supply by amount. The
// checks run in a fixed order so the same inputs always surface the same
// error: id, ownership, pause, amount, price, collateralization, then the
// mint cap.
func (e *Engine) Mint(caller, owner crypto.Address, id uint64, amount *big.Int) (*MintReceipt, error) {
	var receipt *MintReceipt
	err := e.execute(OpMint, func(t *txn) error {
		v, err := t.ownedVault(caller, owner, id)
		if err != nil {
			return err
		}
		if err := t.guard(params.ActionMint); err != nil {
			return err
		}
		if err := requirePositive(amount); err != nil {
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
		liability := new(big.Int).Add(v.Liability, amount)
		limit := maxMintable(v.Collateral, obs.Price, risk.CollateralizationRatio)
		if limit.Cmp(liability) < 0 {
			return fmt.Errorf("%w: max mintable %s, requested liability %s", cdperrors.ErrUndercollateralized, limit, liability)
		}
		if liability.Cmp(risk.MaxMintLimit) > 0 {
			return fmt.Errorf("%w: liability %s exceeds cap %s", cdperrors.ErrMintLimitExceeded, liability, risk.MaxMintLimit)
		}
		v.Liability = liability
		if err := t.ledger.Update(v); err != nil {
			return err
		}
		if err := t.increaseSupply(amount, events.SupplyReasonMint); err != nil {
			return err
		}
		fee := feeFor(amount, risk.MintFeeBps)
		t.events.Emit(events.LiabilityMinted{
			Owner:     v.Owner,
			VaultID:   v.ID,
			Amount:    amount,
			Fee:       fee,
			Liability: v.Liability,
			Price:     obs.Price,
		})
		receipt = &MintReceipt{
			VaultID:     v.ID,
			Owner:       v.Owner,
			Amount:      cloneAmount(amount),
			Fee:         fee,
			Liability:   cloneAmount(v.Liability),
			MaxMintable: limit,
			Price:       cloneAmount(obs.Price),
			Supply:      cloneAmount(t.supply),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// Redeem burns liability from the vault. Collateral is left untouched and a
// vault redeemed to zero stays open.
func (e *Engine) Redeem(caller, owner crypto.Address, id uint64, amount *big.Int) (*RedeemReceipt, error) {
	var receipt *RedeemReceipt
	err := e.execute(OpRedeem, func(t *txn) error {
		v, err := t.ownedVault(caller, owner, id)
		if err != nil {
			return err
		}
		if err := t.guard(params.ActionRedeem); err != nil {
			return err
		}
		if err := requirePositive(amount); err != nil {
			return err
		}
		if amount.Cmp(v.Liability) > 0 {
			return fmt.Errorf("%w: redeem %s exceeds liability %s", cdperrors.ErrInsufficientBalance, amount, v.Liability)
		}
		risk, err := t.params.Params()
		if err != nil {
			return err
		}
		v.Liability = new(big.Int).Sub(v.Liability, amount)
		if err := t.ledger.Update(v); err != nil {
			return err
		}
		if err := t.decreaseSupply(amount, events.SupplyReasonRedeem); err != nil {
			return err
		}
		fee := feeFor(amount, risk.RedemptionFeeBps)
		t.events.Emit(events.LiabilityRedeemed{
			Owner:     v.Owner,
			VaultID:   v.ID,
			Amount:    amount,
			Fee:       fee,
			Liability: v.Liability,
		})
		receipt = &RedeemReceipt{
			VaultID:   v.ID,
			Owner:     v.Owner,
			Amount:    cloneAmount(amount),
			Fee:       fee,
			Liability: cloneAmount(v.Liability),
			Supply:    cloneAmount(t.supply),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}
