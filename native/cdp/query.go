package cdp

import (
	"errors"
	"math/big"

	cdperrors "vaultchain/core/errors"
	"vaultchain/crypto"
	"vaultchain/native/oracle"
	"vaultchain/native/params"
	"vaultchain/native/vault"
)

// Vault returns the vault stored under (owner, id).
func (e *Engine) Vault(owner crypto.Address, id uint64) (*vault.Vault, error) {
	var out *vault.Vault
	err := e.view(func(t *txn) error {
		v, err := t.loadVault(owner, id)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

// VaultByID resolves a live vault without knowing its owner.
func (e *Engine) VaultByID(id uint64) (*vault.Vault, error) {
	var out *vault.Vault
	err := e.view(func(t *txn) error {
		owner, ok, err := t.ledger.Owner(id)
		if err != nil {
			return err
		}
		if !ok {
			issued, err := t.ledger.Issued(id)
			if err != nil {
				return err
			}
			if !issued {
				return cdperrors.ErrVaultIDOutOfRange
			}
			return cdperrors.ErrVaultNotFound
		}
		v, err := t.loadVault(owner, id)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

// Vaults lists every live vault in id order.
func (e *Engine) Vaults() ([]*vault.Vault, error) {
	var out []*vault.Vault
	err := e.view(func(t *txn) error {
		return t.ledger.ForEach(func(v *vault.Vault) error {
			out = append(out, v)
			return nil
		})
	})
	return out, err
}

// LastVaultID returns the most recently issued vault id.
func (e *Engine) LastVaultID() (uint64, error) {
	var last uint64
	err := e.view(func(t *txn) error {
		var err error
		last, err = t.ledger.LastID()
		return err
	})
	return last, err
}

// TotalSupply returns the global liability supply.
func (e *Engine) TotalSupply() (*big.Int, error) {
	var total *big.Int
	err := e.view(func(t *txn) error {
		var err error
		total, err = t.ledger.Supply()
		return err
	})
	return total, err
}

// LatestPrice returns the latest accepted observation without any staleness
// filtering.
func (e *Engine) LatestPrice() (oracle.Observation, bool, error) {
	var (
		obs oracle.Observation
		ok  bool
	)
	err := e.view(func(t *txn) error {
		var err error
		obs, ok, err = t.oracle.LatestPrice()
		return err
	})
	return obs, ok, err
}

// IsOracle reports whether addr may submit prices.
func (e *Engine) IsOracle(addr crypto.Address) (bool, error) {
	var member bool
	err := e.view(func(t *txn) error {
		var err error
		member, err = t.oracle.IsOracle(addr)
		return err
	})
	return member, err
}

// Params returns the active risk parameters.
func (e *Engine) Params() (params.RiskParameters, error) {
	var out params.RiskParameters
	err := e.view(func(t *txn) error {
		var err error
		out, err = t.params.Params()
		return err
	})
	return out, err
}

// Pauses returns the action pause configuration.
func (e *Engine) Pauses() (params.Pauses, error) {
	var out params.Pauses
	err := e.view(func(t *txn) error {
		var err error
		out, err = t.params.Pauses()
		return err
	})
	return out, err
}

// Audit recomputes the liability sum over live vaults and compares it with
// the stored supply. When a price is available it also counts liquidatable
// vaults.
func (e *Engine) Audit() (*AuditReport, error) {
	report := &AuditReport{
		LiabilitySum:  big.NewInt(0),
		CollateralSum: big.NewInt(0),
	}
	err := e.view(func(t *txn) error {
		supply, err := t.ledger.Supply()
		if err != nil {
			return err
		}
		report.Supply = supply
		risk, err := t.params.Params()
		if err != nil {
			return err
		}
		obs, err := t.latestPrice(e.cfg.MaxPriceAge)
		switch {
		case err == nil:
			report.PriceAvailable = true
		case errors.Is(err, cdperrors.ErrOraclePriceUnavailable), errors.Is(err, cdperrors.ErrPriceStale):
		default:
			return err
		}
		return t.ledger.ForEach(func(v *vault.Vault) error {
			report.Vaults++
			report.LiabilitySum.Add(report.LiabilitySum, v.Liability)
			report.CollateralSum.Add(report.CollateralSum, v.Collateral)
			if report.PriceAvailable && assess(v.Collateral, v.Liability, obs.Price, risk).Liquidatable {
				report.Liquidatable++
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	report.Balanced = report.Supply.Cmp(report.LiabilitySum) == 0
	return report, nil
}
