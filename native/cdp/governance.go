package cdp

import (
	"errors"
	"fmt"
	"math/big"

	"vaultchain/core/state"
	"vaultchain/crypto"
	"vaultchain/native/oracle"
	"vaultchain/native/params"
)

// ErrAlreadyInitialised is returned when genesis runs against a populated store.
var ErrAlreadyInitialised = errors.New("cdp: state already initialised")

// Genesis seeds a fresh store.
type Genesis struct {
	Params  params.RiskParameters
	Pauses  params.Pauses
	Oracles []crypto.Address
}

// InitGenesis writes the schema version, risk parameters, pauses and initial
// oracle set in one transaction.
func (e *Engine) InitGenesis(g Genesis) error {
	return e.execute(OpGenesis, func(t *txn) error {
		initialised, err := e.state.EnsureStateVersion()
		if err != nil {
			return err
		}
		if initialised {
			return ErrAlreadyInitialised
		}
		if err := t.tx.SetStateVersion(state.StateVersion); err != nil {
			return err
		}
		if err := t.params.Initialize(g.Params); err != nil {
			return err
		}
		if err := t.params.InitializePauses(g.Pauses); err != nil {
			return err
		}
		for _, member := range g.Oracles {
			if err := t.oracle.Authorize(e.cfg.Governance, member); err != nil {
				return fmt.Errorf("cdp: genesis oracle %s: %w", member, err)
			}
		}
		return nil
	})
}

// AuthorizeOracle grants publishing rights. Governance only.
func (e *Engine) AuthorizeOracle(caller, candidate crypto.Address) error {
	return e.execute(OpAuthorize, func(t *txn) error {
		return t.oracle.Authorize(caller, candidate)
	})
}

// RevokeOracle withdraws publishing rights. Governance only.
func (e *Engine) RevokeOracle(caller, member crypto.Address) error {
	return e.execute(OpRevoke, func(t *txn) error {
		return t.oracle.Revoke(caller, member)
	})
}

// SubmitPrice records a new latest observation from an authorised oracle.
func (e *Engine) SubmitPrice(caller crypto.Address, price *big.Int, timestamp uint64) error {
	return e.execute(OpSubmitPrice, func(t *txn) error {
		if err := t.oracle.SubmitPrice(caller, price, timestamp); err != nil {
			return err
		}
		t.price = &oracle.Observation{Price: new(big.Int).Set(price), Timestamp: timestamp, Oracle: caller}
		return nil
	})
}

// SetCollateralizationRatio updates the minimum ratio required to mint.
func (e *Engine) SetCollateralizationRatio(caller crypto.Address, value uint64) error {
	return e.execute(OpSetParam, func(t *txn) error {
		return t.params.SetCollateralizationRatio(caller, value)
	})
}

// SetLiquidationThreshold updates the ratio below which vaults are seized.
func (e *Engine) SetLiquidationThreshold(caller crypto.Address, value uint64) error {
	return e.execute(OpSetParam, func(t *txn) error {
		return t.params.SetLiquidationThreshold(caller, value)
	})
}

// SetMintFeeBps updates the reported mint fee.
func (e *Engine) SetMintFeeBps(caller crypto.Address, value uint64) error {
	return e.execute(OpSetParam, func(t *txn) error {
		return t.params.SetMintFeeBps(caller, value)
	})
}

// SetRedemptionFeeBps updates the reported redemption fee.
func (e *Engine) SetRedemptionFeeBps(caller crypto.Address, value uint64) error {
	return e.execute(OpSetParam, func(t *txn) error {
		return t.params.SetRedemptionFeeBps(caller, value)
	})
}

// SetMaxMintLimit updates the per-vault liability cap.
func (e *Engine) SetMaxMintLimit(caller crypto.Address, value *big.Int) error {
	return e.execute(OpSetParam, func(t *txn) error {
		return t.params.SetMaxMintLimit(caller, value)
	})
}

// SetParam updates a parameter by name.
func (e *Engine) SetParam(caller crypto.Address, name string, value *big.Int) error {
	return e.execute(OpSetParam, func(t *txn) error {
		return t.params.Set(caller, name, value)
	})
}

// SetPauses replaces the action pause configuration.
func (e *Engine) SetPauses(caller crypto.Address, pauses params.Pauses) error {
	return e.execute(OpSetPauses, func(t *txn) error {
		return t.params.SetPauses(caller, pauses)
	})
}
