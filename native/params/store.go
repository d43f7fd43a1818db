package params

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"

	cdperrors "vaultchain/core/errors"
	"vaultchain/core/events"
	"vaultchain/crypto"
)

// StoreState captures the subset of state capabilities required by the
// parameter helpers.
type StoreState interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

// Store provides typed accessors for governance-controlled parameters.
type Store struct {
	state      StoreState
	governance crypto.Address
	emitter    events.Emitter
}

// NewStore constructs a parameter store wrapper using the supplied state
// backend. Only governance may mutate parameters.
func NewStore(state StoreState, governance crypto.Address) *Store {
	return &Store{state: state, governance: governance, emitter: events.NoopEmitter{}}
}

// SetEmitter configures the emitter receiving parameter update events.
func (s *Store) SetEmitter(emitter events.Emitter) {
	if s == nil {
		return
	}
	if emitter == nil {
		s.emitter = events.NoopEmitter{}
		return
	}
	s.emitter = emitter
}

func (s *Store) withState() (StoreState, error) {
	if s == nil || s.state == nil {
		return nil, fmt.Errorf("params: state not configured")
	}
	return s.state, nil
}

func (s *Store) requireGovernance(caller crypto.Address) error {
	if s.governance.IsZero() || caller.IsZero() || !caller.Equal(s.governance) {
		return cdperrors.ErrNotAuthorized
	}
	return nil
}

// Params loads the persisted risk parameters, falling back to defaults when
// governance has never written them.
func (s *Store) Params() (RiskParameters, error) {
	state, err := s.withState()
	if err != nil {
		return RiskParameters{}, err
	}
	var stored storedRiskParameters
	ok, err := state.KVGet([]byte(ParamsKeyRisk), &stored)
	if err != nil {
		return RiskParameters{}, fmt.Errorf("params: load risk parameters: %w", err)
	}
	if !ok {
		return DefaultRiskParameters(), nil
	}
	return stored.toParameters(), nil
}

// Initialize writes a full parameter set without a governance check. It is
// used by genesis only.
func (s *Store) Initialize(p RiskParameters) error {
	state, err := s.withState()
	if err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		return fmt.Errorf("%w: %v", cdperrors.ErrInvalidParameters, err)
	}
	return state.KVPut([]byte(ParamsKeyRisk), newStoredRiskParameters(p))
}

// SetCollateralizationRatio updates the minimum ratio required to mint. The
// new value must stay above the liquidation threshold.
func (s *Store) SetCollateralizationRatio(caller crypto.Address, value uint64) error {
	return s.update(caller, NameCollateralizationRatio, func(p *RiskParameters) (string, string, error) {
		if err := checkRatio(NameCollateralizationRatio, value); err != nil {
			return "", "", err
		}
		if p.LiquidationThreshold >= value {
			return "", "", fmt.Errorf("collateralization ratio %d must exceed liquidation threshold %d", value, p.LiquidationThreshold)
		}
		prev := p.CollateralizationRatio
		p.CollateralizationRatio = value
		return formatUint(prev), formatUint(value), nil
	})
}

// SetLiquidationThreshold updates the ratio below which vaults may be seized.
func (s *Store) SetLiquidationThreshold(caller crypto.Address, value uint64) error {
	return s.update(caller, NameLiquidationThreshold, func(p *RiskParameters) (string, string, error) {
		if err := checkThreshold(value, p.CollateralizationRatio); err != nil {
			return "", "", err
		}
		prev := p.LiquidationThreshold
		p.LiquidationThreshold = value
		return formatUint(prev), formatUint(value), nil
	})
}

// SetMintFeeBps updates the fee reported on mints.
func (s *Store) SetMintFeeBps(caller crypto.Address, value uint64) error {
	return s.update(caller, NameMintFeeBps, func(p *RiskParameters) (string, string, error) {
		if err := checkFee(NameMintFeeBps, value); err != nil {
			return "", "", err
		}
		prev := p.MintFeeBps
		p.MintFeeBps = value
		return formatUint(prev), formatUint(value), nil
	})
}

// SetRedemptionFeeBps updates the fee reported on redemptions.
func (s *Store) SetRedemptionFeeBps(caller crypto.Address, value uint64) error {
	return s.update(caller, NameRedemptionFeeBps, func(p *RiskParameters) (string, string, error) {
		if err := checkFee(NameRedemptionFeeBps, value); err != nil {
			return "", "", err
		}
		prev := p.RedemptionFeeBps
		p.RedemptionFeeBps = value
		return formatUint(prev), formatUint(value), nil
	})
}

// SetMaxMintLimit updates the per-vault liability cap.
func (s *Store) SetMaxMintLimit(caller crypto.Address, value *big.Int) error {
	return s.update(caller, NameMaxMintLimit, func(p *RiskParameters) (string, string, error) {
		if err := checkMintLimit(value); err != nil {
			return "", "", err
		}
		prev := "0"
		if p.MaxMintLimit != nil {
			prev = p.MaxMintLimit.String()
		}
		p.MaxMintLimit = new(big.Int).Set(value)
		return prev, value.String(), nil
	})
}

// Set dispatches a named parameter update. Ratio and fee values must fit in
// 64 bits.
func (s *Store) Set(caller crypto.Address, name string, value *big.Int) error {
	if name == NameMaxMintLimit {
		return s.SetMaxMintLimit(caller, value)
	}
	if value == nil || value.Sign() < 0 || !value.IsUint64() {
		if err := s.requireGovernance(caller); err != nil {
			return err
		}
		return fmt.Errorf("%w: %s value out of range", cdperrors.ErrInvalidParameters, name)
	}
	v := value.Uint64()
	switch name {
	case NameCollateralizationRatio:
		return s.SetCollateralizationRatio(caller, v)
	case NameLiquidationThreshold:
		return s.SetLiquidationThreshold(caller, v)
	case NameMintFeeBps:
		return s.SetMintFeeBps(caller, v)
	case NameRedemptionFeeBps:
		return s.SetRedemptionFeeBps(caller, v)
	default:
		if err := s.requireGovernance(caller); err != nil {
			return err
		}
		return fmt.Errorf("%w: unknown parameter %q", cdperrors.ErrInvalidParameters, name)
	}
}

func (s *Store) update(caller crypto.Address, name string, mutate func(*RiskParameters) (string, string, error)) error {
	state, err := s.withState()
	if err != nil {
		return err
	}
	if err := s.requireGovernance(caller); err != nil {
		return err
	}
	current, err := s.Params()
	if err != nil {
		return err
	}
	prev, next, err := mutate(&current)
	if err != nil {
		return fmt.Errorf("%w: %v", cdperrors.ErrInvalidParameters, err)
	}
	if err := state.KVPut([]byte(ParamsKeyRisk), newStoredRiskParameters(current)); err != nil {
		return fmt.Errorf("params: persist risk parameters: %w", err)
	}
	s.emitter.Emit(events.RiskParameterUpdated{
		Governance: caller,
		Name:       name,
		Previous:   prev,
		Value:      next,
	})
	return nil
}

// SetPauses persists the supplied pause configuration. Values are marshalled
// as JSON to align with governance proposal payloads.
func (s *Store) SetPauses(caller crypto.Address, pauses Pauses) error {
	if _, err := s.withState(); err != nil {
		return err
	}
	if err := s.requireGovernance(caller); err != nil {
		return err
	}
	if err := s.writePauses(pauses); err != nil {
		return err
	}
	s.emitter.Emit(events.PausesUpdated{Governance: caller, Paused: pauses.Active()})
	return nil
}

// InitializePauses writes the pause configuration without a governance check.
// It is used by genesis only.
func (s *Store) InitializePauses(pauses Pauses) error {
	if _, err := s.withState(); err != nil {
		return err
	}
	return s.writePauses(pauses)
}

func (s *Store) writePauses(pauses Pauses) error {
	encoded, err := json.Marshal(pauses)
	if err != nil {
		return fmt.Errorf("params: encode pauses: %w", err)
	}
	return s.state.KVPut([]byte(ParamsKeyPauses), encoded)
}

// Pauses loads the persisted pause configuration. When unset, a zero-value
// configuration is returned.
func (s *Store) Pauses() (Pauses, error) {
	state, err := s.withState()
	if err != nil {
		return Pauses{}, err
	}
	var raw []byte
	ok, err := state.KVGet([]byte(ParamsKeyPauses), &raw)
	if err != nil {
		return Pauses{}, err
	}
	if !ok || len(bytes.TrimSpace(raw)) == 0 {
		return Pauses{}, nil
	}
	var pauses Pauses
	if err := json.Unmarshal(raw, &pauses); err != nil {
		return Pauses{}, fmt.Errorf("params: decode pauses: %w", err)
	}
	return pauses, nil
}

func formatUint(v uint64) string {
	return strconv.FormatUint(v, 10)
}
