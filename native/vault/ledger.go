package vault

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"

	cdperrors "vaultchain/core/errors"
	"vaultchain/crypto"
)

var (
	errNilState = errors.New("vault: state not configured")
	// ErrSupplyUnderflow signals that a decrease would drive the global supply
	// negative. It indicates a broken ledger invariant, not bad input.
	ErrSupplyUnderflow = errors.New("vault: supply underflow")
	// ErrVaultExists is returned when inserting over a live record.
	ErrVaultExists = errors.New("vault: record already exists")
	// ErrIndexMismatch signals the id index and the record disagree.
	ErrIndexMismatch = errors.New("vault: index does not match record")
)

type ledgerState interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVDelete(key []byte) error
}

// Ledger is the only path through which vault records, the id sequence and
// the global liability supply are read or written. Every mutation validates
// the record before it is persisted.
type Ledger struct {
	state ledgerState
}

// NewLedger wraps the provided state backend.
func NewLedger(state ledgerState) *Ledger {
	return &Ledger{state: state}
}

func (l *Ledger) ensureState() error {
	if l == nil || l.state == nil {
		return errNilState
	}
	return nil
}

// LastID returns the most recently issued vault id, or zero before the first
// vault is created.
func (l *Ledger) LastID() (uint64, error) {
	if err := l.ensureState(); err != nil {
		return 0, err
	}
	var last uint64
	if _, err := l.state.KVGet(sequenceKey, &last); err != nil {
		return 0, fmt.Errorf("vault: load sequence: %w", err)
	}
	return last, nil
}

// NextID advances the sequence by exactly one and returns the new id. Ids are
// never reused, even after the vault holding one is liquidated.
func (l *Ledger) NextID() (uint64, error) {
	last, err := l.LastID()
	if err != nil {
		return 0, err
	}
	if last >= MaxVaultID {
		return 0, cdperrors.ErrVaultIDExhausted
	}
	next := last + 1
	if err := l.state.KVPut(sequenceKey, next); err != nil {
		return 0, fmt.Errorf("vault: persist sequence: %w", err)
	}
	return next, nil
}

// Issued reports whether id lies within the historical range 1..=LastID.
func (l *Ledger) Issued(id uint64) (bool, error) {
	last, err := l.LastID()
	if err != nil {
		return false, err
	}
	return id >= 1 && id <= last, nil
}

// Get loads the vault stored under (owner, id).
func (l *Ledger) Get(owner crypto.Address, id uint64) (*Vault, bool, error) {
	if err := l.ensureState(); err != nil {
		return nil, false, err
	}
	var stored storedVault
	ok, err := l.state.KVGet(vaultKey(owner, id), &stored)
	if err != nil {
		return nil, false, fmt.Errorf("vault: load record: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	v, err := stored.toVault()
	if err != nil {
		return nil, false, fmt.Errorf("vault: decode record: %w", err)
	}
	return v, true, nil
}

// Owner resolves the owner of a live vault through the id index.
func (l *Ledger) Owner(id uint64) (crypto.Address, bool, error) {
	if err := l.ensureState(); err != nil {
		return crypto.Address{}, false, err
	}
	var raw []byte
	ok, err := l.state.KVGet(indexKey(id), &raw)
	if err != nil {
		return crypto.Address{}, false, fmt.Errorf("vault: load index: %w", err)
	}
	if !ok {
		return crypto.Address{}, false, nil
	}
	owner, err := crypto.AddressFromBytes(raw)
	if err != nil {
		return crypto.Address{}, false, fmt.Errorf("vault: decode index: %w", err)
	}
	return owner, true, nil
}

// Insert stores a new vault. The id must already have been issued and must
// not refer to a live record.
func (l *Ledger) Insert(v *Vault) error {
	if err := l.ensureState(); err != nil {
		return err
	}
	if err := l.validate(v); err != nil {
		return err
	}
	if _, exists, err := l.Owner(v.ID); err != nil {
		return err
	} else if exists {
		return ErrVaultExists
	}
	if err := l.state.KVPut(indexKey(v.ID), append([]byte(nil), v.Owner.Bytes()...)); err != nil {
		return fmt.Errorf("vault: persist index: %w", err)
	}
	return l.put(v)
}

// Update overwrites a live vault. The owner and creation stamp are immutable.
func (l *Ledger) Update(v *Vault) error {
	if err := l.ensureState(); err != nil {
		return err
	}
	if err := l.validate(v); err != nil {
		return err
	}
	current, ok, err := l.Get(v.Owner, v.ID)
	if err != nil {
		return err
	}
	if !ok {
		return cdperrors.ErrVaultNotFound
	}
	if current.CreatedAt != v.CreatedAt {
		return fmt.Errorf("vault: creation stamp is immutable")
	}
	return l.put(v)
}

// Remove deletes a live vault together with its index entry.
func (l *Ledger) Remove(owner crypto.Address, id uint64) error {
	if err := l.ensureState(); err != nil {
		return err
	}
	indexed, ok, err := l.Owner(id)
	if err != nil {
		return err
	}
	if !ok {
		return cdperrors.ErrVaultNotFound
	}
	if !indexed.Equal(owner) {
		return ErrIndexMismatch
	}
	if err := l.state.KVDelete(vaultKey(owner, id)); err != nil {
		return fmt.Errorf("vault: delete record: %w", err)
	}
	if err := l.state.KVDelete(indexKey(id)); err != nil {
		return fmt.Errorf("vault: delete index: %w", err)
	}
	return nil
}

func (l *Ledger) put(v *Vault) error {
	if err := l.state.KVPut(vaultKey(v.Owner, v.ID), newStoredVault(v)); err != nil {
		return fmt.Errorf("vault: persist record: %w", err)
	}
	return nil
}

func (l *Ledger) validate(v *Vault) error {
	if v == nil {
		return fmt.Errorf("vault: nil record")
	}
	if v.Owner.IsZero() {
		return fmt.Errorf("%w: owner required", cdperrors.ErrInvalidParameters)
	}
	issued, err := l.Issued(v.ID)
	if err != nil {
		return err
	}
	if !issued {
		return cdperrors.ErrVaultIDOutOfRange
	}
	if err := CheckAmount(v.Collateral); err != nil {
		return err
	}
	return CheckAmount(v.Liability)
}

// ForEach visits every live vault in id order. Returning an error from fn
// stops the walk.
func (l *Ledger) ForEach(fn func(*Vault) error) error {
	last, err := l.LastID()
	if err != nil {
		return err
	}
	for id := uint64(1); id <= last; id++ {
		owner, ok, err := l.Owner(id)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		v, ok, err := l.Get(owner, id)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: id %d", ErrIndexMismatch, id)
		}
		if err := fn(v); err != nil {
			return err
		}
	}
	return nil
}

// Supply returns the global liability supply.
func (l *Ledger) Supply() (*big.Int, error) {
	if err := l.ensureState(); err != nil {
		return nil, err
	}
	total := new(big.Int)
	var stored *big.Int
	ok, err := l.state.KVGet(totalSupplyKey, &stored)
	if err != nil {
		return nil, fmt.Errorf("vault: load supply: %w", err)
	}
	if ok && stored != nil {
		total.Set(stored)
	}
	return total, nil
}

// IncreaseSupply adds amount to the global liability supply.
func (l *Ledger) IncreaseSupply(amount *big.Int) (*big.Int, error) {
	if err := CheckAmount(amount); err != nil {
		return nil, err
	}
	current, err := l.Supply()
	if err != nil {
		return nil, err
	}
	next, overflow := new(uint256.Int).AddOverflow(uint256.MustFromBig(current), uint256.MustFromBig(amount))
	if overflow {
		return nil, cdperrors.ErrAmountOverflow
	}
	return l.writeSupply(next.ToBig())
}

// DecreaseSupply subtracts amount from the global liability supply.
func (l *Ledger) DecreaseSupply(amount *big.Int) (*big.Int, error) {
	if err := CheckAmount(amount); err != nil {
		return nil, err
	}
	current, err := l.Supply()
	if err != nil {
		return nil, err
	}
	if current.Cmp(amount) < 0 {
		return nil, ErrSupplyUnderflow
	}
	return l.writeSupply(new(big.Int).Sub(current, amount))
}

func (l *Ledger) writeSupply(total *big.Int) (*big.Int, error) {
	if err := l.state.KVPut(totalSupplyKey, total); err != nil {
		return nil, fmt.Errorf("vault: persist supply: %w", err)
	}
	return new(big.Int).Set(total), nil
}
