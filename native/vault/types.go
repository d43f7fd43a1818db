package vault

import (
	"math/big"

	"github.com/holiman/uint256"

	cdperrors "vaultchain/core/errors"
	"vaultchain/crypto"
)

// MaxVaultID is the last id the sequence may issue.
const MaxVaultID uint64 = ^uint64(0) - 1

// Vault pairs the collateral locked by an owner with the liability minted
// against it. Amounts are in the smallest unit of their asset.
type Vault struct {
	// Owner is the only identity allowed to mint, redeem or move collateral.
	Owner crypto.Address
	// ID is the protocol-wide sequence number assigned at creation.
	ID uint64
	// Collateral is the amount of the collateral asset locked in the vault.
	Collateral *big.Int
	// Liability is the amount of the pegged token minted against the vault.
	Liability *big.Int
	// CreatedAt is the logical timestamp recorded when the vault was opened.
	CreatedAt uint64
}

// Clone returns a deep copy of the vault.
func (v *Vault) Clone() *Vault {
	if v == nil {
		return nil
	}
	out := &Vault{Owner: v.Owner, ID: v.ID, CreatedAt: v.CreatedAt}
	out.Collateral = copyAmount(v.Collateral)
	out.Liability = copyAmount(v.Liability)
	return out
}

type storedVault struct {
	Owner      []byte
	ID         uint64
	Collateral *big.Int
	Liability  *big.Int
	CreatedAt  uint64
}

func newStoredVault(v *Vault) storedVault {
	return storedVault{
		Owner:      append([]byte(nil), v.Owner.Bytes()...),
		ID:         v.ID,
		Collateral: copyAmount(v.Collateral),
		Liability:  copyAmount(v.Liability),
		CreatedAt:  v.CreatedAt,
	}
}

func (s storedVault) toVault() (*Vault, error) {
	owner, err := crypto.AddressFromBytes(s.Owner)
	if err != nil {
		return nil, err
	}
	return &Vault{
		Owner:      owner,
		ID:         s.ID,
		Collateral: copyAmount(s.Collateral),
		Liability:  copyAmount(s.Liability),
		CreatedAt:  s.CreatedAt,
	}, nil
}

func copyAmount(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

// CheckAmount rejects nil, negative and wider than 256-bit amounts.
func CheckAmount(v *big.Int) error {
	if v == nil || v.Sign() < 0 {
		return cdperrors.ErrInvalidAmount
	}
	if _, overflow := uint256.FromBig(v); overflow {
		return cdperrors.ErrAmountOverflow
	}
	return nil
}
