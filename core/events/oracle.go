package events

import (
	"math/big"

	"vaultchain/core/types"
	"vaultchain/crypto"
)

const (
	TypeOracleAuthorized = "oracle.authorized"
	TypeOracleRevoked    = "oracle.revoked"
	TypePriceSubmitted   = "oracle.price"
)

// OracleMembership is raised when governance grants or withdraws publishing rights.
type OracleMembership struct {
	Governance crypto.Address
	Oracle     crypto.Address
	Revoked    bool
}

func (e OracleMembership) EventType() string {
	if e.Revoked {
		return TypeOracleRevoked
	}
	return TypeOracleAuthorized
}

func (e OracleMembership) Event() *types.Event {
	return &types.Event{
		Type: e.EventType(),
		Attributes: map[string]string{
			"governance": formatAddress(e.Governance),
			"oracle":     formatAddress(e.Oracle),
		},
	}
}

type PriceSubmitted struct {
	Oracle    crypto.Address
	Price     *big.Int
	Timestamp uint64
}

func (PriceSubmitted) EventType() string { return TypePriceSubmitted }

func (e PriceSubmitted) Event() *types.Event {
	return &types.Event{
		Type: TypePriceSubmitted,
		Attributes: map[string]string{
			"oracle":    formatAddress(e.Oracle),
			"price":     formatAmount(e.Price),
			"timestamp": uintToString(e.Timestamp),
		},
	}
}
