package events

import (
	"strings"

	"vaultchain/core/types"
	"vaultchain/crypto"
)

const (
	TypeRiskParameterUpdated = "params.updated"
	TypePausesUpdated        = "params.pauses"
)

// RiskParameterUpdated records a single governance parameter change. Values
// are rendered as decimal strings so big caps and small ratios share a shape.
type RiskParameterUpdated struct {
	Governance crypto.Address
	Name       string
	Previous   string
	Value      string
}

func (RiskParameterUpdated) EventType() string { return TypeRiskParameterUpdated }

func (e RiskParameterUpdated) Event() *types.Event {
	return &types.Event{
		Type: TypeRiskParameterUpdated,
		Attributes: map[string]string{
			"governance": formatAddress(e.Governance),
			"name":       strings.TrimSpace(e.Name),
			"previous":   e.Previous,
			"value":      e.Value,
		},
	}
}

type PausesUpdated struct {
	Governance crypto.Address
	Paused     []string
}

func (PausesUpdated) EventType() string { return TypePausesUpdated }

func (e PausesUpdated) Event() *types.Event {
	return &types.Event{
		Type: TypePausesUpdated,
		Attributes: map[string]string{
			"governance": formatAddress(e.Governance),
			"paused":     strings.Join(e.Paused, ","),
		},
	}
}
