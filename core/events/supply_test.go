package events

import (
	"math/big"
	"testing"
)

func TestLiabilitySupplyEvent(t *testing.T) {
	evt := LiabilitySupply{
		Total:  big.NewInt(5000),
		Delta:  big.NewInt(-250),
		Reason: SupplyReasonRedeem,
	}.Event()
	if evt == nil {
		t.Fatalf("expected event")
	}
	if evt.Type != TypeLiabilitySupply {
		t.Fatalf("unexpected type: %s", evt.Type)
	}
	if evt.Attributes["total"] != "5000" || evt.Attributes["delta"] != "-250" {
		t.Fatalf("unexpected attrs: %+v", evt.Attributes)
	}
	if evt.Attributes["reason"] != SupplyReasonRedeem {
		t.Fatalf("unexpected reason: %s", evt.Attributes["reason"])
	}
}

func TestLiabilitySupplyDefaultsTotal(t *testing.T) {
	evt := LiabilitySupply{}.Event()
	if evt.Attributes["total"] != "0" {
		t.Fatalf("expected zero total, got %q", evt.Attributes["total"])
	}
	if _, ok := evt.Attributes["delta"]; ok {
		t.Fatalf("delta should be omitted when unset")
	}
}
