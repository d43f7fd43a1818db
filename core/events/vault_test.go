package events

import (
	"bytes"
	"math/big"
	"testing"

	"vaultchain/crypto"
)

func testAddress(b byte) crypto.Address {
	return crypto.NewAddress(crypto.VaultPrefix, bytes.Repeat([]byte{b}, crypto.AddressLength))
}

func TestVaultLiquidatedEvent(t *testing.T) {
	owner := testAddress(0x01)
	keeper := testAddress(0x02)
	evt := VaultLiquidated{
		Owner:      owner,
		Liquidator: keeper,
		VaultID:    9,
		Seized:     big.NewInt(1000),
		Burned:     big.NewInt(400),
		Ratio:      big.NewInt(124),
		Price:      big.NewInt(50),
	}.Event()
	if evt.Type != TypeVaultLiquidated {
		t.Fatalf("unexpected type %s", evt.Type)
	}
	if evt.Attributes["owner"] != owner.String() || evt.Attributes["liquidator"] != keeper.String() {
		t.Fatalf("unexpected parties: %+v", evt.Attributes)
	}
	if evt.Attributes["vaultId"] != "9" || evt.Attributes["burned"] != "400" || evt.Attributes["ratio"] != "124" {
		t.Fatalf("unexpected attrs: %+v", evt.Attributes)
	}
}

func TestCollateralMovedType(t *testing.T) {
	deposit := CollateralMoved{VaultID: 1, Amount: big.NewInt(5)}
	withdraw := CollateralMoved{VaultID: 1, Amount: big.NewInt(5), Withdrawal: true}
	if deposit.EventType() != TypeCollateralDeposited || withdraw.EventType() != TypeCollateralWithdrawn {
		t.Fatalf("unexpected types %s / %s", deposit.EventType(), withdraw.EventType())
	}
	if withdraw.Event().Attributes["collateral"] != "0" {
		t.Fatalf("nil collateral should render as zero")
	}
}

type recordingEmitter struct {
	seen []string
}

func (r *recordingEmitter) Emit(evt Event) { r.seen = append(r.seen, evt.EventType()) }

func TestBufferFlushesInOrder(t *testing.T) {
	var buf Buffer
	buf.Emit(VaultCreated{VaultID: 1})
	buf.Emit(LiabilityMinted{VaultID: 1})
	buf.Emit(nil)
	if rendered := buf.Render(); len(rendered) != 2 || rendered[1].Type != TypeLiabilityMinted {
		t.Fatalf("unexpected render %+v", rendered)
	}
	sink := &recordingEmitter{}
	buf.FlushTo(sink)
	if len(sink.seen) != 2 || sink.seen[0] != TypeVaultCreated {
		t.Fatalf("unexpected flush order %v", sink.seen)
	}
	if len(buf.Events()) != 0 {
		t.Fatalf("buffer should be empty after flush")
	}
}
