package params

import (
	"bytes"
	"errors"
	"math/big"
	"testing"

	cdperrors "vaultchain/core/errors"
	"vaultchain/core/events"
	"vaultchain/core/state"
	"vaultchain/crypto"
	"vaultchain/storage"
)

func addr(b byte) crypto.Address {
	return crypto.NewAddress(crypto.VaultPrefix, bytes.Repeat([]byte{b}, crypto.AddressLength))
}

func newTestStore(t *testing.T) (*Store, crypto.Address) {
	t.Helper()
	gov := addr(0xAA)
	tx := state.NewManager(storage.NewMemDB()).Begin()
	t.Cleanup(tx.Discard)
	return NewStore(tx, gov), gov
}

func TestParamsDefaultWhenUnset(t *testing.T) {
	store, _ := newTestStore(t)
	p, err := store.Params()
	if err != nil {
		t.Fatalf("params: %v", err)
	}
	if p.CollateralizationRatio != 150 || p.LiquidationThreshold != 125 {
		t.Fatalf("unexpected defaults %+v", p)
	}
	if p.MintFeeBps != 0 || p.RedemptionFeeBps != 0 {
		t.Fatalf("expected zero fees, got %+v", p)
	}
	if p.MaxMintLimit.Cmp(DefaultMaxMintLimit) != 0 {
		t.Fatalf("unexpected mint limit %s", p.MaxMintLimit)
	}
}

func TestSettersRequireGovernance(t *testing.T) {
	store, _ := newTestStore(t)
	intruder := addr(0x01)
	checks := map[string]error{
		"ratio":     store.SetCollateralizationRatio(intruder, 200),
		"threshold": store.SetLiquidationThreshold(intruder, 110),
		"mintFee":   store.SetMintFeeBps(intruder, 10),
		"redeemFee": store.SetRedemptionFeeBps(intruder, 10),
		"limit":     store.SetMaxMintLimit(intruder, big.NewInt(10)),
		"pauses":    store.SetPauses(intruder, Pauses{Mint: true}),
		"zero":      store.SetMintFeeBps(crypto.Address{}, 10),
	}
	for name, err := range checks {
		if !errors.Is(err, cdperrors.ErrNotAuthorized) {
			t.Fatalf("%s: expected ErrNotAuthorized, got %v", name, err)
		}
	}
}

func TestCollateralizationRatioBounds(t *testing.T) {
	store, gov := newTestStore(t)
	for _, bad := range []uint64{0, 99, 301, 1000} {
		if err := store.SetCollateralizationRatio(gov, bad); !cdperrors.Is(err, cdperrors.KindInvalidParameters) {
			t.Fatalf("ratio %d: expected InvalidParameters, got %v", bad, err)
		}
	}
	if err := store.SetCollateralizationRatio(gov, 300); err != nil {
		t.Fatalf("upper bound: %v", err)
	}
	p, _ := store.Params()
	if p.CollateralizationRatio != 300 {
		t.Fatalf("expected 300, got %d", p.CollateralizationRatio)
	}
}

func TestThresholdMustStayBelowRatio(t *testing.T) {
	store, gov := newTestStore(t)
	if err := store.SetLiquidationThreshold(gov, 150); !cdperrors.Is(err, cdperrors.KindInvalidParameters) {
		t.Fatalf("threshold equal to ratio: expected InvalidParameters, got %v", err)
	}
	if err := store.SetCollateralizationRatio(gov, 125); !cdperrors.Is(err, cdperrors.KindInvalidParameters) {
		t.Fatalf("ratio equal to threshold: expected InvalidParameters, got %v", err)
	}
	if err := store.SetLiquidationThreshold(gov, 100); err != nil {
		t.Fatalf("lower threshold: %v", err)
	}
	if err := store.SetCollateralizationRatio(gov, 101); err != nil {
		t.Fatalf("ratio above threshold: %v", err)
	}
	p, _ := store.Params()
	if p.CollateralizationRatio != 101 || p.LiquidationThreshold != 100 {
		t.Fatalf("unexpected params %+v", p)
	}
}

func TestRatioLowerBoundReachable(t *testing.T) {
	store, gov := newTestStore(t)
	if err := store.SetLiquidationThreshold(gov, 0); !cdperrors.Is(err, cdperrors.KindInvalidParameters) {
		t.Fatalf("zero threshold: expected InvalidParameters, got %v", err)
	}
	if err := store.SetLiquidationThreshold(gov, 90); err != nil {
		t.Fatalf("threshold below 100: %v", err)
	}
	if err := store.SetCollateralizationRatio(gov, 100); err != nil {
		t.Fatalf("ratio at lower bound: %v", err)
	}
	p, _ := store.Params()
	if p.CollateralizationRatio != 100 || p.LiquidationThreshold != 90 {
		t.Fatalf("unexpected params %+v", p)
	}
	if err := p.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestFeeAndLimitBounds(t *testing.T) {
	store, gov := newTestStore(t)
	if err := store.SetMintFeeBps(gov, MaxFeeBps+1); !cdperrors.Is(err, cdperrors.KindInvalidParameters) {
		t.Fatalf("expected fee bound error, got %v", err)
	}
	if err := store.SetRedemptionFeeBps(gov, MaxFeeBps); err != nil {
		t.Fatalf("max fee: %v", err)
	}
	if err := store.SetMaxMintLimit(gov, big.NewInt(0)); !cdperrors.Is(err, cdperrors.KindInvalidParameters) {
		t.Fatalf("expected zero limit rejection, got %v", err)
	}
	tooBig := new(big.Int).Add(MaxMintLimitCap, big.NewInt(1))
	if err := store.SetMaxMintLimit(gov, tooBig); !cdperrors.Is(err, cdperrors.KindInvalidParameters) {
		t.Fatalf("expected overflow rejection, got %v", err)
	}
	if err := store.SetMaxMintLimit(gov, MaxMintLimitCap); err != nil {
		t.Fatalf("cap limit: %v", err)
	}
	p, _ := store.Params()
	if p.MaxMintLimit.Cmp(MaxMintLimitCap) != 0 || p.RedemptionFeeBps != MaxFeeBps {
		t.Fatalf("unexpected params %+v", p)
	}
}

func TestFailedSetterLeavesParamsUntouched(t *testing.T) {
	store, gov := newTestStore(t)
	if err := store.SetMintFeeBps(gov, 25); err != nil {
		t.Fatalf("set fee: %v", err)
	}
	if err := store.SetMintFeeBps(gov, 5000); err == nil {
		t.Fatalf("expected failure")
	}
	p, _ := store.Params()
	if p.MintFeeBps != 25 {
		t.Fatalf("failed update modified state: %+v", p)
	}
}

func TestSetByName(t *testing.T) {
	store, gov := newTestStore(t)
	if err := store.Set(gov, NameMintFeeBps, big.NewInt(30)); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.Set(gov, "bogus", big.NewInt(1)); !cdperrors.Is(err, cdperrors.KindInvalidParameters) {
		t.Fatalf("expected unknown name rejection, got %v", err)
	}
	huge := new(big.Int).Lsh(big.NewInt(1), 70)
	if err := store.Set(gov, NameCollateralizationRatio, huge); !cdperrors.Is(err, cdperrors.KindInvalidParameters) {
		t.Fatalf("expected range rejection, got %v", err)
	}
	if err := store.Set(addr(0x02), NameMaxMintLimit, big.NewInt(5)); !errors.Is(err, cdperrors.ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
}

func TestParameterUpdateEmitsEvent(t *testing.T) {
	store, gov := newTestStore(t)
	var buf events.Buffer
	store.SetEmitter(&buf)
	if err := store.SetCollateralizationRatio(gov, 175); err != nil {
		t.Fatalf("set: %v", err)
	}
	rendered := buf.Render()
	if len(rendered) != 1 {
		t.Fatalf("expected one event, got %d", len(rendered))
	}
	attrs := rendered[0].Attributes
	if attrs["name"] != NameCollateralizationRatio || attrs["previous"] != "150" || attrs["value"] != "175" {
		t.Fatalf("unexpected attrs %+v", attrs)
	}
}

func TestPausesRoundTrip(t *testing.T) {
	store, gov := newTestStore(t)
	p, err := store.Pauses()
	if err != nil || p.IsPaused(ActionMint) {
		t.Fatalf("expected nothing paused, got %+v err=%v", p, err)
	}
	if err := store.SetPauses(gov, Pauses{Mint: true, Liquidate: true}); err != nil {
		t.Fatalf("set pauses: %v", err)
	}
	p, err = store.Pauses()
	if err != nil {
		t.Fatalf("pauses: %v", err)
	}
	if !p.IsPaused("MINT") || !p.IsPaused(ActionLiquidate) || p.IsPaused(ActionRedeem) {
		t.Fatalf("unexpected pauses %+v", p)
	}
	if active := p.Active(); len(active) != 2 || active[0] != ActionLiquidate {
		t.Fatalf("unexpected active list %v", active)
	}
}

func TestParsePauses(t *testing.T) {
	p, err := ParsePauses([]string{"mint", " Withdraw ", ""})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !p.Mint || !p.Withdraw || p.Redeem {
		t.Fatalf("unexpected pauses %+v", p)
	}
	if _, err := ParsePauses([]string{"swap"}); err == nil {
		t.Fatalf("expected unknown action error")
	}
}
