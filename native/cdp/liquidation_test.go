package cdp

import (
	"errors"
	"math/big"
	"testing"

	cdperrors "vaultchain/core/errors"
	"vaultchain/crypto"
	"vaultchain/native/params"
)

func mintedVault(t *testing.T, te *testEngine) uint64 {
	t.Helper()
	te.withOracle(t, 50000)
	id := te.openVault(t, alice, 1000)
	if _, err := te.Mint(alice, alice, id, big.NewInt(333333)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	return id
}

func TestScenarioLiquidationBelowThreshold(t *testing.T) {
	te := newTestEngine(t)
	id := mintedVault(t, te)
	// floor(1000*41334/333333) = 124
	te.setPrice(t, 41334)

	h, err := te.Health(alice, id)
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	if h.Ratio.Int64() != 124 || !h.Liquidatable {
		t.Fatalf("unexpected health %+v", h)
	}

	receipt, err := te.Liquidate(bob, alice, id)
	if err != nil {
		t.Fatalf("liquidate: %v", err)
	}
	if receipt.Ratio.Int64() != 124 || receipt.Burned.Int64() != 333333 || receipt.Seized.Int64() != 1000 {
		t.Fatalf("unexpected receipt %+v", receipt)
	}
	if receipt.Supply.Sign() != 0 {
		t.Fatalf("expected supply to drop to zero, got %s", receipt.Supply)
	}
	if _, err := te.Vault(alice, id); !errors.Is(err, cdperrors.ErrVaultNotFound) {
		t.Fatalf("expected vault removed, got %v", err)
	}
	te.assertConserved(t)
}

func TestLiquidationAtThresholdNotAllowed(t *testing.T) {
	te := newTestEngine(t)
	id := mintedVault(t, te)
	// floor(1000*41667/333333) = 125
	te.setPrice(t, 41667)
	_, err := te.Liquidate(bob, alice, id)
	requireKind(t, err, cdperrors.KindLiquidationNotAllowed)

	_, err = te.Liquidate(bob, alice, id)
	requireKind(t, err, cdperrors.KindLiquidationNotAllowed)
	if _, err := te.Vault(alice, id); err != nil {
		t.Fatalf("vault should remain: %v", err)
	}
}

func TestScenarioOwnerCannotSelfLiquidate(t *testing.T) {
	te := newTestEngine(t)
	id := mintedVault(t, te)
	for _, price := range []int64{50000, 1} {
		te.setPrice(t, price)
		_, err := te.Liquidate(alice, alice, id)
		requireKind(t, err, cdperrors.KindUnauthorizedVaultAction)
	}
}

func TestZeroLiabilityNeverLiquidatable(t *testing.T) {
	te := newTestEngine(t)
	te.withOracle(t, 1)
	id := te.openVault(t, alice, 1)
	_, err := te.Liquidate(bob, alice, id)
	requireKind(t, err, cdperrors.KindLiquidationNotAllowed)

	h, err := te.Health(alice, id)
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	if h.Ratio != nil || h.Liquidatable {
		t.Fatalf("zero-liability vault reported %+v", h)
	}
}

func TestLiquidationNeedsPrice(t *testing.T) {
	te := newTestEngine(t)
	id := te.openVault(t, alice, 1000)
	_, err := te.Liquidate(bob, alice, id)
	requireKind(t, err, cdperrors.KindOraclePriceUnavailable)
}

func TestLiquidationValidatesIDBeforeCaller(t *testing.T) {
	te := newTestEngine(t)
	_, err := te.Liquidate(alice, alice, 7)
	if !errors.Is(err, cdperrors.ErrVaultIDOutOfRange) {
		t.Fatalf("expected ErrVaultIDOutOfRange, got %v", err)
	}
	id := te.openVault(t, alice, 1000)
	_, err = te.Liquidate(crypto.Address{}, alice, id)
	requireKind(t, err, cdperrors.KindNotAuthorized)
}

func TestLiquidationRespectsThresholdUpdates(t *testing.T) {
	te := newTestEngine(t)
	id := mintedVault(t, te)
	te.setPrice(t, 45000) // ratio 135
	_, err := te.Liquidate(bob, alice, id)
	requireKind(t, err, cdperrors.KindLiquidationNotAllowed)
	if err := te.SetLiquidationThreshold(governance, 140); err != nil {
		t.Fatalf("raise threshold: %v", err)
	}
	if _, err := te.Liquidate(bob, alice, id); err != nil {
		t.Fatalf("liquidate after threshold change: %v", err)
	}
}

func TestLiquidationPause(t *testing.T) {
	te := newTestEngine(t)
	id := mintedVault(t, te)
	te.setPrice(t, 1)
	if err := te.SetPauses(governance, params.Pauses{Liquidate: true}); err != nil {
		t.Fatalf("pause: %v", err)
	}
	_, err := te.Liquidate(bob, alice, id)
	requireKind(t, err, cdperrors.KindPaused)
}

func TestAuditCountsLiquidatableVaults(t *testing.T) {
	te := newTestEngine(t)
	id := mintedVault(t, te)
	other := te.openVault(t, bob, 10)
	if _, err := te.Mint(bob, bob, other, big.NewInt(1)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	te.setPrice(t, 30000)

	report, err := te.Audit()
	if err != nil {
		t.Fatalf("audit: %v", err)
	}
	if report.Vaults != 2 || report.Liquidatable != 1 || !report.Balanced || !report.PriceAvailable {
		t.Fatalf("unexpected report %+v", report)
	}
	if report.Supply.Int64() != 333334 || report.CollateralSum.Int64() != 1010 {
		t.Fatalf("unexpected totals %+v", report)
	}

	vaults, err := te.Vaults()
	if err != nil || len(vaults) != 2 || vaults[0].ID != id {
		t.Fatalf("unexpected vault listing %v err=%v", vaults, err)
	}
	v, err := te.VaultByID(other)
	if err != nil || !v.Owner.Equal(bob) {
		t.Fatalf("vault by id: %+v err=%v", v, err)
	}
}
