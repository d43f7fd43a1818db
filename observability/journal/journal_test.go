package journal

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"vaultchain/core/events"
	"vaultchain/core/state"
	"vaultchain/core/types"
	"vaultchain/crypto"
	"vaultchain/native/cdp"
	"vaultchain/observability"
	"vaultchain/storage"
)

func newTestJournal(t *testing.T) *Journal {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	j, err := New(db)
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func addr(b byte) crypto.Address {
	return crypto.NewAddress(crypto.VaultPrefix, bytes.Repeat([]byte{b}, crypto.AddressLength))
}

func TestAppendAndHistory(t *testing.T) {
	j := newTestJournal(t)
	stamp := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	j.SetClock(func() time.Time { return stamp })
	reg := prometheus.NewRegistry()
	metrics := observability.NewEventMetrics(reg)
	j.SetMetrics(metrics)

	alice := addr(0x01)
	first := []*types.Event{
		events.VaultCreated{Owner: alice, VaultID: 1, Collateral: big.NewInt(1000), CreatedAt: 10}.Event(),
		nil,
	}
	second := []*types.Event{
		events.LiabilityMinted{Owner: alice, VaultID: 1, Amount: big.NewInt(5), Fee: big.NewInt(0), Liability: big.NewInt(5), Price: big.NewInt(50000)}.Event(),
		events.LiabilitySupply{Total: big.NewInt(5), Delta: big.NewInt(5), Reason: events.SupplyReasonMint}.Event(),
	}
	require.NoError(t, j.Append(context.Background(), first))
	require.NoError(t, j.Append(context.Background(), second))
	require.NoError(t, j.Append(context.Background(), nil))

	all, err := j.History(context.Background(), Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, []uint64{1, 2, 3}, []uint64{all[0].Seq, all[1].Seq, all[2].Seq})
	require.Equal(t, events.TypeVaultCreated, all[0].Event.Type)
	require.Equal(t, all[1].Batch, all[2].Batch)
	require.NotEqual(t, all[0].Batch, all[1].Batch)
	require.True(t, all[0].RecordedAt.Equal(stamp))

	byVault, err := j.History(context.Background(), Filter{VaultID: 1, Owner: alice.String()})
	require.NoError(t, err)
	require.Len(t, byVault, 2)

	minted, err := j.History(context.Background(), Filter{Type: events.TypeLiabilityMinted})
	require.NoError(t, err)
	require.Len(t, minted, 1)
	require.Equal(t, "5", minted[0].Event.Attributes["amount"])

	latest, err := j.History(context.Background(), Filter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, latest, 1)
	require.Equal(t, uint64(3), latest[0].Seq)

	series, err := testutil.GatherAndCount(reg, "vaultchain_events_recorded_total")
	require.NoError(t, err)
	require.Equal(t, 3, series)
}

func TestSequenceSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	j, err := Open(path)
	require.NoError(t, err)
	evt := &types.Event{Type: "oracle.price", Attributes: map[string]string{"price": "1"}}
	require.NoError(t, j.Append(context.Background(), []*types.Event{evt, evt}))
	require.NoError(t, j.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()
	require.NoError(t, reopened.Append(context.Background(), []*types.Event{evt}))
	entries, err := reopened.History(context.Background(), Filter{})
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, uint64(3), entries[2].Seq)
}

func TestHandlesShareSequence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	first, err := Open(path)
	require.NoError(t, err)
	defer first.Close()
	second, err := Open(path)
	require.NoError(t, err)
	defer second.Close()

	evt := &types.Event{Type: "oracle.price", Attributes: map[string]string{"price": "1"}}
	ctx := context.Background()
	require.NoError(t, first.Append(ctx, []*types.Event{evt}))
	require.NoError(t, second.Append(ctx, []*types.Event{evt, evt}))
	require.NoError(t, first.Append(ctx, []*types.Event{evt}))

	entries, err := second.History(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, entries, 4)
	for i, entry := range entries {
		require.Equal(t, uint64(i+1), entry.Seq)
	}
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open("  ")
	require.ErrorIs(t, err, ErrPathRequired)
}

func TestJournalRecordsEngineEvents(t *testing.T) {
	j := newTestJournal(t)
	gov, oracleAddr, alice := addr(0xAA), addr(0xBB), addr(0x01)

	engine := cdp.NewEngine(state.NewManager(storage.NewMemDB()), cdp.Config{Governance: gov})
	engine.SetEventSink(j)
	engine.SetClock(func() uint64 { return 100 })

	require.NoError(t, engine.AuthorizeOracle(gov, oracleAddr))
	require.NoError(t, engine.SubmitPrice(oracleAddr, big.NewInt(50000), 100))
	id, err := engine.CreateVault(alice, big.NewInt(1000))
	require.NoError(t, err)
	_, err = engine.Mint(alice, alice, id, big.NewInt(333334))
	require.Error(t, err)
	_, err = engine.Mint(alice, alice, id, big.NewInt(333333))
	require.NoError(t, err)

	entries, err := j.History(context.Background(), Filter{VaultID: id})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, events.TypeVaultCreated, entries[0].Event.Type)
	require.Equal(t, events.TypeLiabilityMinted, entries[1].Event.Type)

	supply, err := j.History(context.Background(), Filter{Type: events.TypeLiabilitySupply})
	require.NoError(t, err)
	require.Len(t, supply, 1)
	require.Equal(t, "333333", supply[0].Event.Attributes["total"])
}
