package observability

import (
	"math/big"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCDPMetricsRecordsOperations(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCDPMetrics(reg)

	m.ObserveOperation("mint", "accepted")
	m.ObserveOperation("MINT", "Accepted")
	m.ObserveOperation("mint", "undercollateralized")
	m.ObserveOperation("", "")

	require.Equal(t, 2.0, testutil.ToFloat64(m.operations.WithLabelValues("mint", "accepted")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("mint", "undercollateralized")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("unknown", "unknown")))
}

func TestCDPMetricsGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCDPMetrics(reg)

	m.RecordSupply(big.NewInt(333333))
	m.RecordPrice(big.NewInt(50000), 1_700_000_000)
	require.Equal(t, 333333.0, testutil.ToFloat64(m.supply))
	require.Equal(t, 50000.0, testutil.ToFloat64(m.price))
	require.Equal(t, 1.7e9, testutil.ToFloat64(m.priceTimestamp))

	m.RecordSupply(nil)
	require.Zero(t, testutil.ToFloat64(m.supply))

	count, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	require.Equal(t, 3, count)
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *CDPMetrics
	m.ObserveOperation("mint", "accepted")
	m.RecordSupply(big.NewInt(1))
	m.RecordPrice(big.NewInt(1), 1)

	var e *EventMetrics
	e.RecordEvent("vault.minted")
	e.RecordFailure()
}

func TestEventMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewEventMetrics(reg)
	m.RecordEvent("Vault.Minted")
	m.RecordEvent(" vault.minted ")
	m.RecordFailure()
	require.Equal(t, 2.0, testutil.ToFloat64(m.recorded.WithLabelValues("vault.minted")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.failures))
}

func TestBigToFloat(t *testing.T) {
	huge := new(big.Int).Lsh(big.NewInt(1), 2000)
	require.Zero(t, bigToFloat(huge))
	require.Equal(t, 42.0, bigToFloat(big.NewInt(42)))
}
