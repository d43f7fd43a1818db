package observability

import (
	"context"
	"math"
	"math/big"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const namespace = "vaultchain"

// CDPMetrics records engine activity. It satisfies the engine's metrics hook.
type CDPMetrics struct {
	operations     *prometheus.CounterVec
	supply         prometheus.Gauge
	price          prometheus.Gauge
	priceTimestamp prometheus.Gauge

	otelOperations metric.Int64Counter
}

var (
	cdpMetricsOnce sync.Once
	cdpRegistry    *CDPMetrics
)

// CDP returns the lazily-initialised metrics registered against the default
// Prometheus registerer and the global OpenTelemetry meter provider.
func CDP() *CDPMetrics {
	cdpMetricsOnce.Do(func() {
		cdpRegistry = NewCDPMetrics(prometheus.DefaultRegisterer)
	})
	return cdpRegistry
}

// NewCDPMetrics builds a metrics set bound to reg.
func NewCDPMetrics(reg prometheus.Registerer) *CDPMetrics {
	m := &CDPMetrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cdp",
			Name:      "operations_total",
			Help:      "Engine operations segmented by operation and outcome kind.",
		}, []string{"op", "outcome"}),
		supply: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cdp",
			Name:      "liability_supply",
			Help:      "Total outstanding liability token supply.",
		}),
		price: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "oracle",
			Name:      "price",
			Help:      "Latest accepted collateral price.",
		}),
		priceTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "oracle",
			Name:      "price_timestamp_seconds",
			Help:      "Timestamp attached to the latest accepted price.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.operations, m.supply, m.price, m.priceTimestamp)
	}
	counter, err := otel.Meter("vaultchain/cdp").Int64Counter(
		"vaultchain.cdp.operations",
		metric.WithDescription("Engine operations segmented by operation and outcome kind."),
	)
	if err == nil {
		m.otelOperations = counter
	}
	return m
}

// ObserveOperation counts an operation attempt and its outcome.
func (m *CDPMetrics) ObserveOperation(op, outcome string) {
	if m == nil {
		return
	}
	op = normalizeLabel(op)
	outcome = normalizeLabel(outcome)
	m.operations.WithLabelValues(op, outcome).Inc()
	if m.otelOperations != nil {
		m.otelOperations.Add(context.Background(), 1, metric.WithAttributes(
			attribute.String("op", op),
			attribute.String("outcome", outcome),
		))
	}
}

// RecordSupply publishes the committed liability supply.
func (m *CDPMetrics) RecordSupply(total *big.Int) {
	if m == nil {
		return
	}
	m.supply.Set(bigToFloat(total))
}

// RecordPrice publishes the latest accepted oracle observation.
func (m *CDPMetrics) RecordPrice(price *big.Int, timestamp uint64) {
	if m == nil {
		return
	}
	m.price.Set(bigToFloat(price))
	m.priceTimestamp.Set(float64(timestamp))
}

func normalizeLabel(value string) string {
	trimmed := strings.TrimSpace(strings.ToLower(value))
	if trimmed == "" {
		return "unknown"
	}
	return trimmed
}

func bigToFloat(value *big.Int) float64 {
	if value == nil {
		return 0
	}
	floatVal, acc := new(big.Float).SetInt(value).Float64()
	if acc != big.Exact {
		if math.IsNaN(floatVal) || math.IsInf(floatVal, 0) {
			return 0
		}
	}
	return floatVal
}
