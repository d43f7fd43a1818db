package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"vaultchain/cmd/internal/passphrase"
	"vaultchain/config"
	"vaultchain/core/state"
	"vaultchain/crypto"
	"vaultchain/native/cdp"
	"vaultchain/native/common"
	"vaultchain/observability"
	"vaultchain/observability/journal"
	"vaultchain/observability/logging"
	vaultotel "vaultchain/observability/otel"
	"vaultchain/storage"
)

const serviceName = "vaultctl"

// runtime bundles everything one command invocation needs.
type runtime struct {
	cfg     *config.Config
	genesis *config.GenesisState
	db      storage.Database
	engine  *cdp.Engine
	journal *journal.Journal
	logger  *slog.Logger

	closers  []io.Closer
	shutdown func(context.Context) error
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// openRuntime loads configuration and genesis, opens the state database and
// wires the engine to the journal, metrics and logger.
func openRuntime(ctx context.Context, configPath string) (*runtime, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, logCloser := logging.SetupWithOptions(serviceName, cfg.Environment, logging.Options{
		Level:      cfg.Logging.Level,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Compress:   cfg.Logging.Compress,
		Output:     os.Stderr,
	})
	rt := &runtime{cfg: cfg, logger: logger, closers: []io.Closer{logCloser}}

	shutdown, err := vaultotel.Init(ctx, vaultotel.Config{
		ServiceName: serviceName,
		Environment: cfg.Environment,
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		Insecure:    cfg.Telemetry.Insecure,
		Headers:     vaultotel.ParseHeaders(cfg.Telemetry.Headers),
		Metrics:     true,
		Traces:      true,
	})
	if err != nil {
		rt.Close(ctx)
		return nil, fmt.Errorf("init telemetry: %w", err)
	}
	rt.shutdown = shutdown
	if cfg.Telemetry.OTLPEndpoint != "" {
		logger.Debug("telemetry enabled",
			slog.String("endpoint", cfg.Telemetry.OTLPEndpoint),
			logging.MaskField("otlp_headers", cfg.Telemetry.Headers))
	}

	if strings.TrimSpace(cfg.GenesisFile) == "" {
		rt.Close(ctx)
		return nil, fmt.Errorf("config %s does not name a GenesisFile", configPath)
	}
	genesis, err := config.LoadGenesis(cfg.GenesisFile)
	if err != nil {
		rt.Close(ctx)
		return nil, err
	}
	rt.genesis = genesis

	if cfg.StorageBackend != storage.BackendMemory {
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			rt.Close(ctx)
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	db, err := storage.Open(cfg.StorageBackend, cfg.StatePath())
	if err != nil {
		rt.Close(ctx)
		return nil, fmt.Errorf("open state: %w", err)
	}
	rt.db = db
	rt.closers = append(rt.closers, closerFunc(func() error { db.Close(); return nil }))

	if err := os.MkdirAll(filepath.Dir(cfg.JournalPath), 0o755); err != nil {
		rt.Close(ctx)
		return nil, fmt.Errorf("create journal dir: %w", err)
	}
	j, err := journal.Open(cfg.JournalPath)
	if err != nil {
		rt.Close(ctx)
		return nil, err
	}
	j.SetLogger(logger)
	j.SetMetrics(observability.Events())
	rt.journal = j
	rt.closers = append(rt.closers, j)

	engine := cdp.NewEngine(state.NewManager(db), cdp.Config{
		Governance:  genesis.Governance,
		MaxPriceAge: cfg.Engine.MaxPriceAgeSeconds,
		OracleQuota: common.Quota{
			MaxRequestsPerEpoch: cfg.Engine.OracleQuota.MaxRequestsPerEpoch,
			EpochSeconds:        cfg.Engine.OracleQuota.EpochSeconds,
		},
	})
	engine.SetLogger(logger)
	engine.SetMetrics(observability.CDP())
	engine.SetEventSink(j)
	rt.engine = engine
	return rt, nil
}

// Close flushes the metrics textfile and releases resources in reverse order.
func (rt *runtime) Close(ctx context.Context) {
	if rt == nil {
		return
	}
	if rt.cfg != nil && rt.cfg.Telemetry.MetricsFile != "" {
		if err := prometheus.WriteToTextfile(rt.cfg.Telemetry.MetricsFile, prometheus.DefaultGatherer); err != nil {
			rt.logger.Warn("write metrics textfile failed", slog.Any("error", err))
		}
	}
	if rt.shutdown != nil {
		if err := rt.shutdown(ctx); err != nil {
			rt.logger.Warn("telemetry shutdown failed", slog.Any("error", err))
		}
	}
	for i := len(rt.closers) - 1; i >= 0; i-- {
		_ = rt.closers[i].Close()
	}
	rt.closers = nil
}

// signer decrypts the keystore at path and returns the address it controls.
func signer(path, passEnv string) (crypto.Address, error) {
	if strings.TrimSpace(path) == "" {
		return crypto.Address{}, fmt.Errorf("keystore path required (use --keystore or KeystorePath)")
	}
	pass, err := passphrase.NewSource(passEnv).Get()
	if err != nil {
		return crypto.Address{}, err
	}
	key, err := crypto.LoadFromKeystore(path, pass)
	if err != nil {
		return crypto.Address{}, fmt.Errorf("unlock keystore: %w", err)
	}
	return key.PubKey().Address(), nil
}
