package cdp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	cdperrors "vaultchain/core/errors"
	"vaultchain/core/events"
	"vaultchain/core/state"
	"vaultchain/core/types"
	"vaultchain/crypto"
	"vaultchain/native/common"
	"vaultchain/native/oracle"
	"vaultchain/native/params"
	"vaultchain/native/vault"
)

var errNilState = errors.New("cdp engine: state not configured")

// Operation names reported to Metrics and the logger.
const (
	OpCreateVault   = "create_vault"
	OpDeposit       = "deposit"
	OpWithdraw      = "withdraw"
	OpMint          = "mint"
	OpRedeem        = "redeem"
	OpLiquidate     = "liquidate"
	OpAuthorize     = "authorize_oracle"
	OpRevoke        = "revoke_oracle"
	OpSubmitPrice   = "submit_price"
	OpSetParam      = "set_param"
	OpSetPauses     = "set_pauses"
	OpGenesis       = "genesis"
	OutcomeAccepted = "accepted"
)

// SupplyLedger is the external token ledger kept in step with the global
// liability supply.
type SupplyLedger interface {
	IncreaseSupply(amount *big.Int) error
	DecreaseSupply(amount *big.Int) error
}

// Clock returns the current logical timestamp.
type Clock func() uint64

// EventSink receives the events of every committed operation.
type EventSink interface {
	Publish(evts []*types.Event)
}

// Metrics observes engine outcomes.
type Metrics interface {
	ObserveOperation(op, outcome string)
	RecordSupply(total *big.Int)
	RecordPrice(price *big.Int, timestamp uint64)
}

// Config captures the static engine settings.
type Config struct {
	// Governance is the only identity allowed to manage oracles, risk
	// parameters and pauses.
	Governance crypto.Address
	// MaxPriceAge rejects prices older than this many clock units. Zero
	// disables the check.
	MaxPriceAge uint64
	// OracleQuota limits submissions per oracle and epoch.
	OracleQuota common.Quota
}

// Engine applies vault operations against the state manager. Every write
// runs as a single state transaction under the engine lock, so no caller can
// observe a partially applied operation.
type Engine struct {
	mu      sync.RWMutex
	state   *state.Manager
	cfg     Config
	supply  SupplyLedger
	clock   Clock
	lastNow atomic.Uint64
	sink    EventSink
	metrics Metrics
	logger  *slog.Logger
}

// NewEngine constructs an engine over the provided state manager.
func NewEngine(manager *state.Manager, cfg Config) *Engine {
	return &Engine{
		state:  manager,
		cfg:    cfg,
		clock:  func() uint64 { return uint64(time.Now().Unix()) },
		logger: slog.Default(),
	}
}

// SetSupplyLedger wires the external token ledger.
func (e *Engine) SetSupplyLedger(ledger SupplyLedger) {
	if e == nil {
		return
	}
	e.mu.Lock()
	e.supply = ledger
	e.mu.Unlock()
}

// SetClock replaces the logical clock. Regressions are clamped so stamps
// handed out by the engine never decrease.
func (e *Engine) SetClock(clock Clock) {
	if e == nil || clock == nil {
		return
	}
	e.mu.Lock()
	e.clock = clock
	e.mu.Unlock()
}

// SetEventSink configures where committed events are published.
func (e *Engine) SetEventSink(sink EventSink) {
	if e == nil {
		return
	}
	e.mu.Lock()
	e.sink = sink
	e.mu.Unlock()
}

// SetMetrics configures the metrics observer.
func (e *Engine) SetMetrics(metrics Metrics) {
	if e == nil {
		return
	}
	e.mu.Lock()
	e.metrics = metrics
	e.mu.Unlock()
}

// SetLogger replaces the structured logger.
func (e *Engine) SetLogger(logger *slog.Logger) {
	if e == nil || logger == nil {
		return
	}
	e.mu.Lock()
	e.logger = logger
	e.mu.Unlock()
}

// Governance returns the configured governance identity.
func (e *Engine) Governance() crypto.Address {
	return e.cfg.Governance
}

func (e *Engine) now() uint64 {
	ts := e.clock()
	if ts > oracle.MaxTimestamp {
		ts = oracle.MaxTimestamp
	}
	for {
		last := e.lastNow.Load()
		if ts <= last {
			return last
		}
		if e.lastNow.CompareAndSwap(last, ts) {
			return ts
		}
	}
}

type supplyChange struct {
	amount   *big.Int
	increase bool
}

// txn bundles the module views over one state transaction.
type txn struct {
	tx      *state.Tx
	ledger  *vault.Ledger
	oracle  *oracle.Registry
	params  *params.Store
	events  *events.Buffer
	now     uint64
	changes []supplyChange
	supply  *big.Int
	price   *oracle.Observation
}

func (e *Engine) begin() *txn {
	tx := e.state.Begin()
	buf := &events.Buffer{}
	t := &txn{
		tx:     tx,
		ledger: vault.NewLedger(tx),
		oracle: oracle.NewRegistry(tx, e.cfg.Governance),
		params: params.NewStore(tx, e.cfg.Governance),
		events: buf,
		now:    e.now(),
	}
	t.oracle.SetEmitter(buf)
	t.oracle.SetQuota(e.cfg.OracleQuota, func() uint64 { return t.now })
	t.params.SetEmitter(buf)
	return t
}

// execute runs fn inside a write transaction and commits it atomically.
func (e *Engine) execute(op string, fn func(*txn) error) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	t := e.begin()
	err := fn(t)
	if err == nil {
		err = e.commit(t)
	} else {
		t.tx.Discard()
	}
	e.finish(op, t, err)
	return err
}

// view runs fn against committed state. Writes made by fn are dropped.
func (e *Engine) view(fn func(*txn) error) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	t := e.begin()
	defer t.tx.Discard()
	return fn(t)
}

func (e *Engine) commit(t *txn) error {
	for i, change := range t.changes {
		if err := e.applySupply(change, false); err != nil {
			e.revertSupply(t.changes[:i])
			t.tx.Discard()
			return fmt.Errorf("cdp: supply ledger: %w", err)
		}
	}
	if err := t.tx.Commit(); err != nil {
		e.revertSupply(t.changes)
		return fmt.Errorf("cdp: commit: %w", err)
	}
	return nil
}

func (e *Engine) applySupply(change supplyChange, inverse bool) error {
	if e.supply == nil {
		return nil
	}
	if change.increase != inverse {
		return e.supply.IncreaseSupply(new(big.Int).Set(change.amount))
	}
	return e.supply.DecreaseSupply(new(big.Int).Set(change.amount))
}

func (e *Engine) revertSupply(applied []supplyChange) {
	for i := len(applied) - 1; i >= 0; i-- {
		if err := e.applySupply(applied[i], true); err != nil {
			e.logger.Error("cdp supply ledger revert failed",
				slog.String("amount", applied[i].amount.String()),
				slog.Any("error", err))
		}
	}
}

func (e *Engine) finish(op string, t *txn, err error) {
	if err != nil {
		kind := cdperrors.KindOf(err)
		level := slog.LevelDebug
		if kind == cdperrors.KindInternal {
			level = slog.LevelError
		}
		e.logger.Log(context.Background(), level, "cdp operation rejected",
			slog.String("op", op),
			slog.String("kind", kind.String()),
			slog.Any("error", err))
		if e.metrics != nil {
			e.metrics.ObserveOperation(op, kind.String())
		}
		return
	}
	rendered := t.events.Render()
	e.logger.Info("cdp operation committed",
		slog.String("op", op),
		slog.Int("events", len(rendered)))
	if e.metrics != nil {
		e.metrics.ObserveOperation(op, OutcomeAccepted)
		if t.supply != nil {
			e.metrics.RecordSupply(t.supply)
		}
		if t.price != nil {
			e.metrics.RecordPrice(t.price.Price, t.price.Timestamp)
		}
	}
	if e.sink != nil && len(rendered) > 0 {
		e.sink.Publish(rendered)
	}
}

func (t *txn) increaseSupply(amount *big.Int, reason string) error {
	total, err := t.ledger.IncreaseSupply(amount)
	if err != nil {
		return err
	}
	t.recordSupply(amount, total, reason, true)
	return nil
}

func (t *txn) decreaseSupply(amount *big.Int, reason string) error {
	total, err := t.ledger.DecreaseSupply(amount)
	if err != nil {
		return err
	}
	t.recordSupply(amount, total, reason, false)
	return nil
}

func (t *txn) recordSupply(amount, total *big.Int, reason string, increase bool) {
	delta := new(big.Int).Set(amount)
	if !increase {
		delta.Neg(delta)
	}
	t.changes = append(t.changes, supplyChange{amount: new(big.Int).Set(amount), increase: increase})
	t.supply = new(big.Int).Set(total)
	t.events.Emit(events.LiabilitySupply{Total: total, Delta: delta, Reason: reason})
}

func (t *txn) guard(action string) error {
	pauses, err := t.params.Pauses()
	if err != nil {
		return err
	}
	return common.Guard(pauses, action)
}

// loadVault resolves (owner, id), telling apart ids that were never issued
// from vaults that were removed.
func (t *txn) loadVault(owner crypto.Address, id uint64) (*vault.Vault, error) {
	issued, err := t.ledger.Issued(id)
	if err != nil {
		return nil, err
	}
	if !issued {
		return nil, fmt.Errorf("%w: %d", cdperrors.ErrVaultIDOutOfRange, id)
	}
	v, ok, err := t.ledger.Get(owner, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %d", cdperrors.ErrVaultNotFound, id)
	}
	return v, nil
}

// latestPrice snapshots the price used by the rest of the operation.
func (t *txn) latestPrice(maxAge uint64) (oracle.Observation, error) {
	obs, ok, err := t.oracle.LatestPrice()
	if err != nil {
		return oracle.Observation{}, err
	}
	if !ok {
		return oracle.Observation{}, cdperrors.ErrOraclePriceUnavailable
	}
	if maxAge > 0 && t.now > obs.Timestamp && t.now-obs.Timestamp > maxAge {
		return oracle.Observation{}, fmt.Errorf("%w: observed at %d, now %d", cdperrors.ErrPriceStale, obs.Timestamp, t.now)
	}
	return obs, nil
}

func requirePositive(amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return cdperrors.ErrInvalidAmount
	}
	return vault.CheckAmount(amount)
}
