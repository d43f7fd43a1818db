package oracle

import (
	"errors"
	"fmt"
	"math"
	"math/big"

	cdperrors "vaultchain/core/errors"
	"vaultchain/core/events"
	"vaultchain/crypto"
	"vaultchain/native/common"
)

// MaxTimestamp is the latest timestamp an observation may carry.
const MaxTimestamp uint64 = math.MaxInt64

// MaxPrice bounds accepted prices (10^30 quote units per collateral unit).
var MaxPrice = new(big.Int).Exp(big.NewInt(10), big.NewInt(30), nil)

var errNilState = errors.New("oracle: state not configured")

// Observation is the most recent accepted price.
type Observation struct {
	Price     *big.Int
	Timestamp uint64
	Oracle    crypto.Address
}

// Clone returns a deep copy of the observation.
func (o Observation) Clone() Observation {
	out := Observation{Timestamp: o.Timestamp, Oracle: o.Oracle}
	if o.Price != nil {
		out.Price = new(big.Int).Set(o.Price)
	}
	return out
}

type storedObservation struct {
	Price     *big.Int
	Timestamp uint64
	Oracle    []byte
}

type storedQuota struct {
	EpochID  uint64
	ReqCount uint64
}

type registryState interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVDelete(key []byte) error
}

// Registry tracks the identities allowed to publish prices and the single
// latest accepted observation. It performs no staleness check; consumers
// decide how old a price may be.
type Registry struct {
	state      registryState
	governance crypto.Address
	emitter    events.Emitter
	quota      common.Quota
	now        func() uint64
}

// NewRegistry constructs a registry bound to the provided state backend.
func NewRegistry(state registryState, governance crypto.Address) *Registry {
	return &Registry{state: state, governance: governance, emitter: events.NoopEmitter{}}
}

// SetEmitter configures the event emitter used by the registry.
func (r *Registry) SetEmitter(emitter events.Emitter) {
	if r == nil {
		return
	}
	if emitter == nil {
		r.emitter = events.NoopEmitter{}
		return
	}
	r.emitter = emitter
}

// SetQuota limits how often each oracle may submit. now supplies the logical
// clock used to derive the quota epoch.
func (r *Registry) SetQuota(quota common.Quota, now func() uint64) {
	if r == nil {
		return
	}
	r.quota = quota
	r.now = now
}

func (r *Registry) ensureState() error {
	if r == nil || r.state == nil {
		return errNilState
	}
	return nil
}

func (r *Registry) isGovernance(addr crypto.Address) bool {
	return !r.governance.IsZero() && !addr.IsZero() && addr.Equal(r.governance)
}

// Authorize grants publishing rights to candidate. Only governance may call
// it, and the candidate may be neither governance nor the caller. Repeated
// calls leave the same membership state.
func (r *Registry) Authorize(caller, candidate crypto.Address) error {
	if err := r.ensureState(); err != nil {
		return err
	}
	if !r.isGovernance(caller) {
		return cdperrors.ErrNotAuthorized
	}
	if candidate.IsZero() {
		return fmt.Errorf("%w: oracle address required", cdperrors.ErrInvalidParameters)
	}
	if candidate.Equal(r.governance) || candidate.Equal(caller) {
		return fmt.Errorf("%w: governance cannot act as oracle", cdperrors.ErrInvalidParameters)
	}
	member, err := r.IsOracle(candidate)
	if err != nil {
		return err
	}
	if member {
		return nil
	}
	if err := r.state.KVPut(memberKey(candidate), true); err != nil {
		return fmt.Errorf("oracle: persist membership: %w", err)
	}
	r.emitter.Emit(events.OracleMembership{Governance: caller, Oracle: candidate})
	return nil
}

// Revoke removes publishing rights. Revoking a non-member is a no-op. The
// latest observation is kept even when its publisher is revoked.
func (r *Registry) Revoke(caller, oracle crypto.Address) error {
	if err := r.ensureState(); err != nil {
		return err
	}
	if !r.isGovernance(caller) {
		return cdperrors.ErrNotAuthorized
	}
	if oracle.IsZero() {
		return fmt.Errorf("%w: oracle address required", cdperrors.ErrInvalidParameters)
	}
	member, err := r.IsOracle(oracle)
	if err != nil {
		return err
	}
	if !member {
		return nil
	}
	if err := r.state.KVDelete(memberKey(oracle)); err != nil {
		return fmt.Errorf("oracle: delete membership: %w", err)
	}
	if err := r.state.KVDelete(quotaKey(oracle)); err != nil {
		return fmt.Errorf("oracle: delete quota: %w", err)
	}
	r.emitter.Emit(events.OracleMembership{Governance: caller, Oracle: oracle, Revoked: true})
	return nil
}

// IsOracle reports whether addr currently holds publishing rights.
func (r *Registry) IsOracle(addr crypto.Address) (bool, error) {
	if err := r.ensureState(); err != nil {
		return false, err
	}
	if addr.IsZero() {
		return false, nil
	}
	var member bool
	ok, err := r.state.KVGet(memberKey(addr), &member)
	if err != nil {
		return false, fmt.Errorf("oracle: load membership: %w", err)
	}
	return ok && member, nil
}

// SubmitPrice overwrites the latest observation. The caller must be an
// authorised oracle, the price must lie in (0, MaxPrice] and the timestamp
// must not exceed MaxTimestamp.
func (r *Registry) SubmitPrice(caller crypto.Address, price *big.Int, timestamp uint64) error {
	if err := r.ensureState(); err != nil {
		return err
	}
	member, err := r.IsOracle(caller)
	if err != nil {
		return err
	}
	if !member {
		return cdperrors.ErrNotAuthorized
	}
	if price == nil || price.Sign() <= 0 {
		return fmt.Errorf("%w: price must be positive", cdperrors.ErrInvalidParameters)
	}
	if price.Cmp(MaxPrice) > 0 {
		return fmt.Errorf("%w: price exceeds maximum", cdperrors.ErrInvalidParameters)
	}
	if timestamp > MaxTimestamp {
		return fmt.Errorf("%w: timestamp out of range", cdperrors.ErrInvalidParameters)
	}
	if err := r.consumeQuota(caller); err != nil {
		return err
	}
	record := storedObservation{
		Price:     new(big.Int).Set(price),
		Timestamp: timestamp,
		Oracle:    append([]byte(nil), caller.Bytes()...),
	}
	if err := r.state.KVPut(latestKey, record); err != nil {
		return fmt.Errorf("oracle: persist observation: %w", err)
	}
	r.emitter.Emit(events.PriceSubmitted{Oracle: caller, Price: price, Timestamp: timestamp})
	return nil
}

func (r *Registry) consumeQuota(caller crypto.Address) error {
	if !r.quota.Enabled() || r.now == nil {
		return nil
	}
	var stored storedQuota
	if _, err := r.state.KVGet(quotaKey(caller), &stored); err != nil {
		return fmt.Errorf("oracle: load quota: %w", err)
	}
	if stored.ReqCount > math.MaxUint32 {
		stored.ReqCount = math.MaxUint32
	}
	prev := common.QuotaNow{EpochID: stored.EpochID, ReqCount: uint32(stored.ReqCount)}
	next, err := common.CheckQuota(r.quota, r.quota.Epoch(r.now()), prev, 1)
	if err != nil {
		return fmt.Errorf("%w: %v", cdperrors.ErrNotAuthorized, err)
	}
	return r.state.KVPut(quotaKey(caller), storedQuota{EpochID: next.EpochID, ReqCount: uint64(next.ReqCount)})
}

// LatestPrice returns the most recent accepted observation. The boolean is
// false when no price has ever been accepted; that is not an error.
func (r *Registry) LatestPrice() (Observation, bool, error) {
	if err := r.ensureState(); err != nil {
		return Observation{}, false, err
	}
	var stored storedObservation
	ok, err := r.state.KVGet(latestKey, &stored)
	if err != nil {
		return Observation{}, false, fmt.Errorf("oracle: load observation: %w", err)
	}
	if !ok || stored.Price == nil || stored.Price.Sign() <= 0 {
		return Observation{}, false, nil
	}
	obs := Observation{Price: new(big.Int).Set(stored.Price), Timestamp: stored.Timestamp}
	if len(stored.Oracle) == crypto.AddressLength {
		obs.Oracle = crypto.NewAddress(crypto.VaultPrefix, stored.Oracle)
	}
	return obs, true, nil
}
