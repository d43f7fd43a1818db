package common

import (
	"errors"
	"math"
)

var (
	ErrQuotaRequestsExceeded = errors.New("quota requests exceeded")
	ErrQuotaCounterOverflow  = errors.New("quota counter overflow")
)

// QuotaNow captures the current usage counter for a single identity.
type QuotaNow struct {
	ReqCount uint32
	EpochID  uint64
}

// Quota limits how many calls an identity may make per epoch. A zero limit
// disables the check.
type Quota struct {
	MaxRequestsPerEpoch uint32
	EpochSeconds        uint64
}

// Enabled reports whether the quota constrains anything.
func (q Quota) Enabled() bool {
	return q.MaxRequestsPerEpoch > 0 && q.EpochSeconds > 0
}

// Epoch maps a logical timestamp onto the quota window.
func (q Quota) Epoch(now uint64) uint64 {
	if q.EpochSeconds == 0 {
		return 0
	}
	return now / q.EpochSeconds
}

// CheckQuota verifies whether the additional requests fit within the
// configured quota. The returned QuotaNow reflects the updated counter when the
// quota is not exceeded.
func CheckQuota(q Quota, nowEpoch uint64, prev QuotaNow, addReq uint32) (QuotaNow, error) {
	next := prev
	if prev.EpochID != nowEpoch {
		next = QuotaNow{EpochID: nowEpoch}
	}

	if addReq > 0 {
		if next.ReqCount > math.MaxUint32-addReq {
			return prev, ErrQuotaCounterOverflow
		}
		next.ReqCount += addReq
	}
	if q.MaxRequestsPerEpoch > 0 && next.ReqCount > q.MaxRequestsPerEpoch {
		return prev, ErrQuotaRequestsExceeded
	}
	return next, nil
}
