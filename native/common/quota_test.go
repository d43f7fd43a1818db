package common

import (
	"errors"
	"testing"
)

func TestCheckQuotaRequestLimit(t *testing.T) {
	q := Quota{MaxRequestsPerEpoch: 10, EpochSeconds: 60}
	prev := QuotaNow{EpochID: 1}

	next, err := CheckQuota(q, 1, prev, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if next.ReqCount != 10 {
		t.Fatalf("unexpected request count: %d", next.ReqCount)
	}

	denied, err := CheckQuota(q, 1, next, 1)
	if !errors.Is(err, ErrQuotaRequestsExceeded) {
		t.Fatalf("expected ErrQuotaRequestsExceeded, got %v", err)
	}
	if denied != next {
		t.Fatalf("expected counters to remain unchanged on denial")
	}

	rollover, err := CheckQuota(q, 2, next, 1)
	if err != nil {
		t.Fatalf("unexpected error after epoch rollover: %v", err)
	}
	if rollover.EpochID != 2 || rollover.ReqCount != 1 {
		t.Fatalf("unexpected state after rollover: %+v", rollover)
	}
}

func TestQuotaEpochAndEnabled(t *testing.T) {
	if (Quota{}).Enabled() {
		t.Fatalf("zero quota must be disabled")
	}
	q := Quota{MaxRequestsPerEpoch: 1, EpochSeconds: 60}
	if !q.Enabled() || q.Epoch(119) != 1 || q.Epoch(120) != 2 {
		t.Fatalf("unexpected epoch mapping")
	}
}

func TestCheckQuotaOverflow(t *testing.T) {
	prev := QuotaNow{EpochID: 3, ReqCount: ^uint32(0)}
	if _, err := CheckQuota(Quota{}, 3, prev, 1); !errors.Is(err, ErrQuotaCounterOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
}

type pauseSet map[string]bool

func (p pauseSet) IsPaused(action string) bool { return p[action] }

func TestGuard(t *testing.T) {
	if err := Guard(nil, "mint"); err != nil {
		t.Fatalf("nil view must allow: %v", err)
	}
	view := pauseSet{"mint": true}
	if err := Guard(view, "redeem"); err != nil {
		t.Fatalf("unpaused action rejected: %v", err)
	}
	if err := Guard(view, "mint"); err == nil {
		t.Fatalf("expected paused error")
	}
}
