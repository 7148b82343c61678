// README: Cooldown policy tests (boundaries, day rounding, pair binding).
package request

import (
	"testing"
	"time"

	"convoy/internal/types"
)

func rejectedAt(driverID types.ID, unblockAt time.Time, reason string) *Request {
	return &Request{
		TripID:    7,
		Kind:      KindStart,
		DriverID:  driverID,
		Status:    StatusRejected,
		Reason:    reason,
		UnblockAt: &unblockAt,
	}
}

func TestValidCooldownDays(t *testing.T) {
	for _, d := range CooldownDayChoices {
		if !ValidCooldownDays(d) {
			t.Errorf("ValidCooldownDays(%d) = false, want true", d)
		}
	}
	for _, d := range []int{0, -1, 2, 4, 6, 8, 14, 31, 100} {
		if ValidCooldownDays(d) {
			t.Errorf("ValidCooldownDays(%d) = true, want false", d)
		}
	}
}

func TestIsBlockedBoundaries(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name      string
		unblockAt time.Time
		blocked   bool
	}{
		{"well before unblock", now.Add(72 * time.Hour), true},
		{"one second before unblock", now.Add(time.Second), true},
		{"exactly at unblock", now, false},
		{"after unblock", now.Add(-time.Second), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, blocked := IsBlocked(rejectedAt(1, tc.unblockAt, "late paperwork"), 1, now)
			if blocked != tc.blocked {
				t.Errorf("blocked = %v, want %v", blocked, tc.blocked)
			}
		})
	}
}

// TestIsBlockedRemainingDays checks that partial days round up, so a window
// with 25 hours left still shows 2 days remaining.
func TestIsBlockedRemainingDays(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		left time.Duration
		want int
	}{
		{time.Hour, 1},
		{24 * time.Hour, 1},
		{25 * time.Hour, 2},
		{48 * time.Hour, 2},
		{7 * 24 * time.Hour, 7},
		{7*24*time.Hour + time.Minute, 8},
	}
	for _, tc := range cases {
		block, blocked := IsBlocked(rejectedAt(1, now.Add(tc.left), "overloaded axle"), 1, now)
		if !blocked {
			t.Fatalf("left=%v: expected blocked", tc.left)
		}
		if block.RemainingDays != tc.want {
			t.Errorf("left=%v: RemainingDays = %d, want %d", tc.left, block.RemainingDays, tc.want)
		}
	}
}

// TestIsBlockedBindsDriverTripPair checks that the cooldown only applies to
// the rejected driver; anyone else may request the trip immediately.
func TestIsBlockedBindsDriverTripPair(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	last := rejectedAt(1, now.Add(48*time.Hour), "missing permit")

	if _, blocked := IsBlocked(last, 1, now); !blocked {
		t.Error("rejected driver should be blocked")
	}
	if _, blocked := IsBlocked(last, 2, now); blocked {
		t.Error("other driver should not be blocked")
	}
}

func TestIsBlockedIgnoresNonRejections(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	if _, blocked := IsBlocked(nil, 1, now); blocked {
		t.Error("no rejection history should not block")
	}

	unblockAt := now.Add(48 * time.Hour)
	approved := &Request{DriverID: 1, Status: StatusApproved, UnblockAt: &unblockAt}
	if _, blocked := IsBlocked(approved, 1, now); blocked {
		t.Error("approved request should not block")
	}

	noWindow := &Request{DriverID: 1, Status: StatusRejected}
	if _, blocked := IsBlocked(noWindow, 1, now); blocked {
		t.Error("rejection without a window should not block")
	}
}

func TestIsBlockedCarriesReason(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	unblockAt := now.Add(24 * time.Hour)

	block, blocked := IsBlocked(rejectedAt(1, unblockAt, "vehicle in maintenance"), 1, now)
	if !blocked {
		t.Fatal("expected blocked")
	}
	if block.Reason != "vehicle in maintenance" {
		t.Errorf("Reason = %q, want stored rejection reason", block.Reason)
	}
	if !block.UnblockAt.Equal(unblockAt) {
		t.Errorf("UnblockAt = %v, want %v", block.UnblockAt, unblockAt)
	}
}
