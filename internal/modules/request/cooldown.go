// README: Cooldown policy for rejected start requests.
package request

import (
	"math"
	"time"

	"convoy/internal/types"
)

// CooldownDayChoices is the administrator-selectable cooldown set. Rejecting
// a start request must pick one of these; finish rejections never cool down.
var CooldownDayChoices = []int{1, 3, 5, 7, 10, 15, 20, 30}

func ValidCooldownDays(days int) bool {
	for _, d := range CooldownDayChoices {
		if d == days {
			return true
		}
	}
	return false
}

// Block describes an active cooldown, for display to the blocked driver.
type Block struct {
	RemainingDays int
	Reason        string
	UnblockAt     time.Time
}

// IsBlocked reports whether the driver is still cooled down for a trip given
// the most recent start rejection. The block binds the (driver, trip) pair:
// a different driver may request the same trip immediately. RemainingDays is
// the ceiling of the time left, in whole days.
func IsBlocked(last *Request, driverID types.ID, now time.Time) (Block, bool) {
	if last == nil || last.Status != StatusRejected || last.UnblockAt == nil {
		return Block{}, false
	}
	if last.DriverID != driverID {
		return Block{}, false
	}
	if !last.UnblockAt.After(now) {
		return Block{}, false
	}
	remaining := int(math.Ceil(last.UnblockAt.Sub(now).Hours() / 24))
	return Block{
		RemainingDays: remaining,
		Reason:        last.Reason,
		UnblockAt:     *last.UnblockAt,
	}, true
}
