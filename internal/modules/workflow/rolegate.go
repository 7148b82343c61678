// README: Role gate: maps (role, trip view) to the caller's next action.
package workflow

import (
	"convoy/internal/modules/trip"
	"convoy/internal/types"
)

type Action string

const (
	ActionRequestStart        Action = "requestStart"
	ActionAwaitStartApproval  Action = "awaitStartApproval"
	ActionBlockedCooldown     Action = "blockedCooldown"
	ActionRequestFinish       Action = "requestFinish"
	ActionAwaitFinishApproval Action = "awaitFinishApproval"
	ActionApproveStart        Action = "approveStart"
	ActionRejectStart         Action = "rejectStart"
	ActionApproveFinish       Action = "approveFinish"
	ActionRejectFinish        Action = "rejectFinish"
	ActionNone                Action = "none"
)

// View is the snapshot the gate decides on.
type View struct {
	Role          types.Role
	TripStatus    trip.Status
	HasOpenStart  bool
	HasOpenFinish bool
	IsCooled      bool
}

// Decide resolves every combination to exactly one action. For approvers an
// open request yields the approve action; the paired reject is authorized
// separately through Permits and rendered alongside it.
func Decide(v View) Action {
	switch v.Role {
	case types.RoleAdmin, types.RoleSupervisor:
		switch v.TripStatus {
		case trip.StatusPending:
			if v.HasOpenStart {
				return ActionApproveStart
			}
		case trip.StatusEnRoute:
			if v.HasOpenFinish {
				return ActionApproveFinish
			}
		}
		return ActionNone
	case types.RoleTransportista:
		switch v.TripStatus {
		case trip.StatusPending:
			if v.HasOpenStart {
				return ActionAwaitStartApproval
			}
			if v.IsCooled {
				return ActionBlockedCooldown
			}
			return ActionRequestStart
		case trip.StatusEnRoute:
			if v.HasOpenFinish {
				return ActionAwaitFinishApproval
			}
			return ActionRequestFinish
		}
		return ActionNone
	default:
		return ActionNone
	}
}

// Permits reports whether the role may perform the action at all, regardless
// of the current trip view. The engine uses it for command authorization.
func Permits(role types.Role, a Action) bool {
	switch a {
	case ActionApproveStart, ActionRejectStart, ActionApproveFinish, ActionRejectFinish:
		return role.CanApprove()
	case ActionRequestStart, ActionRequestFinish:
		return role == types.RoleTransportista
	case ActionAwaitStartApproval, ActionAwaitFinishApproval, ActionBlockedCooldown, ActionNone:
		return true
	default:
		return false
	}
}
