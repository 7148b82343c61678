// README: Start/finish request records and resolution shapes.
package request

import (
	"time"

	"convoy/internal/types"
)

type Kind string

const (
	KindStart  Kind = "start"
	KindFinish Kind = "finish"
)

type Status string

const (
	StatusOpen     Status = "open"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Request is a driver-initiated proposal to move a trip forward, pending
// administrator resolution. Cooldown fields are only ever set on rejected
// start requests; finish rejections carry a reason alone.
type Request struct {
	ID           int64
	TripID       types.ID
	Kind         Kind
	DriverID     types.ID
	Status       Status
	Reason       string
	CooldownDays int
	UnblockAt    *time.Time
	CreatedAt    time.Time
	ResolvedAt   *time.Time
}

// Resolution is the outcome applied to an open request.
type Resolution struct {
	Status       Status
	Reason       string
	CooldownDays int
	UnblockAt    *time.Time
	ResolvedAt   time.Time
}
