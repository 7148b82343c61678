// README: Driver record as stored by the fleet registry.
package driver

import (
	"time"

	"convoy/internal/types"
)

type Driver struct {
	ID        types.ID
	Name      string
	Phone     string
	Role      types.Role
	CreatedAt time.Time
}
