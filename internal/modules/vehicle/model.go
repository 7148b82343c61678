// README: Vehicle record as stored by the fleet registry.
package vehicle

import (
	"time"

	"convoy/internal/types"
)

type Vehicle struct {
	ID        types.ID
	Plate     string
	Model     string
	CreatedAt time.Time
}
