// README: Shared scalar types used across modules.
package types

// ID is the integer identity used by the record store for trips, drivers
// and vehicles.
type ID int64

// Role is the caller's resolved role, supplied by the session collaborator.
type Role string

const (
	RoleAdmin         Role = "admin"
	RoleSupervisor    Role = "supervisor"
	RoleTransportista Role = "transportista"
)

// CanApprove reports whether the role may resolve start/finish requests.
func (r Role) CanApprove() bool {
	return r == RoleAdmin || r == RoleSupervisor
}

// Place is an origin or destination point of a trip.
type Place struct {
	Region   string
	Locality string
}
