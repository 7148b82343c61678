package ai

// BriefInput carries everything the model needs to summarize a trip for an
// approver. All fields are plain display values; the provider never sees ids.
type BriefInput struct {
	Origin      string
	Destination string
	ScheduledAt string
	Status      string

	DriverName   string
	VehiclePlate string

	// TravelEstimate is the optional routing estimate, e.g. "7h 20m / 612 km".
	TravelEstimate string

	// RecentEvents are human-readable transition lines, newest last.
	RecentEvents []string

	// OpenRequest describes the pending request, e.g. "start requested 2h ago".
	OpenRequest string
}
