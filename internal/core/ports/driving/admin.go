package driving

import "context"

// AdminService exposes operational controls.
type AdminService interface {
	// ResetStale returns documents stuck in processing to pending
	// and re-queues them. Returns the affected IDs.
	ResetStale(ctx context.Context) ([]string, error)
}
