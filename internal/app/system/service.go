package system

import "context"

// Service is a lifecycle-managed component. Start must return once the
// component is running; Stop must be safe to call after a failed Start.
type Service interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
