package stage

import (
	"context"

	"callscribe/internal/queue"
)

// Handler describes the contract the workflow manager needs from each stage.
type Handler interface {
	Prepare(context.Context, *queue.Call) error
	Execute(context.Context, *queue.Call) error
	HealthCheck(context.Context) Health
}
