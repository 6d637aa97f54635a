package workflow

import (
	"context"

	"callscribe/internal/stage"
)

// HealthCheck runs every configured stage's health check and reports the
// results in stage order.
func (m *Manager) HealthCheck(ctx context.Context) []stage.Health {
	m.mu.RLock()
	stages := m.stages
	m.mu.RUnlock()

	results := make([]stage.Health, 0, len(stages))
	for _, stg := range stages {
		if stg.handler == nil {
			results = append(results, stage.Unhealthy(stg.name, "handler not configured"))
			continue
		}
		results = append(results, stg.handler.HealthCheck(ctx))
	}
	return results
}
