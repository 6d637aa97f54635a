// Package workflow drives queued calls through the processing stages. A
// single background loop claims the oldest eligible call, runs its stage
// handler with a per-call timeout, and persists the resulting status,
// classifying failures into retryable and review-needed outcomes.
package workflow
