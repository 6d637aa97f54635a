// Package queue persists call recordings and their transcription lifecycle in
// SQLite. The workflow manager claims pending calls from the store, moves them
// through processing statuses, and records the final transcript payload; the
// transcription pipeline itself never touches the store.
package queue
