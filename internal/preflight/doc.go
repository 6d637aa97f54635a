// Package preflight validates directory access, disk space, and speech
// gateway readiness before the daemon starts taking calls.
package preflight
