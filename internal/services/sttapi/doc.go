// Package sttapi provides the HTTP client for the external speech-to-text
// gateway. The client retries transient failures with exponential backoff and
// honors Retry-After on rate limits; authentication failures are terminal.
package sttapi
