// Package preprocess normalizes raw call recordings before chunking: it
// resamples to the target rate, removes low-frequency rumble with a high-pass
// filter, and scales the signal to a consistent peak level.
package preprocess
