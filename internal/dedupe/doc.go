// Package dedupe remembers recently processed event IDs so a redelivered
// event is handled at most once within a configurable window.
package dedupe
