// Package errors provides the structured error type used across scopecache.
// Every failure carries a machine-readable code so callers can branch on the
// taxonomy (invalid argument, already disposed, deactivation failure)
// without matching on message text.
package errors
