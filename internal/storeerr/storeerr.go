// Package storeerr defines the sentinel errors shared across the store
// (spec §7): Syntax, Corruption, Evaluation and Transaction conflict, plus
// ErrReadOnly and ErrNotFound. Storage/I/O failures have no sentinel here;
// they surface as the key/value substrate's own (wrapped) errors. Type
// errors are deliberately absent too — they never leave
// the value-space/expression layer, where they are represented in-band as
// the three-valued "undefined" result (internal/valuespace), not as a Go
// error.
package storeerr

import (
	"errors"
	"fmt"
)

var (
	// ErrSyntax marks an algebra tree referencing an unimplemented
	// construct.
	ErrSyntax = errors.New("unsupported algebra construct")

	// ErrCorruption marks a non-retryable inconsistency: a dictionary
	// lookup failed for a fingerprint that must exist, an encoded term
	// carries an unknown type tag, or the key/value substrate itself
	// reported corruption.
	ErrCorruption = errors.New("store corruption")

	// ErrEvaluation wraps a panic or error raised by a user-defined
	// function.
	ErrEvaluation = errors.New("evaluation error")

	// ErrTxConflict marks a writable transaction that could not commit;
	// the caller may retry.
	ErrTxConflict = errors.New("transaction conflict")

	// ErrReadOnly is returned by any mutating call against a read-only
	// transaction or store handle.
	ErrReadOnly = errors.New("store is read-only")

	// ErrNotFound marks an ordinary point-lookup miss (not corruption).
	ErrNotFound = errors.New("not found")
)

// Corruptf wraps ErrCorruption with context, for dictionary misses and
// unknown encoded-term tags encountered while decoding.
func Corruptf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrCorruption}, args...)...)
}

// Syntaxf wraps ErrSyntax with context.
func Syntaxf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrSyntax}, args...)...)
}

// Evalf wraps ErrEvaluation with context.
func Evalf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrEvaluation}, args...)...)
}
