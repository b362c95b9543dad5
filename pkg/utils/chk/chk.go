// Package chk provides terse error-checking helpers used throughout
// nestrelay instead of the `if err != nil { ... }` idiom at every call
// site. Each function logs the error (at a level implied by its name) and
// returns whether an error was present, so checks can be written as
// `if err = thing(); chk.E(err) { return }`.
package chk

import "nestrelay.dev/pkg/utils/log"

// E logs err at error level and reports whether it was non-nil.
func E(err error) bool {
	if err != nil {
		log.E.Ln(err)
		return true
	}
	return false
}

// W logs err at warning level and reports whether it was non-nil.
func W(err error) bool {
	if err != nil {
		log.W.Ln(err)
		return true
	}
	return false
}

// T logs err at trace level and reports whether it was non-nil. Used for
// errors that are expected often enough that error level would be noisy.
func T(err error) bool {
	if err != nil {
		log.T.Ln(err)
		return true
	}
	return false
}

// D logs err at debug level and reports whether it was non-nil.
func D(err error) bool {
	if err != nil {
		log.D.Ln(err)
		return true
	}
	return false
}
