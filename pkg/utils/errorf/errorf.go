// Package errorf provides printf-style error constructors so call sites
// read as `err = errorf.E("bad thing: %s", why)` instead of
// `fmt.Errorf(...)` with an import of "fmt" at every site that only needs
// errors.
package errorf

import "fmt"

// E formats and returns a new error.
func E(format string, args ...any) error { return fmt.Errorf(format, args...) }

// W formats and returns a new error, wrapping any %w verb present exactly
// as fmt.Errorf would.
func W(format string, args ...any) error { return fmt.Errorf(format, args...) }
