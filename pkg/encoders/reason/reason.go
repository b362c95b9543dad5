// Package reason provides the typed OK/CLOSED rejection-reason prefixes
// used across the relay: every message sent back to a client that
// explains why an event or request was refused is built through one of
// these constructors, so the "prefix: " convention can't be mistyped
// at a call site.
package reason

import "fmt"

// Prefix is one of the reason-string prefixes the relay wire protocol
// uses ahead of a human-readable explanation.
type Prefix string

const (
	Invalid      Prefix = "invalid"
	Blocked      Prefix = "blocked"
	RateLimited  Prefix = "rate-limited"
	Duplicate    Prefix = "duplicate"
	Deleted      Prefix = "deleted"
	AuthRequired Prefix = "auth-required"
	Restricted   Prefix = "restricted"
	Error        Prefix = "error"
)

// F formats a reason message: "<prefix>: <formatted text>".
func (p Prefix) F(format string, args ...any) string {
	return string(p) + ": " + fmt.Sprintf(format, args...)
}

// String implements fmt.Stringer.
func (p Prefix) String() string { return string(p) }
