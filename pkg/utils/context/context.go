// Package context re-exports the standard context types under the short
// names used across nestrelay's signatures (context.T, context.F), a
// thin alias package so call sites stay uncluttered.
package context

import "context"

// T is a context.Context.
type T = context.Context

// F is a context.CancelFunc.
type F = context.CancelFunc

// Bg returns context.Background().
func Bg() T { return context.Background() }

// Cancel wraps context.WithCancel.
func Cancel(c T) (T, F) { return context.WithCancel(c) }
