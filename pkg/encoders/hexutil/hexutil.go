// Package hexutil is a thin wrapper around the SIMD-accelerated hex codec
// used on nestrelay's hot paths (event id/pubkey/sig conversions happen on
// every admitted event and every query result).
package hexutil

import "github.com/templexxx/xhex"

// Encode returns the lowercase hex encoding of b.
func Encode(b []byte) string { return xhex.EncodeToString(b) }

// Decode parses a hex string into raw bytes.
func Decode(s string) ([]byte, error) { return xhex.DecodeString(s) }

// IsHex reports whether s is a valid hex string of exactly n bytes (2n hex
// characters), which is all the schema validation an id/pubkey/sig field
// needs beyond successful decoding.
func IsHex(s string, n int) bool {
	if len(s) != n*2 {
		return false
	}
	_, err := Decode(s)
	return err == nil
}
