// Package negentropy implements the relay side of NIP-77 set
// reconciliation, using the simplified fixed-width id-list encoding
// documented in the wire protocol section rather than the upstream
// Negentropy range-fingerprint algorithm: every message is just the
// concatenation of the 32-byte ids one side believes the other is
// missing, hex-encoded. This trades bandwidth on very large sets for an
// implementation that fits in one exchange format everywhere else in
// this codebase already uses (hex strings).
package negentropy

import (
	"sort"

	"nestrelay.dev/pkg/encoders/hexutil"
	"nestrelay.dev/pkg/utils/errorf"
)

const idHexLen = 64
const idByteLen = 32

// EncodeIDList concatenates the hex ids in ids into a single wire
// message, sorted for determinism.
func EncodeIDList(ids []string) string {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	out := make([]byte, 0, len(sorted)*idHexLen)
	for _, id := range sorted {
		out = append(out, id...)
	}
	return string(out)
}

// DecodeIDList splits a wire message back into its constituent ids.
func DecodeIDList(msg string) ([]string, error) {
	if len(msg)%idHexLen != 0 {
		return nil, errorf.E("negentropy message length %d is not a multiple of %d", len(msg), idHexLen)
	}
	n := len(msg) / idHexLen
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		id := msg[i*idHexLen : (i+1)*idHexLen]
		if !hexutil.IsHex(id, idByteLen) {
			return nil, errorf.E("negentropy message contains a malformed id")
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Diff returns the ids present in have but absent from theirs — the set
// the other side needs to catch up.
func Diff(have []string, theirs []string) []string {
	known := make(map[string]bool, len(theirs))
	for _, id := range theirs {
		known[id] = true
	}
	var out []string
	for _, id := range have {
		if !known[id] {
			out = append(out, id)
		}
	}
	return out
}
