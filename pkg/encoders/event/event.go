// Package event defines the Nostr event: the single canonical datum
// stored, queried, and broadcast by the relay. Events are kept
// in their NIP-01 wire shape — hex strings, not raw bytes — so that
// encoding/json round-trips the type exactly as every other relay and
// client on the network expects; hot paths that need raw bytes go through
// hexutil explicitly.
package event

import (
	"bytes"
	"encoding/json"
	"sort"

	"github.com/minio/sha256-simd"

	"nestrelay.dev/pkg/crypto/signer"
	"nestrelay.dev/pkg/encoders/hexutil"
	"nestrelay.dev/pkg/utils/errorf"
)

// Tag is a single ordered sequence of strings, e.g. ["e", "<id>", "<relay>"].
type Tag []string

// Name returns the tag's first element, or "" if empty.
func (t Tag) Name() string {
	if len(t) == 0 {
		return ""
	}
	return t[0]
}

// Value returns the tag's second element, or "" if absent.
func (t Tag) Value() string {
	if len(t) < 2 {
		return ""
	}
	return t[1]
}

// Tags is an ordered sequence of Tag.
type Tags []Tag

// GetFirst returns the first tag whose name matches, or nil.
func (ts Tags) GetFirst(name string) Tag {
	for _, t := range ts {
		if t.Name() == name {
			return t
		}
	}
	return nil
}

// GetAll returns every tag whose name matches.
func (ts Tags) GetAll(name string) (out Tags) {
	for _, t := range ts {
		if t.Name() == name {
			out = append(out, t)
		}
	}
	return
}

// Kind classifies an event's purpose; the numeric ranges below drive
// storage policy.
type Kind int

const (
	KindMetadata    Kind = 0
	KindFollowList  Kind = 3
	KindDeletion    Kind = 5
	KindClientAuth  Kind = 22242
	KindHTTPAuth    Kind = 27235
	replaceableLow       = 10000
	replaceableHigh      = 20000
	ephemeralLow         = 20000
	ephemeralHigh        = 30000
	addressableLow       = 30000
	addressableHigh      = 40000
)

// IsReplaceable reports whether at most one event per (pubkey, kind) may
// exist for this kind.
func (k Kind) IsReplaceable() bool {
	return k == KindMetadata || k == KindFollowList ||
		(int(k) >= replaceableLow && int(k) < replaceableHigh)
}

// IsEphemeral reports whether events of this kind are never stored.
func (k Kind) IsEphemeral() bool {
	return int(k) >= ephemeralLow && int(k) < ephemeralHigh
}

// IsAddressable reports whether at most one event per (pubkey, kind, d-tag)
// may exist for this kind. Also known as parameterized-replaceable.
func (k Kind) IsAddressable() bool {
	return int(k) >= addressableLow && int(k) < addressableHigh
}

// IsRegular reports whether this kind is stored without replacement.
func (k Kind) IsRegular() bool {
	return !k.IsReplaceable() && !k.IsEphemeral() && !k.IsAddressable()
}

// E is a signed Nostr event.
type E struct {
	ID        string `json:"id"`
	PubKey    string `json:"pubkey"`
	CreatedAt int64  `json:"created_at"`
	Kind      Kind   `json:"kind"`
	Tags      Tags   `json:"tags"`
	Content   string `json:"content"`
	Sig       string `json:"sig"`
}

// IDBytes decodes the ID field to raw bytes.
func (e *E) IDBytes() ([]byte, error) { return hexutil.Decode(e.ID) }

// PubKeyBytes decodes the PubKey field to raw bytes.
func (e *E) PubKeyBytes() ([]byte, error) { return hexutil.Decode(e.PubKey) }

// SigBytes decodes the Sig field to raw bytes.
func (e *E) SigBytes() ([]byte, error) { return hexutil.Decode(e.Sig) }

// DTag returns the value of the first "d" tag, or "" if absent — the key
// component for addressable events.
func (e *E) DTag() string {
	if t := e.Tags.GetFirst("d"); t != nil {
		return t.Value()
	}
	return ""
}

// Serialize produces the canonical byte form used for hashing:
// [0,pubkey,created_at,kind,tags,content], compact JSON, no extra
// whitespace, matching every other implementation on the network exactly
// (including not HTML-escaping '<','>','&', which encoding/json does by
// default and must be disabled for).
func (e *E) Serialize() ([]byte, error) {
	arr := []any{0, e.PubKey, e.CreatedAt, int(e.Kind), e.Tags, e.Content}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(arr); err != nil {
		return nil, err
	}
	// json.Encoder.Encode appends a trailing newline; the canonical form
	// has none.
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// ComputeID returns the lowercase-hex sha256 of the canonical
// serialization.
func (e *E) ComputeID() (string, error) {
	ser, err := e.Serialize()
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(ser)
	return hexutil.Encode(sum[:]), nil
}

// Sign populates PubKey, ID, and Sig from keys, leaving CreatedAt, Kind,
// Tags, and Content as already set by the caller.
func (e *E) Sign(keys *signer.Signer) error {
	e.PubKey = hexutil.Encode(keys.Pub())
	id, err := e.ComputeID()
	if err != nil {
		return err
	}
	e.ID = id
	idBytes, err := e.IDBytes()
	if err != nil {
		return err
	}
	sig, err := keys.Sign(idBytes)
	if err != nil {
		return err
	}
	e.Sig = hexutil.Encode(sig)
	return nil
}

// ValidateSchema checks the structural invariants required before
// any signature math: hex field lengths/charsets, non-negative created_at,
// kind range, and that every tag is non-empty.
func (e *E) ValidateSchema() error {
	if !hexutil.IsHex(e.ID, 32) {
		return errorf.E("id must be 64 lowercase hex characters")
	}
	if !hexutil.IsHex(e.PubKey, 32) {
		return errorf.E("pubkey must be 64 lowercase hex characters")
	}
	if !hexutil.IsHex(e.Sig, 64) {
		return errorf.E("sig must be 128 lowercase hex characters")
	}
	if e.CreatedAt < 0 {
		return errorf.E("created_at must be non-negative")
	}
	if e.Kind < 0 || e.Kind > 65535 {
		return errorf.E("kind must be in 0..65535")
	}
	for _, t := range e.Tags {
		if len(t) == 0 {
			return errorf.E("tags must not contain an empty tag")
		}
		for _, v := range t {
			if v == "" && len(t) == 1 {
				return errorf.E("tag values must be non-empty")
			}
		}
	}
	return nil
}

// Verify checks that ID matches the computed hash and that Sig verifies
// under PubKey for digest ID.
func (e *E) Verify() (bool, error) {
	if err := e.ValidateSchema(); err != nil {
		return false, err
	}
	computed, err := e.ComputeID()
	if err != nil {
		return false, err
	}
	if computed != e.ID {
		return false, errorf.E("event id mismatch: have %s, computed %s", e.ID, computed)
	}
	pub, err := e.PubKeyBytes()
	if err != nil {
		return false, err
	}
	keys, err := signer.FromPubBytes(pub)
	if err != nil {
		return false, err
	}
	idBytes, err := e.IDBytes()
	if err != nil {
		return false, err
	}
	sig, err := e.SigBytes()
	if err != nil {
		return false, err
	}
	return keys.Verify(idBytes, sig)
}

// S is a slice of events, ordered by the store's sort convention
// (created_at descending, id ascending on ties) once it comes back from a
// query.
type S []*E

// SortForQuery orders events newest-first, id-ascending on ties, the
// order every query result is returned in.
func SortForQuery(evs S) {
	sort.SliceStable(evs, func(i, j int) bool {
		if evs[i].CreatedAt != evs[j].CreatedAt {
			return evs[i].CreatedAt > evs[j].CreatedAt
		}
		return evs[i].ID < evs[j].ID
	})
}
