// Package database is the Badger-backed implementation of store.I.
// Records are msgpack-encoded event.E values under a primary id key;
// everything else is a secondary index of empty-valued keys whose
// ordering alone carries the information a query needs.
package database

import "encoding/binary"

// Key family prefixes. Single bytes keep every index compact; Badger
// sorts keys lexicographically, so each family's iteration order falls
// out of how its suffix is packed.
const (
	prefixEvent        = 'e' // event id -> msgpack record
	prefixDeleted      = 'x' // event id -> deleting pubkey (marker)
	prefixByPubkey     = 'p' // pubkey, created_at, id -> nil
	prefixByKind       = 'k' // kind, created_at, id -> nil
	prefixByCreatedAt  = 'c' // created_at, id -> nil
	prefixByPubkeyKind = 'P' // pubkey, kind, created_at, id -> nil
	prefixByTag        = 't' // tagName, 0x00, tagValue, created_at, id -> nil
	prefixReplaceable  = 'R' // pubkey, kind -> id (latest)
	prefixAddressable  = 'A' // pubkey, kind, d-tag -> id (latest)
)

func idBytes(id string) []byte { return []byte(id) }

func beUint16(k uint16) []byte {
	b := make([]byte, 2)
	binary.BigEndian.PutUint16(b, k)
	return b
}

func beUint64(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

// invertedTime maps a created_at so that big-endian byte order produces
// descending chronological order on iteration (newest first), which is
// the order every query must return events in.
func invertedTime(createdAt int64) uint64 {
	return ^uint64(createdAt)
}

func keyEvent(id string) []byte {
	k := make([]byte, 0, 1+len(id))
	k = append(k, prefixEvent)
	return append(k, idBytes(id)...)
}

func keyDeleted(id string) []byte {
	k := make([]byte, 0, 1+len(id))
	k = append(k, prefixDeleted)
	return append(k, idBytes(id)...)
}

func keyByPubkey(pubkey string, createdAt int64, id string) []byte {
	k := make([]byte, 0, 1+len(pubkey)+8+len(id))
	k = append(k, prefixByPubkey)
	k = append(k, pubkey...)
	k = append(k, beUint64(invertedTime(createdAt))...)
	return append(k, id...)
}

func prefixByPubkeyOnly(pubkey string) []byte {
	return append([]byte{prefixByPubkey}, pubkey...)
}

func keyByKind(kind int, createdAt int64, id string) []byte {
	k := make([]byte, 0, 1+2+8+len(id))
	k = append(k, prefixByKind)
	k = append(k, beUint16(uint16(kind))...)
	k = append(k, beUint64(invertedTime(createdAt))...)
	return append(k, id...)
}

func prefixByKindOnly(kind int) []byte {
	return append([]byte{prefixByKind}, beUint16(uint16(kind))...)
}

func keyByCreatedAt(createdAt int64, id string) []byte {
	k := make([]byte, 0, 1+8+len(id))
	k = append(k, prefixByCreatedAt)
	k = append(k, beUint64(invertedTime(createdAt))...)
	return append(k, id...)
}

func keyByPubkeyKind(pubkey string, kind int, createdAt int64, id string) []byte {
	k := make([]byte, 0, 1+len(pubkey)+2+8+len(id))
	k = append(k, prefixByPubkeyKind)
	k = append(k, pubkey...)
	k = append(k, beUint16(uint16(kind))...)
	k = append(k, beUint64(invertedTime(createdAt))...)
	return append(k, id...)
}

func prefixByPubkeyKindOnly(pubkey string, kind int) []byte {
	k := append([]byte{prefixByPubkeyKind}, pubkey...)
	return append(k, beUint16(uint16(kind))...)
}

func keyByTag(name, value string, createdAt int64, id string) []byte {
	k := make([]byte, 0, 1+len(name)+1+len(value)+8+len(id))
	k = append(k, prefixByTag)
	k = append(k, name...)
	k = append(k, 0)
	k = append(k, value...)
	k = append(k, beUint64(invertedTime(createdAt))...)
	return append(k, id...)
}

func prefixByTagOnly(name, value string) []byte {
	k := append([]byte{prefixByTag}, name...)
	k = append(k, 0)
	return append(k, value...)
}

func keyReplaceable(pubkey string, kind int) []byte {
	k := append([]byte{prefixReplaceable}, pubkey...)
	return append(k, beUint16(uint16(kind))...)
}

func keyAddressable(pubkey string, kind int, dTag string) []byte {
	k := append([]byte{prefixAddressable}, pubkey...)
	k = append(k, beUint16(uint16(kind))...)
	return append(k, dTag...)
}

// trailingID extracts the last n bytes of a secondary-index key, which
// is always the event id by construction above.
func trailingID(key []byte, n int) string {
	return string(key[len(key)-n:])
}
