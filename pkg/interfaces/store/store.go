// Package store defines the event-store contract: everything the
// policy pipeline and socket handlers need from persistence, without
// depending on the Badger-backed implementation directly.
package store

import (
	"nestrelay.dev/pkg/encoders/event"
	"nestrelay.dev/pkg/encoders/filter"
	"nestrelay.dev/pkg/utils/context"
)

// Saver accepts a regular (non-replacing) event for storage.
type Saver interface {
	SaveEvent(c context.T, ev *event.E) error
}

// Replacer stores a replaceable (NIP-16) or addressable (NIP-33) event,
// deleting or ignoring it in favor of whichever copy has the later
// created_at; on equal created_at the copy with the smaller id wins.
type Replacer interface {
	SaveReplaceable(c context.T, ev *event.E) error
	SaveAddressable(c context.T, ev *event.E) error
}

// Deleter removes events by id or, for a-tag deletions, by
// (pubkey, kind, d-tag) coordinate — NIP-09.
type Deleter interface {
	DeleteByID(c context.T, id string, requester string) error
	DeleteByCoordinate(c context.T, pubkey string, kind event.Kind, dTag string, requester string) error
	IsDeleted(c context.T, id string) (bool, error)
	// ForceDeleteByID removes an event regardless of its author,
	// bypassing the NIP-09 authorship check — for relay-operator use
	// (NIP-86 banevent) only.
	ForceDeleteByID(c context.T, id string) error
}

// Querier answers REQ/COUNT-style queries.
type Querier interface {
	Query(c context.T, filters filter.S) (event.S, error)
	Count(c context.T, filters filter.S) (int64, error)
	HasID(c context.T, id string) (bool, error)
}

// Exporter and Importer round-trip the entire store as a stream of
// events, used by the admin CLI and by operators migrating instances.
type Exporter interface {
	Export(c context.T, w EventWriter) error
}

type Importer interface {
	Import(c context.T, r EventReader) (int, error)
}

// EventWriter receives one exported event at a time.
type EventWriter interface {
	WriteEvent(ev *event.E) error
}

// EventReader yields one imported event at a time; it returns
// (nil, io.EOF) when exhausted.
type EventReader interface {
	ReadEvent() (*event.E, error)
}

// Wiper empties the entire store; used by tests and the admin CLI.
type Wiper interface {
	Wipe(c context.T) error
}

// Closer releases the store's underlying resources.
type Closer interface {
	Close() error
}

// I is the full contract the relay depends on.
type I interface {
	Saver
	Replacer
	Deleter
	Querier
	Exporter
	Importer
	Wiper
	Closer
}
