package database

import (
	"io"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/vmihailenco/msgpack/v5"

	"nestrelay.dev/pkg/encoders/event"
	"nestrelay.dev/pkg/interfaces/store"
	"nestrelay.dev/pkg/utils/chk"
	"nestrelay.dev/pkg/utils/context"
	"nestrelay.dev/pkg/utils/errorf"
	"nestrelay.dev/pkg/utils/log"
)

// ErrDuplicate is returned by SaveEvent when the id already exists.
var ErrDuplicate = errorf.E("event already exists")

// Store is the Badger-backed store.I implementation.
type Store struct {
	db *badger.DB
}

var _ store.I = (*Store)(nil)

// Open opens (creating if necessary) a Badger database rooted at path.
func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path).WithLogger(badgerLogger{})
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error { return s.db.Close() }

// Wipe drops every key in the database.
func (s *Store) Wipe(c context.T) error {
	return s.db.DropAll()
}

func encodeEvent(ev *event.E) ([]byte, error) { return msgpack.Marshal(ev) }

func decodeEvent(b []byte) (*event.E, error) {
	var ev event.E
	if err := msgpack.Unmarshal(b, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

// writeIndexes writes every secondary index entry for ev within txn.
func writeIndexes(txn *badger.Txn, ev *event.E) error {
	if err := txn.Set(keyByPubkey(ev.PubKey, ev.CreatedAt, ev.ID), nil); err != nil {
		return err
	}
	if err := txn.Set(keyByKind(int(ev.Kind), ev.CreatedAt, ev.ID), nil); err != nil {
		return err
	}
	if err := txn.Set(keyByCreatedAt(ev.CreatedAt, ev.ID), nil); err != nil {
		return err
	}
	if err := txn.Set(keyByPubkeyKind(ev.PubKey, int(ev.Kind), ev.CreatedAt, ev.ID), nil); err != nil {
		return err
	}
	for _, t := range ev.Tags {
		if len(t) < 2 || len(t.Name()) != 1 {
			continue
		}
		if err := txn.Set(keyByTag(t.Name(), t.Value(), ev.CreatedAt, ev.ID), nil); err != nil {
			return err
		}
	}
	return nil
}

func deleteIndexes(txn *badger.Txn, ev *event.E) error {
	keys := [][]byte{
		keyByPubkey(ev.PubKey, ev.CreatedAt, ev.ID),
		keyByKind(int(ev.Kind), ev.CreatedAt, ev.ID),
		keyByCreatedAt(ev.CreatedAt, ev.ID),
		keyByPubkeyKind(ev.PubKey, int(ev.Kind), ev.CreatedAt, ev.ID),
	}
	for _, t := range ev.Tags {
		if len(t) < 2 || len(t.Name()) != 1 {
			continue
		}
		keys = append(keys, keyByTag(t.Name(), t.Value(), ev.CreatedAt, ev.ID))
	}
	for _, k := range keys {
		if err := txn.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

func getEventTxn(txn *badger.Txn, id string) (*event.E, error) {
	item, err := txn.Get(keyEvent(id))
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}
	var ev *event.E
	err = item.Value(func(val []byte) error {
		var e error
		ev, e = decodeEvent(val)
		return e
	})
	return ev, err
}

// SaveEvent stores a regular (non-replacing) event.
func (s *Store) SaveEvent(c context.T, ev *event.E) error {
	return s.db.Update(func(txn *badger.Txn) error {
		existing, err := getEventTxn(txn, ev.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrDuplicate
		}
		enc, err := encodeEvent(ev)
		if err != nil {
			return err
		}
		if err = txn.Set(keyEvent(ev.ID), enc); err != nil {
			return err
		}
		return writeIndexes(txn, ev)
	})
}

// isBetter reports whether a should be kept over b under the same
// precedence order query results are sorted in: newer created_at wins,
// and on a tie the lexicographically smaller id wins (NIP-01's
// replaceable-event conflict rule).
func isBetter(a, b *event.E) bool {
	if a.CreatedAt != b.CreatedAt {
		return a.CreatedAt > b.CreatedAt
	}
	return a.ID < b.ID
}

func (s *Store) saveReplacing(pointerKey []byte, ev *event.E) error {
	return s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(pointerKey)
		var existing *event.E
		switch {
		case err == nil:
			err = item.Value(func(val []byte) error {
				existing, err = getEventTxn(txn, string(val))
				return err
			})
			if err != nil {
				return err
			}
		case err == badger.ErrKeyNotFound:
			existing = nil
		default:
			return err
		}
		if existing != nil {
			if existing.ID == ev.ID {
				return nil
			}
			if !isBetter(ev, existing) {
				return nil
			}
			if err = deleteIndexes(txn, existing); err != nil {
				return err
			}
			if err = txn.Delete(keyEvent(existing.ID)); err != nil {
				return err
			}
		}
		enc, err := encodeEvent(ev)
		if err != nil {
			return err
		}
		if err = txn.Set(keyEvent(ev.ID), enc); err != nil {
			return err
		}
		if err = writeIndexes(txn, ev); err != nil {
			return err
		}
		return txn.Set(pointerKey, []byte(ev.ID))
	})
}

// SaveReplaceable stores a NIP-16 replaceable event, discarding whichever
// of the new and previously-stored events is not the winner.
func (s *Store) SaveReplaceable(c context.T, ev *event.E) error {
	return s.saveReplacing(keyReplaceable(ev.PubKey, int(ev.Kind)), ev)
}

// SaveAddressable stores a NIP-33 addressable event, keyed additionally
// by its "d" tag.
func (s *Store) SaveAddressable(c context.T, ev *event.E) error {
	return s.saveReplacing(keyAddressable(ev.PubKey, int(ev.Kind), ev.DTag()), ev)
}

// DeleteByID removes the named event, but only if it was authored by
// requester, and then records a tombstone so a later republish of the
// same id is refused (NIP-09). A missing event or one by another author
// is left alone and no tombstone is written. Deletion events are
// themselves immune: deleting a deletion event has no effect.
func (s *Store) DeleteByID(c context.T, id string, requester string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		ev, err := getEventTxn(txn, id)
		if err != nil {
			return err
		}
		if ev == nil {
			return nil
		}
		if ev.Kind == event.KindDeletion {
			return nil
		}
		if ev.PubKey != requester {
			return nil
		}
		if err = deleteIndexes(txn, ev); err != nil {
			return err
		}
		if err = txn.Delete(keyEvent(id)); err != nil {
			return err
		}
		return txn.Set(keyDeleted(id), []byte(requester))
	})
}

// DeleteByCoordinate removes the addressable event at the named
// coordinate if it was authored by requester (NIP-09's "a" tag form).
// Deletion events are themselves immune: deleting a deletion event has
// no effect.
func (s *Store) DeleteByCoordinate(c context.T, pubkey string, kind event.Kind, dTag string, requester string) error {
	if pubkey != requester {
		return nil
	}
	if kind == event.KindDeletion {
		return nil
	}
	return s.db.Update(func(txn *badger.Txn) error {
		pk := keyAddressable(pubkey, int(kind), dTag)
		item, err := txn.Get(pk)
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		var id string
		if err = item.Value(func(val []byte) error { id = string(val); return nil }); err != nil {
			return err
		}
		ev, err := getEventTxn(txn, id)
		if err != nil || ev == nil {
			return err
		}
		if err = deleteIndexes(txn, ev); err != nil {
			return err
		}
		if err = txn.Delete(keyEvent(id)); err != nil {
			return err
		}
		if err = txn.Delete(pk); err != nil {
			return err
		}
		return txn.Set(keyDeleted(id), []byte(requester))
	})
}

// ForceDeleteByID removes id unconditionally, for relay-operator
// moderation (NIP-86 banevent); it still records a tombstone so the
// event cannot be silently republished.
func (s *Store) ForceDeleteByID(c context.T, id string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		ev, err := getEventTxn(txn, id)
		if err != nil {
			return err
		}
		if ev == nil {
			return txn.Set(keyDeleted(id), []byte("operator"))
		}
		if err = deleteIndexes(txn, ev); err != nil {
			return err
		}
		if err = txn.Delete(keyEvent(id)); err != nil {
			return err
		}
		return txn.Set(keyDeleted(id), []byte("operator"))
	})
}

// IsDeleted reports whether id has a deletion tombstone.
func (s *Store) IsDeleted(c context.T, id string) (bool, error) {
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(keyDeleted(id))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return nil
	})
	return found, err
}

// HasID reports whether id is currently stored.
func (s *Store) HasID(c context.T, id string) (bool, error) {
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		ev, err := getEventTxn(txn, id)
		if err != nil {
			return err
		}
		found = ev != nil
		return nil
	})
	return found, err
}

// Export streams every stored event to w, in primary-key order.
func (s *Store) Export(c context.T, w store.EventWriter) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte{prefixEvent}
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
			var ev *event.E
			if err := it.Item().Value(func(val []byte) error {
				e, err := decodeEvent(val)
				ev = e
				return err
			}); err != nil {
				return err
			}
			if err := w.WriteEvent(ev); err != nil {
				return err
			}
		}
		return nil
	})
}

// Import reads events from r until EOF, applying each through the
// appropriate save path by kind classification, and returns how many
// non-ephemeral events were applied without error. Ephemeral events are
// skipped; duplicates and replaceable events that lose to a stored copy
// are counted although nothing new is stored for them.
func (s *Store) Import(c context.T, r store.EventReader) (int, error) {
	n := 0
	for {
		ev, err := r.ReadEvent()
		if err == io.EOF {
			return n, nil
		}
		if err != nil {
			return n, err
		}
		var saveErr error
		switch {
		case ev.Kind.IsEphemeral():
			continue
		case ev.Kind.IsReplaceable():
			saveErr = s.SaveReplaceable(c, ev)
		case ev.Kind.IsAddressable():
			saveErr = s.SaveAddressable(c, ev)
		default:
			saveErr = s.SaveEvent(c, ev)
			if saveErr == ErrDuplicate {
				saveErr = nil
			}
		}
		if chk.E(saveErr) {
			return n, saveErr
		}
		n++
	}
}

type badgerLogger struct{}

func (badgerLogger) Errorf(f string, a ...any)   { log.E.F(f, a...) }
func (badgerLogger) Warningf(f string, a ...any) { log.W.F(f, a...) }
func (badgerLogger) Infof(f string, a ...any)    { log.I.F(f, a...) }
func (badgerLogger) Debugf(f string, a ...any)   { log.D.F(f, a...) }
