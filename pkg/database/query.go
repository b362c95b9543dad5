package database

import (
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"nestrelay.dev/pkg/encoders/event"
	"nestrelay.dev/pkg/encoders/filter"
	"nestrelay.dev/pkg/policy/modules"
	"nestrelay.dev/pkg/utils/context"
)

const idHexLen = 64

// candidateIDs scans the narrowest secondary index this filter supports
// and returns the event ids it names. The order is that of the scanned
// index keys (one scan after another when several kinds or tag values
// are given), so callers sort the loaded events themselves. When a filter gives the query planner nothing better to work with, it
// falls back to the global created_at index, which still yields correct
// results at the cost of visiting every stored event.
func (s *Store) candidateIDs(txn *badger.Txn, t *filter.T) []string {
	switch {
	case len(t.Ids) > 0:
		var ids []string
		seen := map[string]bool{}
		for _, idPrefix := range t.Ids {
			prefix := append([]byte{prefixEvent}, idPrefix...)
			it := txn.NewIterator(badger.DefaultIteratorOptions)
			for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
				id := string(it.Item().Key()[1:])
				if !seen[id] {
					seen[id] = true
					ids = append(ids, id)
				}
			}
			it.Close()
		}
		return ids
	case len(t.Authors) == 1 && len(t.Kinds) == 1:
		prefix := prefixByPubkeyKindOnly(t.Authors[0], t.Kinds[0])
		return scanPrefix(txn, prefix, idHexLen)
	case len(t.Authors) == 1:
		prefix := prefixByPubkeyOnly(t.Authors[0])
		return scanPrefix(txn, prefix, idHexLen)
	case len(t.Kinds) > 0:
		var ids []string
		for _, k := range t.Kinds {
			ids = append(ids, scanPrefix(txn, prefixByKindOnly(k), idHexLen)...)
		}
		return ids
	case len(t.Tags) > 0:
		for name, values := range t.Tags {
			var ids []string
			for _, v := range values {
				ids = append(ids, scanPrefix(txn, prefixByTagOnly(name, v), idHexLen)...)
			}
			return ids
		}
	}
	prefix := []byte{prefixByCreatedAt}
	return scanPrefix(txn, prefix, idHexLen)
}

func scanPrefix(txn *badger.Txn, prefix []byte, idLen int) []string {
	var ids []string
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		ids = append(ids, trailingID(it.Item().Key(), idLen))
	}
	return ids
}

// queryLimit returns the limit of the first filter in the set that sets
// one, falling back to def when none do — the OR-across-filters result
// set is capped once, globally, not per filter.
func queryLimit(filters filter.S, def int) int {
	for _, t := range filters {
		if t.Limit != nil {
			return *t.Limit
		}
	}
	return def
}

// Query answers a filter set: every filter's candidates are fetched and
// matched and the combined set is merged and deduplicated by id, then
// sorted newest-first, and only then capped at the limit. Capping before
// that final sort would let a filter whose candidate ids come from
// several concatenated index scans (multiple Ids prefixes, multiple
// Kinds, multiple tag values) drop newer events behind older ones the
// index scan happened to visit first.
func (s *Store) Query(c context.T, filters filter.S) (event.S, error) {
	limit := queryLimit(filters, 500)
	seen := map[string]bool{}
	var out event.S
	now := time.Now().Unix()
	err := s.db.View(func(txn *badger.Txn) error {
		for _, t := range filters {
			for _, id := range s.candidateIDs(txn, t) {
				if seen[id] {
					continue
				}
				ev, err := getEventTxn(txn, id)
				if err != nil {
					return err
				}
				if ev == nil || !t.Matches(ev) || modules.IsExpired(ev, now) {
					continue
				}
				seen[id] = true
				out = append(out, ev)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	event.SortForQuery(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Count answers a NIP-45 COUNT request: the number of stored events that
// satisfy the filter set, computed without materializing the matches.
func (s *Store) Count(c context.T, filters filter.S) (int64, error) {
	var total int64
	seen := map[string]bool{}
	now := time.Now().Unix()
	err := s.db.View(func(txn *badger.Txn) error {
		for _, t := range filters {
			for _, id := range s.candidateIDs(txn, t) {
				if seen[id] {
					continue
				}
				ev, err := getEventTxn(txn, id)
				if err != nil {
					return err
				}
				if ev == nil || !t.Matches(ev) || modules.IsExpired(ev, now) {
					continue
				}
				seen[id] = true
				total++
			}
		}
		return nil
	})
	return total, err
}
